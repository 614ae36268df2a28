// Package storetest holds the behaviour every kv.Store backend must share.
package storetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heysubinoy/pyazkv/pkg/kv"
)

// Run exercises st against the kv.Store contract. st must start empty.
func Run(t *testing.T, st kv.Store) {
	t.Helper()
	ctx := context.Background()

	t.Run("RoundTrip", func(t *testing.T) {
		require.NoError(t, st.Save(ctx, "round", "trip"))
		got, err := st.Get(ctx, "round")
		require.NoError(t, err)
		assert.Equal(t, "trip", got)
	})

	t.Run("EmptyValue", func(t *testing.T) {
		require.NoError(t, st.Save(ctx, "empty", ""))
		got, err := st.Get(ctx, "empty")
		require.NoError(t, err)
		assert.Equal(t, "", got)
	})

	t.Run("MissingKey", func(t *testing.T) {
		_, err := st.Get(ctx, "never-saved")
		assert.ErrorIs(t, err, kv.ErrNotFound)
		assert.ErrorIs(t, st.Delete(ctx, "never-saved"), kv.ErrNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, st.Save(ctx, "over", "v1"))
		require.NoError(t, st.Save(ctx, "over", "v2"))
		got, err := st.Get(ctx, "over")
		require.NoError(t, err)
		assert.Equal(t, "v2", got)
	})

	t.Run("DeleteThenGet", func(t *testing.T) {
		require.NoError(t, st.Save(ctx, "gone", "soon"))
		require.NoError(t, st.Delete(ctx, "gone"))

		_, err := st.Get(ctx, "gone")
		assert.ErrorIs(t, err, kv.ErrNotFound)
		assert.ErrorIs(t, st.Delete(ctx, "gone"), kv.ErrNotFound)
	})

	if taker, ok := st.(kv.Taker); ok {
		t.Run("Take", func(t *testing.T) {
			require.NoError(t, st.Save(ctx, "take", "once"))
			got, err := taker.Take(ctx, "take")
			require.NoError(t, err)
			assert.Equal(t, "once", got)

			_, err = taker.Take(ctx, "take")
			assert.ErrorIs(t, err, kv.ErrNotFound)
			_, err = st.Get(ctx, "take")
			assert.ErrorIs(t, err, kv.ErrNotFound)
		})
	}

	t.Run("ConcurrentDisjointKeys", func(t *testing.T) {
		const workers, perWorker = 8, 50

		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < perWorker; i++ {
					key := fmt.Sprintf("w%d-k%d", w, i)
					value := fmt.Sprintf("v%d", i)
					assert.NoError(t, st.Save(ctx, key, value))
					got, err := st.Get(ctx, key)
					assert.NoError(t, err)
					assert.Equal(t, value, got)
					if i%2 == 0 {
						assert.NoError(t, st.Delete(ctx, key))
					}
				}
			}(w)
		}
		wg.Wait()

		for w := 0; w < workers; w++ {
			for i := 0; i < perWorker; i++ {
				key := fmt.Sprintf("w%d-k%d", w, i)
				got, err := st.Get(ctx, key)
				if i%2 == 0 {
					assert.ErrorIs(t, err, kv.ErrNotFound, key)
					continue
				}
				assert.NoError(t, err, key)
				assert.Equal(t, fmt.Sprintf("v%d", i), got, key)
			}
		}
	})
}
