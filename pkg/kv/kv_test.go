package kv

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil", nil, KindNone},
		{"not found", fmt.Errorf("get %q: %w", "a", ErrNotFound), KindNotFound},
		{"malformed", fmt.Errorf("decode: %w", ErrMalformed), KindMalformed},
		{"unavailable", fmt.Errorf("redis: %w", ErrBackendUnavailable), KindBackendUnavailable},
		{"foreign error", errors.New("boom"), KindBackendUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestParseOpKind(t *testing.T) {
	for _, kind := range []OpKind{OpSave, OpGet, OpDelete} {
		got, err := ParseOpKind(kind.String())
		assert.NoError(t, err)
		assert.Equal(t, kind, got)
	}

	_, err := ParseOpKind("save")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = ParseOpKind("")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestOperationValidate(t *testing.T) {
	assert.NoError(t, Operation{Kind: OpSave, Key: "a", Value: ""}.Validate())
	assert.NoError(t, Operation{Kind: OpDelete, Key: "a"}.Validate())
	assert.NoError(t, Operation{Kind: OpGet, Key: "  "}.Validate())
	assert.ErrorIs(t, Operation{Kind: OpGet, Key: ""}.Validate(), ErrMalformed)
	assert.ErrorIs(t, Operation{Key: "a"}.Validate(), ErrMalformed)
}
