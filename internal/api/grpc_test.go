package api

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/heysubinoy/pyazkv/internal/router"
	"github.com/heysubinoy/pyazkv/internal/store"
	"github.com/heysubinoy/pyazkv/pkg/kv"
	"github.com/heysubinoy/pyazkv/pkg/kvrpc"
)

func newTestGRPC(t *testing.T, st kv.Store) *grpc.ClientConn {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	srv := grpc.NewServer()
	kvrpc.RegisterKVServiceServer(srv, NewGRPCServer(router.New(st, discard)))
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestGRPC_Lifecycle(t *testing.T) {
	client := kvrpc.NewClient(newTestGRPC(t, store.NewMemStore()))
	ctx := context.Background()

	res, err := client.Save(ctx, "a", "1")
	require.NoError(t, err)
	assert.Equal(t, kv.Result{Key: "a", Value: "1"}, res)

	res, err = client.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "1", res.Value)

	res, err = client.Delete(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, kv.Result{Key: "a", Value: "1", Deleted: true}, res)

	_, err = client.Get(ctx, "a")
	assert.ErrorIs(t, err, kv.ErrNotFound)
	_, err = client.Delete(ctx, "a")
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestGRPC_StatusCodes(t *testing.T) {
	conn := newTestGRPC(t, brokenStore{})
	ctx := context.Background()

	out := new(structpb.Struct)
	err := conn.Invoke(ctx, kvrpc.GetMethod, &structpb.Struct{}, out)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	err = conn.Invoke(ctx, kvrpc.SaveMethod, kvrpc.Request("a", nil), out)
	assert.Equal(t, codes.InvalidArgument, status.Code(err), "value is required")

	err = conn.Invoke(ctx, kvrpc.GetMethod, kvrpc.Request("a", nil), out)
	assert.Equal(t, codes.Unavailable, status.Code(err))

	_, err = kvrpc.NewClient(conn).Save(ctx, "a", "1")
	assert.ErrorIs(t, err, kv.ErrBackendUnavailable)

	_, err = kvrpc.NewClient(conn).Get(ctx, "")
	assert.ErrorIs(t, err, kv.ErrMalformed)
}
