package api

import (
	"context"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/heysubinoy/pyazkv/internal/router"
	"github.com/heysubinoy/pyazkv/pkg/kv"
	"github.com/heysubinoy/pyazkv/pkg/kvrpc"
)

// GRPCServer implements the kvrpc.KVServiceServer interface.
// It wraps a router.Router and exposes it over gRPC.
type GRPCServer struct {
	Router *router.Router
}

var _ kvrpc.KVServiceServer = (*GRPCServer)(nil)

// NewGRPCServer creates a new gRPC server over r.
func NewGRPCServer(r *router.Router) *GRPCServer {
	return &GRPCServer{
		Router: r,
	}
}

// Save stores a key-value pair.
func (s *GRPCServer) Save(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key, err := requiredField(req, "key")
	if err != nil {
		return nil, err
	}
	value, err := requiredField(req, "value")
	if err != nil {
		return nil, err
	}

	res, err := s.Router.HandleSave(ctx, key, value)
	if err != nil {
		return nil, kvrpc.ToStatus(err)
	}
	return kvrpc.Response(res), nil
}

// Get retrieves a value by key.
func (s *GRPCServer) Get(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key, err := requiredField(req, "key")
	if err != nil {
		return nil, err
	}

	res, err := s.Router.HandleGet(ctx, key)
	if err != nil {
		return nil, kvrpc.ToStatus(err)
	}
	return kvrpc.Response(res), nil
}

// Delete removes a key from the store.
func (s *GRPCServer) Delete(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	key, err := requiredField(req, "key")
	if err != nil {
		return nil, err
	}

	res, err := s.Router.HandleDelete(ctx, key)
	if err != nil {
		return nil, kvrpc.ToStatus(err)
	}
	return kvrpc.Response(res), nil
}

func requiredField(req *structpb.Struct, name string) (string, error) {
	v, ok := kvrpc.StringField(req, name)
	if !ok {
		return "", status.Error(codes.InvalidArgument, fmt.Sprintf("%s is required: %v", name, kv.ErrMalformed))
	}
	return v, nil
}
