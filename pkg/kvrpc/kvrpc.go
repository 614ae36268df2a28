// Package kvrpc declares the pyazkv gRPC service.
//
// Messages are google.protobuf.Struct values so the service can be served
// and called without generated stubs. Requests carry "key" and, for Save,
// "value"; responses carry "key", "value" and, for Delete, "is_deleted".
package kvrpc

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/heysubinoy/pyazkv/pkg/kv"
)

const (
	ServiceName = "pyazkv.v1.KVService"

	SaveMethod   = "/" + ServiceName + "/Save"
	GetMethod    = "/" + ServiceName + "/Get"
	DeleteMethod = "/" + ServiceName + "/Delete"
)

// KVServiceServer is the server API for the KV service.
type KVServiceServer interface {
	Save(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Get(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Delete(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

// ServiceDesc is the grpc.ServiceDesc for the KV service.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*KVServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Save", Handler: unaryHandler(SaveMethod, KVServiceServer.Save)},
		{MethodName: "Get", Handler: unaryHandler(GetMethod, KVServiceServer.Get)},
		{MethodName: "Delete", Handler: unaryHandler(DeleteMethod, KVServiceServer.Delete)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "pyazkv/v1/kv.proto",
}

// RegisterKVServiceServer registers srv on s.
func RegisterKVServiceServer(s grpc.ServiceRegistrar, srv KVServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

type unaryMethod func(KVServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error)

func unaryHandler(fullMethod string, call unaryMethod) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(KVServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(KVServiceServer), ctx, req.(*structpb.Struct))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Request builds a request message.
func Request(key string, value *string) *structpb.Struct {
	fields := map[string]*structpb.Value{"key": structpb.NewStringValue(key)}
	if value != nil {
		fields["value"] = structpb.NewStringValue(*value)
	}
	return &structpb.Struct{Fields: fields}
}

// Response builds a response message from a result.
func Response(res kv.Result) *structpb.Struct {
	fields := map[string]*structpb.Value{
		"key":   structpb.NewStringValue(res.Key),
		"value": structpb.NewStringValue(res.Value),
	}
	if res.Deleted {
		fields["is_deleted"] = structpb.NewBoolValue(true)
	}
	return &structpb.Struct{Fields: fields}
}

// StringField returns the named string field. ok is false when the field
// is absent or not a string.
func StringField(s *structpb.Struct, name string) (string, bool) {
	v, found := s.GetFields()[name]
	if !found {
		return "", false
	}
	sv, isString := v.GetKind().(*structpb.Value_StringValue)
	if !isString {
		return "", false
	}
	return sv.StringValue, true
}

// ParseResult reads a response message.
func ParseResult(s *structpb.Struct) kv.Result {
	key, _ := StringField(s, "key")
	value, _ := StringField(s, "value")
	return kv.Result{
		Key:     key,
		Value:   value,
		Deleted: s.GetFields()["is_deleted"].GetBoolValue(),
	}
}

// ToStatus maps a kv error onto a gRPC status error.
func ToStatus(err error) error {
	switch kv.Classify(err) {
	case kv.KindNone:
		return nil
	case kv.KindNotFound:
		return status.Error(codes.NotFound, err.Error())
	case kv.KindMalformed:
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}

// FromStatus maps a gRPC status error back onto the kv taxonomy.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return fmt.Errorf("%v: %w", err, kv.ErrBackendUnavailable)
	}
	switch st.Code() {
	case codes.NotFound:
		return fmt.Errorf("%s: %w", st.Message(), kv.ErrNotFound)
	case codes.InvalidArgument:
		return fmt.Errorf("%s: %w", st.Message(), kv.ErrMalformed)
	default:
		return fmt.Errorf("%s: %s: %w", st.Code(), st.Message(), kv.ErrBackendUnavailable)
	}
}

// Client calls the KV service.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient creates a Client over cc.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Save stores value under key.
func (c *Client) Save(ctx context.Context, key, value string, opts ...grpc.CallOption) (kv.Result, error) {
	return c.invoke(ctx, SaveMethod, Request(key, &value), opts...)
}

// Get fetches the value under key.
func (c *Client) Get(ctx context.Context, key string, opts ...grpc.CallOption) (kv.Result, error) {
	return c.invoke(ctx, GetMethod, Request(key, nil), opts...)
}

// Delete removes key and returns the value it held.
func (c *Client) Delete(ctx context.Context, key string, opts ...grpc.CallOption) (kv.Result, error) {
	return c.invoke(ctx, DeleteMethod, Request(key, nil), opts...)
}

func (c *Client) invoke(ctx context.Context, method string, in *structpb.Struct, opts ...grpc.CallOption) (kv.Result, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return kv.Result{}, FromStatus(err)
	}
	return ParseResult(out), nil
}
