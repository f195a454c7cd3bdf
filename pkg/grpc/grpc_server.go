package grpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"liyu1981.xyz/energy-monitor-service/pkg/iot"
)

const ServiceName = "energymonitor.v1.CollectorService"

const (
	MethodCollect         = "/" + ServiceName + "/Collect"
	MethodGetStats        = "/" + ServiceName + "/GetStats"
	MethodListLiveDevices = "/" + ServiceName + "/ListLiveDevices"
	MethodQueryReadings   = "/" + ServiceName + "/QueryReadings"
	MethodPostReading     = "/" + ServiceName + "/PostReading"
)

// CollectorServiceServer carries its payloads as well-known Struct messages,
// shaped like the JSON bodies of the HTTP surface.
type CollectorServiceServer interface {
	Collect(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetStats(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListLiveDevices(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	QueryReadings(context.Context, *structpb.Struct) (*structpb.Struct, error)
	PostReading(context.Context, *structpb.Struct) (*structpb.Struct, error)
}

type IOTServer struct {
	Iot              *iot.IOT
	RateLimiterStore *iot.RateLimiterStore
}

var _ CollectorServiceServer = (*IOTServer)(nil)

// CheckLimiter reports whether key still has budget. Without a limiter store
// every call passes.
func (i *IOTServer) CheckLimiter(key string) bool {
	if i.RateLimiterStore == nil {
		return true
	}
	return i.RateLimiterStore.Allow(key)
}

func RegisterCollectorServiceServer(s grpc.ServiceRegistrar, srv CollectorServiceServer) {
	s.RegisterService(&CollectorServiceDesc, srv)
}

// methodHandler is the handler shape grpc.MethodDesc expects.
type methodHandler = func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error)

func emptyHandler(call func(CollectorServiceServer, context.Context, *emptypb.Empty) (*structpb.Struct, error), method string) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(emptypb.Empty)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CollectorServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(CollectorServiceServer), ctx, req.(*emptypb.Empty))
		})
	}
}

func structHandler(call func(CollectorServiceServer, context.Context, *structpb.Struct) (*structpb.Struct, error), method string) methodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(structpb.Struct)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(CollectorServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
			return call(srv.(CollectorServiceServer), ctx, req.(*structpb.Struct))
		})
	}
}

var CollectorServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CollectorServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Collect", Handler: emptyHandler(CollectorServiceServer.Collect, MethodCollect)},
		{MethodName: "GetStats", Handler: emptyHandler(CollectorServiceServer.GetStats, MethodGetStats)},
		{MethodName: "ListLiveDevices", Handler: emptyHandler(CollectorServiceServer.ListLiveDevices, MethodListLiveDevices)},
		{MethodName: "QueryReadings", Handler: structHandler(CollectorServiceServer.QueryReadings, MethodQueryReadings)},
		{MethodName: "PostReading", Handler: structHandler(CollectorServiceServer.PostReading, MethodPostReading)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "energymonitor/v1/collector.proto",
}

type CollectorServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCollectorServiceClient(cc grpc.ClientConnInterface) *CollectorServiceClient {
	return &CollectorServiceClient{cc: cc}
}

func (c *CollectorServiceClient) invoke(ctx context.Context, method string, in any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CollectorServiceClient) Collect(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodCollect, &emptypb.Empty{}, opts...)
}

func (c *CollectorServiceClient) GetStats(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodGetStats, &emptypb.Empty{}, opts...)
}

func (c *CollectorServiceClient) ListLiveDevices(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodListLiveDevices, &emptypb.Empty{}, opts...)
}

func (c *CollectorServiceClient) QueryReadings(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodQueryReadings, in, opts...)
}

func (c *CollectorServiceClient) PostReading(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, MethodPostReading, in, opts...)
}
