package grpc

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"liyu1981.xyz/energy-monitor-service/pkg/common"
)

// CreateRateLimitInterceptor guards the listed full method names, each with
// its own bucket in the limiter store. Other methods pass through.
func (i *IOTServer) CreateRateLimitInterceptor(targetMethods []string) grpc.UnaryServerInterceptor {
	targetMethodMap := common.Reducer(targetMethods,
		func(m map[string]bool, method string) map[string]bool {
			m[method] = true
			return m
		},
		map[string]bool{},
	)

	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if targetMethodMap[info.FullMethod] && !i.CheckLimiter(info.FullMethod) {
			common.GetLoggerWith(common.LoggerNameGrpcServer).Warn("Rate limit exceeded",
				zap.String("method", info.FullMethod))
			return nil, status.Errorf(codes.ResourceExhausted, "rate limit exceeded")
		}

		return handler(ctx, req)
	}
}

// LimitedMethods are the calls that reach the vendor or write to the store.
var LimitedMethods = []string{
	MethodCollect,
	MethodListLiveDevices,
	MethodPostReading,
}
