package grpcx

import (
	"context"

	"github.com/md-rashed-zaman/salonqueue/libs/httpx"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// RequestIDMetadataKey carries the request id between services. gRPC metadata
// keys are lowercase.
const RequestIDMetadataKey = "x-request-id"

// UnaryClientRequestIDInterceptor forwards the caller's request id, or a new
// one when the call does not originate from an HTTP request.
func UnaryClientRequestIDInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		id := httpx.RequestIDFromContext(ctx)
		if id == "" {
			id = httpx.NewRequestID()
		}
		ctx = metadata.AppendToOutgoingContext(ctx, RequestIDMetadataKey, id)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// UnaryServerRequestIDInterceptor stores the incoming request id in the
// context the same way httpx.WithRequestID does, and echoes it in the header.
func UnaryServerRequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		var id string
		if md, ok := metadata.FromIncomingContext(ctx); ok {
			if vals := md.Get(RequestIDMetadataKey); len(vals) > 0 {
				id = vals[0]
			}
		}
		ctx = httpx.ContextWithRequestID(ctx, id)
		if id = httpx.RequestIDFromContext(ctx); id == "" {
			id = httpx.NewRequestID()
			ctx = httpx.ContextWithRequestID(ctx, id)
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDMetadataKey, id))
		return handler(ctx, req)
	}
}
