package oauth2client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
)

// withBearer attaches the current access token to the outgoing gRPC metadata.
func (a *Authority) withBearer(ctx context.Context) (context.Context, error) {
	token, err := a.AccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("oauth2client: no token for rpc: %w", err)
	}
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token), nil
}

// UnaryClientInterceptor authenticates unary RPCs with the authority's bearer token.
//
// The token comes from AccessToken, so a stale token is refreshed first. While the
// authority is in StateFailed every call fails with the recorded *AuthenticationError
// and no token request is made; Reset or a new authorization is needed to recover.
//
//	conn, err := grpc.NewClient(addr,
//	    grpc.WithUnaryInterceptor(authority.UnaryClientInterceptor()),
//	    grpc.WithStreamInterceptor(authority.StreamClientInterceptor()),
//	)
func (a *Authority) UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx, err := a.withBearer(ctx)
		if err != nil {
			return err
		}
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// StreamClientInterceptor is the streaming counterpart of UnaryClientInterceptor.
// The token is attached once, when the stream is opened.
func (a *Authority) StreamClientInterceptor() grpc.StreamClientInterceptor {
	return func(ctx context.Context, desc *grpc.StreamDesc, cc *grpc.ClientConn, method string, streamer grpc.Streamer, opts ...grpc.CallOption) (grpc.ClientStream, error) {
		ctx, err := a.withBearer(ctx)
		if err != nil {
			return nil, err
		}
		return streamer(ctx, desc, cc, method, opts...)
	}
}
