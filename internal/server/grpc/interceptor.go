package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/filmkeeper/internal/common"
	"github.com/dmitrijs2005/filmkeeper/internal/server/guard"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

func authorizationFromMetadata(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.AuthorizationHeaderName)
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// authorize runs the guard for method and returns ctx carrying the principal.
func (s *GRPCServer) authorize(ctx context.Context, method string) (context.Context, error) {
	p, err := s.guard.Check(ctx, method, authorizationFromMetadata(ctx))
	if err != nil {
		return nil, toStatus(err)
	}
	if p.UserID != "" {
		ctx = guard.WithPrincipal(ctx, p)
	}
	return ctx, nil
}

// toStatus hides the deny reason from the caller.
func toStatus(err error) error {
	switch {
	case errors.Is(err, common.ErrDependencyUnavailable):
		return status.Error(codes.Unavailable, "service temporarily unavailable")
	case errors.Is(err, common.ErrMissingCredentials),
		errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInsufficientRole),
		errors.Is(err, common.ErrInvalidToken):
		return status.Error(codes.Unauthenticated, "unauthorized")
	default:
		return status.Error(codes.Internal, "internal error")
	}
}

func (s *GRPCServer) authUnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	ctx, err := s.authorize(ctx, info.FullMethod)
	if err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

type guardedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (g *guardedStream) Context() context.Context { return g.ctx }

func (s *GRPCServer) authStreamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	ctx, err := s.authorize(ss.Context(), info.FullMethod)
	if err != nil {
		return err
	}
	return handler(srv, &guardedStream{ServerStream: ss, ctx: ctx})
}
