package grpc

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/skeleton/internal/common"
	"github.com/dmitrijs2005/skeleton/internal/logging"
	"github.com/dmitrijs2005/skeleton/internal/server/metrics"
	"github.com/dmitrijs2005/skeleton/internal/server/models"
	"github.com/dmitrijs2005/skeleton/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey struct{}

// methodLevels lists the gated methods. Anything else passes through.
var methodLevels = map[string]services.Level{
	methodMe:      services.LevelUser,
	methodGetUser: services.LevelAdmin,
}

// UserFromContext returns the user admitted by the session interceptor.
func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*models.User)
	return u, ok
}

func (s *GRPCServer) sessionInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	level, gated := methodLevels[info.FullMethod]
	if !gated {
		return handler(ctx, req)
	}

	var bearer string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.SessionMetadataKey); len(values) > 0 {
			bearer = values[0]
		}
	}
	if bearer == "" {
		metrics.RecordGateRejection("grpc", metrics.OutcomeUnauthorized)
		return nil, status.Error(codes.Unauthenticated, "missing session")
	}

	id, token, err := services.ParseBearer(bearer)
	if err != nil {
		metrics.RecordGateRejection("grpc", metrics.OutcomeUnauthorized)
		return nil, status.Error(codes.Unauthenticated, "malformed session")
	}

	user, err := s.users.VerifySession(ctx, id, token, level)
	if err != nil {
		metrics.RecordGateRejection("grpc", services.Outcome(err))
		return nil, s.statusError(ctx, err)
	}

	return handler(context.WithValue(ctx, ctxKey{}, user), req)
}

// statusError maps an error chain to a gRPC status. Internal details are
// logged, never returned.
func (s *GRPCServer) statusError(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, common.ErrorForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return status.Error(codes.Unauthenticated, "unauthenticated")
	case errors.Is(err, common.ErrorNotFound):
		return status.Error(codes.NotFound, "not found")
	case errors.Is(err, common.ErrorValidation):
		return status.Error(codes.InvalidArgument, err.Error())
	default:
		logging.LogError(ctx, s.logger, "grpc request failed", err)
		return status.Error(codes.Internal, "internal error")
	}
}
