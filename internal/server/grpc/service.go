package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/skeleton/internal/server/models"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	serviceName   = "skeleton.v1.SessionService"
	methodMe      = "/" + serviceName + "/Me"
	methodGetUser = "/" + serviceName + "/GetUser"
)

// sessionServiceServer is the handler type bound to sessionServiceDesc.
// Messages are well-known types, so no generated code is needed.
type sessionServiceServer interface {
	Me(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetUser(context.Context, *wrapperspb.Int64Value) (*structpb.Struct, error)
}

var sessionServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*sessionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Me", Handler: meHandler},
		{MethodName: "GetUser", Handler: getUserHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "skeleton/v1/session.proto",
}

func meHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(sessionServiceServer).Me(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodMe}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(sessionServiceServer).Me(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func getUserHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(wrapperspb.Int64Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(sessionServiceServer).GetUser(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: methodGetUser}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(sessionServiceServer).GetUser(ctx, req.(*wrapperspb.Int64Value))
	}
	return interceptor(ctx, in, info, handler)
}

// Me returns the caller's own account.
func (s *GRPCServer) Me(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	user, ok := UserFromContext(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	return userStruct(user)
}

// GetUser returns any account by id. Admin only.
func (s *GRPCServer) GetUser(ctx context.Context, req *wrapperspb.Int64Value) (*structpb.Struct, error) {
	user, err := s.users.GetUser(ctx, req.GetValue())
	if err != nil {
		return nil, s.statusError(ctx, err)
	}
	return userStruct(user)
}

func userStruct(u *models.User) (*structpb.Struct, error) {
	st, err := structpb.NewStruct(map[string]any{
		"id":         u.ID,
		"is_admin":   u.IsAdmin,
		"username":   u.Username,
		"created_at": u.CreatedAt.UTC().Format(time.RFC3339),
		"updated_at": u.UpdatedAt.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, status.Error(codes.Internal, "internal error")
	}
	return st, nil
}
