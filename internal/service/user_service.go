package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/rehabplan/internal/middleware"
	"github.com/mmynk/rehabplan/internal/models"
	"github.com/mmynk/rehabplan/internal/rpc"
	"github.com/mmynk/rehabplan/internal/storage"
)

const UserServiceName = "rehabplan.v1.UserService"

var (
	UserServiceListUsersProcedure      = rpc.Procedure(UserServiceName, "ListUsers")
	UserServiceUpdateUserRoleProcedure = rpc.Procedure(UserServiceName, "UpdateUserRole")
	UserServiceSetUserActiveProcedure  = rpc.Procedure(UserServiceName, "SetUserActive")
)

type ListUsersRequest struct{}

type ListUsersResponse struct {
	Users []User `json:"users"`
}

type UpdateUserRoleRequest struct {
	ID   string      `json:"id"`
	Role models.Role `json:"role"`
}

type SetUserActiveRequest struct {
	ID     string `json:"id"`
	Active bool   `json:"active"`
}

type UpdateUserResponse struct {
	Success bool `json:"success"`
}

// UserService is the account administration surface. Operators can list
// and (de)activate accounts; only admins change roles.
type UserService struct {
	users storage.UserStore
}

func NewUserService(users storage.UserStore) *UserService {
	return &UserService{users: users}
}

// ListUsers returns every account.
func (s *UserService) ListUsers(ctx context.Context, req *connect.Request[ListUsersRequest]) (*connect.Response[ListUsersResponse], error) {
	if err := middleware.RequireRole(ctx, models.RoleAdmin, models.RoleOperator); err != nil {
		return nil, err
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		slog.Error("ListUsers failed", "error", err)
		return nil, storeError(err)
	}

	resp := &ListUsersResponse{Users: make([]User, len(users))}
	for i, u := range users {
		resp.Users[i] = userFromModel(u)
	}
	return connect.NewResponse(resp), nil
}

// UpdateUserRole changes the role of another account.
func (s *UserService) UpdateUserRole(ctx context.Context, req *connect.Request[UpdateUserRoleRequest]) (*connect.Response[UpdateUserResponse], error) {
	if err := middleware.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if req.Msg.ID == "" {
		return nil, invalid(errors.New("id: is required"))
	}
	if !req.Msg.Role.Valid() {
		return nil, invalid(fmt.Errorf("role: unknown role %q", req.Msg.Role))
	}
	if req.Msg.ID == middleware.GetUserID(ctx) {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errors.New("admins cannot change their own role"))
	}

	if err := s.users.UpdateUserRole(ctx, req.Msg.ID, req.Msg.Role); err != nil {
		slog.Warn("UpdateUserRole failed", "target_id", req.Msg.ID, "error", err)
		return nil, storeError(err)
	}

	slog.Info("User role updated", "target_id", req.Msg.ID, "role", req.Msg.Role, "by", middleware.GetUserID(ctx))
	return connect.NewResponse(&UpdateUserResponse{Success: true}), nil
}

// SetUserActive activates or deactivates another account. Deactivated
// accounts cannot log in.
func (s *UserService) SetUserActive(ctx context.Context, req *connect.Request[SetUserActiveRequest]) (*connect.Response[UpdateUserResponse], error) {
	if err := middleware.RequireRole(ctx, models.RoleAdmin, models.RoleOperator); err != nil {
		return nil, err
	}
	if req.Msg.ID == "" {
		return nil, invalid(errors.New("id: is required"))
	}
	if req.Msg.ID == middleware.GetUserID(ctx) {
		return nil, connect.NewError(connect.CodeFailedPrecondition, errors.New("cannot change the active state of your own account"))
	}

	if err := s.users.SetUserActive(ctx, req.Msg.ID, req.Msg.Active); err != nil {
		slog.Warn("SetUserActive failed", "target_id", req.Msg.ID, "error", err)
		return nil, storeError(err)
	}

	slog.Info("User active state updated", "target_id", req.Msg.ID, "active", req.Msg.Active, "by", middleware.GetUserID(ctx))
	return connect.NewResponse(&UpdateUserResponse{Success: true}), nil
}

// NewUserServiceHandler builds an HTTP handler for the UserService.
func NewUserServiceHandler(svc *UserService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{rpc.WithJSON()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(UserServiceListUsersProcedure, connect.NewUnaryHandler(UserServiceListUsersProcedure, svc.ListUsers, opts...))
	mux.Handle(UserServiceUpdateUserRoleProcedure, connect.NewUnaryHandler(UserServiceUpdateUserRoleProcedure, svc.UpdateUserRole, opts...))
	mux.Handle(UserServiceSetUserActiveProcedure, connect.NewUnaryHandler(UserServiceSetUserActiveProcedure, svc.SetUserActive, opts...))
	return "/" + UserServiceName + "/", mux
}
