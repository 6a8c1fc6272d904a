package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/rehabplan/internal/auth"
	"github.com/mmynk/rehabplan/internal/middleware"
	"github.com/mmynk/rehabplan/internal/models"
	"github.com/mmynk/rehabplan/internal/rpc"
	"github.com/mmynk/rehabplan/internal/storage"
)

const AuthServiceName = "rehabplan.v1.AuthService"

var (
	AuthServiceRegisterProcedure = rpc.Procedure(AuthServiceName, "Register")
	AuthServiceLoginProcedure    = rpc.Procedure(AuthServiceName, "Login")
	AuthServiceLogoutProcedure   = rpc.Procedure(AuthServiceName, "Logout")
	AuthServiceMeProcedure       = rpc.Procedure(AuthServiceName, "Me")

	AuthServiceChangePasswordProcedure = rpc.Procedure(AuthServiceName, "ChangePassword")
)

// User is the wire form of an account. It never carries the password hash.
type User struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Name      string      `json:"name"`
	Role      models.Role `json:"role"`
	Active    bool        `json:"active"`
	CreatedAt int64       `json:"createdAt"`
}

func userFromModel(u *models.User) User {
	return User{
		ID:        u.ID,
		Username:  u.Username,
		Name:      u.Name,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type RegisterResponse struct {
	Success bool `json:"success"`
	User    User `json:"user"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Success bool   `json:"success"`
	Token   string `json:"token"`
	User    User   `json:"user"`
}

type LogoutRequest struct{}

type LogoutResponse struct {
	Success bool `json:"success"`
}

type MeRequest struct{}

type MeResponse struct {
	User User `json:"user"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type ChangePasswordResponse struct {
	Success bool `json:"success"`
}

// AuthService implements registration, login and session lookup.
type AuthService struct {
	authenticator auth.Authenticator
	jwtManager    *auth.JWTManager
	users         storage.UserStore
	secureCookie  bool
	logger        *slog.Logger
}

// NewAuthService creates a new authentication service. secureCookie marks
// the session cookie Secure; enable it behind HTTPS.
func NewAuthService(authenticator auth.Authenticator, jwtManager *auth.JWTManager, users storage.UserStore, secureCookie bool, logger *slog.Logger) *AuthService {
	return &AuthService{
		authenticator: authenticator,
		jwtManager:    jwtManager,
		users:         users,
		secureCookie:  secureCookie,
		logger:        logger,
	}
}

func (s *AuthService) sessionCookie(value string, maxAge time.Duration) *http.Cookie {
	cookie := &http.Cookie{
		Name:     middleware.SessionCookie,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	}
	if maxAge < 0 {
		cookie.MaxAge = -1
	}
	return cookie
}

// Register creates a new user account with the USER role.
func (s *AuthService) Register(ctx context.Context, req *connect.Request[RegisterRequest]) (*connect.Response[RegisterResponse], error) {
	username := strings.TrimSpace(req.Msg.Username)
	s.logger.Info("Register request", "username", username)

	if username == "" {
		return nil, invalid(errors.New("username: is required"))
	}
	if req.Msg.Password == "" {
		return nil, invalid(errors.New("password: is required"))
	}

	user, err := s.authenticator.Register(ctx, username, strings.TrimSpace(req.Msg.Name), req.Msg.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUsernameExists):
			s.logger.Warn("Registration rejected", "username", username, "error", err)
			return nil, connect.NewError(connect.CodeAlreadyExists, err)
		case errors.Is(err, auth.ErrWeakPassword):
			s.logger.Warn("Registration rejected", "username", username, "error", err)
			return nil, invalid(err)
		}
		s.logger.Error("Registration failed", "username", username, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("User registered successfully", "user_id", user.ID, "username", user.Username)
	return connect.NewResponse(&RegisterResponse{Success: true, User: userFromModel(user)}), nil
}

// Login authenticates a user, returns a JWT and sets it as the session cookie.
func (s *AuthService) Login(ctx context.Context, req *connect.Request[LoginRequest]) (*connect.Response[LoginResponse], error) {
	s.logger.Info("Login request", "username", req.Msg.Username)

	if req.Msg.Username == "" || req.Msg.Password == "" {
		return nil, invalid(errors.New("username and password are required"))
	}

	user, err := s.authenticator.Authenticate(ctx, req.Msg.Username, req.Msg.Password)
	if err != nil {
		s.logger.Warn("Login failed", "username", req.Msg.Username, "error", err)
		switch {
		case errors.Is(err, auth.ErrInactiveAccount):
			return nil, connect.NewError(connect.CodePermissionDenied, err)
		case errors.Is(err, auth.ErrInvalidCredentials):
			return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidCredentials)
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	token, err := s.jwtManager.Generate(user)
	if err != nil {
		s.logger.Error("Failed to generate token", "user_id", user.ID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	resp := connect.NewResponse(&LoginResponse{Success: true, Token: token, User: userFromModel(user)})
	resp.Header().Add("Set-Cookie", s.sessionCookie(token, s.jwtManager.TokenDuration()).String())

	s.logger.Info("User logged in successfully", "user_id", user.ID, "username", user.Username)
	return resp, nil
}

// Logout clears the session cookie. Tokens are stateless, so a client that
// kept the token can use it until it expires.
func (s *AuthService) Logout(ctx context.Context, req *connect.Request[LogoutRequest]) (*connect.Response[LogoutResponse], error) {
	s.logger.Info("Logout request", "user_id", middleware.GetUserID(ctx))

	resp := connect.NewResponse(&LogoutResponse{Success: true})
	resp.Header().Add("Set-Cookie", s.sessionCookie("", -1).String())
	return resp, nil
}

// Me returns the account of the current session, read fresh from storage
// so role changes show up before the token is reissued.
func (s *AuthService) Me(ctx context.Context, req *connect.Request[MeRequest]) (*connect.Response[MeResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}

	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Warn("Me lookup failed", "user_id", userID, "error", err)
		if errors.Is(err, storage.ErrNotFound) {
			return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
		}
		return nil, storeError(err)
	}

	return connect.NewResponse(&MeResponse{User: userFromModel(user)}), nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, req *connect.Request[ChangePasswordRequest]) (*connect.Response[ChangePasswordResponse], error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	if req.Msg.CurrentPassword == "" || req.Msg.NewPassword == "" {
		return nil, invalid(errors.New("currentPassword and newPassword are required"))
	}

	err := s.authenticator.ChangePassword(ctx, userID, req.Msg.CurrentPassword, req.Msg.NewPassword)
	if err != nil {
		s.logger.Warn("Password change rejected", "user_id", userID, "error", err)
		switch {
		case errors.Is(err, auth.ErrWrongPassword), errors.Is(err, auth.ErrWeakPassword):
			return nil, invalid(err)
		case errors.Is(err, storage.ErrNotFound):
			return nil, connect.NewError(connect.CodeNotFound, errors.New("user not found"))
		}
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	s.logger.Info("Password changed", "user_id", userID)
	return connect.NewResponse(&ChangePasswordResponse{Success: true}), nil
}

// NewAuthServiceHandler builds an HTTP handler for the AuthService.
func NewAuthServiceHandler(svc *AuthService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{rpc.WithJSON()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(AuthServiceRegisterProcedure, connect.NewUnaryHandler(AuthServiceRegisterProcedure, svc.Register, opts...))
	mux.Handle(AuthServiceLoginProcedure, connect.NewUnaryHandler(AuthServiceLoginProcedure, svc.Login, opts...))
	mux.Handle(AuthServiceLogoutProcedure, connect.NewUnaryHandler(AuthServiceLogoutProcedure, svc.Logout, opts...))
	mux.Handle(AuthServiceMeProcedure, connect.NewUnaryHandler(AuthServiceMeProcedure, svc.Me, opts...))
	mux.Handle(AuthServiceChangePasswordProcedure, connect.NewUnaryHandler(AuthServiceChangePasswordProcedure, svc.ChangePassword, opts...))
	return "/" + AuthServiceName + "/", mux
}
