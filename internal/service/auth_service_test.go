package service

import (
	"context"
	"net/http"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/rehabplan/internal/middleware"
	"github.com/mmynk/rehabplan/internal/models"
	"github.com/mmynk/rehabplan/internal/rpc"
)

func withCookie(header string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			req.Header().Set("Cookie", header)
			return next(ctx, req)
		}
	}
}

func TestAuthFlow(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	register := newClient[RegisterRequest, RegisterResponse](env, AuthServiceRegisterProcedure, "")
	login := newClient[LoginRequest, LoginResponse](env, AuthServiceLoginProcedure, "")

	registered, err := register.CallUnary(ctx, connect.NewRequest(&RegisterRequest{
		Username: "clerk",
		Password: "correct-horse",
		Name:     "Office Clerk",
	}))
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, registered.Msg.User.Role)
	assert.True(t, registered.Msg.User.Active)

	t.Run("duplicate username", func(t *testing.T) {
		_, err := register.CallUnary(ctx, connect.NewRequest(&RegisterRequest{Username: "clerk", Password: "another-pass"}))
		assert.Equal(t, connect.CodeAlreadyExists, connect.CodeOf(err))
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := register.CallUnary(ctx, connect.NewRequest(&RegisterRequest{Username: "short", Password: "abc"}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := login.CallUnary(ctx, connect.NewRequest(&LoginRequest{Username: "clerk", Password: "wrong-password"}))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("login sets session cookie usable by Me", func(t *testing.T) {
		resp, err := login.CallUnary(ctx, connect.NewRequest(&LoginRequest{Username: "clerk", Password: "correct-horse"}))
		require.NoError(t, err)
		require.NotEmpty(t, resp.Msg.Token)

		cookies := (&http.Response{Header: resp.Header()}).Cookies()
		require.Len(t, cookies, 1)
		session := cookies[0]
		assert.Equal(t, middleware.SessionCookie, session.Name)
		assert.Equal(t, resp.Msg.Token, session.Value)
		assert.True(t, session.HttpOnly)

		me := connect.NewClient[MeRequest, MeResponse](http.DefaultClient, env.url+AuthServiceMeProcedure,
			rpc.WithJSON(), connect.WithInterceptors(withCookie(session.Name+"="+session.Value)))
		got, err := me.CallUnary(ctx, connect.NewRequest(&MeRequest{}))
		require.NoError(t, err)
		assert.Equal(t, "clerk", got.Msg.User.Username)
		assert.Equal(t, "Office Clerk", got.Msg.User.Name)
	})

	t.Run("logout expires the cookie", func(t *testing.T) {
		resp, err := newClient[LogoutRequest, LogoutResponse](env, AuthServiceLogoutProcedure, "").
			CallUnary(ctx, connect.NewRequest(&LogoutRequest{}))
		require.NoError(t, err)
		assert.Contains(t, resp.Header().Get("Set-Cookie"), "Max-Age=0")
	})

	t.Run("deactivated account cannot log in", func(t *testing.T) {
		require.NoError(t, env.store.SetUserActive(ctx, registered.Msg.User.ID, false))
		_, err := login.CallUnary(ctx, connect.NewRequest(&LoginRequest{Username: "clerk", Password: "correct-horse"}))
		assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	})
}

func TestMe(t *testing.T) {
	env := setupTestServer(t)

	_, err := newClient[MeRequest, MeResponse](env, AuthServiceMeProcedure, "").
		CallUnary(context.Background(), connect.NewRequest(&MeRequest{}))
	assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))

	resp, err := newClient[MeRequest, MeResponse](env, AuthServiceMeProcedure, env.tokens[models.RoleAdmin]).
		CallUnary(context.Background(), connect.NewRequest(&MeRequest{}))
	require.NoError(t, err)
	assert.Equal(t, env.admin.ID, resp.Msg.User.ID)
	assert.Equal(t, models.RoleAdmin, resp.Msg.User.Role)
}

func TestChangePassword(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	registered, err := newClient[RegisterRequest, RegisterResponse](env, AuthServiceRegisterProcedure, "").
		CallUnary(ctx, connect.NewRequest(&RegisterRequest{Username: "clerk", Password: "correct-horse"}))
	require.NoError(t, err)
	login := newClient[LoginRequest, LoginResponse](env, AuthServiceLoginProcedure, "")
	session, err := login.CallUnary(ctx, connect.NewRequest(&LoginRequest{Username: "clerk", Password: "correct-horse"}))
	require.NoError(t, err)
	require.Equal(t, registered.Msg.User.ID, session.Msg.User.ID)

	change := newClient[ChangePasswordRequest, ChangePasswordResponse](env, AuthServiceChangePasswordProcedure, session.Msg.Token)

	t.Run("requires a session", func(t *testing.T) {
		_, err := newClient[ChangePasswordRequest, ChangePasswordResponse](env, AuthServiceChangePasswordProcedure, "").
			CallUnary(ctx, connect.NewRequest(&ChangePasswordRequest{CurrentPassword: "correct-horse", NewPassword: "battery-staple"}))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
	})

	t.Run("rejects a wrong current password", func(t *testing.T) {
		_, err := change.CallUnary(ctx, connect.NewRequest(&ChangePasswordRequest{CurrentPassword: "not-it-at-all", NewPassword: "battery-staple"}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("rejects missing and weak passwords", func(t *testing.T) {
		_, err := change.CallUnary(ctx, connect.NewRequest(&ChangePasswordRequest{CurrentPassword: "correct-horse"}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

		_, err = change.CallUnary(ctx, connect.NewRequest(&ChangePasswordRequest{CurrentPassword: "correct-horse", NewPassword: "short"}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
	})

	t.Run("new password replaces the old one", func(t *testing.T) {
		resp, err := change.CallUnary(ctx, connect.NewRequest(&ChangePasswordRequest{CurrentPassword: "correct-horse", NewPassword: "battery-staple"}))
		require.NoError(t, err)
		assert.True(t, resp.Msg.Success)

		_, err = login.CallUnary(ctx, connect.NewRequest(&LoginRequest{Username: "clerk", Password: "correct-horse"}))
		assert.Equal(t, connect.CodeUnauthenticated, connect.CodeOf(err))
		_, err = login.CallUnary(ctx, connect.NewRequest(&LoginRequest{Username: "clerk", Password: "battery-staple"}))
		assert.NoError(t, err)
	})
}
