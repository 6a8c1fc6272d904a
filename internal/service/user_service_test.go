package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/rehabplan/internal/models"
)

func TestUserAdministration(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	target := models.NewUser("applicant", "New Applicant", "unused", models.RolePending)
	require.NoError(t, env.store.CreateUser(ctx, target))

	t.Run("operators list users", func(t *testing.T) {
		resp, err := newClient[ListUsersRequest, ListUsersResponse](env, UserServiceListUsersProcedure, env.tokens[models.RoleOperator]).
			CallUnary(ctx, connect.NewRequest(&ListUsersRequest{}))
		require.NoError(t, err)
		assert.Len(t, resp.Msg.Users, 5)
	})

	t.Run("plain users cannot list", func(t *testing.T) {
		_, err := newClient[ListUsersRequest, ListUsersResponse](env, UserServiceListUsersProcedure, env.tokens[models.RoleUser]).
			CallUnary(ctx, connect.NewRequest(&ListUsersRequest{}))
		assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
	})

	t.Run("only admins change roles", func(t *testing.T) {
		req := &UpdateUserRoleRequest{ID: target.ID, Role: models.RoleUser}

		_, err := newClient[UpdateUserRoleRequest, UpdateUserResponse](env, UserServiceUpdateUserRoleProcedure, env.tokens[models.RoleOperator]).
			CallUnary(ctx, connect.NewRequest(req))
		assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))

		_, err = newClient[UpdateUserRoleRequest, UpdateUserResponse](env, UserServiceUpdateUserRoleProcedure, env.tokens[models.RoleAdmin]).
			CallUnary(ctx, connect.NewRequest(req))
		require.NoError(t, err)

		got, err := env.store.GetUserByID(ctx, target.ID)
		require.NoError(t, err)
		assert.Equal(t, models.RoleUser, got.Role)
	})

	t.Run("role updates are validated", func(t *testing.T) {
		client := newClient[UpdateUserRoleRequest, UpdateUserResponse](env, UserServiceUpdateUserRoleProcedure, env.tokens[models.RoleAdmin])

		_, err := client.CallUnary(ctx, connect.NewRequest(&UpdateUserRoleRequest{ID: target.ID, Role: "SUPERUSER"}))
		assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

		_, err = client.CallUnary(ctx, connect.NewRequest(&UpdateUserRoleRequest{ID: "missing", Role: models.RoleUser}))
		assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

		_, err = client.CallUnary(ctx, connect.NewRequest(&UpdateUserRoleRequest{ID: env.admin.ID, Role: models.RoleUser}))
		assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
	})

	t.Run("operators deactivate accounts", func(t *testing.T) {
		_, err := newClient[SetUserActiveRequest, UpdateUserResponse](env, UserServiceSetUserActiveProcedure, env.tokens[models.RoleOperator]).
			CallUnary(ctx, connect.NewRequest(&SetUserActiveRequest{ID: target.ID, Active: false}))
		require.NoError(t, err)

		got, err := env.store.GetUserByID(ctx, target.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
	})

	t.Run("admins cannot deactivate themselves", func(t *testing.T) {
		_, err := newClient[SetUserActiveRequest, UpdateUserResponse](env, UserServiceSetUserActiveProcedure, env.tokens[models.RoleAdmin]).
			CallUnary(ctx, connect.NewRequest(&SetUserActiveRequest{ID: env.admin.ID, Active: false}))
		assert.Equal(t, connect.CodeFailedPrecondition, connect.CodeOf(err))
	})
}
