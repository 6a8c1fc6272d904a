package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/rehabplan/internal/models"
)

func TestTemplateLifecycle(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()
	token := env.tokens[models.RoleAdmin]

	save := newClient[SaveTemplateRequest, SaveTemplateResponse](env, TemplateServiceSaveTemplateProcedure, token)
	list := newClient[ListTemplatesRequest, ListTemplatesResponse](env, TemplateServiceListTemplatesProcedure, token)
	get := newClient[TemplateRequest, GetTemplateResponse](env, TemplateServiceGetTemplateProcedure, token)
	run := newClient[TemplateRequest, CreatePlanResponse](env, TemplateServiceRunTemplateProcedure, token)
	del := newClient[TemplateRequest, DeleteTemplateResponse](env, TemplateServiceDeleteTemplateProcedure, token)

	saved, err := save.CallUnary(ctx, connect.NewRequest(&SaveTemplateRequest{
		Name: " Kim case ",
		Creditors: []CreditorInput{
			{Name: "Tax", Amount: amount(1000), Priority: true},
			{Name: "Bank", Amount: amount(1000)},
		},
		MonthlyAvailable: 100,
		Months:           30,
	}))
	require.NoError(t, err)
	require.NotEmpty(t, saved.Msg.ID)

	listed, err := list.CallUnary(ctx, connect.NewRequest(&ListTemplatesRequest{}))
	require.NoError(t, err)
	require.Len(t, listed.Msg.Templates, 1)
	assert.Equal(t, "Kim case", listed.Msg.Templates[0].Name)

	got, err := get.CallUnary(ctx, connect.NewRequest(&TemplateRequest{ID: saved.Msg.ID}))
	require.NoError(t, err)
	require.Len(t, got.Msg.Template.Creditors, 2)
	assert.Equal(t, "Tax", got.Msg.Template.Creditors[0].Name)
	assert.True(t, got.Msg.Template.Creditors[0].Priority)
	assert.Equal(t, 30, got.Msg.Template.Months)

	plan, err := run.CallUnary(ctx, connect.NewRequest(&TemplateRequest{ID: saved.Msg.ID}))
	require.NoError(t, err)
	assert.Len(t, plan.Msg.Plan, 20)
	assert.Equal(t, int64(2000), plan.Msg.Statistics.TotalPayment)

	_, err = del.CallUnary(ctx, connect.NewRequest(&TemplateRequest{ID: saved.Msg.ID}))
	require.NoError(t, err)

	_, err = get.CallUnary(ctx, connect.NewRequest(&TemplateRequest{ID: saved.Msg.ID}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))
}

func TestTemplates_PrivateToOwner(t *testing.T) {
	env := setupTestServer(t)
	ctx := context.Background()

	saved, err := newClient[SaveTemplateRequest, SaveTemplateResponse](env, TemplateServiceSaveTemplateProcedure, env.tokens[models.RoleUser]).
		CallUnary(ctx, connect.NewRequest(&SaveTemplateRequest{
			Name:             "mine",
			Creditors:        []CreditorInput{{Name: "Bank", Amount: amount(500)}},
			MonthlyAvailable: 50,
			Months:           10,
		}))
	require.NoError(t, err)

	_, err = newClient[TemplateRequest, GetTemplateResponse](env, TemplateServiceGetTemplateProcedure, env.tokens[models.RoleOperator]).
		CallUnary(ctx, connect.NewRequest(&TemplateRequest{ID: saved.Msg.ID}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	_, err = newClient[TemplateRequest, DeleteTemplateResponse](env, TemplateServiceDeleteTemplateProcedure, env.tokens[models.RoleOperator]).
		CallUnary(ctx, connect.NewRequest(&TemplateRequest{ID: saved.Msg.ID}))
	assert.Equal(t, connect.CodeNotFound, connect.CodeOf(err))

	// The owner is not an admin, so running the template is refused.
	_, err = newClient[TemplateRequest, CreatePlanResponse](env, TemplateServiceRunTemplateProcedure, env.tokens[models.RoleUser]).
		CallUnary(ctx, connect.NewRequest(&TemplateRequest{ID: saved.Msg.ID}))
	assert.Equal(t, connect.CodePermissionDenied, connect.CodeOf(err))
}

func TestSaveTemplate_Validation(t *testing.T) {
	env := setupTestServer(t)
	save := newClient[SaveTemplateRequest, SaveTemplateResponse](env, TemplateServiceSaveTemplateProcedure, env.tokens[models.RoleUser])

	_, err := save.CallUnary(context.Background(), connect.NewRequest(&SaveTemplateRequest{
		Creditors:        []CreditorInput{{Name: "Bank", Amount: amount(500)}},
		MonthlyAvailable: 50,
		Months:           10,
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))

	_, err = save.CallUnary(context.Background(), connect.NewRequest(&SaveTemplateRequest{
		Name:             "no amount",
		Creditors:        []CreditorInput{{Name: "Bank"}},
		MonthlyAvailable: 50,
		Months:           10,
	}))
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}
