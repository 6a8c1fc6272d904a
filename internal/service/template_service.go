package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/rehabplan/internal/auth"
	"github.com/mmynk/rehabplan/internal/middleware"
	"github.com/mmynk/rehabplan/internal/models"
	"github.com/mmynk/rehabplan/internal/planner"
	"github.com/mmynk/rehabplan/internal/rpc"
	"github.com/mmynk/rehabplan/internal/storage"
)

const TemplateServiceName = "rehabplan.v1.TemplateService"

var (
	TemplateServiceListTemplatesProcedure  = rpc.Procedure(TemplateServiceName, "ListTemplates")
	TemplateServiceSaveTemplateProcedure   = rpc.Procedure(TemplateServiceName, "SaveTemplate")
	TemplateServiceGetTemplateProcedure    = rpc.Procedure(TemplateServiceName, "GetTemplate")
	TemplateServiceDeleteTemplateProcedure = rpc.Procedure(TemplateServiceName, "DeleteTemplate")
	TemplateServiceRunTemplateProcedure    = rpc.Procedure(TemplateServiceName, "RunTemplate")
)

// Template is the wire form of a saved plan template.
type Template struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	Creditors        []planner.Creditor `json:"creditors"`
	MonthlyAvailable float64            `json:"monthlyAvailable"`
	Months           int                `json:"months"`
	CreatedAt        int64              `json:"createdAt"`
}

type ListTemplatesRequest struct{}

type ListTemplatesResponse struct {
	Templates []Template `json:"templates"`
}

type SaveTemplateRequest struct {
	Name             string          `json:"name"`
	Creditors        []CreditorInput `json:"creditors"`
	MonthlyAvailable float64         `json:"monthlyAvailable"`
	Months           int             `json:"months"`
}

type SaveTemplateResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type TemplateRequest struct {
	ID string `json:"id"`
}

type GetTemplateResponse struct {
	Template Template `json:"template"`
}

type DeleteTemplateResponse struct {
	Success bool `json:"success"`
}

// TemplateService manages saved plan inputs. Every template belongs to the
// user who saved it and is invisible to everyone else.
type TemplateService struct {
	store storage.TemplateStore
	plans *PlanService
}

// NewTemplateService creates a TemplateService. plans runs stored templates.
func NewTemplateService(store storage.TemplateStore, plans *PlanService) *TemplateService {
	return &TemplateService{store: store, plans: plans}
}

func templateFromModel(t *models.PlanTemplate) Template {
	return Template{
		ID:               t.ID,
		Name:             t.Name,
		Creditors:        t.Creditors,
		MonthlyAvailable: t.MonthlyAvailable,
		Months:           t.Months,
		CreatedAt:        t.CreatedAt,
	}
}

func ownerOf(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	return userID, nil
}

// ListTemplates returns the caller's templates, newest first.
func (s *TemplateService) ListTemplates(ctx context.Context, req *connect.Request[ListTemplatesRequest]) (*connect.Response[ListTemplatesResponse], error) {
	ownerID, err := ownerOf(ctx)
	if err != nil {
		return nil, err
	}

	templates, err := s.store.ListTemplates(ctx, ownerID)
	if err != nil {
		slog.Error("ListTemplates failed", "user_id", ownerID, "error", err)
		return nil, storeError(err)
	}

	resp := &ListTemplatesResponse{Templates: make([]Template, len(templates))}
	for i, t := range templates {
		resp.Templates[i] = templateFromModel(t)
	}
	return connect.NewResponse(resp), nil
}

// SaveTemplate stores plan inputs under a name for later reuse.
func (s *TemplateService) SaveTemplate(ctx context.Context, req *connect.Request[SaveTemplateRequest]) (*connect.Response[SaveTemplateResponse], error) {
	ownerID, err := ownerOf(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Msg.Name)
	if name == "" {
		return nil, invalid(errors.New("name: is required"))
	}
	in, err := validatePlan(req.Msg.Creditors, req.Msg.MonthlyAvailable, req.Msg.Months)
	if err != nil {
		return nil, invalid(err)
	}

	tmpl := &models.PlanTemplate{
		OwnerID:          ownerID,
		Name:             name,
		Creditors:        in.Creditors,
		MonthlyAvailable: in.MonthlyAvailable,
		Months:           in.Months,
	}
	if err := s.store.CreateTemplate(ctx, tmpl); err != nil {
		slog.Error("SaveTemplate failed", "user_id", ownerID, "error", err)
		return nil, storeError(err)
	}

	slog.Info("Template saved", "template_id", tmpl.ID, "user_id", ownerID, "name", name)
	return connect.NewResponse(&SaveTemplateResponse{Success: true, ID: tmpl.ID}), nil
}

// GetTemplate returns one of the caller's templates.
func (s *TemplateService) GetTemplate(ctx context.Context, req *connect.Request[TemplateRequest]) (*connect.Response[GetTemplateResponse], error) {
	tmpl, err := s.load(ctx, req.Msg.ID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&GetTemplateResponse{Template: templateFromModel(tmpl)}), nil
}

// DeleteTemplate removes one of the caller's templates.
func (s *TemplateService) DeleteTemplate(ctx context.Context, req *connect.Request[TemplateRequest]) (*connect.Response[DeleteTemplateResponse], error) {
	ownerID, err := ownerOf(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.ID == "" {
		return nil, invalid(errors.New("id: is required"))
	}

	if err := s.store.DeleteTemplate(ctx, req.Msg.ID, ownerID); err != nil {
		slog.Warn("DeleteTemplate failed", "template_id", req.Msg.ID, "error", err)
		return nil, storeError(err)
	}

	slog.Info("Template deleted", "template_id", req.Msg.ID, "user_id", ownerID)
	return connect.NewResponse(&DeleteTemplateResponse{Success: true}), nil
}

// RunTemplate computes the repayment plan of a stored template. Admin only,
// like CreatePlan.
func (s *TemplateService) RunTemplate(ctx context.Context, req *connect.Request[TemplateRequest]) (*connect.Response[CreatePlanResponse], error) {
	if err := middleware.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	tmpl, err := s.load(ctx, req.Msg.ID)
	if err != nil {
		return nil, err
	}

	resp, err := s.plans.plan(ctx, planInput{
		Creditors:        tmpl.Creditors,
		MonthlyAvailable: tmpl.MonthlyAvailable,
		Months:           tmpl.Months,
	})
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

func (s *TemplateService) load(ctx context.Context, id string) (*models.PlanTemplate, error) {
	ownerID, err := ownerOf(ctx)
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, invalid(errors.New("id: is required"))
	}

	tmpl, err := s.store.GetTemplate(ctx, id, ownerID)
	if err != nil {
		slog.Warn("GetTemplate failed", "template_id", id, "error", err)
		return nil, storeError(err)
	}
	return tmpl, nil
}

// NewTemplateServiceHandler builds an HTTP handler for the TemplateService.
func NewTemplateServiceHandler(svc *TemplateService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{rpc.WithJSON()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(TemplateServiceListTemplatesProcedure, connect.NewUnaryHandler(TemplateServiceListTemplatesProcedure, svc.ListTemplates, opts...))
	mux.Handle(TemplateServiceSaveTemplateProcedure, connect.NewUnaryHandler(TemplateServiceSaveTemplateProcedure, svc.SaveTemplate, opts...))
	mux.Handle(TemplateServiceGetTemplateProcedure, connect.NewUnaryHandler(TemplateServiceGetTemplateProcedure, svc.GetTemplate, opts...))
	mux.Handle(TemplateServiceDeleteTemplateProcedure, connect.NewUnaryHandler(TemplateServiceDeleteTemplateProcedure, svc.DeleteTemplate, opts...))
	mux.Handle(TemplateServiceRunTemplateProcedure, connect.NewUnaryHandler(TemplateServiceRunTemplateProcedure, svc.RunTemplate, opts...))
	return "/" + TemplateServiceName + "/", mux
}
