package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/rehabplan/internal/cache"
	"github.com/mmynk/rehabplan/internal/metrics"
	"github.com/mmynk/rehabplan/internal/middleware"
	"github.com/mmynk/rehabplan/internal/planner"
	"github.com/mmynk/rehabplan/internal/rpc"
)

const (
	PlanServiceName = "rehabplan.v1.PlanService"

	planCachePrefix = "plan"
)

var PlanServiceCreatePlanProcedure = rpc.Procedure(PlanServiceName, "CreatePlan")

// CreditorInput is one creditor of a plan request. Amount is a pointer so
// a missing amount can be told apart from zero.
type CreditorInput struct {
	Name     string   `json:"name"`
	Amount   *float64 `json:"amount"`
	Priority bool     `json:"priority"`
}

type CreatePlanRequest struct {
	Creditors        []CreditorInput `json:"creditors"`
	MonthlyAvailable float64         `json:"monthlyAvailable"`
	Months           int             `json:"months"`
}

type PlanStatistics struct {
	TotalCreditors   int     `json:"totalCreditors"`
	TotalAmount      float64 `json:"totalAmount"`
	MonthlyAvailable float64 `json:"monthlyAvailable"`
	PlanMonths       int     `json:"planMonths"`
	TotalPayment     int64   `json:"totalPayment"`
	DifferenceAmount int64   `json:"differenceAmount"`
}

type CreatePlanResponse struct {
	Success    bool                 `json:"success"`
	Plan       []planner.MonthlyRow `json:"plan"`
	Statistics PlanStatistics       `json:"statistics"`
}

// PlanService computes repayment plans.
type PlanService struct {
	cache   cache.Cache
	metrics *metrics.Metrics
}

// NewPlanService creates a PlanService. c and m may be nil.
func NewPlanService(c cache.Cache, m *metrics.Metrics) *PlanService {
	return &PlanService{cache: c, metrics: m}
}

// CreatePlan validates the creditor list and computes the monthly
// disbursement schedule. Admin only.
func (s *PlanService) CreatePlan(ctx context.Context, req *connect.Request[CreatePlanRequest]) (*connect.Response[CreatePlanResponse], error) {
	if err := middleware.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	slog.Info("CreatePlan request received",
		"creditors_count", len(req.Msg.Creditors),
		"monthly_available", req.Msg.MonthlyAvailable,
		"months", req.Msg.Months,
	)

	in, err := validatePlan(req.Msg.Creditors, req.Msg.MonthlyAvailable, req.Msg.Months)
	if err != nil {
		return nil, invalid(err)
	}

	resp, err := s.plan(ctx, in)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(resp), nil
}

// plan returns the plan for validated input, from the cache when possible.
func (s *PlanService) plan(ctx context.Context, in planInput) (*CreatePlanResponse, error) {
	key := ""
	if s.cache != nil {
		canonical, err := json.Marshal(in)
		if err != nil {
			return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to encode plan input: %w", err))
		}
		key = cache.Key(planCachePrefix, canonical)
		if resp, ok := s.cached(ctx, key); ok {
			return resp, nil
		}
	}

	rows, stats, err := compute(in)
	if err != nil {
		slog.Error("Plan computation failed", "error", err, "creditors_count", len(in.Creditors))
		return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to compute repayment plan"))
	}
	s.metrics.ObservePlan(len(rows))

	resp := &CreatePlanResponse{
		Success: true,
		Plan:    rows,
		Statistics: PlanStatistics{
			TotalCreditors:   len(in.Creditors),
			TotalAmount:      stats.TotalAmount,
			MonthlyAvailable: in.MonthlyAvailable,
			PlanMonths:       len(rows),
			TotalPayment:     stats.TotalPayment,
			DifferenceAmount: stats.DifferenceAmount,
		},
	}

	slog.Info("Plan computed",
		"plan_months", len(rows),
		"total_amount", stats.TotalAmount,
		"total_payment", stats.TotalPayment,
		"difference_amount", stats.DifferenceAmount,
	)

	if key != "" {
		s.store(ctx, key, resp)
	}
	return resp, nil
}

func (s *PlanService) cached(ctx context.Context, key string) (*CreatePlanResponse, bool) {
	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.metrics.CacheLookup("error")
		slog.Warn("Plan cache lookup failed", "key", key, "error", err)
		return nil, false
	}
	if !ok {
		s.metrics.CacheLookup("miss")
		return nil, false
	}

	var resp CreatePlanResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		s.metrics.CacheLookup("error")
		slog.Warn("Discarding undecodable cached plan", "key", key, "error", err)
		return nil, false
	}
	s.metrics.CacheLookup("hit")
	slog.Debug("Plan served from cache", "key", key)
	return &resp, true
}

func (s *PlanService) store(ctx context.Context, key string, resp *CreatePlanResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Warn("Failed to encode plan for cache", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, data); err != nil {
		slog.Warn("Failed to cache plan", "key", key, "error", err)
	}
}

// compute runs the engine and turns a panic, a non-finite total or a
// payment outside [0, MaxAmount] into an error so no partial plan is
// returned. Out-of-range float to int64 conversions wrap or saturate
// depending on the platform, so both ends are checked.
func compute(in planInput) (rows []planner.MonthlyRow, stats planner.Statistics, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("allocation engine panicked: %v", r)
		}
	}()

	rows, stats = planner.ComputePlan(in.Creditors, in.MonthlyAvailable, in.Months)
	if math.IsNaN(stats.TotalAmount) || math.IsInf(stats.TotalAmount, 0) {
		return nil, planner.Statistics{}, fmt.Errorf("non-finite total amount %v", stats.TotalAmount)
	}
	if stats.TotalPayment < 0 {
		return nil, planner.Statistics{}, fmt.Errorf("negative total payment %d", stats.TotalPayment)
	}
	for _, row := range rows {
		for _, p := range row.Payments {
			if p.Amount < 0 || p.Amount > MaxAmount {
				return nil, planner.Statistics{}, fmt.Errorf("payment %d to %q in round %d out of range", p.Amount, p.Name, row.Round)
			}
		}
	}
	return rows, stats, nil
}

// NewPlanServiceHandler builds an HTTP handler for the PlanService.
func NewPlanServiceHandler(svc *PlanService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{rpc.WithJSON()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(PlanServiceCreatePlanProcedure, connect.NewUnaryHandler(PlanServiceCreatePlanProcedure, svc.CreatePlan, opts...))
	return "/" + PlanServiceName + "/", mux
}
