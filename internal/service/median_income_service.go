package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/rehabplan/internal/middleware"
	"github.com/mmynk/rehabplan/internal/models"
	"github.com/mmynk/rehabplan/internal/rpc"
	"github.com/mmynk/rehabplan/internal/storage"
)

const MedianIncomeServiceName = "rehabplan.v1.MedianIncomeService"

var (
	MedianIncomeServiceListProcedure   = rpc.Procedure(MedianIncomeServiceName, "ListMedianIncome")
	MedianIncomeServiceLookupProcedure = rpc.Procedure(MedianIncomeServiceName, "LookupMedianIncome")
	MedianIncomeServiceUpsertProcedure = rpc.Procedure(MedianIncomeServiceName, "UpsertMedianIncome")
	MedianIncomeServiceDeleteProcedure = rpc.Procedure(MedianIncomeServiceName, "DeleteMedianIncome")
)

type MedianIncome struct {
	ID            int64   `json:"id"`
	Year          int     `json:"year"`
	HouseholdSize int     `json:"householdSize"`
	Amount        float64 `json:"amount"`
}

type ListMedianIncomeRequest struct{}

type ListMedianIncomeResponse struct {
	Entries []MedianIncome `json:"entries"`
}

type LookupMedianIncomeRequest struct {
	Year          int `json:"year"`
	HouseholdSize int `json:"householdSize"`
}

type LookupMedianIncomeResponse struct {
	Amount float64 `json:"amount"`
}

type MedianIncomeItem struct {
	HouseholdSize int     `json:"householdSize"`
	Amount        float64 `json:"amount"`
}

type UpsertMedianIncomeRequest struct {
	Year  int                `json:"year"`
	Items []MedianIncomeItem `json:"items"`
}

type UpsertMedianIncomeResponse struct {
	Success bool `json:"success"`
	Count   int  `json:"count"`
}

type DeleteMedianIncomeRequest struct {
	ID int64 `json:"id"`
}

type DeleteMedianIncomeResponse struct {
	Success bool `json:"success"`
}

// MedianIncomeService maintains the standard median income table used to
// derive living costs.
type MedianIncomeService struct {
	store storage.MedianIncomeStore
}

func NewMedianIncomeService(store storage.MedianIncomeStore) *MedianIncomeService {
	return &MedianIncomeService{store: store}
}

// ListMedianIncome returns the whole table, latest year first.
func (s *MedianIncomeService) ListMedianIncome(ctx context.Context, req *connect.Request[ListMedianIncomeRequest]) (*connect.Response[ListMedianIncomeResponse], error) {
	entries, err := s.store.ListMedianIncome(ctx)
	if err != nil {
		slog.Error("ListMedianIncome failed", "error", err)
		return nil, storeError(err)
	}

	resp := &ListMedianIncomeResponse{Entries: make([]MedianIncome, len(entries))}
	for i, e := range entries {
		resp.Entries[i] = MedianIncome{ID: e.ID, Year: e.Year, HouseholdSize: e.HouseholdSize, Amount: e.Amount}
	}
	return connect.NewResponse(resp), nil
}

// LookupMedianIncome returns the amount for a year and household size, or
// 0 when the table has no such entry.
func (s *MedianIncomeService) LookupMedianIncome(ctx context.Context, req *connect.Request[LookupMedianIncomeRequest]) (*connect.Response[LookupMedianIncomeResponse], error) {
	if req.Msg.Year <= 0 || req.Msg.HouseholdSize <= 0 {
		return nil, invalid(errors.New("year and householdSize are required"))
	}

	entry, err := s.store.GetMedianIncome(ctx, req.Msg.Year, req.Msg.HouseholdSize)
	if errors.Is(err, storage.ErrNotFound) {
		return connect.NewResponse(&LookupMedianIncomeResponse{}), nil
	}
	if err != nil {
		slog.Error("LookupMedianIncome failed", "year", req.Msg.Year, "household_size", req.Msg.HouseholdSize, "error", err)
		return nil, storeError(err)
	}
	return connect.NewResponse(&LookupMedianIncomeResponse{Amount: entry.Amount}), nil
}

// UpsertMedianIncome writes all household sizes of one year. Admin only.
func (s *MedianIncomeService) UpsertMedianIncome(ctx context.Context, req *connect.Request[UpsertMedianIncomeRequest]) (*connect.Response[UpsertMedianIncomeResponse], error) {
	if err := middleware.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if req.Msg.Year <= 0 {
		return nil, invalid(errors.New("year: is required"))
	}
	if len(req.Msg.Items) == 0 {
		return nil, invalid(errors.New("items: at least one entry is required"))
	}

	items := make([]models.MedianIncomeItem, len(req.Msg.Items))
	for i, item := range req.Msg.Items {
		if item.HouseholdSize <= 0 {
			return nil, invalid(fmt.Errorf("items[%d].householdSize: must be greater than 0", i))
		}
		if !(item.Amount > 0) || math.IsInf(item.Amount, 0) {
			return nil, invalid(fmt.Errorf("items[%d].amount: must be greater than 0", i))
		}
		items[i] = models.MedianIncomeItem{HouseholdSize: item.HouseholdSize, Amount: item.Amount}
	}

	if err := s.store.UpsertMedianIncome(ctx, req.Msg.Year, items); err != nil {
		slog.Error("UpsertMedianIncome failed", "year", req.Msg.Year, "error", err)
		return nil, storeError(err)
	}

	slog.Info("Median income updated", "year", req.Msg.Year, "count", len(items))
	return connect.NewResponse(&UpsertMedianIncomeResponse{Success: true, Count: len(items)}), nil
}

// DeleteMedianIncome removes one entry. Admin only.
func (s *MedianIncomeService) DeleteMedianIncome(ctx context.Context, req *connect.Request[DeleteMedianIncomeRequest]) (*connect.Response[DeleteMedianIncomeResponse], error) {
	if err := middleware.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	if req.Msg.ID <= 0 {
		return nil, invalid(errors.New("id: is required"))
	}

	if err := s.store.DeleteMedianIncome(ctx, req.Msg.ID); err != nil {
		slog.Warn("DeleteMedianIncome failed", "id", req.Msg.ID, "error", err)
		return nil, storeError(err)
	}

	slog.Info("Median income entry deleted", "id", req.Msg.ID)
	return connect.NewResponse(&DeleteMedianIncomeResponse{Success: true}), nil
}

// NewMedianIncomeServiceHandler builds an HTTP handler for the MedianIncomeService.
func NewMedianIncomeServiceHandler(svc *MedianIncomeService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{rpc.WithJSON()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(MedianIncomeServiceListProcedure, connect.NewUnaryHandler(MedianIncomeServiceListProcedure, svc.ListMedianIncome, opts...))
	mux.Handle(MedianIncomeServiceLookupProcedure, connect.NewUnaryHandler(MedianIncomeServiceLookupProcedure, svc.LookupMedianIncome, opts...))
	mux.Handle(MedianIncomeServiceUpsertProcedure, connect.NewUnaryHandler(MedianIncomeServiceUpsertProcedure, svc.UpsertMedianIncome, opts...))
	mux.Handle(MedianIncomeServiceDeleteProcedure, connect.NewUnaryHandler(MedianIncomeServiceDeleteProcedure, svc.DeleteMedianIncome, opts...))
	return "/" + MedianIncomeServiceName + "/", mux
}
