package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"connectrpc.com/connect"

	"github.com/mmynk/rehabplan/internal/middleware"
	"github.com/mmynk/rehabplan/internal/models"
	"github.com/mmynk/rehabplan/internal/rpc"
	"github.com/mmynk/rehabplan/internal/storage"
)

const (
	InquiryServiceName = "rehabplan.v1.InquiryService"

	maxInquiryTitle   = 200
	maxInquiryContent = 5000
)

var (
	InquiryServiceCreateInquiryProcedure = rpc.Procedure(InquiryServiceName, "CreateInquiry")
	InquiryServiceListInquiriesProcedure = rpc.Procedure(InquiryServiceName, "ListInquiries")
)

type Inquiry struct {
	ID        string `json:"id"`
	UserID    string `json:"userId,omitempty"`
	Username  string `json:"username,omitempty"`
	Title     string `json:"title"`
	Content   string `json:"content"`
	CreatedAt int64  `json:"createdAt"`
}

type CreateInquiryRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

type CreateInquiryResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

type ListInquiriesRequest struct{}

type ListInquiriesResponse struct {
	Inquiries []Inquiry `json:"inquiries"`
}

// InquiryService takes contact form inquiries. Anyone may send one; only
// admins read them.
type InquiryService struct {
	store storage.InquiryStore
}

func NewInquiryService(store storage.InquiryStore) *InquiryService {
	return &InquiryService{store: store}
}

// CreateInquiry stores an inquiry, attributed to the caller when a session
// is present.
func (s *InquiryService) CreateInquiry(ctx context.Context, req *connect.Request[CreateInquiryRequest]) (*connect.Response[CreateInquiryResponse], error) {
	title := strings.TrimSpace(req.Msg.Title)
	content := strings.TrimSpace(req.Msg.Content)
	switch {
	case title == "" || content == "":
		return nil, invalid(errors.New("title and content are required"))
	case utf8.RuneCountInString(title) > maxInquiryTitle:
		return nil, invalid(fmt.Errorf("title: must not exceed %d characters", maxInquiryTitle))
	case utf8.RuneCountInString(content) > maxInquiryContent:
		return nil, invalid(fmt.Errorf("content: must not exceed %d characters", maxInquiryContent))
	}

	inquiry := &models.Inquiry{
		UserID:  middleware.GetUserID(ctx),
		Title:   title,
		Content: content,
	}
	if err := s.store.CreateInquiry(ctx, inquiry); err != nil {
		slog.Error("CreateInquiry failed", "error", err)
		return nil, storeError(err)
	}

	slog.Info("Inquiry received", "inquiry_id", inquiry.ID, "user_id", inquiry.UserID)
	return connect.NewResponse(&CreateInquiryResponse{Success: true, ID: inquiry.ID}), nil
}

// ListInquiries returns every inquiry, newest first. Admin only.
func (s *InquiryService) ListInquiries(ctx context.Context, req *connect.Request[ListInquiriesRequest]) (*connect.Response[ListInquiriesResponse], error) {
	if err := middleware.RequireAdmin(ctx); err != nil {
		return nil, err
	}

	inquiries, err := s.store.ListInquiries(ctx)
	if err != nil {
		slog.Error("ListInquiries failed", "error", err)
		return nil, storeError(err)
	}

	resp := &ListInquiriesResponse{Inquiries: make([]Inquiry, len(inquiries))}
	for i, q := range inquiries {
		resp.Inquiries[i] = Inquiry{
			ID:        q.ID,
			UserID:    q.UserID,
			Username:  q.Username,
			Title:     q.Title,
			Content:   q.Content,
			CreatedAt: q.CreatedAt,
		}
	}
	return connect.NewResponse(resp), nil
}

// NewInquiryServiceHandler builds an HTTP handler for the InquiryService.
// Mount it with optional authentication so anonymous inquiries get through.
func NewInquiryServiceHandler(svc *InquiryService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{rpc.WithJSON()}, opts...)
	mux := http.NewServeMux()
	mux.Handle(InquiryServiceCreateInquiryProcedure, connect.NewUnaryHandler(InquiryServiceCreateInquiryProcedure, svc.CreateInquiry, opts...))
	mux.Handle(InquiryServiceListInquiriesProcedure, connect.NewUnaryHandler(InquiryServiceListInquiriesProcedure, svc.ListInquiries, opts...))
	return "/" + InquiryServiceName + "/", mux
}
