// Package server assembles the HTTP handler: every Connect service with its
// interceptors, plus the metrics and health endpoints.
package server

import (
	"log/slog"
	"net/http"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/mmynk/rehabplan/internal/auth"
	"github.com/mmynk/rehabplan/internal/cache"
	"github.com/mmynk/rehabplan/internal/metrics"
	"github.com/mmynk/rehabplan/internal/middleware"
	"github.com/mmynk/rehabplan/internal/service"
	"github.com/mmynk/rehabplan/internal/storage"
)

// Options carries the dependencies of the handler. Cache and Metrics may
// be nil; Gatherer nil disables /metrics.
type Options struct {
	Store          storage.Store
	JWT            *auth.JWTManager
	Authenticator  auth.Authenticator
	Cache          cache.Cache
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	AllowedOrigins []string
	SecureCookie   bool
	Logger         *slog.Logger
}

// New returns the root handler of the server.
func New(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	logging := middleware.LoggingInterceptor(opts.Metrics)
	public := connect.WithInterceptors(logging, middleware.OptionalAuth(opts.JWT), middleware.OptionalCurrentUser(opts.Store))
	protected := connect.WithInterceptors(logging, middleware.RequireAuth(opts.JWT), middleware.RequireCurrentUser(opts.Store))

	plans := service.NewPlanService(opts.Cache, opts.Metrics)

	mux := http.NewServeMux()
	mux.Handle(service.NewAuthServiceHandler(
		service.NewAuthService(opts.Authenticator, opts.JWT, opts.Store, opts.SecureCookie, logger), public))
	mux.Handle(service.NewInquiryServiceHandler(service.NewInquiryService(opts.Store), public))
	mux.Handle(service.NewPlanServiceHandler(plans, protected))
	mux.Handle(service.NewTemplateServiceHandler(service.NewTemplateService(opts.Store, plans), protected))
	mux.Handle(service.NewUserServiceHandler(service.NewUserService(opts.Store), protected))
	mux.Handle(service.NewMedianIncomeServiceHandler(service.NewMedianIncomeService(opts.Store), protected))

	if opts.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n"))
	})

	return cors.New(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "Connect-Protocol-Version", "Connect-Timeout-Ms"},
		ExposedHeaders:   []string{"Connect-Protocol-Version", "Connect-Timeout-Ms"},
		AllowCredentials: true,
	}).Handler(mux)
}
