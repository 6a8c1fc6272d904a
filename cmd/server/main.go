package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/rehabplan/internal/auth"
	"github.com/mmynk/rehabplan/internal/cache"
	"github.com/mmynk/rehabplan/internal/config"
	"github.com/mmynk/rehabplan/internal/metrics"
	"github.com/mmynk/rehabplan/internal/server"
	"github.com/mmynk/rehabplan/internal/storage/sqlite"
	"github.com/mmynk/rehabplan/pkg/logging"
)

func main() {
	logging.Setup()

	if err := run(); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.UsesDevSecret() {
		slog.Warn("JWT_SECRET is not set, using the development secret")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	authenticator := auth.NewPasswordAuthenticator(store)
	if cfg.AdminUsername != "" {
		if err := authenticator.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
			return err
		}
	}

	planCache, err := newPlanCache(ctx, cfg)
	if err != nil {
		return err
	}
	defer planCache.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	handler := server.New(server.Options{
		Store:          store,
		JWT:            auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL),
		Authenticator:  authenticator,
		Cache:          planCache,
		Metrics:        metrics.New(reg),
		Gatherer:       reg,
		AllowedOrigins: cfg.AllowedOrigins,
		SecureCookie:   cfg.CookieSecure,
	})

	// h2c serves HTTP/2 without TLS for Connect clients.
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h2c.NewHandler(handler, &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", cfg.ListenAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newPlanCache(ctx context.Context, cfg *config.Config) (cache.Cache, error) {
	if cfg.RedisAddr == "" {
		slog.Info("Plan cache in memory", "ttl", cfg.PlanCacheTTL)
		return cache.NewMemory(cfg.PlanCacheTTL), nil
	}
	c, err := cache.NewRedis(ctx, cfg.RedisAddr, cfg.PlanCacheTTL)
	if err != nil {
		return nil, err
	}
	slog.Info("Plan cache on redis", "address", cfg.RedisAddr, "ttl", cfg.PlanCacheTTL)
	return c, nil
}
