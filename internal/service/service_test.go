package service

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/rehabplan/internal/auth"
	"github.com/mmynk/rehabplan/internal/cache"
	"github.com/mmynk/rehabplan/internal/middleware"
	"github.com/mmynk/rehabplan/internal/models"
	"github.com/mmynk/rehabplan/internal/rpc"
	"github.com/mmynk/rehabplan/internal/storage/sqlite"
)

// testEnv is a running server with every service mounted the way the
// binary mounts them, plus one session token per role.
type testEnv struct {
	url    string
	store  *sqlite.SQLiteStore
	jwt    *auth.JWTManager
	cache  *countingCache
	admin  *models.User
	tokens map[models.Role]string
}

// countingCache records hits so tests can tell a cached plan from a fresh one.
type countingCache struct {
	cache.Cache
	hits atomic.Int64
}

func (c *countingCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, ok, err := c.Cache.Get(ctx, key)
	if ok {
		c.hits.Add(1)
	}
	return data, ok, err
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	env := &testEnv{
		store:  store,
		jwt:    auth.NewJWTManager("test-secret", time.Hour),
		cache:  &countingCache{Cache: cache.NewMemory(time.Minute)},
		tokens: make(map[models.Role]string),
	}

	for _, role := range []models.Role{models.RoleAdmin, models.RoleOperator, models.RoleUser, models.RolePending} {
		user := models.NewUser(string(role)+"-user", string(role), "unused", role)
		require.NoError(t, store.CreateUser(context.Background(), user))
		token, err := env.jwt.Generate(user)
		require.NoError(t, err)
		env.tokens[role] = token
		if role == models.RoleAdmin {
			env.admin = user
		}
	}

	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)
	plans := NewPlanService(env.cache, nil)
	protected := connect.WithInterceptors(middleware.RequireAuth(env.jwt), middleware.RequireCurrentUser(store))
	public := connect.WithInterceptors(middleware.OptionalAuth(env.jwt), middleware.OptionalCurrentUser(store))

	mux := http.NewServeMux()
	mux.Handle(NewAuthServiceHandler(NewAuthService(authenticator, env.jwt, store, false, slog.Default()), public))
	mux.Handle(NewInquiryServiceHandler(NewInquiryService(store), public))
	mux.Handle(NewPlanServiceHandler(plans, protected))
	mux.Handle(NewTemplateServiceHandler(NewTemplateService(store, plans), protected))
	mux.Handle(NewUserServiceHandler(NewUserService(store), protected))
	mux.Handle(NewMedianIncomeServiceHandler(NewMedianIncomeService(store), protected))

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	env.url = server.URL
	return env
}

// bearer attaches token to every outgoing request. An empty token sends none.
func bearer(token string) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if token != "" {
				req.Header().Set("Authorization", "Bearer "+token)
			}
			return next(ctx, req)
		}
	}
}

func newClient[Req, Res any](env *testEnv, procedure, token string) *connect.Client[Req, Res] {
	return connect.NewClient[Req, Res](http.DefaultClient, env.url+procedure,
		rpc.WithJSON(), connect.WithInterceptors(bearer(token)))
}

func amount(v float64) *float64 { return &v }
