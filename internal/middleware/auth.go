package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"connectrpc.com/connect"

	"github.com/mmynk/rehabplan/internal/auth"
	"github.com/mmynk/rehabplan/internal/models"
	"github.com/mmynk/rehabplan/internal/storage"
)

// SessionCookie is the cookie carrying the session token for browsers.
const SessionCookie = "auth_token"

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const (
	// ClaimsKey is the context key for storing the authenticated session claims.
	ClaimsKey contextKey = "claims"
	// callerKey holds the *caller slot installed by LoggingInterceptor.
	callerKey contextKey = "caller"
)

// caller lets interceptors further down the chain report who made the call
// back to the logging interceptor.
type caller struct {
	userID string
}

// WithClaims returns a copy of ctx carrying claims.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	if c, ok := ctx.Value(callerKey).(*caller); ok {
		c.userID = claims.UserID
	}
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetClaims extracts the session claims from the context.
// Returns nil if the request is not authenticated.
func GetClaims(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims
}

// GetUserID extracts the user ID from the context.
// Returns empty string if not found.
func GetUserID(ctx context.Context) string {
	if claims := GetClaims(ctx); claims != nil {
		return claims.UserID
	}
	return ""
}

// RequireRole returns a connect error unless the caller is authenticated
// and holds one of roles.
func RequireRole(ctx context.Context, roles ...models.Role) error {
	claims := GetClaims(ctx)
	if claims == nil {
		return connect.NewError(connect.CodeUnauthenticated, auth.ErrMissingToken)
	}
	if !claims.HasRole(roles...) {
		return connect.NewError(connect.CodePermissionDenied,
			fmt.Errorf("role %s may not perform this operation", claims.Role))
	}
	return nil
}

// RequireAdmin is RequireRole for the ADMIN role.
func RequireAdmin(ctx context.Context) error {
	return RequireRole(ctx, models.RoleAdmin)
}

// tokenFromHeader returns the session token from the Authorization header
// or, failing that, from the session cookie.
func tokenFromHeader(header http.Header) (string, error) {
	if authHeader := header.Get("Authorization"); authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return "", auth.ErrInvalidToken
		}
		return parts[1], nil
	}

	cookie, err := (&http.Request{Header: header}).Cookie(SessionCookie)
	if err != nil || cookie.Value == "" {
		return "", auth.ErrMissingToken
	}
	return cookie.Value, nil
}

// RequireAuth returns an interceptor that validates JWT tokens and requires authentication.
// The token comes from the Authorization header or the session cookie; the
// claims are added to the request context.
func RequireAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			tokenString, err := tokenFromHeader(req.Header())
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			claims, err := jwtManager.Validate(tokenString)
			if err != nil {
				return nil, connect.NewError(connect.CodeUnauthenticated, err)
			}

			return next(WithClaims(ctx, claims), req)
		}
	}
}

// OptionalAuth returns an interceptor that validates JWT tokens if present, but allows
// requests without authentication. Useful for endpoints that have different behavior
// for authenticated vs unauthenticated users.
func OptionalAuth(jwtManager *auth.JWTManager) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			if tokenString, err := tokenFromHeader(req.Header()); err == nil {
				// Validate token (ignore errors - optional auth)
				if claims, err := jwtManager.Validate(tokenString); err == nil {
					ctx = WithClaims(ctx, claims)
				}
			}

			return next(ctx, req)
		}
	}
}

// UserLookup loads the stored account behind a session.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// RequireCurrentUser returns an interceptor that reloads the caller's
// account and replaces the role in the claims with the stored one, so a
// demotion or deactivation applies before the token expires. Deleted
// accounts are Unauthenticated, deactivated ones PermissionDenied.
// Install it after RequireAuth.
func RequireCurrentUser(users UserLookup) connect.UnaryInterceptorFunc {
	return currentUser(users, false)
}

// OptionalCurrentUser is RequireCurrentUser for OptionalAuth chains: a
// session whose account is gone or deactivated is treated as anonymous.
func OptionalCurrentUser(users UserLookup) connect.UnaryInterceptorFunc {
	return currentUser(users, true)
}

func currentUser(users UserLookup, optional bool) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			claims := GetClaims(ctx)
			if claims == nil {
				return next(ctx, req)
			}

			user, err := users.GetUserByID(ctx, claims.UserID)
			switch {
			case errors.Is(err, storage.ErrNotFound):
				if optional {
					return next(context.WithValue(ctx, ClaimsKey, nil), req)
				}
				return nil, connect.NewError(connect.CodeUnauthenticated, auth.ErrInvalidToken)
			case err != nil:
				return nil, connect.NewError(connect.CodeInternal, fmt.Errorf("failed to load session user: %w", err))
			case !user.Active:
				if optional {
					return next(context.WithValue(ctx, ClaimsKey, nil), req)
				}
				return nil, connect.NewError(connect.CodePermissionDenied, auth.ErrInactiveAccount)
			}

			fresh := *claims
			fresh.Role = user.Role
			fresh.Name = user.Name
			return next(WithClaims(ctx, &fresh), req)
		}
	}
}
