package middleware

import (
	"context"
	"net/http"
	"strings"

	"shopfront/pkg/logging"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/google/uuid"
)

type OAuthConfig struct {
	IssuerURL string
	Audience  string
}

type OAuthMiddleware struct {
	verifier *oidc.IDTokenVerifier
	audience string
	logger   *logging.Logger
}

type AuthClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Scope string `json:"scope"`
}

type contextKey string

const (
	subKey     contextKey = "sub"
	emailKey   contextKey = "email"
	scopeKey   contextKey = "scope"
	ownerIDKey contextKey = "owner_id"
)

func NewOAuthMiddleware(config OAuthConfig, logger *logging.Logger) (*OAuthMiddleware, error) {
	provider, err := oidc.NewProvider(context.Background(), config.IssuerURL)
	if err != nil {
		return nil, err
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID: config.Audience,
	})

	return &OAuthMiddleware{
		verifier: verifier,
		audience: config.Audience,
		logger:   logger,
	}, nil
}

// Authenticate verifies the bearer token and places the caller's identity in
// the request context. The subject claim doubles as the owner id for
// management operations.
func (m *OAuthMiddleware) Authenticate(requiredScopes ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			token, err := m.verifier.Verify(r.Context(), tokenString)
			if err != nil {
				m.logger.LogAuthEvent(r.Context(), "token_rejected", "", false)
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			var claims AuthClaims
			if err := token.Claims(&claims); err != nil {
				http.Error(w, "failed to extract claims", http.StatusUnauthorized)
				return
			}

			if len(requiredScopes) > 0 && !hasScopes(claims.Scope, requiredScopes) {
				http.Error(w, "insufficient scope", http.StatusForbidden)
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, subKey, claims.Sub)
			ctx = context.WithValue(ctx, emailKey, claims.Email)
			ctx = context.WithValue(ctx, scopeKey, claims.Scope)

			if subUUID, err := uuid.Parse(claims.Sub); err == nil {
				ctx = context.WithValue(ctx, ownerIDKey, subUUID)
			}

			m.logger.LogAuthEvent(ctx, "token_accepted", claims.Sub, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func hasScopes(tokenScopes string, requiredScopes []string) bool {
	scopeMap := make(map[string]bool)
	for _, s := range strings.Fields(tokenScopes) {
		scopeMap[s] = true
	}
	for _, required := range requiredScopes {
		if !scopeMap[required] {
			return false
		}
	}
	return true
}

// Helper functions to extract values from context

func GetSubFromContext(ctx context.Context) string {
	if sub, ok := ctx.Value(subKey).(string); ok {
		return sub
	}
	return ""
}

func GetScopeFromContext(ctx context.Context) string {
	if scope, ok := ctx.Value(scopeKey).(string); ok {
		return scope
	}
	return ""
}

func GetOwnerIDFromContext(ctx context.Context) uuid.UUID {
	if ownerID, ok := ctx.Value(ownerIDKey).(uuid.UUID); ok {
		return ownerID
	}
	return uuid.Nil
}

// WithOwnerID is used by tests and the unauthenticated development mode to
// inject an owner identity directly.
func WithOwnerID(ctx context.Context, ownerID uuid.UUID) context.Context {
	return context.WithValue(ctx, ownerIDKey, ownerID)
}
