package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/meridian-dms/meridian-dms/internal/platform/httpx"
	"github.com/meridian-dms/meridian-dms/internal/shared"
)

// Authenticator turns bearer tokens into actors on the request context.
type Authenticator struct {
	service *Service
}

// NewAuthenticator constructs Authenticator.
func NewAuthenticator(service *Service) *Authenticator {
	return &Authenticator{service: service}
}

type claimsContextKey struct{}

// ClaimsFromContext returns the verified claims stored by RequireAuth.
func ClaimsFromContext(ctx context.Context) *Claims {
	claims, _ := ctx.Value(claimsContextKey{}).(*Claims)
	return claims
}

// RequireAuth verifies the bearer token, rejects revoked or inactive accounts,
// and loads the actor into the request context.
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenStr, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenStr == "" {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}

		claims, err := a.service.ParseToken(r.Context(), tokenStr)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		userID, err := claims.SubjectID()
		if err != nil {
			httpx.RespondError(w, err)
			return
		}

		user, err := a.service.CurrentUser(r.Context(), userID)
		if err != nil || !user.IsActive {
			httpx.RespondError(w, shared.ErrUnauthorized)
			return
		}

		actor := &shared.Actor{ID: user.ID, Name: user.Name, Email: user.Email, Role: user.Role}
		ctx := shared.ContextWithActor(r.Context(), actor)
		ctx = context.WithValue(ctx, claimsContextKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole guards routes to actors holding one of the given roles.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, role := range roles {
		allowed[role] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := shared.ActorFromContext(r.Context())
			if actor == nil {
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if _, ok := allowed[actor.Role]; !ok {
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
