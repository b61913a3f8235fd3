package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/negotiation-core/negotiation-core/internal/domain/actor"
)

type contextKey string

const actorContextKey contextKey = "actor"

// actorClaims is the expected JWT payload. Identity management is
// external; the token carries the authenticated user and role.
type actorClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// requireAuth authenticates the bearer token and stores the acting
// party in the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenStr := ""
		if strings.HasPrefix(header, "Bearer ") {
			tokenStr = strings.TrimPrefix(header, "Bearer ")
		} else if t := r.URL.Query().Get("token"); t != "" {
			// SSE clients cannot set headers.
			tokenStr = t
		}
		if tokenStr == "" {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing bearer token")
			return
		}

		claims := &actorClaims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return s.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid token")
			return
		}
		if claims.Subject == "" {
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "token has no subject")
			return
		}
		role := actor.Role(claims.Role)
		switch role {
		case actor.RoleCustomer, actor.RoleTransport, actor.RoleManager:
		default:
			respondError(w, http.StatusUnauthorized, "UNAUTHORIZED", "token has no valid role")
			return
		}

		act := actor.Actor{UserID: claims.Subject, Role: role}
		ctx := context.WithValue(r.Context(), actorContextKey, act)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireManager restricts a route to managers.
func (s *Server) requireManager(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !actorFromContext(r.Context()).IsManager() {
			respondError(w, http.StatusForbidden, "FORBIDDEN", "manager role required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func actorFromContext(ctx context.Context) actor.Actor {
	act, _ := ctx.Value(actorContextKey).(actor.Actor)
	return act
}
