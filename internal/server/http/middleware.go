package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/dmitrijs2005/authgate/internal/common"
	"github.com/dmitrijs2005/authgate/internal/server/auth"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// withAccessToken verifies the bearer token on the request and asserts its
// type claim is "access"; a syntactically valid refresh token is rejected
// here. The parsed claims are stored on the request context.
func (s *Server) withAccessToken(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			s.writeError(r.Context(), w, common.ErrInvalidToken)
			return
		}

		claims, err := auth.ParseToken(token, s.jwtSecret)
		if err != nil || claims.Type != auth.TokenTypeAccess {
			s.writeError(r.Context(), w, common.ErrInvalidToken)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next(w, r.WithContext(ctx))
	})
}

// claimsFromContext returns the access-token claims stored by withAccessToken.
func claimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*auth.Claims)
	return claims, ok
}
