package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/ariefcatur/go-suitcase-market.git/internal/authz"
	"github.com/ariefcatur/go-suitcase-market.git/internal/market"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carried by the bearer tokens the auth service mints. This API only
// verifies them.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type callerKey struct{}

func CallerFromContext(ctx context.Context) (authz.Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(authz.Caller)
	return c, ok
}

func withCaller(ctx context.Context, c authz.Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// Authenticate verifies the Authorization bearer token (HS256) and stores the
// caller identity in the request context. Requests without a valid token get
// a 401.
func Authenticate(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			raw, found := strings.CutPrefix(header, "Bearer ")
			if !found || raw == "" {
				failStatus(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			var claims Claims
			token, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
				return secret, nil
			}, jwt.WithValidMethods([]string{"HS256"}))
			if err != nil || !token.Valid {
				failStatus(w, http.StatusUnauthorized, "invalid token")
				return
			}

			role := market.Role(claims.Role)
			if claims.Subject == "" || !role.Valid() {
				failStatus(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			caller := authz.Caller{ID: claims.Subject, Role: role}
			next.ServeHTTP(w, r.WithContext(withCaller(r.Context(), caller)))
		})
	}
}

// mustCaller is for handlers behind Authenticate.
func mustCaller(r *http.Request) authz.Caller {
	c, _ := CallerFromContext(r.Context())
	return c
}
