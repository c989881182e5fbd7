package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type operatorContextKey struct{}

// AuthMiddleware requires an HS256 bearer token on operator routes. An empty
// secret disables the check, which is only accepted outside production.
func AuthMiddleware(secret []byte, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if len(secret) == 0 || isPublicEndpoint(r) {
			next.ServeHTTP(w, r)
			return
		}
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}
		operator, err := verifyToken(secret, token)
		if err != nil {
			writeError(w, requestIDFromRequest(r), http.StatusUnauthorized, "unauthorized", "invalid token")
			return
		}
		ctx := context.WithValue(r.Context(), operatorContextKey{}, operator)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// verifyToken returns the token subject, which identifies the operator.
func verifyToken(secret []byte, raw string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid {
		return "", errors.New("token not valid")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

func operatorFromContext(ctx context.Context) string {
	operator, _ := ctx.Value(operatorContextKey{}).(string)
	return operator
}

func bearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.Fields(header)
	if len(parts) != 2 {
		return ""
	}
	if strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return parts[1]
}

// isPublicEndpoint lists what kiosks and display boards reach without a token.
func isPublicEndpoint(r *http.Request) bool {
	if strings.HasPrefix(r.URL.Path, "/realtime/") {
		return true
	}
	switch r.URL.Path {
	case "/healthz", "/metrics", "/display":
		return true
	case "/queues":
		return r.Method == http.MethodPost
	default:
		return r.Method == http.MethodOptions
	}
}
