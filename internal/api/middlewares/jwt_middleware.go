package middlewares

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"lumen_banksync/pkg/utils"
)

// JWTMiddleware validates the session token issued by the identity provider
// and loads the caller's identity into the request context. The secret comes
// from config, not the environment.
func JWTMiddleware(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ""
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			} else if cookie, err := r.Cookie("Bearer"); err == nil {
				token = strings.TrimPrefix(cookie.Value, "Bearer ")
			}
			if token == "" {
				utils.WriteError(w, "Unauthorized: Missing Bearer token", http.StatusUnauthorized)
				return
			}

			parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (any, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))

			if err != nil {
				if errors.Is(err, jwt.ErrTokenExpired) {
					utils.WriteError(w, "token expired", http.StatusUnauthorized)
					return
				}
				utils.WriteError(w, "invalid login token", http.StatusUnauthorized)
				return
			}

			if !parsedToken.Valid {
				utils.WriteError(w, "invalid login token", http.StatusUnauthorized)
				return
			}

			claims, ok := parsedToken.Claims.(jwt.MapClaims)
			if !ok {
				utils.WriteError(w, "invalid login token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), utils.ContextKey("expiresAt"), claims["exp"])
			ctx = context.WithValue(ctx, utils.ContextKey("username"), claims["user"])
			ctx = context.WithValue(ctx, utils.ContextKey("userId"), claims["uid"])

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
