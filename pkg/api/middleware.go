package routing

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/golang-jwt/jwt/v5"
)

// authMiddleware guards operations declaring the bearerAuth scheme. An empty
// secret disables the check.
func authMiddleware(api huma.API, secret string) func(ctx huma.Context, next func(huma.Context)) {
	return func(ctx huma.Context, next func(huma.Context)) {
		isAuthorizationRequired := false
		for _, opScheme := range ctx.Operation().Security {
			if _, ok := opScheme["bearerAuth"]; ok {
				isAuthorizationRequired = true
				break
			}
		}

		if !isAuthorizationRequired || secret == "" {
			next(ctx)
			return
		}

		tokenString := strings.TrimPrefix(ctx.Header("Authorization"), "Bearer ")

		if tokenString == "" {
			tokenString = ctx.Query("jwt")
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(secret), nil
		})

		if err != nil || !token.Valid {
			huma.WriteErr(api, ctx, http.StatusUnauthorized, "invalid token", err)
			return
		}

		next(ctx)
	}
}
