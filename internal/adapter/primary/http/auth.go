package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stayflow/booking-payments/internal/core"
)

const principalKey = "principal"

// RequireAuth extracts the authenticated principal from a bearer JWT
// (HS256) and stores it in the request context. Handlers pass the
// principal explicitly into every lifecycle operation; nothing below the
// adapter reads ambient request state.
func RequireAuth(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if !strings.HasPrefix(header, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
			}
			tokenString := strings.TrimPrefix(header, "Bearer ")

			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return secret, nil
			})
			if err != nil || !token.Valid {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
			}

			principal, err := principalFromClaims(claims)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token claims"})
			}

			c.Set(principalKey, principal)
			return next(c)
		}
	}
}

func principalFromClaims(claims jwt.MapClaims) (core.Principal, error) {
	rawID, ok := claims["user_id"].(string)
	if !ok {
		return core.Principal{}, fmt.Errorf("user_id claim missing")
	}
	userID, err := uuid.Parse(rawID)
	if err != nil {
		return core.Principal{}, fmt.Errorf("user_id claim invalid: %w", err)
	}
	principal := core.Principal{UserID: userID}
	if email, ok := claims["email"].(string); ok {
		principal.Email = email
	}
	if staff, ok := claims["is_staff"].(bool); ok {
		principal.IsStaff = staff
	}
	return principal, nil
}

// principalFrom returns the principal the auth middleware stored
func principalFrom(c echo.Context) core.Principal {
	if p, ok := c.Get(principalKey).(core.Principal); ok {
		return p
	}
	return core.Principal{}
}
