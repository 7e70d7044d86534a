// Package auth gates routes on the session cookie and a closed role set.
package auth

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shahid0mer/shopease/internal/models"
)

// CookieName carries the signed session token.
const CookieName = "token"

const userContextKey = "user"

// RequireRoles decodes the session cookie, loads the referenced user and
// rejects 401 on a missing/invalid token or a deleted user, 403 when the
// user's role is outside the allowed set. On success the user is attached
// to the request context.
func RequireRoles(db *gorm.DB, secret []byte, roles ...models.Role) echo.MiddlewareFunc {
	allowed := make(map[models.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(CookieName)
			if err != nil || cookie.Value == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing auth cookie")
			}

			claims, err := parseToken(cookie.Value, secret)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			sub, ok := claims["sub"].(float64)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
			}

			var user models.User
			if err := db.First(&user, uint(sub)).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return echo.NewHTTPError(http.StatusUnauthorized, "user no longer exists")
				}
				return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
			}

			if len(allowed) > 0 {
				if _, ok := allowed[user.Role]; !ok {
					return echo.NewHTTPError(http.StatusForbidden, "not enough rights")
				}
			}

			c.Set(userContextKey, &user)
			return next(c)
		}
	}
}

// UserFrom returns the user attached by RequireRoles, or nil outside a
// gated route.
func UserFrom(c echo.Context) *models.User {
	if u, ok := c.Get(userContextKey).(*models.User); ok {
		return u
	}
	return nil
}
