// Package auth guards the platform filter endpoints behind the
// platform admin token. Authentication mechanics beyond this bearer
// check are owned by an upstream gateway.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/conveyor-cloud/conveyor/pkg/log"
	"github.com/labstack/echo/v4"
)

// Admin returns middleware that rejects requests lacking the
// configured admin bearer token, before any state change. An empty
// configured token disables the check for local development, loudly.
func Admin(token string) echo.MiddlewareFunc {
	if token == "" {
		log.Warn("admin token not configured, visibility mutations are unauthenticated")
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return next(c)
			}

			presented := bearer(c.Request().Header.Get(echo.HeaderAuthorization))
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				log.Warn("unauthorized visibility mutation rejected",
					"platform_id", c.Param("platform_id"),
					"path", c.Path(),
				)
				return echo.NewHTTPError(http.StatusForbidden, "platform admin authorization required")
			}

			return next(c)
		}
	}
}

func bearer(header string) string {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
