package echoapi

import (
	"github.com/labstack/echo/v4"
)

// roleMiddleware lets admins through, and staff holding a role starting with one of prefixes.
func roleMiddleware(prefixes ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if _, err := getContextClaims(ctx); err != nil {
				return err
			}
			if contextHasRolePrefix(ctx, prefixes) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
