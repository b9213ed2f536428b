package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Trandsoulz/student-connect-client/internal/model"
)

// RequireRole rejects requests whose CtxRole, set by JWTAuth, is not one of
// roles.  The rejection is 403 with the API envelope.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, ok := c.Get(CtxRole).(string)
			if !ok || !allowed[model.Role(role)] {
				return c.JSON(http.StatusForbidden, echo.Map{"success": false, "message": "Access denied"})
			}
			return next(c)
		}
	}
}
