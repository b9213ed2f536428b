package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Trandsoulz/student-connect-client/internal/guard"
	"github.com/Trandsoulz/student-connect-client/internal/model"
)

const decisionKey = "guard_decision"

// Guard runs the route guard for the request path.  Redirects use 302 for
// GET and HEAD and 303 otherwise, so a redirected form post turns into a
// GET.  It must run after Sessions.Middleware.
func Guard() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			b := CurrentBrowser(c)
			var (
				authenticated bool
				role          model.Role
			)
			if b != nil {
				authenticated = b.Store.IsAuthenticated()
				role = b.Store.Role()
			}
			d := guard.Decide(c.Request().URL.Path, authenticated, role)
			if d.Kind == guard.Redirect {
				return c.Redirect(redirectStatus(c.Request().Method), d.Target)
			}
			c.Set(decisionKey, d)
			return next(c)
		}
	}
}

func redirectStatus(method string) int {
	if method == http.MethodGet || method == http.MethodHead {
		return http.StatusFound
	}
	return http.StatusSeeOther
}

// CurrentDecision returns the Render decision Guard stored for this request.
func CurrentDecision(c echo.Context) (guard.Decision, bool) {
	d, ok := c.Get(decisionKey).(guard.Decision)
	return d, ok
}
