package middleware

import "github.com/labstack/echo/v4"

// clientID identifies the caller for rate limiting: the token subject on the
// dev API, the browser session on the front end, otherwise "anon".
func clientID(c echo.Context) string {
	if v, ok := c.Get(CtxUserID).(string); ok && v != "" {
		return "user:" + v
	}
	if b, ok := c.Get(browserKey).(*Browser); ok && b.ID != "" {
		return "session:" + b.ID
	}
	return "anon"
}
