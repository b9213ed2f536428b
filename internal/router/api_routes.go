package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Trandsoulz/student-connect-client/internal/config"
	"github.com/Trandsoulz/student-connect-client/internal/handler"
	"github.com/Trandsoulz/student-connect-client/internal/middleware"
	"github.com/Trandsoulz/student-connect-client/internal/model"
)

// RegisterAuth registers /api/auth.  Signup and signin are open; signin is
// rate limited when rdb is available.  /me requires a valid token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string, rl config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) {
	g := e.Group("/api/auth")
	g.POST("/signup", a.Signup)
	g.POST("/signin", a.Signin, middleware.NewTokenBucket(rl, rdb, nil, log))
	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterFeedback registers /api/feedback.  Students submit and list
// their own items, admins list, update and delete everything, and both may
// read a single item subject to the handler's ownership check.
func RegisterFeedback(e *echo.Echo, h *handler.FeedbackHandler, jwtSecret string) {
	student := e.Group(
		"/api/feedback",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStudent),
	)
	student.POST("/submit", h.Submit)
	student.GET("/my-feedbacks", h.Mine)

	admin := e.Group(
		"/api/feedback",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleAdmin),
	)
	admin.GET("/all", h.All)
	admin.PUT("/:id", h.Update)
	admin.DELETE("/:id", h.Delete)

	anyone := e.Group(
		"/api/feedback",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(model.RoleStudent, model.RoleAdmin),
	)
	anyone.GET("/:id", h.Get)
}
