package router // package router defines how HTTP routes are registered

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Trandsoulz/student-connect-client/internal/config"
	"github.com/Trandsoulz/student-connect-client/internal/handler"
	"github.com/Trandsoulz/student-connect-client/internal/middleware"
)

// RegisterRoutes registers routes that need neither a browser session nor
// a token.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterPages registers the browser-facing pages.  Every page runs the
// session middleware and then the route guard; POST /logout skips the
// guard because it is valid from any page.  Login and register posts pass
// through the token bucket when rdb is available.
func RegisterPages(e *echo.Echo, p *handler.Pages, sessions *middleware.Sessions, rl config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) {
	withSession := sessions.Middleware()

	e.POST("/logout", p.Logout, withSession)

	g := e.Group("", withSession, middleware.Guard())
	g.GET("/", p.Landing)
	g.GET("/login", p.LoginForm)
	g.POST("/login", p.Login, middleware.NewTokenBucket(rl, rdb, p.LoginLimited, log))
	g.GET("/register", p.RegisterForm)
	g.POST("/register", p.Register, middleware.NewTokenBucket(rl, rdb, p.RegisterLimited, log))
	g.GET("/dashboard", p.Dashboard)
	g.GET("/submit", p.SubmitForm)
	g.POST("/submit", p.Submit)
	g.GET("/my-feedbacks", p.MyFeedbacks)
	g.GET("/manage-feedback", p.ManageFeedback)
	g.GET("/feedback/:id", p.FeedbackDetail)
	g.POST("/feedback/:id", p.FeedbackAction)

	// Unknown paths reach the guard, which sends them to "/".
	g.Any("/*", p.NotFound)
}
