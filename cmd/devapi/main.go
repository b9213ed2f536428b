package main // development backend entry point

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/Trandsoulz/student-connect-client/internal/config"
	"github.com/Trandsoulz/student-connect-client/internal/handler"
	"github.com/Trandsoulz/student-connect-client/internal/logger"
	"github.com/Trandsoulz/student-connect-client/internal/middleware"
	"github.com/Trandsoulz/student-connect-client/internal/repository"
	"github.com/Trandsoulz/student-connect-client/internal/router"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadDevAPI()
	if err != nil {
		log.Fatal(err)
	}
	lg, err := logger.New(cfg.Env, cfg.LogLevel, zap.String("service", "devapi"))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		lg.Warn("redis unavailable; signin rate limiting disabled", zap.Error(err))
		rdb = nil
	} else {
		defer func() { _ = rdb.Close() }()
	}

	users := repository.NewUserRepo()
	authH := handler.NewAuthHandler(cfg, users, lg)
	if err := authH.SeedAdmin(ctx, cfg.SeedAdminMail, cfg.SeedAdminPass); err != nil {
		lg.Fatal("seed admin", zap.Error(err))
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover(), middleware.RequestID(), middleware.RequestLogger(lg))
	router.RegisterRoutes(e)
	router.RegisterAuth(e, authH, cfg.JWTSecret, config.LoadRateLimitConfig(), rdb, lg)
	router.RegisterFeedback(e, handler.NewFeedbackHandler(repository.NewFeedbackRepo(users), lg), cfg.JWTSecret)

	addr := ":" + cfg.Port
	lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Error("shutdown", zap.Error(err))
	}
}
