package main // front end entry point

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
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Trandsoulz/student-connect-client/internal/apiclient"
	"github.com/Trandsoulz/student-connect-client/internal/config"
	"github.com/Trandsoulz/student-connect-client/internal/database"
	"github.com/Trandsoulz/student-connect-client/internal/handler"
	"github.com/Trandsoulz/student-connect-client/internal/logger"
	"github.com/Trandsoulz/student-connect-client/internal/middleware"
	"github.com/Trandsoulz/student-connect-client/internal/notify"
	"github.com/Trandsoulz/student-connect-client/internal/router"
	"github.com/Trandsoulz/student-connect-client/internal/storage"
)

func main() {
	_ = godotenv.Load() // a missing .env is fine

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}
	lg, err := logger.New(cfg.Env, cfg.LogLevel, zap.String("service", "web"))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis is optional unless it backs the session store.
	rdb, err := config.NewRedisClient(ctx)
	if err != nil {
		if cfg.SessionStore == config.StoreRedis {
			lg.Fatal("redis required for SESSION_STORE=redis", zap.Error(err))
		}
		lg.Warn("redis unavailable; rate limiting disabled", zap.Error(err))
		rdb = nil
	} else if cfg.SessionStore != config.StoreRedis {
		defer func() { _ = rdb.Close() }() // otherwise closed with the backend
	}

	backend, err := openBackend(ctx, cfg, rdb, lg)
	if err != nil {
		lg.Fatal("open session store", zap.Error(err))
	}
	defer func() { _ = backend.Close() }()

	var publisher *notify.Publisher
	if cfg.NotifyQueue {
		publisher = notify.NewPublisher(cfg.RabbitMQURL, lg)
	}

	renderer, err := handler.NewRenderer()
	if err != nil {
		lg.Fatal("load templates", zap.Error(err))
	}

	e := echo.New()
	e.HideBanner = true
	e.Renderer = renderer
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), middleware.RequestID(), middleware.RequestLogger(lg))

	router.RegisterRoutes(e)
	router.RegisterPages(e, handler.NewPages(lg), &middleware.Sessions{
		Backend:      backend,
		API:          apiclient.New(cfg.APIBaseURL, nil, apiclient.WithTimeout(cfg.APITimeout), apiclient.WithLogger(lg)),
		Publisher:    publisher,
		CookieSecure: cfg.CookieSecure,
		TTL:          cfg.SessionTTL,
		Log:          lg,
	}, config.LoadRateLimitConfig(), rdb, lg)

	addr := ":" + cfg.Port
	lg.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env),
		zap.String("api", cfg.APIBaseURL), zap.String("session_store", cfg.SessionStore))

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

func openBackend(ctx context.Context, cfg config.Config, rdb *redis.Client, lg *zap.Logger) (storage.Backend, error) {
	switch cfg.SessionStore {
	case config.StoreRedis:
		return storage.NewRedis(rdb, "", cfg.SessionTTL), nil
	case config.StoreMySQL:
		db, err := database.Open(ctx, cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, err
		}
		if err := database.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, err
		}
		m := storage.NewMySQL(db, cfg.SessionTTL)
		go purgeLoop(ctx, m, cfg.SessionTTL, lg)
		return m, nil
	}
	return storage.NewMemory(), nil
}

// purgeLoop removes expired rows hourly, or every TTL when that is shorter.
func purgeLoop(ctx context.Context, m *storage.MySQL, ttl time.Duration, lg *zap.Logger) {
	every := min(time.Hour, ttl)
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			n, err := m.Purge(ctx)
			if err != nil {
				lg.Warn("purge expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				lg.Info("purged expired sessions", zap.Int64("rows", n))
			}
		}
	}
}
