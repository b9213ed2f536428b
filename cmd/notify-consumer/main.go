package main // notification audit consumer

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/Trandsoulz/student-connect-client/internal/config"
	"github.com/Trandsoulz/student-connect-client/internal/logger"
	"github.com/Trandsoulz/student-connect-client/internal/queue"
)

func main() {
	_ = godotenv.Load()

	cfg := config.LoadConsumer()
	lg, err := logger.New(cfg.Env, cfg.LogLevel, zap.String("service", "notify-consumer"))
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := &queue.Consumer{URL: cfg.RabbitMQURL, Dir: cfg.LogDir, Log: lg}
	lg.Info("consuming", zap.String("queue", queue.NotificationsQueue), zap.String("dir", cfg.LogDir))
	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		lg.Fatal("consumer stopped", zap.Error(err))
	}
}
