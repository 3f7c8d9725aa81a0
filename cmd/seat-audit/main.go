package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/iliyamo/seat-reservation/internal/config"
	"github.com/iliyamo/seat-reservation/internal/queue"
)

func main() {
	envFile := pflag.String("env-file", ".env", "optional .env file to pre-load")
	logPath := pflag.String("log-file", filepath.Join("logs", "seat-events.log"), "audit log destination")
	pflag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		config.NewLogger("seat-audit", "info").Fatalf("load %s: %v", *envFile, err)
	}
	logger := config.NewLogger("seat-audit", os.Getenv("LOG_LEVEL"))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := queue.StartSeatEventConsumer(ctx, queue.ConsumerConfig{
		URL:     config.AMQPURL(),
		Queue:   os.Getenv("SEAT_EVENTS_QUEUE"),
		LogPath: *logPath,
	}, logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("consumer: %v", err)
	}
	logger.Info("stopped")
}
