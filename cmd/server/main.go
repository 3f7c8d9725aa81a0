package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/spf13/pflag"

	"github.com/iliyamo/seat-reservation/internal/clock"
	"github.com/iliyamo/seat-reservation/internal/config"
	"github.com/iliyamo/seat-reservation/internal/database"
	"github.com/iliyamo/seat-reservation/internal/lease"
	"github.com/iliyamo/seat-reservation/internal/middleware"
	"github.com/iliyamo/seat-reservation/internal/queue"
	"github.com/iliyamo/seat-reservation/internal/repository"
	"github.com/iliyamo/seat-reservation/internal/router"
	"github.com/iliyamo/seat-reservation/internal/service"
)

func main() {
	envFile := pflag.String("env-file", ".env", "optional .env file to pre-load")
	addrFlag := pflag.String("addr", "", "listen address, overrides APP_PORT")
	pflag.Parse()

	if err := config.LoadEnvFile(*envFile); err != nil {
		config.NewLogger("seat-server", "info").Fatalf("load %s: %v", *envFile, err)
	}
	cfg := config.Load()
	logger := config.NewLogger("seat-server", cfg.LogLevel)

	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		logger.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	catalog, closeCatalog := openCatalog(cfg, logger)
	defer closeCatalog()

	clk := clock.NewSystem()
	exec := lease.NewExecutor(rdb, clk, logger)

	opts := []service.Option{
		service.WithLockTTL(cfg.LockTTL),
		service.WithClock(clk),
		service.WithLogger(logger),
	}
	if cfg.SeatEventsEnabled {
		pub := queue.NewPublisher(cfg.AMQPURL, cfg.SeatEventsQueue, logger,
			queue.WithDialTimeout(cfg.SeatEventsDial))
		defer pub.Close()
		opts = append(opts, service.WithNotifier(pub))
	}
	svc := service.NewSeatService(catalog,
		repository.NewReservationRepo(rdb),
		repository.NewBookingRepo(rdb),
		exec, opts...)

	listener := lease.NewExpiryListener(rdb, svc, logger, lease.WithNotifyConfig(cfg.RedisNotifyConfig))
	startCtx, cancelStart := context.WithTimeout(context.Background(), 5*time.Second)
	err = listener.Start(startCtx)
	cancelStart()
	if err != nil {
		logger.Fatalf("expiry listener: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.Logger = logger
	e.Use(middleware.RequestIDs())
	e.Use(middleware.RequestLogger(logger))
	router.RegisterRoutes(e)
	router.RegisterSeats(e, router.Deps{
		Seats:     svc,
		Redis:     rdb,
		JWTSecret: cfg.JWTSecret,
		RateLimit: config.LoadRateLimitConfig(),
		Clock:     clk,
	})

	addr := ":" + cfg.Port
	if *addrFlag != "" {
		addr = *addrFlag
	}
	go func() {
		logger.Infof("listening on %s (env=%s, catalog=%s, lock ttl=%s)", addr, cfg.Env, cfg.CatalogDriver, cfg.LockTTL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("http server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		logger.Errorf("http shutdown: %v", err)
	}
	if err := listener.Close(); err != nil {
		logger.Warnf("expiry listener close: %v", err)
	}
}

// openCatalog connects the configured catalog database.
func openCatalog(cfg config.Config, logger *log.Logger) (service.Catalog, func()) {
	if cfg.CatalogDriver == config.DriverPostgres {
		pool, err := database.OpenPostgres(context.Background(), cfg.DatabaseURL)
		if err != nil {
			logger.Fatalf("postgres: %v", err)
		}
		return repository.NewPGCatalog(pool), pool.Close
	}

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatalf("mysql: %v", err)
	}
	return repository.NewMySQLCatalog(db), func() { _ = db.Close() }
}
