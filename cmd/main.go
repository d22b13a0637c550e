package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/akarpov/cartcore/internal/cache"
	"github.com/akarpov/cartcore/internal/cart"
	"github.com/akarpov/cartcore/internal/catalog"
	"github.com/akarpov/cartcore/internal/config"
	"github.com/akarpov/cartcore/internal/httpapi"
	"github.com/akarpov/cartcore/internal/order"
	"github.com/akarpov/cartcore/internal/publisher"
	"github.com/akarpov/cartcore/internal/repository"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(err)
	}

	logger := newLogger(cfg.Log)

	taxRate, err := decimal.NewFromString(cfg.Cart.TaxRate)
	if err != nil {
		logger.Fatal().Err(err).Str("tax_rate", cfg.Cart.TaxRate).Msg("invalid tax rate")
	}

	cred := cfg.Postgres.Credentials()
	db, err := repository.Open(&cred)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer db.Close()

	if err := repository.RunMigrations(db, cfg.Postgres.MigrationsPath); err != nil {
		logger.Fatal().Err(err).Msg("failed to run migrations")
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	repo := repository.NewRepository(db)
	projCache := cache.NewRedisCache(redisClient)
	cat := catalog.NewPostgresCatalog(db)

	cartSvc := cart.NewService(repo, cat, projCache, logger, taxRate).
		WithMaxRetries(cfg.Cart.MaxRetries)
	orderSvc := order.NewService(repo, repo, cat, projCache, logger, taxRate).
		WithMaxRetries(cfg.Cart.MaxRetries)

	poller := publisher.NewOutboxPoller(repo, logger, cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.PollInterval, cfg.Kafka.BatchSize)
	defer poller.Close()

	pollerCtx, stopPoller := context.WithCancel(context.Background())
	defer stopPoller()
	go poller.Run(pollerCtx)

	router := httpapi.NewRouter(
		httpapi.NewCartHandler(cartSvc),
		httpapi.NewOrdersHandler(orderSvc),
		logger,
		cfg.Server.RequestTimeout,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Server.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")
	stopPoller()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal().Err(err).Msg("server forced to shutdown")
	}

	logger.Info().Msg("server exited")
}

func newLogger(cfg config.LogConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}

	var out = os.Stdout
	logger := zerolog.New(out)
	if cfg.Format == "console" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out})
	}
	return logger.Level(level).With().Timestamp().Logger()
}
