package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sweet_shop/internal/config"
	"sweet_shop/internal/events"
	"sweet_shop/internal/handler"
	"sweet_shop/internal/middleware"
	"sweet_shop/internal/seed"
	"sweet_shop/internal/service"
	"sweet_shop/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var seedOnStart bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	for _, c := range []*cobra.Command{rootCmd, serveCmd} {
		c.Flags().BoolVar(&seedOnStart, "seed", false, "Load the sample catalog before serving")
	}
}

func newPublisher(cfg config.EventsConfig, logger zerolog.Logger) events.Publisher {
	switch cfg.Broker {
	case config.BrokerKafka:
		logger.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.KafkaTopic).Msg("publishing stock events to kafka")
		return events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
	case config.BrokerRabbitMQ:
		logger.Info().Str("queue", cfg.RabbitMQQueue).Msg("publishing stock events to rabbitmq")
		return events.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.RabbitMQQueue)
	}
	return events.NopPublisher{}
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := openStorage(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	if seedOnStart {
		if _, err := seed.Run(ctx, store.repos, logger); err != nil {
			return err
		}
	}

	rdb := config.NewRedisClient(ctx, cfg.Redis)
	if rdb != nil {
		defer rdb.Close()
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("redis rate limiting enabled")
	} else if cfg.RateLimit.Enabled {
		logger.Info().Msg("redis unavailable, using in-process rate limiting")
	}

	publisher := newPublisher(cfg.Events, logger)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn().Err(err).Msg("failed to close event publisher")
		}
	}()

	jwtUtil := utils.NewJWTUtil(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	authService := service.NewAuthService(store.repos.Users, jwtUtil, service.AuthOptions{
		AdminUsernames: cfg.Auth.AdminUsernames,
		BcryptCost:     cfg.Auth.BcryptCost,
	}, logger)
	sweetService := service.NewSweetService(store.repos.Sweets, authService, publisher, cfg.Events.LowStockThreshold, logger)
	categoryService := service.NewCategoryService(store.repos.Categories, store.repos.Sweets, authService, logger)

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	deps := handler.Deps{
		Auth:       authService,
		Sweets:     sweetService,
		Categories: categoryService,
		RateLimit:  middleware.NewRateLimiter(cfg.RateLimit, rdb, logger).Middleware(),
		Logger:     logger,
	}
	if store.pool != nil {
		deps.DB = store.pool
	}
	router := handler.NewRouter(deps)

	srv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.App.Port).Str("env", cfg.App.Env).Str("storage", cfg.Database.Storage).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-serverErr:
		return err
	case <-quit:
	}
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
		return err
	}

	logger.Info().Msg("server exiting")
	return nil
}
