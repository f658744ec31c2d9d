package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/sakarghimire/product-service/internal/config"
	"github.com/sakarghimire/product-service/internal/devserver"
	"github.com/sakarghimire/product-service/internal/dynamo"
	"github.com/sakarghimire/product-service/internal/handler"
	"github.com/sakarghimire/product-service/internal/logging"
	"github.com/sakarghimire/product-service/internal/products"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		l := zerolog.New(os.Stderr)
		l.Fatal().Err(err).Msg("load config")
	}

	logger := logging.New("products-local", cfg.LogLevel, cfg.LogPretty)
	os.Exit(run(cfg, logger))
}

func run(cfg config.Config, logger zerolog.Logger) int {
	client, err := dynamo.NewClient(cfg)
	if err != nil {
		logger.Error().Err(err).Msg("create dynamodb client")
		return 1
	}

	reg := prometheus.NewRegistry()
	store := products.NewDynamoStore(client, cfg.TableName)
	svc := products.NewService(store, logger, products.NewMetrics(reg))
	h := handler.New(svc, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(devserver.RequestIDMiddleware())
	router.Use(devserver.AccessLogMiddleware(logger))
	devserver.RegisterRoutes(router, h.Route, store, reg)

	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Str("table", cfg.TableName).Msg("local products server started")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("http server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		return 1
	}
	logger.Info().Msg("local products server stopped")
	return 0
}
