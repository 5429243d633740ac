package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/thistle/pkg/database"
	"github.com/Ramsey-B/thistle/pkg/kafka"
	"github.com/Ramsey-B/thistle/pkg/middleware"
	blacklistroutes "github.com/Ramsey-B/thistle/pkg/routes/blacklist"
	detectionroutes "github.com/Ramsey-B/thistle/pkg/routes/detection"
	"github.com/Ramsey-B/thistle/pkg/routes/health"
	"github.com/Ramsey-B/thistle/pkg/routes/screening"
)

func newServeCommand() *cobra.Command {
	var migrateFirst bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the detection request consumer",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a := newApp(cfg, logger)
			if err := a.start(ctx); err != nil {
				return err
			}
			defer a.stop()

			if migrateFirst {
				if err := runMigrations(a); err != nil {
					return err
				}
			}

			e := newServer(a)
			checker := healthChecker(a)
			checker.RegisterRoutes(e)

			var consumer *kafka.Consumer
			if cfg.KafkaEnabled && cfg.KafkaConsumerEnabled {
				consumer = kafka.NewConsumer(kafka.ConsumerConfig{
					Brokers:       cfg.KafkaBrokers,
					Topic:         cfg.KafkaRequestTopic,
					ConsumerGroup: cfg.KafkaConsumerGroup,
				}, logger, kafka.DetectionRequestHandler(a.service, logger))
				if err := consumer.Start(ctx); err != nil {
					return err
				}
			}

			errCh := make(chan error, 1)
			go func() {
				addr := fmt.Sprintf(":%d", cfg.Port)
				logger.Infof("Starting %s on %s", cfg.AppName, addr)
				if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
			}()
			checker.SetReady(true)

			var serveErr error
			select {
			case <-ctx.Done():
				logger.Info("Shutdown signal received")
			case serveErr = <-errCh:
				logger.WithError(serveErr).Error("HTTP server failed")
			}
			checker.SetReady(false)

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := e.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shut down HTTP server")
			}
			if consumer != nil {
				if err := consumer.Stop(); err != nil {
					logger.WithError(err).Error("Failed to stop consumer")
				}
			}

			return serveErr
		},
	}

	cmd.Flags().BoolVar(&migrateFirst, "migrate", false, "apply database migrations before serving")
	return cmd
}

func newServer(a *app) *echo.Echo {
	cfg := a.cfg

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.logger)
	e.Server.ReadTimeout = time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second

	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(a.logger))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.AllowOrigins}))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api/v1", middleware.Container(a.container.GetContainerID()))
	enforce := cfg.AuthEnabled

	blacklistroutes.Register(api.Group("/blacklist"), enforce)
	detectionroutes.Register(api, enforce)
	screening.Register(api.Group("/screening"), enforce)

	return e
}

func healthChecker(a *app) *health.Checker {
	checker := health.NewChecker(health.PingerFunc(a.db.PingContext), a.cfg.Version)
	if a.redis != nil {
		checker.WithDependency("redis", a.redis)
	}
	if a.graph != nil {
		checker.WithDependency("graph", a.graph)
	}
	return checker
}

func runMigrations(a *app) error {
	return database.NewMigrationService(a.logger, &database.MigrationConfig{
		MigrationFolderPath: a.cfg.DatabaseMigrationFolderPath,
		Version:             uint(a.cfg.DatabaseMigrationVersion),
		Force:               a.cfg.DatabaseMigrationForce,
		AutoRollback:        a.cfg.DatabaseMigrationAutoRollback,
	}).MigratePostgres(a.db.DB.DB, a.cfg.DatabaseName)
}
