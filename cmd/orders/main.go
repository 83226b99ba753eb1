package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	_ "modernc.org/sqlite"

	"github.com/Ramsey-B/sprig/config"
	"github.com/Ramsey-B/sprig/internal/orders"
	"github.com/Ramsey-B/sprig/pkg/database"
	"github.com/Ramsey-B/sprig/pkg/failure"
	"github.com/Ramsey-B/sprig/pkg/health"
	"github.com/Ramsey-B/sprig/pkg/inject"
	"github.com/Ramsey-B/sprig/pkg/kafka"
	"github.com/Ramsey-B/sprig/pkg/logging"
	"github.com/Ramsey-B/sprig/pkg/middleware"
	"github.com/Ramsey-B/sprig/pkg/organize"
	"github.com/Ramsey-B/sprig/pkg/startup"
	"github.com/Ramsey-B/sprig/pkg/store"
	"github.com/Ramsey-B/sprig/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.PrettyLogs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Error("orders service stopped with an error")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger ectologger.Logger) error {
	settings := config.FromConfig(cfg, logger)
	if err := config.Configure(settings); err != nil {
		return err
	}

	if cfg.TracingEnabled {
		provider := tracing.NewProvider(cfg.AppName, tracing.NewLogExporter(logger))
		defer func() { _ = provider.Shutdown(context.Background()) }()
	}

	var (
		db       database.DB
		repo     *store.Store
		reporter *kafka.Reporter
		server   = echo.New()
		checker  = health.NewChecker(cfg.AppName)
	)
	server.HideBanner = true
	checker.Register(server)

	boot := startup.New(logger, 5)
	boot.Add(
		startup.Func{
			ID: "database",
			OnStart: func(ctx context.Context) error {
				var err error
				db, err = database.Open(ctx, cfg.DatabaseDriver, cfg.DatabaseDSN, logger)
				if err != nil {
					return err
				}
				db.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
				return nil
			},
			OnStop: func(context.Context) error { return db.Close() },
		},
		startup.Func{
			ID:       "migrations",
			Requires: []string{"database"},
			OnStart: func(ctx context.Context) error {
				name, driver, err := database.MigrationDriver(db)
				if err != nil {
					return err
				}
				migrations := database.NewMigrationService(logger, &database.MigrationConfig{
					MigrationFolderPath: filepath.Join(cfg.DatabaseMigrationFolderPath, name),
					Version:             cfg.DatabaseMigrationVersion,
					AutoRollback:        true,
				})
				return migrations.Migrate(ctx, name, driver)
			},
		},
		startup.Func{
			ID:       "store",
			Requires: []string{"migrations"},
			OnStart: func(context.Context) error {
				repo = store.New(db, logger)
				checker.Add("database", db)
				return repo.Register(orders.Model())
			},
		},
		startup.Func{
			ID: "kafka",
			OnStart: func(context.Context) error {
				if cfg.KafkaEnabled {
					reporter = kafka.NewReporter(kafka.NewWriter(cfg.KafkaBrokers, cfg.KafkaFailureTopic), cfg.KafkaFailureTopic, logger)
				}
				return nil
			},
			OnStop: func(context.Context) error {
				if reporter == nil {
					return nil
				}
				return reporter.Close()
			},
		},
		startup.Func{
			ID:       "http",
			Requires: []string{"store", "kafka"},
			OnStart: func(context.Context) error {
				return routes(server, settings, repo, reporter, logger)
			},
			OnStop: func(ctx context.Context) error { return server.Shutdown(ctx) },
		},
	)

	if err := boot.Start(ctx); err != nil {
		return err
	}
	checker.SetReady(true)

	errs := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Infof("orders service listening on %s", addr)
		if err := server.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case <-ctx.Done():
	case err := <-errs:
		if err != nil {
			logger.WithError(err).Error("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return boot.Stop(shutdownCtx)
}

const containerID = "orders"

func routes(e *echo.Echo, settings *config.Settings, repo *store.Store, reporter *kafka.Reporter, logger ectologger.Logger) error {
	opts := []organize.Option{
		organize.WithSettings(settings),
		organize.WithLogger(logger),
		organize.HandleErrors(orders.NotFound(), failure.Except("create")),
	}
	if reporter != nil {
		opts = append(opts, organize.HandleErrors(reporter))
	}
	o := organize.New(opts...)

	container, err := inject.NewContainer(containerID, logger)
	if err != nil {
		return err
	}
	if err := orders.Provide(container, settings, repo, o); err != nil {
		return err
	}

	e.HTTPErrorHandler = middleware.Error(logger)
	e.Use(middleware.Context(), middleware.Logger(logger))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	orders.Register(e.Group("", inject.Middleware(containerID)))
	return nil
}
