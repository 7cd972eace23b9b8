package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
	"go.uber.org/zap"

	bridge "github.com/goliatone/go-auth-bridge"
	"github.com/goliatone/go-auth-bridge/cache"
	"github.com/goliatone/go-auth-bridge/middleware/guardware"
	"github.com/goliatone/go-auth-bridge/provider"
	"github.com/goliatone/go-auth-bridge/repository"
)

func serveCmd() *cobra.Command {
	var (
		addr         string
		ensureSchema bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server with the guard in front of /v1",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, ensureSchema)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address, overrides server.addr")
	cmd.Flags().BoolVar(&ensureSchema, "ensure-schema", true, "Create the users table and indexes when missing")

	return cmd
}

func serve(ctx context.Context, cfg bridge.Config, ensureSchema bool) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	zl, err := bridge.BuildZapLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = zl.Sync() }()
	logger := bridge.NewZapLogger(zl)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics, err := bridge.NewMetrics(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	store, closeCache, err := openCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	db, err := openDB(cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	if ensureSchema {
		if err := repository.EnsureSchema(ctx, db); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}

	timeout, connectTimeout := cfg.RemoteAPI.Timeouts()
	selector := provider.NewSelector(cfg, provider.Dependencies{
		HTTPClient: bridge.NewHTTPClient(timeout, connectTimeout),
		Cache:      store,
		Metrics:    metrics,
		Logger:     logger,
	}, nil)

	active, err := selector.Provider()
	if err != nil {
		return err
	}

	synchronizer := bridge.NewSynchronizer(bridge.SynchronizerConfig{
		Store:   repository.NewUsers(db),
		Logger:  logger,
		Metrics: metrics,
	})

	guard, err := bridge.NewGuard(cfg, active, synchronizer,
		bridge.WithGuardCache(store),
		bridge.WithGuardLogger(logger),
		bridge.WithGuardMetrics(metrics),
	)
	if err != nil {
		return err
	}

	app := newApp(guard, registry, cfg, logger)

	errc := make(chan error, 1)
	go func() {
		zl.Info("listening", zap.String("addr", cfg.Server.Addr), zap.String("provider", cfg.Provider))
		errc <- app.Listen(cfg.Server.Addr)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

func newApp(guard guardware.Resolver, registry *prometheus.Registry, cfg bridge.Config, logger bridge.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "authbridge",
		DisableStartupMessage: true,
	})

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	metricsPath := cfg.Server.MetricsPath
	if metricsPath == "" {
		metricsPath = bridge.DefaultMetricsPath
	}
	app.Get(metricsPath, adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	v1 := app.Group("/v1", guardware.New(guardware.Config{
		Guard:    guard,
		Required: true,
		Logger:   logger,
	}))
	v1.Get("/me", me)

	return app
}

func me(c *fiber.Ctx) error {
	accessor := guardware.AccessorFrom(c)
	user := accessor.User()
	payload := accessor.CurrentPayload()

	out := fiber.Map{
		"external_id": payload.ExternalID,
		"email":       payload.Email,
		"name":        payload.DisplayName,
		"status":      payload.Status,
		"account_id":  accessor.AccountID(),
		"app_key":     accessor.AppKey(),
		"permissions": accessor.Permissions(),
		"roles":       accessor.Roles(),
	}
	if user != nil {
		out["user_id"] = user.ID.String()
	}

	return c.JSON(out)
}

func openCache(ctx context.Context, cfg bridge.CacheConfig) (bridge.Cache, func(), error) {
	switch cfg.Driver {
	case "redis":
		store, client, err := cache.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = client.Close() }, nil
	default:
		return cache.NewMemory(), func() {}, nil
	}
}

func openDB(cfg bridge.DatabaseConfig) (*bun.DB, error) {
	switch cfg.Driver {
	case "postgres":
		sqldb, err := sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return bun.NewDB(sqldb, pgdialect.New()), nil
	case "sqlite", "":
		sqldb, err := sql.Open(sqliteshim.ShimName, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		sqldb.SetMaxOpenConns(1)
		return bun.NewDB(sqldb, sqlitedialect.New()), nil
	default:
		return nil, errors.New("unsupported database driver " + cfg.Driver)
	}
}
