package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/wisbric/ozonebridge/internal/config"
	"github.com/wisbric/ozonebridge/internal/httpserver"
	"github.com/wisbric/ozonebridge/internal/platform"
	"github.com/wisbric/ozonebridge/internal/telemetry"
	"github.com/wisbric/ozonebridge/pkg/audit"
	"github.com/wisbric/ozonebridge/pkg/bridge"
	"github.com/wisbric/ozonebridge/pkg/credential"
	"github.com/wisbric/ozonebridge/pkg/labelmap"
	"github.com/wisbric/ozonebridge/pkg/reviewqueue"
	"github.com/wisbric/ozonebridge/pkg/scheduler"
	"github.com/wisbric/ozonebridge/pkg/syncstate"
	"github.com/wisbric/ozonebridge/pkg/tokenminter"
)

// Run is the main application entry point. It reads config, connects to
// infrastructure, and starts the appropriate mode (api, poller, or migrate).
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting ozonebridge",
		"mode", cfg.Mode,
		"listen", cfg.ListenAddr(),
	)

	if cfg.Mode == "migrate" {
		if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("running migrations: %w", err)
		}
		logger.Info("migrations applied")
		return nil
	}

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	metricsReg := telemetry.NewMetricsRegistry(telemetry.All()...)

	svc := buildBridgeService(db, rdb, cfg, logger)

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, db, rdb, metricsReg, svc)
	case "poller":
		return runPoller(ctx, cfg, logger, svc, rdb)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

// buildBridgeService wires the bridge's collaborators: Postgres-backed
// stores, an optional Redis cache in front of the label mapper, the token
// minter, and the façade composing them.
func buildBridgeService(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config, logger *slog.Logger) *bridge.Service {
	credStore := credential.NewPgStore(db)

	var mappingStore labelmap.Store = labelmap.NewPgStore(db)
	if cfg.LabelCacheEnabled {
		mappingStore = labelmap.NewCachedStore(mappingStore, rdb)
	}

	syncStore := syncstate.NewPgStore(db)
	auditStore := audit.NewPgStore(db)
	minter := tokenminter.New()

	return bridge.New(credStore, mappingStore, syncStore, auditStore, minter, logger)
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry, svc *bridge.Service) error {
	srv := httpserver.NewServer(httpserver.ServerConfig{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ServiceToken:       cfg.ServiceToken,
		MetricsPath:        cfg.MetricsPath,
	}, logger, db, rdb, metricsReg)

	srv.Router.Get("/readyz", srv.ReadyzHandler(func(r *http.Request) map[string]string {
		return checkExternalLabelers(r.Context(), svc, logger)
	}))

	bridgeHandler := bridge.NewHandler(logger, svc)
	srv.APIRouter.Mount("/tenants", bridgeHandler.Routes())

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// checkExternalLabelers probes every sync-enabled tenant's external
// labeler health endpoint, bounded to the handful of tenants this bridge
// typically serves.
func checkExternalLabelers(ctx context.Context, svc *bridge.Service, logger *slog.Logger) map[string]string {
	results := make(map[string]string)

	tenantIDs, err := svc.ListEnabledTenants(ctx)
	if err != nil {
		logger.Error("readiness: listing enabled tenants", "error", err)
		return results
	}

	for _, tenantID := range tenantIDs {
		if _, err := svc.HealthCheck(ctx, tenantID); err != nil {
			results[tenantID] = "unreachable: " + err.Error()
			continue
		}
		results[tenantID] = "ok"
	}
	return results
}

func runPoller(ctx context.Context, cfg *config.Config, logger *slog.Logger, svc *bridge.Service, rdb *redis.Client) error {
	sched := scheduler.New(svc, &reviewqueue.LoggingQueue{Logger: logger}, scheduler.Config{
		PollIntervalMs: cfg.PollIntervalMs,
		Enabled:        cfg.PollEnabled,
	}, logger, rdb)

	sched.Run(ctx)
	return nil
}
