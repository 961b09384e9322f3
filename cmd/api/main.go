package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dvillamizar/restopos-backend/internal/auth"
	"github.com/dvillamizar/restopos-backend/internal/catalog"
	"github.com/dvillamizar/restopos-backend/internal/integrity"
	"github.com/dvillamizar/restopos-backend/internal/invoices"
	"github.com/dvillamizar/restopos-backend/internal/kitchen"
	"github.com/dvillamizar/restopos-backend/internal/orders"
	"github.com/dvillamizar/restopos-backend/internal/permissions"
	"github.com/dvillamizar/restopos-backend/internal/rbac"
	"github.com/dvillamizar/restopos-backend/internal/tables"
	"github.com/dvillamizar/restopos-backend/internal/users"
	"github.com/dvillamizar/restopos-backend/pkg/config"
	"github.com/dvillamizar/restopos-backend/pkg/db"
	"github.com/dvillamizar/restopos-backend/pkg/env"
	"github.com/dvillamizar/restopos-backend/pkg/errors"
	"github.com/dvillamizar/restopos-backend/pkg/logger"
	"github.com/dvillamizar/restopos-backend/pkg/metrics"
	"github.com/dvillamizar/restopos-backend/pkg/migrate"
	"github.com/dvillamizar/restopos-backend/pkg/redis"
)

// backOffice wires every workflow service over the shared infrastructure.
type backOffice struct {
	Tables      *tables.Service
	Orders      *orders.Service
	Kitchen     *kitchen.Service
	Invoices    *invoices.Service
	Users       *users.Service
	Auth        *auth.Service
	Catalog     *catalog.Service
	RBAC        *rbac.Service
	Permissions *permissions.Resolver
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fatal(context.Background(), logger.New(logger.Options{ServiceName: "restopos-api"}),
			"failed to load configuration", err)
	}

	logg := logger.New(logger.Options{
		ServiceName: "restopos-api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		fatal(ctx, logg, "failed to connect to database", err)
	}
	defer dbClient.Close()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		fatal(ctx, logg, "failed to run startup migrations", err)
	}

	var cache *redis.Client
	if cfg.Redis.URL != "" || cfg.Redis.Address != "" {
		cache, err = redis.New(ctx, cfg.Redis)
		if err != nil {
			fatal(ctx, logg, "failed to connect to redis", err)
		}
		defer cache.Close()
	} else {
		logg.Warn(ctx, "redis is not configured, permission caching disabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	workflowMetrics := metrics.NewWorkflowMetrics(registry)

	office, err := buildBackOffice(cfg, logg, dbClient, cache, workflowMetrics)
	if err != nil {
		fatal(ctx, logg, "failed to wire services", err)
	}
	logg.Info(ctx, "back office services initialized")

	opsAddr := env.Get("RESTOPOS_OPS_ADDR", ":9090")
	opsServer := newOpsServer(opsAddr, registry, dbClient, cache, office)
	go func() {
		logg.Info(ctx, "ops server listening on "+opsAddr)
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logg.Error(logg.WithField(ctx, "error_dump", errors.Dump(err)), "ops server failed", err)
			stop()
		}
	}()

	<-ctx.Done()
	logg.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = opsServer.Shutdown(shutdownCtx)
}

// fatal logs the error with its flattened chain and driver details, then
// exits. Startup failures against postgres are the main consumer of the
// extracted pg fields.
func fatal(ctx context.Context, logg *logger.Logger, msg string, err error) {
	logg.Error(logg.WithField(ctx, "error_dump", errors.Dump(err)), msg, err)
	os.Exit(1)
}

func buildBackOffice(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	cache *redis.Client,
	workflowMetrics *metrics.WorkflowMetrics,
) (*backOffice, error) {
	conn := dbClient.DB()

	guard, err := integrity.NewGuard(conn, workflowMetrics)
	if err != nil {
		return nil, err
	}

	var permissionCache redis.PermissionCache
	if cache != nil {
		permissionCache = cache
	}
	resolver, err := permissions.NewResolver(permissions.ResolverParams{
		Repo:     permissions.NewRepository(conn),
		Cache:    permissionCache,
		CacheTTL: cfg.Permissions.CacheTTL,
		Logger:   logg,
	})
	if err != nil {
		return nil, err
	}

	tableSvc, err := tables.NewService(tables.Params{
		Tx: dbClient, Conn: conn, Guard: guard, Metrics: workflowMetrics, Logger: logg,
	})
	if err != nil {
		return nil, err
	}
	orderSvc, err := orders.NewService(orders.Params{
		Tx: dbClient, Conn: conn, Guard: guard, Tables: tableSvc, Metrics: workflowMetrics, Logger: logg,
	})
	if err != nil {
		return nil, err
	}
	kitchenSvc, err := kitchen.NewService(kitchen.Params{
		Tx: dbClient, Conn: conn, Metrics: workflowMetrics, Logger: logg,
	})
	if err != nil {
		return nil, err
	}
	invoiceSvc, err := invoices.NewService(invoices.Params{
		Tx: dbClient, Conn: conn, Guard: guard, Tables: tableSvc, Metrics: workflowMetrics, Logger: logg,
	})
	if err != nil {
		return nil, err
	}
	userSvc, err := users.NewService(users.Params{
		Tx: dbClient, Conn: conn, Guard: guard, Resolver: resolver, Password: cfg.Password, Logger: logg,
	})
	if err != nil {
		return nil, err
	}
	authSvc, err := auth.NewService(auth.Params{
		Repo: auth.NewRepository(conn), Conn: conn, JWT: cfg.JWT, Logger: logg,
	})
	if err != nil {
		return nil, err
	}
	catalogSvc, err := catalog.NewService(catalog.Params{
		Tx: dbClient, Conn: conn, Guard: guard, Logger: logg,
	})
	if err != nil {
		return nil, err
	}
	rbacSvc, err := rbac.NewService(rbac.Params{
		Tx: dbClient, Conn: conn, Guard: guard, Logger: logg,
	})
	if err != nil {
		return nil, err
	}

	return &backOffice{
		Tables:      tableSvc,
		Orders:      orderSvc,
		Kitchen:     kitchenSvc,
		Invoices:    invoiceSvc,
		Users:       userSvc,
		Auth:        authSvc,
		Catalog:     catalogSvc,
		RBAC:        rbacSvc,
		Permissions: resolver,
	}, nil
}

func newOpsServer(addr string, registry *prometheus.Registry, dbClient db.Pinger, cache redis.Pinger, office *backOffice) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := dbClient.Ping(ctx); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				http.Error(w, "redis unreachable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		// A schema-level read fails until migrations have been applied.
		if _, err := office.Catalog.ListCategories(ctx); err != nil {
			http.Error(w, "schema not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	return &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
}
