// Package app wires configuration into concrete adapters and services.
// It is shared by the server and the reconcile command.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"logistics-route-service/internal/adapters/cache"
	"logistics-route-service/internal/adapters/distance"
	"logistics-route-service/internal/adapters/lock"
	"logistics-route-service/internal/adapters/odoo"
	"logistics-route-service/internal/adapters/repositories"
	"logistics-route-service/internal/config"
	"logistics-route-service/internal/platform/db"
	"logistics-route-service/internal/ports"
	"logistics-route-service/internal/services"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type App struct {
	Config *config.Config
	Log    *zap.Logger

	DB    *sql.DB
	Redis *redis.Client

	Routes     *services.RouteService
	Reconciler *services.PurchaseReconciler
	Scheduler  *services.ReconcileScheduler
	Audit      ports.ReconciliationLog
}

// Build connects everything the configuration asks for. Postgres and Redis
// are optional: without them distances are not cached, outcomes are not
// recorded and route leases are process-local.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	a := &App{Config: cfg, Log: logger}

	primary, err := odoo.NewClient(registryConfig(cfg.Primary, cfg), logger.Named("primary"))
	if err != nil {
		return nil, fmt.Errorf("primary registry: %w", err)
	}
	secondary, err := odoo.NewClient(registryConfig(cfg.Secondary, cfg), logger.Named("secondary"))
	if err != nil {
		return nil, fmt.Errorf("secondary registry: %w", err)
	}

	provider, err := distance.NewGraphHopperProvider(distance.GraphHopperConfig{
		BaseURL: cfg.RoutingBaseURL,
		APIKey:  cfg.RoutingAPIKey,
		Profile: cfg.RoutingProfile,
		Timeout: cfg.RoutingTimeout,
	})
	if err != nil {
		return nil, err
	}

	var distanceCache ports.DistanceCache
	if cfg.DatabaseURL != "" {
		a.DB, err = db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		distanceCache = cache.NewSQLDistanceCache(a.DB)
		a.Audit = repositories.NewSQLReconciliationLog(a.DB)
	} else {
		logger.Info("DATABASE_URL not set; distance cache and reconciliation log disabled")
	}

	var locker ports.RouteLocker
	if cfg.RedisAddr != "" {
		a.Redis = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := a.Redis.Ping(pingCtx).Err(); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
		}
		locker = lock.NewRedisLocker(a.Redis, "")
	} else {
		logger.Info("REDIS_ADDR not set; using in-process route locks")
		locker = lock.NewMemoryLocker()
	}

	primaryPartners := partnerRepository(primary, cfg)
	secondaryPartners := partnerRepository(secondary, cfg)
	routes := repositories.NewRegistryRouteRepository(primary)
	loads := repositories.NewRegistryLoadRepository(primary)

	resolver := services.NewPartnerResolver(primaryPartners, secondaryPartners)
	sequencer := services.NewWaypointSequencer(loads, resolver, logger.Named("sequencer"))
	estimator := services.NewDistanceEstimator(provider, distanceCache, provider.Profile(), logger.Named("distance"))
	a.Routes = services.NewRouteService(routes, loads, resolver, sequencer, estimator, logger.Named("routes"))

	a.Reconciler = services.NewPurchaseReconciler(
		routes,
		repositories.NewRegistryPurchaseRepository(secondary),
		locker,
		a.Audit,
		services.ReconcilerConfig{
			FreightProductID:   cfg.FreightProductID,
			FreightProductName: cfg.FreightProductName,
			PriceUnit:          cfg.FreightPriceUnit,
			LockTTL:            cfg.ReconcileLockTTL,
		},
		logger.Named("reconciler"),
	)
	a.Scheduler = services.NewReconcileScheduler(
		services.SchedulerConfig{Interval: cfg.ReconcileInterval, RunOnStart: true},
		a.Reconciler,
		logger.Named("scheduler"),
	)

	return a, nil
}

func registryConfig(r config.Registry, cfg *config.Config) odoo.Config {
	return odoo.Config{
		URL:        r.URL,
		DB:         r.DB,
		User:       r.User,
		APIKey:     r.APIKey,
		Timeout:    cfg.RegistryTimeout,
		SessionTTL: cfg.RegistrySessionTTL,
	}
}

func partnerRepository(registry ports.Registry, cfg *config.Config) *repositories.RegistryPartnerRepository {
	repo := repositories.NewRegistryPartnerRepository(registry)
	if cfg.PartnerLatField != "" {
		repo.LatField = cfg.PartnerLatField
	}
	if cfg.PartnerLonField != "" {
		repo.LonField = cfg.PartnerLonField
	}
	return repo
}

// Close releases the database and Redis connections.
func (a *App) Close() error {
	var errs []error
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
