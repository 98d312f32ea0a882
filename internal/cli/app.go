package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/pysugar/ads-account-gateway/internal/accounts"
	"github.com/pysugar/ads-account-gateway/internal/ads"
	"github.com/pysugar/ads-account-gateway/internal/auth/google"
	"github.com/pysugar/ads-account-gateway/internal/auth/token"
	"github.com/pysugar/ads-account-gateway/internal/config"
	"github.com/pysugar/ads-account-gateway/internal/db"
	"github.com/pysugar/ads-account-gateway/internal/gateway"
	"github.com/pysugar/ads-account-gateway/internal/metrics"
	"github.com/pysugar/ads-account-gateway/internal/monitor"
	"github.com/pysugar/ads-account-gateway/internal/policy"
	"github.com/pysugar/ads-account-gateway/internal/tools"
	"gorm.io/gorm"
)

// app is the fully wired gateway shared by the commands that need the
// database and the advertising client.
type app struct {
	cfg      *config.Config
	db       *gorm.DB
	metrics  *metrics.Metrics
	oauth    *google.App
	client   *ads.RESTClient
	redis    *accounts.RedisCache
	service  *accounts.Service
	gate     *policy.Gate
	registry *tools.Registry
	calls    *monitor.CallMonitor
}

func newApp(cfg *config.Config) (*app, error) {
	if err := cfg.RequireAdsCredentials(); err != nil {
		return nil, err
	}

	database, err := db.InitDB(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	a := &app{
		cfg:     cfg,
		db:      database,
		metrics: metrics.NewMetrics("adsgate"),
		oauth:   google.NewApp(cfg.ClientID, cfg.ClientSecret),
	}

	sources := token.NewSources(a.oauth.Config(""))
	a.client = ads.NewRESTClient(ads.RESTConfig{
		BaseURL:        cfg.APIBaseURL,
		APIVersion:     cfg.APIVersion,
		DeveloperToken: cfg.DeveloperToken,
		QPS:            cfg.QPS,
	}, sources)

	var cache accounts.LoginCustomerCache = accounts.NewMemoryCache()
	if cfg.RedisURL != "" {
		a.redis, err = accounts.NewRedisCacheFromURL(cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		cache = a.redis
		log.Printf("🗄️ Login-customer cache backed by redis")
	}

	users := db.NewUserStore(database)
	creds := db.NewCredentialStore(database)
	links := db.NewAccountStore(database)
	discoverer := accounts.NewDiscoverer(a.client, links, a.metrics)
	resolver := accounts.NewResolver(a.client, links, cache, cfg.LoginCustomerID, a.metrics)
	a.service = accounts.NewService(users, creds, links, a.client, discoverer, resolver, accounts.Options{
		RefreshToken:       cfg.RefreshToken,
		FallbackCustomerID: cfg.FallbackCustomerID,
	})

	a.gate = policy.NewGate(nil)
	a.registry = tools.NewRegistry(a.gate, a.metrics)
	a.calls = monitor.NewCallMonitor(database)
	a.registry.SetRecorder(a.calls)
	tools.RegisterAccountTools(a.registry, a.service)
	tools.RegisterAdsTools(a.registry, a.service, a.client, ads.NewExecutor(a.client, cfg.ValidateOnly, a.metrics))

	return a, nil
}

// healthChecks pings the database and, when configured, redis.
func (a *app) healthChecks() map[string]gateway.HealthCheck {
	checks := map[string]gateway.HealthCheck{
		"database": func(ctx context.Context) error {
			sqlDB, err := a.db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if a.redis != nil {
		checks["redis"] = a.redis.Ping
	}
	return checks
}

func (a *app) Close() {
	if a.calls != nil {
		a.calls.Flush()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("⚠️ Failed to close redis: %v", err)
		}
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
