package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/spa-line-booking/internal/api/router"
	"github.com/wolfman30/spa-line-booking/internal/bookings"
	"github.com/wolfman30/spa-line-booking/internal/channels/line"
	appconfig "github.com/wolfman30/spa-line-booking/internal/config"
	"github.com/wolfman30/spa-line-booking/internal/flow"
	"github.com/wolfman30/spa-line-booking/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/spa-line-booking/internal/http/middleware"
	"github.com/wolfman30/spa-line-booking/internal/observability/metrics"
	"github.com/wolfman30/spa-line-booking/pkg/logging"
)

const (
	processedPurgeInterval = time.Hour
	processedRetention     = 48 * time.Hour
	limiterEvictInterval   = time.Minute
)

// App is the assembled API process: HTTP handler plus the loops it depends on.
type App struct {
	Handler    http.Handler
	Webhook    *line.WebhookHandler
	Supervisor *Supervisor
	Registry   *prometheus.Registry
	Sessions   string

	pool  *pgxpool.Pool
	redis *redis.Client
}

type AppOption func(*appOptions)

type appOptions struct {
	gateway flow.Gateway
	now     func() time.Time
}

// WithGateway replaces the LINE Messaging API client.
func WithGateway(g flow.Gateway) AppOption {
	return func(o *appOptions) {
		o.gateway = g
	}
}

// WithClock overrides the flow's time source.
func WithClock(now func() time.Time) AppOption {
	return func(o *appOptions) {
		o.now = now
	}
}

// BuildApp wires config into stores, the booking flow, the LINE webhook and
// the router. Without DATABASE_URL the repositories live in memory.
func BuildApp(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, opts ...AppOption) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}
	var o appOptions
	for _, opt := range opts {
		opt(&o)
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	fm := metrics.NewFlowMetrics(reg)

	app := &App{Registry: reg, Sessions: cfg.SessionBackend}
	app.redis = BuildRedisClient(ctx, cfg, logger, true)
	app.pool, err = ConnectPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	store, mem, err := BuildSessionStore(cfg, app.redis, logger)
	if err != nil {
		app.Close()
		return nil, err
	}
	locker := BuildLocker(cfg, app.redis)
	repos := BuildRepositories(app.pool, cfg, loc, logger)

	gateway := o.gateway
	if gateway == nil {
		client, err := BuildLineClient(cfg, logger, fm)
		if err != nil {
			app.Close()
			return nil, err
		}
		gateway = client
	}

	machineOpts := []flow.Option{
		flow.WithSettings(flow.Settings{
			TimeSlots:   cfg.TimeSlots,
			WindowDays:  cfg.BookingWindowDays,
			Location:    loc,
			ContactText: cfg.ContactText,
		}),
		flow.WithMetrics(fm),
	}
	if o.now != nil {
		machineOpts = append(machineOpts, flow.WithClock(o.now))
	}
	machine := flow.NewMachine(
		store,
		repos.Users,
		repos.Catalog,
		bookings.NewService(repos.Bookings, logger, fm),
		gateway,
		logger,
		machineOpts...,
	)

	dispatchOpts := []flow.DispatcherOption{
		flow.WithConcurrency(cfg.DispatchConcurrency),
		flow.WithDispatchMetrics(fm),
	}
	if repos.Processed != nil {
		dispatchOpts = append(dispatchOpts, flow.WithDedup(repos.Processed))
	}
	dispatcher := flow.NewDispatcher(machine, locker, logger, dispatchOpts...)
	app.Webhook = line.NewWebhookHandler(cfg.LineChannelSecret, dispatcher, logger, fm, cfg.DispatchTimeout)

	var limiter *httpmiddleware.RateLimiter
	if cfg.WebhookRateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.WebhookRateLimitRPS, cfg.WebhookRateLimitBurst)
	}

	checks := make(map[string]handlers.Check)
	if app.pool != nil {
		pool := app.pool
		checks["database"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	}
	if app.redis != nil {
		client := app.redis
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	app.Supervisor = NewSupervisor(logger)
	if mem != nil {
		app.Supervisor.Add("session-sweeper", func(ctx context.Context) {
			mem.Run(ctx, cfg.SessionSweepInterval)
		})
	}
	if repos.Processed != nil {
		app.Supervisor.Add("processed-events-purger", func(ctx context.Context) {
			repos.Processed.RunPurger(ctx, processedPurgeInterval, processedRetention, func(err error) {
				logger.Warn("failed to purge processed events", "error", err)
			})
		})
	}
	if limiter != nil {
		app.Supervisor.Add("rate-limit-evictor", func(ctx context.Context) {
			limiter.Run(ctx, limiterEvictInterval)
		})
	}

	var admin *handlers.AdminConversationsHandler
	if cfg.AdminJWTSecret != "" {
		admin = handlers.NewAdminConversationsHandler(store, logger)
	} else {
		logger.Info("ADMIN_JWT_SECRET not set; admin conversation api disabled")
	}

	app.Handler = router.New(&router.Config{
		Logger:             logger,
		Health:             handlers.NewHealthHandler(checks),
		LineWebhook:        app.Webhook,
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		WebhookLimiter:     limiter,
		AdminConversations: admin,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.AdminCORSOrigins,
	})
	return app, nil
}

// Close releases the database pool and Redis client.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
}
