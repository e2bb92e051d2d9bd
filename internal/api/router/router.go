package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/spa-line-booking/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/spa-line-booking/internal/http/middleware"
	"github.com/wolfman30/spa-line-booking/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Health             http.Handler
	LineWebhook        http.Handler
	MetricsHandler     http.Handler
	WebhookLimiter     *httpmiddleware.RateLimiter
	AdminConversations *handlers.AdminConversationsHandler
	AdminAuthSecret    string
	CORSAllowedOrigins []string
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints (webhooks, health checks)
	r.Group(func(public chi.Router) {
		health := cfg.Health
		if health == nil {
			health = handlers.NewHealthHandler(nil)
		}
		public.Method(http.MethodGet, "/health", health)
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.LineWebhook != nil {
			webhook := public
			if cfg.WebhookLimiter != nil {
				webhook = public.With(cfg.WebhookLimiter.Middleware)
			}
			webhook.Method(http.MethodPost, "/webhooks/line", cfg.LineWebhook)
		}
	})

	// Admin routes (protected by HMAC JWT)
	if cfg.AdminAuthSecret != "" && cfg.AdminConversations != nil {
		r.Route("/admin", func(admin chi.Router) {
			if len(cfg.CORSAllowedOrigins) > 0 {
				admin.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
			}
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
			admin.Get("/conversations/{lineUserID}", cfg.AdminConversations.GetConversation)
			admin.Delete("/conversations/{lineUserID}", cfg.AdminConversations.ResetConversation)
		})
	}

	return r
}
