package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lunarlash/leadline/internal/http/handlers"
	httpmiddleware "github.com/lunarlash/leadline/internal/http/middleware"
	"github.com/lunarlash/leadline/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger         *logging.Logger
	Intake         *handlers.IntakeHandler
	AdminLeads     *handlers.AdminLeadsHandler
	MetricsHandler http.Handler

	CORSAllowedOrigins []string

	Identity       httpmiddleware.IdentityConfig
	AdminAllowlist []string
	AdminRole      string
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public surface: health, metrics, and the intake form.
	r.Group(func(public chi.Router) {
		public.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.Intake != nil {
			public.Post("/leads", cfg.Intake.Submit)
		}
	})

	// Admin surface: identity-verified and allowlist-gated.
	if cfg.AdminLeads != nil {
		r.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.IdentityJWT(cfg.Identity))
			admin.Use(httpmiddleware.AdminOnly(cfg.AdminAllowlist, cfg.AdminRole))
			admin.Get("/admin/leads", cfg.AdminLeads.List)
			admin.Post("/admin/leads/update", cfg.AdminLeads.Update)
			admin.Patch("/admin/leads/update", cfg.AdminLeads.Update)
		})
	}

	return r
}
