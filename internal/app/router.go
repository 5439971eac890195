package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/forneria-pos/internal/cart"
	"github.com/noah-isme/forneria-pos/internal/catalog"
	"github.com/noah-isme/forneria-pos/internal/checkout"
	"github.com/noah-isme/forneria-pos/internal/health"
	"github.com/noah-isme/forneria-pos/internal/obs"
	"github.com/noah-isme/forneria-pos/internal/security"
)

// RouterOptions selects the optional middleware layers.
type RouterOptions struct {
	Tracing     bool
	Metrics     *obs.HTTPMetrics
	SecureCSRF  bool
	HealthProbe time.Duration
}

// NewRouter mounts the terminal's HTTP surface.
func NewRouter(d *Dependencies, opts RouterOptions) http.Handler {
	cfg := d.Config

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(obs.Terminal(cfg.TerminalID))
	r.Use(obs.RoutePatternMiddleware)
	if opts.Tracing {
		r.Use(obs.TracingMiddleware)
	}
	if opts.Metrics != nil {
		r.Use(obs.HTTPObs{Metrics: opts.Metrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: d.Logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg.CORSAllowedOrigins),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", cfg.CSRFHeaderName, "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(security.Headers{Enable: true, EnableHSTS: true, NoStore: true}.Middleware)

	if opts.Metrics != nil {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{Checker: d, StorageTimeout: opts.HealthProbe, BackendTimeout: cfg.BackendTimeout}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	cartHandler := &cart.Handler{Store: d.Cart, TaxBps: cfg.TaxRateBPS}
	checkoutHandler := &checkout.Handler{Svc: d.Checkout}
	catalogHandler := &catalog.Handler{Svc: d.Catalog}

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: cfg.BodyLimitBytes}.Middleware)
		v.Use(security.CSRF{Cookie: cfg.CSRFCookieName, Header: cfg.CSRFHeaderName, Secure: opts.SecureCSRF}.Middleware)

		v.Route("/cart", func(c chi.Router) {
			c.Get("/", cartHandler.Get)
			c.Delete("/", cartHandler.Clear)
			c.Get("/totals", cartHandler.Totals)
			c.Post("/items", cartHandler.AddItem)
			c.Delete("/items/{id}", cartHandler.RemoveItem)
		})

		v.Route("/checkout", func(c chi.Router) {
			c.Get("/preview", checkoutHandler.Preview)
			c.Get("/time", checkoutHandler.ServerTime)
			c.Post("/", checkoutHandler.Submit)
		})

		v.Get("/products/{id}", catalogHandler.Product)
	})

	return r
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}
