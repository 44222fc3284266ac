// Package http wires the public REST surface onto a chi router.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mbenites/dropstore/internal/service"
	"github.com/mbenites/dropstore/pkg/health"
	"github.com/mbenites/dropstore/pkg/middleware"
)

// RouterConfig bundles everything the router needs.
type RouterConfig struct {
	Catalog     *service.CatalogService
	Carts       *service.CartService
	Health      *health.Handler
	Broadcaster CatalogBroadcaster
	// WS serves the realtime push channel; nil disables the endpoint.
	WS         http.HandlerFunc
	Logger     *slog.Logger
	CORS       middleware.CORSConfig
	PprofCIDRs []string
}

// NewRouter creates a chi router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(cfg.Logger))
	r.Use(middleware.PrometheusMetrics())
	r.Use(middleware.Tracing("dropstore"))
	r.Use(middleware.RequestLogger(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORS))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, cfg.Logger)

	productHandler := NewProductHandler(cfg.Catalog, cfg.Broadcaster, cfg.Logger)

	r.Route("/api/products", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Get("/", productHandler.ListProducts)
		r.Get("/drops/current", productHandler.CurrentDrop)
		r.Get("/{pid}", productHandler.GetProduct)
		r.Post("/", productHandler.CreateProduct)
		r.Put("/{pid}", productHandler.UpdateProduct)
		r.Delete("/{pid}", productHandler.DeleteProduct)
	})

	cartHandler := NewCartHandler(cfg.Carts, cfg.Logger)

	r.Route("/api/carts", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", cartHandler.CreateCart)
		r.Get("/{cid}", cartHandler.GetCart)
		r.Put("/{cid}", cartHandler.ReplaceProducts)
		r.Delete("/{cid}", cartHandler.ClearCart)

		r.Post("/{cid}/product/{pid}", cartHandler.AddProduct)
		r.Put("/{cid}/products/{pid}", cartHandler.UpdateQuantity)
		r.Delete("/{cid}/products/{pid}", cartHandler.RemoveProduct)
	})

	if cfg.WS == nil {
		return r
	}

	// The upgrade handshake must not pass through the timeout or compression
	// middleware. Mounting the API under a parent router keeps the push
	// channel outside that chain, with only panic recovery in front.
	root := chi.NewRouter()
	root.With(middleware.Recovery(cfg.Logger)).Get("/ws", cfg.WS)
	root.Mount("/", r)
	return root
}
