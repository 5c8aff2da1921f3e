package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/mercado-backend/api/controllers"
	"github.com/angelmondragon/mercado-backend/api/middleware"
	"github.com/angelmondragon/mercado-backend/internal/admin"
	"github.com/angelmondragon/mercado-backend/internal/catalog"
	"github.com/angelmondragon/mercado-backend/internal/categories"
	"github.com/angelmondragon/mercado-backend/internal/events"
	"github.com/angelmondragon/mercado-backend/internal/identity"
	products "github.com/angelmondragon/mercado-backend/internal/products"
	"github.com/angelmondragon/mercado-backend/internal/users"
	"github.com/angelmondragon/mercado-backend/internal/vendors"
	"github.com/angelmondragon/mercado-backend/pkg/auth"
	"github.com/angelmondragon/mercado-backend/pkg/config"
	"github.com/angelmondragon/mercado-backend/pkg/logger"
	"github.com/angelmondragon/mercado-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/mercado-backend/pkg/redis"
)

// Deps is everything the HTTP surface needs. Nil clients disable the feature
// they back; nil services answer 500.
type Deps struct {
	Config *config.Config
	Logger *logger.Logger

	DB      controllers.Pinger
	Redis   *pkgredis.Client
	Storage controllers.Pinger

	Registry    *prometheus.Registry
	HTTPMetrics *metrics.HTTPMetrics

	Verifier *auth.Verifier
	Identity *identity.Service

	Users          users.Service
	Vendors        vendors.Service
	Categories     categories.Service
	Products       products.Service
	PublicProducts products.PublicService
	Events         events.Service
	Catalog        catalog.Service
	Media          controllers.MediaService
	Admin          admin.Service
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger
	r := chi.NewRouter()

	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
	)
	if d.Verifier != nil && d.Identity != nil {
		r.Use(middleware.Session(d.Verifier, d.Identity, cfg.Identity.CookieName, logg))
	}

	var (
		idempotencyStore pkgredis.IdempotencyStore
		rateStore        pkgredis.RateLimiter
		redisPinger      controllers.Pinger
	)
	if d.Redis != nil {
		idempotencyStore = d.Redis
		rateStore = d.Redis
		redisPinger = d.Redis
	}

	eventsPolicy := middleware.NewRateLimitPolicy("events", cfg.RateLimit.EventsWindow, cfg.RateLimit.EventsIPMax)
	searchPolicy := middleware.NewRateLimitPolicy("search", cfg.RateLimit.SearchWindow, cfg.RateLimit.SearchIPMax)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"db":      d.DB,
			"redis":   redisPinger,
			"storage": d.Storage,
		}))
	})
	if d.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{Registry: d.Registry}))
	}
	r.Get("/uploads/*", controllers.ServeUpload(d.Media, logg))

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Route("/public", func(r chi.Router) {
			r.Get("/products", controllers.PublicProducts(d.PublicProducts, logg))
			r.Get("/products/{slug}", controllers.PublicProductDetail(d.PublicProducts, logg))
			r.Get("/products/{slug}/similar", controllers.PublicSimilarProducts(d.PublicProducts, logg))
			r.Get("/products/{slug}/more-from-vendor", controllers.PublicMoreFromVendor(d.PublicProducts, logg))
			r.Get("/best-sellers", controllers.PublicBestSellers(d.PublicProducts, logg))
			r.Get("/vendors", controllers.PublicVendors(d.Vendors, logg))
			r.Get("/vendors/{slug}", controllers.PublicVendorDetail(d.Vendors, d.PublicProducts, logg))
			r.Get("/categories", controllers.PublicCategories(d.Categories, logg))
			r.Get("/share/{slug}", controllers.PublicSharedCatalog(d.Catalog, logg))
		})

		r.With(middleware.RateLimit(eventsPolicy, rateStore, logg)).Post("/events", controllers.CreateEvent(d.Events, logg))
		r.With(middleware.RateLimit(searchPolicy, rateStore, logg)).Get("/products/search", controllers.SearchProducts(d.PublicProducts, logg))
		r.Get("/images/proxy", controllers.ImageProxy(d.Media, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSession(logg))

			r.Get("/me", controllers.Me(d.Users, logg))
			r.Post("/user/phone", controllers.UpdatePhone(d.Users, logg))
			r.Get("/products/{productId}", controllers.GetProduct(d.Products, logg))

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireVendor(d.Vendors, logg))

				// flat paths: /products and /events also carry public routes above
				r.Get("/products", controllers.ListProducts(d.Products, logg))
				r.Post("/products", controllers.CreateProduct(d.Products, logg))
				r.Patch("/products/{productId}", controllers.UpdateProduct(d.Products, logg))
				r.Delete("/products/{productId}", controllers.DeleteProduct(d.Products, logg))
				r.Post("/products/{productId}/sale", controllers.RecordSale(d.Products, logg))
				r.Get("/events", controllers.ListEvents(d.Events, logg))
				r.Post("/events/{eventId}/mark-sold", controllers.MarkEventSold(d.Events, logg))
				r.Post("/events/{eventId}/discard", controllers.DiscardEvent(d.Events, logg))
				r.Post("/catalog/share", controllers.ShareCatalog(d.Catalog, logg))
				r.Get("/catalog/share/qr", controllers.ShareCatalogQR(d.Catalog, logg))
				r.Post("/uploads", controllers.PresignUpload(d.Media, logg))
				r.Post("/uploads/direct", controllers.DirectUpload(d.Media, logg))
				r.Patch("/vendors/me", controllers.UpdateVendorMe(d.Vendors, logg))
				r.With(middleware.RequirePhone(logg)).Get("/dashboard/stats", controllers.DashboardStats(d.Admin, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRoot(logg))

				r.Route("/categories", func(r chi.Router) {
					r.Get("/", controllers.ListCategories(d.Categories, logg))
					r.Post("/", controllers.CreateCategory(d.Categories, logg))
					r.Patch("/{id}", controllers.UpdateCategory(d.Categories, logg))
					r.Delete("/{id}", controllers.DeleteCategory(d.Categories, logg))
				})
				r.Route("/admin", func(r chi.Router) {
					r.Get("/overview", controllers.AdminOverview(d.Admin, logg))
					r.Get("/users", controllers.AdminUsers(d.Admin, logg))
					r.Get("/vendors", controllers.AdminVendors(d.Admin, logg))
				})
				r.Delete("/users/{id}", controllers.AdminDeleteUser(d.Admin, logg))
			})
		})
	})

	return r
}
