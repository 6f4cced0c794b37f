package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vendorhub/marketplace-backend/api/controllers"
	"github.com/vendorhub/marketplace-backend/api/middleware"
	authsvc "github.com/vendorhub/marketplace-backend/internal/auth"
	categorysvc "github.com/vendorhub/marketplace-backend/internal/categories"
	"github.com/vendorhub/marketplace-backend/internal/ledger"
	productsvc "github.com/vendorhub/marketplace-backend/internal/products"
	usersvc "github.com/vendorhub/marketplace-backend/internal/users"
	pkgAuth "github.com/vendorhub/marketplace-backend/pkg/auth"
	"github.com/vendorhub/marketplace-backend/pkg/config"
	"github.com/vendorhub/marketplace-backend/pkg/logger"
	"github.com/vendorhub/marketplace-backend/pkg/redis"
)

// Deps bundles everything the router wires into handlers.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DB              controllers.Pinger
	Redis           *redis.Client
	MetricsGatherer prometheus.Gatherer

	AuthService     authsvc.Service
	UsersService    usersvc.Service
	CategoryService categorysvc.Service
	ProductService  productsvc.Service
	LedgerService   ledger.Service
}

func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.AuthRateLimitPolicy{
		Scope:      "login",
		Window:     cfg.AuthRateLimit.LoginWindow,
		IPLimit:    int64(cfg.AuthRateLimit.LoginIPLimit),
		EmailLimit: int64(cfg.AuthRateLimit.LoginEmailLimit),
	}
	registerPolicy := middleware.AuthRateLimitPolicy{
		Scope:      "register",
		Window:     cfg.AuthRateLimit.RegisterWindow,
		IPLimit:    int64(cfg.AuthRateLimit.RegisterIPLimit),
		EmailLimit: int64(cfg.AuthRateLimit.RegisterEmailLimit),
	}

	var limiter middleware.WindowLimiter
	var idempotencyStore redis.IdempotencyStore
	healthDeps := map[string]controllers.Pinger{"db": deps.DB}
	if deps.Redis != nil {
		limiter = deps.Redis
		idempotencyStore = deps.Redis
		healthDeps["redis"] = deps.Redis
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, healthDeps))
	})

	if deps.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(limiter, loginPolicy, logg)).
			Post("/login", controllers.AuthLogin(deps.AuthService, logg))
		r.With(
			middleware.AuthRateLimit(limiter, registerPolicy, logg),
			middleware.Idempotency(idempotencyStore, cfg.Gateway.IdempotencyTTL, logg),
		).Post("/register", controllers.AuthRegister(deps.AuthService, logg))
	})

	// Catalog reads are public; anyone can browse without a token.
	r.Route("/api/v1/categories", func(r chi.Router) {
		r.Get("/", controllers.CategoryList(deps.CategoryService, logg))
		r.Get("/parents", controllers.CategoryParents(deps.CategoryService, logg))
		r.Get("/tree", controllers.CategoryTree(deps.CategoryService, logg))
		r.Get("/{categoryID}", controllers.CategoryGet(deps.CategoryService, logg))
		r.Get("/{categoryID}/subcategories", controllers.CategorySubcategories(deps.CategoryService, logg))

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.Auth(cfg.JWT, logg),
				middleware.RequireCapability(pkgAuth.CapManageCatalog, logg),
			)
			r.Post("/", controllers.CategoryCreate(deps.CategoryService, logg))
			r.Patch("/{categoryID}", controllers.CategoryUpdate(deps.CategoryService, logg))
			r.Delete("/{categoryID}", controllers.CategoryDelete(deps.CategoryService, logg))
		})
	})

	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ProductList(deps.ProductService, logg))
		r.Get("/search", controllers.ProductSearch(deps.ProductService, logg))
		r.Get("/category/{categoryID}", controllers.ProductsByCategory(deps.ProductService, logg))
		r.Get("/{productID}", controllers.ProductGet(deps.ProductService, logg))
		r.Get("/{productID}/stock", controllers.StockGet(deps.LedgerService, cfg.Gateway.StockCallTimeout, logg))

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.Auth(cfg.JWT, logg),
				middleware.RequireCapability(pkgAuth.CapManageCatalog, logg),
			)
			r.Post("/", controllers.ProductCreate(deps.ProductService, logg))
			r.Patch("/{productID}", controllers.ProductUpdate(deps.ProductService, logg))
			r.Delete("/{productID}", controllers.ProductDelete(deps.ProductService, logg))
		})
	})

	r.Route("/api/v1/stock", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Get("/{productID}", controllers.StockGet(deps.LedgerService, cfg.Gateway.StockCallTimeout, logg))

		r.Group(func(r chi.Router) {
			r.Use(
				middleware.RequireCapability(pkgAuth.CapManageStock, logg),
				middleware.Idempotency(idempotencyStore, cfg.Gateway.IdempotencyTTL, logg),
			)
			r.Post("/reduce", controllers.StockReduce(deps.LedgerService, cfg.Gateway.StockCallTimeout, logg))
			r.Post("/rollback", controllers.StockRollback(deps.LedgerService, cfg.Gateway.StockCallTimeout, logg))
			r.Post("/increase", controllers.StockIncrease(deps.LedgerService, cfg.Gateway.StockCallTimeout, logg))
		})
	})

	r.Route("/api/v1/users", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Get("/me", controllers.UsersMe(deps.UsersService, logg))
		r.Patch("/me/profile", controllers.UsersUpdateProfile(deps.UsersService, logg))
	})

	return r
}
