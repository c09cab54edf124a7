package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/fluxera/fluxera/internal/account"
	"github.com/fluxera/fluxera/internal/api/handler"
	"github.com/fluxera/fluxera/internal/api/middleware"
	"github.com/fluxera/fluxera/internal/asset"
	"github.com/fluxera/fluxera/internal/auth"
	"github.com/fluxera/fluxera/internal/dashboard"
	"github.com/fluxera/fluxera/internal/dashcache"
	"github.com/fluxera/fluxera/internal/guard"
	"github.com/fluxera/fluxera/internal/license"
	"github.com/fluxera/fluxera/internal/metrics"
)

// RouterDeps holds all dependencies needed by the router.
type RouterDeps struct {
	DBPinger    handler.DBPinger
	Version     string
	OpenAPISpec []byte
	Metrics     *metrics.Metrics

	AuthService *auth.Service
	UserRepo    auth.UserRepository
	AccountRepo account.Repository
	LicenseRepo license.Repository
	AssetRepo   asset.Repository
	Platform    guard.Platform
	Dashboard   *dashboard.Service
	Cache       *dashcache.Cache
}

// NewRouter creates and configures a Chi router with all middleware and routes.
func NewRouter(deps RouterDeps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}
	r.Use(middleware.Logger)
	r.Use(middleware.Recovery)

	healthHandler := handler.NewHealthHandler(deps.DBPinger, deps.Version)
	r.Get("/health", healthHandler.ServeHTTP)

	if len(deps.OpenAPISpec) > 0 {
		openapiHandler := handler.NewOpenAPIHandler(deps.OpenAPISpec)
		r.Get("/openapi.json", openapiHandler.ServeHTTP)
	}

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	if deps.AuthService == nil {
		return r
	}

	scope := handler.AccountScope{Accounts: deps.AccountRepo, Platform: deps.Platform}
	accountHandler := handler.NewAccountHandler(scope, deps.Dashboard)
	licenseHandler := handler.NewLicenseHandler(scope, deps.LicenseRepo, deps.Dashboard)
	assetHandler := handler.NewAssetHandler(scope, deps.AssetRepo, deps.Dashboard)
	dashboardHandler := handler.NewDashboardHandler(scope, deps.Dashboard)
	userHandler := handler.NewUserHandler(deps.AuthService, deps.UserRepo)
	cacheHandler := handler.NewCacheHandler(deps.Cache)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Auth(deps.AuthService))

		r.Get("/me", accountHandler.Me)

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", accountHandler.Create)
			r.Get("/", accountHandler.List)

			r.Route("/{slug}", func(r chi.Router) {
				r.Delete("/", accountHandler.Delete)
				r.Get("/members", accountHandler.Members)
				r.Post("/members", accountHandler.AddMember)
				r.Delete("/members/{userId}", accountHandler.RemoveMember)
				r.Get("/permissions", accountHandler.Permissions)

				r.Get("/licenses", licenseHandler.List)
				r.Post("/licenses", licenseHandler.Create)
				r.Get("/licenses/{id}", licenseHandler.Get)
				r.Delete("/licenses/{id}", licenseHandler.Delete)

				r.Get("/assets", assetHandler.List)
				r.Post("/assets", assetHandler.Create)
				r.Patch("/assets/{id}/status", assetHandler.UpdateStatus)
				r.Delete("/assets/{id}", assetHandler.Delete)

				r.Route("/dashboard", func(r chi.Router) {
					r.Get("/metrics", dashboardHandler.Metrics)
					r.Get("/trends", dashboardHandler.Trends)
					r.Get("/asset-status", dashboardHandler.AssetStatus)
					r.Get("/overview", dashboardHandler.Overview)
					r.Get("/widgets", dashboardHandler.Widgets)
					r.Put("/widgets", dashboardHandler.SaveWidgets)
				})
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireSuperuser())

			r.Route("/users", func(r chi.Router) {
				r.Post("/", userHandler.Create)
				r.Get("/", userHandler.List)
				r.Delete("/{id}", userHandler.Delete)
			})

			r.Get("/admin/cache", cacheHandler.Stats)
			r.Delete("/admin/cache", cacheHandler.Clear)
		})
	})

	return r
}
