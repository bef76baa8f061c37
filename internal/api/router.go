package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/goout-id/goout/internal/app"
	iauth "github.com/goout-id/goout/internal/auth"
	"github.com/goout-id/goout/internal/cache"
	"github.com/goout-id/goout/internal/handlers"
	"github.com/goout-id/goout/internal/middleware"
	"github.com/goout-id/goout/internal/monitoring"
	"github.com/goout-id/goout/internal/services"
	"github.com/goout-id/goout/internal/storage"
	"github.com/goout-id/goout/internal/verification"
)

// Dependencies are the collaborators the router wires into handlers.
// Cache, Uploader, Health and OIDC are optional.
type Dependencies struct {
	DB       *gorm.DB
	Config   *app.Config
	JWT      *iauth.JWTService
	Verifier *verification.Service
	Cache    cache.Store
	Uploader storage.Uploader
	Health   *monitoring.HealthManager
	OIDC     handlers.IdentityLogin
}

// NewRouter builds the Gin engine, wires middleware and registers all routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.JWT == nil {
		return nil, fmt.Errorf("jwt service must be provided")
	}
	if deps.Verifier == nil {
		return nil, fmt.Errorf("verification service must be provided")
	}
	if deps.Config == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	cfg := deps.Config

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowedOrigins...))
	if cfg.Server.RateLimit.Enabled && deps.Cache != nil {
		r.Use(middleware.RateLimit(deps.Cache, cfg.Server.RateLimit.Requests, cfg.Server.RateLimit.Window))
	}
	r.NoRoute(middleware.NotFoundHandler)

	registerHealthRoutes(r, cfg, deps.Health)
	if cfg.Monitoring.Prometheus.Enabled {
		endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	users, err := services.NewUserService(deps.DB, deps.Verifier)
	if err != nil {
		return nil, err
	}

	authDeps := authRouteDeps{
		AuthHandler: handlers.NewAuthHandler(users, deps.Verifier, deps.JWT),
		RequireAuth: middleware.Auth(deps.JWT),
	}
	if deps.OIDC != nil {
		authDeps.OIDCHandler = handlers.NewOIDCHandler("oidc", deps.OIDC, users, deps.JWT)
	}
	registerAuthRoutes(r, authDeps)

	catalogDeps, err := newCatalogRouteDeps(deps.DB, deps.Uploader)
	if err != nil {
		return nil, err
	}
	registerCatalogRoutes(r.Group("/api/v1"), catalogDeps)

	return r, nil
}
