package api

import (
	"strings"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.mongodb.org/mongo-driver/mongo"

	_ "github.com/livraison/courier-tracking/docs"
	"github.com/livraison/courier-tracking/internal/api/handler"
	"github.com/livraison/courier-tracking/internal/api/middleware"
	"github.com/livraison/courier-tracking/internal/core/ports"
)

const wsTrackingPath = "/ws/tracking/"

// Dependencies is everything the router wires into handlers.
// Mongo and Redis are only used by the readiness probe and may be nil.
type Dependencies struct {
	APIPrefix  string
	Couriers   ports.CourierService
	Positions  ports.PositionService
	Dispatcher handler.PositionDispatcher
	Hub        handler.LiveHub
	Limiter    *middleware.LimiterStore
	Mongo      *mongo.Database
	Redis      *redis.Client
	Logger     zerolog.Logger
	// Registry receives the HTTP metrics. Nil means the default registry.
	Registry *prometheus.Registry
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	prefix := "/" + strings.Trim(deps.APIPrefix, "/")

	// REST and live routes are registered with a trailing slash; accept both forms.
	e.Pre(echomiddleware.AddTrailingSlashWithConfig(echomiddleware.TrailingSlashConfig{
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return !(p == prefix || strings.HasPrefix(p, prefix+"/") || p+"/" == wsTrackingPath)
		},
	}))

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(middleware.RequestLogger(deps.Logger.With().Str("component", "http").Logger()))
	e.Use(prometheusMiddleware(deps.Registry))

	// --- Dependencies ---
	courierHandler := handler.NewCourierHandler(deps.Couriers)
	positionHandler := handler.NewPositionHandler(deps.Positions, deps.Dispatcher)
	liveHandler := handler.NewLiveHandler(deps.Hub, deps.Logger.With().Str("component", "live").Logger())
	limit := middleware.RateLimit(deps.Limiter)

	// --- REST routes ---
	g := e.Group(prefix)

	g.GET("/livreurs/", courierHandler.List)
	g.POST("/livreurs/", courierHandler.Create)
	g.GET("/livreurs/:id/", courierHandler.Get)
	g.PUT("/livreurs/:id/", courierHandler.Update)
	g.GET("/livreurs/:id/positions/", positionHandler.History)

	g.GET("/positions/", positionHandler.Latest)
	g.POST("/positions/", positionHandler.Submit, limit)
	g.POST("/positions/batch/", positionHandler.SubmitBatch, limit)
	g.GET("/positions/stream/", liveHandler.Stream)

	// --- Live feed ---
	e.GET(wsTrackingPath, liveHandler.WebSocket)

	// --- Health probes ---
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Mongo, deps.Redis)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?

	// --- Observability & docs ---
	e.GET("/metrics", prometheusHandler(deps.Registry))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

func prometheusMiddleware(reg *prometheus.Registry) echo.MiddlewareFunc {
	cfg := echoprometheus.MiddlewareConfig{
		Subsystem: "http",
		Skipper: func(c echo.Context) bool {
			p := c.Path()
			return p == "/metrics" || p == wsTrackingPath || strings.HasPrefix(p, "/swagger")
		},
	}
	if reg != nil {
		cfg.Registerer = reg
	}
	return echoprometheus.NewMiddlewareWithConfig(cfg)
}

func prometheusHandler(reg *prometheus.Registry) echo.HandlerFunc {
	if reg == nil {
		return echoprometheus.NewHandler()
	}
	return echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: reg})
}
