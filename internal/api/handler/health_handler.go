package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const readinessTimeout = 3 * time.Second

// HealthHandler serves the liveness probe.
type HealthHandler struct{}

func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Liveness handles GET /health.
//
// @Summary      Liveness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *HealthHandler) Liveness(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// probe pings one backing service. A nil ping means the service is not
// configured for this process.
type probe struct {
	name string
	ping func(ctx context.Context) error
}

// HealthDependenciesHandler serves the readiness probe over the storage
// backends the process was started with.
type HealthDependenciesHandler struct {
	probes []probe
}

// NewHealthDependenciesHandler checks db and rdb when they are non-nil.
func NewHealthDependenciesHandler(db *mongo.Database, rdb *redis.Client) *HealthDependenciesHandler {
	mongoProbe := probe{name: "mongodb"}
	if db != nil {
		mongoProbe.ping = func(ctx context.Context) error {
			return db.RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err()
		}
	}
	redisProbe := probe{name: "redis"}
	if rdb != nil {
		redisProbe.ping = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}
	return &HealthDependenciesHandler{probes: []probe{mongoProbe, redisProbe}}
}

type dependencyStatus struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type readinessResponse struct {
	Status       string                      `json:"status"`
	Dependencies map[string]dependencyStatus `json:"dependencies"`
}

// Readiness handles GET /health/ready. Any failing dependency turns the
// answer into 503 "degraded"; disabled ones do not count.
//
// @Summary      Readiness probe
// @Tags         health
// @Produce      json
// @Success      200  {object}  readinessResponse
// @Failure      503  {object}  readinessResponse
// @Router       /health/ready [get]
func (h *HealthDependenciesHandler) Readiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessTimeout)
	defer cancel()

	resp := readinessResponse{
		Status:       "ok",
		Dependencies: make(map[string]dependencyStatus, len(h.probes)),
	}
	for _, p := range h.probes {
		if p.ping == nil {
			resp.Dependencies[p.name] = dependencyStatus{Status: "disabled"}
			continue
		}
		if err := p.ping(ctx); err != nil {
			resp.Dependencies[p.name] = dependencyStatus{Status: "unhealthy", Error: err.Error()}
			resp.Status = "degraded"
			continue
		}
		resp.Dependencies[p.name] = dependencyStatus{Status: "ok"}
	}

	code := http.StatusOK
	if resp.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, resp)
}
