package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/guttosm/tickerql/internal/logger"
)

// HealthHandler provides liveness and readiness endpoints.
//
// /healthz always answers 200. /readyz answers 200 only when every check passes.
type HealthHandler struct {
	checks map[string]func(ctx context.Context) error
}

// NewHealthHandler builds a HealthHandler with the database check.
//
// Parameters:
//   - dbPing (func(ctx context.Context) error): usually (*sql.DB).PingContext.
//
// Returns:
//   - *HealthHandler: call AddCheck to register further dependencies.
func NewHealthHandler(dbPing func(ctx context.Context) error) *HealthHandler {
	h := &HealthHandler{checks: map[string]func(ctx context.Context) error{}}
	if dbPing != nil {
		h.checks["postgres"] = dbPing
	}
	return h
}

// AddCheck registers a named readiness dependency.
func (h *HealthHandler) AddCheck(name string, check func(ctx context.Context) error) {
	h.checks[name] = check
}

// Register mounts the probes on r.
//
// Routes:
//   - GET /healthz: always 200.
//   - GET /readyz: 200 {"status":"ready"} or 503 {"status":"degraded","failed":[...]}.
func (h *HealthHandler) Register(r *gin.Engine) {
	// @Summary      Liveness probe
	// @Tags         health
	// @Produce      json
	// @Success      200  {object}  map[string]string
	// @Router       /healthz [get]
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// @Summary      Readiness probe
	// @Tags         health
	// @Produce      json
	// @Success      200  {object}  map[string]string
	// @Failure      503  {object}  map[string]interface{}
	// @Router       /readyz [get]
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		var failed []string
		for name, check := range h.checks {
			if err := check(ctx); err != nil {
				logger.L().Warn().Err(err).Str("check", name).Msg("readiness check failed")
				failed = append(failed, name)
			}
		}
		if len(failed) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "failed": failed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
}
