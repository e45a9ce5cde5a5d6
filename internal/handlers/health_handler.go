package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service health
type HealthHandler struct {
	db    *gorm.DB
	queue Pinger
}

// NewHealthHandler creates a new health handler. queue may be nil.
func NewHealthHandler(db *gorm.DB, queue Pinger) *HealthHandler {
	return &HealthHandler{db: db, queue: queue}
}

// Health checks the database and the job queue
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{"database": "ok"}
	healthy := true

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	if err != nil {
		checks["database"] = "unavailable"
		healthy = false
	}

	if h.queue != nil {
		checks["queue"] = "ok"
		if err := h.queue.Ping(ctx); err != nil {
			checks["queue"] = "unavailable"
			healthy = false
		}
	}

	status := http.StatusOK
	checks["status"] = "ok"
	if !healthy {
		status = http.StatusServiceUnavailable
		checks["status"] = "degraded"
	}
	c.JSON(status, checks)
}
