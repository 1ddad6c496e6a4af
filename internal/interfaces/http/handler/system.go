package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/erp/connector/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ContactSource reports when the Manager last completed an authenticated
// delivery.
type ContactSource interface {
	Last() (time.Time, bool)
}

// SystemHandler handles health and info endpoints
type SystemHandler struct {
	db        Pinger
	contacts  ContactSource
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(db Pinger, contacts ContactSource) *SystemHandler {
	return &SystemHandler{
		db:        db,
		contacts:  contacts,
		startTime: time.Now(),
	}
}

// Healthz reports process liveness
func (h *SystemHandler) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz reports whether the connector can take deliveries
func (h *SystemHandler) Readyz(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"reason": "database unreachable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name          string `json:"name"`
	GoVersion     string `json:"go_version"`
	Uptime        string `json:"uptime"`
	LastContactAt string `json:"last_contact_at,omitempty"`
}

// Info returns basic process information, including the last time the
// Manager got a delivery through authentication.
func (h *SystemHandler) Info(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "erp-connector",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.contacts != nil {
		if last, ok := h.contacts.Last(); ok {
			info.LastContactAt = last.UTC().Format(time.RFC3339)
		}
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}
