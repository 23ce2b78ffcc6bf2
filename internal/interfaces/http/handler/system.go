package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/postrack/backend/internal/infrastructure/scheduler"
	"github.com/postrack/backend/internal/interfaces/http/dto"
	"gorm.io/gorm"
)

// SystemHandler handles system-related API endpoints
type SystemHandler struct {
	BaseHandler
	db        *gorm.DB
	poller    *scheduler.FeedPoller
	version   string
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler. The poller is optional;
// when nil the info endpoint omits feed statistics.
func NewSystemHandler(db *gorm.DB, poller *scheduler.FeedPoller, version string) *SystemHandler {
	return &SystemHandler{
		db:        db,
		poller:    poller,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status   string `json:"status" example:"healthy"`
	Time     string `json:"time" example:"2026-01-23T12:00:00Z"`
	Database string `json:"database" example:"ok"`
}

// Health godoc
// @Summary      Health check
// @Description  Reports whether the API and its database are reachable
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=HealthResponse}
// @Failure      503 {object} dto.Response{data=HealthResponse}
// @Router       /system/health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	now := time.Now().Format(time.RFC3339)

	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(c.Request.Context())
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, dto.NewSuccessResponse(HealthResponse{
			Status:   "unhealthy",
			Time:     now,
			Database: "error",
		}))
		return
	}

	h.Success(c, HealthResponse{
		Status:   "healthy",
		Time:     now,
		Database: "ok",
	})
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string         `json:"name" example:"postrack"`
	Version   string         `json:"version" example:"1.0.0"`
	GoVersion string         `json:"go_version" example:"go1.24.0"`
	Uptime    string         `json:"uptime" example:"1h30m45s"`
	Feed      map[string]any `json:"feed,omitempty"`
}

// GetSystemInfo godoc
// @Summary      Get system information
// @Description  Returns version, uptime and payment feed poller statistics
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=SystemInfoResponse}
// @Router       /system/info [get]
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      "postrack",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.poller != nil {
		info.Feed = h.poller.Stats()
	}

	h.Success(c, info)
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message" example:"pong"`
	Timestamp string `json:"timestamp" example:"2026-01-23T12:00:00Z"`
}

// Ping godoc
// @Summary      Ping the API
// @Description  Simple ping endpoint to check if the API is responsive
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=PingResponse}
// @Router       /system/ping [get]
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
