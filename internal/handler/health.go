package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/SergeiKhy/multidomain-shortener/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const readinessTimeout = 2 * time.Second

// Pinger проверка доступности хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db     Pinger
	clicks service.ClickProcessor
	logger *zap.Logger
}

func NewHealthHandler(db Pinger, clicks service.ClickProcessor, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{db: db, clicks: clicks, logger: logger}
}

// HealthCheck godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health/ [get]
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "url-shortener",
	})
}

// Ready проверяет базу и отдаёт состояние очереди кликов
func (h *HealthHandler) Ready(c *gin.Context) {
	resp := gin.H{"status": "ok"}
	if h.clicks != nil {
		resp["clicks"] = h.clicks.QueueStats()
	}

	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("База недоступна", zap.Error(err))
			resp["status"] = "unavailable"
			resp["database"] = "down"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
		resp["database"] = "up"
	}

	c.JSON(http.StatusOK, resp)
}

// APIInfo краткое описание API
func APIInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "URL Shortener",
		"version": "1.0.0",
		"endpoints": gin.H{
			"create_short_url": "/api/shorten/",
			"bulk_create":      "/api/shorten/bulk/",
			"list_urls":        "/api/urls/",
			"update_url":       "/api/urls/{short_code}/",
			"get_stats":        "/api/stats/{short_code}/",
			"qr_code":          "/api/qr/{short_code}/",
			"redirect":         "/{short_code}/",
		},
	})
}
