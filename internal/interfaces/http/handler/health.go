package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	redisclient "base-builder-api/internal/infrastructure/persistence/redis"
)

// HealthHandler 健康检查处理器
type HealthHandler struct {
	redis   *redisclient.Client
	version string
	started time.Time
}

// NewHealthHandler 创建健康检查处理器，redis 可以为 nil
func NewHealthHandler(redis *redisclient.Client, version string) *HealthHandler {
	return &HealthHandler{
		redis:   redis,
		version: version,
		started: time.Now(),
	}
}

// Health 综合健康状态
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
		"uptime":  time.Since(h.started).String(),
	})
}

// Ready 就绪检查，已启用缓存时探测 Redis
func (h *HealthHandler) Ready(c *gin.Context) {
	checks := gin.H{}
	status := http.StatusOK

	if h.redis != nil {
		if err := h.redis.HealthCheck(c.Request.Context()); err != nil {
			checks["redis"] = "unavailable: " + err.Error()
			status = http.StatusServiceUnavailable
		} else {
			checks["redis"] = "ok"
		}
	}

	c.JSON(status, gin.H{
		"ready":  status == http.StatusOK,
		"checks": checks,
	})
}

// Live 存活检查
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alive": true})
}
