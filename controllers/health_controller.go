// controllers/health_controller.go
package controllers

import (
	"context"
	"memorybox/database"
	"memorybox/utils"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

const apiVersion = "1.0.0"

type HealthController struct {
	redis     *redis.Client
	startTime time.Time
}

func NewHealthController(redis *redis.Client) *HealthController {
	return &HealthController{
		redis:     redis,
		startTime: time.Now(),
	}
}

// HealthCheck reports service health
// @Summary Health check
// @Description Report database and cache connectivity
// @Tags Health
// @Produce json
// @Success 200 {object} models.HealthResponse
// @Router /health [get]
func (hc *HealthController) HealthCheck(c *gin.Context) {
	services := map[string]string{
		"mongodb": "healthy",
		"redis":   "healthy",
	}

	if !database.IsConnected() {
		services["mongodb"] = "unhealthy"
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := hc.redis.Ping(ctx).Err(); err != nil {
		services["redis"] = "unhealthy"
	}

	uptime := time.Since(hc.startTime).Round(time.Second).String()
	response := utils.HealthCheckResponse(services, apiVersion, uptime)

	status := 200
	if response.Status != "healthy" {
		status = 503
	}
	c.JSON(status, response)
}
