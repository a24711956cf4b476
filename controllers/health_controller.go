package controllers

import (
	"context"
	"net/http"
	"time"

	"mediconnect/database"
	"mediconnect/models"
	"mediconnect/workers"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

const serviceVersion = "1.0.0"

type HealthController struct {
	redis     *redis.Client
	worker    *workers.NotificationWorker
	startTime time.Time
}

func NewHealthController(redisClient *redis.Client, worker *workers.NotificationWorker) *HealthController {
	return &HealthController{
		redis:     redisClient,
		worker:    worker,
		startTime: time.Now(),
	}
}

// HealthCheck reports the liveness of the service and its backing
// stores. A degraded store turns the overall status to "degraded" but
// still answers 200 so load balancers keep routing.
func (hc *HealthController) HealthCheck(c *gin.Context) {
	services := map[string]string{}
	status := "healthy"

	if database.IsConnected() {
		services["mongodb"] = "up"
	} else {
		services["mongodb"] = "down"
		status = "degraded"
	}

	if hc.redis != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := hc.redis.Ping(ctx).Err(); err != nil {
			services["redis"] = "down"
			status = "degraded"
		} else {
			services["redis"] = "up"
		}
	} else {
		services["redis"] = "unconfigured"
	}

	if hc.worker != nil && hc.worker.IsRunning() {
		services["delivery_worker"] = "up"
	} else {
		services["delivery_worker"] = "down"
		status = "degraded"
	}

	c.JSON(http.StatusOK, models.HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Services:  services,
		Version:   serviceVersion,
		Uptime:    time.Since(hc.startTime).Round(time.Second).String(),
	})
}

// WorkerStats exposes the delivery worker counters for operators.
func (hc *HealthController) WorkerStats(c *gin.Context) {
	if hc.worker == nil {
		c.JSON(http.StatusOK, gin.H{"running": false})
		return
	}
	c.JSON(http.StatusOK, hc.worker.GetStats())
}
