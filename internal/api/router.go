package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akylbek/payment-system/pix-lifecycle/internal/handlers"
	"github.com/akylbek/payment-system/pix-lifecycle/internal/telemetry"
)

func NewRouter(serviceName string, runner handlers.JobRunner) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(telemetry.TracingMiddleware())

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": serviceName})
	})

	// Reconciliation
	syncHandler := handlers.NewSyncHandler(runner)
	r.GET("/sync", syncHandler.ListJobs)
	r.POST("/sync/:job", syncHandler.RunJob)

	return r
}
