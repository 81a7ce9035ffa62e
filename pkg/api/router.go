package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter mounts the handler routes and the Prometheus endpoint.
func NewRouter(h *Handler, metricsPath string) *gin.Engine {
	if metricsPath == "" {
		metricsPath = "/metrics"
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger))

	r.GET("/healthz", h.Health)
	r.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	g := r.Group("/api")
	{
		g.GET("/candidates/stats", h.Stats)
		g.POST("/candidates/refresh", h.Refresh)
		g.POST("/generate", h.Generate)
	}
	return r
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}
