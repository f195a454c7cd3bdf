package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
	"liyu1981.xyz/energy-monitor-service/pkg/iot"
)

type RestfulServer struct {
	Server           *gin.Engine
	Iot              *iot.IOT
	RateLimiterStore *iot.RateLimiterStore
	// Gatherer backs /metrics; the default registry when nil
	Gatherer prometheus.Gatherer
}

func (rs *RestfulServer) GetLimiter(key string) *rate.Limiter {
	if rs.RateLimiterStore == nil {
		return nil
	} else {
		return rs.RateLimiterStore.GetLimiter(key)
	}
}

func (rs *RestfulServer) CheckLimiter(key string) bool {
	limiter := rs.GetLimiter(key)
	if limiter == nil {
		return true
	}
	return limiter.Allow()
}

func (rs *RestfulServer) SetLimiter(key string, keyRate float64, keyBurst int) {
	if rs.RateLimiterStore == nil {
		return
	}
	rs.RateLimiterStore.SetLimiter(key, rate.Limit(keyRate), keyBurst)
}

// limited rejects callers over their per-client-IP budget with 429.
func (rs *RestfulServer) limited() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !rs.CheckLimiter(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "too many requests"})
			return
		}
		c.Next()
	}
}

func (rs *RestfulServer) metricsHandler() gin.HandlerFunc {
	if rs.Gatherer == nil {
		return gin.WrapH(promhttp.Handler())
	}
	return gin.WrapH(promhttp.HandlerFor(rs.Gatherer, promhttp.HandlerOpts{}))
}

func (rs *RestfulServer) Setup() {
	rs.Server.GET("/healthz", rs.HealthCheck)
	rs.Server.GET("/metrics", rs.metricsHandler())
	rs.Server.POST("/limiter", rs.PostLimiter)

	collector := rs.Server.Group("/collector")
	{
		collector.POST("/collect", rs.limited(), rs.Collect)
		collector.GET("/stats", rs.GetCollectorStats)
	}

	devices := rs.Server.Group("/devices")
	{
		devices.GET("", rs.GetDevices)
		devices.GET("/live", rs.limited(), rs.GetLiveDevices)
		devices.POST("/discover", rs.limited(), rs.DiscoverDevices)
		devices.PUT("/:device_id", rs.UpdateDevice)
		devices.DELETE("/:device_id", rs.DeleteDevice)
	}

	readings := rs.Server.Group("/readings")
	{
		readings.GET("", rs.GetReadings)
		readings.POST("", rs.limited(), rs.PostReading)
	}

	predictions := rs.Server.Group("/predictions")
	{
		predictions.GET("", rs.GetPredictions)
		predictions.POST("", rs.PostPrediction)
		predictions.POST("/project", rs.limited(), rs.ProjectPredictions)
	}

	settings := rs.Server.Group("/settings")
	{
		settings.GET("", rs.GetSettings)
		settings.PUT("", rs.UpdateSettings)
	}

	notifications := rs.Server.Group("/notifications")
	{
		notifications.GET("", rs.GetNotifications)
		notifications.POST("", rs.PostNotifications)
		notifications.POST("/check", rs.limited(), rs.CheckNotifications)
		notifications.PATCH("/:id/read", rs.MarkNotificationRead)
		notifications.DELETE("/:id", rs.DeleteNotification)
	}
}
