package status

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yeti47/motioncam/ccc/logging"
)

// SetupRoutes configures the status routes
func SetupRoutes(router *gin.Engine, handler *StatusHandler) {
	router.GET("/health", handler.GetHealth)
	router.GET("/latest.jpg", handler.GetLatestStill)

	api := router.Group("/api")
	api.GET("/status", handler.GetStatus)
	api.GET("/captures", handler.ListCaptures)
	api.GET("/captures/:id", handler.GetCapture)
}

// RequestLogger logs every request at debug level through logger
func RequestLogger(logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Status request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"client_ip", c.ClientIP(),
		)
	}
}
