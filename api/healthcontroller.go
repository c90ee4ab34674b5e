package api

import (
	"net/http"

	"slidecast/encoder"

	"github.com/gin-gonic/gin"
)

// RegisterHealthRoutes registers liveness and codec capability routes.
func RegisterHealthRoutes(r *gin.Engine, reg *encoder.Registry) {
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})
	r.GET("/api/capabilities", func(c *gin.Context) {
		caps := reg.Capabilities()
		fast := false
		for _, cp := range caps {
			if cp.Kind == encoder.TrackVideo && cp.Supported {
				fast = true
			}
		}
		c.JSON(http.StatusOK, gin.H{
			"codecs":        caps,
			"fast_pipeline": fast,
		})
	})
}
