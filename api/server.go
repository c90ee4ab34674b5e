package api

import (
	"slidecast/encoder"
	"slidecast/jobs"

	"github.com/gin-gonic/gin"
)

// NewRouter constructs a Gin engine with registered routes.
func NewRouter(jm *jobs.Manager, reg *encoder.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	RegisterExportRoutes(r, jm)
	RegisterHealthRoutes(r, reg)
	return r
}
