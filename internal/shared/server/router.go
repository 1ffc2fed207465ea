package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"audit-backend/internal/pipeline"
	"audit-backend/internal/shared/config"
	"audit-backend/internal/shared/metrics"
	"audit-backend/internal/shared/server/middleware"
	"audit-backend/internal/shared/server/respond"
)

// RouterDeps carries everything the router needs from bootstrap.
type RouterDeps struct {
	Config   config.Config
	Pipeline *pipeline.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/healthz", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	r.GET("/metrics", metrics.Handler())

	// Local object store is served directly; S3 objects carry their own URLs.
	if deps.Config.ObjectStoreType == "local" {
		r.Static("/files", deps.Config.LocalStoreDir)
	}

	api := r.Group("/api/v1")
	api.POST("/run-analysis", deps.Pipeline.RunAnalysis)
	api.GET("/analyses/:id", deps.Pipeline.GetAnalysis)

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
