package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fluxaudio/fluxaudio/internal/common"
	"github.com/fluxaudio/fluxaudio/internal/httpapi/handlers"
	"github.com/fluxaudio/fluxaudio/internal/httpapi/middleware"
	"github.com/fluxaudio/fluxaudio/internal/observability"
	"github.com/fluxaudio/fluxaudio/internal/orchestrator"
)

// NewRouter wires the orchestrator API. Every job route requires a
// verified identity; /health and /metrics stay open.
func NewRouter(svc *orchestrator.Service, jwtSecret string, metrics *observability.Metrics) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())

	r.NoRoute(func(c *gin.Context) {
		common.Fail(c, http.StatusNotFound, 40400, "route not found")
	})
	r.NoMethod(func(c *gin.Context) {
		common.Fail(c, http.StatusMethodNotAllowed, 40500, "method not allowed")
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "audio processing orchestrator is healthy"})
	})
	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	h := handlers.NewHandler(svc)

	authGroup := r.Group("/")
	authGroup.Use(middleware.AuthRequired(jwtSecret))
	authGroup.POST("/process-audio", h.ProcessAudio)
	authGroup.GET("/job-status/:job_id", h.JobStatus)
	authGroup.GET("/jobs", h.ListJobs)
	authGroup.GET("/download-audio/:job_id", h.DownloadAudio)

	return r
}
