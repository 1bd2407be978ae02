package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter wires middleware and routes. Preflight OPTIONS for every route
// is answered by the CORS middleware.
func SetupRouter(h *Handler, logger *zap.Logger) *gin.Engine {
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(logger))
	r.Use(CORSMiddleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "pose-extraction-service",
		})
	})

	api := r.Group("/api")
	{
		api.POST("/yt2json", h.RemoteVideo)
		api.POST("/video2json", h.UploadVideo)
		api.POST("/save_bvh", h.SaveAnimation)
		api.POST("/save_webcam_pose", h.SaveWebcamPose)
		api.GET("/jobs/:id", h.JobStatus)
	}

	return r
}
