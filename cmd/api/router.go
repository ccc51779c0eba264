package api

import (
	"net/http"

	authDelivery "canvas-mirror-backend/internal/auth/delivery"
	canvasDelivery "canvas-mirror-backend/internal/canvas/delivery"
	"canvas-mirror-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(r *gin.Engine, syncHandler *canvasDelivery.SyncHandler, cfg *config.Config) {
	// Health check (no auth required)
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Canvas mirror routes (protected)
	canvas := r.Group("/canvas")
	canvas.Use(authDelivery.AuthMiddleware(cfg.JWTSecret))
	{
		canvas.GET("/courses", syncHandler.GetCourses)
		canvas.GET("/documents", syncHandler.GetDocuments)
		canvas.PUT("/credentials", syncHandler.PutCredentials)

		sync := canvas.Group("/sync")
		{
			sync.POST("/start", syncHandler.StartSync)
			sync.POST("/course/:course_id/start", syncHandler.StartCourseSync)
			sync.GET("/status/:job_id", syncHandler.GetSyncStatus)
		}
	}
}
