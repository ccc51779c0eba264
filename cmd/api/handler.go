package api

import (
	canvasDelivery "canvas-mirror-backend/internal/canvas/delivery"
	"canvas-mirror-backend/internal/canvas/usecase"
	"canvas-mirror-backend/pkg/config"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	syncHandler *canvasDelivery.SyncHandler
	config      *config.Config
}

func NewHandler(syncUsecase usecase.SyncUsecase, cfg *config.Config) *Handler {
	return &Handler{
		syncHandler: canvasDelivery.NewSyncHandler(syncUsecase),
		config:      cfg,
	}
}

func (h *Handler) Start(addr string) error {
	r := gin.Default()
	gin.SetMode(gin.ReleaseMode)

	// CORS middleware
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		} else {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	SetupRoutes(r, h.syncHandler, h.config)

	return r.Run(addr)
}
