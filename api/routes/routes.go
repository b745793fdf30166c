package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/gemcove/catalog-intake/api/handlers"
	"github.com/gemcove/catalog-intake/api/middleware"
)

// SetupRoutes 配置所有路由
func SetupRoutes(r *gin.Engine, h *handlers.Handlers) {
	r.Use(middleware.CORS())

	v1 := r.Group("/api/v1")

	in := v1.Group("/intake")
	{
		in.POST("/items", h.Intake.EnqueueAssets)
		in.GET("/items", h.Intake.ListItems)
		in.GET("/status", h.Intake.GetStatus)
		in.DELETE("/items/:id", h.Intake.RemoveItem)
		in.POST("/completed/clear", h.Intake.ClearCompleted)

		in.POST("/items/:id/cleanup", h.Intake.CleanupItem)
		in.POST("/items/:id/enhance", h.Intake.EnhanceItem)
		in.POST("/transform", h.Intake.TransformImage)
	}
}
