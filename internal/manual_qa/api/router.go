package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the manual QA API on the engine. middlewares apply to
// the versioned API group only; the health endpoint stays unguarded.
func RegisterRoutes(r *gin.Engine, h *Handler, middlewares ...gin.HandlerFunc) {
	r.GET("/healthz", h.Health)

	v1 := r.Group("/api/v1", middlewares...)
	{
		v1.POST("/documents", h.UploadDocument)
		v1.GET("/documents", h.ListDocuments)
		v1.GET("/documents/:id", h.GetDocument)
		v1.DELETE("/documents/:id", h.DeleteDocument)
		v1.POST("/documents/:id/query", h.QueryDocument)

		v1.GET("/ingestions/:id", h.GetIngestion)

		v1.POST("/ask", h.Ask)

		v1.GET("/generator/availability", h.GetAvailability)
		v1.POST("/generator/availability/refresh", h.RefreshAvailability)
	}
}
