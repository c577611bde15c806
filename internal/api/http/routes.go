package http

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the front page and the command namespace.
//
// Requests that match neither route (a bare "/word", odd methods on "/")
// still reach Dispatch so that they are answered like any unknown command.
func RegisterRoutes(router *gin.Engine, h *Handlers) {
	router.RedirectTrailingSlash = false
	router.RedirectFixedPath = false

	router.GET("/", h.Root)
	router.POST("/", h.Root)

	router.Any("/:command", h.Dispatch)
	router.Any("/:command/*path", h.Dispatch)

	router.NoRoute(h.Dispatch)
}
