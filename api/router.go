// Package api exposes a read-only view of the running download tasks.
package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func SetupRouter(tasks TaskSource, statusKey string, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}

	r := gin.New()
	r.Use(RequestLogger(log), gin.Recovery())
	h := NewHandler(tasks)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := r.Group("/api/v1")
	v1.Use(AuthMiddleware(statusKey))
	{
		v1.GET("/tasks", h.handleListTasks)
		v1.GET("/tasks/:taskId", h.handleGetTaskStatus)
		v1.GET("/summary", h.handleSummary)
	}
	return r
}
