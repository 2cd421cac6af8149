package api

import (
	"github.com/gin-gonic/gin"
)

func SetupRouter(h *Handler) *gin.Engine {
	r := gin.Default()

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	r.POST("/upload", h.handleUpload)
	r.GET("/status/:task_id", h.handleStatus)
	r.GET("/tracks", h.handleTracks)
	r.GET("/audio/:song_name/:track_type", h.handleAudio)
	r.GET("/video/:song_name", h.handleVideo)

	return r
}
