package webserver

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func attachRoutes(r *gin.Engine, h *Handlers) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	r.GET("/", h.Status)
	r.GET("/scores", h.Scores)
	r.POST("/verify", h.Verify)

	lightning := r.Group("/lightning")
	{
		lightning.GET("/info", h.LightningInfo)
		lightning.POST("/zap", h.Zap)
	}

	r.GET("/ws", h.LiveFeed)
}
