package webserver

import (
	"github.com/gin-gonic/gin"
)

func New(h *Handlers) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, h)
	return g
}
