package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterChatRoutes mounts the chat HTTP routes on the given router group.
// History is only served to authenticated principals.
func RegisterChatRoutes(r gin.IRouter, handler *ChatHandler, auth gin.HandlerFunc) {
	chatGroup := r.Group("/api/chat")
	chatGroup.Use(auth)
	{
		chatGroup.GET("/history/:appointmentId", handler.GetHistory)
	}
}
