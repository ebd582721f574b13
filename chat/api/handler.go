package api

import (
	"net/http"

	"clinic-booking-demo/backend/chat/service"
	"clinic-booking-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ChatHandler serves the HTTP side of the chat subsystem. Clients hydrate
// history over HTTP before relying on the live websocket feed.
type ChatHandler struct {
	service *service.MessageService
	log     *logger.Logger
}

func NewChatHandler(service *service.MessageService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{service: service, log: log}
}

// GetHistory returns all messages for an appointment, oldest first. An
// appointment with no messages is a valid state and yields an empty list.
func (h *ChatHandler) GetHistory(c *gin.Context) {
	appointmentID := c.Param("appointmentId")
	if appointmentID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "appointmentId is required"})
		return
	}

	messages, err := h.service.History(appointmentID)
	if err != nil {
		h.log.LogError(err, "Failed to load chat history", "appointment_id", appointmentID)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Server error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "messages": messages})
}
