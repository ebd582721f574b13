package ws

import (
	"sync"

	"clinic-booking-demo/backend/chat/models"
	"clinic-booking-demo/backend/chat/service"
	"clinic-booking-demo/backend/pkg/errors"
	"clinic-booking-demo/backend/pkg/logger"
)

// Hub owns the live side of the chat subsystem: the session registry, the
// room router and the notification dispatcher. One hub is created at service
// start and torn down with it; tests construct their own.
type Hub struct {
	rooms    *RoomRouter
	notifier *Dispatcher
	messages *service.MessageService
	log      *logger.Logger

	// sendMu serializes persist+broadcast so members observe messages in
	// store order. A single lock is enough at this scale.
	sendMu sync.Mutex

	mu       sync.RWMutex
	sessions map[string]*Client
}

func NewHub(messages *service.MessageService, log *logger.Logger) *Hub {
	return &Hub{
		rooms:    NewRoomRouter(),
		notifier: NewDispatcher(),
		messages: messages,
		log:      log,
		sessions: make(map[string]*Client),
	}
}

// Register adds an authenticated session to the hub and to the notification
// dispatcher's identity table
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	h.sessions[c.ID] = c
	h.mu.Unlock()

	h.notifier.Register(c)

	h.log.Info("session registered",
		"session_id", c.ID,
		"user_id", c.Principal.UserID,
		"role", string(c.Principal.Role),
	)
}

// Unregister tears a session down: room memberships and the identity table
// entry are removed synchronously before the session is discarded, so no
// later broadcast or dispatch can reach it. Idempotent.
func (h *Hub) Unregister(c *Client) {
	h.rooms.LeaveAll(c)
	h.notifier.Unregister(c)

	h.mu.Lock()
	delete(h.sessions, c.ID)
	h.mu.Unlock()

	c.close()

	h.log.Info("session unregistered", "session_id", c.ID)
}

// Join registers the session as a member of the appointment's room
func (h *Hub) Join(c *Client, appointmentID string) {
	h.rooms.Join(appointmentID, c)
	c.markJoined(appointmentID)
}

// SendMessage persists the message and broadcasts the stored record to the
// room, then notifies the counterpart identity. The sender identity always
// comes from the session's principal, never from the payload. A send to a
// room this session has not joined fails before anything is persisted.
func (h *Hub) SendMessage(c *Client, payload sendMessagePayload) error {
	if !c.Joined(payload.AppointmentID) {
		return errors.NewNotAuthorizedError("join the appointment before sending messages")
	}

	senderType := payload.SenderType
	if senderType == "" {
		senderType = models.SenderType(c.Principal.Role)
	}

	message := &models.Message{
		AppointmentID: payload.AppointmentID,
		SenderID:      c.Principal.UserID,
		SenderType:    senderType,
		Body:          payload.Message,
	}

	h.sendMu.Lock()
	stored, err := h.messages.Append(message)
	if err != nil {
		h.sendMu.Unlock()
		return err
	}

	broadcast, encodeErr := encodeEvent(EventReceiveMessage, stored)
	if encodeErr != nil {
		h.sendMu.Unlock()
		return errors.NewInternalServerError(errors.CodeInternal, "failed to encode message")
	}

	dead := h.rooms.Broadcast(payload.AppointmentID, broadcast)
	h.sendMu.Unlock()

	// Members that could not accept the broadcast are treated as already
	// disconnected; their failure never reaches the sender
	for _, member := range dead {
		h.log.Warn("dropping unresponsive session", "session_id", member.ID)
		h.Unregister(member)
	}

	h.notifyCounterpart(c, stored, payload.AppointmentData)

	return nil
}

// notifyCounterpart signals the other party of the appointment, resolved
// from the appointment context supplied by the caller
func (h *Hub) notifyCounterpart(c *Client, message *models.Message, data appointmentData) {
	var recipientID string
	switch message.SenderType.Counterpart() {
	case models.SenderPatient:
		recipientID = data.UserID
	case models.SenderDoctor:
		recipientID = data.DocID
	}
	if recipientID == "" {
		return
	}

	delivered := h.notifier.Dispatch(recipientID, Notification{
		ReceiverID:    recipientID,
		Type:          "new-message",
		Message:       "New message from " + c.Principal.Name,
		AppointmentID: message.AppointmentID,
	})

	h.log.Debug("notification dispatched",
		"recipient_id", recipientID,
		"appointment_id", message.AppointmentID,
		"sessions", delivered,
	)
}

// ActiveSessions returns the number of currently connected sessions
func (h *Hub) ActiveSessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// RoomMembers returns the current member count of an appointment room
func (h *Hub) RoomMembers(appointmentID string) int {
	return h.rooms.Members(appointmentID)
}
