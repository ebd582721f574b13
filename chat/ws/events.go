package ws

import (
	"encoding/json"

	"clinic-booking-demo/backend/chat/models"
)

// Event types exchanged over a chat connection
const (
	// client -> server
	EventJoinAppointment = "join-appointment"
	EventSendMessage     = "send-message"
	EventPing            = "ping"

	// server -> client
	EventReceiveMessage      = "receive-message"
	EventReceiveNotification = "receive-notification"
	EventPong                = "pong"
	EventError               = "error"
)

// Event is the envelope for every frame in both directions
type Event struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content,omitempty"`
}

// inboundEvent defers content decoding until the type is known
type inboundEvent struct {
	Type    string          `json:"type"`
	Content json.RawMessage `json:"content"`
}

// joinPayload accepts both a bare appointment reference string and an object
type joinPayload struct {
	AppointmentID string `json:"appointmentId"`
}

// appointmentData carries the two parties of the appointment, supplied by the
// client since the gateway has no appointment lookup of its own
type appointmentData struct {
	DocID  string `json:"docId"`
	UserID string `json:"userId"`
}

// sendMessagePayload is the content of a send-message event
type sendMessagePayload struct {
	AppointmentID   string            `json:"appointmentId"`
	Message         string            `json:"message"`
	SenderType      models.SenderType `json:"senderType"`
	AppointmentData appointmentData   `json:"appointmentData"`
}

// Notification is an ephemeral event addressed to a recipient identity. It is
// never persisted; a recipient with no connected session never sees it.
type Notification struct {
	ReceiverID    string `json:"receiverId"`
	Type          string `json:"type"`
	Message       string `json:"message"`
	AppointmentID string `json:"appointmentId"`
}

func encodeEvent(eventType string, content interface{}) ([]byte, error) {
	return json.Marshal(Event{Type: eventType, Content: content})
}
