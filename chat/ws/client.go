package ws

import (
	"encoding/json"
	"sync"
	"time"

	"clinic-booking-demo/backend/pkg/errors"
	"clinic-booking-demo/backend/pkg/jwt"
	"clinic-booking-demo/backend/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024 // 64KB

	// Outbound buffer per session
	sendBufferSize = 256
)

// Client is one authenticated websocket session: the connection gateway
// between a browser and the room router / notification dispatcher.
type Client struct {
	ID        string
	Principal *jwt.Claims

	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	hub  *Hub
	log  *logger.Logger

	closeOnce sync.Once

	mu     sync.Mutex
	joined map[string]bool
}

func newClient(hub *Hub, conn *websocket.Conn, principal *jwt.Claims, log *logger.Logger) *Client {
	id := uuid.New().String()
	return &Client{
		ID:        id,
		Principal: principal,
		conn:      conn,
		send:      make(chan []byte, sendBufferSize),
		done:      make(chan struct{}),
		hub:       hub,
		log:       log.WithSessionID(id).WithUserID(principal.UserID),
		joined:    make(map[string]bool),
	}
}

// markJoined records a successful room join on this session
func (c *Client) markJoined(appointmentID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.joined[appointmentID] = true
}

// Joined reports whether this session has joined the given room
func (c *Client) Joined(appointmentID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.joined[appointmentID]
}

// enqueue hands a payload to the session's write pump without blocking.
// Returns false when the session is gone or its buffer is full; callers
// treat that as an already-completed disconnect.
func (c *Client) enqueue(payload []byte) bool {
	select {
	case <-c.done:
		return false
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// close shuts the session down exactly once
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		if c.conn != nil {
			c.conn.Close()
		}
	})
}

// ReadPump reads events from the connection and dispatches them. It runs
// until the connection fails or closes; unregistering on exit removes the
// session from every room before the session is discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.log.Debug("read pump ended")
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.log.Warn("websocket read error", "error", err.Error())
			}
			break
		}

		var event inboundEvent
		if err := json.Unmarshal(data, &event); err != nil {
			c.sendError(errors.CodeValidationFailed, "malformed event")
			continue
		}

		// Events are handled serially so one session's messages keep
		// their order through persistence and broadcast
		c.handleEvent(event)
	}
}

func (c *Client) handleEvent(event inboundEvent) {
	switch event.Type {
	case EventJoinAppointment:
		c.handleJoin(event.Content)
	case EventSendMessage:
		c.handleSend(event.Content)
	case EventPing:
		c.sendEvent(EventPong, nil)
	default:
		c.log.Warn("unknown event type", "type", event.Type)
		c.sendError(errors.CodeValidationFailed, "unknown event type: "+event.Type)
	}
}

// handleJoin accepts the appointment reference either as a bare JSON string
// (the original client contract) or as an object
func (c *Client) handleJoin(content json.RawMessage) {
	var appointmentID string
	if err := json.Unmarshal(content, &appointmentID); err != nil {
		var payload joinPayload
		if err := json.Unmarshal(content, &payload); err != nil || payload.AppointmentID == "" {
			c.sendError(errors.CodeValidationFailed, "join-appointment requires an appointment reference")
			return
		}
		appointmentID = payload.AppointmentID
	}
	if appointmentID == "" {
		c.sendError(errors.CodeValidationFailed, "join-appointment requires an appointment reference")
		return
	}

	c.hub.Join(c, appointmentID)
	c.log.Info("joined appointment room", "appointment_id", appointmentID)
}

func (c *Client) handleSend(content json.RawMessage) {
	var payload sendMessagePayload
	if err := json.Unmarshal(content, &payload); err != nil {
		c.sendError(errors.CodeValidationFailed, "malformed send-message payload")
		return
	}

	if err := c.hub.SendMessage(c, payload); err != nil {
		c.sendError(errors.GetErrorCode(err), errors.GetErrorMessage(err))
	}
}

func (c *Client) sendEvent(eventType string, content interface{}) {
	payload, err := encodeEvent(eventType, content)
	if err != nil {
		c.log.LogError(err, "failed to encode event", "type", eventType)
		return
	}
	c.enqueue(payload)
}

func (c *Client) sendError(code, message string) {
	c.sendEvent(EventError, map[string]string{
		"code":    code,
		"message": message,
	})
}

// WritePump pumps queued payloads to the connection and keeps it alive with
// periodic pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
