package ws

import (
	"sync"
)

// Dispatcher delivers notification events to every session currently
// authenticated as a given recipient identity, independent of room
// membership. Delivery is best-effort: nothing is queued, retried or
// persisted, and a recipient with no connected session sees nothing.
type Dispatcher struct {
	mu       sync.RWMutex
	sessions map[string]map[string]*Client // userID -> sessionID -> client
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		sessions: make(map[string]map[string]*Client),
	}
}

// Register adds a session under its authenticated identity. Called on every
// session connect so the identity table stays consistent with the session
// lifecycle, not just with message flow.
func (d *Dispatcher) Register(c *Client) {
	d.mu.Lock()
	defer d.mu.Unlock()

	userID := c.Principal.UserID
	byUser, ok := d.sessions[userID]
	if !ok {
		byUser = make(map[string]*Client)
		d.sessions[userID] = byUser
	}
	byUser[c.ID] = c
}

// Unregister removes a session from the identity table. Idempotent.
func (d *Dispatcher) Unregister(c *Client) {
	d.mu.Lock()
	defer d.mu.Unlock()

	userID := c.Principal.UserID
	byUser, ok := d.sessions[userID]
	if !ok {
		return
	}
	delete(byUser, c.ID)
	if len(byUser) == 0 {
		delete(d.sessions, userID)
	}
}

// Dispatch sends the notification to every session of the recipient
// identity and returns how many sessions it was handed to. A session whose
// buffer is full is skipped; it is about to be torn down by its own pumps.
func (d *Dispatcher) Dispatch(recipientID string, n Notification) int {
	payload, err := encodeEvent(EventReceiveNotification, n)
	if err != nil {
		return 0
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	delivered := 0
	for _, member := range d.sessions[recipientID] {
		if member.enqueue(payload) {
			delivered++
		}
	}
	return delivered
}

// Sessions returns the number of connected sessions for an identity
func (d *Dispatcher) Sessions(userID string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return len(d.sessions[userID])
}
