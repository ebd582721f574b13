package ws

import (
	"sync"
)

// RoomRouter maintains, per appointment reference, the set of currently
// joined sessions and delivers messages to exactly that set. Membership is
// keyed by session ID so rooms and sessions never hold cyclic references.
type RoomRouter struct {
	mu    sync.Mutex
	rooms map[string]map[string]*Client // appointmentID -> sessionID -> client
}

func NewRoomRouter() *RoomRouter {
	return &RoomRouter{
		rooms: make(map[string]map[string]*Client),
	}
}

// Join adds the session to the room, creating the room entry on first join.
// Joining twice has the same membership effect as joining once.
func (r *RoomRouter) Join(appointmentID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[appointmentID]
	if !ok {
		members = make(map[string]*Client)
		r.rooms[appointmentID] = members
	}
	members[c.ID] = c
}

// Leave removes the session from the room. The room entry is reclaimed when
// its member set becomes empty; rejoining later simply recreates it.
func (r *RoomRouter) Leave(appointmentID string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(appointmentID, c)
}

// LeaveAll removes the session from every room it had joined
func (r *RoomRouter) LeaveAll(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for appointmentID, members := range r.rooms {
		if _, ok := members[c.ID]; ok {
			r.leaveLocked(appointmentID, c)
		}
	}
}

func (r *RoomRouter) leaveLocked(appointmentID string, c *Client) {
	members, ok := r.rooms[appointmentID]
	if !ok {
		return
	}
	delete(members, c.ID)
	if len(members) == 0 {
		delete(r.rooms, appointmentID)
	}
}

// Broadcast delivers the payload to every current member of the room. A
// member whose send buffer cannot accept the payload is dropped from the
// room and returned so the caller can finish tearing its session down; the
// failure is never surfaced to the sender. Delivery happens under the room
// lock, so each member observes broadcasts to one room in a single order.
func (r *RoomRouter) Broadcast(appointmentID string, payload []byte) []*Client {
	r.mu.Lock()
	defer r.mu.Unlock()

	members, ok := r.rooms[appointmentID]
	if !ok {
		return nil
	}

	var dead []*Client
	for _, member := range members {
		if !member.enqueue(payload) {
			dead = append(dead, member)
		}
	}

	for _, member := range dead {
		r.leaveLocked(appointmentID, member)
	}

	return dead
}

// Members returns the current member count of a room
func (r *RoomRouter) Members(appointmentID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.rooms[appointmentID])
}

// Rooms returns the number of rooms with at least one member
func (r *RoomRouter) Rooms() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.rooms)
}
