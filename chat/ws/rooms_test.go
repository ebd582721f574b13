package ws

import (
	"testing"

	"clinic-booking-demo/backend/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFakeClient builds a session with no real connection; payloads land in
// its send buffer for inspection.
func newFakeClient(id, userID string, role jwt.Role, buffer int) *Client {
	return &Client{
		ID:        id,
		Principal: &jwt.Claims{UserID: userID, Role: role, Name: "Test " + userID},
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
		joined:    make(map[string]bool),
	}
}

func drain(c *Client) [][]byte {
	var out [][]byte
	for {
		select {
		case payload := <-c.send:
			out = append(out, payload)
		default:
			return out
		}
	}
}

func TestRoomRouter_JoinIsIdempotent(t *testing.T) {
	router := NewRoomRouter()
	c := newFakeClient("s1", "user-1", jwt.RolePatient, 8)

	router.Join("appt-42", c)
	router.Join("appt-42", c)

	assert.Equal(t, 1, router.Members("appt-42"))

	router.Broadcast("appt-42", []byte("m1"))
	assert.Len(t, drain(c), 1)
}

func TestRoomRouter_BroadcastReachesOnlyMembers(t *testing.T) {
	router := NewRoomRouter()
	a1 := newFakeClient("s1", "user-1", jwt.RolePatient, 8)
	a2 := newFakeClient("s2", "doc-1", jwt.RoleDoctor, 8)
	b := newFakeClient("s3", "user-2", jwt.RolePatient, 8)

	router.Join("appt-a", a1)
	router.Join("appt-a", a2)
	router.Join("appt-b", b)

	dead := router.Broadcast("appt-a", []byte("hello"))
	assert.Empty(t, dead)

	assert.Len(t, drain(a1), 1)
	assert.Len(t, drain(a2), 1)
	assert.Empty(t, drain(b))
}

func TestRoomRouter_MemberObservesBroadcastOrder(t *testing.T) {
	router := NewRoomRouter()
	c := newFakeClient("s1", "user-1", jwt.RolePatient, 8)
	router.Join("appt-42", c)

	router.Broadcast("appt-42", []byte("m1"))
	router.Broadcast("appt-42", []byte("m2"))
	router.Broadcast("appt-42", []byte("m3"))

	got := drain(c)
	require.Len(t, got, 3)
	assert.Equal(t, "m1", string(got[0]))
	assert.Equal(t, "m2", string(got[1]))
	assert.Equal(t, "m3", string(got[2]))
}

func TestRoomRouter_LeaveAllRemovesEveryMembership(t *testing.T) {
	router := NewRoomRouter()
	c := newFakeClient("s1", "user-1", jwt.RolePatient, 8)
	other := newFakeClient("s2", "doc-1", jwt.RoleDoctor, 8)

	router.Join("appt-1", c)
	router.Join("appt-2", c)
	router.Join("appt-1", other)

	router.LeaveAll(c)

	assert.Equal(t, 1, router.Members("appt-1"))
	assert.Equal(t, 0, router.Members("appt-2"))

	router.Broadcast("appt-1", []byte("m1"))
	router.Broadcast("appt-2", []byte("m2"))
	assert.Empty(t, drain(c))
	assert.Len(t, drain(other), 1)
}

func TestRoomRouter_EmptyRoomIsReclaimed(t *testing.T) {
	router := NewRoomRouter()
	c := newFakeClient("s1", "user-1", jwt.RolePatient, 8)

	router.Join("appt-42", c)
	assert.Equal(t, 1, router.Rooms())

	router.Leave("appt-42", c)
	assert.Equal(t, 0, router.Rooms())

	// Rejoining simply recreates the room
	router.Join("appt-42", c)
	assert.Equal(t, 1, router.Members("appt-42"))
}

func TestRoomRouter_UnresponsiveMemberIsDropped(t *testing.T) {
	router := NewRoomRouter()
	healthy := newFakeClient("s1", "user-1", jwt.RolePatient, 8)
	stuck := newFakeClient("s2", "doc-1", jwt.RoleDoctor, 0) // zero buffer: cannot accept anything

	router.Join("appt-42", healthy)
	router.Join("appt-42", stuck)

	dead := router.Broadcast("appt-42", []byte("m1"))
	require.Len(t, dead, 1)
	assert.Equal(t, "s2", dead[0].ID)

	// The stuck member was removed; delivery to the healthy one succeeded
	assert.Equal(t, 1, router.Members("appt-42"))
	assert.Len(t, drain(healthy), 1)
}

func TestRoomRouter_BroadcastToUnknownRoom(t *testing.T) {
	router := NewRoomRouter()
	assert.Nil(t, router.Broadcast("no-such-room", []byte("m1")))
}
