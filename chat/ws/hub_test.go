package ws

import (
	"encoding/json"
	"io"
	"testing"

	"clinic-booking-demo/backend/chat/models"
	"clinic-booking-demo/backend/chat/repository"
	"clinic-booking-demo/backend/chat/service"
	"clinic-booking-demo/backend/pkg/errors"
	"clinic-booking-demo/backend/pkg/jwt"
	"clinic-booking-demo/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() (*Hub, *service.MessageService) {
	svc := service.NewMessageService(repository.NewMemoryMessageRepository())
	log := logger.New(logger.Config{Level: "error", Output: io.Discard})
	return NewHub(svc, log), svc
}

func decodeEvents(t *testing.T, payloads [][]byte) []inboundEvent {
	t.Helper()
	events := make([]inboundEvent, 0, len(payloads))
	for _, p := range payloads {
		var e inboundEvent
		require.NoError(t, json.Unmarshal(p, &e))
		events = append(events, e)
	}
	return events
}

func TestHub_SendWithoutJoinIsRejected(t *testing.T) {
	hub, svc := newTestHub()

	patient := newFakeClient("s1", "user-1", jwt.RolePatient, 8)
	hub.Register(patient)

	err := hub.SendMessage(patient, sendMessagePayload{
		AppointmentID: "appt-42",
		Message:       "Hello",
		SenderType:    models.SenderPatient,
	})

	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeNotAuthorized))

	// No state change: nothing persisted, nothing delivered
	history, err := svc.History("appt-42")
	require.NoError(t, err)
	assert.Empty(t, history)
	assert.Empty(t, drain(patient))
}

func TestHub_SendPersistsBroadcastsAndNotifies(t *testing.T) {
	hub, svc := newTestHub()

	patient := newFakeClient("s1", "user-1", jwt.RolePatient, 8)
	patient.Principal.Name = "Alice"
	doctor := newFakeClient("s2", "doc-1", jwt.RoleDoctor, 8)

	hub.Register(patient)
	hub.Register(doctor)
	hub.Join(patient, "appt-42")
	hub.Join(doctor, "appt-42")

	err := hub.SendMessage(patient, sendMessagePayload{
		AppointmentID:   "appt-42",
		Message:         "Hello",
		SenderType:      models.SenderPatient,
		AppointmentData: appointmentData{DocID: "doc-1", UserID: "user-1"},
	})
	require.NoError(t, err)

	// Both room members receive the canonical stored message
	patientEvents := decodeEvents(t, drain(patient))
	require.Len(t, patientEvents, 1)
	assert.Equal(t, EventReceiveMessage, patientEvents[0].Type)

	doctorEvents := decodeEvents(t, drain(doctor))
	require.Len(t, doctorEvents, 2)
	assert.Equal(t, EventReceiveMessage, doctorEvents[0].Type)
	assert.Equal(t, EventReceiveNotification, doctorEvents[1].Type)

	var received models.Message
	require.NoError(t, json.Unmarshal(doctorEvents[0].Content, &received))
	assert.Equal(t, "Hello", received.Body)
	assert.Equal(t, models.SenderPatient, received.SenderType)
	assert.Equal(t, "user-1", received.SenderID)
	assert.NotZero(t, received.ID)
	assert.False(t, received.Timestamp.IsZero())

	var notification Notification
	require.NoError(t, json.Unmarshal(doctorEvents[1].Content, &notification))
	assert.Equal(t, "doc-1", notification.ReceiverID)
	assert.Equal(t, "new-message", notification.Type)
	assert.Equal(t, "New message from Alice", notification.Message)

	// Message is durable
	history, err := svc.History("appt-42")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "Hello", history[0].Body)
}

func TestHub_SenderIdentityComesFromPrincipal(t *testing.T) {
	hub, svc := newTestHub()

	patient := newFakeClient("s1", "user-1", jwt.RolePatient, 8)
	hub.Register(patient)
	hub.Join(patient, "appt-42")

	err := hub.SendMessage(patient, sendMessagePayload{
		AppointmentID: "appt-42",
		Message:       "Hi",
		SenderType:    models.SenderPatient,
	})
	require.NoError(t, err)

	history, err := svc.History("appt-42")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "user-1", history[0].SenderID)
}

func TestHub_EmptySenderTypeFallsBackToRole(t *testing.T) {
	hub, svc := newTestHub()

	doctor := newFakeClient("s1", "doc-1", jwt.RoleDoctor, 8)
	hub.Register(doctor)
	hub.Join(doctor, "appt-42")

	err := hub.SendMessage(doctor, sendMessagePayload{
		AppointmentID: "appt-42",
		Message:       "Hi",
	})
	require.NoError(t, err)

	history, err := svc.History("appt-42")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.SenderDoctor, history[0].SenderType)
}

func TestHub_ValidationFailureBroadcastsNothing(t *testing.T) {
	hub, svc := newTestHub()

	patient := newFakeClient("s1", "user-1", jwt.RolePatient, 8)
	doctor := newFakeClient("s2", "doc-1", jwt.RoleDoctor, 8)
	hub.Register(patient)
	hub.Register(doctor)
	hub.Join(patient, "appt-42")
	hub.Join(doctor, "appt-42")

	err := hub.SendMessage(patient, sendMessagePayload{
		AppointmentID:   "appt-42",
		Message:         "",
		SenderType:      models.SenderPatient,
		AppointmentData: appointmentData{DocID: "doc-1"},
	})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeValidationFailed))

	assert.Empty(t, drain(patient))
	assert.Empty(t, drain(doctor))

	history, err := svc.History("appt-42")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestHub_NotificationTargetsCounterpartOnly(t *testing.T) {
	hub, _ := newTestHub()

	patient := newFakeClient("s1", "user-1", jwt.RolePatient, 8)
	doctor := newFakeClient("s2", "doc-1", jwt.RoleDoctor, 8)
	hub.Register(patient)
	hub.Register(doctor)
	hub.Join(patient, "appt-42")
	hub.Join(doctor, "appt-42")

	err := hub.SendMessage(doctor, sendMessagePayload{
		AppointmentID:   "appt-42",
		Message:         "Your results are in",
		SenderType:      models.SenderDoctor,
		AppointmentData: appointmentData{DocID: "doc-1", UserID: "user-1"},
	})
	require.NoError(t, err)

	// The patient gets the broadcast plus the notification; the sending
	// doctor gets only the broadcast
	patientEvents := decodeEvents(t, drain(patient))
	require.Len(t, patientEvents, 2)
	assert.Equal(t, EventReceiveMessage, patientEvents[0].Type)
	assert.Equal(t, EventReceiveNotification, patientEvents[1].Type)

	doctorEvents := decodeEvents(t, drain(doctor))
	require.Len(t, doctorEvents, 1)
	assert.Equal(t, EventReceiveMessage, doctorEvents[0].Type)
}

func TestHub_UnregisterRemovesSessionEverywhere(t *testing.T) {
	hub, _ := newTestHub()

	patient := newFakeClient("s1", "user-1", jwt.RolePatient, 8)
	doctor := newFakeClient("s2", "doc-1", jwt.RoleDoctor, 8)
	hub.Register(patient)
	hub.Register(doctor)
	hub.Join(patient, "appt-42")
	hub.Join(doctor, "appt-42")

	hub.Unregister(doctor)
	assert.Equal(t, 1, hub.ActiveSessions())
	assert.Equal(t, 1, hub.RoomMembers("appt-42"))

	err := hub.SendMessage(patient, sendMessagePayload{
		AppointmentID:   "appt-42",
		Message:         "Anyone there?",
		SenderType:      models.SenderPatient,
		AppointmentData: appointmentData{DocID: "doc-1"},
	})
	require.NoError(t, err)

	// The disconnected doctor observes neither broadcast nor notification
	assert.Empty(t, drain(doctor))
	assert.Len(t, drain(patient), 1)
}

func TestHub_MessagesArriveInAppendOrder(t *testing.T) {
	hub, _ := newTestHub()

	patient := newFakeClient("s1", "user-1", jwt.RolePatient, 16)
	doctor := newFakeClient("s2", "doc-1", jwt.RoleDoctor, 16)
	hub.Register(patient)
	hub.Register(doctor)
	hub.Join(patient, "appt-42")
	hub.Join(doctor, "appt-42")

	bodies := []string{"one", "two", "three", "four"}
	for i, body := range bodies {
		sender := patient
		if i%2 == 1 {
			sender = doctor
		}
		err := hub.SendMessage(sender, sendMessagePayload{
			AppointmentID: "appt-42",
			Message:       body,
			SenderType:    models.SenderType(sender.Principal.Role),
		})
		require.NoError(t, err)
	}

	for _, c := range []*Client{patient, doctor} {
		events := decodeEvents(t, drain(c))
		require.Len(t, events, len(bodies))
		for i, e := range events {
			var m models.Message
			require.NoError(t, json.Unmarshal(e.Content, &m))
			assert.Equal(t, bodies[i], m.Body)
		}
	}
}
