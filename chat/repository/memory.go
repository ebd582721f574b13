package repository

import (
	"sort"
	"sync"

	"clinic-booking-demo/backend/chat/models"
)

// MemoryMessageRepository is an in-memory MessageRepository used by tests and
// by local development when no database is configured.
type MemoryMessageRepository struct {
	mu       sync.Mutex
	nextID   uint
	messages []models.Message
}

func NewMemoryMessageRepository() *MemoryMessageRepository {
	return &MemoryMessageRepository{nextID: 1}
}

func (r *MemoryMessageRepository) Create(message *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	message.ID = r.nextID
	r.nextID++
	r.messages = append(r.messages, *message)
	return nil
}

func (r *MemoryMessageRepository) GetByAppointment(appointmentID string) ([]models.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := []models.Message{}
	for _, m := range r.messages {
		if m.AppointmentID == appointmentID {
			result = append(result, m)
		}
	}

	// Stable sort keeps insertion order for equal timestamps
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.Before(result[j].Timestamp)
	})

	return result, nil
}
