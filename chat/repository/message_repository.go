package repository

import (
	"clinic-booking-demo/backend/chat/models"

	"gorm.io/gorm"
)

// MessageRepository is the persistence boundary for chat messages
type MessageRepository interface {
	Create(message *models.Message) error
	GetByAppointment(appointmentID string) ([]models.Message, error)
}

type GormMessageRepository struct {
	db *gorm.DB
}

func NewGormMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

func (r *GormMessageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

// GetByAppointment returns all messages for an appointment in ascending
// timestamp order, insertion order breaking ties. An appointment with no
// messages yields an empty slice, not an error.
func (r *GormMessageRepository) GetByAppointment(appointmentID string) ([]models.Message, error) {
	messages := []models.Message{}
	err := r.db.Where("appointment_id = ?", appointmentID).
		Order("timestamp ASC, id ASC").
		Find(&messages).Error
	return messages, err
}
