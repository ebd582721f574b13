package models

import (
	"time"
)

// SenderType identifies which party of the appointment wrote a message
type SenderType string

const (
	SenderPatient SenderType = "patient"
	SenderDoctor  SenderType = "doctor"
)

// Valid reports whether the sender type is one of the two recognized roles
func (s SenderType) Valid() bool {
	return s == SenderPatient || s == SenderDoctor
}

// Counterpart returns the opposite party of the appointment
func (s SenderType) Counterpart() SenderType {
	if s == SenderDoctor {
		return SenderPatient
	}
	return SenderDoctor
}

// Message represents a persisted chat message tied to an appointment
type Message struct {
	ID            uint       `json:"id" gorm:"primaryKey"`
	AppointmentID string     `json:"appointmentId" gorm:"index;not null"`
	SenderID      string     `json:"senderId" gorm:"not null"`
	SenderType    SenderType `json:"senderType" gorm:"not null"`
	Body          string     `json:"message" gorm:"column:message;not null"`
	Timestamp     time.Time  `json:"timestamp" gorm:"index"`
}
