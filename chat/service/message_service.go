package service

import (
	"encoding/json"
	"strings"
	"time"

	"clinic-booking-demo/backend/chat/models"
	"clinic-booking-demo/backend/chat/repository"
	"clinic-booking-demo/backend/pkg/errors"
	"clinic-booking-demo/backend/pkg/resilience"
)

// HistoryCache is the cache port for appointment histories. Implemented by
// the redis client and by an adapter over the in-memory cache.
type HistoryCache interface {
	Get(key string) (string, bool)
	Set(key string, value string)
	Delete(key string)
}

// MessageService owns message validation, persistence and ordered retrieval
type MessageService struct {
	repo    repository.MessageRepository
	cache   HistoryCache
	breaker *resilience.CircuitBreaker
}

func NewMessageService(repo repository.MessageRepository) *MessageService {
	return &MessageService{repo: repo}
}

// WithCache enables history caching
func (s *MessageService) WithCache(cache HistoryCache) *MessageService {
	s.cache = cache
	return s
}

// WithBreaker guards repository calls with a circuit breaker
func (s *MessageService) WithBreaker(breaker *resilience.CircuitBreaker) *MessageService {
	s.breaker = breaker
	return s
}

// Append validates and persists a message. The timestamp is assigned at write
// time when absent; the stored message (with its assigned ID) is returned.
func (s *MessageService) Append(message *models.Message) (*models.Message, error) {
	if message.AppointmentID == "" {
		return nil, errors.NewValidationError("appointmentId is required")
	}
	if strings.TrimSpace(message.Body) == "" {
		return nil, errors.NewValidationError("message body must not be empty")
	}
	if !message.SenderType.Valid() {
		return nil, errors.NewValidationError("senderType must be patient or doctor")
	}
	if message.SenderID == "" {
		return nil, errors.NewValidationError("senderId is required")
	}

	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now().UTC()
	}

	if err := s.execute(func() error { return s.repo.Create(message) }); err != nil {
		return nil, err
	}

	if s.cache != nil {
		s.cache.Delete(historyKey(message.AppointmentID))
	}

	return message, nil
}

// History returns all messages for an appointment ordered by ascending
// timestamp. Unknown appointment references yield an empty slice.
func (s *MessageService) History(appointmentID string) ([]models.Message, error) {
	key := historyKey(appointmentID)

	if s.cache != nil {
		if cached, ok := s.cache.Get(key); ok {
			var messages []models.Message
			if err := json.Unmarshal([]byte(cached), &messages); err == nil {
				return messages, nil
			}
			// A corrupt entry is dropped and re-read from the store
			s.cache.Delete(key)
		}
	}

	var messages []models.Message
	err := s.execute(func() error {
		var repoErr error
		messages, repoErr = s.repo.GetByAppointment(appointmentID)
		return repoErr
	})
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if encoded, err := json.Marshal(messages); err == nil {
			s.cache.Set(key, string(encoded))
		}
	}

	return messages, nil
}

func (s *MessageService) execute(fn func() error) error {
	if s.breaker == nil {
		return fn()
	}
	return s.breaker.Execute(fn)
}

func historyKey(appointmentID string) string {
	return "chat:history:" + appointmentID
}
