package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"clinic-booking-demo/backend/chat/models"
	"clinic-booking-demo/backend/chat/repository"
	"clinic-booking-demo/backend/chat/service"
	"clinic-booking-demo/backend/pkg/errors"
	"clinic-booking-demo/backend/pkg/jwt"
	"clinic-booking-demo/backend/pkg/logger"
	"clinic-booking-demo/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type historyResponse struct {
	Success  bool             `json:"success"`
	Messages []models.Message `json:"messages"`
}

func newTestRouter(svc *service.MessageService) (*gin.Engine, *jwt.Service) {
	gin.SetMode(gin.TestMode)
	log := logger.New(logger.DefaultConfig())
	jwtService := jwt.NewService("test-secret", time.Hour)

	r := gin.New()
	r.Use(errors.ErrorHandler())
	handler := NewChatHandler(svc, log)
	RegisterChatRoutes(r, handler, middleware.JWTAuthMiddleware(jwtService, log))
	return r, jwtService
}

func authedRequest(t *testing.T, jwtService *jwt.Service, path string) *http.Request {
	t.Helper()
	token, err := jwtService.GenerateToken("user-1", jwt.RolePatient, "Alice")
	require.NoError(t, err)

	req, _ := http.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestGetHistory_RequiresAuth(t *testing.T) {
	svc := service.NewMessageService(repository.NewMemoryMessageRepository())
	r, _ := newTestRouter(svc)

	req, _ := http.NewRequest(http.MethodGet, "/api/chat/history/appt-42", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusUnauthorized, w.Code)

	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, errors.CodeAuthenticationFailed, resp.Error.Code)
}

func TestGetHistory_RejectsBadToken(t *testing.T) {
	svc := service.NewMessageService(repository.NewMemoryMessageRepository())
	r, _ := newTestRouter(svc)

	req, _ := http.NewRequest(http.MethodGet, "/api/chat/history/appt-42", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetHistory_EmptyAppointment(t *testing.T) {
	svc := service.NewMessageService(repository.NewMemoryMessageRepository())
	r, jwtService := newTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, jwtService, "/api/chat/history/appt-empty"))

	require.Equal(t, http.StatusOK, w.Code)

	var resp historyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Messages)
	assert.Empty(t, resp.Messages)
}

func TestGetHistory_ReturnsOrderedMessages(t *testing.T) {
	svc := service.NewMessageService(repository.NewMemoryMessageRepository())

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	for i, body := range []string{"hello", "hi there", "how are you"} {
		_, err := svc.Append(&models.Message{
			AppointmentID: "appt-42",
			SenderID:      "user-1",
			SenderType:    models.SenderPatient,
			Body:          body,
			Timestamp:     base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	r, jwtService := newTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, jwtService, "/api/chat/history/appt-42"))

	require.Equal(t, http.StatusOK, w.Code)

	var resp historyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.Len(t, resp.Messages, 3)
	assert.Equal(t, "hello", resp.Messages[0].Body)
	assert.Equal(t, "how are you", resp.Messages[2].Body)
	assert.Equal(t, models.SenderPatient, resp.Messages[0].SenderType)
}

func TestGetHistory_WireShape(t *testing.T) {
	svc := service.NewMessageService(repository.NewMemoryMessageRepository())
	_, err := svc.Append(&models.Message{
		AppointmentID: "appt-42",
		SenderID:      "user-1",
		SenderType:    models.SenderPatient,
		Body:          "hello",
	})
	require.NoError(t, err)

	r, jwtService := newTestRouter(svc)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, authedRequest(t, jwtService, "/api/chat/history/appt-42"))
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Messages []map[string]interface{} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Messages, 1)

	row := resp.Messages[0]
	for _, key := range []string{"id", "appointmentId", "senderId", "senderType", "message", "timestamp"} {
		assert.Contains(t, row, key)
	}
	assert.Len(t, row, 6)
}
