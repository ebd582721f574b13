package ws

import (
	"net/http"
	"strings"
	"time"

	"clinic-booking-demo/backend/pkg/errors"
	"clinic-booking-demo/backend/pkg/jwt"
	"clinic-booking-demo/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Origin is enforced by the CORS layer in front
	},
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
}

// ServeWs authenticates the handshake and hands the connection to the hub.
// A missing or invalid credential rejects the connection before any event is
// processed; no unauthenticated session state ever exists.
func ServeWs(hub *Hub, jwtService *jwt.Service, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, err := authenticate(c, jwtService)
		if err != nil {
			log.Warn("websocket authentication failed", "error", err.Error())
			appErr := errors.NewAuthenticationError("Authentication error")
			if err == jwt.ErrExpiredToken {
				appErr = errors.NewUnauthorizedError(errors.CodeTokenExpired, "Token has expired")
			}
			c.AbortWithStatusJSON(appErr.StatusCode, gin.H{
				"error": gin.H{"code": appErr.Code, "message": appErr.Message},
			})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			log.LogError(err, "websocket upgrade failed")
			return
		}

		client := newClient(hub, conn, claims, log)
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}

// authenticate resolves the credential supplied with the handshake. Tokens
// are accepted from the token query parameter, the Authorization bearer
// header or a bare token header, mirroring the clients' unified handling.
func authenticate(c *gin.Context, jwtService *jwt.Service) (*jwt.Claims, error) {
	token := c.Query("token")

	if token == "" {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}

	if token == "" {
		token = c.GetHeader("token")
	}

	return jwtService.ValidateToken(token)
}
