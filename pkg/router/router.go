package router

import (
	"strings"
	"time"

	"clinic-booking-demo/backend/chat/api"
	"clinic-booking-demo/backend/chat/ws"
	"clinic-booking-demo/backend/pkg/config"
	"clinic-booking-demo/backend/pkg/di"
	"clinic-booking-demo/backend/pkg/errors"
	"clinic-booking-demo/backend/pkg/logger"
	"clinic-booking-demo/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// Track server start time for uptime calculations
var startTime = time.Now()

// Router is the main router for the application
type Router struct {
	Engine    *gin.Engine
	Container *di.Container
	Logger    *logger.Logger
	Hub       *ws.Hub
	Config    *config.Config
}

// New creates a new router with the given container
func New(container *di.Container) *Router {
	// Use the container's logger
	logger.SetGlobal(container.Logger)

	// Load configuration
	cfg := config.Get()

	// Configure Gin mode based on environment
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize Gin router
	engine := gin.New()

	// Use the logger middleware first to capture all requests
	engine.Use(logger.Middleware(container.Logger))
	engine.Use(middleware.RequestIDMiddleware())

	// Add custom error handler middleware
	engine.Use(errors.ErrorHandler())

	// Add custom recovery middleware with structured logging instead of default
	engine.Use(errors.RecoveryWithLogger())

	// Create rate limiter with default options
	rateLimiter := middleware.NewRateLimiter(container.Logger)

	// Apply rate limiting to all routes
	engine.Use(rateLimiter.Middleware())

	// Initialize the chat hub; it owns the session registry, the room router
	// and the notification dispatcher for the lifetime of the process
	hub := ws.NewHub(container.MessageService, container.Logger)

	return &Router{
		Engine:    engine,
		Container: container,
		Logger:    container.Logger,
		Hub:       hub,
		Config:    cfg,
	}
}

// SetupRoutes registers all application routes
func (r *Router) SetupRoutes() {
	// Add CORS middleware
	r.Engine.Use(corsMiddleware(r.Config.Security.AllowedOrigins))

	// Health check endpoints
	r.setupHealthRoutes()

	// Chat history REST routes, behind JWT auth
	jwtAuth := middleware.JWTAuthMiddleware(r.Container.JWTService, r.Logger)
	chatHandler := api.NewChatHandler(r.Container.MessageService, r.Logger)
	api.RegisterChatRoutes(r.Engine, chatHandler, jwtAuth)

	// WebSocket route; the handler authenticates the handshake itself since
	// browsers cannot set headers on websocket upgrades
	r.Engine.GET("/ws", ws.ServeWs(r.Hub, r.Container.JWTService, r.Logger))
}

// corsMiddleware allows the configured frontend origins, including the
// headers needed by WebSocket upgrades
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" && originAllowed(origin, allowedOrigins) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		}

		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept, Accept-Encoding, X-CSRF-Token, Authorization, token, Origin, Upgrade, Connection, Cache-Control")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Upgrade, Connection")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, a := range allowed {
		if strings.EqualFold(a, origin) {
			return true
		}
	}
	return false
}
