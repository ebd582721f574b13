package di

import (
	"time"

	"gorm.io/gorm"

	"clinic-booking-demo/backend/chat/repository"
	"clinic-booking-demo/backend/chat/service"
	"clinic-booking-demo/backend/pkg/cache"
	"clinic-booking-demo/backend/pkg/config"
	"clinic-booking-demo/backend/pkg/jwt"
	"clinic-booking-demo/backend/pkg/logger"
	"clinic-booking-demo/backend/pkg/resilience"
	"clinic-booking-demo/backend/shared/redis"
)

// Config holds the dependencies' tunables. Values come from the application
// config in production; tests pass their own.
type Config struct {
	LoggerConfig    logger.Config
	JWTSecret       string
	JWTExpiry       time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	HistoryCacheTTL time.Duration
	CacheEnabled    bool
}

// DefaultConfig builds a container config from the application config
func DefaultConfig() Config {
	cfg := config.Get()
	return Config{
		LoggerConfig: logger.Config{
			Level: cfg.Logging.Level,
			JSON:  cfg.Logging.Format == "json",
		},
		JWTSecret:       cfg.JWT.Secret,
		JWTExpiry:       cfg.JWT.Expiry,
		RedisAddr:       cfg.Redis.Addr,
		RedisPassword:   cfg.Redis.Password,
		RedisDB:         cfg.Redis.DB,
		HistoryCacheTTL: cfg.Chat.HistoryCacheTTL,
		CacheEnabled:    cfg.Cache.Enabled,
	}
}

// Container holds the service's wired dependencies
type Container struct {
	Config Config
	DB     *gorm.DB
	Logger *logger.Logger

	JWTService        *jwt.Service
	MessageRepository repository.MessageRepository
	MessageService    *service.MessageService
	RedisClient       *redis.Client
}

// New wires the dependency graph. A nil db falls back to the in-memory
// message repository, which is what tests and local development use.
func New(db *gorm.DB, cfg Config) *Container {
	log := logger.New(cfg.LoggerConfig)

	var repo repository.MessageRepository
	if db != nil {
		repo = repository.NewGormMessageRepository(db)
	} else {
		repo = repository.NewMemoryMessageRepository()
	}

	breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("chat-db"), log)
	messageService := service.NewMessageService(repo).WithBreaker(breaker)

	container := &Container{
		Config:            cfg,
		DB:                db,
		Logger:            log,
		JWTService:        jwt.NewService(cfg.JWTSecret, cfg.JWTExpiry),
		MessageRepository: repo,
		MessageService:    messageService,
	}

	if cfg.CacheEnabled {
		container.wireHistoryCache()
	}

	return container
}

// wireHistoryCache prefers redis when an address is configured and falls back
// to the in-memory cache otherwise
func (c *Container) wireHistoryCache() {
	if c.Config.RedisAddr != "" {
		c.RedisClient = redis.NewClient(c.Config.RedisAddr, c.Config.RedisPassword, c.Config.RedisDB, c.Config.HistoryCacheTTL)
		c.MessageService.WithCache(c.RedisClient)
		c.Logger.Info("history cache backed by redis", "addr", c.Config.RedisAddr)
		return
	}

	c.MessageService.WithCache(newMemoryHistoryCache(c.Config.HistoryCacheTTL))
	c.Logger.Info("history cache backed by in-process memory")
}

// Close releases any held resources
func (c *Container) Close() error {
	if c.RedisClient != nil {
		return c.RedisClient.Close()
	}
	return nil
}

// memoryHistoryCache adapts the generic in-memory cache to the history cache
// port used by the message service
type memoryHistoryCache struct {
	cache *cache.Cache
}

func newMemoryHistoryCache(ttl time.Duration) *memoryHistoryCache {
	return &memoryHistoryCache{
		cache: cache.NewCacheWithOptions(ttl, 10*time.Minute, 1000),
	}
}

func (m *memoryHistoryCache) Get(key string) (string, bool) {
	value, ok := m.cache.Get(key)
	if !ok {
		return "", false
	}
	str, ok := value.(string)
	return str, ok
}

func (m *memoryHistoryCache) Set(key, value string) {
	m.cache.Set(key, value)
}

func (m *memoryHistoryCache) Delete(key string) {
	m.cache.Delete(key)
}
