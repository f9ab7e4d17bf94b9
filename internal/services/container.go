package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nexconsult/gstin-api/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Container holds all service dependencies
type Container struct {
	config       *config.Config
	logger       *logrus.Logger
	redisClient  *redis.Client
	cancel       context.CancelFunc
	Store        RecordStore
	Session      SessionManager
	Orchestrator *RetryOrchestrator
	GSTINService *GSTINService
}

// NewContainer creates a new service container. The browser is launched
// lazily on the first lookup.
func NewContainer(cfg *config.Config, logger *logrus.Logger) (*Container, error) {
	container := &Container{
		config: cfg,
		logger: logger,
	}

	if err := container.initStore(); err != nil {
		return nil, fmt.Errorf("failed to initialize record store: %w", err)
	}

	container.initServices()
	return container, nil
}

// initStore opens the configured record store
func (c *Container) initStore() error {
	switch c.config.Store.Backend {
	case "redis":
		c.initRedis()
		cache := NewCacheService(c.redisClient, c.config.Store.TTL, c.logger)
		ctx, cancel := context.WithCancel(context.Background())
		c.cancel = cancel
		cache.StartCleanupRoutine(ctx, 5*time.Minute)
		c.Store = cache
	default:
		store, err := NewSQLiteStore(c.config.Store.SQLitePath, c.config.Store.TTL, c.logger)
		if err != nil {
			return err
		}
		c.Store = store
	}
	return nil
}

// initRedis initializes Redis client
func (c *Container) initRedis() {
	c.redisClient = redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", c.config.Redis.Host, c.config.Redis.Port),
		Password:     c.config.Redis.Password,
		DB:           c.config.Redis.DB,
		PoolSize:     c.config.Redis.PoolSize,
		DialTimeout:  c.config.Redis.DialTimeout,
		ReadTimeout:  c.config.Redis.ReadTimeout,
		WriteTimeout: c.config.Redis.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), c.config.Redis.DialTimeout+time.Second)
	defer cancel()
	if err := c.redisClient.Ping(ctx).Err(); err != nil {
		c.logger.WithError(err).Warn("Redis connection failed, caching in memory")
		c.redisClient.Close()
		c.redisClient = nil
	} else {
		c.logger.Info("Redis connection established")
	}
}

// initServices wires the lookup pipeline
func (c *Container) initServices() {
	jar := NewCookieJar(c.config.Browser.CookieFile, c.logger)
	session := NewChromeSession(c.config.Browser, jar, c.logger)
	c.Session = session

	diagnostics := NewDiagnosticsWriter(c.config.Diagnostics, c.logger)
	gate := NewCaptchaGate(c.config.Browser, c.config.Portal, session, c.logger)

	c.Orchestrator = NewRetryOrchestrator(
		c.config.Portal,
		session,
		NewNavigator(c.config.Portal, diagnostics, c.logger),
		gate,
		NewResponseInterceptor(c.config.Portal, c.logger),
		NewExtractionEngine(diagnostics, c.logger),
		diagnostics,
		c.logger,
	)
	c.GSTINService = NewGSTINService(c.Store, c.Orchestrator, c.logger)

	c.logger.WithField("captcha_mode", gate.Mode()).Info("Lookup pipeline ready")
}

// KeepAlive runs the session heartbeat
func (c *Container) KeepAlive(ctx context.Context) {
	if err := c.Session.KeepAlive(ctx); err != nil {
		c.logger.WithError(err).Warn("Session heartbeat failed")
	}
}

// Close closes all service connections
func (c *Container) Close() error {
	var errors []error

	if c.Orchestrator != nil {
		c.Orchestrator.Discard()
	}

	if c.Session != nil {
		if err := c.Session.Close(); err != nil {
			errors = append(errors, fmt.Errorf("failed to close browser session: %w", err))
		}
	}

	if c.cancel != nil {
		c.cancel()
	}

	// Closes the Redis client as well when it backs the store
	if c.Store != nil {
		if err := c.Store.Close(); err != nil {
			errors = append(errors, fmt.Errorf("failed to close record store: %w", err))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errors)
	}
	return nil
}

// Health checks the health of all services
func (c *Container) Health() map[string]interface{} {
	health := make(map[string]interface{})

	if c.Store != nil {
		health["store"] = c.Store.Health()
	}
	if c.Session != nil {
		health["browser"] = c.Session.Health()
	}
	if c.GSTINService != nil {
		health["gstin"] = c.GSTINService.Health()
	}
	return health
}
