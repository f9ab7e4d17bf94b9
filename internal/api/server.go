package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nexconsult/gstin-api/internal/api/handlers"
	"github.com/nexconsult/gstin-api/internal/api/middleware"
	"github.com/nexconsult/gstin-api/internal/config"
	"github.com/nexconsult/gstin-api/internal/models"
	"github.com/nexconsult/gstin-api/internal/services"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Server represents the HTTP server
type Server struct {
	Router      *gin.Engine
	config      *config.Config
	logger      *logrus.Logger
	services    *services.Container
	rateLimiter *middleware.RateLimiter
}

// NewServer creates a new HTTP server
func NewServer(cfg *config.Config, logger *logrus.Logger, services *services.Container) *Server {
	server := &Server{
		config:   cfg,
		logger:   logger,
		services: services,
	}

	server.setupRouter()
	return server
}

// Close stops background work owned by the server
func (s *Server) Close() {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
}

// setupRouter configures the router with all routes and middleware
func (s *Server) setupRouter() {
	s.Router = gin.New()

	// Global middleware
	s.Router.Use(middleware.RequestID())
	s.Router.Use(middleware.Logger(s.logger))
	s.Router.Use(middleware.Recovery(s.logger))
	s.Router.Use(middleware.CORS(s.config.Security.CORS))
	s.Router.Use(middleware.Security())

	s.rateLimiter = middleware.NewRateLimiter(s.config.Security.RateLimit)
	s.Router.Use(s.rateLimiter.Middleware())

	healthHandler := handlers.NewHealthHandler(s.services, s.logger)
	s.Router.GET("/health", healthHandler.GetHealth)
	s.Router.GET("/health/ready", healthHandler.GetReadiness)
	s.Router.GET("/health/live", healthHandler.GetLiveness)

	s.Router.GET("/metrics", handlers.NewMetricsHandler(s.services.GSTINService, s.services.Session, s.logger).GetMetrics)

	// Swagger documentation
	if s.config.Server.Environment != "production" {
		s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
		s.Router.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
		})
	}

	v1 := s.Router.Group("/api/v1")
	{
		gstinHandler := handlers.NewGSTINHandler(s.services.GSTINService, s.logger)
		gstin := v1.Group("/gstin")
		{
			gstin.POST("/verify", gstinHandler.Verify)
			gstin.POST("/captcha", gstinHandler.SubmitCaptcha)
			gstin.GET("/:gstin", gstinHandler.GetGSTIN)
		}

		cacheHandler := handlers.NewCacheHandler(s.services.Store, s.logger)
		cache := v1.Group("/cache")
		{
			cache.GET("/stats", cacheHandler.GetStats)
			cache.GET("/:gstin", cacheHandler.Get)
			cache.DELETE("/:gstin", cacheHandler.Delete)
		}

		sessionHandler := handlers.NewSessionHandler(s.services.Session, s.logger)
		session := v1.Group("/session")
		{
			session.GET("/health", sessionHandler.GetHealth)
			session.POST("/restart", sessionHandler.Restart)
			session.POST("/cookies", sessionHandler.SaveCookies)
		}
	}

	s.Router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:     "Not Found",
			Message:   "The requested resource was not found",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
	})

	s.Router.HandleMethodNotAllowed = true
	s.Router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, models.ErrorResponse{
			Error:     "Method Not Allowed",
			Message:   "The requested method is not allowed for this resource",
			Timestamp: time.Now(),
			Path:      c.Request.URL.Path,
		})
	})
}
