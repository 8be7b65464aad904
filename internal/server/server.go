package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/aman-churiwal/exchange-governor/internal/config"
	"github.com/aman-churiwal/exchange-governor/internal/governor"
	"github.com/aman-churiwal/exchange-governor/internal/handler"
	"github.com/aman-churiwal/exchange-governor/internal/middleware"
	"github.com/aman-churiwal/exchange-governor/internal/ratelimit"
	"github.com/aman-churiwal/exchange-governor/internal/repository"
	"github.com/aman-churiwal/exchange-governor/internal/service"
	"github.com/aman-churiwal/exchange-governor/internal/storage"
	"github.com/gin-gonic/gin"
)

type Server struct {
	router          *gin.Engine
	config          *config.Config
	redis           *storage.RedisClient
	postgres        *storage.Postgres
	gov             *governor.Governor
	snapshotService *service.SnapshotService
	statusHandler   *handler.StatusHandler
	historyHandler  *handler.HistoryHandler
	httpServer      *http.Server
}

func New(cfg *config.Config, redis *storage.RedisClient, postgres *storage.Postgres, gov *governor.Governor) *Server {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Initialize the read-model service and handlers
	snapshotService := service.NewSnapshotService(gov, redis)
	statusHandler := handler.NewStatusHandler(snapshotService, cfg.Profiles)
	ticketLogRepo := repository.NewTicketLogRepository(postgres)
	historyHandler := handler.NewHistoryHandler(ticketLogRepo)

	s := &Server{
		router:          router,
		config:          cfg,
		redis:           redis,
		postgres:        postgres,
		gov:             gov,
		snapshotService: snapshotService,
		statusHandler:   statusHandler,
		historyHandler:  historyHandler,
	}

	// Setup middleware
	s.setupMiddleware()

	// Setup routes
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())

	limiter := ratelimit.NewFixedWindow(s.redis, s.config.RateLimit.RequestsPerMinute, time.Minute)
	s.router.Use(middleware.RateLimit(limiter))
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	{
		rl := v1.Group("/ratelimit")
		{
			rl.GET("/status", s.statusHandler.GetStatus)
			rl.GET("/usage", s.statusHandler.GetUsage)
			rl.GET("/queue", s.statusHandler.GetQueue)
			rl.GET("/capacity", s.statusHandler.GetCapacity)
			rl.GET("/recommendations", s.statusHandler.GetRecommendations)
			rl.GET("/profiles", s.statusHandler.GetProfiles)
		}

		v1.GET("/history", s.historyHandler.GetHistory)
		v1.GET("/history/summary", s.historyHandler.GetSummary)
	}

	admin := s.router.Group("/admin")
	{
		admin.GET("/status", s.adminStatus)
		admin.DELETE("/history", s.historyHandler.PruneHistory)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	redisHealthy := true
	if err := s.redis.Ping(c.Request.Context()); err != nil {
		redisHealthy = false
		log.Printf("Redis health check failed: %v", err)
	}

	dbHealthy := true
	if err := s.postgres.Ping(c.Request.Context()); err != nil {
		dbHealthy = false
		log.Printf("Database health check failed: %v", err)
	}

	governorHealthy := !s.gov.Stopped()

	status := "healthy"
	statusCode := http.StatusOK

	if !redisHealthy || !dbHealthy || !governorHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "exchange-governor",
		"version":   "1.0.0",
		"timestamp": time.Now().Unix(),
		"checks": gin.H{
			"redis":    redisHealthy,
			"database": dbHealthy,
			"governor": governorHealthy,
		},
	})
}

func (s *Server) adminStatus(c *gin.Context) {
	snap := s.snapshotService.Live()
	c.JSON(http.StatusOK, gin.H{
		"governor":  "running",
		"usage":     snap.Usage,
		"queue":     snap.Queue,
		"uptime":    time.Since(startTime).Seconds(),
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	log.Printf("Starting rate limit governor API on %s", addr)
	log.Printf("Environment: %s", s.config.Server.Environment)

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

var startTime = time.Now()
