package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yuno-ai/yuno-api/internal/config"
	"github.com/yuno-ai/yuno-api/internal/handler"
	"github.com/yuno-ai/yuno-api/internal/metrics"
	"github.com/yuno-ai/yuno-api/internal/middleware"
	"github.com/yuno-ai/yuno-api/internal/quota"
	"github.com/yuno-ai/yuno-api/internal/repository"
	"github.com/yuno-ai/yuno-api/internal/service"
	"github.com/yuno-ai/yuno-api/internal/storage"
	"github.com/yuno-ai/yuno-api/internal/token"
)

type Server struct {
	router     *gin.Engine
	config     *config.Config
	redis      *storage.RedisClient
	postgres   *storage.Postgres
	httpServer *http.Server

	widgetAuthority    *token.Authority
	dashboardAuthority *token.Authority
	guard              *quota.Guard
	metrics            *metrics.Metrics

	authHandler      *handler.AuthHandler
	chatHandler      *handler.ChatHandler
	usageHandler     *handler.UsageHandler
	dashboardHandler *handler.DashboardHandler
}

// New wires every component from configuration. All dependencies are
// constructed once here and passed down explicitly; nothing is looked up
// through package-level state.
func New(cfg *config.Config, redis *storage.RedisClient, postgres *storage.Postgres, completer service.ChatCompleter) (*Server, error) {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ttl := time.Duration(cfg.JWT.TTLSeconds) * time.Second

	widgetAuthority, err := token.NewAuthority(cfg.JWT.Secret, token.WidgetAudience, ttl)
	if err != nil {
		return nil, err
	}

	dashboardAuthority, err := token.NewAuthority(cfg.JWT.Secret, token.DashboardAudience, 24*time.Hour)
	if err != nil {
		return nil, err
	}

	guard := quota.NewGuard(redis, quota.PlanTableFromConfig(cfg.Plans))
	m := metrics.New()

	siteRepo := repository.NewSiteRepository(postgres)
	userRepo := repository.NewDashboardUserRepository(postgres)

	siteService := service.NewSiteService(siteRepo)
	dashboardService := service.NewDashboardService(userRepo, dashboardAuthority)

	s := &Server{
		router:             gin.New(),
		config:             cfg,
		redis:              redis,
		postgres:           postgres,
		widgetAuthority:    widgetAuthority,
		dashboardAuthority: dashboardAuthority,
		guard:              guard,
		metrics:            m,
		authHandler:        handler.NewAuthHandler(siteService, widgetAuthority, guard, m),
		chatHandler:        handler.NewChatHandler(completer),
		usageHandler:       handler.NewUsageHandler(guard),
		dashboardHandler:   handler.NewDashboardHandler(dashboardService, siteService, guard),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	widget := s.router.Group("/widget")
	{
		widget.POST("/authenticate", s.authHandler.Authenticate)
		widget.POST("/verify", s.authHandler.Verify)
		widget.POST("/refresh", s.authHandler.Refresh)

		// Protected routes run the full pipeline: session check, quota
		// check, handler, then usage increment on success.
		protected := widget.Group("")
		protected.Use(middleware.RequireSession(s.widgetAuthority, s.metrics))

		protected.GET("/usage", s.usageHandler.Usage)

		metered := protected.Group("")
		metered.Use(middleware.QuotaEnforcer(s.guard, s.metrics))
		metered.POST("/chat", s.chatHandler.Chat)
	}

	dashboard := s.router.Group("/dashboard")
	{
		dashboard.POST("/register", s.dashboardHandler.Register)
		dashboard.POST("/login", s.dashboardHandler.Login)

		admin := dashboard.Group("")
		admin.Use(middleware.RequireDashboard(s.dashboardAuthority, s.metrics))

		admin.POST("/sites", s.dashboardHandler.CreateSite)
		admin.GET("/sites", s.dashboardHandler.ListSites)
		admin.PATCH("/sites/:id", s.dashboardHandler.UpdateSite)
		admin.GET("/sites/:id/usage", s.dashboardHandler.SiteUsage)
		admin.POST("/sites/:id/quota/reset", s.dashboardHandler.ResetQuota)
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

	status := "healthy"
	statusCode := http.StatusOK

	// The API stays up without Redis (quota fails open), so a missing
	// counter store degrades rather than fails the health check.
	if !dbHealthy {
		status = "unhealthy"
		statusCode = http.StatusServiceUnavailable
	} else if !redisHealthy {
		status = "degraded"
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "yuno-api",
		"timestamp": time.Now().Unix(),
		"checks": gin.H{
			"redis":    redisHealthy,
			"database": dbHealthy,
		},
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

	log.Printf("Starting yuno-api on %s", addr)
	log.Printf("Environment: %s", s.config.Server.Environment)

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
