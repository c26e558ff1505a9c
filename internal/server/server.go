package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/emilythestrangee/vamp/backend/internal/applications"
	"github.com/emilythestrangee/vamp/backend/internal/catalog"
	"github.com/emilythestrangee/vamp/backend/internal/config"
	"github.com/emilythestrangee/vamp/backend/internal/discussion"
	"github.com/emilythestrangee/vamp/backend/internal/handlers"
	"github.com/emilythestrangee/vamp/backend/internal/logging"
	"github.com/emilythestrangee/vamp/backend/internal/metrics"
	"github.com/emilythestrangee/vamp/backend/internal/middleware"
	"github.com/emilythestrangee/vamp/backend/internal/models"
	"github.com/emilythestrangee/vamp/backend/internal/views"
	"github.com/emilythestrangee/vamp/backend/internal/voting"
)

const serviceName = "vamp-api"

// Ledger is everything the engines need from a store. Both the Postgres
// store and the in-memory store satisfy it.
type Ledger interface {
	voting.Ledger
	applications.Ledger
	catalog.Store
	views.Source
	discussion.Ledger
}

// HealthFunc reports backing store health; a "status" of "up" means healthy.
type HealthFunc func() map[string]string

type Server struct {
	cfg      *config.Config
	log      *logrus.Logger
	handler  *handlers.Handler
	identify gin.HandlerFunc
	metrics  *metrics.Metrics
	registry *prometheus.Registry
	health   HealthFunc
}

// New wires the engines over ledger and prepares the router.
func New(cfg *config.Config, log *logrus.Logger, ledger Ledger, health HealthFunc) *Server {
	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	cat := catalog.NewService(ledger, log)
	handler := handlers.NewHandler(handlers.Services{
		Voting:       voting.NewService(ledger, log, m),
		Applications: applications.NewService(ledger, log, m),
		Catalog:      cat,
		Views:        views.NewService(ledger),
		Discussion:   discussion.NewService(ledger, log, m),
	}, log)

	return &Server{
		cfg:      cfg,
		log:      log,
		handler:  handler,
		identify: middleware.Identify(middleware.NewJWTResolver(cfg.JWTSecret), cat, log),
		metrics:  m,
		registry: reg,
		health:   health,
	}
}

// HTTPServer creates the configured HTTP server
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:         s.cfg.Addr(),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// RegisterRoutes sets up all application routes
func (s *Server) RegisterRoutes() *gin.Engine {
	if s.cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handlers.RegisterValidators(); err != nil {
		s.log.WithError(err).Warn("custom validators not registered")
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(s.metrics.Middleware())
	r.Use(logging.Middleware(s.log))

	// CORS configuration
	r.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	r.GET("/health", s.healthHandler)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	// API routes
	api := r.Group("/api")
	api.Use(s.identify)
	{
		// Public reads
		api.GET("/grants", s.handler.Grant.GetActiveGrants)
		api.GET("/grants/:id", s.handler.Grant.GetGrant)
		api.GET("/projects", s.handler.Project.GetProjects)
		api.GET("/projects/:id", s.handler.Project.GetProject)
		api.GET("/threads/:id", s.handler.Thread.GetThread)
		api.GET("/threads/:id/replies", s.handler.Discussion.GetReplies)
		api.GET("/projects/:id/comments", s.handler.Discussion.GetComments)
		api.GET("/leaderboard", s.handler.Dashboard.GetLeaderboard)
		api.GET("/users/:id/vibe-score", s.handler.Dashboard.GetVibeScore)

		// Protected routes (authentication required)
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			protected.GET("/me", s.handler.User.GetMe)
			protected.PATCH("/me/role", s.handler.User.SetRole)

			protected.POST("/projects", s.handler.Project.CreateProject)
			protected.POST("/threads", s.handler.Thread.CreateThread)

			protected.POST("/projects/:id/vote", s.handler.Vote.Toggle(models.TargetProject))
			protected.POST("/threads/:id/vote", s.handler.Vote.Toggle(models.TargetThread))

			protected.POST("/threads/:id/replies", s.handler.Discussion.AddReply)
			protected.POST("/projects/:id/comments", s.handler.Discussion.AddComment)
			protected.DELETE("/comments/:id", s.handler.Discussion.DeleteComment)

			protected.POST("/grants", s.handler.Grant.CreateGrant)
			protected.PATCH("/grants/:id/status", s.handler.Grant.UpdateGrantStatus)
			protected.POST("/grants/:id/applications", s.handler.Grant.Apply)
			protected.PATCH("/applications/:id/status", s.handler.Application.UpdateStatus)

			protected.GET("/dashboard/grants", s.handler.Dashboard.GetSponsorDashboard)
			protected.GET("/dashboard/grants/:id", s.handler.Dashboard.GetGrantDashboard)
		}
	}

	return r
}

func (s *Server) healthHandler(c *gin.Context) {
	if s.health == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
		return
	}
	stats := s.health()
	if stats["status"] != "up" {
		c.JSON(http.StatusServiceUnavailable, stats)
		return
	}
	c.JSON(http.StatusOK, stats)
}
