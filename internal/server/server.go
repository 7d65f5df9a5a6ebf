// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	_ "littletimes/docs" // swagger docs
	"littletimes/internal/cache"
	"littletimes/internal/config"
	"littletimes/internal/database"
	"littletimes/internal/featureflags"
	"littletimes/internal/jobs"
	"littletimes/internal/middleware"
	"littletimes/internal/models"
	"littletimes/internal/notify"
	"littletimes/internal/oauth"
	"littletimes/internal/payment"
	"littletimes/internal/repository"
	"littletimes/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	featureFlags   *featureflags.Manager
	mailer         notify.Mailer
	oauthProviders oauth.Registry
	scheduler      *jobs.Scheduler

	userRepo         repository.UserRepository
	confirmationRepo repository.ConfirmationRepository
	postRepo         repository.PostRepository
	commentRepo      repository.CommentRepository
	subscriptionRepo repository.SubscriptionRepository
	freeTrialRepo    repository.FreeTrialRepository
	statsRepo        repository.StatsRepository

	authService      *service.AuthService
	userService      *service.UserService
	postService      *service.PostService
	commentService   *service.CommentService
	paymentService   *service.PaymentService
	adminService     *service.AdminService
	freeTrialService *service.FreeTrialService
	notifyService    *service.NotifyService
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	// Redis is optional; a nil client disables caching and revocation.
	cache.InitRedis(cfg.RedisURL)

	return NewServerWithDeps(cfg, db, cache.GetClient())
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// Use this in tests or when a bootstrap layer establishes DB/Redis.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	flags := featureflags.NewManager(cfg.FeatureFlags)
	if cfg.FlagsFile != "" {
		if err := flags.LoadFile(cfg.FlagsFile); err != nil {
			return nil, fmt.Errorf("load feature flags: %w", err)
		}
	}

	s := &Server{
		config:           cfg,
		db:               db,
		redis:            redisClient,
		promMiddleware:   middleware.InitMetrics("littletimes-api"),
		featureFlags:     flags,
		mailer:           notify.FromConfig(cfg),
		oauthProviders:   oauth.Registry{},
		userRepo:         repository.NewUserRepository(db),
		confirmationRepo: repository.NewConfirmationRepository(db),
		postRepo:         repository.NewPostRepository(db),
		commentRepo:      repository.NewCommentRepository(db),
		subscriptionRepo: repository.NewSubscriptionRepository(db),
		freeTrialRepo:    repository.NewFreeTrialRepository(db),
		statsRepo:        repository.NewStatsRepository(db),
	}

	if cfg.GoogleClientID != "" && cfg.GoogleClientSecret != "" {
		s.oauthProviders["google"] = oauth.NewGoogleProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	}

	mailFrom := cfg.AlertFromEmail
	if cfg.SMTPFrom != "" && cfg.ResendAPIKey == "" {
		mailFrom = cfg.SMTPFrom
	}

	s.userService = service.NewUserService(s.userRepo)
	s.authService = service.NewAuthService(s.userRepo, s.confirmationRepo, s.mailer, service.AuthConfig{
		JWTSecret:                cfg.JWTSecret,
		SessionTTL:               cfg.SessionTTL(),
		RequireEmailConfirmation: cfg.RequireEmailConfirmation,
		ConfirmURL:               strings.TrimRight(cfg.PublicBaseURL, "/") + "/auth/confirm",
		MailFrom:                 mailFrom,
	})
	s.postService = service.NewPostService(s.postRepo, s.userService.IsAdmin)
	s.commentService = service.NewCommentService(s.commentRepo, s.postRepo, s.userService.IsAdmin)
	s.paymentService = service.NewPaymentService(
		s.subscriptionRepo,
		s.userRepo,
		payment.NewClient(cfg.TossAPIBase, cfg.TossSecretKey, nil),
		flags,
		service.PaymentConfig{
			ClientKey:       cfg.TossClientKey,
			PublicBaseURL:   strings.TrimRight(cfg.PublicBaseURL, "/"),
			PendingOrderTTL: cfg.PendingOrderTTL(),
		},
	)
	s.adminService = service.NewAdminService(s.userRepo, s.postRepo, s.commentRepo, s.freeTrialRepo, s.statsRepo)
	s.freeTrialService = service.NewFreeTrialService(s.freeTrialRepo)
	s.notifyService = service.NewNotifyService(s.webhookMailer(), service.WebhookConfig{
		Secret: cfg.WebhookSecret,
		To:     cfg.AlertToEmail,
		From:   cfg.AlertFromEmail,
	})

	return s, nil
}

// webhookMailer returns the Resend transport only. The alert hook reports a
// missing API key as a configuration error instead of falling back.
func (s *Server) webhookMailer() notify.Mailer {
	if strings.TrimSpace(s.config.ResendAPIKey) == "" {
		return nil
	}
	return notify.NewResendMailer(s.config.ResendAPIBase, s.config.ResendAPIKey, nil)
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	if s.config.TracingEnabled {
		app.Use(middleware.TracingMiddleware())
	}

	// Context Middleware to propagate Request ID and User ID
	app.Use(middleware.ContextMiddleware())

	// Prometheus Metrics
	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	// Security headers
	app.Use(helmet.New())

	// Structured Logging middleware (after requestid and context middleware)
	app.Use(middleware.StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}

	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Webhook-Secret",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "요청이 너무 많습니다. 잠시 후 다시 시도해주세요.",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	// Health checks
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)
	app.Get("/health", s.ReadinessCheck)

	// Metrics endpoint for Prometheus
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/admin/monitor", s.AuthRequired(), s.AdminRequired(), monitor.New(monitor.Config{
		Title: "Little Times API Monitor",
	}))

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/register", middleware.RateLimit(s.redis, 3, 10*time.Minute, "register"), s.Register)
	auth.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	auth.Get("/confirm", s.ConfirmEmail)
	auth.Post("/logout", s.AuthRequired(), s.Logout)
	auth.Post("/refresh", s.AuthRequired(), s.Refresh)
	auth.Get("/session", s.AuthRequired(), s.GetSession)
	auth.Get("/oauth/:provider", s.OAuthStart)
	auth.Get("/oauth/:provider/callback", s.OAuthCallback)

	// Public board routes
	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Get("/:id/comments", s.GetComments)
	posts.Get("/:id", s.GetPost)

	api.Get("/plans", s.GetPlans)
	api.Post("/free-trials", middleware.RateLimit(s.redis, 5, 10*time.Minute, "free_trial"), s.CreateFreeTrial)
	api.All("/webhooks/free-trial", s.FreeTrialWebhook)

	// Protected routes. Never attach auth to an empty-prefix group: it would
	// answer 401 for every unmatched /api path.
	requireAuth := s.AuthRequired()

	users := api.Group("/users", requireAuth)
	users.Get("/me", s.GetMyProfile)
	users.Put("/me", s.UpdateMyProfile)
	users.Get("/me/subscriptions/active", s.GetMyActiveSubscription)
	users.Get("/me/subscriptions", s.GetMySubscriptions)

	posts.Post("/", requireAuth, middleware.RateLimit(s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)
	// Define specific /:id/:resource routes BEFORE generic /:id route
	posts.Get("/:id/like", requireAuth, s.GetLikeStatus)
	posts.Post("/:id/like", requireAuth, s.ToggleLike)
	posts.Post("/:id/comments", requireAuth, middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Put("/:id", requireAuth, s.UpdatePost)
	posts.Delete("/:id", requireAuth, s.DeletePost)

	comments := api.Group("/comments", requireAuth)
	comments.Put("/:id", s.UpdateComment)
	comments.Delete("/:id", s.DeleteComment)

	api.Post("/subscriptions", requireAuth, s.CreateSubscription)

	payments := api.Group("/payments", requireAuth)
	payments.Post("/request", s.RequestPayment)
	payments.Post("/confirm", middleware.RateLimit(s.redis, 10, time.Minute, "payment_confirm"), s.ConfirmPayment)
	payments.Post("/fail", s.FailPayment)

	// Admin routes
	admin := api.Group("/admin", requireAuth, s.AdminRequired())
	admin.Get("/stats", s.GetAdminStats)
	admin.Get("/posts", s.GetAdminPosts)
	admin.Delete("/posts/:id", s.AdminDeletePost)
	admin.Get("/comments", s.GetAdminComments)
	admin.Delete("/comments/:id", s.AdminDeleteComment)
	admin.Get("/users", s.GetAdminUsers)
	admin.Patch("/users/:id/role", s.UpdateUserRole)
	admin.Get("/free-trials", s.GetAdminFreeTrials)
	admin.Patch("/free-trials/:id/status", s.UpdateFreeTrialStatus)
	admin.Get("/feature-flags", s.GetFeatureFlags)
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck handles readiness probe requests. Redis is optional, so a
// missing client reports "unavailable" without failing the probe.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if err := database.Ping(ctx, s.db); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// StartJobs schedules the pending-order sweep.
func (s *Server) StartJobs() error {
	s.scheduler = jobs.NewScheduler()
	if err := s.scheduler.AddSweep(s.config.SweepSchedule, s.paymentService); err != nil {
		return err
	}
	s.scheduler.Start()
	return nil
}

// App builds the Fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "Little Times API",
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return models.RespondWithError(c, fe.Code, fe)
			}
			log.Printf("Error: %v", err)
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})

	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	s.app = s.App()

	if err := s.StartJobs(); err != nil {
		return fmt.Errorf("schedule jobs: %w", err)
	}

	log.Printf("Server starting on port %s...", s.config.Port)
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.scheduler != nil {
		s.scheduler.Stop(10 * time.Second)
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			log.Printf("error shutting down HTTP server: %v", err)
		}
	}

	// Close database connection
	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	// Close Redis connection
	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}
