package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/dafibh/sppku/sppku-backend/internal/config"
	"github.com/dafibh/sppku/sppku-backend/internal/handler"
	"github.com/dafibh/sppku/sppku-backend/internal/middleware"
	"github.com/dafibh/sppku/sppku-backend/internal/notify"
	"github.com/dafibh/sppku/sppku-backend/internal/repository/postgres"
	"github.com/dafibh/sppku/sppku-backend/internal/repository/storage"
	"github.com/dafibh/sppku/sppku-backend/internal/service"
	"github.com/dafibh/sppku/sppku-backend/internal/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	echoSwagger "github.com/swaggo/echo-swagger"
)

// @title SPPKu API
// @version 1.0
// @description Tuition (SPP) and enrollment (PPDB) billing with manual transfer verification
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Initialize zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("ENV") != "production" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Connect to database
	pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	// Verify database connection
	if err := pool.Ping(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ping database")
	}
	log.Info().Msg("Connected to database")

	// Initialize repositories
	userRepo := postgres.NewUserRepository(pool)
	classRepo := postgres.NewClassRepository(pool)
	studentRepo := postgres.NewStudentRepository(pool)
	feeItemRepo := postgres.NewFeeItemRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)

	// Proof storage stays nil when no bucket is configured; submissions then fail with 503
	var proofRepo storage.ProofRepository
	if cfg.S3.Enabled() {
		s3Repo, err := storage.NewS3ProofRepository(context.Background(), cfg.S3)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to initialize proof storage")
		}
		proofRepo = s3Repo
		log.Info().Str("bucket", cfg.S3.Bucket).Msg("Proof storage initialized")
	} else {
		log.Warn().Msg("S3_BUCKET not set, payment submission is disabled")
	}

	// Notification gateway
	var messenger notify.Messenger = notify.NoopMessenger{}
	if cfg.WhatsApp.Enabled() {
		messenger = notify.NewWhatsAppClient(cfg.WhatsApp)
		log.Info().Msg("WhatsApp notifications enabled")
	}

	// Realtime events
	hub := websocket.NewHub()

	// Initialize services
	authService := service.NewAuthService(userRepo, studentRepo)
	classService := service.NewClassService(classRepo)
	studentService := service.NewStudentService(studentRepo, classRepo)
	feeService := service.NewFeeService(feeItemRepo, classRepo)
	feeService.SetEventPublisher(hub)
	billingService := service.NewBillingService(studentRepo, feeItemRepo, paymentRepo)
	proofService := service.NewProofService(proofRepo, cfg.Payments)
	paymentService := service.NewPaymentService(paymentRepo, studentRepo, feeItemRepo, proofService)
	paymentService.SetEventPublisher(hub)
	paymentService.SetMessenger(messenger, cfg.WhatsApp.AdminPhone, cfg.WhatsApp.Timeout)
	reportService := service.NewReportService(paymentRepo, studentRepo, feeItemRepo)

	// Initialize auth middleware
	authMiddleware, err := middleware.NewAuthMiddleware(cfg.Auth0Domain, cfg.Auth0Audience, authService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create auth middleware")
	}
	wsValidator, err := websocket.NewAuth0JWTValidator(cfg.Auth0Domain, cfg.Auth0Audience, authService)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create WebSocket token validator")
	}

	submitLimiter := middleware.NewRateLimiter(cfg.Payments.SubmitRatePerMinute, cfg.Payments.SubmitBurst)
	defer submitLimiter.Stop()

	// Initialize handlers
	handlers := handler.Handlers{
		Auth:    handler.NewAuthHandler(authService, studentService),
		Billing: handler.NewBillingHandler(billingService),
		Payment: handler.NewPaymentHandler(paymentService, cfg.Payments.ProofMaxBytes),
		Fee:     handler.NewFeeHandler(feeService),
		Student: handler.NewStudentHandler(studentService, classService),
		Report:  handler.NewReportHandler(reportService),
	}
	wsHandler := handler.NewWebSocketHandler(hub, wsValidator, cfg.CORSOrigins)
	openAPIHandler := handler.NewOpenAPIHandler(handler.Server{URL: "/api/v1"})

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()

	// Request ID middleware
	e.Use(echomiddleware.RequestID())

	// CORS middleware
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		ExposeHeaders:    []string{echo.HeaderContentDisposition, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Security headers middleware (helmet-like)
	e.Use(echomiddleware.SecureWithConfig(echomiddleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'",
		ReferrerPolicy:        "strict-origin-when-cross-origin",
	}))

	// Request logging middleware with zerolog
	e.Use(zerologMiddleware())

	// Recovery middleware
	e.Use(echomiddleware.Recover())

	// Multipart overhead on top of the proof image
	e.Use(echomiddleware.BodyLimit(strconv.Itoa(cfg.Payments.ProofMaxBytes/1024+512) + "K"))

	// Health check endpoint
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	// WebSocket (authenticates with ?token=)
	e.GET("/ws", wsHandler.HandleWS)

	// API documentation
	if !cfg.IsProduction() {
		e.GET("/swagger/*", echoSwagger.WrapHandler)
	}
	e.GET("/openapi.json", openAPIHandler.Serve)

	// Register API routes
	handler.RegisterRoutes(e, authMiddleware, submitLimiter, handlers)

	// Start server in goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

// zerologMiddleware returns a middleware that logs requests using zerolog
func zerologMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()

			event := log.Info()
			if res.Status >= http.StatusInternalServerError {
				event = log.Error()
			}
			event.
				Str("method", req.Method).
				Str("path", req.URL.Path).
				Int("status", res.Status).
				Dur("latency", time.Since(start)).
				Str("request_id", res.Header().Get(echo.HeaderXRequestID)).
				Msg("request")

			return nil
		}
	}
}
