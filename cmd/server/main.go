package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/jetlink/charter-booking-backend/internal/config"
	"github.com/jetlink/charter-booking-backend/internal/database"
	"github.com/jetlink/charter-booking-backend/internal/handlers"
	"github.com/jetlink/charter-booking-backend/internal/middleware"
	"github.com/jetlink/charter-booking-backend/internal/services"
	"github.com/jetlink/charter-booking-backend/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting JetLink Charter Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Transactional repositories need the underlying sqlx handle.
	sqlxDB, ok := db.(*database.PostgresDB)
	if !ok {
		logger.Fatal("Failed to cast database connection to PostgresDB")
	}

	// Initialize redis. The cache and sweep lock degrade gracefully, so a
	// missing redis is a warning rather than a startup failure.
	cache := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := cache.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unavailable, running without cache")
		cache = nil
	} else {
		logger.Info("Redis connection established")
		defer cache.Close()
	}
	pingCancel()

	// Initialize repositories
	requestRepo := database.NewFlightRequestRepository(sqlxDB.DB)
	offerRepo := database.NewOfferRepository(sqlxDB.DB)
	rejectionRepo := database.NewRejectionRepository(db)
	cancellationRepo := database.NewCancellationRepository(db)
	statsRepo := database.NewOperatorStatsRepository(db)
	auditRepo := database.NewBookingAuditRepository(db)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret)
	negotiationService := services.NewNegotiationService(
		requestRepo, offerRepo, rejectionRepo,
		cache, cfg.Booking.PaymentWindow, logger,
	)
	cancellationService := services.NewCancellationService(
		requestRepo, offerRepo, cancellationRepo, statsRepo,
		cfg.Booking.OperatorCancellationLimit,
		cfg.Booking.OperatorInvoiceAccessLimit,
		logger,
	)
	auditService := services.NewAuditService(auditRepo, logger)

	// Start the payment window sweep
	sweepService := services.NewPaymentWindowService(requestRepo, auditService, cache, cfg.Booking.SweepInterval, logger)
	sweepService.Start()

	// Start scheduled maintenance jobs
	cronService := services.NewCronService(requestRepo, auditService, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(negotiationService, auditService)
	operatorHandler := handlers.NewOperatorHandler(negotiationService, cancellationService, auditService)
	cancellationHandler := handlers.NewCancellationHandler(cancellationService, auditService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", healthCheckHandler(db))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(jwtService))
	{
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", middleware.RequireRole(middleware.RoleCustomer), bookingHandler.CreateFlightRequest)
			bookings.GET("", middleware.RequireRole(middleware.RoleOperator), operatorHandler.GetOpenRequests)
			bookings.GET("/my", middleware.RequireRole(middleware.RoleCustomer), bookingHandler.GetMyRequests)
			bookings.GET("/:id", middleware.RequireRole(middleware.RoleCustomer), bookingHandler.GetRequest)
			bookings.GET("/:id/offers", middleware.RequireRole(middleware.RoleCustomer), bookingHandler.GetOffers)
			bookings.POST("/:id/offers", middleware.RequireRole(middleware.RoleOperator), operatorHandler.SubmitOffer)
			bookings.POST("/:id/reject", middleware.RequireRole(middleware.RoleOperator), operatorHandler.RejectRequest)
			bookings.POST("/:id/accept", middleware.RequireRole(middleware.RoleCustomer), bookingHandler.AcceptOffer)
			bookings.POST("/:id/payment", middleware.RequireRole(middleware.RoleCustomer), bookingHandler.RecordPayment)
			bookings.POST("/:id/cancel", middleware.RequireRole(middleware.RoleCustomer, middleware.RoleOperator), cancellationHandler.CancelBooking)
			bookings.GET("/:id/cancellation", middleware.RequireRole(middleware.RoleCustomer, middleware.RoleOperator), cancellationHandler.GetCancellationRecord)
			bookings.GET("/:id/audit", middleware.RequireRole(middleware.RoleCustomer), bookingHandler.GetAuditTrail)
		}

		operators := v1.Group("/operators")
		{
			operators.GET("/me/stats", middleware.RequireRole(middleware.RoleOperator), operatorHandler.GetStats)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	sweepService.Stop()
	cronService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := logrus.Fields{
			"method":     c.Request.Method,
			"path":       path,
			"status":     c.Writer.Status(),
			"latency_ms": time.Since(start).Milliseconds(),
			"client_ip":  c.ClientIP(),
		}
		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["user_id"] = userCtx.UserID
		}

		entry := logger.WithFields(fields)

		status := c.Writer.Status()
		switch {
		case status >= 500:
			entry.Error("Request completed with server error")
		case status >= 400:
			entry.Warn("Request completed with client error")
		default:
			entry.Info("Request completed successfully")
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
