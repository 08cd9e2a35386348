package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/railbook/train-booking-backend/internal/config"
	"github.com/railbook/train-booking-backend/internal/database"
	"github.com/railbook/train-booking-backend/internal/handlers"
	"github.com/railbook/train-booking-backend/internal/middleware"
	"github.com/railbook/train-booking-backend/internal/services"
	"github.com/railbook/train-booking-backend/pkg/jwt"
	"github.com/railbook/train-booking-backend/pkg/payment"
	"github.com/sirupsen/logrus"
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

	logger.Info("Starting RailBook Train Booking Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
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

	// Initialize repositories
	userRepo := database.NewUserRepository(db)
	trainRepo := database.NewTrainRepository(db)
	seatRepo := database.NewSeatRepository(db)
	bookingRepo := database.NewBookingRepository(db, cfg.Database.LockTimeout, cfg.Booking.PNRMaxAttempts)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	pnrGenerator := services.NewPNRGenerator()
	stripeGateway := payment.NewStripeGateway(payment.Config{
		SecretKey:  cfg.Stripe.SecretKey,
		APIBaseURL: cfg.Stripe.APIBaseURL,
	}, logger)

	bookingService := services.NewBookingService(
		userRepo,
		trainRepo,
		seatRepo,
		bookingRepo,
		pnrGenerator,
		cfg.Booking.HoldTTL,
		logger,
	)
	paymentService := services.NewPaymentService(
		stripeGateway,
		userRepo,
		trainRepo,
		seatRepo,
		bookingRepo,
		pnrGenerator,
		cfg.Stripe,
		logger,
	)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(userRepo, jwtService, cfg.Security.BcryptCost, cfg.JWT.AccessTokenExpiry, logger)
	trainHandler := handlers.NewTrainHandler(trainRepo, seatRepo, logger)
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	paymentHandler := handlers.NewPaymentHandler(paymentService, logger)

	// Start background jobs
	cronService := services.NewCronService(seatRepo, cfg.Booking.HoldSweepSchedule, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	// Initialize router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	if cfg.Security.EnableRequestLog {
		router.Use(requestLogger(logger))
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "version": version})
	})

	// API routes
	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		trains := v1.Group("/trains")
		{
			trains.GET("", trainHandler.ListTrains)
			trains.GET("/:id", trainHandler.GetTrain)
			trains.GET("/:id/coaches", trainHandler.GetCoaches)
			trains.GET("/:id/seats", trainHandler.GetSeatLayout)

			adminTrains := trains.Group("")
			adminTrains.Use(middleware.AuthMiddleware(jwtService))
			adminTrains.Use(middleware.RequireRole("admin"))
			{
				adminTrains.POST("", trainHandler.CreateTrain)
				adminTrains.DELETE("/:id", trainHandler.DeleteTrain)
				adminTrains.POST("/:id/coaches", trainHandler.CreateCoach)
			}
		}

		v1.GET("/coaches/:id/seats", trainHandler.GetCoachSeats)

		bookings := v1.Group("/bookings")
		bookings.Use(middleware.AuthMiddleware(jwtService))
		{
			bookings.POST("", bookingHandler.BookSeats)
			bookings.GET("", bookingHandler.GetMyBookings)
			bookings.POST("/holds", bookingHandler.HoldSeats)
			bookings.GET("/pnr/:pnr", bookingHandler.GetBookingByPNR)
			bookings.POST("/pnr/:pnr/cancel", bookingHandler.CancelBooking)
		}

		payments := v1.Group("/payments")
		payments.Use(middleware.AuthMiddleware(jwtService))
		{
			payments.POST("/checkout", paymentHandler.CreateCheckoutSession)
			payments.POST("/confirm", paymentHandler.ConfirmPayment)
		}
	}

	// HTTP server with sane timeouts
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
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
		query := c.Request.URL.RawQuery

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
		}

		if requestID, exists := c.Get(middleware.RequestIDKey); exists {
			fields["request_id"] = requestID
		}
		if userCtx, exists := middleware.GetUserContext(c); exists {
			fields["user_id"] = userCtx.UserID
		}

		logger.WithFields(fields).Info("Request completed")
	}
}
