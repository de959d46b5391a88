package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hospital-booking/config"
	"hospital-booking/internal/client"
	deliveryHttp "hospital-booking/internal/delivery/http"
	"hospital-booking/internal/delivery/http/handler"
	"hospital-booking/internal/delivery/http/middleware"
	"hospital-booking/internal/infrastructure/cache"
	"hospital-booking/internal/infrastructure/database"
	"hospital-booking/internal/observability/metrics"
	"hospital-booking/internal/repository"
	"hospital-booking/internal/service"
	"hospital-booking/internal/usecase"
	"hospital-booking/pkg/jwt"
	"hospital-booking/pkg/validator"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// App holds all dependencies for the application
type App struct {
	Config        *config.Config
	DB            *gorm.DB
	RedisClient   *redis.Client
	Server        *http.Server
	WizardUsecase usecase.WizardUsecase
}

// New creates a new App instance with all dependencies initialized
func New() (*App, error) {
	app := &App{}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	app.Config = cfg

	// Setup logger
	setupLogger(cfg.App)
	logrus.Info("Configuration loaded successfully")

	// Initialize database
	db, err := database.NewPostgresConnection(cfg.DB, cfg.App.IsProduction())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	app.DB = db
	logrus.Info("Database connected successfully")

	// Initialize Redis
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	app.RedisClient = redisClient
	logrus.Info("Redis connected successfully")

	// Initialize all layers
	app.initializeServer(cfg, db, redisClient)

	return app, nil
}

// setupLogger configures the logrus logger
func setupLogger(cfg config.AppConfig) {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// initializeServer creates and configures the HTTP server
func (app *App) initializeServer(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) {
	// Initialize logger
	log := logrus.StandardLogger()

	// Initialize JWT service
	jwtService := jwt.NewJWTService(cfg.JWT)

	// Initialize validator
	customValidator := validator.NewValidator()

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bookingMetrics := metrics.NewBookingMetrics(registry)

	clock := usecase.NewHospitalClock(cfg.Hospital.Location, time.Now)

	// Initialize repositories
	hospitalRepo := repository.NewHospitalRepository()
	doctorProfileRepo := repository.NewDoctorProfileRepository()
	doctorScheduleRepo := repository.NewDoctorScheduleRepository()
	appointmentRepo := repository.NewAppointmentRepository()
	auditLogRepo := repository.NewAuditLogRepository()

	// Initialize services
	capacityService := service.NewSlotCapacityService(redisClient, log)
	auditService := service.NewAuditService(log, auditLogRepo)

	// Initialize usecases
	doctorUsecase := usecase.NewDoctorUsecase(db, log, hospitalRepo, doctorProfileRepo)
	availabilityUsecase := usecase.NewAvailabilityUsecase(db, log, clock, hospitalRepo, doctorProfileRepo, doctorScheduleRepo, appointmentRepo)
	appointmentUsecase := usecase.NewAppointmentUsecase(db, log, customValidator, clock, hospitalRepo, doctorProfileRepo,
		doctorScheduleRepo, appointmentRepo, capacityService, auditService, bookingMetrics)
	scheduleUsecase := usecase.NewScheduleUsecase(db, log, doctorScheduleRepo, doctorProfileRepo, capacityService, clock, auditService)
	auditLogUsecase := usecase.NewAuditLogUsecase(db, log, auditLogRepo)

	// Wizard sessions talk to this process unless a remote booking backend is configured
	var backend usecase.WizardBackend
	if cfg.Backend.BaseURL != "" {
		backend = client.NewBackendClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, log).
			WithTokenSource(middleware.GetBearerTokenFromContext)
		logrus.Infof("Booking wizard uses remote backend %s", cfg.Backend.BaseURL)
	} else {
		backend = usecase.NewLocalBackend(doctorUsecase, availabilityUsecase, appointmentUsecase)
	}
	wizardUsecase := usecase.NewWizardUsecase(log, customValidator, clock, backend, bookingMetrics, cfg.Wizard.SessionTTL)
	app.WizardUsecase = wizardUsecase

	// Initialize handlers
	doctorHandler := handler.NewDoctorHandler(doctorUsecase, availabilityUsecase, customValidator)
	appointmentHandler := handler.NewAppointmentHandler(appointmentUsecase)
	scheduleHandler := handler.NewScheduleHandler(scheduleUsecase, customValidator)
	auditLogHandler := handler.NewAuditLogHandler(auditLogUsecase, customValidator)
	wizardHandler := handler.NewWizardHandler(wizardUsecase, customValidator)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService, redisClient, log)
	corsMiddleware := middleware.NewCORSMiddleware(cfg.App.AllowedOrigins...)

	// Initialize router
	router := deliveryHttp.NewRouter(doctorHandler, appointmentHandler, scheduleHandler, auditLogHandler, wizardHandler,
		authMiddleware, corsMiddleware, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	httpRouter := router.Setup()

	// Create server
	app.Server = &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.App.Port),
		Handler:           httpRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Run starts the HTTP server and handles graceful shutdown
func (app *App) Run() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		logrus.WithFields(logrus.Fields{
			"port":     app.Config.App.Port,
			"env":      app.Config.App.Env,
			"timezone": app.Config.Hospital.Location.String(),
		}).Info("Hospital booking API listening")
		if err := app.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logrus.Info("Shutdown signal received")
	case err := <-serverErr:
		logrus.WithError(err).Error("HTTP server stopped unexpectedly")
	}

	app.shutdown()
}

// shutdown drains in-flight requests, then releases background workers and connections.
func (app *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.Server.Shutdown(ctx); err != nil {
		logrus.WithError(err).Warn("Server forced to shutdown")
	}
	app.Close()
	logrus.Info("Server shutdown complete")
}

// Close stops background workers and closes all connections (database, redis, etc.)
func (app *App) Close() {
	if app.WizardUsecase != nil {
		app.WizardUsecase.Stop()
	}

	if app.DB != nil {
		if sqlDB, err := app.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logrus.Warnf("Failed to close database: %+v", err)
			}
		}
	}
	if app.RedisClient != nil {
		if err := app.RedisClient.Close(); err != nil {
			logrus.Warnf("Failed to close redis: %+v", err)
		}
	}
}
