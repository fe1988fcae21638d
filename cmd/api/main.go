package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ritmo-app/ritmo-api/api/swagger"
	"github.com/ritmo-app/ritmo-api/internal/handler"
	"github.com/ritmo-app/ritmo-api/internal/middleware"
	"github.com/ritmo-app/ritmo-api/internal/repository"
	"github.com/ritmo-app/ritmo-api/internal/service"
	"github.com/ritmo-app/ritmo-api/pkg/cache"
	"github.com/ritmo-app/ritmo-api/pkg/config"
	"github.com/ritmo-app/ritmo-api/pkg/database"
	"github.com/ritmo-app/ritmo-api/pkg/logger"
	corsmiddleware "github.com/ritmo-app/ritmo-api/pkg/middleware/cors"
	reqidmiddleware "github.com/ritmo-app/ritmo-api/pkg/middleware/requestid"
)

// @title Ritmo API
// @version 1.0.0
// @description Dance studio administration API
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, dashboard cache disabled", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	classRepo := repository.NewClassRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	installmentRepo := repository.NewInstallmentRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	productRepo := repository.NewProductRepository(db)
	saleRepo := repository.NewSaleRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	userRepo := repository.NewUserRepository(db)

	authService := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "ritmo-api",
	})
	studentService := service.NewStudentService(studentRepo, validate, logr)
	teacherService := service.NewTeacherService(teacherRepo, validate, logr)
	classService := service.NewClassService(classRepo, teacherRepo, validate, logr)
	sessionService := service.NewSessionService(classRepo, classRepo, sessionRepo, teacherRepo, db, service.SessionServiceConfig{
		HorizonDays: cfg.Sessions.HorizonDays,
		Duration:    cfg.Sessions.Duration,
	}, validate, logr)
	billingService := service.NewBillingService(enrollmentRepo, installmentRepo, ledgerRepo, studentRepo, classRepo, db, cfg.Billing.MirrorLedger, validate, logr)
	paymentService := service.NewPaymentService(paymentRepo, installmentRepo, ledgerRepo, db, validate, logr)
	ledgerService := service.NewLedgerService(ledgerRepo, validate, logr)
	saleService := service.NewSaleService(productRepo, saleRepo, ledgerRepo, studentRepo, db, validate, logr)
	attendanceService := service.NewAttendanceService(attendanceRepo, sessionRepo, studentRepo, validate, logr)
	dashboardService := service.NewDashboardService(ledgerRepo, studentRepo, enrollmentRepo, sessionRepo, redisClient, cfg.Dashboard.CacheTTL, logr)
	exportService := service.NewExportService(ledgerRepo, installmentRepo, logr)
	metricsService := service.NewMetricsService()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsService))

	metricsHandler := handler.NewMetricsHandler(metricsService)
	r.GET("/health", metricsHandler.Health)

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, handler.Handlers{
		Auth:       handler.NewAuthHandler(authService),
		Students:   handler.NewStudentHandler(studentService),
		Teachers:   handler.NewTeacherHandler(teacherService),
		Classes:    handler.NewClassHandler(classService, sessionService),
		Sessions:   handler.NewSessionHandler(sessionService),
		Attendance: handler.NewAttendanceHandler(attendanceService),
		Enrollment: handler.NewEnrollmentHandler(billingService),
		Payments:   handler.NewPaymentHandler(paymentService),
		Ledger:     handler.NewLedgerHandler(ledgerService),
		Sales:      handler.NewSaleHandler(saleService),
		Dashboard:  handler.NewDashboardHandler(dashboardService),
		Exports:    handler.NewExportHandler(exportService),
		Metrics:    metricsHandler,
	}, authService, handler.RouteOptions{
		Prefix:          cfg.APIPrefix,
		EnableDashboard: cfg.Dashboard.Enabled,
		EnableExports:   cfg.Exports.Enabled,
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
