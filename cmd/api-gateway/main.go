package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/noah-isme/campus-api/api/swagger"
	"github.com/noah-isme/campus-api/internal/handler"
	"github.com/noah-isme/campus-api/internal/middleware"
	"github.com/noah-isme/campus-api/internal/repository"
	"github.com/noah-isme/campus-api/internal/service"
	"github.com/noah-isme/campus-api/pkg/cache"
	"github.com/noah-isme/campus-api/pkg/config"
	"github.com/noah-isme/campus-api/pkg/database"
	"github.com/noah-isme/campus-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/campus-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/campus-api/pkg/middleware/requestid"
)

// @title Campus API
// @version 0.1.0
// @description Multi-tenant school management gateway
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
		// Caching is an optimization; the API serves without it.
		logr.Sugar().Warnw("redis unavailable, running without cache", "error", err)
		redisClient = nil
	}

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	schoolRepo := repository.NewSchoolRepository(db)
	permissionRepo := repository.NewPermissionRepository(db)
	academicRepo := repository.NewAcademicRepository(db)
	classRepo := repository.NewClassRepository(db)
	enrollmentRepo := repository.NewEnrollmentRepository(db)
	attendanceRepo := repository.NewAttendanceRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	examRepo := repository.NewExamRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	feedRepo := repository.NewFeedRepository(db)
	reportRepo := repository.NewReportRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "campus-api",
	})
	permissionSvc := service.NewPermissionService(permissionRepo, cacheRepo, validate, logr, cfg.Permissions.CacheTTL)
	schoolSvc := service.NewSchoolService(schoolRepo, permissionSvc, validate, logr)
	academicSvc := service.NewAcademicService(academicRepo, classRepo, validate, logr)
	attendanceSvc := service.NewAttendanceService(attendanceRepo, userRepo, validate, logr)
	assignmentSvc := service.NewAssignmentService(assignmentRepo, enrollmentRepo, validate, logr)
	examSvc := service.NewExamService(examRepo, userRepo, validate, logr)
	applicationSvc := service.NewApplicationService(applicationRepo, schoolRepo, classRepo, userRepo, academicRepo, permissionRepo, enrollmentRepo, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(enrollmentRepo, userRepo, classRepo, academicRepo, validate, logr)
	promotionSvc := service.NewPromotionService(enrollmentRepo, classRepo, academicRepo, userRepo, validate, logr, service.PromotionConfig{
		GraduatingGradeLevel: cfg.Enrollment.GraduatingGradeLevel,
		FallbackClassName:    cfg.Enrollment.FallbackClassName,
		FallbackSectionName:  cfg.Enrollment.FallbackSectionName,
	})
	reportSvc := service.NewReportService(reportRepo, classRepo, academicRepo, attendanceRepo, userRepo, cacheRepo, validate, logr, cfg.Reports.CacheTTL)
	feedSvc := service.NewFeedService(feedRepo, validate, logr)
	userSvc := service.NewUserService(userRepo, validate, logr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := permissionSvc.Seed(ctx); err != nil {
		logr.Sugar().Fatalw("failed to seed permission catalog", "error", err)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	handlers := handler.Handlers{
		Auth:         handler.NewAuthHandler(authSvc),
		Users:        handler.NewUserHandler(userSvc),
		Schools:      handler.NewSchoolHandler(schoolSvc),
		Permissions:  handler.NewPermissionHandler(permissionSvc),
		Academics:    handler.NewAcademicHandler(academicSvc),
		Attendance:   handler.NewAttendanceHandler(attendanceSvc),
		Assignments:  handler.NewAssignmentHandler(assignmentSvc),
		Exams:        handler.NewExamHandler(examSvc),
		Applications: handler.NewApplicationHandler(applicationSvc),
		Enrollments:  handler.NewEnrollmentHandler(enrollmentSvc, promotionSvc),
		Reports:      handler.NewReportHandler(reportSvc),
		Metrics:      handler.NewMetricsHandler(metricsSvc),
	}
	if cfg.Feed.Enabled {
		handlers.Feed = handler.NewFeedHandler(feedSvc)
	}

	handler.RegisterRoutes(r, handlers, authSvc, permissionSvc)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
	if err := cacheRepo.Close(); err != nil {
		logr.Sugar().Warnw("failed to close redis", "error", err)
	}
}
