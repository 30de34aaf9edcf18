package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/pulsefit/pulsefit-api/api/swagger"
	"github.com/pulsefit/pulsefit-api/internal/handler"
	internalmiddleware "github.com/pulsefit/pulsefit-api/internal/middleware"
	"github.com/pulsefit/pulsefit-api/internal/models"
	"github.com/pulsefit/pulsefit-api/internal/repository"
	"github.com/pulsefit/pulsefit-api/internal/service"
	"github.com/pulsefit/pulsefit-api/pkg/cache"
	"github.com/pulsefit/pulsefit-api/pkg/config"
	"github.com/pulsefit/pulsefit-api/pkg/database"
	"github.com/pulsefit/pulsefit-api/pkg/logger"
	corsmiddleware "github.com/pulsefit/pulsefit-api/pkg/middleware/cors"
	reqidmiddleware "github.com/pulsefit/pulsefit-api/pkg/middleware/requestid"
)

// @title PulseFit API
// @version 1.0.0
// @description Class booking service: schedules, reservations, waitlists and check-ins.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

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

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	metricsSvc := service.NewMetricsService()

	var cacheSvc *service.CacheService
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, roster cache disabled", "error", err)
	} else {
		defer redisClient.Close()
		cacheRepo := repository.NewCacheRepository(redisClient, logr)
		cacheSvc = service.NewCacheService(cacheRepo, metricsSvc, cfg.Booking.RosterCacheTTL, logr, cfg.Booking.CacheEnabled)
	}

	validate := validator.New()

	bookingRepo := repository.NewBookingRepository(db)
	scheduleRepo := repository.NewClassScheduleRepository(db)
	memberRepo := repository.NewMemberRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	authSvc := service.NewAuthService(cfg.JWT)
	auditSvc := service.NewAuditService(auditRepo, cfg.Audit, logr)
	auditSvc.Start(context.Background())
	defer auditSvc.Stop()

	bookingSvc := service.NewBookingService(bookingRepo, scheduleRepo, memberRepo, cacheSvc, metricsSvc, validate, logr)
	bookingQuerySvc := service.NewBookingQueryService(bookingRepo, cacheSvc, cfg.Booking.RosterCacheTTL, logr)
	scheduleSvc := service.NewScheduleService(scheduleRepo, validate, logr)

	bookingHandler := handler.NewBookingHandler(bookingSvc, bookingQuerySvc)
	scheduleHandler := handler.NewScheduleHandler(scheduleSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(internalmiddleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.Use(internalmiddleware.JWT(authSvc))

	bookings := api.Group("/bookings")
	{
		bookings.POST("", internalmiddleware.Audit(auditSvc, models.AuditActionBookingCreate, "booking"), bookingHandler.Create)
		bookings.DELETE("/:id", internalmiddleware.Audit(auditSvc, models.AuditActionBookingCancel, "booking"), bookingHandler.Cancel)
		bookings.POST("/:id/check-in",
			internalmiddleware.RequireRoles(models.RoleCoach, models.RoleAdmin),
			internalmiddleware.Audit(auditSvc, models.AuditActionBookingCheckIn, "booking"),
			bookingHandler.CheckIn)
		bookings.GET("/upcoming", bookingHandler.Upcoming)
		bookings.GET("/next", bookingHandler.Next)
		bookings.GET("/history", bookingHandler.History)
		bookings.GET("/check", bookingHandler.Check)
	}

	schedules := api.Group("/class-schedules")
	{
		schedules.GET("", scheduleHandler.List)
		schedules.GET("/:id", scheduleHandler.Get)
		schedules.GET("/:id/next-occurrence", scheduleHandler.NextOccurrence)
		schedules.GET("/:id/roster",
			internalmiddleware.RequireRoles(models.RoleCoach, models.RoleAdmin),
			bookingHandler.Roster)
		schedules.POST("",
			internalmiddleware.RequireRoles(models.RoleAdmin),
			internalmiddleware.Audit(auditSvc, models.AuditActionScheduleCreate, "class_schedule"),
			scheduleHandler.Create)
		schedules.PUT("/:id",
			internalmiddleware.RequireRoles(models.RoleAdmin),
			internalmiddleware.Audit(auditSvc, models.AuditActionScheduleUpdate, "class_schedule"),
			scheduleHandler.Update)
		schedules.DELETE("/:id",
			internalmiddleware.RequireRoles(models.RoleAdmin),
			internalmiddleware.Audit(auditSvc, models.AuditActionScheduleDelete, "class_schedule"),
			scheduleHandler.Delete)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
