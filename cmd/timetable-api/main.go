package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/scolaplan/timetable-api/api/swagger"
	"github.com/scolaplan/timetable-api/internal/handler"
	"github.com/scolaplan/timetable-api/internal/middleware"
	"github.com/scolaplan/timetable-api/internal/repository"
	"github.com/scolaplan/timetable-api/internal/service"
	"github.com/scolaplan/timetable-api/pkg/cache"
	"github.com/scolaplan/timetable-api/pkg/config"
	"github.com/scolaplan/timetable-api/pkg/database"
	"github.com/scolaplan/timetable-api/pkg/logger"
	corsmiddleware "github.com/scolaplan/timetable-api/pkg/middleware/cors"
	reqidmiddleware "github.com/scolaplan/timetable-api/pkg/middleware/requestid"
)

// @title Scolaplan Timetable API
// @version 0.1.0
// @description Scheduling engine for school timetables
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

	// Redis is optional: without it the layout cache degrades to
	// recomputing on every read.
	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Warnw("redis unavailable, layout cache disabled", "error", err)
		redisClient = nil
	}

	slotRepo := repository.NewSlotRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	metricsSvc := service.NewMetricsService()
	layoutSvc := service.NewLayoutService(slotRepo, cacheRepo, metricsSvc, logr, service.LayoutServiceConfig{
		CacheEnabled: cfg.Layout.CacheEnabled && redisClient != nil,
		CacheTTL:     cfg.Layout.CacheTTL,
	})
	slotSvc := service.NewSlotService(slotRepo, layoutSvc, nil, logr)
	teacherSvc := service.NewTeacherService(teacherRepo, nil, logr)
	rescheduleSvc := service.NewRescheduleService(slotSvc, logr, service.RescheduleServiceConfig{
		SessionTTL: cfg.Reschedule.SessionTTL,
	})
	importSvc := service.NewImportService(slotSvc, teacherSvc, logr, service.ImportServiceConfig{
		MaxRows: cfg.Import.MaxRows,
	})

	slotHandler := handler.NewSlotHandler(slotSvc)
	layoutHandler := handler.NewLayoutHandler(layoutSvc)
	rescheduleHandler := handler.NewRescheduleHandler(rescheduleSvc)
	importHandler := handler.NewImportHandler(importSvc)
	teacherHandler := handler.NewTeacherHandler(teacherSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	{
		schools := api.Group("/schools/:schoolId")
		{
			schools.GET("/slots", slotHandler.List)
			schools.POST("/slots", slotHandler.Create)
			schools.GET("/days/:day/layout", layoutHandler.DayLayout)
			schools.POST("/imports/reconcile", importHandler.Reconcile)
			schools.POST("/imports/commit", importHandler.Commit)
			schools.GET("/teachers", teacherHandler.List)
			schools.POST("/teachers", teacherHandler.Create)
			schools.GET("/teachers/active", teacherHandler.ListActive)
		}

		api.GET("/slots/:id", slotHandler.Get)
		api.PUT("/slots/:id", slotHandler.Update)
		api.DELETE("/slots/:id", slotHandler.Delete)

		api.POST("/reschedules", rescheduleHandler.Begin)
		api.GET("/reschedules/:sessionId", rescheduleHandler.Get)
		api.DELETE("/reschedules/:sessionId", rescheduleHandler.Cancel)
		api.POST("/reschedules/:sessionId/preview", rescheduleHandler.Preview)
		api.POST("/reschedules/:sessionId/drop", rescheduleHandler.Drop)
		api.POST("/reschedules/:sessionId/confirm", rescheduleHandler.Confirm)

		api.PUT("/teachers/:id", teacherHandler.Update)
		api.DELETE("/teachers/:id", teacherHandler.Deactivate)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
