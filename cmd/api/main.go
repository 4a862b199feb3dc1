package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/registro-sv/academico-api/api/swagger"
	"github.com/registro-sv/academico-api/internal/handler"
	"github.com/registro-sv/academico-api/internal/middleware"
	"github.com/registro-sv/academico-api/internal/refdata"
	"github.com/registro-sv/academico-api/internal/repository"
	"github.com/registro-sv/academico-api/internal/service"
	"github.com/registro-sv/academico-api/pkg/cache"
	"github.com/registro-sv/academico-api/pkg/config"
	"github.com/registro-sv/academico-api/pkg/database"
	"github.com/registro-sv/academico-api/pkg/logger"
	corsmiddleware "github.com/registro-sv/academico-api/pkg/middleware/cors"
	reqidmiddleware "github.com/registro-sv/academico-api/pkg/middleware/requestid"
)

// @title Registro Académico API
// @version 1.0.0
// @description Academic records service: students, instructors, courses, enrollment terms and registration events.
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
		logr.Sugar().Warnw("redis unavailable, catalog cache disabled", "error", err)
		redisClient = nil
	}

	// Repositories.
	studentRepo := repository.NewStudentRepository(db)
	instructorRepo := repository.NewInstructorRepository(db)
	courseRepo := repository.NewCourseRepository(db)
	termRepo := repository.NewTermRepository(db)
	registrationRepo := repository.NewRegistrationRepository(db)
	userRepo := repository.NewUserRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)

	// Services.
	metricsSvc := service.NewMetricsService()
	regions := refdata.NewProvider()
	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		Secret:     cfg.JWT.Secret,
		Expiration: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	studentSvc := service.NewStudentService(studentRepo, termRepo, regions, nil, logr)
	instructorSvc := service.NewInstructorService(instructorRepo, nil, logr)
	courseSvc := service.NewCourseService(courseRepo, instructorRepo, cacheRepo, cfg.Catalog.CacheTTL, nil, metricsSvc, logr)
	termSvc := service.NewTermService(termRepo, studentRepo, nil, logr)
	registrationSvc := service.NewRegistrationService(registrationRepo, termRepo, studentRepo, courseRepo, nil, metricsSvc, logr)
	workflowSvc := service.NewWorkflowService(termRepo, courseRepo, instructorRepo, registrationSvc,
		cfg.Workflow.SessionTTL, cfg.Workflow.CleanupInterval, cfg.Workflow.MaxSlots, metricsSvc, logr)

	// Handlers.
	authHandler := handler.NewAuthHandler(authSvc)
	studentHandler := handler.NewStudentHandler(studentSvc)
	instructorHandler := handler.NewInstructorHandler(instructorSvc)
	courseHandler := handler.NewCourseHandler(courseSvc)
	termHandler := handler.NewTermHandler(termSvc)
	registrationHandler := handler.NewRegistrationHandler(registrationSvc)
	workflowHandler := handler.NewWorkflowHandler(workflowSvc)
	refdataHandler := handler.NewRefdataHandler(regions)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	protected := api.Group("", middleware.JWT(authSvc))
	{
		protected.GET("/students", studentHandler.List)
		protected.POST("/students", studentHandler.Create)
		protected.GET("/students/:id", studentHandler.Get)
		protected.PUT("/students/:id", studentHandler.Update)
		protected.DELETE("/students/:id", studentHandler.Delete)

		protected.GET("/instructors", instructorHandler.List)
		protected.POST("/instructors", instructorHandler.Create)
		protected.GET("/instructors/:id", instructorHandler.Get)
		protected.PUT("/instructors/:id", instructorHandler.Update)
		protected.DELETE("/instructors/:id", instructorHandler.Delete)

		protected.GET("/courses", courseHandler.List)
		protected.POST("/courses", courseHandler.Create)
		protected.GET("/courses/:id", courseHandler.Get)
		protected.PUT("/courses/:id", courseHandler.Update)
		protected.DELETE("/courses/:id", courseHandler.Delete)

		protected.GET("/terms", termHandler.List)
		protected.POST("/terms", termHandler.Create)
		protected.GET("/terms/:id", termHandler.Get)
		protected.PUT("/terms/:id", termHandler.Update)
		protected.DELETE("/terms/:id", termHandler.Delete)

		protected.GET("/terms/:id/events", registrationHandler.ListEvents)
		protected.POST("/terms/:id/events", registrationHandler.CreateEvent)
		protected.GET("/terms/:id/events/export", registrationHandler.ExportEvents)
		protected.GET("/terms/:id/events/:ts", registrationHandler.GetEvent)
		protected.PUT("/terms/:id/events/:ts", registrationHandler.UpdateEvent)
		protected.DELETE("/terms/:id/events/:ts", registrationHandler.DeleteEvent)

		protected.POST("/registration-workflows", workflowHandler.Start)
		protected.GET("/registration-workflows/:id", workflowHandler.Get)
		protected.DELETE("/registration-workflows/:id", workflowHandler.Cancel)
		protected.PUT("/registration-workflows/:id/slots", workflowHandler.SetSlotCount)
		protected.POST("/registration-workflows/:id/preview", workflowHandler.Preview)
		protected.POST("/registration-workflows/:id/confirm", workflowHandler.Confirm)
		protected.POST("/registration-workflows/:id/remove", workflowHandler.Remove)
		protected.POST("/registration-workflows/:id/save", workflowHandler.Save)

		protected.GET("/refdata/departments", refdataHandler.Departments)
		protected.GET("/refdata/departments/:department/municipalities", refdataHandler.Municipalities)
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
