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
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/noah-isme/semester-scheduler/api/swagger"
	"github.com/noah-isme/semester-scheduler/internal/handler"
	"github.com/noah-isme/semester-scheduler/internal/middleware"
	"github.com/noah-isme/semester-scheduler/internal/repository"
	"github.com/noah-isme/semester-scheduler/internal/service"
	"github.com/noah-isme/semester-scheduler/pkg/cache"
	"github.com/noah-isme/semester-scheduler/pkg/config"
	"github.com/noah-isme/semester-scheduler/pkg/database"
	"github.com/noah-isme/semester-scheduler/pkg/jobs"
	"github.com/noah-isme/semester-scheduler/pkg/logger"
	corsmiddleware "github.com/noah-isme/semester-scheduler/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/semester-scheduler/pkg/middleware/requestid"
)

// @title Semester Scheduler API
// @version 1.0.0
// @description Generates and manages conflict-free semester timetables.
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, reference cache disabled", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close() //nolint:errcheck
	}

	metrics := service.NewMetricsService()
	app := buildApp(cfg, db, redisClient, metrics, logr)

	app.queue.Start(ctx)
	defer app.queue.Stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	r := newRouter(cfg, app, metrics, logr)

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
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

type application struct {
	tokens     *service.TokenService
	queue      *jobs.Queue
	generator  *handler.ScheduleGeneratorHandler
	schedules  *handler.ScheduleHandler
	semesters  *handler.SemesterHandler
	exports    *handler.ExportHandler
	monitoring *handler.MetricsHandler
}

func buildApp(cfg *config.Config, db *sqlx.DB, redisClient *redis.Client, metrics *service.MetricsService, logr *zap.Logger) *application {
	validate := validator.New()

	teacherRepo := repository.NewTeacherRepository(db)
	roomRepo := repository.NewRoomRepository(db)
	groupRepo := repository.NewGroupRepository(db)
	lessonTypeRepo := repository.NewLessonTypeRepository(db)
	semesterRepo := repository.NewSemesterRepository(db)
	scheduleRepo := repository.NewSemesterScheduleRepository(db)
	lessonRepo := repository.NewLessonRepository(db)

	var cacheSvc *service.CacheService
	if redisClient != nil {
		cacheRepo := repository.NewCacheRepository(redisClient, "semester-scheduler:", logr)
		cacheSvc = service.NewCacheService(cacheRepo, metrics, cfg.Reference.CacheTTL, logr)
	}

	references := service.NewReferenceLoader(teacherRepo, roomRepo, groupRepo, lessonTypeRepo, semesterRepo, cacheSvc, cfg.Reference.CacheTTL, metrics, logr)

	generatorSvc := service.NewScheduleGeneratorService(references, scheduleRepo, lessonRepo, db, validate, metrics, logr, service.ScheduleGeneratorConfig{
		MaxIterations:         cfg.Scheduler.MaxIterations,
		MaxLessonsPerDay:      cfg.Scheduler.MaxLessonsPerDay,
		MinDaysBetweenLessons: cfg.Scheduler.MinDaysBetween,
		Deadline:              cfg.Scheduler.Deadline,
	})
	queue := jobs.NewQueue("schedule-generation", generatorSvc.HandleJob, jobs.QueueConfig{
		Workers:    cfg.Scheduler.Workers,
		BufferSize: cfg.Scheduler.QueueSize,
		Tracker:    jobs.NewTracker(cfg.Scheduler.JobTTL),
		Logger:     logr,
	})
	generatorSvc.AttachQueue(queue, queue.Tracker())

	scheduleSvc := service.NewScheduleService(scheduleRepo, lessonRepo, semesterRepo, references, db, validate, logr)
	semesterSvc := service.NewSemesterService(semesterRepo, db, references, logr)
	exportSvc := service.NewExportService(scheduleSvc, semesterRepo, teacherRepo, roomRepo, groupRepo, repository.NewSubjectRepository(db), validate, logr, nil, nil)

	checks := map[string]handler.HealthCheck{
		"postgres": db.PingContext,
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	return &application{
		tokens:     service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer}),
		queue:      queue,
		generator:  handler.NewScheduleGeneratorHandler(generatorSvc),
		schedules:  handler.NewScheduleHandler(scheduleSvc),
		semesters:  handler.NewSemesterHandler(semesterSvc),
		exports:    handler.NewExportHandler(exportSvc),
		monitoring: handler.NewMetricsHandler(metrics, checks),
	}
}

func newRouter(cfg *config.Config, app *application, metrics *service.MetricsService, logr *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", app.monitoring.Health)
	r.GET("/ready", app.monitoring.Ready)
	r.GET("/metrics", app.monitoring.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	var limiter *middleware.RateLimiter
	if cfg.Scheduler.RateLimit > 0 {
		limiter = middleware.NewRateLimiter(cfg.Scheduler.RateLimit, cfg.Scheduler.RateLimit)
	}
	planners := middleware.RequireRoles(middleware.Planners...)

	api := r.Group(cfg.APIPrefix)
	api.Use(middleware.JWT(app.tokens))

	semesters := api.Group("/semesters/:id")
	semesters.GET("/weeks", app.semesters.Weeks)
	semesters.POST("/weeks", planners, middleware.Audit(logr, "GENERATE_WEEKS", "semester"), app.semesters.GenerateWeeks)

	schedules := api.Group("/schedules")
	schedules.POST("/generate", planners, limiter.Middleware(), middleware.Audit(logr, "GENERATE", "schedule"), app.generator.Generate)
	schedules.GET("/jobs/:jobId", planners, app.generator.JobStatus)
	schedules.GET("", app.schedules.List)
	schedules.GET("/:id", app.schedules.Get)
	schedules.GET("/:id/lessons", app.schedules.Lessons)
	schedules.GET("/:id/weeks", app.schedules.Weeks)
	schedules.GET("/:id/weeks/:number", app.schedules.WeekView)
	schedules.GET("/:id/export", app.exports.Export)
	schedules.POST("/:id/activate", planners, middleware.Audit(logr, "ACTIVATE", "schedule"), app.schedules.Activate)
	schedules.PATCH("/:id/lessons/:lessonId", planners, middleware.Audit(logr, "MOVE_LESSON", "schedule"), app.schedules.MoveLesson)
	schedules.DELETE("/:id", planners, middleware.Audit(logr, "DELETE", "schedule"), app.schedules.Delete)

	return r
}
