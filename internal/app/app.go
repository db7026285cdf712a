package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"query_clash_backend/internal/config"
	"query_clash_backend/internal/controller"
	"query_clash_backend/internal/middleware"
	"query_clash_backend/internal/repository"
	"query_clash_backend/internal/service"
	"query_clash_backend/pkg/configwatcher"
	"query_clash_backend/pkg/database"
	"query_clash_backend/pkg/logger"
	"query_clash_backend/pkg/monitoring"
	"query_clash_backend/pkg/security"
	"query_clash_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config  *config.Config
	Router  *gin.Engine
	DB      *gorm.DB
	Redis   *redis.Client
	Caps    database.Capabilities
	Limiter *security.RateLimiter

	services        *services
	tracer          *sdktrace.TracerProvider
	mu              sync.Mutex
	configCallbacks []func(*config.Config)
}

type repositories struct {
	participant   *repository.ParticipantRepository
	investigation *repository.InvestigationRepository
	progress      *repository.ProgressRepository
	submission    *repository.SubmissionRepository
	dataset       *repository.DatasetRepository
}

type services struct {
	auth        *service.AuthService
	timer       *service.TimerService
	query       *service.QueryService
	progression *service.ProgressionService
	submission  *service.SubmissionService
	schema      *service.SchemaService
	admin       *service.AdminService
}

type controllers struct {
	auth   *controller.AuthController
	game   *controller.GameController
	admin  *controller.AdminController
	health *controller.HealthController
}

func (a *App) initRepositories(db *gorm.DB, caps database.Capabilities) *repositories {
	return &repositories{
		participant:   repository.NewParticipantRepository(db),
		investigation: repository.NewInvestigationRepository(db),
		progress:      repository.NewProgressRepository(db, caps.SolvedAt),
		submission:    repository.NewSubmissionRepository(db),
		dataset:       repository.NewDatasetRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	s := &services{}

	s.auth = service.NewAuthService(repos.participant, cfg)
	s.timer = service.NewTimerService(repos.participant, cfg.RoundLimit())
	s.query = service.NewQueryService(db, repos.participant, repos.dataset, cfg.Game.MaxResultRows, cfg.QueryTimeout())
	s.progression = service.NewProgressionService(db, repos.participant, repos.investigation, repos.progress)
	s.submission = service.NewSubmissionService(db, repos.participant, repos.submission, s.timer, cfg.Game.FinalAnswer)
	s.schema = service.NewSchemaService(repos.dataset, rdb, time.Duration(cfg.Redis.SchemaTTLSeconds)*time.Second)
	s.admin = service.NewAdminService(repos.participant, repos.investigation, repos.progress, repos.submission)

	return s
}

func (a *App) initControllers(s *services, cfg *config.Config, db *gorm.DB) *controllers {
	return &controllers{
		auth:   controller.NewAuthController(s.auth, int(cfg.JWT.ExpireTime/time.Second), cfg.Server.Mode == gin.ReleaseMode),
		game:   controller.NewGameController(s.timer, s.progression, s.submission, s.query, s.schema),
		admin:  controller.NewAdminController(s.admin),
		health: controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(logger.GinLogger())
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(a.Limiter.Middleware())

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// OnConfigChange registers a callback run after every config reload.
func (a *App) OnConfigChange(fn func(*config.Config)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.configCallbacks = append(a.configCallbacks, fn)
}

func (a *App) applyConfig(cfg *config.Config) {
	a.mu.Lock()
	callbacks := append([]func(*config.Config){}, a.configCallbacks...)
	a.mu.Unlock()

	for _, fn := range callbacks {
		fn(cfg)
	}
}

func (a *App) registerReloadable() {
	a.OnConfigChange(func(cfg *config.Config) {
		a.services.timer.SetLimit(cfg.RoundLimit())
		logger.Log.Info("Round limit updated", zap.Duration("limit", cfg.RoundLimit()))
	})
	a.OnConfigChange(func(cfg *config.Config) {
		a.Limiter.Update(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	})
}

// NewApp connects to the stores and builds the HTTP surface.
func NewApp(cfg *config.Config) (*App, error) {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully")

	gin.SetMode(cfg.Server.Mode)

	migrate := cfg.Database.AutoMigrate || cfg.ForceMigrate
	db, caps, err := database.InitDB(&cfg.Database, cfg.Server.Mode, migrate)
	if err != nil {
		logger.Log.Error("Failed to initialize database", zap.Error(err))
		return nil, err
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Error("Failed to initialize redis", zap.Error(err))
		return nil, err
	}

	app := NewWithDB(cfg, db, caps, rdb)

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(tracing.ServiceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Error("Failed to initialize tracing", zap.Error(err))
			return nil, err
		}
		app.tracer = tp
	}

	return app, nil
}

// NewWithDB builds the application on an already opened database.
func NewWithDB(cfg *config.Config, db *gorm.DB, caps database.Capabilities, rdb *redis.Client) *App {
	app := &App{
		Config:  cfg,
		DB:      db,
		Redis:   rdb,
		Caps:    caps,
		Limiter: security.NewRateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute),
	}

	repos := app.initRepositories(db, caps)
	app.services = app.initServices(repos, cfg, db, rdb)
	ctrls := app.initControllers(app.services, cfg, db)

	monitoring.Init()

	router := gin.New()
	app.Router = router
	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, ctrls, cfg)
	app.registerReloadable()

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.Config.File != "" {
		go func() {
			if err := configwatcher.Watch(ctx, a.Config.File, a.applyConfig); err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}

	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Error("listen", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	a.Close()
	logger.Log.Info("Server exiting")
}

// Close releases background resources and connections.
func (a *App) Close() {
	if a.Limiter != nil {
		a.Limiter.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(context.Background()); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
