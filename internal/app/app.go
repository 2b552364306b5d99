package app

import (
	"context"
	"edu_platform_backend/internal/config"
	"edu_platform_backend/internal/controller"
	"edu_platform_backend/internal/repository"
	"edu_platform_backend/internal/service"
	"edu_platform_backend/pkg/configwatcher"
	"edu_platform_backend/pkg/database"
	"edu_platform_backend/pkg/logger"
	"edu_platform_backend/pkg/monitoring"
	"edu_platform_backend/pkg/security"
	"edu_platform_backend/pkg/tracing"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/robfig/cron/v3"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const configDir = "configs"

type App struct {
	Config   *config.Config
	Router   *gin.Engine
	DB       *gorm.DB
	Redis    *redis.Client
	services *services
	limiters *limiters
	cron     *cron.Cron
	tracer   *sdktrace.TracerProvider

	configCallbacks []func(*config.Config)
}

type repositories struct {
	student    *repository.StudentRepository
	tutor      *repository.TutorRepository
	session    *repository.SessionRepository
	course     *repository.CourseRepository
	module     *repository.ModuleRepository
	material   *repository.MaterialRepository
	assignment *repository.AssignmentRepository
	enrollment *repository.EnrollmentRepository
	progress   *repository.ProgressRepository
	review     *repository.ReviewRepository
}

type services struct {
	storage      *service.StorageService
	mailer       service.Mailer
	otp          *service.OTPService
	auth         *service.AuthService
	sessionGuard *service.SessionGuard
	aggregator   *service.ProgressAggregator
	reconcile    *service.ReconcileJob
	course       *service.CourseService
	module       *service.ModuleService
	material     *service.MaterialService
	progress     *service.ProgressService
	enrollment   *service.EnrollmentService
	assignment   *service.AssignmentService
	review       *service.ReviewService
	student      *service.StudentService
}

type controllers struct {
	auth       *controller.AuthController
	course     *controller.CourseController
	module     *controller.ModuleController
	material   *controller.MaterialController
	progress   *controller.ProgressController
	enrollment *controller.EnrollmentController
	assignment *controller.AssignmentController
	review     *controller.ReviewController
	student    *controller.StudentController
	health     *controller.HealthController
}

// limiters 全局限流与登录类接口的更严格限流
type limiters struct {
	general *security.RateLimiter
	auth    *security.RateLimiter
}

func (a *App) initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		student:    repository.NewStudentRepository(db),
		tutor:      repository.NewTutorRepository(db),
		session:    repository.NewSessionRepository(db),
		course:     repository.NewCourseRepository(db),
		module:     repository.NewModuleRepository(db),
		material:   repository.NewMaterialRepository(db),
		assignment: repository.NewAssignmentRepository(db),
		enrollment: repository.NewEnrollmentRepository(db),
		progress:   repository.NewProgressRepository(db),
		review:     repository.NewReviewRepository(db),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config, rdb *redis.Client) *services {
	zl := logger.Log
	s := &services{}

	s.storage = service.NewStorageService(&cfg.Storage, zl)
	s.mailer = service.NewMailer(cfg.Email, zl)
	s.otp = service.NewOTPService(service.NewRedisOTPStore(rdb), s.mailer, cfg.OTP, zl)

	s.auth = service.NewAuthService(repos.student, repos.tutor, repos.session, s.otp,
		service.NewGoogleVerifier(cfg.Google), cfg.JWT, zl)
	s.sessionGuard = service.NewSessionGuard(repos.session, cfg.JWT.Secret, zl)

	s.aggregator = service.NewProgressAggregator(repos.enrollment, cfg.Progress, zl)
	s.reconcile = service.NewReconcileJob(repos.enrollment, s.aggregator, cfg.Progress.ReconcileBatchSize, zl)

	s.course = service.NewCourseService(repos.course, repos.enrollment, repos.review, zl)
	s.module = service.NewModuleService(repos.module, repos.course)
	s.material = service.NewMaterialService(repos.material, repos.module, repos.course, s.storage, &cfg.Storage, zl)
	s.progress = service.NewProgressService(repos.material, repos.enrollment, repos.progress, s.aggregator)
	s.enrollment = service.NewEnrollmentService(repos.enrollment, repos.course, s.aggregator, zl)
	s.assignment = service.NewAssignmentService(repos.assignment, repos.course, repos.enrollment, s.storage,
		s.mailer, s.aggregator, &cfg.Storage, zl)
	s.review = service.NewReviewService(repos.review, repos.course, repos.enrollment)
	s.student = service.NewStudentService(repos.student, s.storage, zl)

	// 完成判定的回退策略支持热更新
	a.OnConfigChange(func(newCfg *config.Config) {
		s.aggregator.SetRevertOnRegression(newCfg.Progress.RevertCompletionOnRegression)
	})

	return s
}

func (a *App) initControllers(s *services, db *gorm.DB) *controllers {
	return &controllers{
		auth:       controller.NewAuthController(s.auth, a.Config.JWT.CookieName, a.Config.Server.SecureCookie),
		course:     controller.NewCourseController(s.course),
		module:     controller.NewModuleController(s.module),
		material:   controller.NewMaterialController(s.material),
		progress:   controller.NewProgressController(s.progress),
		enrollment: controller.NewEnrollmentController(s.enrollment),
		assignment: controller.NewAssignmentController(s.assignment),
		review:     controller.NewReviewController(s.review),
		student:    controller.NewStudentController(s.student),
		health:     controller.NewHealthController(db),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	a.limiters = &limiters{
		general: security.NewRateLimiter(cfg.RateLimit.MaxRequests, window),
		auth:    security.NewRateLimiter(cfg.RateLimit.AuthMaxRequests, window),
	}
	router.Use(a.limiters.general.Middleware())

	a.OnConfigChange(func(newCfg *config.Config) {
		w := time.Duration(newCfg.RateLimit.WindowMinutes) * time.Minute
		a.limiters.general.Update(newCfg.RateLimit.MaxRequests, w)
		a.limiters.auth.Update(newCfg.RateLimit.AuthMaxRequests, w)
	})

	// 分布式追踪中间件
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) startBackgroundTasks(s *services) {
	a.cron = cron.New()
	if err := s.reconcile.Schedule(a.cron, a.Config.Progress.ReconcileCron); err != nil {
		logger.Log.Error("Invalid reconcile schedule, progress reconciliation disabled",
			zap.String("cron", a.Config.Progress.ReconcileCron),
			zap.Error(err))
		return
	}
	a.cron.Start()
}

// OnConfigChange 注册配置热更新回调
func (a *App) OnConfigChange(fn func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, fn)
}

func (a *App) applyConfig(newCfg *config.Config) {
	for _, fn := range a.configCallbacks {
		fn(newCfg)
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	defer logger.Log.Sync()

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database, cfg.Server.Mode)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	// release 模式默认不自动迁移
	if cfg.ForceMigrate || cfg.Server.Mode != "release" {
		if err := database.Migrate(db, cfg.Admin); err != nil {
			logger.Log.Fatal("Failed to migrate database", zap.Error(err))
		}
		logger.Log.Info("Database migrated")
	}

	app := &App{
		Config: cfg,
		DB:     db,
	}
	if cfg.MigrateOnly {
		return app
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}
	app.Redis = rdb

	repos := app.initRepositories(db)
	services := app.initServices(repos, cfg, rdb)
	app.services = services
	controllers := app.initControllers(services, db)

	// 监控初始化
	monitoring.Init()

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Server.Mode == "debug" {
		router.Use(gin.Logger())
	}
	app.Router = router

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer("edu-platform-backend", cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracer = tp
	}

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers, services, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	app.startBackgroundTasks(services)

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:              ":" + a.Config.Server.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	watchCtx, stopWatch := context.WithCancel(context.Background())
	go func() {
		if err := configwatcher.WatchConfig(watchCtx, configDir, a.applyConfig); err != nil {
			logger.Log.Warn("Config watcher disabled", zap.Error(err))
		}
	}()

	// 启动服务器
	go func() {
		logger.Log.Info("Server running", zap.String("port", a.Config.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// 等待中断信号优雅地关闭服务器（设置5秒的超时时间）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")

	stopWatch()
	if a.cron != nil {
		// 等待正在运行的对账任务结束
		<-a.cron.Stop().Done()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}

	if a.limiters != nil {
		a.limiters.general.Close()
		a.limiters.auth.Close()
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}
	if a.Redis != nil {
		_ = a.Redis.Close()
	}

	logger.Log.Info("Server exiting")
}
