package internal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"file-manager-api/config"
	"file-manager-api/internal/application/ports"
	"file-manager-api/internal/application/quota"
	"file-manager-api/internal/application/services"
	"file-manager-api/internal/infrastructure/db/postgres"
	"file-manager-api/internal/infrastructure/db/postgres/file"
	"file-manager-api/internal/infrastructure/db/postgres/user"
	"file-manager-api/internal/infrastructure/jwt"
	"file-manager-api/internal/infrastructure/metrics"
	"file-manager-api/internal/infrastructure/minio"
	"file-manager-api/internal/infrastructure/mq"
	"file-manager-api/internal/infrastructure/objectstore"
	"file-manager-api/internal/infrastructure/redis"
	"file-manager-api/internal/infrastructure/s3"
	"file-manager-api/internal/interface/api/rest"
	"file-manager-api/internal/interface/api/rest/middleware"
	"file-manager-api/pkg/rmqconsumer"
)

type App struct {
	logger      *zap.Logger
	cfg         config.Config
	db          *pgxpool.Pool
	store       ports.ObjectStore
	redis       *goredis.Client
	verifier    ports.TokenVerifier
	reqLimiter  ports.RequestLimiter
	httpSrv     *http.Server
	router      *gin.Engine
	mCounter    *prometheus.CounterVec
	sagaCounter *prometheus.CounterVec
	mq          ports.RabbitMQ
	mqConsumer  ports.RMQConsumer
}

func NewApp(ctx context.Context, envFile string) (*App, error) {
	// logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("cannot initialize zap logger: %v", err)
	}
	defer logger.Sync()

	// config
	if err = godotenv.Load(envFile); err != nil {
		logger.Warn("env file not loaded, using process environment", zap.String("file", envFile), zap.Error(err))
	}
	cfg := config.Load()
	if err = cfg.Validate(); err != nil {
		logger.Fatal("config error", zap.Error(err))
	}

	// metrics
	mCounter := metrics.NewCounter()
	sagaCounter := metrics.NewSagaCounter()

	r := newRouter(cfg.App, logger, mCounter)
	httpSrv := &http.Server{
		Addr:              ":" + cfg.App.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// db
	dbDsn, err := cfg.DBDSN()
	if err != nil {
		logger.Fatal("DB config error", zap.Error(err))
	}
	if err = postgres.Migrate(logger, dbDsn); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}
	dbPool, err := postgres.New(ctx, logger, dbDsn)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	// object store
	backend, err := newObjectBackend(ctx, logger, cfg.S3)
	if err != nil {
		logger.Fatal("failed to connect to object store", zap.String("driver", cfg.S3.Driver), zap.Error(err))
	}
	store := objectstore.New(backend, logger, objectstore.Config{
		Attempts:    cfg.Upload.StoreAttempts,
		BaseBackoff: cfg.Upload.BaseBackoff,
		MaxBackoff:  cfg.Upload.MaxBackoff,
	})

	rdb, reqLimiter := newRequestLimiter(ctx, logger, cfg)

	verifier, err := newVerifier(ctx, cfg.App)
	if err != nil {
		logger.Fatal("failed to load JWKS", zap.String("url", cfg.App.JWKSURL), zap.Error(err))
	}

	rabbitDsn, err := cfg.AMQPDSN()
	if err != nil {
		logger.Fatal("RabbitMQ config error", zap.Error(err))
	}
	publisher := mq.New(cfg.MQ, logger)
	if err = connectMQ(func() error { return publisher.Connect(ctx, rabbitDsn) }, publisher.Init); err != nil {
		logger.Fatal("event publisher unavailable", zap.Error(err))
	}
	auditConsumer := rmqconsumer.New(cfg.MQ, logger, mCounter)
	if err = connectMQ(func() error { return auditConsumer.Connect(rabbitDsn) }, auditConsumer.Init); err != nil {
		logger.Fatal("audit consumer unavailable", zap.Error(err))
	}

	return &App{
		logger:      logger,
		cfg:         cfg,
		db:          dbPool,
		store:       store,
		redis:       rdb,
		verifier:    verifier,
		reqLimiter:  reqLimiter,
		httpSrv:     httpSrv,
		router:      r,
		mCounter:    mCounter,
		sagaCounter: sagaCounter,
		mq:          publisher,
		mqConsumer:  auditConsumer,
	}, nil
}

func newRouter(cfg config.APP, logger *zap.Logger, mCounter *prometheus.CounterVec) *gin.Engine {
	switch cfg.Env {
	case gin.ReleaseMode, "prod", "production":
		gin.SetMode(gin.ReleaseMode)
	case gin.TestMode:
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestLogGin(logger, mCounter),
		middleware.Timeout(cfg.RequestTimeout),
	)
	return r
}

// newRequestLimiter counts in Redis when configured and reachable,
// otherwise per process.
func newRequestLimiter(ctx context.Context, logger *zap.Logger, cfg config.Config) (*goredis.Client, ports.RequestLimiter) {
	var counter quota.Counter = quota.NewMemoryCounter(cfg.Limits.StoreCapacity, cfg.Limits.RequestWindow)

	var rdb *goredis.Client
	if cfg.Redis.Addr != "" {
		c, err := redis.New(ctx, logger, cfg.Redis)
		if err != nil {
			logger.Warn("redis unavailable, request limits are per process", zap.Error(err))
		} else {
			rdb, counter = c, redis.NewCounter(c, cfg.Limits.RequestWindow)
		}
	}

	return rdb, quota.NewRequestLimiter(counter, cfg.Limits.RequestsPerWindow)
}

func newVerifier(ctx context.Context, cfg config.APP) (ports.TokenVerifier, error) {
	if cfg.JWKSURL != "" {
		return jwt.NewJWKS(ctx, cfg.JWKSURL)
	}
	return jwt.New(cfg.JWTSecret), nil
}

func connectMQ(connect, declare func() error) error {
	if err := connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	if err := declare(); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	return nil
}

func newObjectBackend(ctx context.Context, logger *zap.Logger, cfg config.S3) (ports.ObjectBackend, error) {
	switch cfg.Driver {
	case config.DriverMinio:
		return minio.New(ctx, logger, cfg)
	case config.DriverS3:
		return s3.New(ctx, logger, cfg)
	}
	return nil, fmt.Errorf("unknown object store driver %q", cfg.Driver)
}

func (a *App) Close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.mq.GetConn() != nil {
		a.mq.GetConn().Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// Run - The central place to launch and manage our application and
// parallel processes through a single context.
func (a *App) Run(ctx context.Context) error {
	// context with os signals cancel chan
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("starting "+a.cfg.App.Name, zap.String("addr", a.cfg.App.Host+":"+a.cfg.App.Port))
		if err := a.httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server "+a.cfg.App.Name+" error: %w", err)
		}

		return nil
	})

	g.Go(func() error {
		a.mq.PublisherWorker(ctx)
		return nil
	})

	g.Go(func() error {
		a.mqConsumer.DeliveryWorker(ctx)
		return nil
	})

	<-ctx.Done()

	a.logger.Info("shutting down " + a.cfg.App.Name + " gracefully...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if a.httpSrv != nil {
		if err := a.httpSrv.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown "+a.cfg.App.Name+" error", zap.Error(err))
			return err
		}
	}

	if err := g.Wait(); err != nil {
		a.logger.Error(a.cfg.App.Name+" returning an error", zap.Error(err))
		return err
	}

	a.logger.Info(a.cfg.App.Name + " gracefully stopped")

	return nil
}

func (a *App) InitControllers() {
	// repos
	userRepo := user.NewRepository(a.db)
	fileRepo := file.NewRepository(a.db)

	// services
	limits := quota.Limits{
		Window:          a.cfg.Limits.Window,
		MaxRequests:     a.cfg.Limits.MaxRequests,
		MaxBytes:        a.cfg.Limits.MaxBytes,
		MaxStorageBytes: a.cfg.Limits.MaxStorageBytes,
		StoreCapacity:   a.cfg.Limits.StoreCapacity,
	}
	uploadLimiter := quota.NewUploadLimiter(limits, fileRepo)
	userService := services.NewUserService(userRepo, a.mCounter)
	fileService := services.NewFileService(
		fileRepo,
		userRepo,
		a.store,
		uploadLimiter,
		a.mq,
		a.mCounter,
		a.sagaCounter,
		a.logger,
		services.FileServiceConfig{
			RetainFailed:        a.cfg.Upload.RetainFailed,
			CompensationTimeout: a.cfg.Upload.CompensationTimeout,
		},
	)

	// controllers
	rest.NewUserController(a.router, userService, a.logger, a.verifier, a.reqLimiter)
	rest.NewFileController(a.router, fileService, userService, a.logger, a.verifier, a.reqLimiter)

	// ops
	a.router.GET(rest.RouteHealth, a.healthz)
	a.router.GET(rest.RouteMetrics, gin.WrapH(promhttp.Handler()))
}

func (a *App) healthz(c *gin.Context) {
	if err := a.db.Ping(c.Request.Context()); err != nil {
		a.logger.Warn("healthz: database unreachable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (a *App) Logger() *zap.Logger { return a.logger }
