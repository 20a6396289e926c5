package app

import (
	"fmt"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/payflow/server/internal/module/gateway"
	"github.com/payflow/server/internal/module/notification"
	"github.com/payflow/server/internal/module/payment"
	"github.com/payflow/server/internal/module/payment/entity"
	sharedcache "github.com/payflow/server/internal/shared/cache"
	"github.com/payflow/server/internal/shared/config"
	"github.com/payflow/server/internal/shared/database"
	"github.com/payflow/server/internal/shared/logger"
	"github.com/payflow/server/internal/shared/metrics"
	"github.com/payflow/server/internal/shared/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App represents the application.
type App struct {
	config    *config.Config
	db        *gorm.DB
	redis     redis.UniversalClient
	router    *gin.Engine
	logger    *logger.Logger
	zapLogger *zap.Logger
	metrics   *metrics.Metrics

	// Modules
	paymentHandler *payment.Handler
	paymentService *payment.Service
	emitter        *notification.Emitter
	gatewayClient  gateway.Client
}

// New creates a new application instance.
func New(cfg *config.Config) (*App, error) {
	// Initialize logger
	log := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	// Initialize zap logger for modules that use zap
	zapLog, err := logger.NewZapLogger(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return nil, fmt.Errorf("init zap logger: %w", err)
	}

	app := &App{
		config:    cfg,
		logger:    log,
		zapLogger: zapLog,
		metrics:   metrics.New("payflow"),
	}

	// Initialize database
	db, err := database.New(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("init database: %w", err)
	}
	if err := db.AutoMigrate(&entity.PaymentEntity{}, &notification.Notification{}); err != nil {
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	app.db = db

	// Initialize Redis (optional)
	if cfg.Redis.Address != "" {
		redisClient, err := sharedcache.NewRedisClient(&cfg.Redis)
		if err != nil {
			// Redis is optional, the service falls back to database reads
			zapLog.Warn("redis connection failed, running without cache", zap.Error(err))
		} else {
			app.redis = redisClient
		}
	}

	// Initialize router
	app.router = app.setupRouter()

	// Initialize modules
	app.initModules()
	app.registerRoutes()

	return app, nil
}

// setupRouter creates and configures the Gin router.
func (a *App) setupRouter() *gin.Engine {
	if a.config.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Apply global middleware
	r.Use(middleware.Recovery(a.zapLogger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(a.logger))
	r.Use(middleware.Metrics(a.metrics))
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST"},
		AllowHeaders:    []string{"Content-Type", middleware.RequestIDHeader},
	}))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus metrics endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// initModules wires the payment, gateway and notification modules.
func (a *App) initModules() {
	// Gateway client with retry and circuit breaker
	policy := gateway.RetryPolicy{
		MaxAttempts:  a.config.Gateway.MaxAttempts,
		InitialDelay: a.config.Gateway.InitialDelay,
		Multiplier:   a.config.Gateway.BackoffMultiplier,
		Retryable:    gateway.IsTransient,
	}
	a.gatewayClient = gateway.NewHTTPClient(gateway.Config{
		BaseURL:         a.config.Gateway.BaseURL,
		RequestTimeout:  a.config.Gateway.RequestTimeout,
		BreakerFailures: a.config.Gateway.BreakerFailures,
		BreakerTimeout:  a.config.Gateway.BreakerTimeout,
	}, policy, a.metrics, a.zapLogger)

	// Notification emitter
	notificationRepo := notification.NewRepository(a.db)
	a.emitter = notification.NewEmitter(
		notificationRepo,
		notification.NoopSender{},
		a.config.Notification.Channel,
		a.metrics,
		a.zapLogger,
	)

	// Payment module
	paymentRepo := payment.NewRepository(a.db)
	paymentCache := payment.NewCache(a.redis, a.config.Redis.CacheTTL)

	a.paymentService = payment.NewService(
		a.db,
		paymentRepo,
		a.emitter,
		newChargeInitiator(a.gatewayClient),
		paymentCache,
		a.metrics,
		a.zapLogger,
	)
	a.paymentHandler = payment.NewHandler(a.paymentService)
}

// registerRoutes registers routes for all modules.
func (a *App) registerRoutes() {
	api := a.router.Group("/api")
	a.paymentHandler.RegisterRoutes(api)
}

// Router returns the HTTP router.
func (a *App) Router() *gin.Engine {
	return a.router
}

// Stop stops the application and releases resources.
func (a *App) Stop() {
	if a.zapLogger != nil {
		_ = a.zapLogger.Sync()
	}

	if a.redis != nil {
		_ = a.redis.Close()
	}

	if a.db != nil {
		_ = database.Close(a.db)
	}
}
