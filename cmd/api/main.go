package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SergeiKhy/multidomain-shortener/internal/config"
	"github.com/SergeiKhy/multidomain-shortener/internal/handler"
	"github.com/SergeiKhy/multidomain-shortener/internal/middleware"
	"github.com/SergeiKhy/multidomain-shortener/internal/repository"
	"github.com/SergeiKhy/multidomain-shortener/internal/service"
	"github.com/SergeiKhy/multidomain-shortener/internal/shortcode"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Загрузка конфига
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Подключение к БД (postgres)
	db, err := repository.NewPostgresDB(cfg.DB)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	if cfg.DB.AutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.EnsureSchema(ctx)
		cancel()
		if err != nil {
			logger.Fatal("Failed to apply schema", zap.Error(err))
		}
		logger.Info("Database schema is up to date")
	}

	// Redis опционален: без REDIS_HOST работаем без кэша
	cacheRepo := repository.NewNoopCache()
	if cfg.Redis.Enabled() {
		redis, err := repository.NewRedisClient(cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redis.Close()
		cacheRepo = repository.NewCacheRepository(redis)
		logger.Info("Connected to Redis")
	} else {
		logger.Warn("Redis is not configured, cache disabled")
	}

	// Инициализация репозиториев
	urlRepo := repository.NewShortURLRepository(db)
	clickRepo := repository.NewClickRepository(db)
	domainRepo := repository.NewDomainRepository(db)

	// Инициализация процессора кликов (Worker Pool)
	clickProcessor := service.NewClickProcessor(clickRepo, service.ClickProcessorConfig{
		Mode:    cfg.Clicks.Mode,
		Workers: cfg.Clicks.Workers,
		Buffer:  cfg.Clicks.Buffer,
	}, logger)
	clickProcessor.Start()

	// Инициализация сервисов
	urlService := service.NewShortURLService(urlRepo, cacheRepo, clickProcessor, shortcode.NewRandomGenerator(),
		service.ShortURLServiceConfig{
			CodeLength:  cfg.Shortener.CodeLength,
			MaxAttempts: cfg.Shortener.MaxAttempts,
			CacheTTL:    cfg.Redis.CacheTTL,
		}, logger)
	analyticsService := service.NewAnalyticsService(urlRepo, clickRepo, service.AnalyticsConfig{
		RecentClicks: cfg.Shortener.RecentClicks,
		WindowDays:   cfg.Shortener.StatsWindowDays,
	}, logger)
	domainService := service.NewDomainService(domainRepo, logger)

	// Инициализация middleware
	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		BurstSize:         cfg.RateLimit.BurstSize,
		CleanupInterval:   time.Minute,
	})

	apiKey := middleware.NewAPIKey(middleware.APIKeyConfig{ValidKeys: cfg.Auth.InternalAPIKeys}, logger)
	if len(cfg.Auth.InternalAPIKeys) > 0 {
		logger.Info("Internal API key authentication enabled", zap.Int("keys_count", len(cfg.Auth.InternalAPIKeys)))
	} else {
		logger.Warn("INTERNAL_API_KEYS is empty, internal API is disabled")
	}

	// Настройка роутера
	router, err := handler.NewRouter(handler.RouterConfig{
		ShortURLs: handler.NewShortURLHandler(urlService, analyticsService, handler.ShortURLHandlerConfig{
			Scheme:        cfg.App.ShortURLScheme,
			CountryHeader: cfg.Shortener.CountryHeader,
		}, logger),
		Domains:            handler.NewDomainHandler(domainService, logger),
		Health:             handler.NewHealthHandler(db, clickProcessor, logger),
		RateLimiter:        rateLimiter,
		APIKey:             apiKey,
		TrustedProxies:     cfg.App.TrustedProxies,
		TrustForwardedHost: cfg.App.TrustForwardedHost,
		Logger:             logger,
	})
	if err != nil {
		logger.Fatal("Failed to configure router", zap.Error(err))
	}

	// Запуск сервера
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Запуск в горутине
	go func() {
		logger.Info("Server starting", zap.String("port", cfg.App.Port), zap.String("click_mode", cfg.Clicks.Mode))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	// Новых запросов нет, дописываем накопленные клики
	clickProcessor.Stop()

	logger.Info("Server exited")
}

// newLogger production конфиг, development при APP_ENV=development
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if cfg.IsDevelopment() {
		zcfg = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, err
	}
	zcfg.Level = level

	return zcfg.Build()
}
