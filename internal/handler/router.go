package handler

import (
	"github.com/SergeiKhy/multidomain-shortener/internal/middleware"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	ShortURLs *ShortURLHandler
	Domains   *DomainHandler
	Health    *HealthHandler

	RateLimiter *middleware.RateLimiter
	APIKey      *middleware.APIKey

	TrustedProxies     []string
	TrustForwardedHost bool

	Logger *zap.Logger
}

func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	// Ошибки валидации отдаём по json-именам полей
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(jsonFieldName)
	}

	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Metrics(),
		middleware.RequestHost(cfg.TrustForwardedHost),
	)

	router.GET("/health/", cfg.Health.HealthCheck)
	router.GET("/health/ready/", cfg.Health.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Caddy вызывает без аутентификации перед выпуском сертификата
	router.GET("/caddy/validate-domain", cfg.Domains.ValidateDomain)

	api := router.Group("/api")
	if cfg.RateLimiter != nil {
		api.Use(cfg.RateLimiter.Middleware())
	}
	{
		api.GET("/", APIInfo)

		api.POST("/shorten/", cfg.ShortURLs.Shorten)
		api.POST("/shorten/bulk/", cfg.ShortURLs.ShortenBulk)

		api.GET("/urls/", cfg.ShortURLs.List)
		api.PATCH("/urls/:short_code/", cfg.ShortURLs.Update)
		api.DELETE("/urls/:short_code/", cfg.ShortURLs.Delete)

		api.GET("/stats/:short_code/", cfg.ShortURLs.Stats)
		api.GET("/qr/:short_code/", cfg.ShortURLs.QRCode)
	}

	// Внутренний API: отдельная группа, лимит по имени ключа, а не по IP
	apiKey := cfg.APIKey
	if apiKey == nil {
		// Без ключей внутренний API отвечает 500
		apiKey = middleware.NewAPIKey(middleware.APIKeyConfig{}, logger)
	}
	internal := router.Group("/api/internal")
	internal.Use(apiKey.Middleware())
	if cfg.RateLimiter != nil {
		internal.Use(cfg.RateLimiter.MiddlewareWithKey(middleware.APIKeyName))
	}
	{
		internal.POST("/domains/configure/", cfg.Domains.Configure)
		internal.GET("/domains/:domain/status/", cfg.Domains.Status)
		internal.DELETE("/domains/:domain/", cfg.Domains.Remove)
		internal.POST("/domains/:domain/ssl-status/", cfg.Domains.UpdateSSLStatus)
		internal.GET("/accounts/:account_id/domains/", cfg.Domains.ListByAccount)
	}

	// Редирект по домену запроса, без rate limit и API key
	router.GET("/:short_code/", cfg.ShortURLs.Redirect)

	return router, nil
}
