package middleware

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// RateLimiterConfig конфигурация rate limiter
type RateLimiterConfig struct {
	RequestsPerSecond float64       // Количество запросов в секунду
	BurstSize         int           // Максимальный размер burst
	CleanupInterval   time.Duration // Интервал очистки неактивных посетителей
}

// DefaultRateLimiterConfig конфигурация по умолчанию
var DefaultRateLimiterConfig = RateLimiterConfig{
	RequestsPerSecond: 10, // 10 запросов в секунду
	BurstSize:         20, // Burst до 20 запросов
	CleanupInterval:   time.Minute,
}

// RateLimiter middleware для ограничения запросов с использованием алгоритма Token Bucket.
// Неактивные посетители вытесняются из кэша по TTL
type RateLimiter struct {
	config   RateLimiterConfig
	visitors *cache.Cache // key -> *rate.Limiter
	mu       sync.Mutex
}

// NewRateLimiter создаёт новый rate limiter middleware
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = DefaultRateLimiterConfig.RequestsPerSecond
	}
	if config.BurstSize <= 0 {
		config.BurstSize = DefaultRateLimiterConfig.BurstSize
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = DefaultRateLimiterConfig.CleanupInterval
	}

	return &RateLimiter{
		config:   config,
		visitors: cache.New(config.CleanupInterval*3, config.CleanupInterval),
	}
}

// getLimiter возвращает или создаёт rate limiter для данного ключа
func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if v, found := rl.visitors.Get(key); found {
		// Продлеваем TTL активного посетителя
		rl.visitors.SetDefault(key, v)
		return v.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.BurstSize)
	rl.visitors.SetDefault(key, limiter)
	return limiter
}

// Visitors количество отслеживаемых клиентов
func (rl *RateLimiter) Visitors() int {
	return rl.visitors.ItemCount()
}

func (rl *RateLimiter) handle(c *gin.Context, key string) {
	if rl.getLimiter(key).Allow() {
		c.Next()
		return
	}

	retryAfter := int(math.Ceil(1 / rl.config.RequestsPerSecond))
	c.Header("Retry-After", strconv.Itoa(retryAfter))
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
		"error":       "rate_limit_exceeded",
		"message":     "Too many requests, try again later",
		"retry_after": retryAfter,
	})
}

// Middleware возвращает Gin middleware handler для rate limiting по IP
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		rl.handle(c, c.ClientIP())
	}
}

// MiddlewareWithKey возвращает rate limiter с кастомным ключом (например, имя API ключа)
func (rl *RateLimiter) MiddlewareWithKey(getKey func(*gin.Context) string) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := getKey(c)
		if key == "" {
			key = c.ClientIP()
		}
		rl.handle(c, key)
	}
}
