package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	InternalAPIKeyHeader = "X-Internal-API-Key"
	apiKeyNameKey        = "api_key_name"
)

// APIKeyConfig конфигурация для API key аутентификации
type APIKeyConfig struct {
	// ValidKeys карта валидных API ключей к их описаниям
	ValidKeys map[string]string
	// HeaderName имя заголовка для API ключа (по умолчанию: X-Internal-API-Key)
	HeaderName string
}

// APIKey middleware для аутентификации внутренних сервисов по API ключу
type APIKey struct {
	config APIKeyConfig
	logger *zap.Logger
}

// NewAPIKey создаёт новый API key middleware
func NewAPIKey(config APIKeyConfig, logger *zap.Logger) *APIKey {
	if config.HeaderName == "" {
		config.HeaderName = InternalAPIKeyHeader
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &APIKey{config: config, logger: logger}
}

// Middleware возвращает Gin middleware handler для API key аутентификации.
// Без настроенных ключей внутренний API закрыт с 500
func (ak *APIKey) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(ak.config.ValidKeys) == 0 {
			ak.logger.Error("Внутренние API ключи не настроены")
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error":   "internal_api_not_configured",
				"message": "Internal API not properly configured",
			})
			return
		}

		apiKey := c.GetHeader(ak.config.HeaderName)
		if apiKey == "" {
			ak.logger.Warn("Запрос без API ключа", zap.String("ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "missing_api_key",
				"message": "Authentication required",
			})
			return
		}

		// Валидация API ключа с использованием constant-time comparison
		valid := false
		var keyName string
		for validKey, name := range ak.config.ValidKeys {
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(validKey)) == 1 {
				valid = true
				keyName = name
			}
		}

		if !valid {
			ak.logger.Warn("Невалидный API ключ", zap.String("ip", c.ClientIP()))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "invalid_api_key",
				"message": "Invalid authentication credentials",
			})
			return
		}

		// Устанавливаем значения в контекст для последующих handlers
		c.Set(apiKeyNameKey, keyName)

		c.Next()
	}
}

// APIKeyName имя валидированного ключа из контекста
func APIKeyName(c *gin.Context) string {
	return c.GetString(apiKeyNameKey)
}
