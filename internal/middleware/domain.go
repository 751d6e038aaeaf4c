package middleware

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

const requestDomainKey = "request_domain"

// RequestHost определяет домен запроса по Host.
// X-Forwarded-Host учитывается только за доверенным прокси
func RequestHost(trustForwardedHost bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		host := c.Request.Host
		if trustForwardedHost {
			if fwd := c.GetHeader("X-Forwarded-Host"); fwd != "" {
				// Первое значение цепочки прокси
				host = strings.TrimSpace(strings.Split(fwd, ",")[0])
			}
		}

		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
		c.Set(requestDomainKey, strings.ToLower(host))
		c.Next()
	}
}

// RequestDomain домен текущего запроса
func RequestDomain(c *gin.Context) string {
	if d := c.GetString(requestDomainKey); d != "" {
		return d
	}
	host := c.Request.Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(host)
}
