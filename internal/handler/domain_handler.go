package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SergeiKhy/multidomain-shortener/internal/models"
	"github.com/SergeiKhy/multidomain-shortener/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// DomainHandler внутренний API управления доменами и проверка доменов для Caddy
type DomainHandler struct {
	domains service.DomainService
	logger  *zap.Logger
}

func NewDomainHandler(domains service.DomainService, logger *zap.Logger) *DomainHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DomainHandler{domains: domains, logger: logger}
}

type ConfigureDomainRequest struct {
	Domain     string `json:"domain" binding:"required"`
	AccountID  int64  `json:"account_id" binding:"required"`
	DomainType string `json:"domain_type"`
	UseCaddy   *bool  `json:"use_caddy"`
	Notes      string `json:"notes"`
}

type SSLStatusRequest struct {
	SSLStatus    string     `json:"ssl_status"`
	SSLIssuedAt  *time.Time `json:"ssl_issued_at"`
	SSLExpiresAt *time.Time `json:"ssl_expires_at"`
}

// DomainResponse общий конверт ответов внутреннего API
type DomainResponse struct {
	Status  string                      `json:"status"`
	Message string                      `json:"message,omitempty"`
	Domain  string                      `json:"domain,omitempty"`
	Data    *models.DomainConfiguration `json:"data,omitempty"`
}

type AccountDomainsResponse struct {
	Status    string                       `json:"status"`
	AccountID int64                        `json:"account_id"`
	Count     int                          `json:"count"`
	Domains   []models.DomainConfiguration `json:"domains"`
}

type ValidateDomainResponse struct {
	Allow     bool   `json:"allow"`
	Domain    string `json:"domain"`
	AccountID int64  `json:"account_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Configure POST /api/internal/domains/configure/
func (h *DomainHandler) Configure(c *gin.Context) {
	var req ConfigureDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	useCaddy := true
	if req.UseCaddy != nil {
		useCaddy = *req.UseCaddy
	}

	d, created, err := h.domains.Configure(c.Request.Context(), models.ConfigureDomainInput{
		Domain:     req.Domain,
		AccountID:  req.AccountID,
		DomainType: models.DomainType(req.DomainType),
		UseCaddy:   useCaddy,
		Notes:      req.Notes,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if created {
		c.JSON(http.StatusCreated, DomainResponse{
			Status:  "success",
			Message: "Domain configured successfully. SSL certificate will be issued on first request.",
			Domain:  d.Domain,
			Data:    d,
		})
		return
	}

	c.JSON(http.StatusOK, DomainResponse{
		Status:  "success",
		Message: "Domain reactivated successfully",
		Domain:  d.Domain,
		Data:    d,
	})
}

// Status GET /api/internal/domains/:domain/status/
func (h *DomainHandler) Status(c *gin.Context) {
	d, err := h.domains.Status(c.Request.Context(), c.Param("domain"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, DomainResponse{Status: "success", Data: d})
}

// Remove DELETE /api/internal/domains/:domain/?hard_delete=true
func (h *DomainHandler) Remove(c *gin.Context) {
	domain := strings.ToLower(c.Param("domain"))
	hard := strings.EqualFold(c.Query("hard_delete"), "true")

	if err := h.domains.Remove(c.Request.Context(), domain, hard); err != nil {
		respondError(c, h.logger, err)
		return
	}

	message := "Domain deactivated successfully"
	if hard {
		message = "Domain permanently deleted"
	}
	c.JSON(http.StatusOK, DomainResponse{
		Status:  "success",
		Message: message,
		Domain:  domain,
	})
}

// UpdateSSLStatus POST /api/internal/domains/:domain/ssl-status/
func (h *DomainHandler) UpdateSSLStatus(c *gin.Context) {
	var req SSLStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	d, err := h.domains.UpdateSSLStatus(c.Request.Context(), c.Param("domain"), models.SSLStatusUpdate{
		Status:       models.SSLStatus(req.SSLStatus),
		SSLIssuedAt:  req.SSLIssuedAt,
		SSLExpiresAt: req.SSLExpiresAt,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, DomainResponse{
		Status:  "success",
		Message: "SSL status updated",
		Domain:  d.Domain,
		Data:    d,
	})
}

// ListByAccount GET /api/internal/accounts/:account_id/domains/?active_only=true
func (h *DomainHandler) ListByAccount(c *gin.Context) {
	accountID, err := strconv.ParseInt(c.Param("account_id"), 10, 64)
	if err != nil || accountID <= 0 {
		fieldError(c, "account_id", "account_id must be a positive integer")
		return
	}
	activeOnly := strings.EqualFold(c.Query("active_only"), "true")

	domains, err := h.domains.ListByAccount(c.Request.Context(), accountID, activeOnly)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if domains == nil {
		domains = []models.DomainConfiguration{}
	}

	c.JSON(http.StatusOK, AccountDomainsResponse{
		Status:    "success",
		AccountID: accountID,
		Count:     len(domains),
		Domains:   domains,
	})
}

// ValidateDomain GET /caddy/validate-domain?domain=...
// Caddy спрашивает перед выпуском сертификата: 200 разрешает, 403 запрещает
func (h *DomainHandler) ValidateDomain(c *gin.Context) {
	domain := strings.ToLower(strings.TrimSpace(c.Query("domain")))
	if domain == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "domain parameter required",
		})
		return
	}

	d, allow, err := h.domains.AllowCertificate(c.Request.Context(), domain)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if !allow {
		h.logger.Info("Отказ в выпуске сертификата", zap.String("domain", domain))
		c.JSON(http.StatusForbidden, ValidateDomainResponse{
			Allow:  false,
			Domain: domain,
			Error:  "Domain not configured",
		})
		return
	}

	c.JSON(http.StatusOK, ValidateDomainResponse{
		Allow:     true,
		Domain:    d.Domain,
		AccountID: d.AccountID,
	})
}
