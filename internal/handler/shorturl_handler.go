package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/SergeiKhy/multidomain-shortener/internal/middleware"
	"github.com/SergeiKhy/multidomain-shortener/internal/models"
	"github.com/SergeiKhy/multidomain-shortener/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"
)

const (
	defaultQRSize = 256
	minQRSize     = 64
	maxQRSize     = 1024
)

const expiredPage = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>Link expired</title></head>
<body><h1>Link expired</h1><p>This short link has expired and is no longer available.</p></body>
</html>
`

type ShortURLHandler struct {
	urls          service.ShortURLService
	analytics     service.AnalyticsService
	scheme        string
	countryHeader string
	now           func() time.Time
	logger        *zap.Logger
}

type ShortURLHandlerConfig struct {
	Scheme        string
	CountryHeader string
	Now           func() time.Time
}

func NewShortURLHandler(
	urls service.ShortURLService,
	analytics service.AnalyticsService,
	cfg ShortURLHandlerConfig,
	logger *zap.Logger,
) *ShortURLHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	if cfg.CountryHeader == "" {
		cfg.CountryHeader = "CF-IPCountry"
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &ShortURLHandler{
		urls:          urls,
		analytics:     analytics,
		scheme:        cfg.Scheme,
		countryHeader: cfg.CountryHeader,
		now:           cfg.Now,
		logger:        logger,
	}
}

type ShortenRequest struct {
	OriginalURL string     `json:"original_url" binding:"required"`
	Title       string     `json:"title"`
	ShortCode   *string    `json:"short_code"`
	Domain      string     `json:"domain"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

type BulkShortenRequest struct {
	URLs   []string `json:"urls" binding:"required,min=1,max=100"`
	Domain string   `json:"domain"`
	Title  string   `json:"title"`
}

type UpdateShortURLRequest struct {
	Title     *string             `json:"title"`
	IsActive  *bool               `json:"is_active"`
	ExpiresAt models.NullableTime `json:"expires_at"`
	// Неизменяемые поля, их наличие в запросе ошибка
	ShortCode   *string `json:"short_code"`
	OriginalURL *string `json:"original_url"`
	Domain      *string `json:"domain"`
}

// domainFor явный domain из запроса или host
func domainFor(c *gin.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	return middleware.RequestDomain(c)
}

func (h *ShortURLHandler) respond(c *gin.Context, u *models.ShortURL) ShortURLResponse {
	return toResponse(h.scheme, u, h.now())
}

// Shorten godoc
// @Summary Create a short URL
// @Description Create a short URL scoped to the request domain
// @Tags urls
// @Accept json
// @Produce json
// @Param request body ShortenRequest true "Short URL creation request"
// @Success 201 {object} ShortURLResponse
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /api/shorten/ [post]
func (h *ShortURLHandler) Shorten(c *gin.Context) {
	var req ShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	if req.ShortCode != nil && *req.ShortCode == "" {
		req.ShortCode = nil
	}

	u, err := h.urls.Shorten(c.Request.Context(), &models.CreateShortURLInput{
		OriginalURL: req.OriginalURL,
		Title:       req.Title,
		ShortCode:   req.ShortCode,
		Domain:      domainFor(c, req.Domain),
		ExpiresAt:   req.ExpiresAt,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, h.respond(c, u))
}

// ShortenBulk godoc
// @Summary Create short URLs in bulk
// @Tags urls
// @Accept json
// @Produce json
// @Param request body BulkShortenRequest true "Bulk creation request"
// @Success 201 {object} ListResponse
// @Failure 400 {object} ErrorResponse
// @Router /api/shorten/bulk/ [post]
func (h *ShortURLHandler) ShortenBulk(c *gin.Context) {
	var req BulkShortenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	created, err := h.urls.ShortenBulk(c.Request.Context(), &models.BulkCreateInput{
		URLs:   req.URLs,
		Domain: domainFor(c, req.Domain),
		Title:  req.Title,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := ListResponse{Count: int64(len(created)), Results: make([]ShortURLResponse, 0, len(created))}
	for i := range created {
		resp.Results = append(resp.Results, h.respond(c, &created[i]))
	}
	c.JSON(http.StatusCreated, resp)
}

// Redirect godoc
// @Summary Redirect to original URL
// @Description Redirect to the original URL by short code of the request domain
// @Tags redirect
// @Param short_code path string true "Short code"
// @Success 302
// @Failure 404 {object} ErrorResponse
// @Failure 410
// @Router /{short_code}/ [get]
func (h *ShortURLHandler) Redirect(c *gin.Context) {
	code := c.Param("short_code")

	outcome, err := h.urls.Resolve(c.Request.Context(), middleware.RequestDomain(c), code, models.RequestMetadata{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		Referer:   c.Request.Referer(),
		Country:   c.GetHeader(h.countryHeader),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	// Каждый переход должен доходить до сервера
	c.Header("Cache-Control", "no-store")

	switch outcome.Status {
	case models.RedirectFound:
		c.Redirect(http.StatusFound, outcome.URL.OriginalURL)
	case models.RedirectExpired:
		c.Data(http.StatusGone, "text/html; charset=utf-8", []byte(expiredPage))
	default:
		// Неактивная ссылка неотличима от несуществующей
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Short URL not found",
		})
	}
}

// List godoc
// @Summary List short URLs of a domain
// @Tags urls
// @Produce json
// @Param limit query int false "Page size" default(20)
// @Param offset query int false "Offset" default(0)
// @Param search query string false "Search in title and original URL"
// @Param is_active query bool false "Filter by state" default(true)
// @Success 200 {object} ListResponse
// @Router /api/urls/ [get]
func (h *ShortURLHandler) List(c *gin.Context) {
	filter := models.ListShortURLsFilter{
		Domain: domainFor(c, c.Query("domain")),
		Search: c.Query("search"),
	}

	var ok bool
	if filter.Limit, ok = intQuery(c, "limit"); !ok {
		return
	}
	if filter.Offset, ok = intQuery(c, "offset"); !ok {
		return
	}
	if raw := c.Query("is_active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			fieldError(c, "is_active", "must be true or false")
			return
		}
		filter.IsActive = &active
	}

	page, err := h.urls.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	resp := ListResponse{Count: page.Count, Results: make([]ShortURLResponse, 0, len(page.Results))}
	for i := range page.Results {
		resp.Results = append(resp.Results, h.respond(c, &page.Results[i]))
	}
	c.JSON(http.StatusOK, resp)
}

func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		fieldError(c, name, "must be an integer")
		return 0, false
	}
	return n, true
}

// Update godoc
// @Summary Update a short URL
// @Description Partially update title, is_active and expires_at
// @Tags urls
// @Accept json
// @Produce json
// @Param short_code path string true "Short code"
// @Success 200 {object} ShortURLResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/urls/{short_code}/ [patch]
func (h *ShortURLHandler) Update(c *gin.Context) {
	var req UpdateShortURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	switch {
	case req.ShortCode != nil:
		fieldError(c, "short_code", "field is read-only")
		return
	case req.OriginalURL != nil:
		fieldError(c, "original_url", "field is read-only")
		return
	case req.Domain != nil:
		fieldError(c, "domain", "field is read-only")
		return
	}

	u, err := h.urls.Update(c.Request.Context(), domainFor(c, c.Query("domain")), c.Param("short_code"), models.UpdateShortURLInput{
		Title:     req.Title,
		IsActive:  req.IsActive,
		ExpiresAt: req.ExpiresAt,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, h.respond(c, u))
}

// Delete godoc
// @Summary Deactivate a short URL
// @Description Soft delete, repeated calls succeed
// @Tags urls
// @Param short_code path string true "Short code"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /api/urls/{short_code}/ [delete]
func (h *ShortURLHandler) Delete(c *gin.Context) {
	err := h.urls.Deactivate(c.Request.Context(), domainFor(c, c.Query("domain")), c.Param("short_code"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Stats godoc
// @Summary Get click statistics
// @Tags stats
// @Produce json
// @Param short_code path string true "Short code"
// @Success 200 {object} StatsResponse
// @Failure 404 {object} ErrorResponse
// @Router /api/stats/{short_code}/ [get]
func (h *ShortURLHandler) Stats(c *gin.Context) {
	stats, err := h.analytics.GetStats(c.Request.Context(), domainFor(c, c.Query("domain")), c.Param("short_code"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, StatsResponse{
		ShortURL:        h.respond(c, stats.ShortURL),
		TotalClicks:     stats.TotalClicks,
		RecentClicks:    stats.RecentClicks,
		ClicksByDay:     stats.ClicksByDay,
		ClicksByCountry: stats.ClicksByCountry,
	})
}

// QRCode отдаёт PNG с QR-кодом полной короткой ссылки
func (h *ShortURLHandler) QRCode(c *gin.Context) {
	size := defaultQRSize
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < minQRSize || n > maxQRSize {
			fieldError(c, "size", "size must be an integer between 64 and 1024")
			return
		}
		size = n
	}

	u, err := h.urls.Get(c.Request.Context(), domainFor(c, c.Query("domain")), c.Param("short_code"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	png, err := qrcode.Encode(fullShortURL(h.scheme, u), qrcode.Medium, size)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
