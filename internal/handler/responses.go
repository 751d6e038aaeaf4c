package handler

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/SergeiKhy/multidomain-shortener/internal/models"
	"github.com/SergeiKhy/multidomain-shortener/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// ShortURLResponse запись ссылки в ответах API
type ShortURLResponse struct {
	ID           int64      `json:"id"`
	ShortCode    string     `json:"short_code"`
	Domain       string     `json:"domain"`
	OriginalURL  string     `json:"original_url"`
	FullShortURL string     `json:"full_short_url"`
	Title        string     `json:"title"`
	Clicks       int64      `json:"clicks"`
	IsActive     bool       `json:"is_active"`
	IsExpired    bool       `json:"is_expired"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	ExpiresAt    *time.Time `json:"expires_at"`
}

type ListResponse struct {
	Count   int64              `json:"count"`
	Results []ShortURLResponse `json:"results"`
}

type StatsResponse struct {
	ShortURL        ShortURLResponse    `json:"short_url"`
	TotalClicks     int64               `json:"total_clicks"`
	RecentClicks    []models.ClickEvent `json:"recent_clicks"`
	ClicksByDay     map[string]int64    `json:"clicks_by_day"`
	ClicksByCountry map[string]int64    `json:"clicks_by_country"`
}

func fullShortURL(scheme string, u *models.ShortURL) string {
	return fmt.Sprintf("%s://%s/%s", scheme, u.Domain, u.ShortCode)
}

func toResponse(scheme string, u *models.ShortURL, now time.Time) ShortURLResponse {
	return ShortURLResponse{
		ID:           u.ID,
		ShortCode:    u.ShortCode,
		Domain:       u.Domain,
		OriginalURL:  u.OriginalURL,
		FullShortURL: fullShortURL(scheme, u),
		Title:        u.Title,
		Clicks:       u.Clicks,
		IsActive:     u.IsActive,
		IsExpired:    u.IsExpired(now),
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
		ExpiresAt:    u.ExpiresAt,
	}
}

// respondError переводит ошибки сервиса в HTTP ответ
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var vErr *service.ValidationError
	switch {
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: vErr.Message,
			Fields:  map[string]string{vErr.Field: vErr.Message},
		})
	case errors.Is(err, service.ErrCodeConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "code_conflict",
			Message: "Short code is already taken for this domain",
			Fields:  map[string]string{"short_code": "already taken"},
		})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Short URL not found",
		})
	case errors.Is(err, service.ErrDomainExists):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "domain_exists",
			Message: "Domain already configured",
		})
	case errors.Is(err, service.ErrDomainNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "domain_not_found",
			Message: "Domain not found",
		})
	case errors.Is(err, service.ErrUnavailable):
		logger.Error("Хранилище недоступно", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error:   "service_unavailable",
			Message: "Service temporarily unavailable, try again later",
		})
	case errors.Is(err, service.ErrAllocationExhausted):
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "allocation_exhausted",
			Message: "Could not allocate a short code, try again later",
		})
	default:
		logger.Error("Внутренняя ошибка", zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Internal server error",
		})
	}
}

// respondBindError ответ на невалидное тело запроса
func respondBindError(c *gin.Context, err error) {
	var vErrs validator.ValidationErrors
	if errors.As(err, &vErrs) {
		fields := make(map[string]string, len(vErrs))
		for _, fe := range vErrs {
			fields[fe.Field()] = describeTag(fe)
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Request validation failed",
			Fields:  fields,
		})
		return
	}

	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "invalid_request",
		Message: err.Error(),
	})
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "min":
		return "must contain at least " + fe.Param() + " items"
	case "max":
		return "must contain at most " + fe.Param() + " items"
	default:
		return "invalid value"
	}
}

// jsonFieldName имя поля из json тега для ошибок валидации
func jsonFieldName(f reflect.StructField) string {
	name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return f.Name
	}
	return name
}

func fieldError(c *gin.Context, field, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{
		Error:   "validation_error",
		Message: message,
		Fields:  map[string]string{field: message},
	})
}
