package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/multidomain-shortener/internal/metrics"
	"github.com/SergeiKhy/multidomain-shortener/internal/models"
	"github.com/SergeiKhy/multidomain-shortener/internal/repository"
	"github.com/SergeiKhy/multidomain-shortener/internal/shortcode"
	"go.uber.org/zap"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxBulkURLs      = 100
	defaultCacheTTL  = time.Hour
)

// ShortURLService интерфейс сервиса коротких ссылок
type ShortURLService interface {
	Shorten(ctx context.Context, input *models.CreateShortURLInput) (*models.ShortURL, error)
	ShortenBulk(ctx context.Context, input *models.BulkCreateInput) ([]models.ShortURL, error)
	Get(ctx context.Context, domain, code string) (*models.ShortURL, error)
	Update(ctx context.Context, domain, code string, input models.UpdateShortURLInput) (*models.ShortURL, error)
	Deactivate(ctx context.Context, domain, code string) error
	List(ctx context.Context, filter models.ListShortURLsFilter) (*models.ShortURLPage, error)
	Resolve(ctx context.Context, domain, code string, meta models.RequestMetadata) (*models.RedirectOutcome, error)
}

type ShortURLServiceConfig struct {
	CodeLength  int
	MaxAttempts int
	CacheTTL    time.Duration
	// Now источник времени, по умолчанию time.Now
	Now func() time.Time
}

// shortURLService реализация сервиса ссылок
type shortURLService struct {
	repo     repository.ShortURLRepository
	cache    repository.CacheRepository
	clicks   ClickProcessor
	alloc    *allocator
	cacheTTL time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

// NewShortURLService создаёт новый экземпляр сервиса
func NewShortURLService(
	repo repository.ShortURLRepository,
	cache repository.CacheRepository,
	clicks ClickProcessor,
	generator shortcode.Generator,
	cfg ShortURLServiceConfig,
	logger *zap.Logger,
) ShortURLService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cache == nil {
		cache = repository.NewNoopCache()
	}
	if generator == nil {
		generator = shortcode.NewRandomGenerator()
	}
	if cfg.CodeLength == 0 {
		cfg.CodeLength = shortcode.DefaultLength
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &shortURLService{
		repo:   repo,
		cache:  cache,
		clicks: clicks,
		alloc: &allocator{
			repo:        repo,
			generator:   generator,
			length:      cfg.CodeLength,
			maxAttempts: cfg.MaxAttempts,
			logger:      logger,
		},
		cacheTTL: cfg.CacheTTL,
		now:      cfg.Now,
		logger:   logger,
	}
}

// Shorten создаёт новую короткую ссылку
func (s *shortURLService) Shorten(ctx context.Context, input *models.CreateShortURLInput) (*models.ShortURL, error) {
	domain, err := NormalizeDomain(input.Domain)
	if err != nil {
		return nil, err
	}
	if err := validateURL("original_url", input.OriginalURL); err != nil {
		return nil, err
	}
	if err := validateTitle(input.Title); err != nil {
		return nil, err
	}

	u := &models.ShortURL{
		Domain:      domain,
		OriginalURL: input.OriginalURL,
		Title:       input.Title,
		IsActive:    true,
		ExpiresAt:   input.ExpiresAt,
	}

	if err := s.alloc.allocate(ctx, u, input.ShortCode); err != nil {
		return nil, err
	}

	s.logger.Info("Создана короткая ссылка",
		zap.String("domain", u.Domain),
		zap.String("short_code", u.ShortCode),
	)

	return u, nil
}

// ShortenBulk проверяет все URL до первой вставки, затем создаёт их по одному.
// Пакет не атомарен: при сбое хранилища уже созданные ссылки остаются
func (s *shortURLService) ShortenBulk(ctx context.Context, input *models.BulkCreateInput) ([]models.ShortURL, error) {
	if len(input.URLs) == 0 || len(input.URLs) > maxBulkURLs {
		return nil, invalid("urls", fmt.Sprintf("between 1 and %d urls are required", maxBulkURLs), ErrInvalidInput)
	}

	domain, err := NormalizeDomain(input.Domain)
	if err != nil {
		return nil, err
	}
	if err := validateTitle(input.Title); err != nil {
		return nil, err
	}
	for i, raw := range input.URLs {
		if err := validateURL(fmt.Sprintf("urls[%d]", i), raw); err != nil {
			return nil, err
		}
	}

	results := make([]models.ShortURL, 0, len(input.URLs))
	for _, raw := range input.URLs {
		u := &models.ShortURL{
			Domain:      domain,
			OriginalURL: raw,
			Title:       input.Title,
			IsActive:    true,
		}
		if err := s.alloc.allocateGenerated(ctx, u); err != nil {
			s.logger.Error("Пакетное создание прервано",
				zap.String("domain", domain),
				zap.Int("created", len(results)),
				zap.Error(err),
			)
			return nil, err
		}
		results = append(results, *u)
	}

	s.logger.Info("Создан пакет коротких ссылок",
		zap.String("domain", domain),
		zap.Int("count", len(results)),
	)

	return results, nil
}

// Get читает запись из БД в любом состоянии, минуя кэш
func (s *shortURLService) Get(ctx context.Context, domain, code string) (*models.ShortURL, error) {
	domain, err := NormalizeDomain(domain)
	if err != nil {
		return nil, err
	}

	u, err := withRetry(ctx, s.logger, "get_short_url", func(ctx context.Context) (*models.ShortURL, error) {
		return s.repo.GetByCode(ctx, domain, code)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

// Update меняет title, is_active и expires_at. Код, домен и URL неизменяемы
func (s *shortURLService) Update(ctx context.Context, domain, code string, input models.UpdateShortURLInput) (*models.ShortURL, error) {
	if input.Title != nil {
		if err := validateTitle(*input.Title); err != nil {
			return nil, err
		}
	}
	if input.IsEmpty() {
		return s.Get(ctx, domain, code)
	}

	domain, err := NormalizeDomain(domain)
	if err != nil {
		return nil, err
	}

	u, err := withRetry(ctx, s.logger, "update_short_url", func(ctx context.Context) (*models.ShortURL, error) {
		return s.repo.Update(ctx, domain, code, input)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.invalidate(ctx, domain, code)
	return u, nil
}

// Deactivate мягкое удаление, повторный вызов успешен
func (s *shortURLService) Deactivate(ctx context.Context, domain, code string) error {
	domain, err := NormalizeDomain(domain)
	if err != nil {
		return err
	}

	err = withRetryErr(ctx, s.logger, "deactivate_short_url", func(ctx context.Context) error {
		return s.repo.Deactivate(ctx, domain, code)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return err
	}

	s.invalidate(ctx, domain, code)
	s.logger.Info("Ссылка деактивирована",
		zap.String("domain", domain),
		zap.String("short_code", code),
	)
	return nil
}

// List по умолчанию возвращает только активные ссылки
func (s *shortURLService) List(ctx context.Context, filter models.ListShortURLsFilter) (*models.ShortURLPage, error) {
	domain, err := NormalizeDomain(filter.Domain)
	if err != nil {
		return nil, err
	}
	filter.Domain = domain

	if filter.Limit < 0 || filter.Limit > maxListLimit {
		return nil, invalid("limit", fmt.Sprintf("limit must be between 1 and %d", maxListLimit), ErrInvalidInput)
	}
	if filter.Limit == 0 {
		filter.Limit = defaultListLimit
	}
	if filter.Offset < 0 {
		return nil, invalid("offset", "offset must not be negative", ErrInvalidInput)
	}
	if filter.IsActive == nil {
		active := true
		filter.IsActive = &active
	}

	return withRetry(ctx, s.logger, "list_short_urls", func(ctx context.Context) (*models.ShortURLPage, error) {
		return s.repo.List(ctx, filter)
	})
}

// Resolve определяет исход перехода по короткому коду. Клик пишется только для RedirectFound
func (s *shortURLService) Resolve(ctx context.Context, domain, code string, meta models.RequestMetadata) (*models.RedirectOutcome, error) {
	outcome, err := s.resolve(ctx, domain, code, meta)
	if err != nil {
		return nil, err
	}
	metrics.Redirects.WithLabelValues(outcome.Status.String()).Inc()
	return outcome, nil
}

func (s *shortURLService) resolve(ctx context.Context, domain, code string, meta models.RequestMetadata) (*models.RedirectOutcome, error) {
	domain, err := NormalizeDomain(domain)
	if err != nil || shortcode.Validate(code) != nil {
		return &models.RedirectOutcome{Status: models.RedirectNotFound}, nil
	}

	u, err := s.lookup(ctx, domain, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &models.RedirectOutcome{Status: models.RedirectNotFound}, nil
		}
		return nil, err
	}

	now := s.now()
	switch {
	case !u.IsActive:
		return &models.RedirectOutcome{Status: models.RedirectInactive}, nil
	case u.IsExpired(now):
		return &models.RedirectOutcome{Status: models.RedirectExpired}, nil
	}

	event := &models.ClickEvent{
		ShortURLID: u.ID,
		ClickedAt:  now,
		IPAddress:  truncate(meta.IPAddress, maxIPLength),
		UserAgent:  truncate(meta.UserAgent, maxUserAgentLength),
		Referer:    truncate(meta.Referer, maxRefererLength),
		Country:    normalizeCountry(meta.Country),
	}
	if err := s.clicks.RecordClick(ctx, event); err != nil {
		// Переход важнее аналитики
		s.logger.Warn("Клик не записан",
			zap.String("domain", domain),
			zap.String("short_code", code),
			zap.Error(err),
		)
	}

	return &models.RedirectOutcome{Status: models.RedirectFound, URL: u}, nil
}

// lookup читает ссылку сначала из кэша, затем из БД
func (s *shortURLService) lookup(ctx context.Context, domain, code string) (*models.ShortURL, error) {
	u, err := s.cache.Get(ctx, domain, code)
	if err == nil {
		metrics.CacheHits.Inc()
		return u, nil
	}
	metrics.CacheMisses.Inc()
	if !errors.Is(err, repository.ErrCacheMiss) {
		s.logger.Warn("Ошибка чтения кэша", zap.Error(err))
	}

	u, err = withRetry(ctx, s.logger, "get_short_url", func(ctx context.Context) (*models.ShortURL, error) {
		return s.repo.GetByCode(ctx, domain, code)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := s.cache.Set(ctx, u, s.cacheTTL); err != nil {
		s.logger.Warn("Ошибка записи в кэш", zap.Error(err))
	}

	return u, nil
}

func (s *shortURLService) invalidate(ctx context.Context, domain, code string) {
	if err := s.cache.Delete(ctx, domain, code); err != nil {
		s.logger.Warn("Ошибка инвалидации кэша",
			zap.String("domain", domain),
			zap.String("short_code", code),
			zap.Error(err),
		)
	}
}
