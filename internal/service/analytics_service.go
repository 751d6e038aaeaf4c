package service

import (
	"context"
	"errors"
	"time"

	"github.com/SergeiKhy/multidomain-shortener/internal/models"
	"github.com/SergeiKhy/multidomain-shortener/internal/repository"
	"go.uber.org/zap"
)

type AnalyticsService interface {
	GetStats(ctx context.Context, domain, code string) (*models.ShortURLStats, error)
}

type AnalyticsConfig struct {
	RecentClicks int
	WindowDays   int
	Now          func() time.Time
}

type analyticsService struct {
	urls   repository.ShortURLRepository
	clicks repository.ClickRepository
	cfg    AnalyticsConfig
	logger *zap.Logger
}

func NewAnalyticsService(
	urls repository.ShortURLRepository,
	clicks repository.ClickRepository,
	cfg AnalyticsConfig,
	logger *zap.Logger,
) AnalyticsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RecentClicks <= 0 {
		cfg.RecentClicks = 10
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 30
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &analyticsService{urls: urls, clicks: clicks, cfg: cfg, logger: logger}
}

// GetStats доступна для любой существующей ссылки, включая неактивные и истёкшие
func (s *analyticsService) GetStats(ctx context.Context, domain, code string) (*models.ShortURLStats, error) {
	domain, err := NormalizeDomain(domain)
	if err != nil {
		return nil, err
	}

	u, err := withRetry(ctx, s.logger, "get_short_url", func(ctx context.Context) (*models.ShortURL, error) {
		return s.urls.GetByCode(ctx, domain, code)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	query := models.StatsQuery{
		Since:       s.cfg.Now().UTC().AddDate(0, 0, -s.cfg.WindowDays),
		RecentLimit: s.cfg.RecentClicks,
	}

	stats, err := withRetry(ctx, s.logger, "get_click_stats", func(ctx context.Context) (*models.ClickStats, error) {
		return s.clicks.GetStats(ctx, u.ID, query)
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	// Счётчик из того же снимка, что и агрегаты
	u.Clicks = stats.Clicks

	return &models.ShortURLStats{ShortURL: u, ClickStats: *stats}, nil
}
