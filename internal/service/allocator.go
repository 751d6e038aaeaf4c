package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/SergeiKhy/multidomain-shortener/internal/metrics"
	"github.com/SergeiKhy/multidomain-shortener/internal/models"
	"github.com/SergeiKhy/multidomain-shortener/internal/repository"
	"github.com/SergeiKhy/multidomain-shortener/internal/shortcode"
	"go.uber.org/zap"
)

// allocator резервирует короткий код вставкой записи.
// Конфликт определяет только уникальный индекс хранилища
type allocator struct {
	repo        repository.ShortURLRepository
	generator   shortcode.Generator
	length      int
	maxAttempts int
	logger      *zap.Logger
}

// allocate сохраняет u с запрошенным кодом или со сгенерированным
func (a *allocator) allocate(ctx context.Context, u *models.ShortURL, requested *string) error {
	if requested != nil && *requested != "" {
		return a.allocateCustom(ctx, u, *requested)
	}
	return a.allocateGenerated(ctx, u)
}

// allocateCustom одна попытка, без повторов с другим кодом
func (a *allocator) allocateCustom(ctx context.Context, u *models.ShortURL, code string) error {
	if err := shortcode.Validate(code); err != nil {
		msg := "must be 4-12 characters of [A-Za-z0-9]"
		if errors.Is(err, shortcode.ErrReserved) {
			msg = "short code is reserved"
		}
		return invalid("short_code", msg, fmt.Errorf("%w: %w", ErrInvalidCode, err))
	}

	u.ShortCode = code
	err := a.create(ctx, u)
	if errors.Is(err, repository.ErrCodeExists) {
		return ErrCodeConflict
	}
	return err
}

func (a *allocator) allocateGenerated(ctx context.Context, u *models.ShortURL) error {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		code, err := a.generator.Generate(a.length)
		if err != nil {
			return fmt.Errorf("failed to generate code: %w", err)
		}

		// Служебный код считаем коллизией
		if shortcode.IsReserved(code) {
			metrics.CodeCollisions.Inc()
			continue
		}

		u.ShortCode = code
		err = a.create(ctx, u)
		if err == nil {
			metrics.CodeAllocationAttempts.Observe(float64(attempt))
			return nil
		}
		if !errors.Is(err, repository.ErrCodeExists) {
			return err
		}

		metrics.CodeCollisions.Inc()
		a.logger.Debug("Коллизия сгенерированного кода",
			zap.String("domain", u.Domain),
			zap.String("short_code", code),
			zap.Int("attempt", attempt),
		)
	}

	metrics.CodeAllocationExhausted.Inc()
	a.logger.Error("Исчерпаны попытки выделения кода, пространство кодов домена заполняется",
		zap.String("domain", u.Domain),
		zap.Int("attempts", a.maxAttempts),
		zap.Int("length", a.length),
	)
	u.ShortCode = ""
	return ErrAllocationExhausted
}

func (a *allocator) create(ctx context.Context, u *models.ShortURL) error {
	return withRetryErr(ctx, a.logger, "create_short_url", func(ctx context.Context) error {
		return a.repo.Create(ctx, u)
	})
}
