package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/multidomain-shortener/internal/metrics"
	"github.com/SergeiKhy/multidomain-shortener/internal/repository"
	"go.uber.org/zap"
)

const retryDelay = 50 * time.Millisecond

// withRetry повторяет операцию один раз при временном сбое хранилища.
// Повторный сбой возвращается как ErrUnavailable
func withRetry[T any](ctx context.Context, logger *zap.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err == nil || !errors.Is(err, repository.ErrUnavailable) {
		return v, err
	}

	metrics.StorageRetries.WithLabelValues(op).Inc()
	logger.Warn("Временный сбой хранилища, повторяем",
		zap.String("operation", op),
		zap.Error(err),
	)

	select {
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrUnavailable, ctx.Err())
	case <-time.After(retryDelay):
	}

	v, err = fn(ctx)
	if err != nil && errors.Is(err, repository.ErrUnavailable) {
		var zero T
		return zero, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return v, err
}

// withRetryErr вариант withRetry для операций без результата
func withRetryErr(ctx context.Context, logger *zap.Logger, op string, fn func(context.Context) error) error {
	_, err := withRetry(ctx, logger, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}
