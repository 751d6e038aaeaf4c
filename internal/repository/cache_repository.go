package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SergeiKhy/multidomain-shortener/internal/models"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss ключа нет в кэше
var ErrCacheMiss = errors.New("cache miss")

type CacheRepository interface {
	Get(ctx context.Context, domain, code string) (*models.ShortURL, error)
	Set(ctx context.Context, u *models.ShortURL, ttl time.Duration) error
	Delete(ctx context.Context, domain, code string) error
}

type cacheRepository struct {
	redis *RedisDB
}

func NewCacheRepository(redis *RedisDB) CacheRepository {
	return &cacheRepository{redis: redis}
}

func (r *cacheRepository) Get(ctx context.Context, domain, code string) (*models.ShortURL, error) {
	data, err := r.redis.Client.Get(ctx, cacheKey(domain, code)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}

	var u models.ShortURL
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("failed to unmarshal short url: %w", err)
	}

	return &u, nil
}

func (r *cacheRepository) Set(ctx context.Context, u *models.ShortURL, ttl time.Duration) error {
	data, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("failed to marshal short url: %w", err)
	}

	return r.redis.Client.Set(ctx, cacheKey(u.Domain, u.ShortCode), data, ttl).Err()
}

func (r *cacheRepository) Delete(ctx context.Context, domain, code string) error {
	return r.redis.Client.Del(ctx, cacheKey(domain, code)).Err()
}

func cacheKey(domain, code string) string {
	return "shorturl:" + domain + ":" + code
}

// noopCache используется, когда Redis не настроен
type noopCache struct{}

func NewNoopCache() CacheRepository {
	return noopCache{}
}

func (noopCache) Get(context.Context, string, string) (*models.ShortURL, error) {
	return nil, ErrCacheMiss
}

func (noopCache) Set(context.Context, *models.ShortURL, time.Duration) error {
	return nil
}

func (noopCache) Delete(context.Context, string, string) error {
	return nil
}
