package handler_test

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/SergeiKhy/multidomain-shortener/internal/config"
	"github.com/SergeiKhy/multidomain-shortener/internal/handler"
	"github.com/SergeiKhy/multidomain-shortener/internal/middleware"
	"github.com/SergeiKhy/multidomain-shortener/internal/repository"
	"github.com/SergeiKhy/multidomain-shortener/internal/service"
	"github.com/SergeiKhy/multidomain-shortener/internal/shortcode"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
)

// integrationEnv окружение с настоящими PostgreSQL и Redis
type integrationEnv struct {
	router         *gin.Engine
	clickProc      service.ClickProcessor
	dbContainer    testcontainers.Container
	redisContainer testcontainers.Container
	db             *repository.PostgresDB
	redis          *repository.RedisDB
}

// setupIntegrationEnv поднимает контейнеры и собирает приложение как в main
func setupIntegrationEnv(t *testing.T, clickMode string) *integrationEnv {
	ctx := t.Context()

	dbContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("shortener"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)

	redisContainer, err := redis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)

	dbHost, err := dbContainer.Host(ctx)
	require.NoError(t, err)
	dbPort, err := dbContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	redisHost, err := redisContainer.Host(ctx)
	require.NoError(t, err)
	redisPort, err := redisContainer.MappedPort(ctx, "6379")
	require.NoError(t, err)

	db, err := repository.NewPostgresDB(config.DBConfig{
		Host:     dbHost,
		Port:     dbPort.Port(),
		User:     "user",
		Password: "password",
		Name:     "shortener",
		SSLMode:  "disable",
		MaxConns: 10,
		MinConns: 1,
	})
	require.NoError(t, err)
	require.NoError(t, db.EnsureSchema(ctx))

	redisClient, err := repository.NewRedisClient(config.RedisConfig{
		Host: redisHost,
		Port: redisPort.Port(),
	})
	require.NoError(t, err)

	urlRepo := repository.NewShortURLRepository(db)
	clickRepo := repository.NewClickRepository(db)
	domainRepo := repository.NewDomainRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient)

	clickProc := service.NewClickProcessor(clickRepo, service.ClickProcessorConfig{
		Mode:    clickMode,
		Workers: 3,
		Buffer:  100,
	}, nil)
	clickProc.Start()

	urlService := service.NewShortURLService(urlRepo, cacheRepo, clickProc, shortcode.NewRandomGenerator(),
		service.ShortURLServiceConfig{CodeLength: 6, MaxAttempts: 5, CacheTTL: time.Minute}, nil)
	analytics := service.NewAnalyticsService(urlRepo, clickRepo, service.AnalyticsConfig{}, nil)

	rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: 1000, // Высокий лимит для тестов
		BurstSize:         2000,
		CleanupInterval:   time.Minute,
	})

	router, err := handler.NewRouter(handler.RouterConfig{
		ShortURLs:   handler.NewShortURLHandler(urlService, analytics, handler.ShortURLHandlerConfig{}, nil),
		Domains:     handler.NewDomainHandler(service.NewDomainService(domainRepo, nil), nil),
		Health:      handler.NewHealthHandler(db, clickProc, nil),
		RateLimiter: rateLimiter,
		APIKey:      middleware.NewAPIKey(middleware.APIKeyConfig{ValidKeys: map[string]string{testAPIKey: "crm"}}, nil),
	})
	require.NoError(t, err)

	return &integrationEnv{
		router:         router,
		clickProc:      clickProc,
		dbContainer:    dbContainer,
		redisContainer: redisContainer,
		db:             db,
		redis:          redisClient,
	}
}

// teardown очищает ресурсы после теста
func (env *integrationEnv) teardown(t *testing.T) {
	env.clickProc.Stop()
	env.db.Close()
	env.redis.Close()

	ctx := t.Context()
	if env.dbContainer != nil {
		env.dbContainer.Terminate(ctx)
	}
	if env.redisContainer != nil {
		env.redisContainer.Terminate(ctx)
	}
}

func (env *integrationEnv) do(host, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Host = host
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

// TestIntegration_MultiDomainFlow создание, редирект и статистика на двух доменах
func TestIntegration_MultiDomainFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	env := setupIntegrationEnv(t, config.ClickModeSync)
	defer env.teardown(t)

	hosts := []string{"a.example.com", "b.example.com"}
	for _, host := range hosts {
		w := env.do(host, http.MethodPost, "/api/shorten/",
			fmt.Sprintf(`{"original_url":"https://%s/landing","short_code":"promo"}`, host))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	}

	// Одинаковый код ведёт на разные адреса в зависимости от домена
	for _, host := range hosts {
		w := env.do(host+":8080", http.MethodGet, "/promo/", "")
		require.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "https://"+host+"/landing", w.Header().Get("Location"))
	}

	w := env.do(hosts[0], http.MethodPost, "/api/shorten/", `{"original_url":"https://x.example.com","short_code":"promo"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env.do(hosts[0], http.MethodGet, "/promo/", "")
		}()
	}
	wg.Wait()

	w = env.do(hosts[0], http.MethodGet, "/api/stats/promo/", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats handler.StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, n+1, stats.TotalClicks)
	assert.EqualValues(t, n+1, stats.ShortURL.Clicks)

	w = env.do(hosts[1], http.MethodGet, "/api/stats/promo/", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.EqualValues(t, 1, stats.TotalClicks)
}

// TestIntegration_DeactivateInvalidatesCache удаление сразу видно через кэш
func TestIntegration_DeactivateInvalidatesCache(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	env := setupIntegrationEnv(t, config.ClickModeSync)
	defer env.teardown(t)

	const host = "go.example.com"
	w := env.do(host, http.MethodPost, "/api/shorten/", `{"original_url":"https://example.com/cached","short_code":"cached"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	// Первый переход кладёт запись в Redis
	require.Equal(t, http.StatusFound, env.do(host, http.MethodGet, "/cached/", "").Code)

	assert.Equal(t, http.StatusNoContent, env.do(host, http.MethodDelete, "/api/urls/cached/", "").Code)
	assert.Equal(t, http.StatusNoContent, env.do(host, http.MethodDelete, "/api/urls/cached/", "").Code)
	assert.Equal(t, http.StatusNotFound, env.do(host, http.MethodGet, "/cached/", "").Code)
}

// TestIntegration_AsyncClicks клики через worker pool доходят до базы
func TestIntegration_AsyncClicks(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	env := setupIntegrationEnv(t, config.ClickModeAsync)
	defer env.teardown(t)

	const host = "go.example.com"
	w := env.do(host, http.MethodPost, "/api/shorten/", `{"original_url":"https://example.com/async"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	var created handler.ShortURLResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))

	for i := 0; i < 5; i++ {
		require.Equal(t, http.StatusFound, env.do(host, http.MethodGet, "/"+created.ShortCode+"/", "").Code)
	}

	assert.Eventually(t, func() bool {
		w := env.do(host, http.MethodGet, "/api/stats/"+created.ShortCode+"/", "")
		var stats handler.StatsResponse
		if json.Unmarshal(w.Body.Bytes(), &stats) != nil {
			return false
		}
		return stats.TotalClicks == 5 && stats.ShortURL.Clicks == 5
	}, 5*time.Second, 50*time.Millisecond)
}

// TestIntegration_HealthReady проверка готовности с живой базой
func TestIntegration_HealthReady(t *testing.T) {
	if testing.Short() {
		t.Skip("Пропускаем интеграционный тест в коротком режиме")
	}

	env := setupIntegrationEnv(t, config.ClickModeAsync)
	defer env.teardown(t)

	w := env.do("localhost", http.MethodGet, "/health/ready/", "")
	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "up", resp["database"])
}
