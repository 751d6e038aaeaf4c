package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/SergeiKhy/multidomain-shortener/internal/config"
	"github.com/SergeiKhy/multidomain-shortener/internal/handler"
	"github.com/SergeiKhy/multidomain-shortener/internal/middleware"
	"github.com/SergeiKhy/multidomain-shortener/internal/repository"
	"github.com/SergeiKhy/multidomain-shortener/internal/service"
	"github.com/SergeiKhy/multidomain-shortener/internal/service/mocks"
	"github.com/SergeiKhy/multidomain-shortener/internal/shortcode"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testHost   = "go.example.com"
	testAPIKey = "secret-key"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type testEnv struct {
	router *gin.Engine
	urls   *mocks.MockShortURLRepository
	clicks *mocks.MockClickRepository
	clock  *testClock
}

// setupRouter собирает роутер на моковых репозиториях, клики пишутся синхронно
func setupRouter(t *testing.T, apiKeys map[string]string) *testEnv {
	t.Helper()

	urls := mocks.NewMockShortURLRepository()
	clicks := mocks.NewMockClickRepository(urls)
	domains := mocks.NewMockDomainRepository()
	clock := &testClock{now: time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)}

	processor := service.NewClickProcessor(clicks, service.ClickProcessorConfig{Mode: config.ClickModeSync}, nil)
	urlService := service.NewShortURLService(urls, mocks.NewMockCacheRepository(), processor, shortcode.NewRandomGenerator(),
		service.ShortURLServiceConfig{CodeLength: 6, MaxAttempts: 5, Now: clock.Now}, nil)
	analytics := service.NewAnalyticsService(urls, clicks, service.AnalyticsConfig{Now: clock.Now}, nil)

	router, err := handler.NewRouter(handler.RouterConfig{
		ShortURLs: handler.NewShortURLHandler(urlService, analytics, handler.ShortURLHandlerConfig{
			Scheme: "https",
			Now:    clock.Now,
		}, nil),
		Domains: handler.NewDomainHandler(service.NewDomainService(domains, nil), nil),
		Health:  handler.NewHealthHandler(nil, processor, nil),
		APIKey:  middleware.NewAPIKey(middleware.APIKeyConfig{ValidKeys: apiKeys}, nil),
	})
	require.NoError(t, err)

	return &testEnv{router: router, urls: urls, clicks: clicks, clock: clock}
}

func (env *testEnv) do(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Host = testHost
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	return w
}

func (env *testEnv) shorten(t *testing.T, body map[string]any) handler.ShortURLResponse {
	t.Helper()
	w := env.do(http.MethodPost, "/api/shorten/", body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp handler.ShortURLResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) handler.ErrorResponse {
	t.Helper()
	var resp handler.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestShorten_RoundTrip(t *testing.T) {
	env := setupRouter(t, nil)

	created := env.shorten(t, map[string]any{
		"original_url": "https://example.com/some/long/path?x=1",
		"title":        "Landing",
	})
	assert.Len(t, created.ShortCode, 6)
	assert.Equal(t, testHost, created.Domain)
	assert.Equal(t, "https://"+testHost+"/"+created.ShortCode, created.FullShortURL)
	assert.True(t, created.IsActive)
	assert.False(t, created.IsExpired)
	assert.Zero(t, created.Clicks)

	w := env.do(http.MethodGet, "/"+created.ShortCode+"/", nil)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "https://example.com/some/long/path?x=1", w.Header().Get("Location"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
}

func TestShorten_Validation(t *testing.T) {
	env := setupRouter(t, nil)

	tests := []struct {
		name  string
		body  map[string]any
		field string
	}{
		{name: "нет original_url", body: map[string]any{"title": "x"}, field: "original_url"},
		{name: "невалидный URL", body: map[string]any{"original_url": "not-a-url"}, field: "original_url"},
		{name: "ftp схема", body: map[string]any{"original_url": "ftp://example.com/file"}, field: "original_url"},
		{name: "короткий код", body: map[string]any{"original_url": "https://example.com", "short_code": "ab"}, field: "short_code"},
		{name: "код с символами", body: map[string]any{"original_url": "https://example.com", "short_code": "ab-cd"}, field: "short_code"},
		{name: "NUL в заголовке", body: map[string]any{"original_url": "https://example.com", "title": "a\u0000b"}, field: "title"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(http.MethodPost, "/api/shorten/", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			resp := decodeError(t, w)
			assert.Equal(t, "validation_error", resp.Error)
			assert.Contains(t, resp.Fields, tt.field)
		})
	}
}

func TestShorten_ReservedCode(t *testing.T) {
	env := setupRouter(t, nil)

	for _, code := range []string{"health", "metrics", "caddy"} {
		w := env.do(http.MethodPost, "/api/shorten/", map[string]any{
			"original_url": "https://example.com/" + code,
			"short_code":   code,
		})
		require.Equal(t, http.StatusBadRequest, w.Code, code)
		assert.Contains(t, decodeError(t, w).Fields, "short_code")
	}

	// Служебные маршруты работают как прежде
	w := env.do(http.MethodGet, "/health/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"url-shortener"}`, w.Body.String())
}

func TestStoreUnavailable(t *testing.T) {
	env := setupRouter(t, nil)

	// Повтор тоже неудачен
	env.urls.FailNext("List", repository.ErrUnavailable, repository.ErrUnavailable)
	w := env.do(http.MethodGet, "/api/urls/", nil)
	require.Equal(t, http.StatusServiceUnavailable, w.Code, w.Body.String())

	resp := decodeError(t, w)
	assert.Equal(t, "service_unavailable", resp.Error)
	assert.NotContains(t, w.Body.String(), "storage temporarily unavailable")

	env.urls.FailNext("GetByCode", repository.ErrUnavailable, repository.ErrUnavailable)
	w = env.do(http.MethodGet, "/abcdef/", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	// Одиночный сбой скрыт повтором
	env.urls.FailNext("List", repository.ErrUnavailable)
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/urls/", nil).Code)
}

func TestShorten_CustomCodeConflict(t *testing.T) {
	env := setupRouter(t, nil)
	body := map[string]any{"original_url": "https://example.com/a", "short_code": "promo1"}

	codes := make(chan int, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- env.do(http.MethodPost, "/api/shorten/", body).Code
		}()
	}
	wg.Wait()
	close(codes)

	var statuses []int
	for c := range codes {
		statuses = append(statuses, c)
	}
	assert.ElementsMatch(t, []int{http.StatusCreated, http.StatusConflict}, statuses)

	// Тот же код на другом домене свободен
	w := env.do(http.MethodPost, "/api/shorten/", map[string]any{
		"original_url": "https://example.com/b",
		"short_code":   "promo1",
		"domain":       "other.example.com",
	})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestShortenBulk(t *testing.T) {
	env := setupRouter(t, nil)

	w := env.do(http.MethodPost, "/api/shorten/bulk/", map[string]any{
		"urls":  []string{"https://example.com/1", "https://example.com/2", "https://example.com/3"},
		"title": "batch",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp handler.ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 3, resp.Count)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "batch", resp.Results[0].Title)

	t.Run("пустой список", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/shorten/bulk/", map[string]any{"urls": []string{}})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w).Fields, "urls")
	})

	t.Run("невалидный элемент", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/shorten/bulk/", map[string]any{
			"urls": []string{"https://example.com/ok", "nope"},
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, decodeError(t, w).Fields, "urls[1]")
	})
}

func TestRedirect_States(t *testing.T) {
	env := setupRouter(t, nil)

	missing := env.do(http.MethodGet, "/nothere/", nil)
	require.Equal(t, http.StatusNotFound, missing.Code)

	created := env.shorten(t, map[string]any{"original_url": "https://example.com/x"})
	require.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, "/api/urls/"+created.ShortCode+"/", nil).Code)

	inactive := env.do(http.MethodGet, "/"+created.ShortCode+"/", nil)
	assert.Equal(t, http.StatusNotFound, inactive.Code)
	assert.JSONEq(t, missing.Body.String(), inactive.Body.String())

	t.Run("ссылка другого домена не видна", func(t *testing.T) {
		other := env.shorten(t, map[string]any{"original_url": "https://example.com/y", "domain": "other.example.com"})
		w := env.do(http.MethodGet, "/"+other.ShortCode+"/", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("без слэша перенаправляет на канонический путь", func(t *testing.T) {
		w := env.do(http.MethodGet, "/"+created.ShortCode, nil)
		assert.Equal(t, http.StatusMovedPermanently, w.Code)
		assert.Equal(t, "/"+created.ShortCode+"/", w.Header().Get("Location"))
	})
}

func TestRedirect_ExpiryBoundary(t *testing.T) {
	env := setupRouter(t, nil)

	expiresAt := env.clock.Now().Add(time.Second)
	created := env.shorten(t, map[string]any{
		"original_url": "https://example.com/sale",
		"expires_at":   expiresAt.Format(time.RFC3339),
	})

	w := env.do(http.MethodGet, "/"+created.ShortCode+"/", nil)
	assert.Equal(t, http.StatusFound, w.Code)

	env.clock.Advance(time.Second)
	w = env.do(http.MethodGet, "/"+created.ShortCode+"/", nil)
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "expired")

	past := env.shorten(t, map[string]any{
		"original_url": "https://example.com/past",
		"expires_at":   env.clock.Now().Add(-time.Second).Format(time.RFC3339),
	})
	assert.Equal(t, http.StatusGone, env.do(http.MethodGet, "/"+past.ShortCode+"/", nil).Code)

	// Истёкшая ссылка не считает переходы
	stats := env.do(http.MethodGet, "/api/stats/"+created.ShortCode+"/", nil)
	require.Equal(t, http.StatusOK, stats.Code)
	var resp handler.StatsResponse
	require.NoError(t, json.Unmarshal(stats.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp.TotalClicks)
	assert.True(t, resp.ShortURL.IsExpired)
}

func TestRedirect_ClicksMatchStats(t *testing.T) {
	env := setupRouter(t, nil)
	created := env.shorten(t, map[string]any{"original_url": "https://example.com/popular"})

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			env.do(http.MethodGet, "/"+created.ShortCode+"/", nil,
				"User-Agent", "test-agent",
				"Referer", "https://ref.example.org/",
				"CF-IPCountry", "de",
			)
		}()
	}
	wg.Wait()

	w := env.do(http.MethodGet, "/api/stats/"+created.ShortCode+"/", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp handler.StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, n, resp.TotalClicks)
	assert.EqualValues(t, n, resp.ShortURL.Clicks)
	assert.Len(t, resp.RecentClicks, 10)
	assert.EqualValues(t, n, resp.ClicksByCountry["DE"])
	assert.EqualValues(t, n, resp.ClicksByDay["2025-06-15"])
	assert.Equal(t, "test-agent", resp.RecentClicks[0].UserAgent)
}

func TestList(t *testing.T) {
	env := setupRouter(t, nil)

	for _, title := range []string{"alpha", "beta", "gamma"} {
		env.shorten(t, map[string]any{"original_url": "https://example.com/" + title, "title": title})
	}
	deleted := env.shorten(t, map[string]any{"original_url": "https://example.com/old", "title": "old"})
	env.do(http.MethodDelete, "/api/urls/"+deleted.ShortCode+"/", nil)
	env.shorten(t, map[string]any{"original_url": "https://example.com/foreign", "domain": "other.example.com"})

	decode := func(w *httptest.ResponseRecorder) handler.ListResponse {
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		var resp handler.ListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	all := decode(env.do(http.MethodGet, "/api/urls/", nil))
	assert.EqualValues(t, 3, all.Count)
	require.Len(t, all.Results, 3)
	assert.Equal(t, "gamma", all.Results[0].Title)

	page := decode(env.do(http.MethodGet, "/api/urls/?limit=1&offset=1", nil))
	assert.EqualValues(t, 3, page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "beta", page.Results[0].Title)

	inactive := decode(env.do(http.MethodGet, "/api/urls/?is_active=false", nil))
	require.Len(t, inactive.Results, 1)
	assert.Equal(t, deleted.ShortCode, inactive.Results[0].ShortCode)

	search := decode(env.do(http.MethodGet, "/api/urls/?search=ALP", nil))
	require.Len(t, search.Results, 1)
	assert.Equal(t, "alpha", search.Results[0].Title)

	foreign := decode(env.do(http.MethodGet, "/api/urls/?domain=other.example.com", nil))
	assert.EqualValues(t, 1, foreign.Count)

	t.Run("невалидные параметры", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/urls/?limit=abc", nil).Code)
		assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/urls/?is_active=maybe", nil).Code)
		assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/urls/?offset=-1", nil).Code)
	})
}

func TestUpdate(t *testing.T) {
	env := setupRouter(t, nil)
	created := env.shorten(t, map[string]any{
		"original_url": "https://example.com/u",
		"expires_at":   env.clock.Now().Add(-time.Hour).Format(time.RFC3339),
	})
	path := "/api/urls/" + created.ShortCode + "/"

	w := env.do(http.MethodPatch, path, map[string]any{"title": "renamed", "expires_at": nil})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp handler.ShortURLResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "renamed", resp.Title)
	assert.Nil(t, resp.ExpiresAt)
	assert.False(t, resp.IsExpired)
	assert.Equal(t, http.StatusFound, env.do(http.MethodGet, "/"+created.ShortCode+"/", nil).Code)

	w = env.do(http.MethodPatch, path, map[string]any{"is_active": false})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/"+created.ShortCode+"/", nil).Code)

	t.Run("неизменяемые поля", func(t *testing.T) {
		for _, field := range []string{"short_code", "original_url", "domain"} {
			w := env.do(http.MethodPatch, path, map[string]any{field: "x"})
			require.Equal(t, http.StatusBadRequest, w.Code, field)
			assert.Contains(t, decodeError(t, w).Fields, field)
		}
	})

	t.Run("несуществующая ссылка", func(t *testing.T) {
		w := env.do(http.MethodPatch, "/api/urls/zzzzzz/", map[string]any{"title": "x"})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestDelete_Idempotent(t *testing.T) {
	env := setupRouter(t, nil)
	created := env.shorten(t, map[string]any{"original_url": "https://example.com/d"})
	path := "/api/urls/" + created.ShortCode + "/"

	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNoContent, env.do(http.MethodDelete, path, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodDelete, "/api/urls/zzzzzz/", nil).Code)

	// Статистика остаётся доступной
	assert.Equal(t, http.StatusOK, env.do(http.MethodGet, "/api/stats/"+created.ShortCode+"/", nil).Code)
}

func TestQRCode(t *testing.T) {
	env := setupRouter(t, nil)
	created := env.shorten(t, map[string]any{"original_url": "https://example.com/qr"})

	w := env.do(http.MethodGet, "/api/qr/"+created.ShortCode+"/?size=128", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/qr/"+created.ShortCode+"/?size=10", nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/qr/zzzzzz/", nil).Code)
}

func TestInternalAPI_Auth(t *testing.T) {
	body := map[string]any{"domain": "forms.client.com", "account_id": 7}

	t.Run("ключи не настроены", func(t *testing.T) {
		env := setupRouter(t, nil)
		w := env.do(http.MethodPost, "/api/internal/domains/configure/", body, middleware.InternalAPIKeyHeader, testAPIKey)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	env := setupRouter(t, map[string]string{testAPIKey: "crm"})

	t.Run("без ключа", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/internal/domains/configure/", body)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("неверный ключ", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/internal/domains/configure/", body, middleware.InternalAPIKeyHeader, "wrong")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("верный ключ", func(t *testing.T) {
		w := env.do(http.MethodPost, "/api/internal/domains/configure/", body, middleware.InternalAPIKeyHeader, testAPIKey)
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	})
}

func TestInternalAPI_DomainLifecycle(t *testing.T) {
	env := setupRouter(t, map[string]string{testAPIKey: "crm"})
	auth := []string{middleware.InternalAPIKeyHeader, testAPIKey}

	decode := func(w *httptest.ResponseRecorder) handler.DomainResponse {
		var resp handler.DomainResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		return resp
	}

	w := env.do(http.MethodPost, "/api/internal/domains/configure/",
		map[string]any{"domain": "Forms.Client.com", "account_id": 7}, auth...)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(w)
	assert.Equal(t, "success", created.Status)
	require.NotNil(t, created.Data)
	assert.Equal(t, "forms.client.com", created.Data.Domain)
	assert.Equal(t, "forms", string(created.Data.DomainType))
	assert.Equal(t, "pending", string(created.Data.SSLStatus))
	assert.True(t, created.Data.UseCaddy)

	w = env.do(http.MethodPost, "/api/internal/domains/configure/",
		map[string]any{"domain": "forms.client.com", "account_id": 7}, auth...)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(http.MethodPost, "/api/internal/domains/forms.client.com/ssl-status/",
		map[string]any{"ssl_status": "active"}, auth...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode(w)
	assert.True(t, updated.Data.IsVerified)

	w = env.do(http.MethodGet, "/api/internal/domains/forms.client.com/status/", nil, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "active", string(decode(w).Data.SSLStatus))

	w = env.do(http.MethodGet, "/caddy/validate-domain?domain=forms.client.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var allow handler.ValidateDomainResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &allow))
	assert.True(t, allow.Allow)
	assert.EqualValues(t, 7, allow.AccountID)

	w = env.do(http.MethodDelete, "/api/internal/domains/forms.client.com/", nil, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusForbidden, env.do(http.MethodGet, "/caddy/validate-domain?domain=forms.client.com", nil).Code)

	w = env.do(http.MethodGet, "/api/internal/accounts/7/domains/?active_only=true", nil, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	var list handler.AccountDomainsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Zero(t, list.Count)

	// Повторная настройка включает домен и сбрасывает SSL
	w = env.do(http.MethodPost, "/api/internal/domains/configure/",
		map[string]any{"domain": "forms.client.com", "account_id": 8, "domain_type": "payment"}, auth...)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	reactivated := decode(w)
	assert.EqualValues(t, 8, reactivated.Data.AccountID)
	assert.Equal(t, "pending", string(reactivated.Data.SSLStatus))

	w = env.do(http.MethodDelete, "/api/internal/domains/forms.client.com/?hard_delete=true", nil, auth...)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/internal/domains/forms.client.com/status/", nil, auth...).Code)

	assert.Equal(t, http.StatusBadRequest, env.do(http.MethodGet, "/api/internal/accounts/abc/domains/", nil, auth...).Code)
}

func TestCaddyValidate_MissingDomain(t *testing.T) {
	env := setupRouter(t, nil)
	w := env.do(http.MethodGet, "/caddy/validate-domain", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/caddy/validate-domain?domain=unknown.example.com", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHealthAndInfo(t *testing.T) {
	env := setupRouter(t, nil)

	w := env.do(http.MethodGet, "/health/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","service":"url-shortener"}`, w.Body.String())

	w = env.do(http.MethodGet, "/health/ready/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"mode":"sync"`)

	w = env.do(http.MethodGet, "/api/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "/api/shorten/")

	w = env.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "shortener_requests_total")
}
