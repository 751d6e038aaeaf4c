package mocks

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/SergeiKhy/multidomain-shortener/internal/models"
	"github.com/SergeiKhy/multidomain-shortener/internal/repository"
)

// failures очередь ошибок, которые вернёт следующий вызов операции
type failures struct {
	queue map[string][]error
}

func (f *failures) push(op string, errs ...error) {
	if f.queue == nil {
		f.queue = make(map[string][]error)
	}
	f.queue[op] = append(f.queue[op], errs...)
}

func (f *failures) pop(op string) error {
	errs := f.queue[op]
	if len(errs) == 0 {
		return nil
	}
	f.queue[op] = errs[1:]
	return errs[0]
}

// MockShortURLRepository implements repository.ShortURLRepository for testing
type MockShortURLRepository struct {
	mu       sync.Mutex
	urls     map[string]*models.ShortURL
	nextID   int64
	base     time.Time
	fail     failures
	creates  int
	codeLogs []string
}

func NewMockShortURLRepository() *MockShortURLRepository {
	return &MockShortURLRepository{
		urls:   make(map[string]*models.ShortURL),
		nextID: 1,
		base:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func key(domain, code string) string {
	return domain + "/" + code
}

// FailNext ставит в очередь ошибки для операции: Create, GetByCode, Update, Deactivate, List
func (m *MockShortURLRepository) FailNext(op string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail.push(op, errs...)
}

func (m *MockShortURLRepository) Create(ctx context.Context, u *models.ShortURL) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.creates++
	m.codeLogs = append(m.codeLogs, u.ShortCode)
	if err := m.fail.pop("Create"); err != nil {
		return err
	}

	k := key(u.Domain, u.ShortCode)
	if _, exists := m.urls[k]; exists {
		return repository.ErrCodeExists
	}

	u.ID = m.nextID
	// Время создания растёт вместе с ID
	u.CreatedAt = m.base.Add(time.Duration(m.nextID) * time.Second)
	u.UpdatedAt = u.CreatedAt
	m.nextID++

	stored := *u
	m.urls[k] = &stored
	return nil
}

func (m *MockShortURLRepository) GetByCode(ctx context.Context, domain, code string) (*models.ShortURL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail.pop("GetByCode"); err != nil {
		return nil, err
	}

	u, exists := m.urls[key(domain, code)]
	if !exists {
		return nil, repository.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (m *MockShortURLRepository) Update(ctx context.Context, domain, code string, in models.UpdateShortURLInput) (*models.ShortURL, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail.pop("Update"); err != nil {
		return nil, err
	}

	u, exists := m.urls[key(domain, code)]
	if !exists {
		return nil, repository.ErrNotFound
	}
	if in.Title != nil {
		u.Title = *in.Title
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}
	if in.ExpiresAt.Set {
		u.ExpiresAt = in.ExpiresAt.Time
	}
	u.UpdatedAt = u.UpdatedAt.Add(time.Second)

	out := *u
	return &out, nil
}

func (m *MockShortURLRepository) Deactivate(ctx context.Context, domain, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail.pop("Deactivate"); err != nil {
		return err
	}

	u, exists := m.urls[key(domain, code)]
	if !exists {
		return repository.ErrNotFound
	}
	u.IsActive = false
	return nil
}

func (m *MockShortURLRepository) List(ctx context.Context, filter models.ListShortURLsFilter) (*models.ShortURLPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.fail.pop("List"); err != nil {
		return nil, err
	}

	search := strings.ToLower(filter.Search)
	var matched []models.ShortURL
	for _, u := range m.urls {
		if u.Domain != filter.Domain {
			continue
		}
		if filter.IsActive != nil && u.IsActive != *filter.IsActive {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Title), search) &&
			!strings.Contains(strings.ToLower(u.OriginalURL), search) {
			continue
		}
		matched = append(matched, *u)
	}

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	page := &models.ShortURLPage{Count: int64(len(matched)), Results: []models.ShortURL{}}
	if filter.Offset < len(matched) {
		end := filter.Offset + filter.Limit
		if end > len(matched) {
			end = len(matched)
		}
		page.Results = append(page.Results, matched[filter.Offset:end]...)
	}
	return page, nil
}

// CreateCalls число вызовов Create, включая неудачные
func (m *MockShortURLRepository) CreateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.creates
}

// Codes коды из всех вызовов Create по порядку
func (m *MockShortURLRepository) Codes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.codeLogs...)
}

// Put кладёт запись напрямую, минуя проверки
func (m *MockShortURLRepository) Put(u models.ShortURL) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.nextID
		m.nextID++
	}
	m.urls[key(u.Domain, u.ShortCode)] = &u
}

// MockClickRepository implements repository.ClickRepository for testing.
// Работает под блокировкой репозитория ссылок, как одна транзакция
type MockClickRepository struct {
	urls   *MockShortURLRepository
	events map[int64][]models.ClickEvent
	nextID int64
}

func NewMockClickRepository(urls *MockShortURLRepository) *MockClickRepository {
	return &MockClickRepository{
		urls:   urls,
		events: make(map[int64][]models.ClickEvent),
		nextID: 1,
	}
}

// FailNext ставит в очередь ошибки для RecordClick или GetStats
func (m *MockClickRepository) FailNext(op string, errs ...error) {
	m.urls.FailNext(op, errs...)
}

func (m *MockClickRepository) RecordClick(ctx context.Context, click *models.ClickEvent) (bool, error) {
	m.urls.mu.Lock()
	defer m.urls.mu.Unlock()

	if err := m.urls.fail.pop("RecordClick"); err != nil {
		return false, err
	}

	u := m.urls.byID(click.ShortURLID)
	if u == nil || !u.IsResolvable(click.ClickedAt) {
		return false, nil
	}

	u.Clicks++
	click.ID = m.nextID
	m.nextID++
	m.events[click.ShortURLID] = append(m.events[click.ShortURLID], *click)
	return true, nil
}

func (m *MockClickRepository) GetStats(ctx context.Context, shortURLID int64, q models.StatsQuery) (*models.ClickStats, error) {
	m.urls.mu.Lock()
	defer m.urls.mu.Unlock()

	if err := m.urls.fail.pop("GetStats"); err != nil {
		return nil, err
	}

	u := m.urls.byID(shortURLID)
	if u == nil {
		return nil, repository.ErrNotFound
	}

	events := append([]models.ClickEvent(nil), m.events[shortURLID]...)
	stats := &models.ClickStats{
		TotalClicks:     int64(len(events)),
		Clicks:          u.Clicks,
		RecentClicks:    []models.ClickEvent{},
		ClicksByDay:     map[string]int64{},
		ClicksByCountry: map[string]int64{},
	}

	for _, e := range events {
		if !e.ClickedAt.Before(q.Since) {
			stats.ClicksByDay[e.ClickedAt.UTC().Format("2006-01-02")]++
		}
		if e.Country != "" {
			stats.ClicksByCountry[e.Country]++
		}
	}

	sort.Slice(events, func(i, j int) bool {
		if !events[i].ClickedAt.Equal(events[j].ClickedAt) {
			return events[i].ClickedAt.After(events[j].ClickedAt)
		}
		return events[i].ID > events[j].ID
	})
	if len(events) > q.RecentLimit {
		events = events[:q.RecentLimit]
	}
	stats.RecentClicks = append(stats.RecentClicks, events...)

	return stats, nil
}

// Events количество записанных событий по ссылке
func (m *MockClickRepository) Events(shortURLID int64) int {
	m.urls.mu.Lock()
	defer m.urls.mu.Unlock()
	return len(m.events[shortURLID])
}

func (m *MockShortURLRepository) byID(id int64) *models.ShortURL {
	for _, u := range m.urls {
		if u.ID == id {
			return u
		}
	}
	return nil
}

// MockCacheRepository implements repository.CacheRepository for testing
type MockCacheRepository struct {
	mu     sync.RWMutex
	cache  map[string]models.ShortURL
	GetErr error
	SetErr error
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{
		cache: make(map[string]models.ShortURL),
	}
}

func (m *MockCacheRepository) Get(ctx context.Context, domain, code string) (*models.ShortURL, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.GetErr != nil {
		return nil, m.GetErr
	}
	u, exists := m.cache[key(domain, code)]
	if !exists {
		return nil, repository.ErrCacheMiss
	}
	return &u, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, u *models.ShortURL, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.SetErr != nil {
		return m.SetErr
	}
	m.cache[key(u.Domain, u.ShortCode)] = *u
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, domain, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, key(domain, code))
	return nil
}

func (m *MockCacheRepository) Has(domain, code string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, exists := m.cache[key(domain, code)]
	return exists
}

// MockDomainRepository implements repository.DomainRepository for testing
type MockDomainRepository struct {
	mu      sync.Mutex
	domains map[string]*models.DomainConfiguration
	nextID  int64
}

func NewMockDomainRepository() *MockDomainRepository {
	return &MockDomainRepository{
		domains: make(map[string]*models.DomainConfiguration),
		nextID:  1,
	}
}

func (m *MockDomainRepository) Create(ctx context.Context, d *models.DomainConfiguration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.domains[d.Domain]; exists {
		return repository.ErrDomainExists
	}
	d.ID = m.nextID
	m.nextID++
	d.ConfiguredAt = time.Date(2025, 1, 1, 0, 0, int(d.ID), 0, time.UTC)
	d.UpdatedAt = d.ConfiguredAt

	stored := *d
	m.domains[d.Domain] = &stored
	return nil
}

func (m *MockDomainRepository) GetByDomain(ctx context.Context, domain string) (*models.DomainConfiguration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, exists := m.domains[domain]
	if !exists {
		return nil, repository.ErrNotFound
	}
	out := *d
	return &out, nil
}

func (m *MockDomainRepository) Reactivate(ctx context.Context, in models.ConfigureDomainInput) (*models.DomainConfiguration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, exists := m.domains[in.Domain]
	if !exists || d.IsActive {
		return nil, repository.ErrDomainExists
	}
	d.IsActive = true
	d.AccountID = in.AccountID
	d.DomainType = in.DomainType
	d.UseCaddy = in.UseCaddy
	d.Notes = in.Notes
	d.SSLStatus = models.SSLStatusPending

	out := *d
	return &out, nil
}

func (m *MockDomainRepository) SetActive(ctx context.Context, domain string, active bool) (*models.DomainConfiguration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, exists := m.domains[domain]
	if !exists {
		return nil, repository.ErrNotFound
	}
	d.IsActive = active

	out := *d
	return &out, nil
}

func (m *MockDomainRepository) Delete(ctx context.Context, domain string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.domains[domain]; !exists {
		return repository.ErrNotFound
	}
	delete(m.domains, domain)
	return nil
}

func (m *MockDomainRepository) UpdateSSL(ctx context.Context, domain string, upd models.SSLStatusUpdate) (*models.DomainConfiguration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	d, exists := m.domains[domain]
	if !exists {
		return nil, repository.ErrNotFound
	}
	if upd.Status != "" {
		d.SSLStatus = upd.Status
	}
	if upd.SSLIssuedAt != nil {
		d.SSLIssuedAt = upd.SSLIssuedAt
	}
	if upd.SSLExpiresAt != nil {
		d.SSLExpiresAt = upd.SSLExpiresAt
	}
	if upd.Status == models.SSLStatusActive {
		d.IsVerified = true
	}

	out := *d
	return &out, nil
}

func (m *MockDomainRepository) ListByAccount(ctx context.Context, accountID int64, activeOnly bool) ([]models.DomainConfiguration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.DomainConfiguration{}
	for _, d := range m.domains {
		if d.AccountID != accountID || (activeOnly && !d.IsActive) {
			continue
		}
		out = append(out, *d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}
