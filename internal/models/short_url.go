package models

import (
	"time"
)

type ShortURL struct {
	ID          int64      `json:"id"`
	ShortCode   string     `json:"short_code"`
	Domain      string     `json:"domain"`
	OriginalURL string     `json:"original_url"`
	Title       string     `json:"title"`
	IsActive    bool       `json:"is_active"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Clicks      int64      `json:"clicks"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsExpired сообщает, истёк ли срок действия ссылки на момент now
func (u *ShortURL) IsExpired(now time.Time) bool {
	return u.ExpiresAt != nil && !u.ExpiresAt.After(now)
}

// IsResolvable: ссылка активна и не истекла
func (u *ShortURL) IsResolvable(now time.Time) bool {
	return u.IsActive && !u.IsExpired(now)
}

type CreateShortURLInput struct {
	OriginalURL string
	Title       string
	ShortCode   *string
	Domain      string
	ExpiresAt   *time.Time
}

// UpdateShortURLInput частичное обновление: nil означает "не менять"
type UpdateShortURLInput struct {
	Title     *string
	IsActive  *bool
	ExpiresAt NullableTime
}

func (in *UpdateShortURLInput) IsEmpty() bool {
	return in.Title == nil && in.IsActive == nil && !in.ExpiresAt.Set
}

type ListShortURLsFilter struct {
	Domain   string
	IsActive *bool
	Search   string
	Limit    int
	Offset   int
}

type ShortURLPage struct {
	Count   int64      `json:"count"`
	Results []ShortURL `json:"results"`
}

type RedirectStatus int

const (
	RedirectFound RedirectStatus = iota
	RedirectNotFound
	RedirectExpired
	RedirectInactive
)

func (s RedirectStatus) String() string {
	switch s {
	case RedirectFound:
		return "found"
	case RedirectNotFound:
		return "not_found"
	case RedirectExpired:
		return "expired"
	case RedirectInactive:
		return "inactive"
	default:
		return "unknown"
	}
}

// RedirectOutcome результат разрешения короткого кода. URL заполнен только для RedirectFound
type RedirectOutcome struct {
	Status RedirectStatus
	URL    *ShortURL
}

// RequestMetadata данные запроса, которые попадают в аналитику
type RequestMetadata struct {
	IPAddress string
	UserAgent string
	Referer   string
	Country   string
}

// BulkCreateInput пакетное создание ссылок с общими domain и title
type BulkCreateInput struct {
	URLs   []string
	Domain string
	Title  string
}
