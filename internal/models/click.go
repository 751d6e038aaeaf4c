package models

import (
	"time"
)

type ClickEvent struct {
	ID         int64     `json:"id"`
	ShortURLID int64     `json:"-"`
	ClickedAt  time.Time `json:"clicked_at"`
	IPAddress  string    `json:"ip_address,omitempty"`
	UserAgent  string    `json:"user_agent,omitempty"`
	Referer    string    `json:"referer,omitempty"`
	Country    string    `json:"country,omitempty"`
}

type StatsQuery struct {
	Since       time.Time
	RecentLimit int
}

// ClickStats агрегаты по событиям одной ссылки
type ClickStats struct {
	TotalClicks     int64            `json:"total_clicks"`
	Clicks          int64            `json:"-"`
	RecentClicks    []ClickEvent     `json:"recent_clicks"`
	ClicksByDay     map[string]int64 `json:"clicks_by_day"`
	ClicksByCountry map[string]int64 `json:"clicks_by_country"`
}

type ShortURLStats struct {
	ShortURL *ShortURL
	ClickStats
}
