package models

import (
	"time"
)

type DomainType string

const (
	DomainTypeForms   DomainType = "forms"
	DomainTypePayment DomainType = "payment"
	DomainTypeOther   DomainType = "other"
)

func (t DomainType) Valid() bool {
	switch t {
	case DomainTypeForms, DomainTypePayment, DomainTypeOther:
		return true
	}
	return false
}

type SSLStatus string

const (
	SSLStatusPending SSLStatus = "pending"
	SSLStatusActive  SSLStatus = "active"
	SSLStatusFailed  SSLStatus = "failed"
	SSLStatusExpired SSLStatus = "expired"
)

func (s SSLStatus) Valid() bool {
	switch s {
	case SSLStatusPending, SSLStatusActive, SSLStatusFailed, SSLStatusExpired:
		return true
	}
	return false
}

// DomainConfiguration домен, для которого сервис выпускает TLS-сертификаты (on-demand TLS)
type DomainConfiguration struct {
	ID           int64      `json:"id"`
	Domain       string     `json:"domain"`
	AccountID    int64      `json:"account_id"`
	DomainType   DomainType `json:"domain_type"`
	IsVerified   bool       `json:"is_verified"`
	IsActive     bool       `json:"is_active"`
	SSLStatus    SSLStatus  `json:"ssl_status"`
	SSLIssuedAt  *time.Time `json:"ssl_issued_at,omitempty"`
	SSLExpiresAt *time.Time `json:"ssl_expires_at,omitempty"`
	UseCaddy     bool       `json:"use_caddy"`
	Notes        string     `json:"notes"`
	ConfiguredAt time.Time  `json:"configured_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type ConfigureDomainInput struct {
	Domain     string
	AccountID  int64
	DomainType DomainType
	UseCaddy   bool
	Notes      string
}

type SSLStatusUpdate struct {
	Status       SSLStatus
	SSLIssuedAt  *time.Time
	SSLExpiresAt *time.Time
}
