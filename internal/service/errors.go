package service

import (
	"errors"
)

// Ошибки сервиса
var (
	ErrInvalidURL    = errors.New("invalid url")
	ErrInvalidCode   = errors.New("invalid short code")
	ErrInvalidDomain = errors.New("invalid domain")
	ErrInvalidInput  = errors.New("invalid input")

	ErrCodeConflict        = errors.New("short code already taken")
	ErrAllocationExhausted = errors.New("could not allocate a unique short code")
	ErrNotFound            = errors.New("short url not found")

	ErrDomainExists   = errors.New("domain already configured")
	ErrDomainNotFound = errors.New("domain not found")

	// ErrUnavailable хранилище недоступно даже после повтора
	ErrUnavailable = errors.New("service temporarily unavailable")
)

// ValidationError ошибка входных данных с привязкой к полю запроса
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field, message string, err error) *ValidationError {
	return &ValidationError{Field: field, Message: message, Err: err}
}
