// Package shortcode генерирует и валидирует короткие коды.
package shortcode

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	DefaultLength = 6
	MinLength     = 4
	MaxLength     = 12
)

var (
	ErrInvalidLength  = fmt.Errorf("длина кода должна быть от %d до %d символов", MinLength, MaxLength)
	ErrInvalidSymbols = errors.New("код может содержать только латинские буквы и цифры")
	ErrReserved       = errors.New("код совпадает со служебным маршрутом")
)

// reserved первые сегменты служебных маршрутов, они перекрывают /{code}/
var reserved = map[string]struct{}{
	"health":  {},
	"metrics": {},
	"caddy":   {},
}

// IsReserved сообщает, занят ли код служебным маршрутом
func IsReserved(code string) bool {
	_, ok := reserved[code]
	return ok
}

var alphabetSize = big.NewInt(int64(len(Alphabet)))

// Generator выдаёт кандидатов в короткие коды
type Generator interface {
	Generate(length int) (string, error)
}

// RandomGenerator случайные коды из crypto/rand, не зависящие от порядка создания
type RandomGenerator struct{}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

func (g *RandomGenerator) Generate(length int) (string, error) {
	if length < MinLength || length > MaxLength {
		return "", ErrInvalidLength
	}

	result := make([]byte, length)
	for i := 0; i < length; i++ {
		// rand.Int равномерен на [0, 62), без смещения по модулю
		num, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to read random source: %w", err)
		}
		result[i] = Alphabet[num.Int64()]
	}

	return string(result), nil
}

// Validate проверяет пользовательский код: 4-12 символов [A-Za-z0-9], не служебный
func Validate(code string) error {
	if len(code) < MinLength || len(code) > MaxLength {
		return ErrInvalidLength
	}
	for i := 0; i < len(code); i++ {
		if !isAlphanumeric(code[i]) {
			return ErrInvalidSymbols
		}
	}
	if IsReserved(code) {
		return ErrReserved
	}
	return nil
}

func isAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
