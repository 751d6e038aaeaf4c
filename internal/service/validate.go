package service

import (
	"net"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	maxURLLength       = 2048
	maxTitleLength     = 255
	maxDomainLength    = 255
	maxUserAgentLength = 512
	maxRefererLength   = 2048
	maxIPLength        = 45
)

var (
	domainLabel = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
	countryCode = regexp.MustCompile(`^[A-Z]{2}$`)
)

// NormalizeDomain приводит host к виду, в котором он хранится:
// нижний регистр, без порта и завершающей точки
func NormalizeDomain(host string) (string, error) {
	host = strings.TrimSpace(host)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.ToLower(host), ".")

	if host == "" {
		return "", invalid("domain", "domain is required", ErrInvalidDomain)
	}
	if len(host) > maxDomainLength {
		return "", invalid("domain", "domain is too long", ErrInvalidDomain)
	}
	for _, label := range strings.Split(host, ".") {
		if !domainLabel.MatchString(label) {
			return "", invalid("domain", "domain is not a valid host name", ErrInvalidDomain)
		}
	}
	return host, nil
}

// validateURL допускает только абсолютные http/https URL
func validateURL(field, raw string) error {
	if raw == "" {
		return invalid(field, "url is required", ErrInvalidURL)
	}
	if len(raw) > maxURLLength {
		return invalid(field, "url must be at most 2048 characters", ErrInvalidURL)
	}
	if !utf8.ValidString(raw) {
		return invalid(field, "url must be valid UTF-8", ErrInvalidURL)
	}
	if strings.IndexFunc(raw, unicode.IsSpace) >= 0 {
		return invalid(field, "url must not contain whitespace", ErrInvalidURL)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return invalid(field, "url is malformed", ErrInvalidURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid(field, "url scheme must be http or https", ErrInvalidURL)
	}
	if u.Host == "" || u.Hostname() == "" {
		return invalid(field, "url must have a host", ErrInvalidURL)
	}
	return nil
}

func validateTitle(title string) error {
	if !utf8.ValidString(title) || strings.IndexFunc(title, unicode.IsControl) >= 0 {
		return invalid("title", "title must be valid text without control characters", ErrInvalidInput)
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return invalid("title", "title must be at most 255 characters", ErrInvalidInput)
	}
	return nil
}

// normalizeCountry возвращает ISO-3166 alpha-2 код или пустую строку.
// XX и T1 проставляются edge-прокси для неизвестной страны и Tor
func normalizeCountry(raw string) string {
	c := strings.ToUpper(strings.TrimSpace(raw))
	if !countryCode.MatchString(c) || c == "XX" || c == "T1" {
		return ""
	}
	return c
}

// truncate приводит значение заголовка к валидному UTF-8 без NUL и обрезает до limit рун
func truncate(s string, limit int) string {
	s = strings.ToValidUTF8(s, "\uFFFD")
	s = strings.ReplaceAll(s, "\x00", "")
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit])
}
