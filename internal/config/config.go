package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	ClickModeAsync = "async"
	ClickModeSync  = "sync"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Shortener ShortenerConfig
	Clicks    ClicksConfig
	Log       LogConfig
}

type AppConfig struct {
	Port               string
	Env                string
	ShortURLScheme     string
	TrustedProxies     []string
	TrustForwardedHost bool
}

type DBConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
	AutoMigrate bool
}

// DSN строка подключения для pgxpool
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User,
		c.Password,
		c.Host,
		c.Port,
		c.Name,
		c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	CacheTTL time.Duration
}

// Enabled: без REDIS_HOST кэш отключён
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type AuthConfig struct {
	InternalAPIKeys map[string]string // API key -> name/description
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

type ShortenerConfig struct {
	CodeLength      int
	MaxAttempts     int
	RecentClicks    int
	StatsWindowDays int
	CountryHeader   string
}

type ClicksConfig struct {
	Mode    string
	Workers int
	Buffer  int
}

type LogConfig struct {
	Level string
}

func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// Load читает .env (если есть) и переменные окружения
func Load() (*Config, error) {
	return LoadFile(".env")
}

func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	cfg.App.Port = v.GetString("APP_PORT")
	cfg.App.Env = v.GetString("APP_ENV")
	cfg.App.ShortURLScheme = v.GetString("SHORT_URL_SCHEME")
	cfg.App.TrustedProxies = splitList(v.GetString("TRUSTED_PROXIES"))
	cfg.App.TrustForwardedHost = v.GetBool("TRUST_FORWARDED_HOST")

	cfg.DB.Host = v.GetString("DB_HOST")
	cfg.DB.Port = v.GetString("DB_PORT")
	cfg.DB.User = v.GetString("DB_USER")
	cfg.DB.Password = v.GetString("DB_PASSWORD")
	cfg.DB.Name = v.GetString("DB_NAME")
	cfg.DB.SSLMode = v.GetString("DB_SSLMODE")
	cfg.DB.MaxConns = v.GetInt32("DB_MAX_CONNS")
	cfg.DB.MinConns = v.GetInt32("DB_MIN_CONNS")
	cfg.DB.AutoMigrate = v.GetBool("DB_AUTO_MIGRATE")

	cfg.Redis.Host = v.GetString("REDIS_HOST")
	cfg.Redis.Port = v.GetString("REDIS_PORT")
	cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	cfg.Redis.DB = v.GetInt("REDIS_DB")
	cfg.Redis.CacheTTL = v.GetDuration("CACHE_TTL")

	// Format: key1:name1,key2:name2
	cfg.Auth.InternalAPIKeys = parseAPIKeys(v.GetString("INTERNAL_API_KEYS"))

	cfg.RateLimit.RequestsPerSecond = v.GetFloat64("RATE_LIMIT_RPS")
	cfg.RateLimit.BurstSize = v.GetInt("RATE_LIMIT_BURST")

	cfg.Shortener.CodeLength = v.GetInt("CODE_LENGTH")
	cfg.Shortener.MaxAttempts = v.GetInt("CODE_MAX_ATTEMPTS")
	cfg.Shortener.RecentClicks = v.GetInt("STATS_RECENT_CLICKS")
	cfg.Shortener.StatsWindowDays = v.GetInt("STATS_WINDOW_DAYS")
	cfg.Shortener.CountryHeader = v.GetString("GEO_COUNTRY_HEADER")

	cfg.Clicks.Mode = strings.ToLower(v.GetString("CLICK_MODE"))
	cfg.Clicks.Workers = v.GetInt("CLICK_WORKERS")
	cfg.Clicks.Buffer = v.GetInt("CLICK_BUFFER")

	cfg.Log.Level = v.GetString("LOG_LEVEL")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("SHORT_URL_SCHEME", "https")
	v.SetDefault("TRUST_FORWARDED_HOST", false)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 25)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_TTL", time.Hour)

	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	v.SetDefault("CODE_LENGTH", 6)
	v.SetDefault("CODE_MAX_ATTEMPTS", 5)
	v.SetDefault("STATS_RECENT_CLICKS", 10)
	v.SetDefault("STATS_WINDOW_DAYS", 30)
	v.SetDefault("GEO_COUNTRY_HEADER", "CF-IPCountry")

	v.SetDefault("CLICK_MODE", ClickModeAsync)
	v.SetDefault("CLICK_WORKERS", 3)
	v.SetDefault("CLICK_BUFFER", 1000)

	v.SetDefault("LOG_LEVEL", "info")
}

func (c *Config) validate() error {
	if c.Shortener.CodeLength < 4 || c.Shortener.CodeLength > 12 {
		return fmt.Errorf("CODE_LENGTH must be between 4 and 12, got %d", c.Shortener.CodeLength)
	}
	if c.Shortener.MaxAttempts < 1 {
		return fmt.Errorf("CODE_MAX_ATTEMPTS must be positive, got %d", c.Shortener.MaxAttempts)
	}
	if c.Shortener.StatsWindowDays < 1 {
		return fmt.Errorf("STATS_WINDOW_DAYS must be positive, got %d", c.Shortener.StatsWindowDays)
	}
	if c.Clicks.Mode != ClickModeAsync && c.Clicks.Mode != ClickModeSync {
		return fmt.Errorf("CLICK_MODE must be %q or %q, got %q", ClickModeAsync, ClickModeSync, c.Clicks.Mode)
	}
	if c.Clicks.Workers < 1 || c.Clicks.Buffer < 1 {
		return errors.New("CLICK_WORKERS and CLICK_BUFFER must be positive")
	}
	if c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.BurstSize <= 0 {
		return errors.New("RATE_LIMIT_RPS and RATE_LIMIT_BURST must be positive")
	}
	return nil
}

// parseAPIKeys parses comma-separated API keys in format "key1:name1,key2:name2"
func parseAPIKeys(raw string) map[string]string {
	keys := make(map[string]string)
	if raw == "" {
		return keys
	}

	pairs := strings.Split(raw, ",")
	for _, pair := range pairs {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) == 2 {
			keys[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}

	return keys
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
