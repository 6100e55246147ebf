package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// セッションストアの種別。
const (
	SessionStorePostgres = "postgres"
	SessionStoreRedis    = "redis"
)

// ProviderConfig は外部IdPのOAuth2クライアント設定。
// ClientIDとClientSecretの両方が設定されている場合のみ有効となる。
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Enabled はプロバイダーが設定済みかを返す。
func (p ProviderConfig) Enabled() bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBConnMaxLife  time.Duration

	// OAuth
	Google   ProviderConfig
	Facebook ProviderConfig

	// Session
	SessionMaxAge          int
	SessionStore           string
	RedisURL               string
	SessionCleanupInterval time.Duration

	// Password
	BcryptCost int

	// Rate Limit
	RateLimitGeneral int
	RateLimitAuth    int

	// Logging
	LogLevel string

	// Server
	ServerPort        string
	WorkerMetricsPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合や値が矛盾する場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = strings.TrimRight(os.Getenv("BASE_URL"), "/")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	cfg.SessionStore = strings.ToLower(getEnvString("SESSION_STORE", SessionStorePostgres))
	cfg.RedisURL = os.Getenv("REDIS_URL")
	if cfg.SessionStore == SessionStoreRedis && cfg.RedisURL == "" {
		missing = append(missing, "REDIS_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	if cfg.SessionStore != SessionStorePostgres && cfg.SessionStore != SessionStoreRedis {
		return nil, fmt.Errorf("invalid SESSION_STORE %q: must be %q or %q",
			cfg.SessionStore, SessionStorePostgres, SessionStoreRedis)
	}

	cfg.Google = loadProvider("GOOGLE", cfg.BaseURL, "google")
	cfg.Facebook = loadProvider("FACEBOOK", cfg.BaseURL, "facebook")

	// Optional fields with defaults
	cfg.DBMaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", 25)
	cfg.DBMaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", 5)
	cfg.DBConnMaxLife = getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.WorkerMetricsPort = getEnvString("WORKER_METRICS_PORT", "9091")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	return cfg, nil
}

// SessionLifetime はセッションの有効期間を返す。
func (c *Config) SessionLifetime() time.Duration {
	return time.Duration(c.SessionMaxAge) * time.Second
}

func loadProvider(prefix, baseURL, name string) ProviderConfig {
	return ProviderConfig{
		ClientID:     os.Getenv(prefix + "_CLIENT_ID"),
		ClientSecret: os.Getenv(prefix + "_CLIENT_SECRET"),
		RedirectURL:  getEnvString(prefix+"_REDIRECT_URL", baseURL+"/auth/"+name+"/callback"),
	}
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
