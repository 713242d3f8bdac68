// Package config はサーバーの設定を読み込みます。
//
// 優先順位は 環境変数 > CONFIG_FILE のYAML > デフォルト値 です。
// 起動時に .env があれば godotenv で環境変数に読み込みます（既存の環境変数は上書きしません）。
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// デフォルト値です。
const (
	DefaultListenAddr        = "127.0.0.1:8000"
	DefaultUsername          = "admin"
	DefaultPassword          = "admin123"
	DefaultRateLimitRequests = 5
	DefaultRateLimitWindow   = time.Minute
	DefaultGeminiTimeout     = 60 * time.Second

	StrategyFixed = "fixed"
	StrategyToken = "token"
)

// ErrInvalidConfig は設定値が不正な場合に返されます。
var ErrInvalidConfig = errors.New("invalid config")

// Config はサーバー全体の設定です。
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Redis     RedisConfig     `yaml:"redis"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
}

// ServerConfig はHTTPサーバーの設定です。
type ServerConfig struct {
	ListenAddr     string   `yaml:"listen_addr"`
	TrustedProxies []string `yaml:"trusted_proxies"`
	LogLevel       string   `yaml:"log_level"`
	// CORSAllowedOrigins が空の場合CORSミドルウェアは無効です。
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
}

// GeminiConfig は生成モデルの設定です。
type GeminiConfig struct {
	APIKey  string        `yaml:"api_key"`
	Model   string        `yaml:"model"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// AuthConfig はBasic認証の資格情報です。
type AuthConfig struct {
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	PasswordHash string `yaml:"password_hash"`
}

// RateLimitConfig はレート制限の設定です。
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
	Strategy string        `yaml:"strategy"`
}

// RedisConfig はRedis接続の設定です。Hostが空ならRedisを使いません。
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	Password string `yaml:"password"`
}

// AnalysisConfig は分析結果の返し方とキャッシュの設定です。
type AnalysisConfig struct {
	ErrorMode      string        `yaml:"error_mode"`
	ReportCacheTTL time.Duration `yaml:"report_cache_ttl"`
}

// Load は .env、CONFIG_FILE、環境変数の順に設定を読み込み、検証済みのConfigを返します。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return load(os.LookupEnv)
}

func load(lookup func(string) (string, bool)) (*Config, error) {
	cfg := defaults()

	if path, ok := lookup("CONFIG_FILE"); ok && path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.UsesDefaultCredentials() {
		slog.Warn("basic auth credentials not configured, using defaults",
			"username", DefaultUsername)
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			ListenAddr: DefaultListenAddr,
			LogLevel:   "info",
		},
		Gemini: GeminiConfig{
			Timeout: DefaultGeminiTimeout,
		},
		RateLimit: RateLimitConfig{
			Requests: DefaultRateLimitRequests,
			Window:   DefaultRateLimitWindow,
			Strategy: StrategyFixed,
		},
		Redis: RedisConfig{
			Port: "6379",
		},
		Analysis: AnalysisConfig{
			ErrorMode: "inband",
		},
	}
}

// mergeFile はYAMLファイルの値で上書きします。ファイルにないキーは現在の値を保持します。
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("LISTEN_ADDR", &c.Server.ListenAddr)
	str("LOG_LEVEL", &c.Server.LogLevel)
	str("GEMINI_API_KEY", &c.Gemini.APIKey)
	str("GEMINI_MODEL", &c.Gemini.Model)
	str("GEMINI_BASE_URL", &c.Gemini.BaseURL)
	str("BASIC_AUTH_USERNAME", &c.Auth.Username)
	str("BASIC_AUTH_PASSWORD", &c.Auth.Password)
	str("BASIC_AUTH_PASSWORD_HASH", &c.Auth.PasswordHash)
	str("RATE_LIMIT_STRATEGY", &c.RateLimit.Strategy)
	str("REDIS_HOST", &c.Redis.Host)
	str("REDIS_PORT", &c.Redis.Port)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("ANALYSIS_ERROR_MODE", &c.Analysis.ErrorMode)

	if v, ok := lookup("TRUSTED_PROXIES"); ok && v != "" {
		c.Server.TrustedProxies = splitList(v)
	}
	if v, ok := lookup("CORS_ALLOWED_ORIGINS"); ok && v != "" {
		c.Server.CORSAllowedOrigins = splitList(v)
	}
	if v, ok := lookup("RATE_LIMIT_REQUESTS"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: RATE_LIMIT_REQUESTS=%q: %v", ErrInvalidConfig, v, err)
		}
		c.RateLimit.Requests = n
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"RATE_LIMIT_WINDOW", &c.RateLimit.Window},
		{"GEMINI_TIMEOUT", &c.Gemini.Timeout},
		{"REPORT_CACHE_TTL", &c.Analysis.ReportCacheTTL},
	}
	for _, d := range durations {
		v, ok := lookup(d.key)
		if !ok || v == "" {
			continue
		}
		parsed, err := parseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, d.key, v, err)
		}
		*d.dst = parsed
	}
	return nil
}

// Validate は設定値の整合性を検証します。
func (c *Config) Validate() error {
	var errs []error
	if c.RateLimit.Requests <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.requests must be positive, got %d", c.RateLimit.Requests))
	}
	if c.RateLimit.Window <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.window must be positive, got %s", c.RateLimit.Window))
	}
	switch c.RateLimit.Strategy {
	case StrategyFixed, StrategyToken:
	default:
		errs = append(errs, fmt.Errorf("rate_limit.strategy must be %q or %q, got %q", StrategyFixed, StrategyToken, c.RateLimit.Strategy))
	}
	switch c.Analysis.ErrorMode {
	case "inband", "strict":
	default:
		errs = append(errs, fmt.Errorf("analysis.error_mode must be \"inband\" or \"strict\", got %q", c.Analysis.ErrorMode))
	}
	if c.Analysis.ReportCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("analysis.report_cache_ttl must not be negative, got %s", c.Analysis.ReportCacheTTL))
	}
	if c.Gemini.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("gemini.timeout must be positive, got %s", c.Gemini.Timeout))
	}
	if _, err := c.Server.SlogLevel(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// UsesDefaultCredentials はBasic認証の資格情報が未設定でデフォルト値を使う場合にtrueを返します。
func (c *Config) UsesDefaultCredentials() bool {
	return c.Auth.Username == "" && c.Auth.Password == "" && c.Auth.PasswordHash == ""
}

// Credentials はデフォルト値を補完したBasic認証の資格情報を返します。
func (c *Config) Credentials() AuthConfig {
	a := c.Auth
	if a.Username == "" {
		a.Username = DefaultUsername
	}
	if a.Password == "" && a.PasswordHash == "" {
		a.Password = DefaultPassword
	}
	return a
}

// SlogLevel はLogLevelをslog.Levelに変換します。
func (s ServerConfig) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s.LogLevel)); err != nil {
		return 0, fmt.Errorf("server.log_level: %w", err)
	}
	return l, nil
}

// parseDuration は "60s" 形式に加え、単位なしの整数を秒として受け付けます。
func parseDuration(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
