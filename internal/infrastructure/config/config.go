package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config 儲存 HTTP API 及外部相依的執行設定。
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	DB      DBConfig      `yaml:"db"`
	Auth    AuthConfig    `yaml:"auth"`
	Session SessionConfig `yaml:"session"`
	Notify  NotifyConfig  `yaml:"notify"`
}

type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

type DBConfig struct {
	DSN          string        `yaml:"dsn"`
	MaxOpenConns int           `yaml:"max_open_conns"`
	MaxIdleConns int           `yaml:"max_idle_conns"`
	MaxIdleTime  time.Duration `yaml:"max_idle_time"`
}

type AuthConfig struct {
	Secret string `yaml:"secret"`
}

// SessionConfig 列舉 session 子系統認得的每個參數。
type SessionConfig struct {
	AccessTTL                time.Duration `yaml:"access_ttl"`
	RefreshTTL               time.Duration `yaml:"refresh_ttl"`
	SuspiciousLoginThreshold int           `yaml:"suspicious_login_threshold"`
	MaxSessionsPerUser       int           `yaml:"max_sessions_per_user"`
	CleanupInterval          time.Duration `yaml:"cleanup_interval"`
	OverflowPolicy           string        `yaml:"overflow_policy"` // evict_oldest | reject
}

// NotifyConfig 設定安全告警管道；token 或 chat_id 留空即停用。
type NotifyConfig struct {
	TelegramToken  string `yaml:"telegram_token"`
	TelegramChatID int64  `yaml:"telegram_chat_id"`
	TelegramPrefix string `yaml:"telegram_prefix"`
}

// LoadFromFile 從 YAML 組態檔載入設定。
func LoadFromFile(path string) (Config, error) {
	// 嘗試載入 .env 檔案（如果存在）
	_ = godotenv.Load()

	var cfg Config
	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	cfg = applyDefaults(cfg)
	cfg = applyEnv(cfg)
	return cfg, nil
}

func applyDefaults(cfg Config) Config {
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":8080"
	}
	if cfg.DB.MaxOpenConns == 0 {
		cfg.DB.MaxOpenConns = 5
	}
	if cfg.DB.MaxIdleConns == 0 {
		cfg.DB.MaxIdleConns = 2
	}
	if cfg.DB.MaxIdleTime == 0 {
		cfg.DB.MaxIdleTime = 15 * time.Minute
	}
	if cfg.Auth.Secret == "" {
		cfg.Auth.Secret = "dev-secret-change-me"
	}
	if cfg.Session.AccessTTL == 0 {
		cfg.Session.AccessTTL = 15 * time.Minute
	}
	if cfg.Session.RefreshTTL == 0 {
		cfg.Session.RefreshTTL = 7 * 24 * time.Hour
	}
	if cfg.Session.SuspiciousLoginThreshold == 0 {
		cfg.Session.SuspiciousLoginThreshold = 3
	}
	if cfg.Session.MaxSessionsPerUser == 0 {
		cfg.Session.MaxSessionsPerUser = 5
	}
	if cfg.Session.CleanupInterval == 0 {
		cfg.Session.CleanupInterval = 24 * time.Hour
	}
	if cfg.Session.OverflowPolicy == "" {
		cfg.Session.OverflowPolicy = "evict_oldest"
	}
	return cfg
}

func applyEnv(cfg Config) Config {
	if val := os.Getenv("HTTP_ADDR"); val != "" {
		cfg.HTTP.Addr = val
	}
	if val := os.Getenv("PORT"); val != "" {
		cfg.HTTP.Addr = ":" + val
	}
	if val := os.Getenv("DB_DSN"); val != "" {
		cfg.DB.DSN = val
	}
	if val := os.Getenv("AUTH_SECRET"); val != "" {
		cfg.Auth.Secret = val
	}
	if val := os.Getenv("SESSION_ACCESS_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Session.AccessTTL = d
		}
	}
	if val := os.Getenv("SESSION_REFRESH_TTL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Session.RefreshTTL = d
		}
	}
	if val := os.Getenv("SESSION_CLEANUP_INTERVAL"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Session.CleanupInterval = d
		}
	}
	if val := os.Getenv("SESSION_MAX_PER_USER"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Session.MaxSessionsPerUser = n
		}
	}
	if val := os.Getenv("SESSION_SUSPICIOUS_THRESHOLD"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Session.SuspiciousLoginThreshold = n
		}
	}
	if val := os.Getenv("SESSION_OVERFLOW_POLICY"); val != "" {
		cfg.Session.OverflowPolicy = val
	}
	if val := os.Getenv("TELEGRAM_BOT_TOKEN"); val != "" {
		cfg.Notify.TelegramToken = val
	}
	if val := os.Getenv("TELEGRAM_CHAT_ID"); val != "" {
		if id, err := strconv.ParseInt(val, 10, 64); err == nil {
			cfg.Notify.TelegramChatID = id
		}
	}
	if val := os.Getenv("TELEGRAM_PREFIX"); val != "" {
		cfg.Notify.TelegramPrefix = val
	}
	return cfg
}
