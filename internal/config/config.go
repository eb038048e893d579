package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Storage   StorageConfig
	Worker    WorkerConfig
	Redis     RedisConfig
	RateLimit RateLimitConfig
	Mail      MailConfig
	Admin     AdminConfig
	Google    GoogleConfig
	Log       LogConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	PublicURL      string
	RequestTimeout time.Duration
}

// Addr returns the listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Driver     string // postgres or sqlite
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SSLMode    string
	SQLitePath string
	LogLevel   string
	MaxRetries int
}

// DSN builds the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=%s",
		d.Host, d.User, d.Password, d.Name, d.Port, d.SSLMode)
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

type StorageConfig struct {
	Provider string // s3 or none
	S3       S3Config
}

type S3Config struct {
	BucketName string
	Endpoint   string
	Region     string
	AccessKey  string
	SecretKey  string
}

type WorkerConfig struct {
	Concurrency int
	// CleanupSchedule is a cron spec for purging spent password reset codes.
	CleanupSchedule string
}

type RedisConfig struct {
	Addr     string
	Password string
	Username string
	DB       int
}

type RateLimitConfig struct {
	Window    time.Duration
	APIMax    int
	AuthMax   int
	BurstRate float64 // per-second token rate of the in-memory limiter
	Burst     int
}

type MailConfig struct {
	Driver   string // log or smtp
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// AdminConfig seeds the first administrator.
type AdminConfig struct {
	Name     string
	Email    string
	Password string
}

type GoogleConfig struct {
	UserInfoURL string
}

type LogConfig struct {
	Format string
	Level  string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("PUBLIC_URL", "http://localhost:8080")
	v.SetDefault("REQUEST_TIMEOUT", "30s")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", 5432)
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "")
	v.SetDefault("POSTGRES_DB", "marketplace")
	v.SetDefault("POSTGRES_SSLMODE", "disable")
	v.SetDefault("SQLITE_PATH", "marketplace.db")
	v.SetDefault("DB_LOG_LEVEL", "warn")
	v.SetDefault("DB_MAX_RETRIES", 5)

	v.SetDefault("JWT_SECRET", "your-secret-key")
	v.SetDefault("JWT_TTL", "168h")

	v.SetDefault("STORAGE_PROVIDER", "s3")
	v.SetDefault("S3_BUCKET_NAME", "")
	v.SetDefault("S3_ENDPOINT", "")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("S3_ACCESS_KEY", "")
	v.SetDefault("S3_SECRET_KEY", "")

	v.SetDefault("WORKER_CONCURRENCY", 5)
	v.SetDefault("WORKER_CLEANUP_SCHEDULE", "@hourly")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_USERNAME", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("RATE_LIMIT_WINDOW", "15m")
	v.SetDefault("RATE_LIMIT_API_MAX", 100)
	v.SetDefault("RATE_LIMIT_AUTH_MAX", 20)
	v.SetDefault("RATE_LIMIT_BURST_RATE", 20)
	v.SetDefault("RATE_LIMIT_BURST", 40)

	v.SetDefault("MAIL_DRIVER", "log")
	v.SetDefault("MAIL_HOST", "localhost")
	v.SetDefault("MAIL_PORT", 587)
	v.SetDefault("MAIL_USERNAME", "")
	v.SetDefault("MAIL_PASSWORD", "")
	v.SetDefault("MAIL_FROM", "no-reply@marketplace.local")

	v.SetDefault("ADMIN_NAME", "Administrator")
	v.SetDefault("ADMIN_EMAIL", "")
	v.SetDefault("ADMIN_PASSWORD", "")

	v.SetDefault("GOOGLE_USERINFO_URL", "https://www.googleapis.com/oauth2/v3/userinfo")

	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("LOG_LEVEL", "debug")
}

// Load reads the configuration from the environment. Every key has a default,
// so a zero environment yields a usable local setup.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	driver := strings.ToLower(v.GetString("DB_DRIVER"))
	if driver != "postgres" && driver != "sqlite" {
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", driver)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			PublicURL:      v.GetString("PUBLIC_URL"),
			RequestTimeout: v.GetDuration("REQUEST_TIMEOUT"),
		},
		Database: DatabaseConfig{
			Driver:     driver,
			Host:       v.GetString("POSTGRES_HOST"),
			Port:       v.GetInt("POSTGRES_PORT"),
			User:       v.GetString("POSTGRES_USER"),
			Password:   v.GetString("POSTGRES_PASSWORD"),
			Name:       v.GetString("POSTGRES_DB"),
			SSLMode:    v.GetString("POSTGRES_SSLMODE"),
			SQLitePath: v.GetString("SQLITE_PATH"),
			LogLevel:   v.GetString("DB_LOG_LEVEL"),
			MaxRetries: v.GetInt("DB_MAX_RETRIES"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
			TTL:    v.GetDuration("JWT_TTL"),
		},
		Storage: StorageConfig{
			Provider: v.GetString("STORAGE_PROVIDER"),
			S3: S3Config{
				BucketName: v.GetString("S3_BUCKET_NAME"),
				Endpoint:   v.GetString("S3_ENDPOINT"),
				Region:     v.GetString("S3_REGION"),
				AccessKey:  v.GetString("S3_ACCESS_KEY"),
				SecretKey:  v.GetString("S3_SECRET_KEY"),
			},
		},
		Worker: WorkerConfig{
			Concurrency:     v.GetInt("WORKER_CONCURRENCY"),
			CleanupSchedule: v.GetString("WORKER_CLEANUP_SCHEDULE"),
		},
		Redis: RedisConfig{
			Addr:     fmt.Sprintf("%s:%d", v.GetString("REDIS_HOST"), v.GetInt("REDIS_PORT")),
			Password: v.GetString("REDIS_PASSWORD"),
			Username: v.GetString("REDIS_USERNAME"),
			DB:       v.GetInt("REDIS_DB"),
		},
		RateLimit: RateLimitConfig{
			Window:    v.GetDuration("RATE_LIMIT_WINDOW"),
			APIMax:    v.GetInt("RATE_LIMIT_API_MAX"),
			AuthMax:   v.GetInt("RATE_LIMIT_AUTH_MAX"),
			BurstRate: v.GetFloat64("RATE_LIMIT_BURST_RATE"),
			Burst:     v.GetInt("RATE_LIMIT_BURST"),
		},
		Mail: MailConfig{
			Driver:   v.GetString("MAIL_DRIVER"),
			Host:     v.GetString("MAIL_HOST"),
			Port:     v.GetInt("MAIL_PORT"),
			Username: v.GetString("MAIL_USERNAME"),
			Password: v.GetString("MAIL_PASSWORD"),
			From:     v.GetString("MAIL_FROM"),
		},
		Admin: AdminConfig{
			Name:     v.GetString("ADMIN_NAME"),
			Email:    v.GetString("ADMIN_EMAIL"),
			Password: v.GetString("ADMIN_PASSWORD"),
		},
		Google: GoogleConfig{
			UserInfoURL: v.GetString("GOOGLE_USERINFO_URL"),
		},
		Log: LogConfig{
			Format: v.GetString("LOG_FORMAT"),
			Level:  v.GetString("LOG_LEVEL"),
		},
	}

	if cfg.JWT.TTL <= 0 {
		return nil, fmt.Errorf("JWT_TTL must be positive")
	}
	if cfg.Server.RequestTimeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	return cfg, nil
}
