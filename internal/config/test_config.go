package config

import "time"

// LoadTestConfig returns a configuration for tests: sqlite storage, log mail
// driver and no object storage.
func LoadTestConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "localhost",
			Port:           8081,
			PublicURL:      "http://localhost:8081",
			RequestTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: "marketplace_test.db",
			LogLevel:   "silent",
		},
		JWT: JWTConfig{
			Secret: "test-secret",
			TTL:    time.Hour,
		},
		Storage: StorageConfig{
			Provider: "none",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		},
		RateLimit: RateLimitConfig{
			Window:    15 * time.Minute,
			APIMax:    100,
			AuthMax:   20,
			BurstRate: 20,
			Burst:     40,
		},
		Mail: MailConfig{
			Driver: "log",
			From:   "no-reply@marketplace.local",
		},
		Log: LogConfig{
			Format: "console",
			Level:  "error",
		},
	}
}
