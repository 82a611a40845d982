package config

import (
	"os"
	"path/filepath"
	"time"
)

type Config struct {
	HTTPAddr     string        // mockapi listen address
	APIBaseURL   string        // where the client points
	RedisAddr    string        // optional tracking cache (mockapi); empty = disabled
	PollInterval time.Duration // store refresh cadence
	SessionFile  string        // persisted bearer+user for the console
	LoginEmail   string        // console demo credentials
	LoginPass    string
}

func Load() Config {
	return Config{
		HTTPAddr:     getenv("HTTP_ADDR", ":5000"),
		APIBaseURL:   getenv("API_BASE_URL", "http://localhost:5000"),
		RedisAddr:    getenv("REDIS_ADDR", ""),
		PollInterval: getdur("POLL_INTERVAL", 5*time.Second),
		SessionFile:  getenv("SESSION_FILE", defaultSessionFile()),
		LoginEmail:   getenv("LOGIN_EMAIL", "admin@global.com"),
		LoginPass:    getenv("LOGIN_PASSWORD", "pass123"),
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "globaltrack", "session.json")
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
