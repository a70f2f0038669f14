package infra

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv            string
	LogLevel          string
	Port              string
	WorkerBaseURL     string
	WorkerTimeout     time.Duration
	StoragePath       string
	Debounce          time.Duration
	PollInterval      time.Duration
	FallbackDelay     time.Duration
	PinOutputOnSubmit bool
	ViewCacheTTL      time.Duration
	CORSOrigins       []string
	HTTPReadTimeout   time.Duration
	HTTPWriteTimeout  time.Duration
	HTTPIdleTimeout   time.Duration
	RateLimitPerMin   int
	RefWorkerPort     string
	RefWorkerFFTSize  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:            getEnv("APP_ENV", "development"),
		LogLevel:          os.Getenv("LOG_LEVEL"),
		Port:              getEnv("PORT", "8080"),
		WorkerBaseURL:     strings.TrimRight(getEnv("WORKER_BASE_URL", "http://localhost:5000"), "/"),
		WorkerTimeout:     time.Second * time.Duration(getEnvInt("WORKER_TIMEOUT_SECONDS", 30)),
		StoragePath:       getEnv("STORAGE_PATH", "./storage"),
		Debounce:          time.Millisecond * time.Duration(getEnvInt("DEBOUNCE_MS", 400)),
		PollInterval:      time.Millisecond * time.Duration(getEnvInt("POLL_INTERVAL_MS", 500)),
		FallbackDelay:     time.Millisecond * time.Duration(getEnvInt("FALLBACK_DELAY_MS", 1500)),
		PinOutputOnSubmit: getEnvBool("PIN_OUTPUT_AT_SUBMIT", false),
		ViewCacheTTL:      time.Second * time.Duration(getEnvInt("VIEW_CACHE_TTL_SECONDS", 300)),
		CORSOrigins:       getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		HTTPReadTimeout:   time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:  time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:   time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
		RateLimitPerMin:   getEnvInt("RATE_LIMIT_PER_MINUTE", 1200),
		RefWorkerPort:     getEnv("REFWORKER_PORT", "5000"),
		RefWorkerFFTSize:  getEnvInt("REFWORKER_FFT_SIZE", 256),
	}

	u, err := url.Parse(cfg.WorkerBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("WORKER_BASE_URL %q is not an absolute URL", cfg.WorkerBaseURL)
	}
	if cfg.Debounce <= 0 {
		return nil, fmt.Errorf("DEBOUNCE_MS must be positive")
	}
	if cfg.PollInterval <= 0 {
		return nil, fmt.Errorf("POLL_INTERVAL_MS must be positive")
	}
	if cfg.FallbackDelay <= 0 {
		return nil, fmt.Errorf("FALLBACK_DELAY_MS must be positive")
	}
	if cfg.RefWorkerFFTSize < 8 {
		return nil, fmt.Errorf("REFWORKER_FFT_SIZE must be at least 8")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
