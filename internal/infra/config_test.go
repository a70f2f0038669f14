package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("WORKER_BASE_URL", "")
	t.Setenv("DEBOUNCE_MS", "")
	t.Setenv("POLL_INTERVAL_MS", "")
	t.Setenv("FALLBACK_DELAY_MS", "")
	t.Setenv("PIN_OUTPUT_AT_SUBMIT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.WorkerBaseURL != "http://localhost:5000" {
		t.Fatalf("WorkerBaseURL mismatch: got %q", cfg.WorkerBaseURL)
	}
	if cfg.Debounce != 400*time.Millisecond {
		t.Fatalf("Debounce mismatch: got %s", cfg.Debounce)
	}
	if cfg.PollInterval != 500*time.Millisecond {
		t.Fatalf("PollInterval mismatch: got %s", cfg.PollInterval)
	}
	if cfg.FallbackDelay != 1500*time.Millisecond {
		t.Fatalf("FallbackDelay mismatch: got %s", cfg.FallbackDelay)
	}
	if cfg.PinOutputOnSubmit {
		t.Fatalf("PinOutputOnSubmit should default to false")
	}
}

func TestLoadConfigTrimsWorkerURLAndParsesOverrides(t *testing.T) {
	t.Setenv("WORKER_BASE_URL", "http://worker.internal:5000/")
	t.Setenv("DEBOUNCE_MS", "250")
	t.Setenv("PIN_OUTPUT_AT_SUBMIT", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.example.com , ,https://b.example.com")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.WorkerBaseURL != "http://worker.internal:5000" {
		t.Fatalf("WorkerBaseURL mismatch: got %q", cfg.WorkerBaseURL)
	}
	if cfg.Debounce != 250*time.Millisecond {
		t.Fatalf("Debounce mismatch: got %s", cfg.Debounce)
	}
	if !cfg.PinOutputOnSubmit {
		t.Fatalf("PinOutputOnSubmit not parsed")
	}
	expected := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.CORSOrigins) != len(expected) {
		t.Fatalf("CORSOrigins mismatch: got %#v want %#v", cfg.CORSOrigins, expected)
	}
	for i, origin := range expected {
		if cfg.CORSOrigins[i] != origin {
			t.Fatalf("CORSOrigins[%d] = %q, want %q", i, cfg.CORSOrigins[i], origin)
		}
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "relative worker url", key: "WORKER_BASE_URL", val: "localhost:5000"},
		{name: "zero debounce", key: "DEBOUNCE_MS", val: "0"},
		{name: "negative poll interval", key: "POLL_INTERVAL_MS", val: "-5"},
		{name: "tiny fft", key: "REFWORKER_FFT_SIZE", val: "4"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %s=%s", tc.key, tc.val)
			}
		})
	}
}
