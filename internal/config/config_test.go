package config

import (
	"os"
	"testing"
	"time"
)

func TestGetEnvOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal string
		expected   string
	}{
		{"uses env value", "TEST_VAR_1", "hello", "default", "hello"},
		{"uses default when empty", "TEST_VAR_2", "", "default", "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, result)
			}
		})
	}
}

func TestGetEnvAsIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		key        string
		envValue   string
		defaultVal int
		expected   int
	}{
		{"parses integer", "TEST_INT_1", "42", 10, 42},
		{"uses default for empty", "TEST_INT_2", "", 10, 10},
		{"uses default for non-numeric", "TEST_INT_3", "abc", 10, 10},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.envValue != "" {
				os.Setenv(tc.key, tc.envValue)
				defer os.Unsetenv(tc.key)
			}

			result := getEnvAsIntOrDefault(tc.key, tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %d, got %d", tc.expected, result)
			}
		})
	}
}

func TestMustGetEnv_Panics(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for missing required env var")
		}
	}()

	os.Unsetenv("NONEXISTENT_REQUIRED_VAR")
	mustGetEnv("NONEXISTENT_REQUIRED_VAR")
}

func TestMustGetEnv_ReturnsValue(t *testing.T) {
	os.Setenv("TEST_REQUIRED", "value123")
	defer os.Unsetenv("TEST_REQUIRED")

	result := mustGetEnv("TEST_REQUIRED")
	if result != "value123" {
		t.Errorf("Expected 'value123', got %q", result)
	}
}

func TestGetEnvAsDurationOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		env        map[string]string
		defaultVal time.Duration
		expected   time.Duration
	}{
		{"parses duration string", map[string]string{"TEST_DUR": "250ms"}, time.Second, 250 * time.Millisecond},
		{"parses seconds fallback", map[string]string{"TEST_DUR_SECONDS": "45"}, time.Second, 45 * time.Second},
		{"duration wins over seconds", map[string]string{"TEST_DUR": "2m", "TEST_DUR_SECONDS": "45"}, time.Second, 2 * time.Minute},
		{"bad duration falls through to seconds", map[string]string{"TEST_DUR": "soon", "TEST_DUR_SECONDS": "3"}, time.Second, 3 * time.Second},
		{"negative uses default", map[string]string{"TEST_DUR": "-5s"}, time.Second, time.Second},
		{"uses default when unset", nil, 30 * time.Second, 30 * time.Second},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				os.Setenv(k, v)
				defer os.Unsetenv(k)
			}

			result := getEnvAsDurationOrDefault("TEST_DUR", tc.defaultVal)
			if result != tc.expected {
				t.Errorf("Expected %s, got %s", tc.expected, result)
			}
		})
	}
}

func TestLoad_LifecycleDefaults(t *testing.T) {
	os.Setenv("DATABASE_URL", "postgres://localhost/sessionclock")
	os.Setenv("REDIS_URL", "redis://localhost:6379/0")
	os.Setenv("JWT_SECRET", "secret")
	defer os.Unsetenv("DATABASE_URL")
	defer os.Unsetenv("REDIS_URL")
	defer os.Unsetenv("JWT_SECRET")

	cfg := Load()

	if cfg.TickInterval != time.Second {
		t.Errorf("Expected 1s tick, got %s", cfg.TickInterval)
	}
	if cfg.FocusInterval != 100*time.Millisecond {
		t.Errorf("Expected 100ms focus refresh, got %s", cfg.FocusInterval)
	}
	if cfg.ReloadInterval != 30*time.Second {
		t.Errorf("Expected 30s reload, got %s", cfg.ReloadInterval)
	}
	if cfg.WriteWorkers != 4 || cfg.WriteQueueSize != 256 {
		t.Errorf("Expected 4 workers with 256 slots, got %d/%d", cfg.WriteWorkers, cfg.WriteQueueSize)
	}
	if cfg.RefreshTokenTTL != 168*time.Hour {
		t.Errorf("Expected 168h refresh TTL, got %s", cfg.RefreshTokenTTL)
	}
}

func TestLocation(t *testing.T) {
	if loc := (&Config{Timezone: "UTC"}).Location(); loc.String() != "UTC" {
		t.Errorf("Expected UTC, got %s", loc)
	}
	if loc := (&Config{Timezone: "Mars/Olympus"}).Location(); loc != time.Local {
		t.Errorf("Expected fallback to local time, got %s", loc)
	}
}
