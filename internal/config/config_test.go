package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		Port:            "8080",
		Environment:     "dev",
		StoreBackend:    StoreMemory,
		DefaultProvider: "lorem",
		DefaultModel:    "lorem-fast",
		MaxSteps:        DefaultMaxSteps,
		ProviderBurst:   1,
		WeatherBaseURL:  "https://api.open-meteo.com",
		LogMaxFiles:     DefaultLogMaxFiles,
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "")
	t.Setenv("TABLE_PREFIX", "")
	t.Setenv("MAX_STEPS", "not-a-number")
	t.Setenv("STORE_BACKEND", "Memory")

	cfg := Load()
	if cfg.MaxSteps != DefaultMaxSteps {
		t.Errorf("MaxSteps = %d, want %d", cfg.MaxSteps, DefaultMaxSteps)
	}
	if cfg.TablePrefix != "dev_" {
		t.Errorf("TablePrefix = %q, want dev_", cfg.TablePrefix)
	}
	if cfg.StoreBackend != StoreMemory {
		t.Errorf("StoreBackend = %q, want %q", cfg.StoreBackend, StoreMemory)
	}
}

func TestTablePrefix(t *testing.T) {
	tests := []struct {
		env      string
		override string
		want     string
	}{
		{"prod", "", "prod_"},
		{"test", "", "test_"},
		{"dev", "", "dev_"},
		{"prod", "custom_", "custom_"},
	}

	for _, tt := range tests {
		t.Run(tt.env+tt.override, func(t *testing.T) {
			t.Setenv("TABLE_PREFIX", tt.override)
			if got := getTablePrefix(tt.env); got != tt.want {
				t.Errorf("getTablePrefix(%q) = %q, want %q", tt.env, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "postgres needs url", mutate: func(c *Config) { c.StoreBackend = StorePostgres }, wantErr: "DatabaseURL"},
		{name: "unknown backend", mutate: func(c *Config) { c.StoreBackend = "sqlite" }, wantErr: "StoreBackend"},
		{name: "anthropic needs key", mutate: func(c *Config) { c.DefaultProvider = "anthropic" }, wantErr: "AnthropicAPIKey"},
		{
			name: "model prefix selects provider",
			mutate: func(c *Config) {
				c.DefaultProvider = "anthropic"
				c.DefaultModel = "lorem/lorem-slow"
			},
		},
		{name: "model prefix needs key", mutate: func(c *Config) { c.DefaultModel = "openai/gpt-4.1" }, wantErr: "OpenAIAPIKey"},
		{name: "steps above limit", mutate: func(c *Config) { c.MaxSteps = MaxStepsLimit + 1 }, wantErr: "MaxSteps"},
		{name: "bad jwks url", mutate: func(c *Config) { c.AuthJWKSURL = "::not a url" }, wantErr: "AuthJWKSURL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestSetupLogFilePrunesOldLogs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"server-2020-01-01T00-00-00.log", "server-2020-01-02T00-00-00.log", "other.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), nil, 0644); err != nil {
			t.Fatal(err)
		}
	}

	f, err := SetupLogFile(dir, 2)
	if err != nil {
		t.Fatalf("SetupLogFile() error: %v", err)
	}
	defer f.Close()

	logs, _ := filepath.Glob(filepath.Join(dir, "server-*.log"))
	if len(logs) != 2 {
		t.Fatalf("kept %d server logs, want 2: %v", len(logs), logs)
	}
	if _, err := os.Stat(filepath.Join(dir, "server-2020-01-01T00-00-00.log")); !os.IsNotExist(err) {
		t.Errorf("oldest log should be removed")
	}
	if _, err := os.Stat(filepath.Join(dir, "other.txt")); err != nil {
		t.Errorf("unrelated file removed: %v", err)
	}
}
