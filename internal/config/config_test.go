package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("NOTIFY_ON_SCAN", "true")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("REDIS_DB", "2")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTPPort != "9000" {
		t.Errorf("HTTPPort = %q", cfg.HTTPPort)
	}
	if !cfg.NotifyOnScan {
		t.Error("NotifyOnScan not read from env")
	}
	if cfg.QueueBackend != "memory" || cfg.AccessTTL() != 15*time.Minute || cfg.StoreTimeout() != 5*time.Second {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if opts := cfg.RedisOptions(); opts.DB != 2 {
		t.Errorf("RedisOptions() = %+v", opts)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "attend.yaml")
	if err := os.WriteFile(path, []byte("export_title: Rekod Kehadiran\nrate_limit_per_min: 30\ntimezone: UTC\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(FileEnv, path)
	t.Setenv("RATE_LIMIT_PER_MIN", "60")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ExportTitle != "Rekod Kehadiran" {
		t.Errorf("ExportTitle = %q", cfg.ExportTitle)
	}
	if cfg.RateLimitPerMin != 60 {
		t.Errorf("env should override file, got %d", cfg.RateLimitPerMin)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     App
		wantErr bool
	}{
		{"ok", App{QueueBackend: "redis", Timezone: "UTC"}, false},
		{"bad queue", App{QueueBackend: "kafka", Timezone: "UTC"}, true},
		{"bad zone", App{QueueBackend: "memory", Timezone: "Mars/Olympus"}, true},
		{"prod default key", App{Env: "production", QueueBackend: "memory", Timezone: "UTC", JWTSigningKey: "dev-signing-secret-change"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
