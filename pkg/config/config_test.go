package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// helper to build a minimal valid config that can be tweaked in tests.
func validBaseConfig() *Config {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = true
	cfg.RateLimiting.HTTP.RequestsPerSecond = 10
	cfg.RateLimiting.HTTP.Burst = 20
	cfg.RateLimiting.HTTP.MaxConcurrent = 5
	cfg.RateLimiting.WebSocket.FramesPerSecond = 30
	cfg.RateLimiting.WebSocket.Burst = 60
	cfg.RateLimiting.WebSocket.MaxConcurrent = 10
	cfg.RateLimiting.WebSocket.MaxMessageSizeBytes = 1 << 20
	return cfg
}

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected default config to be valid, got: %v", err)
	}
	if cfg.Detection.EyeClosedThreshold != 0.3 {
		t.Errorf("expected threshold 0.3, got %v", cfg.Detection.EyeClosedThreshold)
	}
	if cfg.Detection.ConsecutiveFrames != 30 {
		t.Errorf("expected 30 consecutive frames, got %d", cfg.Detection.ConsecutiveFrames)
	}
	if cfg.Detection.AlertCooldown != 300*time.Second {
		t.Errorf("expected 300s cooldown, got %v", cfg.Detection.AlertCooldown)
	}
}

func TestValidate_RateLimitingDisabled_AllowsZeroValues(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 0
	cfg.RateLimiting.HTTP.Burst = 0
	cfg.RateLimiting.WebSocket.FramesPerSecond = 0
	cfg.RateLimiting.WebSocket.Burst = 0

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected config to be valid when rate limiting disabled, got error: %v", err)
	}
}

func TestValidate_InvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{
			name:   "threshold must be in (0,1)",
			mutate: func(c *Config) { c.Detection.EyeClosedThreshold = 1.2 },
		},
		{
			name:   "consecutive frames must be > 0",
			mutate: func(c *Config) { c.Detection.ConsecutiveFrames = 0 },
		},
		{
			name:   "cooldown must be >= 0",
			mutate: func(c *Config) { c.Detection.AlertCooldown = -time.Second },
		},
		{
			name:   "jpeg quality bounds",
			mutate: func(c *Config) { c.Detection.JPEGQuality = 0 },
		},
		{
			name:   "trusted proxies must be IPs or CIDRs",
			mutate: func(c *Config) { c.Server.TrustedProxies = []string{"10.0.0.0/8", "proxy.internal"} },
		},
		{
			name:   "frame size limits must be > 0",
			mutate: func(c *Config) { c.Detection.MaxFrameHeight = 0 },
		},
		{
			name:   "websocket read timeout must exceed ping interval",
			mutate: func(c *Config) { c.WebSocket.ReadTimeout = c.WebSocket.PingInterval },
		},
		{
			name:   "detector address required",
			mutate: func(c *Config) { c.Detector.Address = "" },
		},
		{
			name:   "unknown sms provider",
			mutate: func(c *Config) { c.SMS.Provider = "pigeon" },
		},
		{
			name:   "bad emergency contact",
			mutate: func(c *Config) { c.Alerts.EmergencyContacts = []string{"12345"} },
		},
		{
			name:   "auth secret required when enabled",
			mutate: func(c *Config) { c.Auth.Enabled = true; c.Auth.JWTSecret = "" },
		},
		{
			name:   "ws frames per second must be > 0",
			mutate: func(c *Config) { c.RateLimiting.WebSocket.FramesPerSecond = 0 },
		},
		{
			name:   "http burst must be > 0",
			mutate: func(c *Config) { c.RateLimiting.HTTP.Burst = 0 },
		},
		{
			name:   "redis channel required when enabled",
			mutate: func(c *Config) { c.Redis.Enabled = true; c.Redis.Channel = "" },
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validBaseConfig()
			tc.mutate(cfg)

			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error for case %q, got nil", tc.name)
			}
		})
	}
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlBody := `
server:
  trusted_proxies: ["10.0.0.0/8", "192.168.1.10"]
detection:
  eye_closed_threshold: 0.25
  consecutive_frames: 15
  alert_cooldown: 60s
alerts:
  emergency_contacts:
    - "+15550001111"
`
	if err := os.WriteFile(path, []byte(yamlBody), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "secret")
	t.Setenv("TWILIO_PHONE_NUMBER", "+15550009999")
	t.Setenv("PORT", "9001")
	t.Setenv("SAFEDRIVE_SERVER_ADDRESS", "")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Detection.EyeClosedThreshold != 0.25 || cfg.Detection.ConsecutiveFrames != 15 {
		t.Errorf("yaml detection values not applied: %+v", cfg.Detection)
	}
	if cfg.Detection.AlertCooldown != time.Minute {
		t.Errorf("expected 1m cooldown, got %v", cfg.Detection.AlertCooldown)
	}
	if cfg.SMS.AccountSID != "AC123" || cfg.SMS.AuthToken != "secret" || cfg.SMS.FromNumber != "+15550009999" {
		t.Errorf("twilio env overrides not applied: %+v", cfg.SMS)
	}
	if cfg.Server.Address != ":9001" {
		t.Errorf("expected PORT override, got %s", cfg.Server.Address)
	}
	if len(cfg.Server.TrustedProxies) != 2 {
		t.Errorf("expected two trusted proxies, got %v", cfg.Server.TrustedProxies)
	}
	if len(cfg.Alerts.EmergencyContacts) != 1 {
		t.Errorf("expected one emergency contact, got %v", cfg.Alerts.EmergencyContacts)
	}
	// Defaults survive for keys the file does not mention.
	if cfg.Detection.JPEGQuality != 85 {
		t.Errorf("expected default jpeg quality, got %d", cfg.Detection.JPEGQuality)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("SAFEDRIVE_EMERGENCY_CONTACTS", "+15550001111, +15550002222")

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("expected defaults, got error: %v", err)
	}
	if got := len(cfg.Alerts.EmergencyContacts); got != 2 {
		t.Fatalf("expected 2 contacts from env, got %d", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("detection: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}
