package config

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"safedrive/pkg/validation"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Address string `yaml:"address"`
		// TrustedProxies lists proxy CIDRs whose X-Forwarded-For is believed.
		TrustedProxies  []string      `yaml:"trusted_proxies"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`

	WebSocket struct {
		Path           string        `yaml:"path"`
		PingInterval   time.Duration `yaml:"ping_interval"`
		ReadTimeout    time.Duration `yaml:"read_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		AllowedOrigins []string      `yaml:"allowed_origins"`
	} `yaml:"websocket"`

	Detection struct {
		EyeClosedThreshold float64       `yaml:"eye_closed_threshold"`
		ConsecutiveFrames  uint          `yaml:"consecutive_frames"`
		AlertCooldown      time.Duration `yaml:"alert_cooldown"`
		JPEGQuality        int           `yaml:"jpeg_quality"`
		MaxFrameWidth      int           `yaml:"max_frame_width"`
		MaxFrameHeight     int           `yaml:"max_frame_height"`
		AnnotateFrames     bool          `yaml:"annotate_frames"`
		DispatchTimeout    time.Duration `yaml:"dispatch_timeout"`
	} `yaml:"detection"`

	Detector struct {
		Address          string        `yaml:"address"`
		CallTimeout      time.Duration `yaml:"call_timeout"`
		StartupTimeout   time.Duration `yaml:"startup_timeout"`
		MaxMessageSizeMB int           `yaml:"max_message_size_mb"`
		FailureThreshold int           `yaml:"failure_threshold"`
		OpenTimeout      time.Duration `yaml:"open_timeout"`
	} `yaml:"detector"`

	SMS struct {
		Provider   string `yaml:"provider"` // "twilio" or "log"
		AccountSID string `yaml:"account_sid"`
		AuthToken  string `yaml:"auth_token"`
		FromNumber string `yaml:"from_number"`
	} `yaml:"sms"`

	Alerts struct {
		EmergencyContacts []string `yaml:"emergency_contacts"`
	} `yaml:"alerts"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
	} `yaml:"monitoring"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Tracing struct {
		Enabled     bool    `yaml:"enabled"`
		JaegerURL   string  `yaml:"jaeger_url"`
		Environment string  `yaml:"environment"`
		SampleRate  float64 `yaml:"sample_rate"`
	} `yaml:"tracing"`

	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Address  string `yaml:"address"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		PoolSize int    `yaml:"pool_size"`
		Channel  string `yaml:"channel"`
	} `yaml:"redis"`

	Auth struct {
		Enabled        bool          `yaml:"enabled"`
		JWTSecret      string        `yaml:"jwt_secret"`
		AccessTokenTTL time.Duration `yaml:"access_token_ttl"`
	} `yaml:"auth"`

	RateLimiting struct {
		Enabled bool `yaml:"enabled"`

		HTTP struct {
			RequestsPerSecond float64 `yaml:"requests_per_second"`
			Burst             int     `yaml:"burst"`
			MaxConcurrent     int     `yaml:"max_concurrent"` // global concurrent HTTP requests
		} `yaml:"http"`

		WebSocket struct {
			FramesPerSecond     float64 `yaml:"frames_per_second"`
			Burst               int     `yaml:"burst"`
			MaxConcurrent       int     `yaml:"max_concurrent_connections"`
			MaxMessageSizeBytes int64   `yaml:"max_message_size_bytes"`
		} `yaml:"websocket"`
	} `yaml:"rate_limiting"`
}

// Validate checks that configuration values are within acceptable ranges.
func (c *Config) Validate() error {
	// Server
	if c.Server.Address == "" {
		return fmt.Errorf("server.address must not be empty")
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be > 0")
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be > 0")
	}
	if c.Server.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0")
	}
	for _, proxy := range c.Server.TrustedProxies {
		if !validProxy(proxy) {
			return fmt.Errorf("server.trusted_proxies: %q is not an IP or CIDR", proxy)
		}
	}

	// WebSocket
	if !strings.HasPrefix(c.WebSocket.Path, "/") {
		return fmt.Errorf("websocket.path must start with '/'")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("websocket.ping_interval must be > 0")
	}
	if c.WebSocket.ReadTimeout <= c.WebSocket.PingInterval {
		return fmt.Errorf("websocket.read_timeout must be greater than websocket.ping_interval")
	}
	if c.WebSocket.WriteTimeout <= 0 {
		return fmt.Errorf("websocket.write_timeout must be > 0")
	}

	// Detection
	if c.Detection.EyeClosedThreshold <= 0 || c.Detection.EyeClosedThreshold >= 1 {
		return fmt.Errorf("detection.eye_closed_threshold must be in (0, 1)")
	}
	if c.Detection.ConsecutiveFrames == 0 {
		return fmt.Errorf("detection.consecutive_frames must be > 0")
	}
	if c.Detection.AlertCooldown < 0 {
		return fmt.Errorf("detection.alert_cooldown must be >= 0")
	}
	if c.Detection.JPEGQuality < 1 || c.Detection.JPEGQuality > 100 {
		return fmt.Errorf("detection.jpeg_quality must be between 1 and 100")
	}
	if c.Detection.MaxFrameWidth <= 0 || c.Detection.MaxFrameHeight <= 0 {
		return fmt.Errorf("detection.max_frame_width and detection.max_frame_height must be > 0")
	}
	if c.Detection.DispatchTimeout <= 0 {
		return fmt.Errorf("detection.dispatch_timeout must be > 0")
	}

	// Detector
	if c.Detector.Address == "" {
		return fmt.Errorf("detector.address must not be empty")
	}
	if c.Detector.CallTimeout <= 0 {
		return fmt.Errorf("detector.call_timeout must be > 0")
	}
	if c.Detector.StartupTimeout <= 0 {
		return fmt.Errorf("detector.startup_timeout must be > 0")
	}
	if c.Detector.MaxMessageSizeMB <= 0 {
		return fmt.Errorf("detector.max_message_size_mb must be > 0")
	}
	if c.Detector.FailureThreshold <= 0 {
		return fmt.Errorf("detector.failure_threshold must be > 0")
	}
	if c.Detector.OpenTimeout <= 0 {
		return fmt.Errorf("detector.open_timeout must be > 0")
	}

	// SMS. Missing Twilio credentials are not a config error: the dispatcher
	// reports the channel as unavailable per batch instead.
	switch c.SMS.Provider {
	case "twilio", "log":
	default:
		return fmt.Errorf("sms.provider must be 'twilio' or 'log', got %q", c.SMS.Provider)
	}

	// Alerts
	if err := validation.ValidatePhoneNumbers(c.Alerts.EmergencyContacts); err != nil {
		return fmt.Errorf("alerts.emergency_contacts: %w", err)
	}

	// Logging
	if c.Logging.Level == "" {
		return fmt.Errorf("logging.level must not be empty")
	}

	// Tracing
	if c.Tracing.Enabled {
		if c.Tracing.JaegerURL == "" {
			return fmt.Errorf("tracing.jaeger_url must not be empty when tracing.enabled=true")
		}
		if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
			return fmt.Errorf("tracing.sample_rate must be between 0 and 1")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Address == "" {
			return fmt.Errorf("redis.address must not be empty when redis.enabled=true")
		}
		if c.Redis.PoolSize <= 0 {
			return fmt.Errorf("redis.pool_size must be > 0 when redis.enabled=true")
		}
		if c.Redis.Channel == "" {
			return fmt.Errorf("redis.channel must not be empty when redis.enabled=true")
		}
	}

	// Auth
	if c.Auth.Enabled {
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwt_secret must not be empty when auth.enabled=true")
		}
		if c.Auth.AccessTokenTTL <= 0 {
			return fmt.Errorf("auth.access_token_ttl must be > 0")
		}
	}

	// Rate limiting
	if c.RateLimiting.Enabled {
		if c.RateLimiting.HTTP.RequestsPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.http.requests_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.Burst <= 0 {
			return fmt.Errorf("rate_limiting.http.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.HTTP.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.http.max_concurrent must be >= 0 when rate limiting is enabled")
		}
		if c.RateLimiting.WebSocket.FramesPerSecond <= 0 {
			return fmt.Errorf("rate_limiting.websocket.frames_per_second must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.WebSocket.Burst <= 0 {
			return fmt.Errorf("rate_limiting.websocket.burst must be > 0 when rate limiting is enabled")
		}
		if c.RateLimiting.WebSocket.MaxConcurrent < 0 {
			return fmt.Errorf("rate_limiting.websocket.max_concurrent_connections must be >= 0 when rate limiting is enabled")
		}
	}
	if c.RateLimiting.WebSocket.MaxMessageSizeBytes < 0 {
		return fmt.Errorf("rate_limiting.websocket.max_message_size_bytes must be >= 0")
	}

	return nil
}

// Load reads configuration from YAML file, applies defaults and env overrides.
// A .env file in the working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config yaml: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file %s: %w", configPath, err)
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns configuration with sane defaults.
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Server.Address = ":8001"
	cfg.Server.ReadTimeout = 30 * time.Second
	cfg.Server.WriteTimeout = 30 * time.Second
	cfg.Server.ShutdownTimeout = 30 * time.Second

	cfg.WebSocket.Path = "/ws/drowsiness"
	cfg.WebSocket.PingInterval = 30 * time.Second
	cfg.WebSocket.ReadTimeout = 60 * time.Second
	cfg.WebSocket.WriteTimeout = 10 * time.Second
	cfg.WebSocket.AllowedOrigins = []string{"*"}

	cfg.Detection.EyeClosedThreshold = 0.3
	cfg.Detection.ConsecutiveFrames = 30
	cfg.Detection.AlertCooldown = 300 * time.Second
	cfg.Detection.JPEGQuality = 85
	cfg.Detection.MaxFrameWidth = 1920
	cfg.Detection.MaxFrameHeight = 1080
	cfg.Detection.AnnotateFrames = true
	cfg.Detection.DispatchTimeout = 30 * time.Second

	cfg.Detector.Address = "localhost:50051"
	cfg.Detector.CallTimeout = 5 * time.Second
	cfg.Detector.StartupTimeout = 10 * time.Second
	cfg.Detector.MaxMessageSizeMB = 50
	cfg.Detector.FailureThreshold = 5
	cfg.Detector.OpenTimeout = 10 * time.Second

	cfg.SMS.Provider = "twilio"

	cfg.Monitoring.PrometheusEnabled = true

	cfg.Logging.Level = "info"
	cfg.Logging.Format = "json"

	cfg.Tracing.Enabled = false
	cfg.Tracing.JaegerURL = "http://localhost:14268/api/traces"
	cfg.Tracing.Environment = "development"
	cfg.Tracing.SampleRate = 1.0

	cfg.Redis.Enabled = false
	cfg.Redis.Address = "localhost:6379"
	cfg.Redis.DB = 0
	cfg.Redis.PoolSize = 10
	cfg.Redis.Channel = "safedrive:events"

	cfg.Auth.Enabled = false
	cfg.Auth.AccessTokenTTL = 15 * time.Minute

	// Rate limiting defaults (disabled by default)
	cfg.RateLimiting.Enabled = false
	cfg.RateLimiting.HTTP.RequestsPerSecond = 50
	cfg.RateLimiting.HTTP.Burst = 100
	cfg.RateLimiting.HTTP.MaxConcurrent = 0
	cfg.RateLimiting.WebSocket.FramesPerSecond = 60
	cfg.RateLimiting.WebSocket.Burst = 120
	cfg.RateLimiting.WebSocket.MaxConcurrent = 0
	cfg.RateLimiting.WebSocket.MaxMessageSizeBytes = 4 * 1024 * 1024

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if addr := os.Getenv("SAFEDRIVE_SERVER_ADDRESS"); addr != "" {
		c.Server.Address = addr
	} else if port := os.Getenv("PORT"); port != "" {
		c.Server.Address = ":" + port
	}
	if addr := os.Getenv("SAFEDRIVE_DETECTOR_ADDRESS"); addr != "" {
		c.Detector.Address = addr
	}
	if level := os.Getenv("SAFEDRIVE_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if secret := os.Getenv("SAFEDRIVE_JWT_SECRET"); secret != "" {
		c.Auth.JWTSecret = secret
	}
	if contacts := os.Getenv("SAFEDRIVE_EMERGENCY_CONTACTS"); contacts != "" {
		c.Alerts.EmergencyContacts = splitList(contacts)
	}

	if sid := os.Getenv("TWILIO_ACCOUNT_SID"); sid != "" {
		c.SMS.AccountSID = sid
	}
	if token := os.Getenv("TWILIO_AUTH_TOKEN"); token != "" {
		c.SMS.AuthToken = token
	}
	if from := os.Getenv("TWILIO_PHONE_NUMBER"); from != "" {
		c.SMS.FromNumber = from
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func validProxy(proxy string) bool {
	if strings.Contains(proxy, "/") {
		_, _, err := net.ParseCIDR(proxy)
		return err == nil
	}
	return net.ParseIP(proxy) != nil
}
