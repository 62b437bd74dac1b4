package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Auth       AuthConfig       `yaml:"auth"`
	Push       PushConfig       `yaml:"push"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Tokens     TokenConfig      `yaml:"tokens"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// AuthConfig holds the bearer-token verification secret. Token issuance
// lives in the external auth service.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// PushConfig holds the push gateway credentials: an FCM service account for
// mobile tokens and VAPID keys for web push.
type PushConfig struct {
	FCMCredentialsFile string `yaml:"fcm_credentials_file"`
	VAPIDPublicKey     string `yaml:"vapid_public_key"`
	VAPIDPrivateKey    string `yaml:"vapid_private_key"`
	Subject            string `yaml:"subject"`
	TTL                int    `yaml:"ttl"`
}

// DispatcherConfig tunes the notification fan-out worker pool.
type DispatcherConfig struct {
	Workers            int           `yaml:"workers"`
	SendTimeoutSeconds int           `yaml:"send_timeout_seconds"`
	SendTimeout        time.Duration `yaml:"-"` // Ignored by YAML parser
}

// TokenConfig tunes device-token freshness and retention.
type TokenConfig struct {
	FreshnessHours       int           `yaml:"freshness_hours"`
	RetentionDays        int           `yaml:"retention_days"`
	SweepIntervalMinutes int           `yaml:"sweep_interval_minutes"`
	FreshnessWindow      time.Duration `yaml:"-"`
	RetentionWindow      time.Duration `yaml:"-"`
	SweepInterval        time.Duration `yaml:"-"`
}

// Load reads the configuration from the given path. Secrets may be supplied
// through the environment instead of the file.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.Dispatcher.Workers <= 0 {
		log.Printf("dispatcher.workers is not set or invalid; defaulting to 16")
		cfg.Dispatcher.Workers = 16
	}
	if cfg.Dispatcher.SendTimeoutSeconds <= 0 {
		cfg.Dispatcher.SendTimeoutSeconds = 10
	}
	cfg.Dispatcher.SendTimeout = time.Duration(cfg.Dispatcher.SendTimeoutSeconds) * time.Second

	if cfg.Tokens.FreshnessHours <= 0 {
		cfg.Tokens.FreshnessHours = 7 * 24
	}
	if cfg.Tokens.RetentionDays <= 0 {
		cfg.Tokens.RetentionDays = 30
	}
	if cfg.Tokens.SweepIntervalMinutes <= 0 {
		cfg.Tokens.SweepIntervalMinutes = 60
	}
	cfg.Tokens.FreshnessWindow = time.Duration(cfg.Tokens.FreshnessHours) * time.Hour
	cfg.Tokens.RetentionWindow = time.Duration(cfg.Tokens.RetentionDays) * 24 * time.Hour
	cfg.Tokens.SweepInterval = time.Duration(cfg.Tokens.SweepIntervalMinutes) * time.Minute

	return &cfg, nil
}

// applyEnvOverrides lets deployments keep secrets out of the config file.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATABASE_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("FCM_CREDENTIALS_FILE"); v != "" {
		cfg.Push.FCMCredentialsFile = v
	}
	if v := os.Getenv("VAPID_PUBLIC_KEY"); v != "" {
		cfg.Push.VAPIDPublicKey = v
	}
	if v := os.Getenv("VAPID_PRIVATE_KEY"); v != "" {
		cfg.Push.VAPIDPrivateKey = v
	}
}
