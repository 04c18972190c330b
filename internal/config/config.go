package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/kmkrofficial/signature/internal/core"
)

const (
	DefaultLoginPath        = "/admin/login"
	DefaultUnauthorizedPath = "/unauthorized"
	DefaultCookieName       = "signature_session"
	DefaultSessionTTL       = 7 * 24 * time.Hour
	DefaultVerifyTimeout    = 10 * time.Second
	DefaultContactWindow    = 15 * time.Minute
	DefaultSweepInterval    = 10 * time.Minute

	minSigningKeyLen = 32
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Gate     GateConfig     `yaml:"gate"`
	Issuers  []IssuerConfig `yaml:"issuers"`
	Sessions SessionConfig  `yaml:"sessions"`
	Content  ContentConfig  `yaml:"content"`
	Media    *MediaConfig   `yaml:"media"`
	Audit    AuditConfig    `yaml:"audit"`
	Tasks    TasksConfig    `yaml:"tasks"`
}

// ServerConfig holds the HTTP listener and session token settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// SigningKey is the HMAC key for session tokens. Must be at least 32 bytes.
	SigningKey string `yaml:"signing_key"`

	// SessionTTL is the hard lifetime of a session token, independent of the idle timeout.
	SessionTTL time.Duration `yaml:"session_ttl"`

	CookieName   string `yaml:"cookie_name"`
	CookieSecure bool   `yaml:"cookie_secure"`

	// LoginRatePerMinute limits password sign-in attempts per remote address.
	LoginRatePerMinute int `yaml:"login_rate_per_minute"`
}

// GateConfig holds the access gate policy.
type GateConfig struct {
	// AdminEmails is the allow-list. Empty means nobody is authorized.
	AdminEmails []string `yaml:"admin_emails"`

	IdleTimeout   time.Duration `yaml:"idle_timeout"`
	CheckInterval time.Duration `yaml:"check_interval"`

	// VerifyTimeout is how long a mounted region waits for the identity provider
	// before it gives up and denies access.
	VerifyTimeout time.Duration `yaml:"verify_timeout"`

	LoginPath        string `yaml:"login_path"`
	UnauthorizedPath string `yaml:"unauthorized_path"`
}

// IssuerConfig holds configuration for an Identity Provider.
type IssuerConfig struct {
	Name   string         `yaml:"name"`
	Type   string         `yaml:"type"`    // e.g., "oidc", "static"
	Config map[string]any `yaml:",inline"` // Capture remaining fields
}

// SessionConfig selects the backend for session activity records.
type SessionConfig struct {
	Backend string      `yaml:"backend"` // "memory", "sqlite", "redis"
	Path    string      `yaml:"path"`    // sqlite only
	Redis   RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// ContentConfig holds the document store location.
type ContentConfig struct {
	Path string `yaml:"path"`

	// ContactWindow is the minimum time between two contact messages from the same sender.
	ContactWindow time.Duration `yaml:"contact_window"`
}

// MediaConfig configures the S3 compatible image bucket.
type MediaConfig struct {
	Bucket   string `yaml:"bucket"`
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`

	// PublicBaseURL is prefixed to object keys to build public URLs.
	// If empty, it is derived from Endpoint by replacing "/s3" with "/object/public".
	PublicBaseURL string `yaml:"public_base_url"`

	// AccessKeyID and SecretAccessKey are optional static credentials.
	// Without them the default AWS credential chain is used.
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

// AuditConfig holds configuration for auditing.
type AuditConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
	Type    string `yaml:"type"` // e.g., "file", "memory"
}

// TasksConfig configures background tasks.
type TasksConfig struct {
	KeepAliveURL      string        `yaml:"keep_alive_url"`
	KeepAliveInterval time.Duration `yaml:"keep_alive_interval"`
	SweepInterval     time.Duration `yaml:"sweep_interval"`
}

// Load reads and parses the configuration file at the given path.
// It returns a Config struct or an error if loading/parsing/validation fails.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config file: %w", err)
	}
	return &cfg, nil
}

// ApplyDefaults fills in zero values.
func (c *Config) ApplyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.SessionTTL == 0 {
		c.Server.SessionTTL = DefaultSessionTTL
	}
	if c.Server.CookieName == "" {
		c.Server.CookieName = DefaultCookieName
	}
	if c.Server.LoginRatePerMinute == 0 {
		c.Server.LoginRatePerMinute = 10
	}

	if c.Gate.IdleTimeout == 0 {
		c.Gate.IdleTimeout = core.DefaultIdleTimeout
	}
	if c.Gate.CheckInterval == 0 {
		c.Gate.CheckInterval = core.DefaultCheckInterval
	}
	if c.Gate.VerifyTimeout == 0 {
		c.Gate.VerifyTimeout = DefaultVerifyTimeout
	}
	if c.Gate.LoginPath == "" {
		c.Gate.LoginPath = DefaultLoginPath
	}
	if c.Gate.UnauthorizedPath == "" {
		c.Gate.UnauthorizedPath = DefaultUnauthorizedPath
	}

	if c.Sessions.Backend == "" {
		c.Sessions.Backend = "memory"
	}
	if c.Sessions.Redis.Prefix == "" {
		c.Sessions.Redis.Prefix = "signature:session:"
	}

	if c.Content.Path == "" {
		c.Content.Path = "signature.db"
	}
	if c.Content.ContactWindow == 0 {
		c.Content.ContactWindow = DefaultContactWindow
	}

	if c.Media != nil && c.Media.Region == "" {
		c.Media.Region = "us-east-1"
	}

	if c.Tasks.SweepInterval == 0 {
		c.Tasks.SweepInterval = DefaultSweepInterval
	}
	if c.Tasks.KeepAliveURL != "" && c.Tasks.KeepAliveInterval == 0 {
		c.Tasks.KeepAliveInterval = 24 * time.Hour
	}
}

func (c *Config) Validate() error {
	if len(c.Server.SigningKey) < minSigningKeyLen {
		return fmt.Errorf("server.signing_key must be at least %d bytes", minSigningKeyLen)
	}
	if c.Gate.IdleTimeout < 0 || c.Gate.CheckInterval <= 0 || c.Gate.VerifyTimeout <= 0 {
		return fmt.Errorf("gate timings must be positive")
	}
	if !strings.HasPrefix(c.Gate.LoginPath, "/") || !strings.HasPrefix(c.Gate.UnauthorizedPath, "/") {
		return fmt.Errorf("gate paths must be absolute")
	}
	if c.Gate.LoginPath == c.Gate.UnauthorizedPath {
		return fmt.Errorf("gate.login_path and gate.unauthorized_path must differ")
	}

	if len(c.Issuers) == 0 {
		return fmt.Errorf("at least one issuer is required")
	}
	seen := make(map[string]struct{})
	for idx, i := range c.Issuers {
		if i.Name == "" {
			return fmt.Errorf("issuer at index %d has empty name", idx)
		}
		if _, dup := seen[i.Name]; dup {
			return fmt.Errorf("issuer name '%s' is not unique", i.Name)
		}
		seen[i.Name] = struct{}{}
	}

	switch c.Sessions.Backend {
	case "memory":
	case "sqlite":
		if c.Sessions.Path == "" {
			return fmt.Errorf("sessions.path is required for the sqlite backend")
		}
	case "redis":
		if c.Sessions.Redis.Addr == "" {
			return fmt.Errorf("sessions.redis.addr is required for the redis backend")
		}
	default:
		return fmt.Errorf("unknown sessions.backend '%s'", c.Sessions.Backend)
	}

	if c.Media != nil && c.Media.Bucket == "" {
		return fmt.Errorf("media.bucket is required when media is configured")
	}

	if c.Audit.Enabled {
		switch c.Audit.Type {
		case "memory":
		case "file":
			if c.Audit.Path == "" {
				return fmt.Errorf("audit.path is required for the file auditor")
			}
		default:
			return fmt.Errorf("unknown audit.type '%s'", c.Audit.Type)
		}
	}

	return nil
}

// SplitList splits a comma separated list, dropping empty items.
// Used for allow-lists passed through the environment.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
