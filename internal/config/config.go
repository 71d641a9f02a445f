package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Env       string          `yaml:"env"`
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	JWT       JWTConfig       `yaml:"jwt"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Calendar  CalendarConfig  `yaml:"calendar"`
	AWS       AWSConfig       `yaml:"aws"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
	// StaticDir, when set, is served behind the session gate.
	StaticDir string `yaml:"static_dir"`
	// AllowedOrigins may make credentialed cross-origin requests.
	AllowedOrigins []string `yaml:"allowed_origins"`
	// TrustProxy takes the client address from X-Forwarded-For/X-Real-IP.
	// Enable only behind a proxy that sets those headers.
	TrustProxy bool `yaml:"trust_proxy"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	// URL takes precedence over the discrete fields below.
	URL      string `yaml:"url"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// SessionConfig holds session cookie configuration
type SessionConfig struct {
	CookieName string        `yaml:"cookie_name"`
	TTL        time.Duration `yaml:"ttl"`
}

// RateLimitConfig holds the login throttling configuration
type RateLimitConfig struct {
	LoginAttempts int           `yaml:"login_attempts"`
	Window        time.Duration `yaml:"window"`
}

// CalendarConfig holds external calendar configuration
type CalendarConfig struct {
	Provider   string `yaml:"provider"` // google | caldav
	CalendarID string `yaml:"calendar_id"`

	ServiceAccountEmail string `yaml:"service_account_email"`
	ServiceAccountKey   string `yaml:"service_account_key"`
	CredentialsFile     string `yaml:"credentials_file"`

	CalDAVEndpoint string `yaml:"caldav_endpoint"`
	CalDAVUsername string `yaml:"caldav_username"`
	CalDAVPassword string `yaml:"caldav_password"`

	FetchTimeout time.Duration `yaml:"fetch_timeout"`
	WindowMonths int           `yaml:"window_months"`
}

// AWSConfig holds S3 configuration for avatar uploads
type AWSConfig struct {
	Region    string `yaml:"region"`
	S3Bucket  string `yaml:"s3_bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"` // custom S3-compatible endpoint
	// PublicBaseURL is prefixed to object keys to build avatar URLs.
	PublicBaseURL string `yaml:"public_base_url"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file, applies environment overrides
// and defaults, and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"APP_ENV":                      &c.Env,
		"DATABASE_URL":                 &c.Database.URL,
		"JWT_SECRET":                   &c.JWT.Secret,
		"GOOGLE_CALENDAR_ID":           &c.Calendar.CalendarID,
		"GOOGLE_SERVICE_ACCOUNT_EMAIL": &c.Calendar.ServiceAccountEmail,
		"GOOGLE_SERVICE_ACCOUNT_KEY":   &c.Calendar.ServiceAccountKey,
		"LOG_LEVEL":                    &c.Log.Level,
	}
	for name, dst := range str {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := lookup("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		c.Server.AllowedOrigins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				c.Server.AllowedOrigins = append(c.Server.AllowedOrigins, origin)
			}
		}
	}
	if v, ok := lookup("TRUST_PROXY"); ok && v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid TRUST_PROXY %q: %w", v, err)
		}
		c.Server.TrustProxy = trust
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "session"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = 30 * 24 * time.Hour
	}
	if c.RateLimit.LoginAttempts == 0 {
		c.RateLimit.LoginAttempts = 5
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = time.Minute
	}
	if c.Calendar.Provider == "" {
		c.Calendar.Provider = "google"
	}
	if c.Calendar.FetchTimeout == 0 {
		c.Calendar.FetchTimeout = 30 * time.Second
	}
	if c.Calendar.WindowMonths == 0 {
		c.Calendar.WindowMonths = 6
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks the settings the server cannot start without.
func (c *Config) Validate() error {
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("jwt secret must be at least 32 bytes")
	}
	switch c.Calendar.Provider {
	case "google", "caldav":
	default:
		return fmt.Errorf("unknown calendar provider %q", c.Calendar.Provider)
	}
	return nil
}

// IsProduction reports whether cookies must be marked Secure.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// DSN returns the PostgreSQL connection URL
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.DBName,
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}
