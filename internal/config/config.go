package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Token         TokenConfig
	OAuth         OAuthConfig
	Security      SecurityConfig
	Observability ObservabilityConfig
	RateLimit     RateLimitConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// TokenConfig holds JWT signing configuration
type TokenConfig struct {
	PrivateKeyFile string
	PublicKeyFile  string
	Issuer         string
	AccessTTL      time.Duration
	RefreshTTL     time.Duration
	CookieSecure   bool
}

// OAuthConfig holds federated login configuration
type OAuthConfig struct {
	FrontendURL string
	Providers   map[string]ProviderConfig
}

// ProviderConfig holds one federated provider's registration. A provider
// is enabled when its client id is set.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
}

// SecurityConfig holds password hashing configuration
type SecurityConfig struct {
	Argon2Memory      uint32
	Argon2Iterations  uint32
	Argon2Parallelism uint8
	Argon2SaltLength  uint32
	Argon2KeyLength   uint32
}

// ObservabilityConfig holds logging and tracing configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string
	OTELEnabled    bool
	ServiceName    string
	ServiceVersion string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  parseDuration("SERVER_READ_TIMEOUT", "15s"),
			WriteTimeout: parseDuration("SERVER_WRITE_TIMEOUT", "15s"),
			IdleTimeout:  parseDuration("SERVER_IDLE_TIMEOUT", "60s"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "secureshop"),
			Password:        getEnv("DB_PASSWORD", ""),
			Database:        getEnv("DB_NAME", "secureshop"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:    parseInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    parseInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: parseDuration("DB_CONN_MAX_LIFETIME", "5m"),
		},
		Token: TokenConfig{
			PrivateKeyFile: getEnv("JWT_PRIVATE_KEY_FILE", "keys/private.pem"),
			PublicKeyFile:  getEnv("JWT_PUBLIC_KEY_FILE", "keys/public.pem"),
			Issuer:         getEnv("JWT_ISSUER", "secureshop"),
			AccessTTL:      parseDuration("JWT_ACCESS_TTL", "15m"),
			RefreshTTL:     parseDuration("JWT_REFRESH_TTL", "168h"),
			CookieSecure:   parseBool("JWT_COOKIE_SECURE", true),
		},
		OAuth: OAuthConfig{
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
			Providers:   loadProviders(),
		},
		Security: SecurityConfig{
			Argon2Memory:      uint32(parseInt("ARGON2_MEMORY", 65536)),
			Argon2Iterations:  uint32(parseInt("ARGON2_ITERATIONS", 3)),
			Argon2Parallelism: uint8(parseInt("ARGON2_PARALLELISM", 4)),
			Argon2SaltLength:  uint32(parseInt("ARGON2_SALT_LENGTH", 16)),
			Argon2KeyLength:   uint32(parseInt("ARGON2_KEY_LENGTH", 32)),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			OTELEnabled:    parseBool("OTEL_ENABLED", false),
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "secureshop"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "0.1.0"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: float64(parseInt("RATELIMIT_RPS", 10)),
			Burst:             parseInt("RATELIMIT_BURST", 20),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.Token.RefreshTTL <= c.Token.AccessTTL {
		return fmt.Errorf("JWT_REFRESH_TTL must exceed JWT_ACCESS_TTL")
	}
	if c.OAuth.FrontendURL == "" {
		return fmt.Errorf("FRONTEND_URL is required")
	}
	return nil
}

// providerDefaults carries the well-known endpoints for the providers the
// storefront registers with. Endpoints can still be overridden per env.
var providerDefaults = map[string]struct{ tokenURL, userInfoURL string }{
	"google": {
		tokenURL:    "https://oauth2.googleapis.com/token",
		userInfoURL: "https://openidconnect.googleapis.com/v1/userinfo",
	},
	"facebook": {
		tokenURL:    "https://graph.facebook.com/v18.0/oauth/access_token",
		userInfoURL: "https://graph.facebook.com/me?fields=id,name,email,picture",
	},
	"github": {
		tokenURL:    "https://github.com/login/oauth/access_token",
		userInfoURL: "https://api.github.com/user",
	},
}

func loadProviders() map[string]ProviderConfig {
	providers := make(map[string]ProviderConfig)
	for name, defaults := range providerDefaults {
		prefix := "OAUTH_" + strings.ToUpper(name) + "_"
		clientID := getEnv(prefix+"CLIENT_ID", "")
		if clientID == "" {
			continue
		}
		providers[name] = ProviderConfig{
			ClientID:     clientID,
			ClientSecret: getEnv(prefix+"CLIENT_SECRET", ""),
			TokenURL:     getEnv(prefix+"TOKEN_URL", defaults.tokenURL),
			UserInfoURL:  getEnv(prefix+"USERINFO_URL", defaults.userInfoURL),
			RedirectURL:  getEnv(prefix+"REDIRECT_URL", ""),
		}
	}
	return providers
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func parseBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func parseDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	d, err := time.ParseDuration(value)
	if err != nil {
		// Fallback to default
		d, _ = time.ParseDuration(defaultValue)
	}
	return d
}
