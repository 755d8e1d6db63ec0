package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Authentication modes. A deployment runs exactly one of them.
const (
	AuthModeToken  = "token"
	AuthModeHeader = "header"
)

// MinSigningKeyLen is the shortest HMAC key accepted for token signing.
const MinSigningKeyLen = 32

type Config struct {
	Port        string        `mapstructure:"PORT"`
	Env         string        `mapstructure:"ENV"`
	AuthMode    string        `mapstructure:"AUTH_MODE"`
	DatabaseURL string        `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL    string        `mapstructure:"REDIS_URL"`
	JWTKey      string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer   string        `mapstructure:"JWT_ISSUER"`
	JWTAudience string        `mapstructure:"JWT_AUDIENCE"`
	JWTTTL      time.Duration `mapstructure:"JWT_TTL"`
	BcryptCost  int           `mapstructure:"BCRYPT_COST"`

	VideoProvider       string `mapstructure:"VIDEO_PROVIDER"`
	VideoJitsiBaseURL   string `mapstructure:"VIDEO_JITSI_BASE_URL"`
	VideoRoomNameSecret string `mapstructure:"VIDEO_ROOM_NAME_SECRET"`

	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      int64         `mapstructure:"BODY_LIMIT"`
	TLSEnabled     bool          `mapstructure:"TLS_ENABLED"`
	TLSCertFile    string        `mapstructure:"TLS_CERT_FILE"`
	TLSKeyFile     string        `mapstructure:"TLS_KEY_FILE"`
}

var keys = []string{
	"PORT", "ENV", "AUTH_MODE",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "REDIS_URL",
	"JWT_SIGNING_KEY", "JWT_ISSUER", "JWT_AUDIENCE", "JWT_TTL", "BCRYPT_COST",
	"VIDEO_PROVIDER", "VIDEO_JITSI_BASE_URL", "VIDEO_ROOM_NAME_SECRET",
	"CORS_ORIGINS", "REQUEST_TIMEOUT", "BODY_LIMIT",
	"TLS_ENABLED", "TLS_CERT_FILE", "TLS_KEY_FILE",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_MODE", AuthModeToken)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("JWT_ISSUER", "mediconnect")
	v.SetDefault("JWT_AUDIENCE", "mediconnect-api")
	v.SetDefault("JWT_TTL", "6h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("VIDEO_PROVIDER", "jitsi")
	v.SetDefault("VIDEO_JITSI_BASE_URL", "https://meet.jit.si")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("REQUEST_TIMEOUT", "30s")
	v.SetDefault("BODY_LIMIT", 1<<20)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = splitList(origins)
		}
	}
	cfg.AuthMode = strings.ToLower(strings.TrimSpace(cfg.AuthMode))
	cfg.VideoProvider = strings.ToLower(strings.TrimSpace(cfg.VideoProvider))

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// HeaderMode reports whether requests are authenticated from trusted
// X-User-Id / X-User-Role headers instead of bearer tokens.
func (c *Config) HeaderMode() bool {
	return c.AuthMode == AuthModeHeader
}

// Validate checks that the configuration is safe to run. Token mode needs a
// signing key of at least MinSigningKeyLen bytes plus an issuer and audience.
func (c *Config) Validate() error {
	switch c.AuthMode {
	case AuthModeToken:
		if len(c.JWTKey) < MinSigningKeyLen {
			return fmt.Errorf("JWT_SIGNING_KEY must be at least %d bytes in token mode, got %d", MinSigningKeyLen, len(c.JWTKey))
		}
		if c.JWTIssuer == "" || c.JWTAudience == "" {
			return fmt.Errorf("JWT_ISSUER and JWT_AUDIENCE are required in token mode")
		}
		if c.JWTTTL <= 0 {
			return fmt.Errorf("JWT_TTL must be positive, got %s", c.JWTTTL)
		}
	case AuthModeHeader:
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeToken, AuthModeHeader, c.AuthMode)
	}

	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return fmt.Errorf("BCRYPT_COST must be between 4 and 31, got %d", c.BcryptCost)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}

	// TLS validation: when TLS is enabled, cert and key files must be specified.
	if c.TLSEnabled {
		if c.TLSCertFile == "" {
			return fmt.Errorf("TLS_CERT_FILE is required when TLS_ENABLED is true")
		}
		if c.TLSKeyFile == "" {
			return fmt.Errorf("TLS_KEY_FILE is required when TLS_ENABLED is true")
		}
	}

	return nil
}
