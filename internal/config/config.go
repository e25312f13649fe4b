// Package config loads habitual's settings from defaults, an optional YAML
// file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration errors.
var (
	ErrMissingDatabaseURL = errors.New("missing database URL (set HABITUAL_DATABASE_URL or DATABASE_URL)")
	ErrMissingResetSecret = errors.New("missing password reset secret (set HABITUAL_AUTH_RESET_SECRET)")
	ErrIncompleteOAuth    = errors.New("oauth requires client_id, client_secret, auth_url, token_url and userinfo_url")
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "HABITUAL"

// Config is the complete application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig configures the HTTP listener, cookies and sessions.
type ServerConfig struct {
	Addr           string        `mapstructure:"addr"`
	BaseURL        string        `mapstructure:"base_url"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	SecureCookies  bool          `mapstructure:"secure_cookies"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	SessionStore   string        `mapstructure:"session_store"` // "db" or "memory"
}

// DatabaseConfig holds the PostgreSQL connection string.
type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

// RedisConfig configures the optional template cache.
type RedisConfig struct {
	URL         string        `mapstructure:"url"` // empty disables the template cache
	TemplateTTL time.Duration `mapstructure:"template_ttl"`
}

// AuthConfig configures password resets and the OAuth provider.
type AuthConfig struct {
	ResetSecret string        `mapstructure:"reset_secret"`
	ResetTTL    time.Duration `mapstructure:"reset_ttl"`
	OAuth       OAuthConfig   `mapstructure:"oauth"`
}

// OAuthConfig configures the provider behind /auth/callback. It is optional.
type OAuthConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	AuthURL      string   `mapstructure:"auth_url"`
	TokenURL     string   `mapstructure:"token_url"`
	UserInfoURL  string   `mapstructure:"userinfo_url"`
	RedirectURL  string   `mapstructure:"redirect_url"`
	Scopes       []string `mapstructure:"scopes"`
}

// Enabled reports whether any OAuth setting was provided.
func (o OAuthConfig) Enabled() bool {
	return o.ClientID != "" || o.ClientSecret != "" || o.TokenURL != ""
}

// LoggingConfig configures the zap logger. An empty File logs to stderr only.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.secure_cookies", false)
	v.SetDefault("server.session_ttl", 7*24*time.Hour)
	v.SetDefault("server.session_store", "db")
	v.SetDefault("database.url", "")
	v.SetDefault("redis.url", "")
	v.SetDefault("redis.template_ttl", 10*time.Minute)
	v.SetDefault("auth.reset_secret", "")
	v.SetDefault("auth.reset_ttl", time.Hour)
	v.SetDefault("auth.oauth.client_id", "")
	v.SetDefault("auth.oauth.client_secret", "")
	v.SetDefault("auth.oauth.auth_url", "")
	v.SetDefault("auth.oauth.token_url", "")
	v.SetDefault("auth.oauth.userinfo_url", "")
	v.SetDefault("auth.oauth.redirect_url", "")
	v.SetDefault("auth.oauth.scopes", []string{"openid", "email"})
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")
}

// Load reads configuration. configPath may be empty; HABITUAL_CONFIG is used
// in that case, and no file at all is fine. Environment variables such as
// HABITUAL_SERVER_ADDR override file values. DATABASE_URL and REDIS_URL are
// honored when the prefixed variables are unset.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if configPath == "" {
		configPath = os.Getenv(EnvPrefix + "_CONFIG")
	}
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range map[string]string{
		"database.url": "DATABASE_URL",
		"redis.url":    "REDIS_URL",
	} {
		if v.GetString(key) == "" {
			if value := os.Getenv(env); value != "" {
				v.Set(key, value)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	return &cfg, nil
}

// Validate reports missing settings required to serve requests.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return ErrMissingDatabaseURL
	}
	if c.Auth.ResetSecret == "" {
		return ErrMissingResetSecret
	}
	if o := c.Auth.OAuth; o.Enabled() {
		if o.ClientID == "" || o.ClientSecret == "" || o.AuthURL == "" || o.TokenURL == "" || o.UserInfoURL == "" {
			return ErrIncompleteOAuth
		}
	}
	switch c.Server.SessionStore {
	case "db", "memory":
	default:
		return fmt.Errorf("unknown session store %q", c.Server.SessionStore)
	}
	return nil
}
