package shared

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Server      ServerConfig      `toml:"server"`
	Storage     StorageConfig     `toml:"storage"`
	Reconcile   ReconcileConfig   `toml:"reconcile"`
	Log         LogConfig         `toml:"log"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify   SpotifyConfig   `toml:"spotify"`
	Anthropic AnthropicConfig `toml:"anthropic"`
}

// SpotifyConfig contains Spotify API credentials.
//
// The URL fields are optional overrides, mostly useful against a local stub.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	AuthURL      string `toml:"auth_url,omitempty"`
	TokenURL     string `toml:"token_url,omitempty"`
	APIURL       string `toml:"api_url,omitempty"`
}

// AnthropicConfig contains the language model credentials used for song suggestions.
type AnthropicConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float64 `toml:"temperature"`
	BaseURL     string  `toml:"base_url,omitempty"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host                  string   `toml:"host"`
	Port                  int      `toml:"port"`
	APIPrefix             string   `toml:"api_prefix"`
	AllowedOrigins        []string `toml:"allowed_origins"`
	RequestTimeoutSeconds int      `toml:"request_timeout_seconds"`
	RateLimitPerMinute    int      `toml:"rate_limit_per_minute"`
	RateLimitBurst        int      `toml:"rate_limit_burst"`
	StateTTLSeconds       int      `toml:"state_ttl_seconds"`
}

// StorageConfig points at the brand profile directory.
type StorageConfig struct {
	BrandsDir string `toml:"brands_dir"`
}

// ReconcileConfig tunes playlist pagination and the outbound search throttle.
type ReconcileConfig struct {
	PageSize          int     `toml:"page_size"`
	TrackPageSize     int     `toml:"track_page_size"`
	MaxRetries        int     `toml:"max_retries"`
	RetryDelayMS      int     `toml:"retry_delay_ms"`
	SearchesPerSecond float64 `toml:"searches_per_second"`
}

// LogConfig selects the log level and output format.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Addr returns the host:port pair the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// RequestTimeout returns the per-request deadline.
func (s ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(s.RequestTimeoutSeconds) * time.Second
}

// StateTTL returns how long an issued OAuth state stays valid.
func (s ServerConfig) StateTTL() time.Duration {
	return time.Duration(s.StateTTLSeconds) * time.Second
}

// RetryDelay returns the fixed delay between pagination retries.
func (r ReconcileConfig) RetryDelay() time.Duration {
	return time.Duration(r.RetryDelayMS) * time.Millisecond
}

// Configured reports whether an API key is present.
func (a AnthropicConfig) Configured() bool {
	return strings.TrimSpace(a.APIKey) != ""
}

// Validate checks the settings required to serve requests.
func (c *Config) Validate() error {
	var missing []string
	if c.Credentials.Spotify.ClientID == "" {
		missing = append(missing, "credentials.spotify.client_id")
	}
	if c.Credentials.Spotify.ClientSecret == "" {
		missing = append(missing, "credentials.spotify.client_secret")
	}
	if c.Credentials.Spotify.RedirectURI == "" {
		missing = append(missing, "credentials.spotify.redirect_uri")
	}
	if c.Storage.BrandsDir == "" {
		missing = append(missing, "storage.brands_dir")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.Server.APIPrefix != "" && !strings.HasPrefix(c.Server.APIPrefix, "/") {
		return fmt.Errorf("%w: server.api_prefix must start with /", ErrInvalidConfig)
	}
	if c.Reconcile.PageSize <= 0 || c.Reconcile.TrackPageSize <= 0 || c.Reconcile.MaxRetries <= 0 {
		return fmt.Errorf("%w: reconcile page sizes and max_retries must be positive", ErrInvalidConfig)
	}
	return nil
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// ResolveConfig loads path when it exists (defaults otherwise), then applies .env and environment overrides.
func ResolveConfig(path string) (*Config, error) {
	config := DefaultConfig()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			loaded, err := LoadConfig(path)
			if err != nil {
				return nil, err
			}
			config = loaded
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	ApplyEnv(config)
	return config, nil
}

// ApplyEnv overrides config values with any environment variables that are set.
func ApplyEnv(c *Config) {
	c.Credentials.Spotify.ClientID = getEnvString("SPOTIFY_CLIENT_ID", c.Credentials.Spotify.ClientID)
	c.Credentials.Spotify.ClientSecret = getEnvString("SPOTIFY_CLIENT_SECRET", c.Credentials.Spotify.ClientSecret)
	c.Credentials.Spotify.RedirectURI = getEnvString("SPOTIFY_REDIRECT_URI", c.Credentials.Spotify.RedirectURI)
	c.Credentials.Anthropic.APIKey = getEnvString("ANTHROPIC_API_KEY", c.Credentials.Anthropic.APIKey)
	c.Credentials.Anthropic.Model = getEnvString("ANTHROPIC_MODEL", c.Credentials.Anthropic.Model)
	c.Server.Host = getEnvString("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("SERVER_PORT", c.Server.Port)
	c.Server.APIPrefix = getEnvString("API_PREFIX", c.Server.APIPrefix)
	c.Server.AllowedOrigins = getEnvList("ALLOWED_ORIGINS", c.Server.AllowedOrigins)
	c.Storage.BrandsDir = getEnvString("BRAND_PROFILES_DIR", c.Storage.BrandsDir)
	c.Log.Level = getEnvString("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnvString("LOG_FORMAT", c.Log.Format)
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// SaveConfig writes config to path as TOML, replacing any existing file.
func SaveConfig(path string, config *Config) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(config); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}

	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
