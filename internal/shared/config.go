package shared

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the fleet configuration loaded from a TOML file, optionally
// overridden from the environment via [Config.ApplyEnv].
type Config struct {
	Spotify   SpotifyConfig   `toml:"spotify"`
	Auth      AuthConfig      `toml:"auth"`
	Upstream  UpstreamConfig  `toml:"upstream"`
	RateLimit RateLimitConfig `toml:"ratelimit"`
	Services  ServicesConfig  `toml:"services"`
}

// SpotifyConfig contains the Spotify application credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	CallbackURL  string `toml:"callback_url"`
}

// AuthConfig contains the secrets shared by every service and the origin the
// static client is served from.
type AuthConfig struct {
	JWTSecret     string `toml:"jwt_secret"`
	SessionSecret string `toml:"session_secret"`
	ClientOrigin  string `toml:"client_origin"`
}

// UpstreamConfig contains the Spotify Web API endpoints and the request timeout.
//
// The URLs are configurable so tests can point the gateway at a local server.
type UpstreamConfig struct {
	BaseURL        string `toml:"base_url"`
	AuthURL        string `toml:"auth_url"`
	TokenURL       string `toml:"token_url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// RateLimitConfig is the per-client request budget over a rolling window.
type RateLimitConfig struct {
	Requests      int `toml:"requests"`
	WindowMinutes int `toml:"window_minutes"`
}

// ServicesConfig holds the per-service listen and fault-injection settings.
type ServicesConfig struct {
	Auth     ServiceConfig `toml:"auth"`
	UserData ServiceConfig `toml:"userdata"`
	Genres   ServiceConfig `toml:"genres"`
}

// ServiceConfig contains settings for a single HTTP service.
type ServiceConfig struct {
	Host      string  `toml:"host"`
	Port      int     `toml:"port"`
	FaultRate float64 `toml:"fault_rate"`
}

// Addr returns the host:port listen address for the service.
func (s ServiceConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s: %w", path, err)
	}

	// Write the embedded example config to the file
	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// ApplyEnv overrides configuration values from the environment. Unset or
// malformed variables leave the file-supplied value in place.
func (c *Config) ApplyEnv() {
	setString(&c.Spotify.ClientID, "SPOTIFY_CLIENT_ID")
	setString(&c.Spotify.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	setString(&c.Spotify.CallbackURL, "SPOTIFY_CALLBACK_URL")
	setString(&c.Auth.JWTSecret, "JWT_SECRET")
	setString(&c.Auth.SessionSecret, "SESSION_SECRET")
	setString(&c.Auth.ClientOrigin, "CLIENT_ORIGIN")
	setPort(&c.Services.Auth.Port, "AUTH_PORT")
	setPort(&c.Services.UserData.Port, "USERDATA_PORT")
	setPort(&c.Services.Genres.Port, "GENRES_PORT")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setPort(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			*dst = port
		}
	}
}
