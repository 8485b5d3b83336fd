package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Services.Auth.Port != 3000 {
			t.Errorf("expected auth port 3000, got %d", config.Services.Auth.Port)
		}
		if config.Services.UserData.Port != 3001 {
			t.Errorf("expected userdata port 3001, got %d", config.Services.UserData.Port)
		}
		if config.Services.Genres.Port != 3002 {
			t.Errorf("expected genres port 3002, got %d", config.Services.Genres.Port)
		}

		if config.Upstream.BaseURL != "https://api.spotify.com/v1" {
			t.Errorf("expected public API base URL, got %s", config.Upstream.BaseURL)
		}

		if config.RateLimit.Requests != 100 || config.RateLimit.WindowMinutes != 15 {
			t.Errorf("expected 100 requests / 15 minutes, got %d / %d",
				config.RateLimit.Requests, config.RateLimit.WindowMinutes)
		}

		if config.Services.UserData.FaultRate != 0.10 {
			t.Errorf("expected userdata fault rate 0.10, got %f", config.Services.UserData.FaultRate)
		}
		if config.Services.Genres.FaultRate != 0.05 {
			t.Errorf("expected genres fault rate 0.05, got %f", config.Services.Genres.FaultRate)
		}
	})

	t.Run("Addr", func(t *testing.T) {
		svc := ServiceConfig{Host: "localhost", Port: 3001}
		if svc.Addr() != "localhost:3001" {
			t.Errorf("expected localhost:3001, got %s", svc.Addr())
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		if _, err := os.Stat(configPath); err != nil {
			t.Fatalf("config file should exist: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Services.Auth.Port != defaultConfig.Services.Auth.Port {
			t.Errorf("created config auth port doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[spotify]
client_id = "test_client_id"
client_secret = "test_secret"
callback_url = "http://localhost:4000/auth/callback"

[auth]
jwt_secret = "file-jwt-secret"
session_secret = "file-session-secret"
client_origin = "http://localhost:4003"

[ratelimit]
requests = 10
window_minutes = 1

[services.auth]
host = "0.0.0.0"
port = 4000
fault_rate = 0.25
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected spotify client_id test_client_id, got %s", config.Spotify.ClientID)
		}
		if config.Auth.JWTSecret != "file-jwt-secret" {
			t.Errorf("expected jwt secret from file, got %s", config.Auth.JWTSecret)
		}
		if config.Services.Auth.Addr() != "0.0.0.0:4000" {
			t.Errorf("expected 0.0.0.0:4000, got %s", config.Services.Auth.Addr())
		}
		if config.Services.Auth.FaultRate != 0.25 {
			t.Errorf("expected fault rate 0.25, got %f", config.Services.Auth.FaultRate)
		}
	})

	t.Run("ApplyEnv", func(t *testing.T) {
		t.Setenv("SPOTIFY_CLIENT_ID", "env-client-id")
		t.Setenv("JWT_SECRET", "env-jwt-secret")
		t.Setenv("CLIENT_ORIGIN", "http://example.com")
		t.Setenv("USERDATA_PORT", "5001")
		t.Setenv("GENRES_PORT", "not-a-port")

		config := DefaultConfig()
		config.ApplyEnv()

		if config.Spotify.ClientID != "env-client-id" {
			t.Errorf("expected env override for client id, got %s", config.Spotify.ClientID)
		}
		if config.Auth.JWTSecret != "env-jwt-secret" {
			t.Errorf("expected env override for jwt secret, got %s", config.Auth.JWTSecret)
		}
		if config.Auth.ClientOrigin != "http://example.com" {
			t.Errorf("expected env override for client origin, got %s", config.Auth.ClientOrigin)
		}
		if config.Services.UserData.Port != 5001 {
			t.Errorf("expected env override for userdata port, got %d", config.Services.UserData.Port)
		}
		if config.Services.Genres.Port != 3002 {
			t.Errorf("malformed port override should be ignored, got %d", config.Services.Genres.Port)
		}
	})
}
