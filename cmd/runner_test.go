package main

import (
	"bytes"
	"io"
	"testing"

	"github.com/mvaldes/spotistats/internal/shared"
)

func testRunner() *Runner {
	config := shared.DefaultConfig()
	config.Auth.JWTSecret = "test-jwt-secret"
	config.Auth.SessionSecret = "test-session-secret"

	return NewRunner(RunnerOpts{
		Config: config,
		Logger: shared.NewLogger(io.Discard),
		Output: &bytes.Buffer{},
	})
}

func TestRunner(t *testing.T) {
	t.Run("Registers Commands", func(t *testing.T) {
		commands := testRunner().register()
		if len(commands) != 2 {
			t.Fatalf("expected 2 commands, got %d", len(commands))
		}

		names := map[string]bool{}
		for _, cmd := range commands {
			names[cmd.Name] = true
		}
		for _, want := range []string{"serve", "init"} {
			if !names[want] {
				t.Errorf("expected %s command to be registered", want)
			}
		}
	})

	t.Run("BuildApps", func(t *testing.T) {
		t.Run("Single Service", func(t *testing.T) {
			apps, err := testRunner().buildApps("genres")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(apps) != 1 {
				t.Fatalf("expected 1 app, got %d", len(apps))
			}
			if apps[0].Name() != "genres" {
				t.Errorf("expected genres app, got %s", apps[0].Name())
			}
		})

		t.Run("All Services", func(t *testing.T) {
			apps, err := testRunner().buildApps("all")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(apps) != 3 {
				t.Errorf("expected 3 apps, got %d", len(apps))
			}
		})

		t.Run("Unknown Service", func(t *testing.T) {
			if _, err := testRunner().buildApps("billing"); err == nil {
				t.Error("expected error for unknown service")
			}
		})

		t.Run("Fails Without Signing Secret", func(t *testing.T) {
			runner := testRunner()
			runner.config.Auth.JWTSecret = ""

			if _, err := runner.buildApps("auth"); err == nil {
				t.Error("expected error when signing secret is missing")
			}
		})
	})

	t.Run("Defaults", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		if runner.config == nil || runner.logger == nil || runner.output == nil {
			t.Error("expected defaults for unset options")
		}
	})
}
