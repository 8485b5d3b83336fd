package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/mvaldes/spotistats/internal/server"
	"github.com/mvaldes/spotistats/internal/shared"
	"github.com/urfave/cli/v3"
)

func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run one service, or the whole fleet in a single process",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "service",
				Aliases: []string{"s"},
				Usage:   "Service to run: auth, userdata, genres, or all",
				Value:   "all",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
			},
		},
		Action: r.Serve,
	}
}

func initCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write an example configuration file",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to write the configuration file to",
				Value:   "config.toml",
			},
		},
		Action: r.Init,
	}
}

// Serve builds the selected apps and serves them until interrupted. When
// several apps run in one process each gets its own listener goroutine and the
// first listener error stops the fleet.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if path := cmd.String("config"); path != "" {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return err
		}
		config.ApplyEnv()
		r.config = config
	}

	apps, err := r.buildApps(cmd.String("service"))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, len(apps))
	for _, app := range apps {
		go func(app *server.App) {
			errCh <- app.ListenAndServe(ctx)
		}(app)
	}

	for range apps {
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	return nil
}

func (r *Runner) buildApps(selection string) ([]*server.App, error) {
	builders := map[string]func(*shared.Config, *log.Logger) (*server.App, error){}

	switch selection {
	case "auth":
		builders["auth"] = server.NewAuthApp
	case "userdata":
		builders["userdata"] = server.NewUserDataApp
	case "genres":
		builders["genres"] = server.NewGenresApp
	case "all":
		builders["auth"] = server.NewAuthApp
		builders["userdata"] = server.NewUserDataApp
		builders["genres"] = server.NewGenresApp
	default:
		return nil, fmt.Errorf("%w: unknown service %q", shared.ErrInvalidInput, selection)
	}

	apps := make([]*server.App, 0, len(builders))
	for name, build := range builders {
		app, err := build(r.config, shared.WithLogger(r.logger, "service", name))
		if err != nil {
			return nil, fmt.Errorf("failed to build %s service: %w", name, err)
		}
		apps = append(apps, app)
	}

	return apps, nil
}

// Init writes the embedded example configuration to disk.
func (r *Runner) Init(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("configuration file created", "path", path)
	return r.writePlain("✓ Wrote %s\n", path)
}
