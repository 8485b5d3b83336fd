package server

import (
	"context"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mvaldes/spotistats/internal/aggregate"
	"github.com/mvaldes/spotistats/internal/credential"
	"github.com/mvaldes/spotistats/internal/metrics"
	"github.com/mvaldes/spotistats/internal/shared"
	"github.com/mvaldes/spotistats/internal/spotify"
)

// App is one independently deployable service: a router with its resilience
// envelope, its own metrics registry, and a listen address.
type App struct {
	name   string
	addr   string
	router *BasicRouter
	logger *log.Logger
}

// Name returns the service name.
func (a *App) Name() string { return a.name }

// Addr returns the configured listen address.
func (a *App) Addr() string { return a.addr }

// Handler returns the fully assembled handler for the service, usable directly
// in tests without a listener.
func (a *App) Handler() http.Handler { return a.router }

// ListenAndServe serves the app until the listener fails or ctx is canceled,
// then shuts down gracefully.
func (a *App) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.addr,
		Handler:           a.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	a.logger.Info("service listening", "service", a.name, "addr", a.addr)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// newApp assembles the middleware chain every service shares. The metrics
// endpoint is registered before the rate limiter and fault injection join the
// stack so the scrape path is never rejected or short-circuited; business
// routes registered afterwards get the full envelope.
func newApp(name string, svc shared.ServiceConfig, cfg *shared.Config, provider *metrics.Provider, logger *log.Logger) *App {
	router := NewBasicRouter()
	router.Use(
		Recover(logger),
		RequestLogger(logger),
		CORS(cfg.Auth.ClientOrigin),
		Metrics(provider),
	)
	router.Handle(http.MethodGet, "/metrics", provider.Handler())

	limiter := NewRateLimiter(cfg.RateLimit.Requests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute)
	router.Use(
		limiter.Middleware(provider),
		FaultInjection(svc.FaultRate, nil, provider),
	)

	return &App{name: name, addr: svc.Addr(), router: router, logger: logger}
}

func upstreamClient(cfg *shared.Config) *spotify.Client {
	timeout := time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = spotify.DefaultTimeout
	}
	return spotify.NewClient(cfg.Upstream.BaseURL, &http.Client{Timeout: timeout})
}

// NewAuthApp builds the credential-issuer service.
func NewAuthApp(cfg *shared.Config, logger *log.Logger) (*App, error) {
	issuer, err := credential.NewIssuer(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, err
	}

	oauth := spotify.OAuthConfig(
		cfg.Spotify.ClientID,
		cfg.Spotify.ClientSecret,
		cfg.Spotify.CallbackURL,
		cfg.Upstream.AuthURL,
		cfg.Upstream.TokenURL,
	)

	handler, err := NewAuthHandler(oauth, issuer, upstreamClient(cfg), cfg.Auth.ClientOrigin, cfg.Auth.SessionSecret, logger)
	if err != nil {
		return nil, err
	}

	app := newApp("auth", cfg.Services.Auth, cfg, metrics.NewProvider("auth"), logger)
	app.router.Handle(http.MethodGet, "/auth/login", http.HandlerFunc(handler.Login))
	app.router.Handle(http.MethodGet, "/auth/callback", http.HandlerFunc(handler.Callback))
	app.router.Handle(http.MethodGet, "/", http.HandlerFunc(handler.Home))

	return app, nil
}

// NewUserDataApp builds the profile and top-items aggregation service.
func NewUserDataApp(cfg *shared.Config, logger *log.Logger) (*App, error) {
	verifier, err := credential.NewVerifier(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, err
	}

	engine := aggregate.NewEngine(upstreamClient(cfg))
	handler := NewUserInfoHandler(engine, logger)

	app := newApp("userdata", cfg.Services.UserData, cfg, metrics.NewProvider("userdata"), logger)
	app.router.Handle(http.MethodGet, "/user-info", Authenticate(verifier)(http.HandlerFunc(handler.UserInfo)))

	return app, nil
}

// NewGenresApp builds the genre-ranking aggregation service.
func NewGenresApp(cfg *shared.Config, logger *log.Logger) (*App, error) {
	verifier, err := credential.NewVerifier(cfg.Auth.JWTSecret)
	if err != nil {
		return nil, err
	}

	engine := aggregate.NewEngine(upstreamClient(cfg))
	handler := NewGenresHandler(engine, logger)

	app := newApp("genres", cfg.Services.Genres, cfg, metrics.NewProvider("genres"), logger)
	app.router.Handle(http.MethodGet, "/top-genres", Authenticate(verifier)(http.HandlerFunc(handler.TopGenres)))

	return app, nil
}
