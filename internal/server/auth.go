package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/mvaldes/spotistats/internal/credential"
	"github.com/mvaldes/spotistats/internal/shared"
	"github.com/mvaldes/spotistats/internal/spotify"
	"golang.org/x/oauth2"
)

// ProfileFetcher is the slice of the upstream client the issuer needs to learn
// the subject id behind a freshly exchanged access token.
type ProfileFetcher interface {
	Me(ctx context.Context, accessToken string) (*spotify.Profile, error)
}

// AuthHandler drives the delegated-login handshake and mints credentials.
//
// The OAuth state parameter is an HMAC-signed nonce keyed by the session
// secret, so the callback can be verified by any replica without server-side
// session storage.
type AuthHandler struct {
	oauth         *oauth2.Config
	issuer        *credential.Issuer
	profiles      ProfileFetcher
	clientOrigin  string
	sessionSecret []byte
	logger        *log.Logger
}

// NewAuthHandler creates the login and callback handlers. It fails when the
// session secret is empty since callback state could not be verified.
func NewAuthHandler(oauth *oauth2.Config, issuer *credential.Issuer, profiles ProfileFetcher, clientOrigin, sessionSecret string, logger *log.Logger) (*AuthHandler, error) {
	if sessionSecret == "" {
		return nil, shared.ErrMissingSecret
	}

	return &AuthHandler{
		oauth:         oauth,
		issuer:        issuer,
		profiles:      profiles,
		clientOrigin:  clientOrigin,
		sessionSecret: []byte(sessionSecret),
		logger:        logger,
	}, nil
}

// Login redirects the user agent to the provider's authorization endpoint with
// the fixed scope set and a signed state nonce.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.oauth.AuthCodeURL(h.newState()), http.StatusFound)
}

// Callback completes the handshake: it verifies state, exchanges the
// authorization code, learns the subject id from the provider, mints the
// credential, and redirects the user agent to the static client with the
// credential in the URL. Every failure redirects to the login-failure route;
// no credential is ever issued on a failed exchange.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if errParam := query.Get("error"); errParam != "" {
		h.logger.Warn("provider reported authorization failure", "error", errParam)
		h.redirectFailure(w, r)
		return
	}

	if err := h.verifyState(query.Get("state")); err != nil {
		h.logger.Warn("callback state verification failed", "err", err)
		h.redirectFailure(w, r)
		return
	}

	code := query.Get("code")
	if code == "" {
		h.logger.Warn("callback missing authorization code")
		h.redirectFailure(w, r)
		return
	}

	token, err := h.oauth.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("token exchange failed", "err", err)
		h.redirectFailure(w, r)
		return
	}

	profile, err := h.profiles.Me(r.Context(), token.AccessToken)
	if err != nil {
		h.logger.Error("failed to fetch profile for new login", "err", err)
		h.redirectFailure(w, r)
		return
	}

	cred, err := h.issuer.Issue(profile.ID, token.AccessToken)
	if err != nil {
		h.logger.Error("failed to issue credential", "err", err)
		h.redirectFailure(w, r)
		return
	}

	h.logger.Info("issued credential", "user", profile.ID)
	http.Redirect(w, r, fmt.Sprintf("%s/main?token=%s", h.clientOrigin, url.QueryEscape(cred)), http.StatusFound)
}

// Home serves a plain identification page at the service root.
func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintln(w, "Spotify Authentication Service")
}

func (h *AuthHandler) redirectFailure(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.clientOrigin+"/login", http.StatusFound)
}

// newState returns "<nonce>.<mac>" where mac is the hex HMAC-SHA256 of the
// nonce under the session secret.
func (h *AuthHandler) newState() string {
	nonce := shared.GenerateID()
	return nonce + "." + h.sign(nonce)
}

func (h *AuthHandler) verifyState(state string) error {
	nonce, mac, ok := strings.Cut(state, ".")
	if !ok || nonce == "" {
		return shared.ErrInvalidState
	}
	if !hmac.Equal([]byte(mac), []byte(h.sign(nonce))) {
		return shared.ErrInvalidState
	}
	return nil
}

func (h *AuthHandler) sign(nonce string) string {
	mac := hmac.New(sha256.New, h.sessionSecret)
	mac.Write([]byte(nonce))
	return hex.EncodeToString(mac.Sum(nil))
}
