// package spotify implements the upstream gateway client for the Spotify Web API.
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"
)

const (
	DefaultAuthURL  = "https://accounts.spotify.com/authorize"
	DefaultTokenURL = "https://accounts.spotify.com/api/token"
	DefaultBaseURL  = "https://api.spotify.com/v1"

	// DefaultTimeout bounds every upstream call so a hung Spotify request can
	// never hang the whole aggregation request.
	DefaultTimeout = 10 * time.Second
)

// Scopes is the fixed scope set requested at login. There is no
// user-selectable subset.
var Scopes = []string{
	"user-read-private",
	"user-read-email",
	"user-top-read",
	"user-library-read",
	"playlist-read-private",
	"playlist-modify-private",
	"playlist-modify-public",
	"user-read-playback-state",
	"user-modify-playback-state",
}

// Time ranges accepted by the top-items endpoints.
const (
	TimeRangeShort  = "short_term"
	TimeRangeMedium = "medium_term"
	TimeRangeLong   = "long_term"
)

// ValidTimeRange reports whether s is one of the time ranges Spotify accepts.
func ValidTimeRange(s string) bool {
	switch s {
	case TimeRangeShort, TimeRangeMedium, TimeRangeLong:
		return true
	}
	return false
}

// OAuthConfig builds the authorization-code flow configuration for the given
// Spotify application credentials. Empty endpoint URLs fall back to the
// public Spotify accounts service.
func OAuthConfig(clientID, clientSecret, redirectURL, authURL, tokenURL string) *oauth2.Config {
	if authURL == "" {
		authURL = DefaultAuthURL
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  authURL,
			TokenURL: tokenURL,
		},
	}
}

// Image represents an image resource. Entities may carry zero images.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Profile represents a Spotify user profile.
type Profile struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email"`
	Images      []Image `json:"images"`
}

// Artist represents a Spotify artist.
type Artist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
	Images []Image  `json:"images"`
	URI    string   `json:"uri"`
}

// upstreamErrorBody is Spotify's structured error envelope.
type upstreamErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// UpstreamError is a normalized non-success response from the Spotify API.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify API error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("spotify API error: status %d, %s", e.StatusCode, e.Message)
}

// Client performs authenticated fetches against the Spotify Web API. It holds
// no user state; the access token is supplied per call so independently
// deployed services can share one client per process.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Client. An empty baseURL falls back to the public API;
// a nil httpClient gets a client bounded by [DefaultTimeout].
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}

	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// get performs an authenticated GET against one endpoint and decodes the JSON
// body into result. Non-success statuses are normalized into [*UpstreamError].
func (c *Client) get(ctx context.Context, accessToken, endpoint string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		upstream := &UpstreamError{StatusCode: resp.StatusCode}
		var body upstreamErrorBody
		if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
			upstream.Message = body.Error.Message
		}
		return upstream
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Me retrieves the profile of the user the access token was delegated for.
func (c *Client) Me(ctx context.Context, accessToken string) (*Profile, error) {
	var profile Profile
	if err := c.get(ctx, accessToken, "/me", &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// TopArtists retrieves the user's top artists for a time range, decoded into
// typed entities for genre aggregation.
func (c *Client) TopArtists(ctx context.Context, accessToken, timeRange string, limit int) ([]Artist, error) {
	var page struct {
		Items []Artist `json:"items"`
	}

	endpoint := topEndpoint("artists", timeRange, limit)
	if err := c.get(ctx, accessToken, endpoint, &page); err != nil {
		return nil, err
	}

	return page.Items, nil
}

// TopItems retrieves the user's top artists or tracks as raw JSON items.
// Callers composing responses pass the item list through unchanged.
func (c *Client) TopItems(ctx context.Context, accessToken, kind, timeRange string, limit int) (json.RawMessage, error) {
	var page struct {
		Items json.RawMessage `json:"items"`
	}

	endpoint := topEndpoint(kind, timeRange, limit)
	if err := c.get(ctx, accessToken, endpoint, &page); err != nil {
		return nil, err
	}

	return page.Items, nil
}

func topEndpoint(kind, timeRange string, limit int) string {
	if limit <= 0 {
		limit = 20
	}
	if limit > 50 {
		limit = 50
	}

	query := url.Values{}
	query.Set("limit", fmt.Sprintf("%d", limit))
	if timeRange != "" {
		query.Set("time_range", timeRange)
	}

	return fmt.Sprintf("/me/top/%s?%s", kind, query.Encode())
}
