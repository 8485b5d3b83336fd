// package aggregate turns paginated Spotify entity lists into ranked and
// composed summaries.
package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/mvaldes/spotistats/internal/shared"
	"github.com/mvaldes/spotistats/internal/spotify"
)

const (
	// topItemLimit bounds the artist and track lists in the user-info summary.
	topItemLimit = 10
	// genreWindow bounds both the artist window scanned for genre tags and the
	// length of the ranked genre list.
	genreWindow = 50
)

// Gateway is the slice of the upstream client the engine depends on.
type Gateway interface {
	Me(ctx context.Context, accessToken string) (*spotify.Profile, error)
	TopArtists(ctx context.Context, accessToken, timeRange string, limit int) ([]spotify.Artist, error)
	TopItems(ctx context.Context, accessToken, kind, timeRange string, limit int) (json.RawMessage, error)
}

// ProfileSummary is the read-only projection of the user's profile. Photo is
// omitted when the profile carries no images; the client supplies its own
// fallback.
type ProfileSummary struct {
	DisplayName string `json:"displayName"`
	Photo       string `json:"photo,omitempty"`
}

// UserInfo is the composed profile and top-items summary. The item lists are
// passed through from the upstream response unchanged.
type UserInfo struct {
	Profile    ProfileSummary  `json:"profile"`
	TopArtists json.RawMessage `json:"topArtists"`
	TopTracks  json.RawMessage `json:"topTracks"`
}

// Engine composes upstream fetches into per-request summaries. It holds no
// per-user state; every result is recomputed from upstream data.
type Engine struct {
	gateway Gateway
}

// NewEngine creates an aggregation engine over the given gateway.
func NewEngine(gateway Gateway) *Engine {
	return &Engine{gateway: gateway}
}

// UserInfo fetches the profile plus top artists and tracks concurrently and
// composes them. Any one fetch failing fails the whole aggregate; partial data
// is never returned. An empty timeRange defaults to long_term.
func (e *Engine) UserInfo(ctx context.Context, accessToken, timeRange string) (*UserInfo, error) {
	timeRange, err := resolveTimeRange(timeRange, spotify.TimeRangeLong)
	if err != nil {
		return nil, err
	}

	var (
		wg      sync.WaitGroup
		profile *spotify.Profile
		artists json.RawMessage
		tracks  json.RawMessage
		errs    [3]error
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		profile, errs[0] = e.gateway.Me(ctx, accessToken)
	}()
	go func() {
		defer wg.Done()
		artists, errs[1] = e.gateway.TopItems(ctx, accessToken, "artists", timeRange, topItemLimit)
	}()
	go func() {
		defer wg.Done()
		tracks, errs[2] = e.gateway.TopItems(ctx, accessToken, "tracks", timeRange, topItemLimit)
	}()
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	summary := ProfileSummary{DisplayName: profile.DisplayName}
	if len(profile.Images) > 0 {
		summary.Photo = profile.Images[0].URL
	}

	return &UserInfo{
		Profile:    summary,
		TopArtists: artists,
		TopTracks:  tracks,
	}, nil
}

// TopGenres fetches up to 50 top artists and ranks every genre tag across them
// by occurrence count. Ties keep first-occurrence order and the result is
// truncated to 50 genre names. An empty timeRange defaults to short_term.
func (e *Engine) TopGenres(ctx context.Context, accessToken, timeRange string) ([]string, error) {
	timeRange, err := resolveTimeRange(timeRange, spotify.TimeRangeShort)
	if err != nil {
		return nil, err
	}

	artists, err := e.gateway.TopArtists(ctx, accessToken, timeRange, genreWindow)
	if err != nil {
		return nil, err
	}

	return rankGenres(artists), nil
}

// rankGenres builds a transient genre frequency table across the artist window
// and returns genre names sorted by descending count. The sort is stable so
// equal counts keep first-occurrence order.
func rankGenres(artists []spotify.Artist) []string {
	counts := map[string]int{}
	genres := []string{}

	for _, artist := range artists {
		for _, genre := range artist.Genres {
			if _, seen := counts[genre]; !seen {
				genres = append(genres, genre)
			}
			counts[genre]++
		}
	}

	sort.SliceStable(genres, func(i, j int) bool {
		return counts[genres[i]] > counts[genres[j]]
	})

	if len(genres) > genreWindow {
		genres = genres[:genreWindow]
	}

	return genres
}

func resolveTimeRange(timeRange, fallback string) (string, error) {
	if timeRange == "" {
		return fallback, nil
	}
	if !spotify.ValidTimeRange(timeRange) {
		return "", fmt.Errorf("%w: %q", shared.ErrInvalidTimeRange, timeRange)
	}
	return timeRange, nil
}
