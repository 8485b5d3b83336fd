package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestOAuthConfig(t *testing.T) {
	t.Run("Defaults To Public Endpoints", func(t *testing.T) {
		config := OAuthConfig("id", "secret", "http://localhost:3000/auth/callback", "", "")

		if config.Endpoint.AuthURL != DefaultAuthURL {
			t.Errorf("expected default auth URL, got %s", config.Endpoint.AuthURL)
		}
		if config.Endpoint.TokenURL != DefaultTokenURL {
			t.Errorf("expected default token URL, got %s", config.Endpoint.TokenURL)
		}
	})

	t.Run("Requests The Fixed Scope Set", func(t *testing.T) {
		config := OAuthConfig("id", "secret", "", "", "")

		if len(config.Scopes) != 9 {
			t.Fatalf("expected 9 scopes, got %d", len(config.Scopes))
		}

		authURL := config.AuthCodeURL("state")
		for _, scope := range []string{"user-top-read", "user-read-private", "user-modify-playback-state"} {
			if !strings.Contains(authURL, scope) {
				t.Errorf("auth URL should request scope %s", scope)
			}
		}
	})
}

func TestValidTimeRange(t *testing.T) {
	for _, valid := range []string{TimeRangeShort, TimeRangeMedium, TimeRangeLong} {
		if !ValidTimeRange(valid) {
			t.Errorf("expected %s to be valid", valid)
		}
	}
	for _, invalid := range []string{"", "week", "SHORT_TERM", "short"} {
		if ValidTimeRange(invalid) {
			t.Errorf("expected %s to be invalid", invalid)
		}
	}
}

func TestClient(t *testing.T) {
	t.Run("Me", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me" {
				t.Errorf("expected /me, got %s", r.URL.Path)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer token123" {
				t.Errorf("expected bearer header, got %q", got)
			}

			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"id":           "user123",
				"display_name": "Test User",
				"images":       []map[string]any{{"url": "http://img/1.png"}},
			})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, nil)
		profile, err := client.Me(context.Background(), "token123")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if profile.ID != "user123" || profile.DisplayName != "Test User" {
			t.Errorf("unexpected profile: %+v", profile)
		}
		if len(profile.Images) != 1 || profile.Images[0].URL != "http://img/1.png" {
			t.Errorf("unexpected images: %+v", profile.Images)
		}
	})

	t.Run("TopArtists", func(t *testing.T) {
		var gotQuery string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotQuery = r.URL.RawQuery
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					{"id": "a1", "name": "Artist One", "genres": []string{"rock", "pop"}},
					{"id": "a2", "name": "Artist Two", "genres": []string{}},
				},
			})
		}))
		defer srv.Close()

		client := NewClient(srv.URL, nil)
		artists, err := client.TopArtists(context.Background(), "token123", "medium_term", 50)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(artists) != 2 {
			t.Fatalf("expected 2 artists, got %d", len(artists))
		}
		if artists[0].Name != "Artist One" || len(artists[0].Genres) != 2 {
			t.Errorf("unexpected artist: %+v", artists[0])
		}
		if len(artists[1].Genres) != 0 {
			t.Errorf("expected no genres, got %v", artists[1].Genres)
		}

		if !strings.Contains(gotQuery, "time_range=medium_term") {
			t.Errorf("expected time_range in query, got %s", gotQuery)
		}
		if !strings.Contains(gotQuery, "limit=50") {
			t.Errorf("expected limit in query, got %s", gotQuery)
		}
	})

	t.Run("TopItems Passes Raw JSON Through", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"items":[{"name":"Track One","custom_field":42}]}`))
		}))
		defer srv.Close()

		client := NewClient(srv.URL, nil)
		items, err := client.TopItems(context.Background(), "token123", "tracks", "short_term", 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if string(items) != `[{"name":"Track One","custom_field":42}]` {
			t.Errorf("expected raw passthrough, got %s", string(items))
		}
	})

	t.Run("Limit Clamping", func(t *testing.T) {
		cases := []struct {
			limit int
			want  string
		}{
			{0, "limit=20"},
			{-5, "limit=20"},
			{10, "limit=10"},
			{51, "limit=50"},
		}

		for _, tc := range cases {
			endpoint := topEndpoint("artists", "short_term", tc.limit)
			if !strings.Contains(endpoint, tc.want) {
				t.Errorf("limit %d: expected %s in %s", tc.limit, tc.want, endpoint)
			}
		}
	})

	t.Run("Normalizes Upstream Errors", func(t *testing.T) {
		t.Run("With Structured Body", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				w.Write([]byte(`{"error":{"status":401,"message":"The access token expired"}}`))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, nil)
			_, err := client.Me(context.Background(), "stale-token")
			if err == nil {
				t.Fatal("expected an error")
			}

			var upstream *UpstreamError
			if !errors.As(err, &upstream) {
				t.Fatalf("expected UpstreamError, got %T", err)
			}
			if upstream.StatusCode != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", upstream.StatusCode)
			}
			if upstream.Message != "The access token expired" {
				t.Errorf("expected provider message, got %q", upstream.Message)
			}
			if !strings.Contains(upstream.Error(), "401") {
				t.Errorf("error string should embed the status: %s", upstream.Error())
			}
		})

		t.Run("With Unparseable Body", func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte("upstream melted"))
			}))
			defer srv.Close()

			client := NewClient(srv.URL, nil)
			_, err := client.TopArtists(context.Background(), "token123", "short_term", 10)

			var upstream *UpstreamError
			if !errors.As(err, &upstream) {
				t.Fatalf("expected UpstreamError, got %T", err)
			}
			if upstream.StatusCode != http.StatusBadGateway {
				t.Errorf("expected status 502, got %d", upstream.StatusCode)
			}
			if upstream.Message != "" {
				t.Errorf("expected empty message for unparseable body, got %q", upstream.Message)
			}
		})
	})

	t.Run("Honors Context Cancellation", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			<-r.Context().Done()
		}))
		defer srv.Close()

		client := NewClient(srv.URL, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if _, err := client.Me(ctx, "token123"); err == nil {
			t.Error("expected error from canceled context")
		}
	})
}
