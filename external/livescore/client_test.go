package livescore

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/wcfantasy/backend/internal/platform/logging"
	"github.com/wcfantasy/backend/internal/platform/resilience"
	"github.com/wcfantasy/backend/internal/usecase"
)

func TestClientFetchMatches_SendsAuthTokenAndParsesFeed(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Fatalf("unexpected method: %s", r.Method)
		}
		if r.URL.Path != "/competitions/WC/matches" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("X-Auth-Token"); got != "feed-secret" {
			t.Fatalf("unexpected X-Auth-Token: %s", got)
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"matches": [
				{
					"id": 401,
					"utcDate": "2026-06-11T18:00:00Z",
					"status": "IN_PLAY",
					"matchday": 1,
					"stage": "GROUP_STAGE",
					"group": "Group A",
					"venue": "Estadio Azteca",
					"homeTeam": {"id": 77, "name": "Mexico", "tla": "MEX"},
					"awayTeam": {"id": 78, "name": "Poland", "tla": "POL"},
					"score": {"fullTime": {"home": 1, "away": 0}}
				},
				{
					"id": 402,
					"utcDate": "2026-07-07T20:00:00Z",
					"status": "SCHEDULED",
					"matchday": 1,
					"stage": "LAST_16",
					"group": "",
					"venue": "MetLife Stadium",
					"homeTeam": {"id": 81, "name": "Brazil", "tla": "BRA"},
					"awayTeam": {"id": 82, "name": "Germany", "tla": "GER"},
					"score": {"fullTime": {"home": null, "away": null}}
				},
				{
					"id": 0,
					"utcDate": "2026-06-12T18:00:00Z",
					"status": "SCHEDULED"
				}
			]
		}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		Token:          "feed-secret",
		Timeout:        2 * time.Second,
		Logger:         logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	matches, err := client.FetchMatches(context.Background())
	if err != nil {
		t.Fatalf("fetch matches failed: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches after skipping the zero id, got=%d", len(matches))
	}

	first := matches[0]
	if first.ExternalRef != "401" {
		t.Fatalf("unexpected external ref: %s", first.ExternalRef)
	}
	if first.HomeTeamRef != "77" || first.AwayTeamRef != "78" {
		t.Fatalf("unexpected team refs: home=%s away=%s", first.HomeTeamRef, first.AwayTeamRef)
	}
	if first.StatusLabel != "IN_PLAY" {
		t.Fatalf("unexpected status label: %s", first.StatusLabel)
	}
	if first.Venue != "Estadio Azteca" {
		t.Fatalf("unexpected venue: %s", first.Venue)
	}
	if first.RoundName != "Group A - 1" {
		t.Fatalf("unexpected round name: %s", first.RoundName)
	}
	if first.HomeScore == nil || *first.HomeScore != 1 {
		t.Fatalf("unexpected home score: %v", first.HomeScore)
	}
	if first.AwayScore == nil || *first.AwayScore != 0 {
		t.Fatalf("unexpected away score: %v", first.AwayScore)
	}
	if !first.KickoffAt.Equal(time.Date(2026, 6, 11, 18, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected kickoff: %s", first.KickoffAt)
	}

	second := matches[1]
	if second.RoundName != "Last 16" {
		t.Fatalf("unexpected knockout round name: %s", second.RoundName)
	}
	if second.HomeScore != nil || second.AwayScore != nil {
		t.Fatalf("expected nil scores for an unplayed match")
	}
}

func TestClientFetchMatches_NonRetryableStatusFailsWithoutRetry(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"competition not found"}`))
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient:     srv.Client(),
		BaseURL:        srv.URL,
		Competition:    "XX",
		MaxRetries:     3,
		Timeout:        2 * time.Second,
		Logger:         logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{Enabled: false},
	})

	if _, err := client.FetchMatches(context.Background()); err == nil {
		t.Fatalf("expected error on 404 response")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single request for a non-retryable status, got %d", calls.Load())
	}
}

func TestClientFetchMatches_CircuitRejectsAfterFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(ClientConfig{
		HTTPClient: srv.Client(),
		BaseURL:    srv.URL,
		Timeout:    2 * time.Second,
		Logger:     logging.NewNop(),
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          true,
			FailureThreshold: 1,
			OpenTimeout:      time.Minute,
			HalfOpenMaxReq:   1,
		},
	})

	if _, err := client.FetchMatches(context.Background()); err == nil {
		t.Fatalf("expected error on 500 response")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one upstream request before the trip, got %d", calls.Load())
	}

	_, err := client.FetchMatches(context.Background())
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected ErrDependencyUnavailable from an open circuit, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("open circuit must not reach the feed, got %d calls", calls.Load())
	}
}

func TestRoundName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		stage    string
		group    string
		matchday int
		want     string
	}{
		{"GROUP_STAGE", "Group A", 2, "Group A - 2"},
		{"LAST_16", "", 1, "Last 16"},
		{"QUARTER_FINALS", "", 1, "Quarter Finals"},
		{"FINAL", "", 1, "Final"},
	}
	for _, tc := range tests {
		if got := roundName(tc.stage, tc.group, tc.matchday); got != tc.want {
			t.Fatalf("roundName(%q, %q, %d): got=%q want=%q", tc.stage, tc.group, tc.matchday, got, tc.want)
		}
	}
}
