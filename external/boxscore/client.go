package boxscore

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/wcfantasy/backend/internal/platform/logging"
	"github.com/wcfantasy/backend/internal/platform/resilience"
	"github.com/wcfantasy/backend/internal/usecase"
)

// Client wraps the API-Football v3 feed. The free tier caps out at 100
// requests a day, so this client serves only one-time tournament seeding
// and one box-score call per finished match.
const defaultBaseURL = "https://v3.football.api-sports.io"

var errBoxScoreTransient = crerr.New("box score transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	APIKey         string
	LeagueID       int
	Season         int
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

type Client struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	leagueID       int
	season         int
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		leagueID:       cfg.LeagueID,
		season:         cfg.Season,
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

type teamsEnvelope struct {
	Response []teamItem `json:"response"`
}

type teamItem struct {
	Team struct {
		ID      int64  `json:"id"`
		Name    string `json:"name"`
		Code    string `json:"code"`
		Country string `json:"country"`
		Logo    string `json:"logo"`
	} `json:"team"`
}

func (c *Client) FetchTeams(ctx context.Context) ([]usecase.ExternalTeam, error) {
	var envelope teamsEnvelope
	err := c.doJSON(ctx, "/teams", map[string]string{
		"league": strconv.Itoa(c.leagueID),
		"season": strconv.Itoa(c.season),
	}, &envelope)
	if err != nil {
		return nil, fmt.Errorf("fetch teams: %w", err)
	}

	out := make([]usecase.ExternalTeam, 0, len(envelope.Response))
	for _, item := range envelope.Response {
		if item.Team.ID <= 0 {
			continue
		}
		out = append(out, usecase.ExternalTeam{
			ExternalRef: strconv.FormatInt(item.Team.ID, 10),
			Name:        item.Team.Name,
			CountryCode: item.Team.Code,
			FlagURL:     item.Team.Logo,
		})
	}

	return out, nil
}

type squadEnvelope struct {
	Response []struct {
		Players []struct {
			ID       int64  `json:"id"`
			Name     string `json:"name"`
			Position string `json:"position"`
		} `json:"players"`
	} `json:"response"`
}

func (c *Client) FetchSquad(ctx context.Context, teamExternalRef string) ([]usecase.ExternalSquadPlayer, error) {
	var envelope squadEnvelope
	if err := c.doJSON(ctx, "/players/squads", map[string]string{"team": teamExternalRef}, &envelope); err != nil {
		return nil, fmt.Errorf("fetch squad team=%s: %w", teamExternalRef, err)
	}

	var out []usecase.ExternalSquadPlayer
	for _, item := range envelope.Response {
		for _, p := range item.Players {
			if p.ID <= 0 {
				continue
			}
			out = append(out, usecase.ExternalSquadPlayer{
				ExternalRef: strconv.FormatInt(p.ID, 10),
				Name:        p.Name,
				Position:    p.Position,
			})
		}
	}

	return out, nil
}

type fixturesEnvelope struct {
	Response []fixtureItem `json:"response"`
}

type fixtureItem struct {
	Fixture struct {
		ID     int64     `json:"id"`
		Date   time.Time `json:"date"`
		Status struct {
			Short string `json:"short"`
		} `json:"status"`
		Venue struct {
			Name string `json:"name"`
		} `json:"venue"`
	} `json:"fixture"`
	League struct {
		Round string `json:"round"`
	} `json:"league"`
	Teams struct {
		Home struct {
			ID int64 `json:"id"`
		} `json:"home"`
		Away struct {
			ID int64 `json:"id"`
		} `json:"away"`
	} `json:"teams"`
	Goals struct {
		Home *int `json:"home"`
		Away *int `json:"away"`
	} `json:"goals"`
}

// Feed status shortcodes normalized to the labels the sync layer maps.
var statusLabelByShort = map[string]string{
	"TBD":  "SCHEDULED",
	"NS":   "SCHEDULED",
	"PST":  "POSTPONED",
	"CANC": "CANCELLED",
	"SUSP": "SUSPENDED",
	"1H":   "IN_PLAY",
	"HT":   "PAUSED",
	"2H":   "IN_PLAY",
	"ET":   "IN_PLAY",
	"BT":   "PAUSED",
	"P":    "IN_PLAY",
	"LIVE": "IN_PLAY",
	"FT":   "FINISHED",
	"AET":  "FINISHED",
	"PEN":  "FINISHED",
}

func (c *Client) FetchFixtures(ctx context.Context) ([]usecase.ExternalMatch, error) {
	var envelope fixturesEnvelope
	err := c.doJSON(ctx, "/fixtures", map[string]string{
		"league": strconv.Itoa(c.leagueID),
		"season": strconv.Itoa(c.season),
	}, &envelope)
	if err != nil {
		return nil, fmt.Errorf("fetch fixtures: %w", err)
	}

	out := make([]usecase.ExternalMatch, 0, len(envelope.Response))
	for _, item := range envelope.Response {
		if item.Fixture.ID <= 0 {
			continue
		}
		label, ok := statusLabelByShort[strings.ToUpper(item.Fixture.Status.Short)]
		if !ok {
			label = "SCHEDULED"
		}
		out = append(out, usecase.ExternalMatch{
			ExternalRef: strconv.FormatInt(item.Fixture.ID, 10),
			HomeTeamRef: strconv.FormatInt(item.Teams.Home.ID, 10),
			AwayTeamRef: strconv.FormatInt(item.Teams.Away.ID, 10),
			KickoffAt:   item.Fixture.Date,
			Venue:       item.Fixture.Venue.Name,
			StatusLabel: label,
			HomeScore:   item.Goals.Home,
			AwayScore:   item.Goals.Away,
			RoundName:   item.League.Round,
		})
	}

	return out, nil
}

type playerStatsEnvelope struct {
	Response []struct {
		Players []struct {
			Player struct {
				ID int64 `json:"id"`
			} `json:"player"`
			Statistics []statLine `json:"statistics"`
		} `json:"players"`
	} `json:"response"`
}

type statLine struct {
	Games struct {
		Minutes *int   `json:"minutes"`
		Rating  string `json:"rating"`
	} `json:"games"`
	Goals struct {
		Total    *int `json:"total"`
		Conceded *int `json:"conceded"`
		Assists  *int `json:"assists"`
		Saves    *int `json:"saves"`
	} `json:"goals"`
	Cards struct {
		Yellow *int `json:"yellow"`
		Red    *int `json:"red"`
	} `json:"cards"`
	Penalty struct {
		Scored *int `json:"scored"`
		Missed *int `json:"missed"`
	} `json:"penalty"`
}

// FetchBoxScore returns the per-player lines for a finished fixture. The
// feed reports the rating as a decimal string; an empty one means no
// rating.
func (c *Client) FetchBoxScore(ctx context.Context, matchExternalRef string) ([]usecase.ExternalPlayerLine, error) {
	var envelope playerStatsEnvelope
	if err := c.doJSON(ctx, "/fixtures/players", map[string]string{"fixture": matchExternalRef}, &envelope); err != nil {
		return nil, fmt.Errorf("fetch box score fixture=%s: %w", matchExternalRef, err)
	}

	var out []usecase.ExternalPlayerLine
	for _, teamBlock := range envelope.Response {
		for _, p := range teamBlock.Players {
			if p.Player.ID <= 0 || len(p.Statistics) == 0 {
				continue
			}
			s := p.Statistics[0]

			line := usecase.ExternalPlayerLine{
				PlayerExternalRef: strconv.FormatInt(p.Player.ID, 10),
				MinutesPlayed:     intOrZero(s.Games.Minutes),
				Goals:             intOrZero(s.Goals.Total),
				Assists:           intOrZero(s.Goals.Assists),
				GoalsConceded:     intOrZero(s.Goals.Conceded),
				Saves:             intOrZero(s.Goals.Saves),
				YellowCards:       intOrZero(s.Cards.Yellow),
				RedCards:          intOrZero(s.Cards.Red),
				PenaltiesScored:   intOrZero(s.Penalty.Scored),
				PenaltiesMissed:   intOrZero(s.Penalty.Missed),
			}
			line.CleanSheet = line.GoalsConceded == 0
			if rating := strings.TrimSpace(s.Games.Rating); rating != "" {
				if value, err := strconv.ParseFloat(rating, 64); err == nil {
					line.Rating = &value
				}
			}
			out = append(out, line)
		}
	}

	return out, nil
}

func intOrZero(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func (c *Client) doJSON(ctx context.Context, path string, query map[string]string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "box score circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: box score feed is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	values := url.Values{}
	for key, value := range query {
		values.Set(key, value)
	}
	fullURL := c.baseURL + path
	if encoded := values.Encode(); encoded != "" {
		fullURL += "?" + encoded
	}

	out, err, _ := c.flight.Do(fullURL, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && crerr.Is(reqErr, errBoxScoreTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}
	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode feed payload: %w", err)
	}

	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		raw, err := c.request(ctx, fullURL)
		if err == nil {
			return raw, nil
		}
		lastErr = err
		if !crerr.Is(err, errBoxScoreTransient) {
			return nil, err
		}
		if attempt == c.maxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.WarnContext(ctx, "box score request failed", "url", fullURL, "error", lastErr.Error())
	return nil, lastErr
}

func (c *Client) request(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-apisports-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, crerr.Wrapf(errBoxScoreTransient, "send request: %v", err)
	}
	defer resp.Body.Close()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err := io.Copy(buf, io.LimitReader(resp.Body, 6<<20)); err != nil {
		return nil, crerr.Wrapf(errBoxScoreTransient, "read response body: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if isRetryableStatus(resp.StatusCode) {
			return nil, crerr.Wrapf(errBoxScoreTransient, "feed status=%d", resp.StatusCode)
		}
		return nil, fmt.Errorf("feed status=%d body=%s", resp.StatusCode, abbreviate(buf.Bytes()))
	}

	raw := make([]byte, buf.Len())
	copy(raw, buf.Bytes())
	return raw, nil
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func abbreviate(body []byte) string {
	const limit = 256
	if len(body) <= limit {
		return string(body)
	}
	return string(body[:limit]) + "..."
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
