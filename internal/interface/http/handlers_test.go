package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origins-hub/fishing-stats-hub/internal/application/query"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/player"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
	"github.com/origins-hub/fishing-stats-hub/internal/infrastructure/external/habbo"
)

// ══════════════════════════════════════════════════════════════════════════════
// FAKES
// ══════════════════════════════════════════════════════════════════════════════

type stubRankings struct {
	snapshots []*player.Snapshot
}

func (f *stubRankings) Upsert(context.Context, *player.Snapshot) error { return nil }

func (f *stubRankings) Get(_ context.Context, key shared.PlayerKey) (*player.Snapshot, error) {
	for _, s := range f.snapshots {
		if s.Key() == key {
			return s.Clone(), nil
		}
	}
	return nil, player.ErrNotFound
}

func (f *stubRankings) ListVisibleByHotel(_ context.Context, hotel shared.Hotel) ([]*player.Snapshot, error) {
	var out []*player.Snapshot
	for _, s := range f.snapshots {
		if s.Hotel == hotel && s.Status.Visible() {
			out = append(out, s.Clone())
		}
	}
	return out, nil
}

func (f *stubRankings) ListKeysOldestFirst(context.Context, shared.Hotel) ([]shared.Username, error) {
	return nil, nil
}

func (f *stubRankings) MarkNotFound(context.Context, shared.PlayerKey) error { return nil }

func (f *stubRankings) CountByHotel(context.Context, shared.Hotel) (int, error) { return 0, nil }

type stubHistory struct{}

func (stubHistory) Append(context.Context, player.XPHistoryEntry) error { return nil }

func (stubHistory) LatestAtOrBefore(context.Context, shared.PlayerKey, time.Time) (*player.XPHistoryEntry, error) {
	return nil, player.ErrNotFound
}

func (stubHistory) History(context.Context, shared.PlayerKey, time.Time) ([]player.XPHistoryEntry, error) {
	return nil, nil
}

func (stubHistory) FirstLevelMaxObservations(context.Context) ([]player.LevelMaxObservation, error) {
	return nil, nil
}

type stubAchievers struct{}

func (stubAchievers) RecordFirstAchievement(context.Context, shared.PlayerKey, time.Time) (int, bool, error) {
	return 0, false, nil
}

func (stubAchievers) Get(context.Context, shared.PlayerKey) (*player.Achiever, error) {
	return nil, player.ErrNotFound
}

func (stubAchievers) ListByHotel(context.Context, shared.Hotel) ([]player.Achiever, error) {
	return nil, nil
}

func (stubAchievers) ReplaceAll(context.Context, []player.Achiever) error { return nil }

type stubSearcher struct {
	snapshot *player.Snapshot
	err      error
}

func (f *stubSearcher) Search(context.Context, string, string) (*player.Snapshot, error) {
	return f.snapshot, f.err
}

type stubChecker struct {
	name string
	err  error
}

func (c stubChecker) Name() string               { return c.name }
func (c stubChecker) Ping(context.Context) error { return c.err }

// ══════════════════════════════════════════════════════════════════════════════
// FIXTURE
// ══════════════════════════════════════════════════════════════════════════════

func newTestServer(t *testing.T, rankings *stubRankings, searcher *stubSearcher, checkers ...HealthChecker) *Server {
	t.Helper()

	if rankings == nil {
		rankings = &stubRankings{}
	}
	if searcher == nil {
		searcher = &stubSearcher{}
	}

	gains := query.NewGainsCalculator(stubHistory{})
	deps := Dependencies{
		Leaderboard:    query.NewLeaderboard(rankings, stubAchievers{}, gains, nil, nil, nil),
		Players:        query.NewPlayerQuery(rankings, stubHistory{}, stubAchievers{}, gains),
		Searcher:       searcher,
		HealthCheckers: checkers,
	}
	return NewServer(DefaultConfig(), deps)
}

func doRequest(s *Server, method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	s.httpServer.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) JSONResponse {
	t.Helper()
	var resp JSONResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

// providerError runs the real Origins client against an upstream answering
// with the given status and returns the error exactly as the fetch path
// produces it.
func providerError(t *testing.T, status int) error {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if status == http.StatusTooManyRequests {
			w.Header().Set("Retry-After", "1")
		}
		w.WriteHeader(status)
	}))
	defer server.Close()

	cfg := habbo.DefaultClientConfig()
	cfg.BaseURLOverrides = map[shared.Hotel]string{shared.HotelBR: server.URL}
	cfg.RateLimiterConfig = habbo.RateLimiterConfig{
		RequestsPerSecond: 1000,
		BurstSize:         1000,
		WaitTimeout:       time.Second,
	}
	cfg.RetryConfig = habbo.RetryConfig{
		MaxRetries:        0,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 1,
	}
	client := habbo.NewClient(cfg)

	_, err := client.GetUser(context.Background(), shared.HotelBR, "someone")
	require.Error(t, err)
	return err
}

func testSnapshot(t *testing.T, username string, hotel shared.Hotel, level int) *player.Snapshot {
	t.Helper()
	s, err := player.NewSnapshot(username, hotel, level, 100)
	require.NoError(t, err)
	return s
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTS
// ══════════════════════════════════════════════════════════════════════════════

func TestLeaderboardEndpoint(t *testing.T) {
	rankings := &stubRankings{snapshots: []*player.Snapshot{
		testSnapshot(t, "angler", shared.HotelBR, 40),
		testSnapshot(t, "whale", shared.HotelBR, 80),
	}}
	s := newTestServer(t, rankings, nil)

	rec := doRequest(s, http.MethodGet, "/api/v1/leaderboard?hotel=com.br", "")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	assert.True(t, resp.Success)

	data, err := json.Marshal(resp.Data)
	require.NoError(t, err)
	var page struct {
		Entries []json.RawMessage `json:"entries"`
		Mode    string            `json:"mode"`
		Total   int               `json:"total"`
	}
	require.NoError(t, json.Unmarshal(data, &page))
	assert.Equal(t, "overall", page.Mode)
	assert.Equal(t, 2, page.Total)
	assert.Len(t, page.Entries, 2)
}

func TestLeaderboardRejectsUnknownHotel(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := doRequest(s, http.MethodGet, "/api/v1/leaderboard?hotel=fr", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_hotel", decodeResponse(t, rec).Error.Code)
}

func TestLeaderboardRejectsUnknownMode(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := doRequest(s, http.MethodGet, "/api/v1/leaderboard?hotel=com.br&mode=bogus", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_mode", decodeResponse(t, rec).Error.Code)
}

func TestSearchEndpointSuccess(t *testing.T) {
	snapshot := testSnapshot(t, "Caught", shared.HotelBR, 55)
	s := newTestServer(t, nil, &stubSearcher{snapshot: snapshot})

	rec := doRequest(s, http.MethodPost, "/api/v1/search", `{"username":"Caught","hotel":"com.br"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeResponse(t, rec).Success)
}

func TestSearchEndpointErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"unknown player", providerError(t, http.StatusNotFound), http.StatusNotFound, "player_not_found"},
		{"no fishing skill", shared.ErrSkillDataMissing, http.StatusNotFound, "player_not_found"},
		{"invalid username", shared.ErrInvalidInput, http.StatusUnprocessableEntity, "invalid_input"},
		{"upstream throttled", providerError(t, http.StatusTooManyRequests), http.StatusTooManyRequests, "upstream_rate_limited"},
		{"upstream down", providerError(t, http.StatusInternalServerError), http.StatusBadGateway, "upstream_error"},
		{"upstream forbids us", providerError(t, http.StatusForbidden), http.StatusBadGateway, "upstream_error"},
		{"garbled response", shared.ErrMalformedResponse, http.StatusBadGateway, "upstream_error"},
		{"storage failure", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, nil, &stubSearcher{err: tt.err})

			rec := doRequest(s, http.MethodPost, "/api/v1/search", `{"username":"x","hotel":"com.br"}`)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantCode, decodeResponse(t, rec).Error.Code)
		})
	}
}

func TestSearchEndpointRejectsBadBody(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := doRequest(s, http.MethodPost, "/api/v1/search", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlayerEndpoint(t *testing.T) {
	rankings := &stubRankings{snapshots: []*player.Snapshot{
		testSnapshot(t, "tracked", shared.HotelES, 12),
	}}
	s := newTestServer(t, rankings, nil)

	rec := doRequest(s, http.MethodGet, "/api/v1/players/es/tracked", "")
	require.Equal(t, http.StatusOK, rec.Code)

	data, err := json.Marshal(decodeResponse(t, rec).Data)
	require.NoError(t, err)
	var detail struct {
		NextLevelXP int `json:"next_level_xp"`
	}
	require.NoError(t, json.Unmarshal(data, &detail))
	assert.Equal(t, player.NextLevelXP(12), detail.NextLevelXP)
}

func TestPlayerEndpointNotFound(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := doRequest(s, http.MethodGet, "/api/v1/players/com.br/stranger", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPlayerEndpointRejectsBadHotel(t *testing.T) {
	s := newTestServer(t, nil, nil)

	rec := doRequest(s, http.MethodGet, "/api/v1/players/nl/someone", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHistoryEndpointRejectsBadSince(t *testing.T) {
	rankings := &stubRankings{snapshots: []*player.Snapshot{
		testSnapshot(t, "tracked", shared.HotelBR, 12),
	}}
	s := newTestServer(t, rankings, nil)

	rec := doRequest(s, http.MethodGet, "/api/v1/players/com.br/tracked/history?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReadyEndpoint(t *testing.T) {
	s := newTestServer(t, nil, nil,
		stubChecker{name: "postgres"},
		stubChecker{name: "redis"},
	)

	rec := doRequest(s, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyEndpointFailsOnBrokenDependency(t *testing.T) {
	s := newTestServer(t, nil, nil,
		stubChecker{name: "postgres"},
		stubChecker{name: "redis", err: errors.New("connection refused")},
	)

	rec := doRequest(s, http.MethodGet, "/readyz", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
