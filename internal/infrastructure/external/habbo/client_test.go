package habbo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
)

func testClientConfig(hotel shared.Hotel, baseURL string) ClientConfig {
	cfg := DefaultClientConfig()
	cfg.BaseURLOverrides = map[shared.Hotel]string{hotel: baseURL}
	cfg.Timeout = 2 * time.Second
	cfg.RateLimiterConfig = RateLimiterConfig{
		RequestsPerSecond: 1000,
		BurstSize:         1000,
		MinInterval:       0,
		WaitTimeout:       time.Second,
	}
	cfg.RetryConfig = RetryConfig{
		MaxRetries:        0,
		InitialBackoff:    time.Millisecond,
		MaxBackoff:        time.Millisecond,
		BackoffMultiplier: 1,
	}
	return cfg
}

func TestGetUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/public/users", r.URL.Path)
		assert.Equal(t, "FisherMan", r.URL.Query().Get("name"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"uniqueId": "hhobr-abc123",
			"name": "FisherMan",
			"figureString": "hr-100",
			"motto": "gone fishing",
			"online": true,
			"selectedBadges": [
				{"badgeIndex": 1, "code": "ACH_1", "name": "First", "description": "d"}
			]
		}`))
	}))
	defer server.Close()

	client := NewClient(testClientConfig(shared.HotelBR, server.URL))

	user, err := client.GetUser(context.Background(), shared.HotelBR, "FisherMan")
	require.NoError(t, err)

	assert.Equal(t, "hhobr-abc123", user.UniqueID)
	assert.Equal(t, "FisherMan", user.Name)
	assert.True(t, user.Online)
	require.Len(t, user.SelectedBadges, 1)
	assert.Equal(t, "ACH_1", user.SelectedBadges[0].Code)
}

func TestGetUserNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(shared.HotelUS, server.URL))

	_, err := client.GetUser(context.Background(), shared.HotelUS, "ghost")
	assert.ErrorIs(t, err, shared.ErrUserNotFound)
}

func TestGetUserMissingUniqueID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"name": "weird"}`))
	}))
	defer server.Close()

	client := NewClient(testClientConfig(shared.HotelES, server.URL))

	_, err := client.GetUser(context.Background(), shared.HotelES, "weird")
	assert.ErrorIs(t, err, shared.ErrMalformedResponse)
}

func TestGetFishingSkill(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/public/skills/hhobr-abc123", r.URL.Path)
		assert.Equal(t, "FISHING", r.URL.Query().Get("skillType"))

		w.Write([]byte(`{
			"skillType": "FISHING",
			"level": 42,
			"experience": 1337,
			"fishCaught": 900,
			"goldFishCaught": 3,
			"rod": {"level": 5, "experience": 10, "nextLevelExperience": 100}
		}`))
	}))
	defer server.Close()

	client := NewClient(testClientConfig(shared.HotelBR, server.URL))

	skill, err := client.GetFishingSkill(context.Background(), shared.HotelBR, "hhobr-abc123")
	require.NoError(t, err)

	require.NotNil(t, skill.Level)
	assert.Equal(t, 42, *skill.Level)
	assert.Equal(t, 1337, skill.Experience)
	assert.Equal(t, 900, skill.FishCaught)
	require.NotNil(t, skill.Rod)
	assert.Equal(t, 100, skill.Rod.NextLevelExperience)
}

func TestGetFishingSkillMissingLevel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 with no level field: account exists but never fished.
		w.Write([]byte(`{"skillType": "FISHING"}`))
	}))
	defer server.Close()

	client := NewClient(testClientConfig(shared.HotelBR, server.URL))

	_, err := client.GetFishingSkill(context.Background(), shared.HotelBR, "hhobr-nofish")
	assert.ErrorIs(t, err, shared.ErrSkillDataMissing)
}

func TestServerErrorMapsToProviderFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(shared.HotelBR, server.URL))

	_, err := client.GetUser(context.Background(), shared.HotelBR, "someone")
	assert.ErrorIs(t, err, shared.ErrProviderFailure)
	assert.True(t, shared.IsExternalService(err))
	assert.False(t, shared.IsNotFound(err))
}

func TestThrottleMapsToProviderRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(testClientConfig(shared.HotelUS, server.URL))

	_, err := client.GetUser(context.Background(), shared.HotelUS, "someone")
	assert.ErrorIs(t, err, shared.ErrProviderRateLimit)
	assert.ErrorIs(t, err, shared.ErrRateLimited)
}

func TestFetchPlayer(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/public/users", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"uniqueId": "hhobr-x", "name": "Pescador", "figureString": "hr-1", "online": false,
			"selectedBadges": [{"code": "ACH_9", "name": "Nine"}]}`))
	})
	mux.HandleFunc("/api/public/skills/hhobr-x", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"level": 99, "experience": 50, "fishCaught": 12000, "goldFishCaught": 40}`))
	})
	mux.HandleFunc("/api/public/users/hhobr-x/profile", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"user": {"online": true, "lastAccessTime": "2026-08-30T21:04:05.000+0000", "memberSince": "2025-06-01T00:00:00.000+0000"}}`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(testClientConfig(shared.HotelBR, server.URL))
	key, err := shared.NewPlayerKey("Pescador", "com.br")
	require.NoError(t, err)

	snap, err := client.FetchPlayer(context.Background(), key)
	require.NoError(t, err)

	assert.Equal(t, shared.Username("pescador"), snap.Username)
	assert.Equal(t, "Pescador", snap.DisplayName)
	assert.Equal(t, 99, snap.Level)
	assert.Equal(t, 12000, snap.FishCaught)
	assert.True(t, snap.IsMaxLevel())
	// Presence comes from the profile block.
	assert.True(t, snap.Online)
	assert.Equal(t, 2026, snap.LastAccessTime.UTC().Year())
	require.Len(t, snap.Badges, 1)
	assert.Equal(t, "ACH_9", snap.Badges[0].Code)
}

func TestFetchPlayerProfileFailureIsNotFatal(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/public/users", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"uniqueId": "hhous-y", "name": "angler", "online": true}`))
	})
	mux.HandleFunc("/api/public/skills/hhous-y", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"level": 10, "experience": 5}`))
	})
	mux.HandleFunc("/api/public/users/hhous-y/profile", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	client := NewClient(testClientConfig(shared.HotelUS, server.URL))
	key, err := shared.NewPlayerKey("angler", "com")
	require.NoError(t, err)

	snap, err := client.FetchPlayer(context.Background(), key)
	require.NoError(t, err)

	// Presence falls back to the user response.
	assert.True(t, snap.Online)
	assert.Equal(t, 10, snap.Level)
}

func TestCircuitBreakerOpensPerHotel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testClientConfig(shared.HotelES, server.URL)
	cfg.BaseURLOverrides[shared.HotelBR] = server.URL
	cfg.CircuitBreakerConfig = CircuitBreakerConfig{
		FailureThreshold:   1,
		SuccessThreshold:   1,
		Timeout:            time.Minute,
		HalfOpenMaxRetries: 1,
	}
	client := NewClient(cfg)

	_, err := client.GetUser(context.Background(), shared.HotelES, "a")
	require.Error(t, err)

	// Second request to the same hotel fails fast.
	_, err = client.GetUser(context.Background(), shared.HotelES, "a")
	assert.ErrorIs(t, err, ErrCircuitOpen)

	// The other hotel's breaker is untouched.
	_, err = client.GetUser(context.Background(), shared.HotelBR, "a")
	assert.NotErrorIs(t, err, ErrCircuitOpen)
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	cfg := testClientConfig(shared.HotelBR, server.URL)
	cfg.CircuitBreakerConfig = CircuitBreakerConfig{
		FailureThreshold:   1,
		SuccessThreshold:   1,
		Timeout:            time.Minute,
		HalfOpenMaxRetries: 1,
	}
	client := NewClient(cfg)

	for i := 0; i < 3; i++ {
		_, err := client.GetUser(context.Background(), shared.HotelBR, "ghost")
		assert.ErrorIs(t, err, shared.ErrUserNotFound)
	}
}

func TestParseHabboTime(t *testing.T) {
	ts, err := ParseHabboTime("2026-08-30T21:04:05.000+0000")
	require.NoError(t, err)
	assert.Equal(t, time.August, ts.UTC().Month())

	ts, err = ParseHabboTime("")
	require.NoError(t, err)
	assert.True(t, ts.IsZero())

	_, err = ParseHabboTime("not-a-time")
	assert.Error(t, err)
}
