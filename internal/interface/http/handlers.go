package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/origins-hub/fishing-stats-hub/internal/domain/player"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/ranking"
	"github.com/origins-hub/fishing-stats-hub/internal/domain/shared"
	"github.com/origins-hub/fishing-stats-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// HEALTH & STATUS
// ══════════════════════════════════════════════════════════════════════════════

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		writeJSONError(w, http.StatusNotFound, "not_found", "Unknown endpoint")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "fishing-stats-hub",
		"api":     "/api/v1",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"uptime_seconds": int(s.Uptime().Seconds()),
	})
}

// handleReady pings every backing dependency. Any failure flips the whole
// endpoint to 503 so the orchestrator stops routing traffic here.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string, len(s.deps.HealthCheckers))
	healthy := true

	for _, checker := range s.deps.HealthCheckers {
		if err := checker.Ping(ctx); err != nil {
			checks[checker.Name()] = err.Error()
			healthy = false
			continue
		}
		checks[checker.Name()] = "ok"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]interface{}{
		"ready":  healthy,
		"checks": checks,
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

// handleGetLeaderboard serves GET /api/v1/leaderboard?hotel=&mode=&page=.
func (s *Server) handleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	hotel, err := shared.ParseHotel(getQueryParam(r, "hotel", shared.HotelBR.String()))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_hotel", "Unknown hotel, expected com.br, com or es")
		return
	}

	mode, err := ranking.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_mode", err.Error())
		return
	}

	page := getQueryParamInt(r, "page", 1)
	if page < 1 {
		writeJSONError(w, http.StatusBadRequest, "invalid_page", "Page must be a positive integer")
		return
	}

	result, err := s.deps.Leaderboard.GetPage(r.Context(), hotel, mode, page)
	if err != nil {
		s.logger.Error("leaderboard query failed",
			logger.Hotel(hotel.String()), logger.String("mode", mode.String()), logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to build leaderboard")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ══════════════════════════════════════════════════════════════════════════════
// SEARCH
// ══════════════════════════════════════════════════════════════════════════════

type searchRequest struct {
	Username string `json:"username"`
	Hotel    string `json:"hotel"`
}

// handleSearch serves POST /api/v1/search. A search is a full sync: it hits
// the Origins API, so it carries its own stricter per-IP rate limit.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.searchRateLimiter != nil && !s.searchRateLimiter.Allow(getClientIP(r)) {
		w.Header().Set("Retry-After", "60")
		writeJSONError(w, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many searches, please try again later")
		return
	}

	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid_body", "Expected JSON body with username and hotel")
		return
	}

	snapshot, err := s.deps.Searcher.Search(r.Context(), req.Username, req.Hotel)
	if err != nil {
		s.writeSearchError(w, req, err)
		return
	}

	writeJSON(w, http.StatusOK, snapshot)
}

func (s *Server) writeSearchError(w http.ResponseWriter, req searchRequest, err error) {
	switch {
	case shared.IsValidation(err):
		writeJSONError(w, http.StatusUnprocessableEntity, "invalid_input", err.Error())
	case errors.Is(err, shared.ErrUserNotFound), errors.Is(err, shared.ErrSkillDataMissing):
		writeJSONError(w, http.StatusNotFound, "player_not_found", "No fishing data for that player")
	case errors.Is(err, shared.ErrRateLimited):
		w.Header().Set("Retry-After", "60")
		writeJSONError(w, http.StatusTooManyRequests, "upstream_rate_limited", "The Origins API is throttling requests")
	case shared.IsExternalService(err), errors.Is(err, shared.ErrInvalidFormat):
		s.logger.Error("search failed upstream",
			logger.Username(req.Username), logger.Hotel(req.Hotel), logger.Err(err))
		writeJSONError(w, http.StatusBadGateway, "upstream_error", "The Origins API is unavailable")
	default:
		s.logger.Error("search failed",
			logger.Username(req.Username), logger.Hotel(req.Hotel), logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Search failed")
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// PLAYER DETAIL & HISTORY
// ══════════════════════════════════════════════════════════════════════════════

// handleGetPlayer serves GET /api/v1/players/{hotel}/{username}.
func (s *Server) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	key, ok := s.playerKeyFromPath(w, r)
	if !ok {
		return
	}

	detail, err := s.deps.Players.GetDetail(r.Context(), key)
	if err != nil {
		if errors.Is(err, player.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "player_not_found", "Player is not tracked")
			return
		}
		s.logger.Error("player detail query failed", logger.String("player", key.String()), logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to load player")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

type historyPointResponse struct {
	Level      int       `json:"level"`
	Experience int       `json:"experience"`
	LoggedAt   time.Time `json:"logged_at"`
}

// handleGetPlayerHistory serves
// GET /api/v1/players/{hotel}/{username}/history?since=RFC3339.
// Without a since parameter the last 30 days are returned.
func (s *Server) handleGetPlayerHistory(w http.ResponseWriter, r *http.Request) {
	key, ok := s.playerKeyFromPath(w, r)
	if !ok {
		return
	}

	since := time.Now().UTC().AddDate(0, 0, -30)
	if raw := r.URL.Query().Get("since"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid_since", "Expected an RFC3339 timestamp")
			return
		}
		since = parsed
	}

	entries, err := s.deps.Players.GetHistory(r.Context(), key, since)
	if err != nil {
		s.logger.Error("history query failed", logger.String("player", key.String()), logger.Err(err))
		writeJSONError(w, http.StatusInternalServerError, "internal_error", "Failed to load history")
		return
	}

	points := make([]historyPointResponse, 0, len(entries))
	for _, e := range entries {
		points = append(points, historyPointResponse{
			Level:      e.Level,
			Experience: e.Experience,
			LoggedAt:   e.LoggedAt,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"player": key.String(),
		"since":  since,
		"points": points,
	})
}

func (s *Server) playerKeyFromPath(w http.ResponseWriter, r *http.Request) (shared.PlayerKey, bool) {
	key, err := shared.NewPlayerKey(r.PathValue("username"), r.PathValue("hotel"))
	if err != nil {
		writeJSONError(w, http.StatusUnprocessableEntity, "invalid_input", err.Error())
		return shared.PlayerKey{}, false
	}
	return key, true
}

// ══════════════════════════════════════════════════════════════════════════════
// SSE CHANGE FEED
// ══════════════════════════════════════════════════════════════════════════════

// handleEvents serves GET /api/v1/events as a server-sent event stream of
// player updates and level-cap achievements.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.broadcaster == nil {
		writeJSONError(w, http.StatusNotImplemented, "events_disabled", "The event stream is not enabled")
		return
	}
	s.broadcaster.serve(w, r)
}
