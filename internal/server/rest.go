package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"lol-tracker/internal/domain"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Routes exposes the same operations as plain JSON over REST.
func (s *StatsServer) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/stats/{puuid}", s.handleGetStats)
		r.Delete("/stats/{puuid}", s.handleInvalidateStats)
		r.Get("/players/{puuid}", s.handleGetPlayer)
		r.Post("/players/{puuid}/follow", s.handleFollow)
		r.Get("/riot-id/{gameName}/{tagLine}", s.handleResolvePlayer)
	})
	return r
}

func (s *StatsServer) handleGetStats(w http.ResponseWriter, r *http.Request) {
	puuid := chi.URLParam(r, "puuid")

	summary, err := s.stats.GetStatsSummary(r.Context(), puuid)
	if errors.Is(err, domain.ErrNoMatchHistory) {
		writeJSON(w, http.StatusOK, &StatsResponse{HasHistory: false})
		return
	}
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, &StatsResponse{HasHistory: true, Summary: toSummaryResponse(summary)})
}

func (s *StatsServer) handleInvalidateStats(w http.ResponseWriter, r *http.Request) {
	if err := s.stats.Invalidate(r.Context(), chi.URLParam(r, "puuid")); err != nil {
		writeError(r.Context(), w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *StatsServer) handleFollow(w http.ResponseWriter, r *http.Request) {
	id, err := s.stats.Warm(context.WithoutCancel(r.Context()), chi.URLParam(r, "puuid"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, &FollowResponse{JobID: id})
}

func (s *StatsServer) handleResolvePlayer(w http.ResponseWriter, r *http.Request) {
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))

	player, err := s.players.ResolvePlayer(r.Context(), chi.URLParam(r, "gameName"), chi.URLParam(r, "tagLine"), refresh)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlayerResponse(player))
}

func (s *StatsServer) handleGetPlayer(w http.ResponseWriter, r *http.Request) {
	player, err := s.players.GetPlayer(r.Context(), chi.URLParam(r, "puuid"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPlayerResponse(player))
}

func (s *StatsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.health())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	code := errorCode(err)
	status := httpStatus(code)

	event := zerolog.Ctx(ctx).Warn()
	if status >= http.StatusInternalServerError && code != connect.CodeUnavailable {
		event = zerolog.Ctx(ctx).Error()
	}
	event.Err(err).Int("status", status).Msg("request failed")

	if code == connect.CodeUnavailable {
		w.Header().Set("Retry-After", retryAfterHeader(err))
	}
	writeJSON(w, status, &ErrorResponse{Error: err.Error(), Code: code.String()})
}
