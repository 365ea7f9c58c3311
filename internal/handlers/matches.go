package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"game-ladder/internal/services"
)

type MatchHandler struct {
	recorder *services.MatchRecorder
	logger   *zap.Logger
}

func NewMatchHandler(recorder *services.MatchRecorder, logger *zap.Logger) *MatchHandler {
	return &MatchHandler{recorder: recorder, logger: logger}
}

// ListMatches returns all matches, newest first.
// GET /api/matches
func (h *MatchHandler) ListMatches(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	matches, err := h.recorder.ListMatches(ctx)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, matches)
}

// RecordMatch rates a head-to-head result.
// POST /api/matches
func (h *MatchHandler) RecordMatch(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req services.RecordMatchRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.recorder.RecordMatch(ctx, req)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, m)
}

// RecordMultiplayer rates a four-player placement result.
// POST /api/matches/multiplayer
func (h *MatchHandler) RecordMultiplayer(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req services.RecordMultiplayerRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	m, err := h.recorder.RecordMultiplayer(ctx, req)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, m)
}
