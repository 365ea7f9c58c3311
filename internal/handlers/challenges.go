package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"game-ladder/internal/models"
	"game-ladder/internal/services"
)

type ChallengeHandler struct {
	challenges *services.ChallengeService
	logger     *zap.Logger
}

func NewChallengeHandler(challenges *services.ChallengeService, logger *zap.Logger) *ChallengeHandler {
	return &ChallengeHandler{challenges: challenges, logger: logger}
}

type RespondChallengeRequest struct {
	Status models.ChallengeStatus `json:"status"`
}

// GET /api/challenges
func (h *ChallengeHandler) ListChallenges(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	challenges, err := h.challenges.List(ctx)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, challenges)
}

// POST /api/challenges
func (h *ChallengeHandler) CreateChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req services.CreateChallengeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.challenges.Create(ctx, req)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, c)
}

// GET /api/challenges/{id}
func (h *ChallengeHandler) GetChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := h.challenges.Get(ctx, mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

// RespondChallenge accepts or declines a pending challenge.
// PATCH /api/challenges/{id}
func (h *ChallengeHandler) RespondChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req RespondChallengeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	c, err := h.challenges.Respond(ctx, mux.Vars(r)["id"], req.Status)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

// PATCH /api/challenges/{id}/complete
func (h *ChallengeHandler) CompleteChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	c, err := h.challenges.Complete(ctx, mux.Vars(r)["id"])
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, c)
}

// DELETE /api/challenges/{id}
func (h *ChallengeHandler) DeleteChallenge(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.challenges.Delete(ctx, mux.Vars(r)["id"]); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
