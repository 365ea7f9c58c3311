package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"game-ladder/internal/services"
)

type GameHandler struct {
	catalog *services.GameCatalog
	logger  *zap.Logger
}

func NewGameHandler(catalog *services.GameCatalog, logger *zap.Logger) *GameHandler {
	return &GameHandler{catalog: catalog, logger: logger}
}

type AddGameRequest struct {
	Name string `json:"name"`
}

// GET /api/games
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	games, err := h.catalog.List(ctx)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, games)
}

// POST /api/games
func (h *GameHandler) AddGame(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var req AddGameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	g, err := h.catalog.Add(ctx, req.Name)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, g)
}

// DELETE /api/games/{name}
func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.catalog.Delete(ctx, mux.Vars(r)["name"]); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Game deleted"})
}
