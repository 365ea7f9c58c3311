package handlers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// API groups the handlers mounted by Register.
type API struct {
	Users      *UserHandler
	Matches    *MatchHandler
	Games      *GameHandler
	Challenges *ChallengeHandler
	Feed       *Hub
}

// Register mounts every route on router. Middleware for a route group is
// passed through apiMiddleware and feedMiddleware.
func (a *API) Register(router *mux.Router, apiMiddleware, feedMiddleware []mux.MiddlewareFunc) {
	if a.Feed != nil {
		feed := router.PathPrefix("/ws").Subrouter()
		feed.Use(feedMiddleware...)
		feed.HandleFunc("/feed", a.Feed.HandleFeed).Methods("GET")
	}

	api := router.PathPrefix("/api").Subrouter()
	api.Use(apiMiddleware...)

	api.HandleFunc("/users", a.Users.ListUsers).Methods("GET")
	api.HandleFunc("/users", a.Users.CreateUser).Methods("POST")
	api.HandleFunc("/users/{id}", a.Users.GetUser).Methods("GET")
	api.HandleFunc("/users/{id}", a.Users.RenameUser).Methods("PATCH")
	api.HandleFunc("/leaderboard", a.Users.GetLeaderboard).Methods("GET")

	api.HandleFunc("/matches", a.Matches.ListMatches).Methods("GET")
	api.HandleFunc("/matches", a.Matches.RecordMatch).Methods("POST")
	api.HandleFunc("/matches/multiplayer", a.Matches.RecordMultiplayer).Methods("POST")

	api.HandleFunc("/games", a.Games.ListGames).Methods("GET")
	api.HandleFunc("/games", a.Games.AddGame).Methods("POST")
	api.HandleFunc("/games/{name}", a.Games.DeleteGame).Methods("DELETE")

	api.HandleFunc("/challenges", a.Challenges.ListChallenges).Methods("GET")
	api.HandleFunc("/challenges", a.Challenges.CreateChallenge).Methods("POST")
	api.HandleFunc("/challenges/{id}", a.Challenges.GetChallenge).Methods("GET")
	api.HandleFunc("/challenges/{id}", a.Challenges.RespondChallenge).Methods("PATCH")
	api.HandleFunc("/challenges/{id}", a.Challenges.DeleteChallenge).Methods("DELETE")
	api.HandleFunc("/challenges/{id}/complete", a.Challenges.CompleteChallenge).Methods("PATCH")

	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")
}
