package models

import (
	"maps"
	"time"
)

// GameStats holds a user's rating and record for a single game.
type GameStats struct {
	Rating int `json:"rating" bson:"rating"`
	Wins   int `json:"wins" bson:"wins"`
	Losses int `json:"losses" bson:"losses"`
}

type User struct {
	ID          string               `json:"id" bson:"_id"`
	Name        string               `json:"name" bson:"name"`
	Rating      int                  `json:"rating" bson:"rating"` // mean of GameStats ratings once any game is played
	TotalWins   int                  `json:"totalWins" bson:"totalWins"`
	TotalLosses int                  `json:"totalLosses" bson:"totalLosses"`
	GameStats   map[string]GameStats `json:"gameStats" bson:"gameStats"`
	CreatedAt   time.Time            `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt" bson:"updatedAt"`
}

// Clone returns a deep copy so callers can mutate ratings without touching
// the stored record.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.GameStats = maps.Clone(u.GameStats)
	if c.GameStats == nil {
		c.GameStats = make(map[string]GameStats)
	}
	return &c
}

// MatchesPlayed is the number of completed matches across all games.
func (u *User) MatchesPlayed() int {
	return u.TotalWins + u.TotalLosses
}

// UserWithMatches is the detail view of a single user.
type UserWithMatches struct {
	User
	Matches []Match `json:"matches"`
}

// Default values
const (
	DefaultRating = 1200
)
