package models

import (
	"slices"
	"time"
)

type MatchType string

const (
	MatchTypeHeadToHead  MatchType = "1v1"
	MatchTypeMultiplayer MatchType = "multiplayer"
)

// MultiplayerSize is the number of players in a placement match.
const MultiplayerSize = 4

// MatchPlayer is one participant of a multiplayer match.
type MatchPlayer struct {
	UserID           string `json:"userId" bson:"userId"`
	Name             string `json:"name" bson:"name"`
	Placement        int    `json:"placement" bson:"placement"` // 1 = best
	RatingBefore     int    `json:"ratingBefore" bson:"ratingBefore"`
	RatingAfter      int    `json:"ratingAfter" bson:"ratingAfter"`
	GameRatingBefore int    `json:"gameRatingBefore" bson:"gameRatingBefore"`
	GameRatingAfter  int    `json:"gameRatingAfter" bson:"gameRatingAfter"`
	RatingChange     int    `json:"ratingChange" bson:"ratingChange"`
}

// Match is an immutable record of a played game. RatingBefore/After fields
// hold overall ratings; GameRating fields hold the per-game rating.
type Match struct {
	ID          string    `json:"id" bson:"_id"`
	Type        MatchType `json:"type" bson:"type"`
	Game        string    `json:"game" bson:"game"`
	ChallengeID string    `json:"challengeId,omitempty" bson:"challengeId,omitempty"`

	WinnerID               string `json:"winnerId,omitempty" bson:"winnerId,omitempty"`
	WinnerName             string `json:"winnerName,omitempty" bson:"winnerName,omitempty"`
	WinnerRatingBefore     int    `json:"winnerRatingBefore,omitempty" bson:"winnerRatingBefore,omitempty"`
	WinnerRatingAfter      int    `json:"winnerRatingAfter,omitempty" bson:"winnerRatingAfter,omitempty"`
	WinnerGameRatingBefore int    `json:"winnerGameRatingBefore,omitempty" bson:"winnerGameRatingBefore,omitempty"`
	WinnerGameRatingAfter  int    `json:"winnerGameRatingAfter,omitempty" bson:"winnerGameRatingAfter,omitempty"`
	LoserID                string `json:"loserId,omitempty" bson:"loserId,omitempty"`
	LoserName              string `json:"loserName,omitempty" bson:"loserName,omitempty"`
	LoserRatingBefore      int    `json:"loserRatingBefore,omitempty" bson:"loserRatingBefore,omitempty"`
	LoserRatingAfter       int    `json:"loserRatingAfter,omitempty" bson:"loserRatingAfter,omitempty"`
	LoserGameRatingBefore  int    `json:"loserGameRatingBefore,omitempty" bson:"loserGameRatingBefore,omitempty"`
	LoserGameRatingAfter   int    `json:"loserGameRatingAfter,omitempty" bson:"loserGameRatingAfter,omitempty"`
	RatingChange           int    `json:"ratingChange" bson:"ratingChange"`

	Players []MatchPlayer `json:"players,omitempty" bson:"players,omitempty"`

	Date time.Time `json:"date" bson:"date"`
}

// Involves reports whether userID took part in the match.
func (m *Match) Involves(userID string) bool {
	if m.WinnerID == userID || m.LoserID == userID {
		return true
	}
	return slices.ContainsFunc(m.Players, func(p MatchPlayer) bool {
		return p.UserID == userID
	})
}

// SortMatchesNewestFirst orders matches by date descending, ties by id.
func SortMatchesNewestFirst(matches []Match) {
	slices.SortStableFunc(matches, func(a, b Match) int {
		if c := b.Date.Compare(a.Date); c != 0 {
			return c
		}
		switch {
		case a.ID > b.ID:
			return -1
		case a.ID < b.ID:
			return 1
		}
		return 0
	})
}
