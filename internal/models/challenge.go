package models

import (
	"slices"
	"time"
)

type ChallengeStatus string

const (
	ChallengePending   ChallengeStatus = "pending"
	ChallengeAccepted  ChallengeStatus = "accepted"
	ChallengeDeclined  ChallengeStatus = "declined"
	ChallengeCompleted ChallengeStatus = "completed"
)

type Challenge struct {
	ID             string          `json:"id" bson:"_id"`
	ChallengerID   string          `json:"challengerId" bson:"challengerId"`
	ChallengerName string          `json:"challengerName" bson:"challengerName"`
	ChallengedID   string          `json:"challengedId" bson:"challengedId"`
	ChallengedName string          `json:"challengedName" bson:"challengedName"`
	Game           string          `json:"game" bson:"game"`
	Message        string          `json:"message" bson:"message"`
	Status         ChallengeStatus `json:"status" bson:"status"`
	MatchID        string          `json:"matchId,omitempty" bson:"matchId,omitempty"` // set when completed through a recorded match
	CreatedAt      time.Time       `json:"createdAt" bson:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt" bson:"updatedAt"`
}

func (c *Challenge) Clone() *Challenge {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

// SortChallengesNewestFirst orders challenges by createdAt descending.
func SortChallengesNewestFirst(challenges []Challenge) {
	slices.SortStableFunc(challenges, func(a, b Challenge) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
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
