package models

import "time"

type FeedEventType string

const (
	EventMatchRecorded    FeedEventType = "match_recorded"
	EventUserCreated      FeedEventType = "user_created"
	EventUserUpdated      FeedEventType = "user_updated"
	EventChallengeCreated FeedEventType = "challenge_created"
	EventChallengeUpdated FeedEventType = "challenge_updated"
	EventChallengeDeleted FeedEventType = "challenge_deleted"
	EventGamesChanged     FeedEventType = "games_changed"
)

// FeedEvent is pushed to live feed subscribers after a successful write.
type FeedEvent struct {
	Type        FeedEventType `json:"type" bson:"type"`
	Match       *Match        `json:"match,omitempty" bson:"match,omitempty"`
	Challenge   *Challenge    `json:"challenge,omitempty" bson:"challenge,omitempty"`
	User        *User         `json:"user,omitempty" bson:"user,omitempty"`
	ChallengeID string        `json:"challengeId,omitempty" bson:"challengeId,omitempty"`
	At          time.Time     `json:"at" bson:"at"`
}
