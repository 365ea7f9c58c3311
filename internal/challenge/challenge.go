// Package challenge implements the lifecycle of a proposed match:
//
//	pending -> accepted | declined
//	accepted -> completed
//
// Pending and declined challenges may be deleted; accepted and completed
// ones are kept as durable records. Every function validates before it
// mutates, so a failed call leaves the challenge unchanged.
package challenge

import (
	"strings"
	"time"

	"game-ladder/internal/apperr"
	"game-ladder/internal/models"
)

var transitions = map[models.ChallengeStatus][]models.ChallengeStatus{
	models.ChallengePending:  {models.ChallengeAccepted, models.ChallengeDeclined},
	models.ChallengeAccepted: {models.ChallengeCompleted},
}

// Params describes a new challenge.
type Params struct {
	ID             string
	ChallengerID   string
	ChallengerName string
	ChallengedID   string
	ChallengedName string
	Game           string
	Message        string
}

// Validate checks the fields New needs, without user lookups.
func (p Params) Validate() error {
	if p.ChallengerID == "" || p.ChallengedID == "" || strings.TrimSpace(p.Game) == "" {
		return apperr.InvalidArgument("Challenger, challenged user, and game are required")
	}
	if p.ChallengerID == p.ChallengedID {
		return apperr.InvalidArgument("You cannot challenge yourself")
	}
	return nil
}

// New creates a pending challenge.
func New(p Params, now time.Time) (*models.Challenge, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &models.Challenge{
		ID:             p.ID,
		ChallengerID:   p.ChallengerID,
		ChallengerName: p.ChallengerName,
		ChallengedID:   p.ChallengedID,
		ChallengedName: p.ChallengedName,
		Game:           strings.TrimSpace(p.Game),
		Message:        p.Message,
		Status:         models.ChallengePending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Next returns the states reachable from status in one transition.
func Next(status models.ChallengeStatus) []models.ChallengeStatus {
	return append([]models.ChallengeStatus(nil), transitions[status]...)
}

// CanTransition reports whether from -> to is a legal transition.
func CanTransition(from, to models.ChallengeStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Respond accepts or declines a pending challenge.
func Respond(c *models.Challenge, decision models.ChallengeStatus, now time.Time) error {
	if decision != models.ChallengeAccepted && decision != models.ChallengeDeclined {
		return apperr.InvalidArgument("Valid status (accepted/declined) is required")
	}
	if c.Status != models.ChallengePending {
		return apperr.InvalidTransition("Challenge has already been responded to")
	}
	c.Status = decision
	c.UpdatedAt = now
	return nil
}

// Complete closes an accepted challenge. It does not rate anything; the
// match is recorded separately.
func Complete(c *models.Challenge, now time.Time) error {
	if !CanTransition(c.Status, models.ChallengeCompleted) {
		return apperr.InvalidTransition("Only accepted challenges can be completed")
	}
	c.Status = models.ChallengeCompleted
	c.UpdatedAt = now
	return nil
}

// CheckDelete reports whether c may be removed from the store.
func CheckDelete(c *models.Challenge) error {
	switch c.Status {
	case models.ChallengePending, models.ChallengeDeclined:
		return nil
	default:
		return apperr.TransitionConflict("Cannot delete accepted or completed challenges")
	}
}

// Involves reports whether the two user ids are exactly the challenge's
// participants, in either order.
func Involves(c *models.Challenge, a, b string) bool {
	return (c.ChallengerID == a && c.ChallengedID == b) ||
		(c.ChallengerID == b && c.ChallengedID == a)
}
