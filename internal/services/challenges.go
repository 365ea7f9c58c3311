package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"game-ladder/internal/apperr"
	"game-ladder/internal/challenge"
	"game-ladder/internal/lock"
	"game-ladder/internal/models"
	"game-ladder/internal/store"
)

type ChallengeService struct {
	Deps
}

func NewChallengeService(deps Deps) *ChallengeService {
	return &ChallengeService{Deps: deps.withDefaults()}
}

type CreateChallengeRequest struct {
	ChallengerID string `json:"challengerId"`
	ChallengedID string `json:"challengedId"`
	Game         string `json:"game"`
	Message      string `json:"message"`
}

func (s *ChallengeService) Create(ctx context.Context, req CreateChallengeRequest) (*models.Challenge, error) {
	params := challenge.Params{
		ID:           s.IDs.NewID(),
		ChallengerID: req.ChallengerID,
		ChallengedID: req.ChallengedID,
		Game:         req.Game,
		Message:      strings.TrimSpace(req.Message),
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	challenger, err := s.loadUser(ctx, req.ChallengerID)
	if err != nil {
		return nil, err
	}
	challenged, err := s.loadUser(ctx, req.ChallengedID)
	if err != nil {
		return nil, err
	}
	params.ChallengerName = challenger.Name
	params.ChallengedName = challenged.Name

	c, err := challenge.New(params, s.Clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.Repo.SaveChallenge(ctx, c); err != nil {
		return nil, err
	}

	s.Logger.Info("challenge created",
		zap.String("challengeId", c.ID),
		zap.String("challenger", c.ChallengerID),
		zap.String("challenged", c.ChallengedID),
		zap.String("game", c.Game),
	)
	s.notify(models.FeedEvent{Type: models.EventChallengeCreated, Challenge: c, At: c.CreatedAt})
	return c, nil
}

func (s *ChallengeService) Get(ctx context.Context, id string) (*models.Challenge, error) {
	return s.loadChallenge(ctx, id)
}

// List returns every challenge, newest first.
func (s *ChallengeService) List(ctx context.Context) ([]models.Challenge, error) {
	challenges, err := s.Repo.ListChallenges(ctx)
	if err != nil {
		return nil, err
	}
	models.SortChallengesNewestFirst(challenges)
	return challenges, nil
}

// update runs fn on a fresh copy of the challenge under its lock and stores
// the result when fn succeeds.
func (s *ChallengeService) update(ctx context.Context, id string, fn func(c *models.Challenge, now time.Time) error) (*models.Challenge, error) {
	unlock, err := s.Locker.Lock(ctx, lock.ChallengeKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	c, err := s.loadChallenge(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.Clock.Now()
	if err := fn(c, now); err != nil {
		return nil, err
	}
	if err := s.Repo.SaveChallenge(ctx, c); err != nil {
		return nil, err
	}

	s.notify(models.FeedEvent{Type: models.EventChallengeUpdated, Challenge: c, At: now})
	return c, nil
}

// Respond accepts or declines a pending challenge.
func (s *ChallengeService) Respond(ctx context.Context, id string, status models.ChallengeStatus) (*models.Challenge, error) {
	if status != models.ChallengeAccepted && status != models.ChallengeDeclined {
		return nil, apperr.InvalidArgument("Valid status (accepted/declined) is required")
	}
	c, err := s.update(ctx, id, func(c *models.Challenge, now time.Time) error {
		return challenge.Respond(c, status, now)
	})
	if err != nil {
		return nil, err
	}
	s.Logger.Info("challenge answered", zap.String("challengeId", id), zap.String("status", string(status)))
	return c, nil
}

// Complete marks an accepted challenge as played without recording a match.
func (s *ChallengeService) Complete(ctx context.Context, id string) (*models.Challenge, error) {
	return s.update(ctx, id, challenge.Complete)
}

func (s *ChallengeService) Delete(ctx context.Context, id string) error {
	unlock, err := s.Locker.Lock(ctx, lock.ChallengeKey(id))
	if err != nil {
		return err
	}
	defer unlock()

	c, err := s.loadChallenge(ctx, id)
	if err != nil {
		return err
	}
	return s.deleteLocked(ctx, c)
}

func (s *ChallengeService) deleteLocked(ctx context.Context, c *models.Challenge) error {
	if err := challenge.CheckDelete(c); err != nil {
		return err
	}
	if err := s.Repo.DeleteChallenge(ctx, c.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return apperr.NotFound("Challenge not found")
		}
		return err
	}
	s.notify(models.FeedEvent{Type: models.EventChallengeDeleted, ChallengeID: c.ID})
	return nil
}

// ExpirePending deletes pending challenges last updated before cutoff and
// returns how many were removed. Each candidate is re-read under its lock so
// a challenge answered in the meantime is kept.
func (s *ChallengeService) ExpirePending(ctx context.Context, cutoff time.Time) (int, error) {
	challenges, err := s.Repo.ListChallenges(ctx)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, candidate := range challenges {
		if candidate.Status != models.ChallengePending || !candidate.UpdatedAt.Before(cutoff) {
			continue
		}
		ok, err := s.expireOne(ctx, candidate.ID, cutoff)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}

func (s *ChallengeService) expireOne(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	unlock, err := s.Locker.Lock(ctx, lock.ChallengeKey(id))
	if err != nil {
		return false, err
	}
	defer unlock()

	c, err := s.Repo.GetChallenge(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if c.Status != models.ChallengePending || !c.UpdatedAt.Before(cutoff) {
		return false, nil
	}
	if err := s.deleteLocked(ctx, c); err != nil {
		return false, err
	}
	return true, nil
}
