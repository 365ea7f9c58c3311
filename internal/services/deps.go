package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"game-ladder/internal/apperr"
	"game-ladder/internal/lock"
	"game-ladder/internal/models"
	"game-ladder/internal/store"
)

// Clock supplies timestamps. Tests inject a fixed clock.
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }

// IDSource generates record identifiers.
type IDSource interface {
	NewID() string
}

type UUIDSource struct{}

func (UUIDSource) NewID() string { return uuid.NewString() }

// Notifier receives an event after every successful write.
type Notifier interface {
	Notify(event models.FeedEvent)
}

type nopNotifier struct{}

func (nopNotifier) Notify(models.FeedEvent) {}

// Deps are the collaborators shared by every service.
type Deps struct {
	Repo     store.Repository
	Locker   lock.Locker
	Clock    Clock
	IDs      IDSource
	Notifier Notifier
	Logger   *zap.Logger
}

func (d Deps) withDefaults() Deps {
	if d.Locker == nil {
		d.Locker = lock.NewLocal()
	}
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	if d.IDs == nil {
		d.IDs = UUIDSource{}
	}
	if d.Notifier == nil {
		d.Notifier = nopNotifier{}
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return d
}

func (d Deps) loadUser(ctx context.Context, id string) (*models.User, error) {
	u, err := d.Repo.GetUser(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (d Deps) loadChallenge(ctx context.Context, id string) (*models.Challenge, error) {
	c, err := d.Repo.GetChallenge(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Challenge not found")
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (d Deps) notify(event models.FeedEvent) {
	if event.At.IsZero() {
		event.At = d.Clock.Now()
	}
	d.Notifier.Notify(event)
}
