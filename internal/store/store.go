// Package store persists users, matches, challenges and the game catalog.
// Backends are interchangeable and selected once at process start.
package store

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"game-ladder/internal/models"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrDuplicate is returned when a game slug is already in the catalog.
var ErrDuplicate = errors.New("record already exists")

type Repository interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	SaveUser(ctx context.Context, u *models.User) error

	AppendMatch(ctx context.Context, m *models.Match) (*models.Match, error)
	ListMatches(ctx context.Context) ([]models.Match, error)

	GetChallenge(ctx context.Context, id string) (*models.Challenge, error)
	ListChallenges(ctx context.Context) ([]models.Challenge, error)
	SaveChallenge(ctx context.Context, c *models.Challenge) error
	DeleteChallenge(ctx context.Context, id string) error

	ListGames(ctx context.Context) ([]models.Game, error)
	AddGame(ctx context.Context, g models.Game) error
	DeleteGame(ctx context.Context, slug string) error

	Close(ctx context.Context) error
}

// MatchCommit is everything a rated match changes: the players, the match
// record and, when the match settles one, the completed challenge.
type MatchCommit struct {
	Users     []*models.User
	Challenge *models.Challenge
	Match     *models.Match
}

// MatchCommitter is implemented by backends that can store a MatchCommit in
// one atomic write.
type MatchCommitter interface {
	CommitMatch(ctx context.Context, c MatchCommit) (*models.Match, error)
}

// CommitMatch persists a rated match. Backends without MatchCommitter get
// the challenge written first, then the users, then the match.
func CommitMatch(ctx context.Context, repo Repository, c MatchCommit) (*models.Match, error) {
	if committer, ok := repo.(MatchCommitter); ok {
		return committer.CommitMatch(ctx, c)
	}
	if c.Challenge != nil {
		if err := repo.SaveChallenge(ctx, c.Challenge); err != nil {
			return nil, err
		}
	}
	for _, u := range c.Users {
		if err := repo.SaveUser(ctx, u); err != nil {
			return nil, err
		}
	}
	return repo.AppendMatch(ctx, c.Match)
}

// Open returns the backend named by driver.
func Open(ctx context.Context, driver string, opts Options) (Repository, error) {
	switch driver {
	case "", "memory":
		return NewMemory(), nil
	case "bolt":
		return NewBolt(opts.BoltPath)
	case "mongodb":
		return NewMongoDB(ctx, opts.MongoURI, opts.MongoDatabase, opts.Logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", driver)
	}
}

// Options carries backend-specific settings for Open.
type Options struct {
	BoltPath      string
	MongoURI      string
	MongoDatabase string
	Logger        *zap.Logger
}
