package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"game-ladder/internal/models"
)

var (
	usersBucket      = []byte("users")
	matchesBucket    = []byte("matches")
	challengesBucket = []byte("challenges")
	gamesBucket      = []byte("games")
)

// Bolt stores each collection as a bucket of JSON documents keyed by id.
type Bolt struct {
	db *bolt.DB
}

func NewBolt(path string) (*Bolt, error) {
	if path == "" {
		path = "ladder.db"
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to open %s", path)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{usersBucket, matchesBucket, challengesBucket, gamesBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Wrapf(err, "unable to create bucket %s", name)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Bolt{db: db}, nil
}

func (b *Bolt) Close(context.Context) error {
	return errors.Wrap(b.db.Close(), "unable to close database")
}

func get(tx *bolt.Tx, bucket []byte, id string, v any) error {
	data := tx.Bucket(bucket).Get([]byte(id))
	if data == nil {
		return errors.Wrapf(ErrNotFound, "%s %s", bucket, id)
	}
	return errors.Wrapf(json.Unmarshal(data, v), "unable to unmarshal %s %s", bucket, id)
}

func put(tx *bolt.Tx, bucket []byte, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "unable to marshal %s %s", bucket, id)
	}
	return errors.Wrapf(tx.Bucket(bucket).Put([]byte(id), data), "error putting %s %s", bucket, id)
}

func list[T any](db *bolt.DB, bucket []byte) ([]T, error) {
	items := make([]T, 0)
	err := db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, v []byte) error {
			var item T
			if err := json.Unmarshal(v, &item); err != nil {
				return errors.Wrapf(err, "unable to unmarshal %s %s", bucket, k)
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		return nil, errors.Wrapf(err, "unable to list %s", bucket)
	}
	return items, nil
}

func (b *Bolt) GetUser(_ context.Context, id string) (*models.User, error) {
	var u models.User
	if err := b.db.View(func(tx *bolt.Tx) error { return get(tx, usersBucket, id, &u) }); err != nil {
		return nil, err
	}
	if u.GameStats == nil {
		u.GameStats = make(map[string]models.GameStats)
	}
	return &u, nil
}

func (b *Bolt) ListUsers(_ context.Context) ([]models.User, error) {
	return list[models.User](b.db, usersBucket)
}

func (b *Bolt) SaveUser(_ context.Context, u *models.User) error {
	err := b.db.Update(func(tx *bolt.Tx) error { return put(tx, usersBucket, u.ID, u) })
	return errors.Wrap(err, "unable to save user")
}

func (b *Bolt) AppendMatch(ctx context.Context, m *models.Match) (*models.Match, error) {
	return b.CommitMatch(ctx, MatchCommit{Match: m})
}

// CommitMatch writes the players, the settled challenge and the match in a
// single transaction.
func (b *Bolt) CommitMatch(_ context.Context, c MatchCommit) (*models.Match, error) {
	err := b.db.Update(func(tx *bolt.Tx) error {
		for _, u := range c.Users {
			if err := put(tx, usersBucket, u.ID, u); err != nil {
				return err
			}
		}
		if c.Challenge != nil {
			if err := put(tx, challengesBucket, c.Challenge.ID, c.Challenge); err != nil {
				return err
			}
		}
		return put(tx, matchesBucket, c.Match.ID, c.Match)
	})
	if err != nil {
		return nil, errors.Wrap(err, "unable to commit match")
	}
	return cloneMatch(c.Match), nil
}

func (b *Bolt) ListMatches(_ context.Context) ([]models.Match, error) {
	matches, err := list[models.Match](b.db, matchesBucket)
	if err != nil {
		return nil, err
	}
	models.SortMatchesNewestFirst(matches)
	return matches, nil
}

func (b *Bolt) GetChallenge(_ context.Context, id string) (*models.Challenge, error) {
	var c models.Challenge
	if err := b.db.View(func(tx *bolt.Tx) error { return get(tx, challengesBucket, id, &c) }); err != nil {
		return nil, err
	}
	return &c, nil
}

func (b *Bolt) ListChallenges(_ context.Context) ([]models.Challenge, error) {
	challenges, err := list[models.Challenge](b.db, challengesBucket)
	if err != nil {
		return nil, err
	}
	models.SortChallengesNewestFirst(challenges)
	return challenges, nil
}

func (b *Bolt) SaveChallenge(_ context.Context, c *models.Challenge) error {
	err := b.db.Update(func(tx *bolt.Tx) error { return put(tx, challengesBucket, c.ID, c) })
	return errors.Wrap(err, "unable to save challenge")
}

func (b *Bolt) DeleteChallenge(_ context.Context, id string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(challengesBucket)
		if bucket.Get([]byte(id)) == nil {
			return errors.Wrapf(ErrNotFound, "challenge %s", id)
		}
		return errors.Wrap(bucket.Delete([]byte(id)), "unable to delete challenge")
	})
}

func (b *Bolt) ListGames(_ context.Context) ([]models.Game, error) {
	return list[models.Game](b.db, gamesBucket)
}

func (b *Bolt) AddGame(_ context.Context, g models.Game) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		if tx.Bucket(gamesBucket).Get([]byte(g.Slug)) != nil {
			return errors.Wrapf(ErrDuplicate, "game %s", g.Slug)
		}
		return put(tx, gamesBucket, g.Slug, g)
	})
}

func (b *Bolt) DeleteGame(_ context.Context, slug string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(gamesBucket).Delete([]byte(slug))
	})
	return errors.Wrap(err, "unable to delete game")
}
