package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"game-ladder/internal/models"
	"game-ladder/internal/store"
)

var base = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id-%03d", s.n)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []models.FeedEvent
}

func (n *recordingNotifier) Notify(ev models.FeedEvent) {
	n.mu.Lock()
	n.events = append(n.events, ev)
	n.mu.Unlock()
}

func (n *recordingNotifier) types() []models.FeedEventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.FeedEventType, len(n.events))
	for i, ev := range n.events {
		out[i] = ev.Type
	}
	return out
}

type fixture struct {
	repo       *store.Memory
	clock      *fakeClock
	notifier   *recordingNotifier
	users      *UserService
	matches    *MatchRecorder
	challenges *ChallengeService
	games      *GameCatalog
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     store.NewMemory(),
		clock:    &fakeClock{now: base},
		notifier: &recordingNotifier{},
	}
	deps := Deps{
		Repo:     f.repo,
		Clock:    f.clock,
		IDs:      &seqIDs{},
		Notifier: f.notifier,
	}
	f.users = NewUserService(deps)
	f.matches = NewMatchRecorder(deps, nil)
	f.challenges = NewChallengeService(deps)
	f.games = NewGameCatalog(deps)
	return f
}

func (f *fixture) createUser(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := f.users.Create(context.Background(), name)
	require.NoError(t, err)
	return u
}

func (f *fixture) user(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := f.repo.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

// faultyRepo fails the configured operations. Embedding the interface hides
// the backend's MatchCommitter, so matches are stored with individual writes.
type faultyRepo struct {
	store.Repository
	saveChallengeErr error
	getUserErr       error
}

func (r *faultyRepo) SaveChallenge(ctx context.Context, c *models.Challenge) error {
	if r.saveChallengeErr != nil {
		return r.saveChallengeErr
	}
	return r.Repository.SaveChallenge(ctx, c)
}

func (r *faultyRepo) GetUser(ctx context.Context, id string) (*models.User, error) {
	if r.getUserErr != nil {
		return nil, r.getUserErr
	}
	return r.Repository.GetUser(ctx, id)
}

// failingCommitter keeps the memory backend but rejects every atomic commit.
type failingCommitter struct {
	*store.Memory
	err error
}

func (c failingCommitter) CommitMatch(context.Context, store.MatchCommit) (*models.Match, error) {
	return nil, c.err
}

// recorderOn returns a recorder sharing the fixture's clock and notifier but
// writing through repo.
func (f *fixture) recorderOn(repo store.Repository) *MatchRecorder {
	return NewMatchRecorder(Deps{Repo: repo, Clock: f.clock, IDs: &seqIDs{n: 100}, Notifier: f.notifier}, nil)
}
