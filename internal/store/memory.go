package store

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"game-ladder/internal/models"
)

// Memory keeps everything in process. Data does not survive a restart.
type Memory struct {
	mu         sync.RWMutex
	users      map[string]*models.User
	matches    []models.Match
	challenges map[string]*models.Challenge
	games      []models.Game
}

func NewMemory() *Memory {
	return &Memory{
		users:      make(map[string]*models.User),
		challenges: make(map[string]*models.Challenge),
	}
}

func (m *Memory) GetUser(_ context.Context, id string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "user %s", id)
	}
	return u.Clone(), nil
}

func (m *Memory) ListUsers(_ context.Context) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	users := make([]models.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *u.Clone())
	}
	return users, nil
}

func (m *Memory) SaveUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.users[u.ID] = u.Clone()
	return nil
}

func (m *Memory) AppendMatch(_ context.Context, match *models.Match) (*models.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.appendMatch(match), nil
}

func (m *Memory) appendMatch(match *models.Match) *models.Match {
	stored := cloneMatch(match)
	m.matches = append(m.matches, *stored)
	return cloneMatch(stored)
}

func (m *Memory) CommitMatch(_ context.Context, c MatchCommit) (*models.Match, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, u := range c.Users {
		m.users[u.ID] = u.Clone()
	}
	if c.Challenge != nil {
		m.challenges[c.Challenge.ID] = c.Challenge.Clone()
	}
	return m.appendMatch(c.Match), nil
}

func (m *Memory) ListMatches(_ context.Context) ([]models.Match, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]models.Match, len(m.matches))
	for i := range m.matches {
		matches[i] = *cloneMatch(&m.matches[i])
	}
	models.SortMatchesNewestFirst(matches)
	return matches, nil
}

func (m *Memory) GetChallenge(_ context.Context, id string) (*models.Challenge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.challenges[id]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "challenge %s", id)
	}
	return c.Clone(), nil
}

func (m *Memory) ListChallenges(_ context.Context) ([]models.Challenge, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	challenges := make([]models.Challenge, 0, len(m.challenges))
	for _, c := range m.challenges {
		challenges = append(challenges, *c)
	}
	models.SortChallengesNewestFirst(challenges)
	return challenges, nil
}

func (m *Memory) SaveChallenge(_ context.Context, c *models.Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.challenges[c.ID] = c.Clone()
	return nil
}

func (m *Memory) DeleteChallenge(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.challenges[id]; !ok {
		return errors.Wrapf(ErrNotFound, "challenge %s", id)
	}
	delete(m.challenges, id)
	return nil
}

func (m *Memory) ListGames(_ context.Context) ([]models.Game, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return append([]models.Game{}, m.games...), nil
}

func (m *Memory) AddGame(_ context.Context, g models.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.games {
		if existing.Slug == g.Slug {
			return errors.Wrapf(ErrDuplicate, "game %s", g.Slug)
		}
	}
	m.games = append(m.games, g)
	return nil
}

func (m *Memory) DeleteGame(_ context.Context, slug string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, g := range m.games {
		if g.Slug == slug {
			m.games = append(m.games[:i], m.games[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Memory) Close(context.Context) error {
	return nil
}

func cloneMatch(match *models.Match) *models.Match {
	c := *match
	c.Players = append([]models.MatchPlayer(nil), match.Players...)
	return &c
}
