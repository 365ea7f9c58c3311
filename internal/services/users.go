package services

import (
	"cmp"
	"context"
	"slices"
	"strings"

	"go.uber.org/zap"

	"game-ladder/internal/apperr"
	"game-ladder/internal/elo"
	"game-ladder/internal/lock"
	"game-ladder/internal/models"
)

type UserService struct {
	Deps
}

func NewUserService(deps Deps) *UserService {
	return &UserService{Deps: deps.withDefaults()}
}

// LeaderboardEntry is one ranked row of the overall or per-game ladder.
type LeaderboardEntry struct {
	Rank          int    `json:"rank"`
	UserID        string `json:"userId"`
	Name          string `json:"name"`
	Rating        int    `json:"rating"`
	Wins          int    `json:"wins"`
	Losses        int    `json:"losses"`
	MatchesPlayed int    `json:"matchesPlayed"`
}

// checkName trims name and rejects it when empty or already used by a user
// other than exceptID.
func (s *UserService) checkName(ctx context.Context, name, exceptID string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperr.InvalidArgument("Name is required")
	}
	users, err := s.Repo.ListUsers(ctx)
	if err != nil {
		return "", err
	}
	for _, u := range users {
		if u.ID != exceptID && strings.EqualFold(u.Name, name) {
			return "", apperr.InvalidArgument("User already exists")
		}
	}
	return name, nil
}

func (s *UserService) Create(ctx context.Context, name string) (*models.User, error) {
	unlock, err := s.Locker.Lock(ctx, lock.NamesKey)
	if err != nil {
		return nil, err
	}
	defer unlock()

	name, err = s.checkName(ctx, name, "")
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	u := &models.User{
		ID:        s.IDs.NewID(),
		Name:      name,
		Rating:    elo.InitialRating,
		GameStats: make(map[string]models.GameStats),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Repo.SaveUser(ctx, u); err != nil {
		return nil, err
	}

	s.Logger.Info("user created", zap.String("userId", u.ID), zap.String("name", u.Name))
	s.notify(models.FeedEvent{Type: models.EventUserCreated, User: u, At: now})
	return u, nil
}

// Rename changes a user's display name. Names stored on past matches and
// challenges are left as they were.
func (s *UserService) Rename(ctx context.Context, id, name string) (*models.User, error) {
	unlock, err := s.Locker.Lock(ctx, lock.NamesKey, lock.UserKey(id))
	if err != nil {
		return nil, err
	}
	defer unlock()

	u, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	name, err = s.checkName(ctx, name, id)
	if err != nil {
		return nil, err
	}

	u.Name = name
	u.UpdatedAt = s.Clock.Now()
	if err := s.Repo.SaveUser(ctx, u); err != nil {
		return nil, err
	}

	s.notify(models.FeedEvent{Type: models.EventUserUpdated, User: u, At: u.UpdatedAt})
	return u, nil
}

// Get returns the user with every match they took part in, newest first.
func (s *UserService) Get(ctx context.Context, id string) (*models.UserWithMatches, error) {
	u, err := s.loadUser(ctx, id)
	if err != nil {
		return nil, err
	}
	all, err := s.Repo.ListMatches(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]models.Match, 0)
	for _, m := range all {
		if m.Involves(id) {
			matches = append(matches, m)
		}
	}
	models.SortMatchesNewestFirst(matches)

	return &models.UserWithMatches{User: *u, Matches: matches}, nil
}

// List returns every user by overall rating, highest first.
func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.Repo.ListUsers(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(users, func(a, b models.User) int {
		if c := cmp.Compare(b.Rating, a.Rating); c != 0 {
			return c
		}
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return users, nil
}

// Leaderboard ranks users overall when game is empty, otherwise only the
// users who have played game, by their rating in it.
func (s *UserService) Leaderboard(ctx context.Context, game string) ([]LeaderboardEntry, error) {
	users, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	game = strings.TrimSpace(game)
	entries := make([]LeaderboardEntry, 0, len(users))
	for _, u := range users {
		if game == "" {
			entries = append(entries, LeaderboardEntry{
				UserID:        u.ID,
				Name:          u.Name,
				Rating:        u.Rating,
				Wins:          u.TotalWins,
				Losses:        u.TotalLosses,
				MatchesPlayed: u.MatchesPlayed(),
			})
			continue
		}
		stats, ok := u.GameStats[game]
		if !ok {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			UserID:        u.ID,
			Name:          u.Name,
			Rating:        stats.Rating,
			Wins:          stats.Wins,
			Losses:        stats.Losses,
			MatchesPlayed: stats.Wins + stats.Losses,
		})
	}

	if game != "" {
		slices.SortStableFunc(entries, func(a, b LeaderboardEntry) int {
			return cmp.Compare(b.Rating, a.Rating)
		})
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}
