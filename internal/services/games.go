package services

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/gosimple/slug"
	"go.uber.org/zap"

	"game-ladder/internal/apperr"
	"game-ladder/internal/models"
	"game-ladder/internal/store"
)

// GameCatalog is the list of games offered to clients. Matches may name
// games outside the catalog.
type GameCatalog struct {
	Deps
}

func NewGameCatalog(deps Deps) *GameCatalog {
	return &GameCatalog{Deps: deps.withDefaults()}
}

func (g *GameCatalog) List(ctx context.Context) ([]models.Game, error) {
	games, err := g.Repo.ListGames(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(games, func(a, b models.Game) int {
		return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return games, nil
}

func (g *GameCatalog) Add(ctx context.Context, name string) (*models.Game, error) {
	name = strings.TrimSpace(name)
	s := slug.Make(name)
	if name == "" || s == "" {
		return nil, apperr.InvalidArgument("Game name is required")
	}

	game := models.Game{Slug: s, Name: name}
	if err := g.Repo.AddGame(ctx, game); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, apperr.Conflict("Game already exists")
		}
		return nil, err
	}

	g.Logger.Info("game added", zap.String("slug", s))
	g.notify(models.FeedEvent{Type: models.EventGamesChanged})
	return &game, nil
}

// Delete removes a game by display name or slug. Removing an unknown game
// succeeds.
func (g *GameCatalog) Delete(ctx context.Context, name string) error {
	s := slug.Make(strings.TrimSpace(name))
	if s == "" {
		return apperr.InvalidArgument("Game name is required")
	}
	if err := g.Repo.DeleteGame(ctx, s); err != nil {
		return err
	}
	g.notify(models.FeedEvent{Type: models.EventGamesChanged})
	return nil
}

// EnsureDefaults seeds the default games into an empty catalog.
func (g *GameCatalog) EnsureDefaults(ctx context.Context) error {
	games, err := g.Repo.ListGames(ctx)
	if err != nil {
		return err
	}
	if len(games) > 0 {
		return nil
	}
	for _, name := range models.DefaultGames {
		err := g.Repo.AddGame(ctx, models.Game{Slug: slug.Make(name), Name: name})
		if err != nil && !errors.Is(err, store.ErrDuplicate) {
			return err
		}
	}
	g.Logger.Info("seeded default games", zap.Int("count", len(models.DefaultGames)))
	return nil
}
