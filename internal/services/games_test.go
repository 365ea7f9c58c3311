package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-ladder/internal/apperr"
	"game-ladder/internal/models"
)

func gameNames(games []models.Game) []string {
	names := make([]string, len(games))
	for i, g := range games {
		names[i] = g.Name
	}
	return names
}

func TestGameCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.games.EnsureDefaults(ctx))
	games, err := f.games.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Chess", "Foosball", "Mario Kart", "Ping Pong", "Pool", "Street Fighter"}, gameNames(games))

	added, err := f.games.Add(ctx, " Air Hockey ")
	require.NoError(t, err)
	assert.Equal(t, models.Game{Slug: "air-hockey", Name: "Air Hockey"}, *added)

	_, err = f.games.Add(ctx, "air hockey")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	_, err = f.games.Add(ctx, "  ")
	assert.ErrorIs(t, err, apperr.ErrInvalidArgument)

	require.NoError(t, f.games.Delete(ctx, "Mario Kart"))
	require.NoError(t, f.games.Delete(ctx, "air-hockey"))
	require.NoError(t, f.games.Delete(ctx, "Never Existed"))

	games, err = f.games.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Chess", "Foosball", "Ping Pong", "Pool", "Street Fighter"}, gameNames(games))

	// A non-empty catalog is left alone.
	require.NoError(t, f.games.EnsureDefaults(ctx))
	games, err = f.games.List(ctx)
	require.NoError(t, err)
	assert.Len(t, games, 5)
}

func TestMatchMayUseUncataloguedGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createUser(t, "Alice")
	b := f.createUser(t, "Bob")

	_, err := f.matches.RecordMatch(ctx, RecordMatchRequest{WinnerID: a.ID, LoserID: b.ID, Game: "Cornhole"})
	assert.NoError(t, err)
}
