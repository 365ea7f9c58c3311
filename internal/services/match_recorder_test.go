package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"game-ladder/internal/apperr"
	"game-ladder/internal/models"
	"game-ladder/internal/store"
)

func TestRecordMatchEqualRatings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createUser(t, "Alice")
	b := f.createUser(t, "Bob")

	m, err := f.matches.RecordMatch(ctx, RecordMatchRequest{WinnerID: a.ID, LoserID: b.ID, Game: "Chess"})
	require.NoError(t, err)

	assert.Equal(t, 16, m.RatingChange)
	assert.Equal(t, models.MatchTypeHeadToHead, m.Type)
	assert.Equal(t, base, m.Date)
	assert.Equal(t, "Alice", m.WinnerName)
	assert.Equal(t, 1200, m.WinnerRatingBefore)
	assert.Equal(t, 1216, m.WinnerRatingAfter)
	assert.Equal(t, 1200, m.LoserGameRatingBefore)
	assert.Equal(t, 1184, m.LoserGameRatingAfter)

	winner := f.user(t, a.ID)
	loser := f.user(t, b.ID)
	assert.Equal(t, models.GameStats{Rating: 1216, Wins: 1}, winner.GameStats["Chess"])
	assert.Equal(t, models.GameStats{Rating: 1184, Losses: 1}, loser.GameStats["Chess"])
	assert.Equal(t, 1216, winner.Rating)
	assert.Equal(t, 1184, loser.Rating)
	assert.Equal(t, 1, winner.TotalWins)
	assert.Equal(t, 1, loser.TotalLosses)

	stored, err := f.matches.ListMatches(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, m.ID, stored[0].ID)
	assert.Contains(t, f.notifier.types(), models.EventMatchRecorded)
}

func TestRecordMatchValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createUser(t, "Alice")
	b := f.createUser(t, "Bob")

	tests := []struct {
		name string
		req  RecordMatchRequest
		kind error
	}{
		{"missing winner", RecordMatchRequest{LoserID: b.ID, Game: "Chess"}, apperr.ErrInvalidArgument},
		{"missing game", RecordMatchRequest{WinnerID: a.ID, LoserID: b.ID, Game: "  "}, apperr.ErrInvalidArgument},
		{"same user", RecordMatchRequest{WinnerID: a.ID, LoserID: a.ID, Game: "Chess"}, apperr.ErrInvalidArgument},
		{"unknown loser", RecordMatchRequest{WinnerID: a.ID, LoserID: "ghost", Game: "Chess"}, apperr.ErrNotFound},
		{"unknown challenge", RecordMatchRequest{WinnerID: a.ID, LoserID: b.ID, Game: "Chess", ChallengeID: "nope"}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.matches.RecordMatch(ctx, tt.req)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	matches, err := f.repo.ListMatches(ctx)
	require.NoError(t, err)
	assert.Empty(t, matches)
	assert.Equal(t, 1200, f.user(t, a.ID).Rating)
	assert.Empty(t, f.user(t, a.ID).GameStats)
}

func TestRecordMatchBoundChallenge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createUser(t, "Alice")
	b := f.createUser(t, "Bob")
	c := f.createUser(t, "Carol")

	ch, err := f.challenges.Create(ctx, CreateChallengeRequest{ChallengerID: a.ID, ChallengedID: b.ID, Game: "Pool"})
	require.NoError(t, err)

	t.Run("pending challenge is rejected", func(t *testing.T) {
		_, err := f.matches.RecordMatch(ctx, RecordMatchRequest{WinnerID: b.ID, LoserID: a.ID, Game: "Pool", ChallengeID: ch.ID})
		assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	})

	_, err = f.challenges.Respond(ctx, ch.ID, models.ChallengeAccepted)
	require.NoError(t, err)

	t.Run("wrong players", func(t *testing.T) {
		_, err := f.matches.RecordMatch(ctx, RecordMatchRequest{WinnerID: a.ID, LoserID: c.ID, Game: "Pool", ChallengeID: ch.ID})
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	})

	t.Run("wrong game", func(t *testing.T) {
		_, err := f.matches.RecordMatch(ctx, RecordMatchRequest{WinnerID: a.ID, LoserID: b.ID, Game: "Chess", ChallengeID: ch.ID})
		assert.ErrorIs(t, err, apperr.ErrInvalidArgument)
	})

	matches, err := f.repo.ListMatches(ctx)
	require.NoError(t, err)
	assert.Empty(t, matches)

	m, err := f.matches.RecordMatch(ctx, RecordMatchRequest{WinnerID: b.ID, LoserID: a.ID, Game: "Pool", ChallengeID: ch.ID})
	require.NoError(t, err)
	assert.Equal(t, ch.ID, m.ChallengeID)

	got, err := f.challenges.Get(ctx, ch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChallengeCompleted, got.Status)
	assert.Equal(t, m.ID, got.MatchID)

	_, err = f.matches.RecordMatch(ctx, RecordMatchRequest{WinnerID: b.ID, LoserID: a.ID, Game: "Pool", ChallengeID: ch.ID})
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
}

func TestRecordMatchBoundChallengeUsesChallengeGame(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createUser(t, "Alice")
	b := f.createUser(t, "Bob")

	ch, err := f.challenges.Create(ctx, CreateChallengeRequest{ChallengerID: a.ID, ChallengedID: b.ID, Game: "Pool"})
	require.NoError(t, err)
	_, err = f.challenges.Respond(ctx, ch.ID, models.ChallengeAccepted)
	require.NoError(t, err)

	m, err := f.matches.RecordMatch(ctx, RecordMatchRequest{WinnerID: a.ID, LoserID: b.ID, Game: " pool ", ChallengeID: ch.ID})
	require.NoError(t, err)
	assert.Equal(t, "Pool", m.Game)

	winner := f.user(t, a.ID)
	assert.Equal(t, map[string]models.GameStats{"Pool": {Rating: 1216, Wins: 1}}, winner.GameStats)
	assert.Equal(t, 1216, winner.Rating)
}

func TestRecordMatchBoundChallengeFailedCommitChangesNothing(t *testing.T) {
	tests := []struct {
		name string
		wrap func(*store.Memory) store.Repository
	}{
		{"sequential writes", func(m *store.Memory) store.Repository {
			return &faultyRepo{Repository: m, saveChallengeErr: assert.AnError}
		}},
		{"atomic commit", func(m *store.Memory) store.Repository {
			return failingCommitter{Memory: m, err: assert.AnError}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			a := f.createUser(t, "Alice")
			b := f.createUser(t, "Bob")

			ch, err := f.challenges.Create(ctx, CreateChallengeRequest{ChallengerID: a.ID, ChallengedID: b.ID, Game: "Pool"})
			require.NoError(t, err)
			_, err = f.challenges.Respond(ctx, ch.ID, models.ChallengeAccepted)
			require.NoError(t, err)

			req := RecordMatchRequest{WinnerID: a.ID, LoserID: b.ID, Game: "Pool", ChallengeID: ch.ID}
			_, err = f.recorderOn(tt.wrap(f.repo)).RecordMatch(ctx, req)
			require.ErrorIs(t, err, assert.AnError)

			matches, err := f.repo.ListMatches(ctx)
			require.NoError(t, err)
			assert.Empty(t, matches)
			for _, id := range []string{a.ID, b.ID} {
				u := f.user(t, id)
				assert.Equal(t, 1200, u.Rating)
				assert.Empty(t, u.GameStats)
			}
			got, err := f.challenges.Get(ctx, ch.ID)
			require.NoError(t, err)
			assert.Equal(t, models.ChallengeAccepted, got.Status)
			assert.Empty(t, got.MatchID)

			// The result can still be recorded once the store recovers.
			m, err := f.matches.RecordMatch(ctx, req)
			require.NoError(t, err)
			assert.Equal(t, 16, m.RatingChange)
			_, err = f.matches.RecordMatch(ctx, req)
			assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
		})
	}
}

func TestRecordMultiplayerEqualStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := make([]string, 4)
	for i, name := range []string{"P1", "P2", "P3", "P4"} {
		ids[i] = f.createUser(t, name).ID
	}

	m, err := f.matches.RecordMultiplayer(ctx, RecordMultiplayerRequest{PlayerIDs: ids, Game: "Mario Kart"})
	require.NoError(t, err)
	require.Len(t, m.Players, 4)

	changes := make([]int, 4)
	sum := 0
	for i, p := range m.Players {
		assert.Equal(t, ids[i], p.UserID)
		assert.Equal(t, i+1, p.Placement)
		assert.Equal(t, 1200, p.GameRatingBefore)
		changes[i] = p.RatingChange
		sum += p.RatingChange
	}
	assert.Equal(t, []int{16, 5, -5, -16}, changes)
	assert.Zero(t, sum)

	first := f.user(t, ids[0])
	assert.Equal(t, models.GameStats{Rating: 1216, Wins: 1}, first.GameStats["Mario Kart"])
	last := f.user(t, ids[3])
	assert.Equal(t, models.GameStats{Rating: 1184, Losses: 1}, last.GameStats["Mario Kart"])
	assert.Equal(t, 1184, last.Rating)
}

func TestRecordMultiplayerExplicitPlacements(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := make([]string, 4)
	for i, name := range []string{"P1", "P2", "P3", "P4"} {
		ids[i] = f.createUser(t, name).ID
	}

	m, err := f.matches.RecordMultiplayer(ctx, RecordMultiplayerRequest{
		Game: "Mario Kart",
		Players: []PlayerPlacement{
			{UserID: ids[0], Placement: 3},
			{UserID: ids[1], Placement: 1},
			{UserID: ids[2], Placement: 4},
			{UserID: ids[3], Placement: 2},
		},
	})
	require.NoError(t, err)

	changes := make([]int, 4)
	for i, p := range m.Players {
		changes[i] = p.RatingChange
	}
	assert.Equal(t, []int{-5, 16, -16, 5}, changes)
}

func TestRecordMultiplayerValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := make([]string, 4)
	for i, name := range []string{"P1", "P2", "P3", "P4"} {
		ids[i] = f.createUser(t, name).ID
	}

	tests := []struct {
		name string
		req  RecordMultiplayerRequest
		kind error
	}{
		{"three players", RecordMultiplayerRequest{PlayerIDs: ids[:3], Game: "Pool"}, apperr.ErrInvalidArgument},
		{"duplicate player", RecordMultiplayerRequest{PlayerIDs: []string{ids[0], ids[1], ids[2], ids[0]}, Game: "Pool"}, apperr.ErrInvalidArgument},
		{"missing game", RecordMultiplayerRequest{PlayerIDs: ids, Game: ""}, apperr.ErrInvalidArgument},
		{"both forms", RecordMultiplayerRequest{PlayerIDs: ids, Players: []PlayerPlacement{{UserID: ids[0], Placement: 1}}, Game: "Pool"}, apperr.ErrInvalidArgument},
		{"repeated placement", RecordMultiplayerRequest{Game: "Pool", Players: []PlayerPlacement{
			{UserID: ids[0], Placement: 1}, {UserID: ids[1], Placement: 1},
			{UserID: ids[2], Placement: 3}, {UserID: ids[3], Placement: 4},
		}}, apperr.ErrInvalidArgument},
		{"placement out of range", RecordMultiplayerRequest{Game: "Pool", Players: []PlayerPlacement{
			{UserID: ids[0], Placement: 1}, {UserID: ids[1], Placement: 2},
			{UserID: ids[2], Placement: 3}, {UserID: ids[3], Placement: 5},
		}}, apperr.ErrInvalidArgument},
		{"unknown player", RecordMultiplayerRequest{PlayerIDs: []string{ids[0], ids[1], ids[2], "ghost"}, Game: "Pool"}, apperr.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.matches.RecordMultiplayer(ctx, tt.req)
			assert.ErrorIs(t, err, tt.kind)
		})
	}

	for _, id := range ids {
		assert.Empty(t, f.user(t, id).GameStats)
	}
	matches, err := f.repo.ListMatches(ctx)
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestRecordMultiplayerStorageErrorIsNotNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ids := make([]string, 4)
	for i, name := range []string{"P1", "P2", "P3", "P4"} {
		ids[i] = f.createUser(t, name).ID
	}

	r := f.recorderOn(&faultyRepo{Repository: f.repo, getUserErr: assert.AnError})
	_, err := r.RecordMultiplayer(ctx, RecordMultiplayerRequest{PlayerIDs: ids, Game: "Mario Kart"})
	require.ErrorIs(t, err, assert.AnError)
	assert.NotErrorIs(t, err, apperr.ErrNotFound)
}

func TestConcurrentMatchesDoNotLoseUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.createUser(t, "Alice")
	b := f.createUser(t, "Bob")
	c := f.createUser(t, "Carol")

	const rounds = 20
	var wg sync.WaitGroup
	for i := 0; i < rounds; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := f.matches.RecordMatch(ctx, RecordMatchRequest{WinnerID: a.ID, LoserID: b.ID, Game: "Chess"})
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			_, err := f.matches.RecordMatch(ctx, RecordMatchRequest{WinnerID: c.ID, LoserID: a.ID, Game: "Chess"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	alice := f.user(t, a.ID)
	assert.Equal(t, rounds, alice.GameStats["Chess"].Wins)
	assert.Equal(t, rounds, alice.GameStats["Chess"].Losses)
	assert.Equal(t, rounds, f.user(t, b.ID).TotalLosses)
	assert.Equal(t, rounds, f.user(t, c.ID).TotalWins)

	matches, err := f.repo.ListMatches(ctx)
	require.NoError(t, err)
	assert.Len(t, matches, 2*rounds)
}
