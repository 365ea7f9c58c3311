package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"game-ladder/internal/apperr"
	"game-ladder/internal/challenge"
	"game-ladder/internal/elo"
	"game-ladder/internal/lock"
	"game-ladder/internal/models"
	"game-ladder/internal/store"
)

// MatchRecorder validates results, applies rating updates and stores the
// resulting match. All users of a match are locked for the whole
// read-modify-write so concurrent matches cannot lose updates.
type MatchRecorder struct {
	Deps
	calculator *elo.Calculator
}

func NewMatchRecorder(deps Deps, calculator *elo.Calculator) *MatchRecorder {
	if calculator == nil {
		calculator = elo.NewCalculator()
	}
	return &MatchRecorder{Deps: deps.withDefaults(), calculator: calculator}
}

type RecordMatchRequest struct {
	WinnerID    string `json:"winnerId"`
	LoserID     string `json:"loserId"`
	Game        string `json:"game"`
	ChallengeID string `json:"challengeId,omitempty"`
}

type PlayerPlacement struct {
	UserID    string `json:"userId"`
	Placement int    `json:"placement"`
}

// RecordMultiplayerRequest accepts either PlayerIDs listed in finishing
// order or explicit Players with placements.
type RecordMultiplayerRequest struct {
	PlayerIDs []string          `json:"playerIds,omitempty"`
	Players   []PlayerPlacement `json:"players,omitempty"`
	Game      string            `json:"game"`
}

func (req RecordMultiplayerRequest) placements() ([]PlayerPlacement, error) {
	if len(req.PlayerIDs) > 0 && len(req.Players) > 0 {
		return nil, apperr.InvalidArgument("Provide either playerIds or players, not both")
	}

	players := req.Players
	if len(req.PlayerIDs) > 0 {
		players = make([]PlayerPlacement, len(req.PlayerIDs))
		for i, id := range req.PlayerIDs {
			players[i] = PlayerPlacement{UserID: id, Placement: i + 1}
		}
	}

	if len(players) != models.MultiplayerSize {
		return nil, apperr.InvalidArgument("Exactly %d player IDs required in placement order", models.MultiplayerSize)
	}

	ids := make(map[string]bool, len(players))
	places := make(map[int]bool, len(players))
	for _, p := range players {
		if p.UserID == "" {
			return nil, apperr.InvalidArgument("Player IDs are required")
		}
		if ids[p.UserID] {
			return nil, apperr.InvalidArgument("All players must be different")
		}
		ids[p.UserID] = true
		if p.Placement < 1 || p.Placement > models.MultiplayerSize || places[p.Placement] {
			return nil, apperr.InvalidArgument("Placements must be 1 through %d, each used once", models.MultiplayerSize)
		}
		places[p.Placement] = true
	}
	return players, nil
}

func gameRating(u *models.User, game string) int {
	if s, ok := u.GameStats[game]; ok {
		return s.Rating
	}
	return elo.InitialRating
}

// RecordMatch stores a head-to-head result. When ChallengeID is set the
// challenge must be accepted and between the same two users for the same
// game; it is completed in the same commit as the match and the result is
// rated under the challenge's spelling of the game.
func (r *MatchRecorder) RecordMatch(ctx context.Context, req RecordMatchRequest) (*models.Match, error) {
	game := strings.TrimSpace(req.Game)
	if req.WinnerID == "" || req.LoserID == "" || game == "" {
		return nil, apperr.InvalidArgument("Winner, loser, and game are required")
	}
	if req.WinnerID == req.LoserID {
		return nil, apperr.InvalidArgument("Winner and loser must be different users")
	}

	keys := []string{lock.UserKey(req.WinnerID), lock.UserKey(req.LoserID)}
	if req.ChallengeID != "" {
		keys = append(keys, lock.ChallengeKey(req.ChallengeID))
	}
	unlock, err := r.Locker.Lock(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	winner, err := r.loadUser(ctx, req.WinnerID)
	if err != nil {
		return nil, err
	}
	loser, err := r.loadUser(ctx, req.LoserID)
	if err != nil {
		return nil, err
	}

	var ch *models.Challenge
	if req.ChallengeID != "" {
		if ch, err = r.loadChallenge(ctx, req.ChallengeID); err != nil {
			return nil, err
		}
		if ch.Status != models.ChallengeAccepted {
			return nil, apperr.InvalidTransition("Only accepted challenges can be completed")
		}
		if !challenge.Involves(ch, winner.ID, loser.ID) || !strings.EqualFold(ch.Game, game) {
			return nil, apperr.InvalidArgument("Match players and game must match the challenge")
		}
		game = ch.Game
	}

	winnerBefore, loserBefore := winner.Rating, loser.Rating
	winnerGameBefore, loserGameBefore := gameRating(winner, game), gameRating(loser, game)

	change := r.calculator.Apply1v1(winner, loser, game)

	now := r.Clock.Now()
	winner.UpdatedAt = now
	loser.UpdatedAt = now

	match := &models.Match{
		ID:                     r.IDs.NewID(),
		Type:                   models.MatchTypeHeadToHead,
		Game:                   game,
		ChallengeID:            req.ChallengeID,
		WinnerID:               winner.ID,
		WinnerName:             winner.Name,
		WinnerRatingBefore:     winnerBefore,
		WinnerRatingAfter:      winner.Rating,
		WinnerGameRatingBefore: winnerGameBefore,
		WinnerGameRatingAfter:  winner.GameStats[game].Rating,
		LoserID:                loser.ID,
		LoserName:              loser.Name,
		LoserRatingBefore:      loserBefore,
		LoserRatingAfter:       loser.Rating,
		LoserGameRatingBefore:  loserGameBefore,
		LoserGameRatingAfter:   loser.GameStats[game].Rating,
		RatingChange:           change,
		Date:                   now,
	}

	if ch != nil {
		if err := challenge.Complete(ch, now); err != nil {
			return nil, err
		}
		ch.MatchID = match.ID
	}

	stored, err := store.CommitMatch(ctx, r.Repo, store.MatchCommit{
		Users:     []*models.User{winner, loser},
		Challenge: ch,
		Match:     match,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record match: %w", err)
	}

	r.Logger.Info("match recorded",
		zap.String("matchId", stored.ID),
		zap.String("game", game),
		zap.String("winner", winner.ID),
		zap.String("loser", loser.ID),
		zap.Int("ratingChange", change),
	)
	r.notify(models.FeedEvent{Type: models.EventMatchRecorded, Match: stored, At: now})

	if ch != nil {
		r.notify(models.FeedEvent{Type: models.EventChallengeUpdated, Challenge: ch, At: now})
	}

	return stored, nil
}

// RecordMultiplayer stores a four-player placement match.
func (r *MatchRecorder) RecordMultiplayer(ctx context.Context, req RecordMultiplayerRequest) (*models.Match, error) {
	placements, err := req.placements()
	if err != nil {
		return nil, err
	}
	game := strings.TrimSpace(req.Game)
	if game == "" {
		return nil, apperr.InvalidArgument("Game is required")
	}

	keys := make([]string, len(placements))
	for i, p := range placements {
		keys[i] = lock.UserKey(p.UserID)
	}
	unlock, err := r.Locker.Lock(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer unlock()

	players := make([]elo.Placement, len(placements))
	for i, p := range placements {
		u, err := r.loadUser(ctx, p.UserID)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, apperr.NotFound("One or more users not found")
		}
		if err != nil {
			return nil, err
		}
		players[i] = elo.Placement{User: u, Placement: p.Placement}
	}

	entries := make([]models.MatchPlayer, len(players))
	for i, p := range players {
		entries[i] = models.MatchPlayer{
			UserID:           p.User.ID,
			Name:             p.User.Name,
			Placement:        p.Placement,
			RatingBefore:     p.User.Rating,
			GameRatingBefore: gameRating(p.User, game),
		}
	}

	changes := r.calculator.ApplyMultiplayer(players, game)

	now := r.Clock.Now()
	users := make([]*models.User, len(players))
	for i, p := range players {
		p.User.UpdatedAt = now
		users[i] = p.User
		entries[i].RatingAfter = p.User.Rating
		entries[i].GameRatingAfter = p.User.GameStats[game].Rating
		entries[i].RatingChange = changes[i]
	}

	match := &models.Match{
		ID:      r.IDs.NewID(),
		Type:    models.MatchTypeMultiplayer,
		Game:    game,
		Players: entries,
		Date:    now,
	}

	stored, err := store.CommitMatch(ctx, r.Repo, store.MatchCommit{Users: users, Match: match})
	if err != nil {
		return nil, fmt.Errorf("failed to record multiplayer match: %w", err)
	}

	r.Logger.Info("multiplayer match recorded",
		zap.String("matchId", stored.ID),
		zap.String("game", game),
		zap.Ints("ratingChanges", changes),
	)
	r.notify(models.FeedEvent{Type: models.EventMatchRecorded, Match: stored, At: now})

	return stored, nil
}

// ListMatches returns every match, newest first.
func (r *MatchRecorder) ListMatches(ctx context.Context) ([]models.Match, error) {
	return r.Repo.ListMatches(ctx)
}
