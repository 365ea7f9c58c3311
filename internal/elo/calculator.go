package elo

import (
	"math"

	"game-ladder/internal/models"
)

const (
	InitialRating = models.DefaultRating
	KFactor       = 32
	Deviation     = 400.0
)

type Calculator struct {
	kFactor float64
}

func NewCalculator() *Calculator {
	return &Calculator{kFactor: KFactor}
}

// NewCalculatorWithK returns a calculator using a custom K-factor. Values
// <= 0 fall back to KFactor.
func NewCalculatorWithK(k int) *Calculator {
	if k <= 0 {
		k = KFactor
	}
	return &Calculator{kFactor: float64(k)}
}

// Placement pairs a user with their finishing position (1 = best).
type Placement struct {
	User      *models.User
	Placement int
}

// ExpectedScore is the predicted score of a player rated ra against one rated rb
// E = 1 / (1 + 10^((rb - ra) / 400))
func ExpectedScore(ra, rb int) float64 {
	exponent := float64(rb-ra) / Deviation
	return 1.0 / (1.0 + math.Pow(10, exponent))
}

// EnsureGameStats creates the per-game entry at the initial rating if absent.
func EnsureGameStats(u *models.User, game string) {
	if u.GameStats == nil {
		u.GameStats = make(map[string]models.GameStats)
	}
	if _, ok := u.GameStats[game]; !ok {
		u.GameStats[game] = models.GameStats{Rating: InitialRating}
	}
}

// Apply1v1 updates winner and loser for a head-to-head result in game and
// returns the winner's per-game rating change. Both new ratings are derived
// from the pre-match ratings.
func (c *Calculator) Apply1v1(winner, loser *models.User, game string) int {
	EnsureGameStats(winner, game)
	EnsureGameStats(loser, game)

	ws := winner.GameStats[game]
	ls := loser.GameStats[game]
	rw, rl := ws.Rating, ls.Rating

	newWinner := c.newRating(rw, ExpectedScore(rw, rl), 1)
	newLoser := c.newRating(rl, ExpectedScore(rl, rw), 0)

	ws.Rating = newWinner
	ws.Wins++
	ls.Rating = newLoser
	ls.Losses++
	winner.GameStats[game] = ws
	loser.GameStats[game] = ls

	winner.TotalWins++
	loser.TotalLosses++

	RecomputeOverall(winner)
	RecomputeOverall(loser)

	return newWinner - rw
}

// ApplyMultiplayer updates every player of a placement match and returns the
// per-game rating changes aligned to the input order. Each player is scored
// against every other one using ratings captured before any update.
func (c *Calculator) ApplyMultiplayer(players []Placement, game string) []int {
	n := len(players)
	changes := make([]int, n)
	if n < 2 {
		return changes
	}

	original := make([]int, n)
	for i, p := range players {
		EnsureGameStats(p.User, game)
		original[i] = p.User.GameStats[game].Rating
	}

	for i := range players {
		var totalExpected, totalActual float64
		for j := range players {
			if i == j {
				continue
			}
			totalExpected += ExpectedScore(original[i], original[j])
			if players[i].Placement < players[j].Placement {
				totalActual++
			}
		}
		avgExpected := totalExpected / float64(n-1)
		avgActual := totalActual / float64(n-1)
		changes[i] = int(math.Round(c.kFactor * (avgActual - avgExpected)))
	}

	for i, p := range players {
		stats := p.User.GameStats[game]
		stats.Rating = original[i] + changes[i]
		if p.Placement == 1 {
			stats.Wins++
			p.User.TotalWins++
		} else {
			stats.Losses++
			p.User.TotalLosses++
		}
		p.User.GameStats[game] = stats
		RecomputeOverall(p.User)
	}

	return changes
}

// newRating applies R' = round(R + K * (S - E))
func (c *Calculator) newRating(rating int, expected, actual float64) int {
	return int(math.Round(float64(rating) + c.kFactor*(actual-expected)))
}
