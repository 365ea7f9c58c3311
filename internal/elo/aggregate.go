package elo

import (
	"math"

	"game-ladder/internal/models"
)

// RecomputeOverall sets the user's overall rating to the rounded mean of
// their per-game ratings. Users who have never played are left untouched.
func RecomputeOverall(u *models.User) {
	if len(u.GameStats) == 0 {
		return
	}
	sum := 0
	for _, s := range u.GameStats {
		sum += s.Rating
	}
	u.Rating = int(math.Round(float64(sum) / float64(len(u.GameStats))))
}
