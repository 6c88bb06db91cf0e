// internal/scoring/scoring.go
//
// Pure scoring formulas: completed-game stats → point score, and point
// score → tier-damped rank delta. The caller owns applying the delta to a
// user's cumulative score (clamped at zero) and detecting tier changes.

package scoring

import (
	"math"

	"github.com/wordfill/server/internal/game"
)

// Fixed scoring weights. A perfect game (1 turn, instant, no mistakes)
// scores the full base.
const (
	baseScore             = 100
	turnsMultiplier       = 20
	timePenaltyPerSec     = 0.1
	invalidWordPenalty    = 5
	reusedAbsentPenalty   = 10
	reusedWrongPosPenalty = 5
)

// Score converts a completed game's stats into a point score, rounded to the
// nearest integer. A slow, mistake-heavy game can go negative; no floor is
// applied here.
func Score(stats game.GameStats) int {
	s := float64(baseScore)
	s -= float64(stats.TurnsUsed-1) * turnsMultiplier
	s -= math.Floor(float64(stats.TimeToComplete)/1000) * timePenaltyPerSec
	s -= float64(stats.InvalidWordAttempts) * invalidWordPenalty
	s -= float64(stats.ReusedAbsentLetters) * reusedAbsentPenalty
	s -= float64(stats.ReusedWrongPositions) * reusedWrongPosPenalty
	return int(math.Round(s))
}

// damping makes rank movement slower the higher the tier.
var damping = map[Tier]float64{
	TierBronze:   1.0,
	TierSilver:   0.8,
	TierGold:     0.6,
	TierPlatinum: 0.4,
	TierDiamond:  0.2,
}

// RankChange converts one game's score into a bounded adjustment of the
// player's cumulative score, damped by their current tier. The result may be
// negative.
func RankChange(gameScore int, currentTier Tier) int {
	base := float64(gameScore) / 10
	mult, ok := damping[currentTier]
	if !ok {
		mult = 1.0
	}
	return int(math.Round(base * mult))
}

// ApplyRankChange adds a rank delta to a cumulative score, clamping the
// total at zero. The cumulative score never goes negative even when the
// delta does.
func ApplyRankChange(current, delta int) int {
	next := current + delta
	if next < 0 {
		return 0
	}
	return next
}
