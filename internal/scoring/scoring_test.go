package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wordfill/server/internal/game"
)

func TestScorePerfectGame(t *testing.T) {
	stats := game.GameStats{TurnsUsed: 1, TimeToComplete: 0}
	assert.Equal(t, 100, Score(stats))
}

func TestScoreFastSolve(t *testing.T) {
	// 1 turn, 5 seconds: 100 - 5*0.1 = 99.5, rounds to 100.
	stats := game.GameStats{TurnsUsed: 1, TimeToComplete: 5000}
	assert.Equal(t, 100, Score(stats))
}

func TestScorePenalties(t *testing.T) {
	stats := game.GameStats{
		TurnsUsed:            4,
		TimeToComplete:       90_000,
		InvalidWordAttempts:  2,
		ReusedAbsentLetters:  1,
		ReusedWrongPositions: 3,
	}
	// 100 - 60 - 9 - 10 - 10 - 15 = -4
	assert.Equal(t, -4, Score(stats))
}

// Score is strictly decreasing in every stat, all else equal.
func TestScoreMonotonicity(t *testing.T) {
	base := game.GameStats{TurnsUsed: 3, TimeToComplete: 30_000}
	ref := Score(base)

	worse := []game.GameStats{
		{TurnsUsed: 4, TimeToComplete: 30_000},
		{TurnsUsed: 3, TimeToComplete: 60_000},
		{TurnsUsed: 3, TimeToComplete: 30_000, InvalidWordAttempts: 1},
		{TurnsUsed: 3, TimeToComplete: 30_000, ReusedAbsentLetters: 1},
		{TurnsUsed: 3, TimeToComplete: 30_000, ReusedWrongPositions: 1},
	}
	for i, w := range worse {
		assert.Less(t, Score(w), ref, "case %d", i)
	}
}

func TestRankChangeDamping(t *testing.T) {
	assert.Equal(t, 10, RankChange(100, TierBronze))
	assert.Equal(t, 8, RankChange(100, TierSilver))
	assert.Equal(t, 6, RankChange(100, TierGold))
	assert.Equal(t, 4, RankChange(100, TierPlatinum))
	assert.Equal(t, 2, RankChange(100, TierDiamond))

	// Negative game scores shrink the same way.
	assert.Equal(t, -10, RankChange(-100, TierBronze))
	assert.Equal(t, -2, RankChange(-100, TierDiamond))

	// Unknown tiers fall back to undamped.
	assert.Equal(t, 10, RankChange(100, Tier("Obsidian")))
}

func TestApplyRankChangeClampsAtZero(t *testing.T) {
	assert.Equal(t, 5, ApplyRankChange(15, -10))
	assert.Equal(t, 0, ApplyRankChange(3, -10))
	assert.Equal(t, 0, ApplyRankChange(0, -1))
	assert.Equal(t, 7, ApplyRankChange(0, 7))

	// No sequence of deltas can take the cumulative score negative.
	score := 0
	for _, d := range []int{5, -20, 12, -1, -50, 30} {
		score = ApplyRankChange(score, d)
		assert.GreaterOrEqual(t, score, 0)
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		score int
		want  Tier
	}{
		{-50, TierBronze},
		{0, TierBronze},
		{499, TierBronze},
		{500, TierSilver},
		{1999, TierSilver},
		{2000, TierGold},
		{4999, TierGold},
		{5000, TierPlatinum},
		{9999, TierPlatinum},
		{10000, TierDiamond},
		{123456, TierDiamond},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Classify(tc.score), "score %d", tc.score)
	}
}

// Classification is monotonic non-decreasing in score.
func TestClassifyMonotonic(t *testing.T) {
	prev := Classify(-10)
	for s := 0; s <= 12000; s += 250 {
		cur := Classify(s)
		assert.GreaterOrEqual(t, cur.Threshold(), prev.Threshold(), "score %d", s)
		prev = cur
	}
}

func TestTierOrderingByThreshold(t *testing.T) {
	assert.True(t, TierDiamond.Above(TierPlatinum))
	assert.True(t, TierSilver.Above(TierBronze))
	assert.False(t, TierBronze.Above(TierBronze))
	// Unknown names sort with Bronze rather than reading as a promotion.
	assert.False(t, Tier("Mythril").Above(TierBronze))
}
