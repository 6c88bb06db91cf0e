// internal/scoring/tiers.go
//
// Named score tiers for leaderboard segmentation. Classification walks the
// thresholds highest-first; Bronze (threshold 0) is the universal fallback.

package scoring

// Tier is a named score bracket.
type Tier string

const (
	TierBronze   Tier = "Bronze"
	TierSilver   Tier = "Silver"
	TierGold     Tier = "Gold"
	TierPlatinum Tier = "Platinum"
	TierDiamond  Tier = "Diamond"
)

// tiersDesc lists tiers from highest threshold to lowest.
var tiersDesc = []struct {
	tier      Tier
	threshold int
}{
	{TierDiamond, 10000},
	{TierPlatinum, 5000},
	{TierGold, 2000},
	{TierSilver, 500},
	{TierBronze, 0},
}

// Classify maps a cumulative score to its tier: the first (highest) tier
// whose threshold is ≤ score.
func Classify(score int) Tier {
	for _, t := range tiersDesc {
		if score >= t.threshold {
			return t.tier
		}
	}
	return TierBronze
}

// Threshold returns the minimum score of a tier. Unknown names map to 0 so
// they sort with Bronze.
func (t Tier) Threshold() int {
	for _, e := range tiersDesc {
		if e.tier == t {
			return e.threshold
		}
	}
	return 0
}

// Above reports whether t outranks other. Comparison is by threshold, not by
// name, so a renamed tier can never be misread as a promotion.
func (t Tier) Above(other Tier) bool {
	return t.Threshold() > other.Threshold()
}
