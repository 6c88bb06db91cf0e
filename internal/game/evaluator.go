// internal/game/evaluator.go
//
// Pure guess evaluation: the two-pass letter-matching algorithm and the
// per-letter keyboard aggregation across guesses. Nothing in here touches
// game state; Evaluate(secret, guess) is deterministic and idempotent.

package game

import "strings"

// Evaluate scores guess against secret and returns one Verdict per position.
//
// Pass 1:
//   - Mark exact matches as correct.
//   - Count remaining (non-matched) secret letters by letter index.
//
// Pass 2, left to right:
//   - For each non-correct guess letter: if there is remaining count for that
//     letter, mark present and decrement the count; otherwise mark absent.
//
// The decrementing count guarantees that when a letter appears more times in
// the guess than in the secret, only as many copies are marked present or
// correct as actually occur in the secret, with earlier occurrences favored.
//
// Both inputs are normalized to lowercase; they must be 5 ASCII letters
// (validated by the state machine before reaching here).
func Evaluate(secret, guess string) []Verdict {
	secret = strings.ToLower(secret)
	guess = strings.ToLower(guess)

	n := len(guess)
	res := make([]Verdict, n)

	// Letter frequency for the non-matched secret positions (a–z).
	var counts [26]int

	for i := 0; i < n; i++ {
		if guess[i] == secret[i] {
			res[i] = VerdictCorrect
		} else {
			counts[idx(secret[i])]++
		}
	}

	for i := 0; i < n; i++ {
		if res[i] == VerdictCorrect {
			continue
		}
		j := idx(guess[i])
		if j >= 0 && j < 26 && counts[j] > 0 {
			res[i] = VerdictPresent
			counts[j]--
		} else {
			res[i] = VerdictAbsent
		}
	}
	return res
}

// idx maps a lowercase ASCII letter byte to 0..25.
func idx(b byte) int { return int(b - 'a') }

// Keyboard maps a letter (single lowercase character) to the best verdict
// observed for it across all submitted guesses.
type Keyboard map[string]Verdict

// rank orders verdicts for aggregation: correct > present > absent.
func rank(v Verdict) int {
	switch v {
	case VerdictCorrect:
		return 2
	case VerdictPresent:
		return 1
	default:
		return 0
	}
}

// Merge folds one evaluated guess into the keyboard. A letter only ever
// upgrades: once correct it can never regress to present or absent.
func (k Keyboard) Merge(guess string, verdicts []Verdict) {
	guess = strings.ToLower(guess)
	for i := 0; i < len(guess) && i < len(verdicts); i++ {
		letter := guess[i : i+1]
		if prev, ok := k[letter]; !ok || rank(verdicts[i]) > rank(prev) {
			k[letter] = verdicts[i]
		}
	}
}

// KeyboardFor rebuilds the aggregate keyboard state for a full guess history.
func KeyboardFor(secret string, guesses []string) Keyboard {
	k := Keyboard{}
	for _, g := range guesses {
		k.Merge(g, Evaluate(secret, g))
	}
	return k
}
