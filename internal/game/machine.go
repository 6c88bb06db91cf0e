// internal/game/machine.go
//
// Game state machine for a single puzzle attempt.
// Responsibilities:
//   - Create new games around an injected secret and word validator.
//   - Validate and apply guesses (length, alphabetic, dictionary).
//   - Track mistake counters for the scoring engine.
//   - Drive state transitions: playing → won/lost, terminal and final.
//
// Side effects are observable only through the returned Outcome; the state
// machine itself performs no I/O.

package game

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// New constructs a game around the given secret. The validator decides
// dictionary membership; a nil validator accepts every 5-letter guess.
func New(secret string, validate Validator) *Game {
	return &Game{
		ID:        uuid.NewString(),
		Word:      strings.ToLower(secret),
		Guesses:   []string{},
		Status:    StatusPlaying,
		CreatedAt: time.Now().UTC(),
		validate:  validate,
	}
}

// SetValidator reattaches the word validator after rehydrating a game from
// storage (the validator itself is never persisted).
func (g *Game) SetValidator(v Validator) { g.validate = v }

// Submit validates and applies one guess.
//
// Rejections (no guess recorded):
//   - ErrGameFinished  if the game already reached a terminal status.
//   - ErrInvalidLength if the normalized guess is not exactly 5 a–z letters.
//   - ErrNotAWord      if the validator rejects the guess; this one also
//     increments Stats.InvalidWordAttempts.
//
// An accepted guess is appended and evaluated. If it equals the secret the
// game is won; else if the guess budget is exhausted it is lost; otherwise
// play continues. On the terminal transition the stats are finalized and
// Outcome.Completed is true — exactly once per game.
func (g *Game) Submit(raw string) (Outcome, error) {
	if g.Status != StatusPlaying {
		return Outcome{Status: g.Status}, ErrGameFinished
	}

	guess := strings.ToLower(strings.TrimSpace(raw))
	if len(guess) != WordLength || !isAlpha(guess) {
		return Outcome{Status: g.Status}, ErrInvalidLength
	}
	if g.validate != nil && !g.validate(guess) {
		g.stats().InvalidWordAttempts++
		return Outcome{Status: g.Status}, ErrNotAWord
	}

	g.countReuse(guess)

	verdicts := Evaluate(g.Word, guess)
	g.Guesses = append(g.Guesses, guess)

	if guess == g.Word {
		g.Status = StatusWon
	} else if len(g.Guesses) >= MaxGuesses {
		g.Status = StatusLost
	}

	out := Outcome{
		Verdicts: verdicts,
		Status:   g.Status,
		Keyboard: KeyboardFor(g.Word, g.Guesses),
	}
	if g.Status != StatusPlaying {
		st := g.stats()
		st.TurnsUsed = len(g.Guesses)
		st.TimeToComplete = time.Since(g.CreatedAt).Milliseconds()
		out.Completed = true
		out.Stats = st
	}
	return out, nil
}

// stats lazily allocates the per-game counters.
func (g *Game) stats() *GameStats {
	if g.Stats == nil {
		g.Stats = &GameStats{}
	}
	return g.Stats
}

// countReuse bumps the mistake counters for an accepted guess, judged
// against what previous guesses already revealed:
//   - a letter the keyboard knows is absent costs one ReusedAbsentLetters
//     per occurrence;
//   - repeating a letter at a position where an earlier guess already got
//     "present" for it costs one ReusedWrongPositions.
func (g *Game) countReuse(guess string) {
	if len(g.Guesses) == 0 {
		return
	}
	kb := KeyboardFor(g.Word, g.Guesses)

	var absent, wrongPos int
	for i := 0; i < len(guess); i++ {
		letter := guess[i : i+1]
		if kb[letter] == VerdictAbsent {
			absent++
			continue
		}
		for _, prev := range g.Guesses {
			if prev[i] != guess[i] {
				continue
			}
			if Evaluate(g.Word, prev)[i] == VerdictPresent {
				wrongPos++
				break
			}
		}
	}
	if absent == 0 && wrongPos == 0 {
		return
	}
	st := g.stats()
	st.ReusedAbsentLetters += absent
	st.ReusedWrongPositions += wrongPos
}

// Pattern renders the guess history as the shareable emoji grid
// (one row per guess: green/yellow/black squares).
func (g *Game) Pattern() string {
	var b strings.Builder
	for i, guess := range g.Guesses {
		if i > 0 {
			b.WriteByte('\n')
		}
		for _, v := range Evaluate(g.Word, guess) {
			switch v {
			case VerdictCorrect:
				b.WriteString("🟩")
			case VerdictPresent:
				b.WriteString("🟨")
			default:
				b.WriteString("⬛")
			}
		}
	}
	return b.String()
}

// isAlpha reports whether s is all lowercase a–z.
func isAlpha(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
