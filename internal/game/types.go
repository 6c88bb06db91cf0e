// internal/game/types.go
//
// Core type definitions for the game engine.
// Defines:
//   - Verdict: per-letter result of a guess (correct/present/absent).
//   - Status:  lifecycle of a single game (playing/won/lost).
//   - GameStats: per-game counters consumed by the scoring engine.
//   - Game:    state for a single in-progress or finished game.

package game

import (
	"errors"
	"time"
)

// Verdict classifies a single letter position of a guess against the secret.
// Possible values:
//   - "correct": letter is in the secret at this exact position.
//   - "present": letter exists in the secret but in a different position.
//   - "absent":  letter does not exist in the secret at all (or all copies
//     of it are already accounted for).
type Verdict string

const (
	VerdictCorrect Verdict = "correct"
	VerdictPresent Verdict = "present"
	VerdictAbsent  Verdict = "absent"
)

// Status is the coarse lifecycle of a game. Transitions only
// playing → won | lost; terminal states never revert.
type Status string

const (
	StatusPlaying Status = "playing"
	StatusWon     Status = "won"
	StatusLost    Status = "lost"
)

// Guess validation errors returned by Submit. Neither mutates the guess
// history; ErrNotAWord bumps the invalid-word counter.
var (
	ErrInvalidLength = errors.New("guess must be exactly 5 letters")
	ErrNotAWord      = errors.New("not in word list")
	ErrGameFinished  = errors.New("game finished")
)

// MaxGuesses is the guess budget per game.
const MaxGuesses = 6

// WordLength is the fixed secret/guess length.
const WordLength = 5

// GameStats accumulates per-game counters during play and is finalized once
// when the game reaches a terminal status.
type GameStats struct {
	InvalidWordAttempts  int   `json:"invalidWordAttempts"`
	ReusedAbsentLetters  int   `json:"reusedAbsentLetters"`
	ReusedWrongPositions int   `json:"reusedWrongPositions"`
	TimeToComplete       int64 `json:"timeToComplete"` // milliseconds
	TurnsUsed            int   `json:"turnsUsed"`
}

// Validator reports whether a normalized 5-letter guess is an acceptable
// dictionary word. The word source is injected so the engine stays pure.
type Validator func(word string) bool

// Game holds the state of a single game. The secret and guesses are stored
// lowercase. Stats is nil until the first rejected word or the game ends.
type Game struct {
	ID         string     `json:"id"`
	Word       string     `json:"word"`
	Guesses    []string   `json:"guesses"`
	Status     Status     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	Stats      *GameStats `json:"stats,omitempty"`
	SeriesID   string     `json:"seriesId,omitempty"`
	SharedBy   string     `json:"sharedBy,omitempty"`
	SharedWith []string   `json:"sharedWith,omitempty"`

	validate Validator
}

// Outcome reports the observable result of a submitted guess. The state
// machine performs no I/O; everything a caller needs is in here.
type Outcome struct {
	Verdicts  []Verdict  `json:"verdicts"`
	Status    Status     `json:"status"`
	Keyboard  Keyboard   `json:"keyboard"`
	Completed bool       `json:"completed"` // true exactly once, on the terminal transition
	Stats     *GameStats `json:"stats,omitempty"`
}
