package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allowAll(string) bool { return true }

func dictOf(words ...string) Validator {
	set := map[string]bool{}
	for _, w := range words {
		set[w] = true
	}
	return func(w string) bool { return set[w] }
}

func TestSubmitRejectsBadLength(t *testing.T) {
	g := New("crane", allowAll)
	for _, raw := range []string{"", "cat", "cranes", "cr4ne", "cran e"} {
		_, err := g.Submit(raw)
		assert.ErrorIs(t, err, ErrInvalidLength, "guess %q", raw)
	}
	assert.Empty(t, g.Guesses)
	assert.Equal(t, StatusPlaying, g.Status)
	assert.Nil(t, g.Stats)
}

func TestSubmitRejectsUnknownWord(t *testing.T) {
	g := New("crane", dictOf("crane", "react"))

	_, err := g.Submit("zzzzz")
	assert.ErrorIs(t, err, ErrNotAWord)
	assert.Empty(t, g.Guesses)
	require.NotNil(t, g.Stats)
	assert.Equal(t, 1, g.Stats.InvalidWordAttempts)

	_, err = g.Submit("qqqqq")
	assert.ErrorIs(t, err, ErrNotAWord)
	assert.Equal(t, 2, g.Stats.InvalidWordAttempts)
}

func TestSubmitWin(t *testing.T) {
	g := New("crane", allowAll)

	out, err := g.Submit("react")
	require.NoError(t, err)
	assert.Equal(t, StatusPlaying, out.Status)
	assert.False(t, out.Completed)

	out, err = g.Submit("CRANE")
	require.NoError(t, err)
	assert.Equal(t, StatusWon, out.Status)
	assert.True(t, out.Completed)
	require.NotNil(t, out.Stats)
	assert.Equal(t, 2, out.Stats.TurnsUsed)
	assert.GreaterOrEqual(t, out.Stats.TimeToComplete, int64(0))

	// Terminal states are final.
	_, err = g.Submit("slate")
	assert.ErrorIs(t, err, ErrGameFinished)
	assert.Len(t, g.Guesses, 2)
}

func TestSubmitLossAfterSixGuesses(t *testing.T) {
	g := New("crane", allowAll)
	misses := []string{"jolly", "quilt", "dough", "moist", "bumps", "fuzzy"}

	var out Outcome
	var err error
	for _, m := range misses {
		out, err = g.Submit(m)
		require.NoError(t, err)
	}
	assert.Equal(t, StatusLost, out.Status)
	assert.True(t, out.Completed)
	require.NotNil(t, out.Stats)
	assert.Equal(t, 6, out.Stats.TurnsUsed)

	_, err = g.Submit("crane")
	assert.ErrorIs(t, err, ErrGameFinished)
}

func TestCompletedSignaledExactlyOnce(t *testing.T) {
	g := New("crane", allowAll)
	out, err := g.Submit("crane")
	require.NoError(t, err)
	assert.True(t, out.Completed)

	out2, err := g.Submit("crane")
	assert.ErrorIs(t, err, ErrGameFinished)
	assert.False(t, out2.Completed)
}

func TestReusedAbsentLetters(t *testing.T) {
	g := New("crane", allowAll)
	_, err := g.Submit("jolly") // j, o, l, y all absent
	require.NoError(t, err)

	// Reuses the known-absent j and o.
	_, err = g.Submit("joint")
	require.NoError(t, err)
	require.NotNil(t, g.Stats)
	assert.Equal(t, 2, g.Stats.ReusedAbsentLetters)
}

func TestReusedWrongPositions(t *testing.T) {
	g := New("crane", allowAll)
	_, err := g.Submit("react") // r at position 0 is present, not correct
	require.NoError(t, err)

	// Putting r back at position 0 repeats the known wrong placement.
	_, err = g.Submit("risen")
	require.NoError(t, err)
	require.NotNil(t, g.Stats)
	assert.Equal(t, 1, g.Stats.ReusedWrongPositions)
}

func TestFirstGuessNeverCountsReuse(t *testing.T) {
	g := New("crane", allowAll)
	_, err := g.Submit("jolly")
	require.NoError(t, err)
	assert.Nil(t, g.Stats)
}

func TestPattern(t *testing.T) {
	g := New("crane", allowAll)
	_, _ = g.Submit("react")
	_, _ = g.Submit("crane")
	assert.Equal(t, "🟨🟨🟩🟨⬛\n🟩🟩🟩🟩🟩", g.Pattern())
}
