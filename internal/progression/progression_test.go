package progression

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMoveBudgetAndMultiplier(t *testing.T) {
	assert.Equal(t, 20, MoveBudget(Easy))
	assert.Equal(t, 18, MoveBudget(Medium))
	assert.Equal(t, 15, MoveBudget(Hard))
	assert.Equal(t, 20, MoveBudget(0))
	assert.Equal(t, 20, MoveBudget(7))

	assert.Equal(t, 1.0, ScoreMultiplier(Easy))
	assert.Equal(t, 1.5, ScoreMultiplier(Medium))
	assert.Equal(t, 2.0, ScoreMultiplier(Hard))
	assert.Equal(t, 1.0, ScoreMultiplier(-1))

	for d := Easy; d < Hard; d++ {
		assert.Greater(t, MoveBudget(d), MoveBudget(d+1))
		assert.LessOrEqual(t, ScoreMultiplier(d), ScoreMultiplier(d+1))
	}
}

func TestResolveCompletion(t *testing.T) {
	tests := []struct {
		name      string
		current   Difficulty
		wins      int
		movesUsed int
		want      Outcome
	}{
		{name: "first win stays", current: Easy, wins: 0, movesUsed: 12, want: Outcome{Easy, 1}},
		{name: "second win promotes", current: Easy, wins: 1, movesUsed: 20, want: Outcome{Medium, 0}},
		{name: "medium promotes to hard", current: Medium, wins: 1, movesUsed: 18, want: Outcome{Hard, 0}},
		{name: "over budget demotes", current: Medium, wins: 0, movesUsed: 25, want: Outcome{Easy, 0}},
		{name: "over budget from hard with streak", current: Hard, wins: 4, movesUsed: 16, want: Outcome{Easy, 0}},
		{name: "hard keeps accumulating", current: Hard, wins: 5, movesUsed: 15, want: Outcome{Hard, 6}},
		{name: "unknown tier uses easy budget", current: 9, wins: 0, movesUsed: 21, want: Outcome{Easy, 0}},
		{name: "win from zero tier lands on easy", current: 0, wins: 0, movesUsed: 5, want: Outcome{Easy, 1}},
		{name: "win from tier above hard lands on easy", current: 4, wins: 0, movesUsed: 5, want: Outcome{Easy, 1}},
		{name: "second win from unknown tier promotes from easy", current: 9, wins: 1, movesUsed: 5, want: Outcome{Medium, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveCompletion(tt.current, tt.wins, tt.movesUsed)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Difficulty.Valid())
		})
	}
}

func TestDifficulty_Normalize(t *testing.T) {
	for _, d := range []Difficulty{Easy, Medium, Hard} {
		assert.Equal(t, d, d.Normalize())
	}
	for _, d := range []Difficulty{-1, 0, 4, 9} {
		assert.False(t, d.Valid())
		assert.Equal(t, Easy, d.Normalize(), "tier %d", d)
	}
}

func TestCanPlay(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, Eligibility{Allowed: true}, CanPlay(0, now))

	e := CanPlay(now.Add(-23*time.Hour).UnixMilli(), now)
	assert.False(t, e.Allowed)
	assert.Equal(t, time.Hour, e.WaitRemaining)

	assert.True(t, CanPlay(now.Add(-25*time.Hour).UnixMilli(), now).Allowed)
	assert.True(t, CanPlay(now.Add(-Cooldown).UnixMilli(), now).Allowed)
}

func TestResetDifficulty(t *testing.T) {
	assert.Equal(t, Reset{Difficulty: Easy, ConsecutiveWins: 0, MovesRemaining: 20}, ResetDifficulty())
}

func TestCompare(t *testing.T) {
	assert.Equal(t, Promoted, Compare(Easy, Medium))
	assert.Equal(t, Demoted, Compare(Hard, Easy))
	assert.Equal(t, Same, Compare(Medium, Medium))
}
