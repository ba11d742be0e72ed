// internal/progression/progression.go
//
// Difficulty progression rules for the memory-match game.
// Responsibilities:
//   - Per-tier parameters: move budget and score multiplier.
//   - Play-eligibility gate (fixed 24h cooldown between sessions).
//   - Resolving a finished session into the next tier + win streak.
//   - Hard reset used when a session runs out of moves.
//
// Everything here is pure: callers persist the results.

package progression

import "time"

// Difficulty is a tier in {1, 2, 3}.
type Difficulty int

const (
	Easy   Difficulty = 1
	Medium Difficulty = 2
	Hard   Difficulty = 3
)

const (
	// Cooldown is the wall-clock window between two sessions.
	Cooldown = 24 * time.Hour

	// PromoteAfter is the streak length that moves a player up one tier.
	PromoteAfter = 2
)

// Valid reports whether d is one of the three known tiers.
func (d Difficulty) Valid() bool { return d >= Easy && d <= Hard }

// Normalize maps an out-of-range tier (a record written without one, or a
// corrupted value) to Easy.
func (d Difficulty) Normalize() Difficulty {
	if !d.Valid() {
		return Easy
	}
	return d
}

// MoveBudget returns the number of moves allowed at d.
// Unknown tiers get the tier-1 budget.
func MoveBudget(d Difficulty) int {
	switch d {
	case Medium:
		return 18
	case Hard:
		return 15
	default:
		return 20
	}
}

// ScoreMultiplier returns the points multiplier at d.
// Unknown tiers get 1.0.
func ScoreMultiplier(d Difficulty) float64 {
	switch d {
	case Medium:
		return 1.5
	case Hard:
		return 2.0
	default:
		return 1.0
	}
}

// Eligibility is the result of the cooldown gate.
type Eligibility struct {
	Allowed       bool
	WaitRemaining time.Duration // zero when Allowed
}

// CanPlay applies the cooldown gate. lastPlayedAt is epoch millis; 0 means never played.
func CanPlay(lastPlayedAt int64, now time.Time) Eligibility {
	if lastPlayedAt == 0 {
		return Eligibility{Allowed: true}
	}
	elapsed := now.Sub(time.UnixMilli(lastPlayedAt))
	if elapsed < Cooldown {
		return Eligibility{Allowed: false, WaitRemaining: Cooldown - elapsed}
	}
	return Eligibility{Allowed: true}
}

// Outcome is the progression state after a completed session.
type Outcome struct {
	Difficulty      Difficulty
	ConsecutiveWins int
}

// ResolveCompletion maps a completed session onto the next tier and streak.
//
//   - movesUsed within budget: streak+1; at PromoteAfter wins below Hard the
//     player moves up one tier and the streak restarts.
//   - over budget: back to Easy with no streak, whatever the prior tier.
//
// An unknown current tier is treated as Easy.
func ResolveCompletion(current Difficulty, consecutiveWins, movesUsed int) Outcome {
	current = current.Normalize()
	if movesUsed > MoveBudget(current) {
		return Outcome{Difficulty: Easy, ConsecutiveWins: 0}
	}
	wins := consecutiveWins + 1
	if wins >= PromoteAfter && current < Hard {
		return Outcome{Difficulty: current + 1, ConsecutiveWins: 0}
	}
	return Outcome{Difficulty: current, ConsecutiveWins: wins}
}

// Reset is the state written by ResetDifficulty.
type Reset struct {
	Difficulty      Difficulty
	ConsecutiveWins int
	MovesRemaining  int
}

// ResetDifficulty is the hard reset applied when a session exhausts its budget
// before every pair is matched.
func ResetDifficulty() Reset {
	return Reset{Difficulty: Easy, ConsecutiveWins: 0, MovesRemaining: MoveBudget(Easy)}
}

// Change classifies a tier transition for player-facing messaging.
type Change int

const (
	Same Change = iota
	Promoted
	Demoted
)

func (c Change) String() string {
	switch c {
	case Promoted:
		return "promoted"
	case Demoted:
		return "demoted"
	default:
		return "same"
	}
}

// Compare reports how next relates to prev.
func Compare(prev, next Difficulty) Change {
	switch {
	case next > prev:
		return Promoted
	case next < prev:
		return Demoted
	default:
		return Same
	}
}
