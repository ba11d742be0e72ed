// internal/game/types.go
//
// Core type definitions for a memory-match session.
// Defines:
//   - State: lifecycle of a session (not_started → in_progress → completed|abandoned).
//   - Card: one face of a pair on the board.
//   - Session: in-memory state for a single play.
//   - Result: what a single card selection did.

package game

import (
	"time"

	"github.com/antoniobmagic/MEMORY-GAME/internal/progression"
)

// State is the coarse lifecycle of a Session.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateAbandoned  State = "abandoned"
)

// Terminal reports whether no further selections are accepted.
func (s State) Terminal() bool { return s == StateCompleted || s == StateAbandoned }

// Card is a single card on the board. Two cards share each PairKey.
type Card struct {
	ID        int  `json:"id"`
	PairKey   int  `json:"pairKey"`
	IsFlipped bool `json:"isFlipped"`
	IsMatched bool `json:"isMatched"`
}

// Session holds the state of one play. It is not safe for concurrent use;
// callers serialize selections per player.
type Session struct {
	ID           string
	Difficulty   progression.Difficulty
	PairCount    int
	Cards        []Card
	FaceUp       []int // ids of face-up, unresolved cards (0..2)
	MovesUsed    int
	MatchesFound int
	Score        float64
	State        State
	StartedAt    time.Time

	mismatchAt time.Time // set while a mismatched pair is on display
	delay      time.Duration
	now        func() time.Time
	shuffle    Shuffler
}

// Result describes the effect of SelectCard.
type Result struct {
	Accepted bool  `json:"accepted"` // false when the selection was a no-op
	Move     bool  `json:"move"`     // a second card was turned and compared
	Matched  bool  `json:"matched"`
	Mismatch bool  `json:"mismatch"`
	State    State `json:"state"`
}
