// internal/game/engine.go
//
// Core engine for a single memory-match session.
// Responsibilities:
//   - Build a shuffled deck of pairCount pairs (uniform Fisher–Yates permutation).
//   - Apply card selections: flip, compare, match, count moves.
//   - Track state transitions: in_progress → completed | abandoned.
//
// Notes:
//   - A mismatched pair stays face up for the display delay; selections during
//     that window are no-ops. The mismatch itself is decided immediately.
//   - The winning move is checked before the move budget, so finishing on the
//     last allowed move is a completion.
package game

import (
	"errors"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/antoniobmagic/MEMORY-GAME/internal/progression"
)

const (
	// PairCount is the number of pairs on a standard board.
	PairCount = 6

	// BasePoints is awarded per match before the tier multiplier.
	BasePoints = 10

	// DefaultMismatchDelay is how long a mismatched pair stays visible.
	DefaultMismatchDelay = time.Second
)

var (
	ErrNotInProgress = errors.New("session not in progress")
	ErrUnknownCard   = errors.New("unknown card")
	ErrStarted       = errors.New("session already started")
	ErrPairCount     = errors.New("pair count must be positive")
)

// Shuffler permutes n elements by calling swap, with the contract of rand.Shuffle.
type Shuffler func(n int, swap func(i, j int))

// Option configures a Session.
type Option func(*Session)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithMismatchDelay sets how long a mismatched pair stays face up.
func WithMismatchDelay(d time.Duration) Option {
	return func(s *Session) { s.delay = d }
}

// WithShuffler replaces the deck permutation (tests use a fixed order).
func WithShuffler(sh Shuffler) Option {
	return func(s *Session) { s.shuffle = sh }
}

// New returns a session in StateNotStarted.
func New(opts ...Option) *Session {
	s := &Session{
		ID:      uuid.NewString(),
		State:   StateNotStarted,
		delay:   DefaultMismatchDelay,
		now:     time.Now,
		shuffle: rand.Shuffle,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Start deals pairCount pairs at difficulty d and moves the session to in_progress.
func (s *Session) Start(pairCount int, d progression.Difficulty) error {
	if s.State != StateNotStarted {
		return ErrStarted
	}
	if pairCount <= 0 {
		return ErrPairCount
	}

	keys := make([]int, 0, 2*pairCount)
	for k := 1; k <= pairCount; k++ {
		keys = append(keys, k, k)
	}
	s.shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	s.Cards = make([]Card, len(keys))
	for i, k := range keys {
		s.Cards[i] = Card{ID: i, PairKey: k}
	}
	s.Difficulty = d.Normalize()
	s.PairCount = pairCount
	s.FaceUp = nil
	s.MovesUsed, s.MatchesFound, s.Score = 0, 0, 0
	s.StartedAt = s.now()
	s.State = StateInProgress
	return nil
}

// Budget is the move budget for this session's difficulty.
func (s *Session) Budget() int { return progression.MoveBudget(s.Difficulty) }

// SelectCard turns card id face up and resolves the move once two cards are up.
//
// No-ops (Accepted=false): two cards already awaiting resolution, id already
// face up, or id already matched.
func (s *Session) SelectCard(id int) (Result, error) {
	if s.State != StateInProgress {
		return Result{State: s.State}, ErrNotInProgress
	}
	if id < 0 || id >= len(s.Cards) {
		return Result{State: s.State}, ErrUnknownCard
	}
	s.Resolve()

	if len(s.FaceUp) == 2 || s.isFaceUp(id) || s.Cards[id].IsMatched {
		return Result{State: s.State}, nil
	}

	s.Cards[id].IsFlipped = true
	s.FaceUp = append(s.FaceUp, id)
	res := Result{Accepted: true}
	if len(s.FaceUp) < 2 {
		res.State = s.State
		return res, nil
	}

	res.Move = true
	s.MovesUsed++
	a, b := &s.Cards[s.FaceUp[0]], &s.Cards[s.FaceUp[1]]
	if a.PairKey == b.PairKey {
		a.IsMatched, b.IsMatched = true, true
		s.MatchesFound++
		s.Score += BasePoints * progression.ScoreMultiplier(s.Difficulty)
		s.FaceUp = nil
		res.Matched = true
		if s.MatchesFound == s.PairCount {
			s.State = StateCompleted
		}
	} else {
		s.mismatchAt = s.now()
		res.Mismatch = true
	}

	if s.State != StateCompleted && s.MovesUsed >= s.Budget() {
		s.State = StateAbandoned
	}
	res.State = s.State
	return res, nil
}

// Pending reports whether a mismatched pair is still on display.
func (s *Session) Pending() bool { return len(s.FaceUp) == 2 }

// Resolve turns a mismatched pair back over once the display delay has passed.
// It reports whether anything was cleared.
func (s *Session) Resolve() bool {
	if !s.Pending() || s.now().Sub(s.mismatchAt) < s.delay {
		return false
	}
	for _, id := range s.FaceUp {
		s.Cards[id].IsFlipped = false
	}
	s.FaceUp = nil
	return true
}

func (s *Session) isFaceUp(id int) bool {
	for _, f := range s.FaceUp {
		if f == id {
			return true
		}
	}
	return false
}
