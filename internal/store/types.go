// internal/store/types.go
//
// Persistence contract for player progression and the score log.
// Defines:
//   - PlayerRecord: one per wallet address, created lazily with defaults.
//   - ScoreEntry:   append-only log, many per address.
//   - PlayerUpdate: partial update of a PlayerRecord.
//   - Store:        the operations every backend implements.

package store

import (
	"context"
	"errors"

	"github.com/antoniobmagic/MEMORY-GAME/internal/progression"
)

// DefaultLimit is used by the score queries when n <= 0.
const DefaultLimit = 10

// ErrNotFound is returned when updating a record that does not exist.
var ErrNotFound = errors.New("not found")

// PlayerRecord is the persisted progression state of a wallet address.
type PlayerRecord struct {
	Address           string `json:"address" firestore:"address"`
	LastPlayedAt      int64  `json:"lastPlayedAt" firestore:"lastPlayedAt"` // epoch millis, 0 = never
	MovesRemaining    int    `json:"movesRemaining" firestore:"movesRemaining"`
	CurrentDifficulty int    `json:"currentDifficulty" firestore:"currentDifficulty"`
	ConsecutiveWins   int    `json:"consecutiveWins" firestore:"consecutiveWins"`
}

// NewPlayerRecord returns the defaults for a first lookup.
func NewPlayerRecord(address string) PlayerRecord {
	return PlayerRecord{
		Address:           address,
		LastPlayedAt:      0,
		MovesRemaining:    progression.MoveBudget(progression.Easy),
		CurrentDifficulty: int(progression.Easy),
		ConsecutiveWins:   0,
	}
}

// Difficulty returns the record's tier as a progression.Difficulty. A missing
// or out-of-range stored value reads as Easy.
func (r PlayerRecord) Difficulty() progression.Difficulty {
	return progression.Difficulty(r.CurrentDifficulty).Normalize()
}

// ScoreEntry is an immutable result row.
type ScoreEntry struct {
	ID         string  `json:"id" firestore:"-"`
	Address    string  `json:"address" firestore:"address"`
	Score      float64 `json:"score" firestore:"score"`
	Moves      int     `json:"moves" firestore:"moves"`
	Difficulty int     `json:"difficulty" firestore:"difficulty"`
	Timestamp  int64   `json:"timestamp" firestore:"timestamp"` // epoch millis
}

// PlayerUpdate carries the fields to change; nil fields are left alone.
type PlayerUpdate struct {
	LastPlayedAt      *int64
	MovesRemaining    *int
	CurrentDifficulty *int
	ConsecutiveWins   *int
}

// field is one set column, named for both SQL and Firestore.
type field struct {
	column string
	path   string
	value  any
}

func (u PlayerUpdate) fields() []field {
	var out []field
	if u.LastPlayedAt != nil {
		out = append(out, field{"last_played_at", "lastPlayedAt", *u.LastPlayedAt})
	}
	if u.MovesRemaining != nil {
		out = append(out, field{"moves_remaining", "movesRemaining", *u.MovesRemaining})
	}
	if u.CurrentDifficulty != nil {
		out = append(out, field{"current_difficulty", "currentDifficulty", *u.CurrentDifficulty})
	}
	if u.ConsecutiveWins != nil {
		out = append(out, field{"consecutive_wins", "consecutiveWins", *u.ConsecutiveWins})
	}
	return out
}

// Apply copies the set fields onto r.
func (u PlayerUpdate) Apply(r *PlayerRecord) {
	if u.LastPlayedAt != nil {
		r.LastPlayedAt = *u.LastPlayedAt
	}
	if u.MovesRemaining != nil {
		r.MovesRemaining = *u.MovesRemaining
	}
	if u.CurrentDifficulty != nil {
		r.CurrentDifficulty = *u.CurrentDifficulty
	}
	if u.ConsecutiveWins != nil {
		r.ConsecutiveWins = *u.ConsecutiveWins
	}
}

// Store is implemented by every persistence backend.
// Consistency is last-writer-wins; there is no optimistic locking.
type Store interface {
	// GetPlayerRecord returns the record for address, creating it with defaults if absent.
	GetPlayerRecord(ctx context.Context, address string) (PlayerRecord, error)

	// UpdatePlayerRecord applies a partial update. Returns ErrNotFound if absent.
	UpdatePlayerRecord(ctx context.Context, address string, u PlayerUpdate) error

	// AppendScoreEntry inserts an immutable score row.
	AppendScoreEntry(ctx context.Context, e ScoreEntry) error

	// QueryTopScores orders by score desc, difficulty desc, moves asc.
	QueryTopScores(ctx context.Context, n int) ([]ScoreEntry, error)

	// QueryScoresByAddress orders one address's scores by score desc.
	QueryScoresByAddress(ctx context.Context, address string, n int) ([]ScoreEntry, error)

	Close(ctx context.Context) error
}

func limitOrDefault(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	return n
}
