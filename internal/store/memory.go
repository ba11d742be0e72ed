// internal/store/memory.go
//
// In-memory implementation of Store.
// Used for development, tests, and single-process deployments where
// durability is not required.
//
// Characteristics:
//   - Player records keyed by address; scores kept in insertion order.
//   - Concurrency-safe via RWMutex (concurrent reads allowed, writes exclusive).
//   - State is lost when the process restarts.

package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Memory is a map-backed Store.
type Memory struct {
	mu      sync.RWMutex            // guards players and scores
	players map[string]PlayerRecord // keyed by address
	scores  []ScoreEntry
}

// NewMemoryStore constructs an empty in-memory Store.
func NewMemoryStore() *Memory {
	return &Memory{players: make(map[string]PlayerRecord)}
}

func (m *Memory) GetPlayerRecord(ctx context.Context, address string) (PlayerRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.players[address]; ok {
		return r, nil
	}
	r := NewPlayerRecord(address)
	m.players[address] = r
	return r, nil
}

func (m *Memory) UpdatePlayerRecord(ctx context.Context, address string, u PlayerUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.players[address]
	if !ok {
		return ErrNotFound
	}
	u.Apply(&r)
	m.players[address] = r
	return nil
}

func (m *Memory) AppendScoreEntry(ctx context.Context, e ScoreEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scores = append(m.scores, e)
	return nil
}

func (m *Memory) QueryTopScores(ctx context.Context, n int) ([]ScoreEntry, error) {
	m.mu.RLock()
	out := append([]ScoreEntry(nil), m.scores...)
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Difficulty != b.Difficulty {
			return a.Difficulty > b.Difficulty
		}
		return a.Moves < b.Moves
	})
	return truncate(out, limitOrDefault(n)), nil
}

func (m *Memory) QueryScoresByAddress(ctx context.Context, address string, n int) ([]ScoreEntry, error) {
	m.mu.RLock()
	var out []ScoreEntry
	for _, e := range m.scores {
		if e.Address == address {
			out = append(out, e)
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return truncate(out, limitOrDefault(n)), nil
}

func (m *Memory) Close(ctx context.Context) error { return nil }

func truncate(s []ScoreEntry, n int) []ScoreEntry {
	if len(s) > n {
		return s[:n]
	}
	if s == nil {
		return []ScoreEntry{}
	}
	return s
}
