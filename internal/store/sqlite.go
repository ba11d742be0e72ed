// internal/store/sqlite.go
//
// SQLite implementation of Store.
// Responsibilities:
//   - Opening SQLite with safe defaults (WAL, busy timeout).
//   - Applying embedded migrations once each (recorded in _migrations).
//   - Player record CRUD and score log queries.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"

	"github.com/antoniobmagic/MEMORY-GAME/assets"
)

// SQLite is a Store backed by a single SQLite file.
type SQLite struct {
	db *sql.DB
}

// NewSQLiteStore opens (and creates if missing) the database at path and migrates it.
func NewSQLiteStore(ctx context.Context, path string) (*SQLite, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

// openDB ensures the parent directory exists for relative paths (e.g. ./data/app.db)
// and configures busy timeout + WAL journaling.
func openDB(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	return db, nil
}

// migrate applies each embedded sqlite migration inside its own transaction,
// skipping those already recorded.
func migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS _migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("create _migrations: %w", err)
	}
	migrations, err := assets.Migrations("sqlite")
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}

	for _, m := range migrations {
		var done int
		err := db.QueryRowContext(ctx, `SELECT 1 FROM _migrations WHERE name=?`, m.Name).Scan(&done)
		if err == nil {
			log.Debug().Str("migration", m.Name).Msg("already applied")
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("query _migrations: %w", err)
		}

		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply %s: %w", m.Name, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO _migrations(name) VALUES (?)`, m.Name); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record %s: %w", m.Name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit %s: %w", m.Name, err)
		}
		log.Info().Str("migration", m.Name).Msg("applied")
	}
	return nil
}

func (s *SQLite) GetPlayerRecord(ctx context.Context, address string) (PlayerRecord, error) {
	d := NewPlayerRecord(address)
	if _, err := s.db.ExecContext(ctx, `
        INSERT OR IGNORE INTO players
            (address, last_played_at, moves_remaining, current_difficulty, consecutive_wins)
        VALUES (?, ?, ?, ?, ?)`,
		d.Address, d.LastPlayedAt, d.MovesRemaining, d.CurrentDifficulty, d.ConsecutiveWins,
	); err != nil {
		return PlayerRecord{}, fmt.Errorf("create player: %w", err)
	}

	var r PlayerRecord
	err := s.db.QueryRowContext(ctx, `
        SELECT address, last_played_at, moves_remaining, current_difficulty, consecutive_wins
        FROM players WHERE address=?`, address,
	).Scan(&r.Address, &r.LastPlayedAt, &r.MovesRemaining, &r.CurrentDifficulty, &r.ConsecutiveWins)
	if err != nil {
		return PlayerRecord{}, fmt.Errorf("load player: %w", err)
	}
	return r, nil
}

func (s *SQLite) UpdatePlayerRecord(ctx context.Context, address string, u PlayerUpdate) error {
	fs := u.fields()
	if len(fs) == 0 {
		var one int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM players WHERE address=?`, address).Scan(&one)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	sets := make([]string, len(fs))
	args := make([]any, 0, len(fs)+1)
	for i, f := range fs {
		sets[i] = f.column + "=?"
		args = append(args, f.value)
	}
	args = append(args, address)

	res, err := s.db.ExecContext(ctx,
		`UPDATE players SET `+strings.Join(sets, ", ")+` WHERE address=?`, args...)
	if err != nil {
		return fmt.Errorf("update player: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) AppendScoreEntry(ctx context.Context, e ScoreEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := s.db.ExecContext(ctx, `
        INSERT INTO scores (id, address, score, moves, difficulty, timestamp)
        VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Address, e.Score, e.Moves, e.Difficulty, e.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

func (s *SQLite) QueryTopScores(ctx context.Context, n int) ([]ScoreEntry, error) {
	return s.queryScores(ctx, `
        SELECT id, address, score, moves, difficulty, timestamp
        FROM scores
        ORDER BY score DESC, difficulty DESC, moves ASC, rowid ASC
        LIMIT ?`, limitOrDefault(n))
}

func (s *SQLite) QueryScoresByAddress(ctx context.Context, address string, n int) ([]ScoreEntry, error) {
	return s.queryScores(ctx, `
        SELECT id, address, score, moves, difficulty, timestamp
        FROM scores
        WHERE address=?
        ORDER BY score DESC, rowid ASC
        LIMIT ?`, address, limitOrDefault(n))
}

func (s *SQLite) queryScores(ctx context.Context, q string, args ...any) ([]ScoreEntry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []ScoreEntry{}
	for rows.Next() {
		var e ScoreEntry
		if err := rows.Scan(&e.ID, &e.Address, &e.Score, &e.Moves, &e.Difficulty, &e.Timestamp); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *SQLite) Close(ctx context.Context) error { return s.db.Close() }
