// internal/store/postgres.go
//
// Postgres implementation of Store over a pgx connection pool.
// Responsibilities:
//   - Connecting and applying the embedded postgres migrations.
//   - Get-or-create player records (ON CONFLICT DO NOTHING) and partial updates.
//   - Score inserts plus leaderboard and per-address queries.

package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"

	"github.com/antoniobmagic/MEMORY-GAME/assets"
)

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgresStore connects to connStr and applies the postgres migrations.
// The caller is responsible for calling Close.
func NewPostgresStore(ctx context.Context, connStr string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	var user, database string
	if err := pool.QueryRow(ctx, "SELECT current_user, current_database()").Scan(&user, &database); err != nil {
		pool.Close()
		return nil, fmt.Errorf("query database: %w", err)
	}
	log.Info().Str("database", database).Str("user", user).Msg("connected to postgres")

	migrations, err := assets.Migrations("postgres")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	for _, m := range migrations {
		if _, err := pool.Exec(ctx, m.SQL); err != nil {
			pool.Close()
			return nil, fmt.Errorf("apply %s: %w", m.Name, err)
		}
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) GetPlayerRecord(ctx context.Context, address string) (PlayerRecord, error) {
	d := NewPlayerRecord(address)
	if _, err := p.pool.Exec(ctx, `
	INSERT INTO players (address, last_played_at, moves_remaining, current_difficulty, consecutive_wins)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (address) DO NOTHING;
	`, d.Address, d.LastPlayedAt, d.MovesRemaining, d.CurrentDifficulty, d.ConsecutiveWins); err != nil {
		return PlayerRecord{}, fmt.Errorf("create player: %w", err)
	}

	var r PlayerRecord
	err := p.pool.QueryRow(ctx, `
	SELECT address, last_played_at, moves_remaining, current_difficulty, consecutive_wins
	FROM players WHERE address = $1;
	`, address).Scan(&r.Address, &r.LastPlayedAt, &r.MovesRemaining, &r.CurrentDifficulty, &r.ConsecutiveWins)
	if err != nil {
		return PlayerRecord{}, fmt.Errorf("load player: %w", err)
	}
	return r, nil
}

func (p *Postgres) UpdatePlayerRecord(ctx context.Context, address string, u PlayerUpdate) error {
	fs := u.fields()
	if len(fs) == 0 {
		var one int
		err := p.pool.QueryRow(ctx, `SELECT 1 FROM players WHERE address = $1`, address).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	sets := make([]string, len(fs))
	args := make([]any, 0, len(fs)+1)
	for i, f := range fs {
		sets[i] = fmt.Sprintf("%s = $%d", f.column, i+1)
		args = append(args, f.value)
	}
	args = append(args, address)

	q := fmt.Sprintf(`UPDATE players SET %s WHERE address = $%d`, strings.Join(sets, ", "), len(args))
	tag, err := p.pool.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("update player: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) AppendScoreEntry(ctx context.Context, e ScoreEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := p.pool.Exec(ctx, `
	INSERT INTO scores (id, address, score, moves, difficulty, timestamp)
	VALUES ($1, $2, $3, $4, $5, $6);
	`, e.ID, e.Address, e.Score, e.Moves, e.Difficulty, e.Timestamp)
	if err != nil {
		return fmt.Errorf("insert score: %w", err)
	}
	return nil
}

func (p *Postgres) QueryTopScores(ctx context.Context, n int) ([]ScoreEntry, error) {
	return p.queryScores(ctx, `
	SELECT id, address, score, moves, difficulty, timestamp
	FROM scores
	ORDER BY score DESC, difficulty DESC, moves ASC, timestamp ASC
	LIMIT $1;
	`, limitOrDefault(n))
}

func (p *Postgres) QueryScoresByAddress(ctx context.Context, address string, n int) ([]ScoreEntry, error) {
	return p.queryScores(ctx, `
	SELECT id, address, score, moves, difficulty, timestamp
	FROM scores
	WHERE address = $1
	ORDER BY score DESC, timestamp ASC
	LIMIT $2;
	`, address, limitOrDefault(n))
}

func (p *Postgres) queryScores(ctx context.Context, q string, args ...any) ([]ScoreEntry, error) {
	rows, err := p.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query scores: %w", err)
	}
	defer rows.Close()

	out := []ScoreEntry{}
	for rows.Next() {
		var e ScoreEntry
		if err := rows.Scan(&e.ID, &e.Address, &e.Score, &e.Moves, &e.Difficulty, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan score: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (p *Postgres) Close(ctx context.Context) error {
	p.pool.Close()
	return nil
}
