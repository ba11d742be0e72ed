// internal/play/service.go
//
// Session coordinator: ties the player record, the progression rules and a
// live match session together.
// Responsibilities:
//   - Start: load the record, apply the cooldown gate, deal a session.
//   - Select: forward card selections; on completion or abandonment run the
//     persistence sequence and tell the player what happened.
//   - Leaderboard / history reads.
//
// Sessions live only in memory, one per address. Persistence failures stop
// the sequence where they happen; nothing is retried or rolled back.

package play

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/antoniobmagic/MEMORY-GAME/internal/game"
	"github.com/antoniobmagic/MEMORY-GAME/internal/notify"
	"github.com/antoniobmagic/MEMORY-GAME/internal/progression"
	"github.com/antoniobmagic/MEMORY-GAME/internal/store"
)

var (
	ErrNoAddress = errors.New("no wallet connected")
	ErrNoSession = errors.New("no active session")
	ErrCooldown  = errors.New("cooldown active")
)

// CooldownError reports how long the player still has to wait.
type CooldownError struct {
	Wait time.Duration
}

func (e *CooldownError) Error() string { return fmt.Sprintf("cooldown active: %s remaining", e.Wait) }
func (e *CooldownError) Unwrap() error { return ErrCooldown }

const (
	msgConnect   = "Please connect your wallet to play!"
	msgLoadError = "Error loading game state. Please try again."
	msgSaveError = "Error saving your score. Please try again."
)

// Service coordinates sessions for all players.
type Service struct {
	store     store.Store
	now       func() time.Time
	delay     time.Duration
	shuffle   game.Shuffler
	pairCount int

	mu       sync.Mutex
	sessions map[string]*active // keyed by address
}

// active is a live session plus the record it was started from.
type active struct {
	mu      sync.Mutex // serializes selections for one player
	session *game.Session
	record  store.PlayerRecord
}

// Option configures a Service.
type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithMismatchDelay(d time.Duration) Option { return func(s *Service) { s.delay = d } }

func WithShuffler(sh game.Shuffler) Option { return func(s *Service) { s.shuffle = sh } }

func WithPairCount(n int) Option { return func(s *Service) { s.pairCount = n } }

// New constructs a Service over st.
func New(st store.Store, opts ...Option) *Service {
	s := &Service{
		store:     st,
		now:       time.Now,
		delay:     game.DefaultMismatchDelay,
		pairCount: game.PairCount,
		sessions:  make(map[string]*active),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Status is a player's record plus what it means right now.
type Status struct {
	Record     store.PlayerRecord      `json:"player"`
	MoveBudget int                     `json:"moveBudget"`
	Multiplier float64                 `json:"multiplier"`
	Eligible   progression.Eligibility `json:"-"`
}

// Status loads (or creates) the record for address.
func (s *Service) Status(ctx context.Context, address string) (Status, error) {
	if address == "" {
		return Status{}, ErrNoAddress
	}
	rec, err := s.store.GetPlayerRecord(ctx, address)
	if err != nil {
		return Status{}, fmt.Errorf("get player: %w", err)
	}
	d := rec.Difficulty()
	return Status{
		Record:     rec,
		MoveBudget: progression.MoveBudget(d),
		Multiplier: progression.ScoreMultiplier(d),
		Eligible:   progression.CanPlay(rec.LastPlayedAt, s.now()),
	}, nil
}

// Start deals a new session for address, replacing any session in memory.
func (s *Service) Start(ctx context.Context, address string, n notify.Notifier) (game.View, error) {
	n = orLog(n, address)
	if address == "" {
		n.Notify(msgConnect)
		return game.View{}, ErrNoAddress
	}

	st, err := s.Status(ctx, address)
	if err != nil {
		log.Error().Err(err).Str("address", address).Msg("load player state")
		n.Notify(msgLoadError)
		return game.View{}, err
	}
	if !st.Eligible.Allowed {
		n.Notify(waitMessage(st.Eligible.WaitRemaining))
		return game.View{}, &CooldownError{Wait: st.Eligible.WaitRemaining}
	}

	sess := game.New(s.sessionOptions()...)
	if err := sess.Start(s.pairCount, st.Record.Difficulty()); err != nil {
		return game.View{}, err
	}

	s.mu.Lock()
	s.sessions[address] = &active{session: sess, record: st.Record}
	s.mu.Unlock()

	log.Info().Str("address", address).Str("sessionId", sess.ID).Int("difficulty", int(sess.Difficulty)).Msg("session started")
	n.Notify(fmt.Sprintf("Difficulty Level %d: Complete the game in %d moves!", sess.Difficulty, sess.Budget()))
	return sess.View(), nil
}

// Progress is the persisted progression change after a terminal session.
type Progress struct {
	Change          string `json:"change"` // promoted | demoted | same | reset
	Difficulty      int    `json:"difficulty"`
	ConsecutiveWins int    `json:"consecutiveWins"`
	MoveBudget      int    `json:"moveBudget"`
}

// Outcome is the result of a selection.
type Outcome struct {
	View     game.View   `json:"game"`
	Result   game.Result `json:"result"`
	Progress *Progress   `json:"progress,omitempty"`
}

// Select applies a card selection to the player's session.
func (s *Service) Select(ctx context.Context, address, sessionID string, cardID int, n notify.Notifier) (Outcome, error) {
	n = orLog(n, address)
	a, err := s.lookup(address, sessionID)
	if err != nil {
		if errors.Is(err, ErrNoAddress) {
			n.Notify(msgConnect)
		}
		return Outcome{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	res, err := a.session.SelectCard(cardID)
	if err != nil {
		return Outcome{View: a.session.View(), Result: res}, err
	}
	out := Outcome{View: a.session.View(), Result: res}

	switch res.State {
	case game.StateCompleted:
		s.discard(address, a)
		p, err := s.complete(ctx, address, a, n)
		out.Progress = p
		return out, err
	case game.StateAbandoned:
		s.discard(address, a)
		p, err := s.abandon(ctx, address, a, n)
		out.Progress = p
		return out, err
	}
	return out, nil
}

// complete runs the completion sequence: resolve, append score, update record, notify.
func (s *Service) complete(ctx context.Context, address string, a *active, n notify.Notifier) (*Progress, error) {
	sess := a.session
	next := progression.ResolveCompletion(sess.Difficulty, a.record.ConsecutiveWins, sess.MovesUsed)
	now := s.now()
	lg := log.With().Str("address", address).Str("sessionId", sess.ID).Logger()

	if err := s.store.AppendScoreEntry(ctx, store.ScoreEntry{
		Address:    address,
		Score:      sess.Score,
		Moves:      sess.MovesUsed,
		Difficulty: int(sess.Difficulty),
		Timestamp:  now.UnixMilli(),
	}); err != nil {
		lg.Error().Err(err).Msg("save score")
		n.Notify(msgSaveError)
		return nil, fmt.Errorf("save score: %w", err)
	}

	budget := progression.MoveBudget(next.Difficulty)
	if err := s.store.UpdatePlayerRecord(ctx, address, progressUpdate(next.Difficulty, next.ConsecutiveWins, budget, now)); err != nil {
		lg.Error().Err(err).Msg("update player state")
		n.Notify(msgSaveError)
		return nil, fmt.Errorf("update player: %w", err)
	}

	change := progression.Compare(sess.Difficulty, next.Difficulty)
	switch change {
	case progression.Promoted:
		n.Notify(fmt.Sprintf("Congratulations! You've advanced to difficulty level %d!", next.Difficulty))
	case progression.Demoted:
		n.Notify("Game completed, but you've exceeded the move limit. Returning to level 1.")
	default:
		n.Notify(fmt.Sprintf("Congratulations! You won with %g points in %d moves!", sess.Score, sess.MovesUsed))
	}
	lg.Info().Str("change", change.String()).Int("difficulty", int(next.Difficulty)).Int("moves", sess.MovesUsed).Msg("session completed")

	return &Progress{
		Change:          change.String(),
		Difficulty:      int(next.Difficulty),
		ConsecutiveWins: next.ConsecutiveWins,
		MoveBudget:      budget,
	}, nil
}

// abandon applies the hard reset after the budget ran out before every pair was found.
func (s *Service) abandon(ctx context.Context, address string, a *active, n notify.Notifier) (*Progress, error) {
	n.Notify(fmt.Sprintf("You've exceeded the %d move limit! Starting over at level 1.", a.session.Budget()))

	r := progression.ResetDifficulty()
	if err := s.store.UpdatePlayerRecord(ctx, address, progressUpdate(r.Difficulty, r.ConsecutiveWins, r.MovesRemaining, s.now())); err != nil {
		log.Error().Err(err).Str("address", address).Str("sessionId", a.session.ID).Msg("reset player difficulty")
		n.Notify(msgSaveError)
		return nil, fmt.Errorf("reset player: %w", err)
	}
	log.Info().Str("address", address).Str("sessionId", a.session.ID).Msg("session abandoned")

	return &Progress{
		Change:          "reset",
		Difficulty:      int(r.Difficulty),
		ConsecutiveWins: r.ConsecutiveWins,
		MoveBudget:      r.MovesRemaining,
	}, nil
}

// Resolve turns a displayed mismatch back over once its delay has passed.
func (s *Service) Resolve(ctx context.Context, address, sessionID string) (game.View, error) {
	a, err := s.lookup(address, sessionID)
	if err != nil {
		return game.View{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.session.Resolve()
	return a.session.View(), nil
}

// Current returns the player's live session.
func (s *Service) Current(address string) (game.View, error) {
	a, err := s.lookup(address, "")
	if err != nil {
		return game.View{}, err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.View(), nil
}

// Abandon drops the player's in-memory session. Nothing is persisted.
func (s *Service) Abandon(address string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.sessions[address]
	delete(s.sessions, address)
	return ok
}

// Leaderboard returns the top n scores.
func (s *Service) Leaderboard(ctx context.Context, n int) ([]store.ScoreEntry, error) {
	return s.store.QueryTopScores(ctx, n)
}

// History returns an address's best n scores.
func (s *Service) History(ctx context.Context, address string, n int) ([]store.ScoreEntry, error) {
	if address == "" {
		return nil, ErrNoAddress
	}
	return s.store.QueryScoresByAddress(ctx, address, n)
}

// lookup finds the session for address; an empty sessionID matches any.
func (s *Service) lookup(address, sessionID string) (*active, error) {
	if address == "" {
		return nil, ErrNoAddress
	}
	s.mu.Lock()
	a, ok := s.sessions[address]
	s.mu.Unlock()
	if !ok || (sessionID != "" && a.session.ID != sessionID) {
		return nil, ErrNoSession
	}
	return a, nil
}

// discard removes a finished session unless it was already replaced.
func (s *Service) discard(address string, a *active) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sessions[address] == a {
		delete(s.sessions, address)
	}
}

func (s *Service) sessionOptions() []game.Option {
	opts := []game.Option{game.WithClock(s.now), game.WithMismatchDelay(s.delay)}
	if s.shuffle != nil {
		opts = append(opts, game.WithShuffler(s.shuffle))
	}
	return opts
}

func progressUpdate(d progression.Difficulty, wins, moves int, now time.Time) store.PlayerUpdate {
	diff := int(d)
	played := now.UnixMilli()
	return store.PlayerUpdate{
		LastPlayedAt:      &played,
		MovesRemaining:    &moves,
		CurrentDifficulty: &diff,
		ConsecutiveWins:   &wins,
	}
}

// waitMessage rounds the remaining cooldown up to whole hours.
func waitMessage(wait time.Duration) string {
	hours := int(math.Ceil(wait.Hours()))
	return fmt.Sprintf("You need to wait %d hours before playing again.", hours)
}

func orLog(n notify.Notifier, address string) notify.Notifier {
	if n == nil {
		return notify.Log{Address: address}
	}
	return n
}
