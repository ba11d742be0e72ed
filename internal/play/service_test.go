package play

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoniobmagic/MEMORY-GAME/internal/game"
	"github.com/antoniobmagic/MEMORY-GAME/internal/notify"
	"github.com/antoniobmagic/MEMORY-GAME/internal/progression"
	"github.com/antoniobmagic/MEMORY-GAME/internal/store"
)

const addr = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

// flakyStore fails the selected operations.
type flakyStore struct {
	store.Store
	failAppend bool
	failUpdate bool
	appends    int
	updates    int
}

var errDown = errors.New("store unavailable")

func (f *flakyStore) AppendScoreEntry(ctx context.Context, e store.ScoreEntry) error {
	f.appends++
	if f.failAppend {
		return errDown
	}
	return f.Store.AppendScoreEntry(ctx, e)
}

func (f *flakyStore) UpdatePlayerRecord(ctx context.Context, a string, u store.PlayerUpdate) error {
	f.updates++
	if f.failUpdate {
		return errDown
	}
	return f.Store.UpdatePlayerRecord(ctx, a, u)
}

func newService(st store.Store, clk *clock) *Service {
	return New(st,
		WithClock(clk.Now),
		WithShuffler(func(int, func(i, j int)) {}),
	)
}

func playPerfect(t *testing.T, svc *Service, sessionID string, n notify.Notifier) Outcome {
	t.Helper()
	var out Outcome
	for k := 0; k < game.PairCount; k++ {
		_, err := svc.Select(context.Background(), addr, sessionID, 2*k, n)
		require.NoError(t, err)
		out, err = svc.Select(context.Background(), addr, sessionID, 2*k+1, n)
		require.NoError(t, err)
	}
	return out
}

func TestStart_CooldownAndPrecondition(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	mem := store.NewMemoryStore()
	svc := newService(mem, clk)

	b := &notify.Buffer{}
	_, err := svc.Start(ctx, "", b)
	assert.ErrorIs(t, err, ErrNoAddress)
	assert.Equal(t, []string{msgConnect}, b.Messages())

	_, err = mem.GetPlayerRecord(ctx, addr)
	require.NoError(t, err)
	played := clk.t.Add(-23 * time.Hour).UnixMilli()
	require.NoError(t, mem.UpdatePlayerRecord(ctx, addr, store.PlayerUpdate{LastPlayedAt: &played}))

	b = &notify.Buffer{}
	_, err = svc.Start(ctx, addr, b)
	var cd *CooldownError
	require.ErrorAs(t, err, &cd)
	assert.ErrorIs(t, err, ErrCooldown)
	assert.Equal(t, time.Hour, cd.Wait)
	assert.Equal(t, []string{"You need to wait 1 hours before playing again."}, b.Messages())

	clk.Advance(2 * time.Hour)
	v, err := svc.Start(ctx, addr, nil)
	require.NoError(t, err)
	assert.Equal(t, game.StateInProgress, v.State)
}

func TestSelect_CompletionSequence(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	mem := store.NewMemoryStore()
	svc := newService(mem, clk)

	b := &notify.Buffer{}
	v, err := svc.Start(ctx, addr, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"Difficulty Level 1: Complete the game in 20 moves!"}, b.Messages())

	out := playPerfect(t, svc, v.SessionID, b)
	assert.Equal(t, game.StateCompleted, out.View.State)
	assert.Equal(t, 60.0, out.View.Score)
	require.NotNil(t, out.Progress)
	assert.Equal(t, Progress{Change: "same", Difficulty: 1, ConsecutiveWins: 1, MoveBudget: 20}, *out.Progress)
	assert.Contains(t, b.Messages(), "Congratulations! You won with 60 points in 6 moves!")

	rec, err := mem.GetPlayerRecord(ctx, addr)
	require.NoError(t, err)
	assert.Equal(t, clk.t.UnixMilli(), rec.LastPlayedAt)
	assert.Equal(t, 1, rec.ConsecutiveWins)

	scores, err := svc.History(ctx, addr, 0)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, store.ScoreEntry{ID: scores[0].ID, Address: addr, Score: 60, Moves: 6, Difficulty: 1, Timestamp: clk.t.UnixMilli()}, scores[0])

	// The session is gone and the cooldown now applies.
	_, err = svc.Current(addr)
	assert.ErrorIs(t, err, ErrNoSession)
	_, err = svc.Start(ctx, addr, nil)
	assert.ErrorIs(t, err, ErrCooldown)

	// Next day: second win promotes.
	clk.Advance(progression.Cooldown)
	b = &notify.Buffer{}
	v, err = svc.Start(ctx, addr, b)
	require.NoError(t, err)
	out = playPerfect(t, svc, v.SessionID, b)
	assert.Equal(t, "promoted", out.Progress.Change)
	assert.Contains(t, b.Messages(), "Congratulations! You've advanced to difficulty level 2!")

	rec, _ = mem.GetPlayerRecord(ctx, addr)
	assert.Equal(t, store.PlayerRecord{
		Address: addr, LastPlayedAt: clk.t.UnixMilli(), MovesRemaining: 18, CurrentDifficulty: 2, ConsecutiveWins: 0,
	}, rec)
}

func TestSelect_Abandon(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	mem := store.NewMemoryStore()
	_, _ = mem.GetPlayerRecord(ctx, addr)
	three, one := 3, 1
	require.NoError(t, mem.UpdatePlayerRecord(ctx, addr, store.PlayerUpdate{CurrentDifficulty: &three, ConsecutiveWins: &one}))
	svc := newService(mem, clk)

	v, err := svc.Start(ctx, addr, nil)
	require.NoError(t, err)
	assert.Equal(t, 15, v.MoveBudget)

	var b notify.Buffer
	var out Outcome
	for m := 0; m < 15; m++ {
		clk.Advance(game.DefaultMismatchDelay)
		_, err = svc.Select(ctx, addr, v.SessionID, 0, &b)
		require.NoError(t, err)
		out, err = svc.Select(ctx, addr, v.SessionID, 2, &b)
		require.NoError(t, err)
	}
	assert.Equal(t, game.StateAbandoned, out.View.State)
	assert.Equal(t, &Progress{Change: "reset", Difficulty: 1, ConsecutiveWins: 0, MoveBudget: 20}, out.Progress)
	assert.Equal(t, []string{"You've exceeded the 15 move limit! Starting over at level 1."}, b.Messages())

	rec, _ := mem.GetPlayerRecord(ctx, addr)
	assert.Equal(t, 1, rec.CurrentDifficulty)
	assert.Equal(t, 0, rec.ConsecutiveWins)
	assert.Equal(t, 20, rec.MovesRemaining)
	assert.Equal(t, clk.t.UnixMilli(), rec.LastPlayedAt)

	top, _ := svc.Leaderboard(ctx, 10)
	assert.Empty(t, top)
}

func TestSelect_ScoreSaveFailureSkipsUpdate(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	fs := &flakyStore{Store: store.NewMemoryStore(), failAppend: true}
	svc := newService(fs, clk)

	v, err := svc.Start(ctx, addr, nil)
	require.NoError(t, err)

	var b notify.Buffer
	for k := 0; k < game.PairCount-1; k++ {
		_, _ = svc.Select(ctx, addr, v.SessionID, 2*k, &b)
		_, _ = svc.Select(ctx, addr, v.SessionID, 2*k+1, &b)
	}
	_, _ = svc.Select(ctx, addr, v.SessionID, 10, &b)
	out, err := svc.Select(ctx, addr, v.SessionID, 11, &b)
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, game.StateCompleted, out.View.State)
	assert.Nil(t, out.Progress)
	assert.Equal(t, []string{msgSaveError}, b.Messages())
	assert.Equal(t, 1, fs.appends)
	assert.Equal(t, 0, fs.updates)

	rec, _ := fs.GetPlayerRecord(ctx, addr)
	assert.Equal(t, int64(0), rec.LastPlayedAt)
}

func TestSelect_UpdateFailureLeavesOrphanScore(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	fs := &flakyStore{Store: store.NewMemoryStore(), failUpdate: true}
	svc := newService(fs, clk)

	v, err := svc.Start(ctx, addr, nil)
	require.NoError(t, err)
	for k := 0; k < game.PairCount; k++ {
		_, _ = svc.Select(ctx, addr, v.SessionID, 2*k, nil)
		_, err = svc.Select(ctx, addr, v.SessionID, 2*k+1, nil)
	}
	assert.ErrorIs(t, err, errDown)

	scores, _ := svc.History(ctx, addr, 10)
	assert.Len(t, scores, 1)
	rec, _ := fs.GetPlayerRecord(ctx, addr)
	assert.Equal(t, 0, rec.ConsecutiveWins)
}

func TestSelect_SessionLookup(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	svc := newService(store.NewMemoryStore(), clk)

	_, err := svc.Select(ctx, addr, "nope", 0, nil)
	assert.ErrorIs(t, err, ErrNoSession)

	v, err := svc.Start(ctx, addr, nil)
	require.NoError(t, err)
	_, err = svc.Select(ctx, addr, "other", 0, nil)
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = svc.Select(ctx, addr, v.SessionID, 42, nil)
	assert.ErrorIs(t, err, game.ErrUnknownCard)

	// Mismatch then resolve after the delay.
	_, _ = svc.Select(ctx, addr, v.SessionID, 0, nil)
	_, _ = svc.Select(ctx, addr, v.SessionID, 2, nil)
	view, err := svc.Resolve(ctx, addr, v.SessionID)
	require.NoError(t, err)
	assert.True(t, view.Cards[0].IsFlipped)
	clk.Advance(game.DefaultMismatchDelay)
	view, err = svc.Resolve(ctx, addr, v.SessionID)
	require.NoError(t, err)
	assert.False(t, view.Cards[0].IsFlipped)

	assert.True(t, svc.Abandon(addr))
	assert.False(t, svc.Abandon(addr))
	_, err = svc.Current(addr)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSelect_CompletionFromUnknownTier(t *testing.T) {
	ctx := context.Background()
	clk := &clock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	mem := store.NewMemoryStore()
	_, _ = mem.GetPlayerRecord(ctx, addr)
	zero := 0
	require.NoError(t, mem.UpdatePlayerRecord(ctx, addr, store.PlayerUpdate{CurrentDifficulty: &zero}))
	svc := newService(mem, clk)

	v, err := svc.Start(ctx, addr, nil)
	require.NoError(t, err)
	assert.Equal(t, 20, v.MoveBudget)

	out := playPerfect(t, svc, v.SessionID, nil)
	require.NotNil(t, out.Progress)
	assert.Equal(t, Progress{Change: "same", Difficulty: 1, ConsecutiveWins: 1, MoveBudget: 20}, *out.Progress)

	rec, _ := mem.GetPlayerRecord(ctx, addr)
	assert.Equal(t, 1, rec.CurrentDifficulty)
}
