package service

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// HighscoreKey is the settings key the best score is stored under.
const HighscoreKey = "highscore"

// HighscoreStore persists the single best score. Submit must compare and
// write atomically and return the stored value afterwards, max(old, score).
type HighscoreStore interface {
	Highscore(ctx context.Context) (int, error)
	Submit(ctx context.Context, score int) (best int, updated bool, err error)
}

// MemoryHighscoreStore keeps the highscore for the life of the process only.
type MemoryHighscoreStore struct {
	mu    sync.RWMutex
	value int
}

func NewMemoryHighscoreStore() *MemoryHighscoreStore {
	return &MemoryHighscoreStore{}
}

func (m *MemoryHighscoreStore) Highscore(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.value, nil
}

func (m *MemoryHighscoreStore) Submit(_ context.Context, score int) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if score > m.value {
		m.value = score
		return m.value, true, nil
	}
	return m.value, false, nil
}

// Results hands finished sessions to the highscore store.
type Results struct {
	store HighscoreStore
	log   *zap.Logger
}

func NewResults(store HighscoreStore, log *zap.Logger) *Results {
	if log == nil {
		log = zap.NewNop()
	}
	return &Results{store: store, log: log}
}

// Record is the result of reconciling one outcome.
type Record struct {
	Highscore int
	NewBest   bool
}

// Record stores out's score when it beats the highscore. Cancelled outcomes
// leave the store untouched.
func (r *Results) Record(ctx context.Context, out Outcome) (Record, error) {
	if !out.HasResult() {
		best, err := r.store.Highscore(ctx)
		return Record{Highscore: best}, err
	}

	best, updated, err := r.store.Submit(ctx, out.Score)
	if err != nil {
		return Record{}, err
	}
	r.log.Info("session result recorded",
		zap.Stringer("status", out.Status),
		zap.Int("score", out.Score),
		zap.Int("total", out.Total),
		zap.Int("highscore", best),
		zap.Bool("new_best", updated))
	return Record{Highscore: best, NewBest: updated}, nil
}

func (r *Results) Highscore(ctx context.Context) (int, error) {
	return r.store.Highscore(ctx)
}
