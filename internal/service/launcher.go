package service

import (
	"context"
	"math/rand"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// DefaultMixedCategoryID is the seeded "all categories" entry.
const DefaultMixedCategoryID = 4

// QuestionSource is the read side of the question store.
type QuestionSource interface {
	ListCategories(ctx context.Context) ([]Category, error)
	ListQuestions(ctx context.Context, difficulty Difficulty) ([]Question, error)
	ListQuestionsByCategory(ctx context.Context, categoryID int, difficulty Difficulty) ([]Question, error)
}

// Launcher turns a selection into a running session and brings saved
// sessions back.
type Launcher struct {
	source       QuestionSource
	snapshots    SnapshotStore
	mixedID      int
	maxQuestions int
	rand         *rand.Rand
	log          *zap.Logger
}

type LauncherConfig struct {
	MixedCategoryID int
	// MaxQuestions caps a session's length; 0 uses every matching question.
	MaxQuestions int
	Rand         *rand.Rand
}

func NewLauncher(source QuestionSource, snapshots SnapshotStore, cfg LauncherConfig, log *zap.Logger) *Launcher {
	if cfg.MixedCategoryID == 0 {
		cfg.MixedCategoryID = DefaultMixedCategoryID
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Launcher{
		source:       source,
		snapshots:    snapshots,
		mixedID:      cfg.MixedCategoryID,
		maxQuestions: cfg.MaxQuestions,
		rand:         cfg.Rand,
		log:          log,
	}
}

func (l *Launcher) MixedCategoryID() int { return l.mixedID }

func (l *Launcher) Categories(ctx context.Context) ([]Category, error) {
	return l.source.ListCategories(ctx)
}

// Questions runs the store query a selection stands for.
func (l *Launcher) Questions(ctx context.Context, sel Selection) ([]Question, error) {
	if sel.CategoryID == l.mixedID {
		return l.source.ListQuestions(ctx, sel.Difficulty)
	}
	return l.source.ListQuestionsByCategory(ctx, sel.CategoryID, sel.Difficulty)
}

// Launch starts a new session for sel. A selection without questions
// returns ErrEmptyQuestionSet and no session.
func (l *Launcher) Launch(ctx context.Context, sel Selection) (*Session, error) {
	questions, err := l.Questions(ctx, sel)
	if err != nil {
		return nil, errors.Wrap(err, "load questions")
	}
	if len(questions) == 0 {
		return nil, errors.Wrapf(ErrEmptyQuestionSet, "category %q, difficulty %s", sel.CategoryName, sel.Difficulty)
	}
	if l.maxQuestions > 0 {
		questions = ShuffleQuestionsWithLimit(questions, l.maxQuestions, l.rand)
	}

	s, err := NewSession(questions, TimeoutFor(string(sel.Difficulty)), WithRand(l.rand), WithSelection(sel))
	if err != nil {
		return nil, err
	}
	l.log.Info("session started",
		zap.String("session_id", s.ID()),
		zap.Int("category_id", sel.CategoryID),
		zap.String("difficulty", string(sel.Difficulty)),
		zap.Int("questions", s.Total()))
	return s, nil
}

// Resume restores the session saved under key. Broken snapshots are
// dropped and reported as ErrNoSavedSession so the caller starts fresh.
func (l *Launcher) Resume(ctx context.Context, key string) (*Session, error) {
	if l.snapshots == nil {
		return nil, ErrNoSavedSession
	}

	snap, err := l.snapshots.Load(ctx, key)
	if err == nil {
		var s *Session
		if s, err = RestoreSession(snap); err == nil {
			l.log.Info("session restored", zap.String("key", key), zap.String("session_id", s.ID()))
			return s, nil
		}
	}
	if errors.Is(err, ErrInvalidSnapshot) {
		l.log.Warn("discarding saved session", zap.String("key", key), zap.Error(err))
		if derr := l.snapshots.Delete(ctx, key); derr != nil {
			l.log.Warn("failed to delete saved session", zap.String("key", key), zap.Error(derr))
		}
		return nil, ErrNoSavedSession
	}
	return nil, err
}

// HasSaved reports whether a usable snapshot is stored under key. It only
// loads the snapshot; nothing is restored, logged or deleted.
func (l *Launcher) HasSaved(ctx context.Context, key string) bool {
	if l.snapshots == nil {
		return false
	}
	_, err := l.snapshots.Load(ctx, key)
	return err == nil
}

// Save stores snap under key, replacing any earlier snapshot.
func (l *Launcher) Save(ctx context.Context, key string, snap Snapshot) error {
	if l.snapshots == nil {
		return nil
	}
	return l.snapshots.Save(ctx, key, snap)
}

func (l *Launcher) Discard(ctx context.Context, key string) error {
	if l.snapshots == nil {
		return nil
	}
	return l.snapshots.Delete(ctx, key)
}
