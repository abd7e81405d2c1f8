package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const DefaultTickInterval = time.Second

// Ticker is the countdown's source of wake-ups.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type TickerFunc func(d time.Duration) Ticker

type timeTicker struct {
	t *time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

func newTimeTicker(d time.Duration) Ticker {
	return timeTicker{t: time.NewTicker(d)}
}

// Listener receives countdown events. Calls are made without the runner's
// lock held, so a listener may call back into the runner.
type Listener interface {
	OnTick(v View)
	OnTimeout(r Reveal, v View)
}

// Runner owns a session and its countdown. All transitions go through one
// mutex; every timer wake-up is checked against the countdown generation so
// a stale tick never touches a question that has moved on.
type Runner struct {
	mu       sync.Mutex
	session  *Session
	listener Listener
	interval time.Duration
	ticker   TickerFunc
	log      *zap.Logger

	gen    uint64
	cancel context.CancelFunc
	closed bool
}

type RunnerOption func(*Runner)

func WithTickInterval(d time.Duration) RunnerOption {
	return func(r *Runner) {
		if d > 0 {
			r.interval = d
		}
	}
}

func WithTicker(f TickerFunc) RunnerOption {
	return func(r *Runner) { r.ticker = f }
}

func WithLogger(l *zap.Logger) RunnerOption {
	return func(r *Runner) { r.log = l }
}

func NewRunner(s *Session, l Listener, opts ...RunnerOption) *Runner {
	r := &Runner{
		session:  s,
		listener: l,
		interval: DefaultTickInterval,
		ticker:   newTimeTicker,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With(zap.String("session_id", s.ID()))
	return r
}

// Start resumes the countdown when the current question is unanswered. It
// is used both for a fresh session and after a restore.
func (r *Runner) Start() View {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session.Phase() == PhaseUnanswered {
		r.startLocked()
	}
	return r.session.View()
}

// Submit answers the current question and stops the countdown.
func (r *Runner) Submit(o Option) (Reveal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rev, err := r.session.SubmitAnswer(o)
	if err != nil {
		return Reveal{}, err
	}
	r.stopLocked()
	r.log.Debug("answer submitted",
		zap.Stringer("selected", o),
		zap.Bool("correct", rev.Correct),
		zap.Int("score", rev.Score))
	return rev, nil
}

// Next advances to the following question and restarts the countdown. When
// the list is exhausted ok is false and the session is completed.
func (r *Runner) Next() (v View, ok bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok, err = r.session.Advance()
	if err != nil {
		return View{}, false, err
	}
	if ok {
		r.startLocked()
	} else {
		r.stopLocked()
		r.log.Info("session completed",
			zap.Int("score", r.session.Score()),
			zap.Int("total", r.session.Total()))
	}
	return r.session.View(), ok, nil
}

// Abort ends the session with the score reached so far.
func (r *Runner) Abort() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
	out := r.session.Abort()
	r.log.Info("session aborted", zap.Int("score", out.Score))
	return out
}

// Close stops the countdown for good. The session itself is left as is so
// it can still be snapshotted.
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopLocked()
	r.closed = true
}

func (r *Runner) View() View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.View()
}

func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Snapshot()
}

func (r *Runner) Outcome() Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.session.Outcome()
}

func (r *Runner) startLocked() {
	r.stopLocked()
	if r.closed {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.gen++
	go r.countdown(ctx, r.gen, r.ticker(r.interval))
}

func (r *Runner) stopLocked() {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	// A tick already past the select must not act either.
	r.gen++
}

func (r *Runner) countdown(ctx context.Context, gen uint64, t Ticker) {
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
		}

		r.mu.Lock()
		if gen != r.gen || r.session.Phase() != PhaseUnanswered {
			r.mu.Unlock()
			return
		}
		rev, expired := r.session.Tick(r.interval.Milliseconds())
		v := r.session.View()
		if expired {
			r.stopLocked()
			r.log.Debug("question timed out", zap.Int("number", v.Number))
		}
		r.mu.Unlock()

		if r.listener == nil {
			if expired {
				return
			}
			continue
		}
		if expired {
			r.listener.OnTimeout(rev, v)
			return
		}
		r.listener.OnTick(v)
	}
}
