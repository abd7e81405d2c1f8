package service

import (
	"sync"
	"time"
)

const DefaultExitWindow = 2 * time.Second

// ExitGuard implements "press back twice to leave". The window is measured
// between wall-clock timestamps of consecutive requests.
type ExitGuard struct {
	mu     sync.Mutex
	window time.Duration
	last   time.Time
	now    func() time.Time
}

func NewExitGuard(window time.Duration) *ExitGuard {
	if window <= 0 {
		window = DefaultExitWindow
	}
	return &ExitGuard{window: window, now: time.Now}
}

// NewExitGuardWithClock is NewExitGuard with the wall clock replaced.
func NewExitGuardWithClock(window time.Duration, now func() time.Time) *ExitGuard {
	g := NewExitGuard(window)
	if now != nil {
		g.now = now
	}
	return g
}

// Request records an abort request. It returns true when the previous
// request was less than the window ago and the session should end; false
// means the caller should only warn.
func (g *ExitGuard) Request() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	confirmed := !g.last.IsZero() && now.Sub(g.last) < g.window
	g.last = now
	return confirmed
}

func (g *ExitGuard) Reset() {
	g.mu.Lock()
	g.last = time.Time{}
	g.mu.Unlock()
}
