package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestExitGuard(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	g := NewExitGuardWithClock(DefaultExitWindow, clock.Now)

	assert.False(t, g.Request(), "first request only warns")

	clock.Advance(1500 * time.Millisecond)
	assert.True(t, g.Request(), "second request inside the window confirms")
}

func TestExitGuardWindowExpires(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	g := NewExitGuardWithClock(2*time.Second, clock.Now)

	assert.False(t, g.Request())
	clock.Advance(2 * time.Second)
	assert.False(t, g.Request(), "exactly the window is too late")

	// the late request opened a new window
	clock.Advance(time.Second)
	assert.True(t, g.Request())
}

func TestExitGuardReset(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	g := NewExitGuardWithClock(0, clock.Now)

	assert.False(t, g.Request())
	g.Reset()
	clock.Advance(100 * time.Millisecond)
	assert.False(t, g.Request())
}
