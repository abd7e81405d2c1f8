package service

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTicker struct {
	c       chan time.Time
	stopped atomic.Bool
}

func (f *fakeTicker) C() <-chan time.Time { return f.c }

func (f *fakeTicker) Stop() { f.stopped.Store(true) }

func (f *fakeTicker) tick() { f.c <- time.Now() }

// tickers hands every ticker the runner creates to the test.
type tickers chan *fakeTicker

func (ts tickers) newTicker(time.Duration) Ticker {
	t := &fakeTicker{c: make(chan time.Time, 1)}
	ts <- t
	return t
}

func (ts tickers) next(t *testing.T) *fakeTicker {
	t.Helper()
	select {
	case tk := <-ts:
		return tk
	case <-time.After(time.Second):
		t.Fatal("no countdown started")
		return nil
	}
}

type recordingListener struct {
	ticks    chan View
	timeouts chan Reveal
}

func newRecordingListener() *recordingListener {
	return &recordingListener{ticks: make(chan View, 16), timeouts: make(chan Reveal, 4)}
}

func (l *recordingListener) OnTick(v View) { l.ticks <- v }

func (l *recordingListener) OnTimeout(r Reveal, _ View) { l.timeouts <- r }

func (l *recordingListener) nextTick(t *testing.T) View {
	t.Helper()
	select {
	case v := <-l.ticks:
		return v
	case <-time.After(time.Second):
		t.Fatal("no tick delivered")
		return View{}
	}
}

func (l *recordingListener) assertQuiet(t *testing.T) {
	t.Helper()
	select {
	case v := <-l.ticks:
		t.Fatalf("unexpected tick %+v", v)
	case r := <-l.timeouts:
		t.Fatalf("unexpected timeout %+v", r)
	case <-time.After(50 * time.Millisecond):
	}
}

func newTestRunner(t *testing.T, timeout int64) (*Runner, *recordingListener, tickers) {
	t.Helper()
	s := newTestSession(t, easyQuestions(), timeout)
	l := newRecordingListener()
	ts := make(tickers, 4)
	r := NewRunner(s, l, WithTickInterval(time.Second), WithTicker(ts.newTicker))
	t.Cleanup(r.Close)
	return r, l, ts
}

func TestRunnerCountsDownAndTimesOut(t *testing.T) {
	r, l, ts := newTestRunner(t, 3000)

	v := r.Start()
	assert.Equal(t, int64(3000), v.RemainingMillis)
	tk := ts.next(t)

	tk.tick()
	assert.Equal(t, int64(2000), l.nextTick(t).RemainingMillis)
	tk.tick()
	assert.Equal(t, int64(1000), l.nextTick(t).RemainingMillis)
	tk.tick()

	select {
	case rev := <-l.timeouts:
		assert.True(t, rev.TimedOut)
		assert.Equal(t, 0, rev.Score)
	case <-time.After(time.Second):
		t.Fatal("no timeout delivered")
	}

	assert.Eventually(t, tk.stopped.Load, time.Second, 5*time.Millisecond)
	assert.Equal(t, PhaseAnswered, r.View().Phase)
}

func TestRunnerSubmitStopsCountdown(t *testing.T) {
	r, l, ts := newTestRunner(t, 3000)
	r.Start()
	tk := ts.next(t)

	rev, err := r.Submit(Option1)
	require.NoError(t, err)
	assert.Equal(t, Option1, rev.Selected)

	// a wake-up racing the answer must not reach the question
	tk.tick()
	l.assertQuiet(t)
	assert.Equal(t, int64(3000), r.View().RemainingMillis)
}

func TestRunnerNoSelectionKeepsCountdown(t *testing.T) {
	r, l, ts := newTestRunner(t, 3000)
	r.Start()
	tk := ts.next(t)

	_, err := r.Submit(OptionNone)
	require.ErrorIs(t, err, ErrNoSelection)

	tk.tick()
	assert.Equal(t, int64(2000), l.nextTick(t).RemainingMillis)
}

func TestRunnerNextRestartsCountdown(t *testing.T) {
	r, l, ts := newTestRunner(t, 3000)
	r.Start()
	first := ts.next(t)

	_, err := r.Submit(Option2)
	require.NoError(t, err)

	v, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, v.Number)
	assert.Equal(t, int64(3000), v.RemainingMillis)

	second := ts.next(t)
	first.tick()
	l.assertQuiet(t)

	second.tick()
	tv := l.nextTick(t)
	assert.Equal(t, 2, tv.Number)
	assert.Equal(t, int64(2000), tv.RemainingMillis)
}

func TestRunnerCompletes(t *testing.T) {
	r, _, ts := newTestRunner(t, 3000)
	r.Start()

	for i := 0; i < 3; i++ {
		ts.next(t)
		_, err := r.Submit(Option1)
		require.NoError(t, err)
		_, ok, err := r.Next()
		require.NoError(t, err)
		if i < 2 {
			require.True(t, ok)
		} else {
			require.False(t, ok)
		}
	}

	out := r.Outcome()
	assert.Equal(t, OutcomeCompleted, out.Status)
	assert.Equal(t, 3, out.Total)
	assert.Equal(t, PhaseCompleted, r.View().Phase)
}

func TestRunnerAbort(t *testing.T) {
	r, l, ts := newTestRunner(t, 3000)
	r.Start()
	tk := ts.next(t)

	out := r.Abort()
	assert.Equal(t, OutcomeAborted, out.Status)

	tk.tick()
	l.assertQuiet(t)
}

func TestRunnerCloseKeepsSessionForSnapshot(t *testing.T) {
	r, l, ts := newTestRunner(t, 3000)
	r.Start()
	tk := ts.next(t)
	tk.tick()
	l.nextTick(t)

	r.Close()
	tk.tick()
	l.assertQuiet(t)

	snap := r.Snapshot()
	assert.Equal(t, int64(2000), snap.TimeRemainingMillis)
	assert.False(t, snap.Answered)

	// a closed runner never restarts its countdown
	_, err := r.Submit(Option1)
	require.NoError(t, err)
	_, ok, err := r.Next()
	require.NoError(t, err)
	require.True(t, ok)
	select {
	case <-ts:
		t.Fatal("countdown restarted after close")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRunnerStartOnAnsweredSessionDoesNotCount(t *testing.T) {
	s := newTestSession(t, easyQuestions(), 3000)
	_, err := s.SubmitAnswer(Option3)
	require.NoError(t, err)
	restored, err := RestoreSession(s.Snapshot())
	require.NoError(t, err)

	ts := make(tickers, 1)
	r := NewRunner(restored, newRecordingListener(), WithTicker(ts.newTicker))
	defer r.Close()

	v := r.Start()
	assert.Equal(t, PhaseAnswered, v.Phase)
	assert.Len(t, ts, 0)
}
