package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/PoluyanbIch/GoQuiz/internal/service"
)

// SnapshotKey is where the terminal client keeps its unfinished session.
const SnapshotKey = "console"

// saveTimeout bounds the save after an interrupt.
const saveTimeout = 5 * time.Second

type Game struct {
	Launcher   *service.Launcher
	Results    *service.Results
	RunnerOpts []service.RunnerOption
	ExitWindow time.Duration
	Log        *zap.Logger
	// Clock drives the exit guard; nil means time.Now.
	Clock func() time.Time
}

type event struct {
	view    service.View
	reveal  service.Reveal
	timeout bool
}

// listener forwards countdown events to the input loop. Ticks are dropped
// when the loop is busy; timeouts are always delivered unless the game ended.
type listener struct {
	events chan event
	done   <-chan struct{}
}

func (l *listener) OnTick(v service.View) {
	select {
	case l.events <- event{view: v}:
	default:
	}
}

func (l *listener) OnTimeout(r service.Reveal, v service.View) {
	select {
	case l.events <- event{view: v, reveal: r, timeout: true}:
	case <-l.done:
	}
}

// Play runs one quiz on the terminal: resume or selection, the questions,
// then the result. It returns the outcome handed to the highscore.
func (g *Game) Play(ctx context.Context, in io.Reader, out io.Writer) (service.Outcome, error) {
	if g.Log == nil {
		g.Log = zap.NewNop()
	}
	lines := readLines(ctx, in)

	highscore, err := g.Results.Highscore(ctx)
	if err != nil {
		return service.Outcome{}, err
	}
	fmt.Fprintf(out, "Highscore: %d\n", highscore)

	session, sel, err := g.open(ctx, lines, out)
	if err != nil {
		return service.Outcome{Status: service.OutcomeCancelled}, err
	}

	outcome := g.run(ctx, session, sel, lines, out)

	// An interrupt ends the game, not the bookkeeping after it.
	ctx = context.WithoutCancel(ctx)
	rec, err := g.Results.Record(ctx, outcome)
	if err != nil {
		return outcome, err
	}
	if outcome.HasResult() {
		fmt.Fprintf(out, "\nFinal score: %d/%d\n", outcome.Score, outcome.Total)
		if rec.NewBest {
			fmt.Fprintf(out, "New highscore: %d!\n", rec.Highscore)
		} else {
			fmt.Fprintf(out, "Highscore: %d\n", rec.Highscore)
		}
	}
	return outcome, nil
}

func (g *Game) open(ctx context.Context, lines <-chan string, out io.Writer) (*service.Session, service.Selection, error) {
	if s, err := g.Launcher.Resume(ctx, SnapshotKey); err == nil {
		fmt.Fprint(out, "Resume the unfinished quiz? [Y/n] ")
		answer, ok := <-lines
		if !ok {
			return nil, service.Selection{}, io.EOF
		}
		if !strings.EqualFold(strings.TrimSpace(answer), "n") {
			sel := s.Selection()
			if sel.Difficulty == "" {
				q, _ := s.Current()
				sel.Difficulty = q.Difficulty
			}
			return s, sel, nil
		}
		if err := g.Launcher.Discard(ctx, SnapshotKey); err != nil {
			g.Log.Warn("discarding saved session", zap.Error(err))
		}
	} else if !errors.Is(err, service.ErrNoSavedSession) {
		g.Log.Warn("loading saved session", zap.Error(err))
	}

	categories, err := g.Launcher.Categories(ctx)
	if err != nil {
		return nil, service.Selection{}, err
	}
	fmt.Fprintln(out, "Categories:")
	for i, c := range categories {
		fmt.Fprintf(out, "  %d) %s\n", i+1, c.Name)
	}
	ci, err := choose(lines, out, "Category", len(categories))
	if err != nil {
		return nil, service.Selection{}, err
	}

	difficulties := service.AllDifficulties()
	for i, d := range difficulties {
		fmt.Fprintf(out, "  %d) %s\n", i+1, d)
	}
	di, err := choose(lines, out, "Difficulty", len(difficulties))
	if err != nil {
		return nil, service.Selection{}, err
	}

	sel := service.Selection{
		CategoryID:   categories[ci].ID,
		CategoryName: categories[ci].Name,
		Difficulty:   difficulties[di],
	}
	s, err := g.Launcher.Launch(ctx, sel)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuestionSet) {
			fmt.Fprintln(out, "No questions available for this category and difficulty.")
		}
		return nil, sel, err
	}
	return s, sel, nil
}

func choose(lines <-chan string, out io.Writer, prompt string, n int) (int, error) {
	for {
		fmt.Fprintf(out, "%s [1-%d]: ", prompt, n)
		line, ok := <-lines
		if !ok {
			return 0, io.EOF
		}
		i, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil && i >= 1 && i <= n {
			return i - 1, nil
		}
		fmt.Fprintln(out, "Please enter a number from the list.")
	}
}

// run drives the session until it completes, is aborted, or the input ends.
// When the input ends or ctx is cancelled the session is saved for later.
func (g *Game) run(ctx context.Context, s *service.Session, sel service.Selection, lines <-chan string, out io.Writer) service.Outcome {
	done := make(chan struct{})
	defer close(done)

	l := &listener{events: make(chan event, 4), done: done}
	runner := service.NewRunner(s, l, g.RunnerOpts...)
	defer runner.Close()

	guard := service.NewExitGuardWithClock(g.ExitWindow, g.Clock)

	selected := service.OptionNone
	printScreen(out, sel, runner.Start(), selected)

	suspend := func() service.Outcome {
		runner.Close()
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
		defer cancel()
		if err := g.Launcher.Save(saveCtx, SnapshotKey, runner.Snapshot()); err != nil {
			g.Log.Warn("saving session", zap.Error(err))
		} else {
			fmt.Fprintln(out, "\nQuiz saved; run play again to resume.")
		}
		return service.Outcome{Status: service.OutcomeCancelled}
	}

	for {
		select {
		case <-ctx.Done():
			return suspend()

		case ev := <-l.events:
			if ev.timeout {
				printReveal(out, ev.reveal, ev.view)
				continue
			}
			if ev.view.RemainingMillis%10000 == 0 || ev.view.Urgent() {
				fmt.Fprintf(out, "  ⏱ %s\n", ev.view.Countdown())
			}

		case line, ok := <-lines:
			if !ok {
				return suspend()
			}
			cmd := strings.ToLower(strings.TrimSpace(line))

			if cmd == "q" {
				if !guard.Request() {
					fmt.Fprintln(out, "Press q again to end the quiz.")
					continue
				}
				outcome := runner.Abort()
				g.discard(ctx)
				return outcome
			}

			v := runner.View()
			if v.Phase == service.PhaseAnswered {
				nv, more, err := runner.Next()
				if err != nil {
					g.Log.Debug("advancing", zap.Error(err))
					continue
				}
				if !more {
					g.discard(ctx)
					return runner.Outcome()
				}
				selected = service.OptionNone
				printScreen(out, sel, nv, selected)
				g.save(ctx, runner)
				continue
			}

			if n, err := strconv.Atoi(cmd); err == nil {
				if o := service.Option(n); o.Valid() {
					selected = o
					fmt.Fprintf(out, "Selected %d. Press enter to confirm.\n", n)
					continue
				}
			}
			if cmd != "" {
				fmt.Fprintln(out, "Enter 1, 2 or 3 to choose, enter to confirm, q to quit.")
				continue
			}

			rev, err := runner.Submit(selected)
			if errors.Is(err, service.ErrNoSelection) {
				fmt.Fprintln(out, "Please choose an answer.")
				continue
			}
			if err != nil {
				g.Log.Debug("submitting", zap.Error(err))
				continue
			}
			printReveal(out, rev, runner.View())
			g.save(ctx, runner)
		}
	}
}

func (g *Game) save(ctx context.Context, r *service.Runner) {
	if err := g.Launcher.Save(ctx, SnapshotKey, r.Snapshot()); err != nil {
		g.Log.Warn("saving session", zap.Error(err))
	}
}

func (g *Game) discard(ctx context.Context) {
	if err := g.Launcher.Discard(ctx, SnapshotKey); err != nil {
		g.Log.Warn("discarding session", zap.Error(err))
	}
}

func readLines(ctx context.Context, in io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()
	return lines
}

func printScreen(out io.Writer, sel service.Selection, v service.View, selected service.Option) {
	if v.Reveal != nil {
		printReveal(out, *v.Reveal, v)
		return
	}
	fmt.Fprintf(out, "\nQuestion %d/%d  Score: %d  Category: %s  Level: %s  ⏱ %s\n",
		v.Number, v.Total, v.Score, sel.CategoryName, sel.Difficulty, v.Countdown())
	fmt.Fprintln(out, v.Question.Text)
	for i, text := range v.Question.Options() {
		mark := " "
		if service.Option(i+1) == selected {
			mark = "*"
		}
		fmt.Fprintf(out, " %s%d) %s\n", mark, i+1, text)
	}
}

func printReveal(out io.Writer, r service.Reveal, v service.View) {
	switch {
	case r.TimedOut:
		fmt.Fprintln(out, "Time is up!")
	case r.Correct:
		fmt.Fprintln(out, "Correct!")
	case r.Selected.Valid():
		fmt.Fprintln(out, "Wrong!")
	}
	for i, text := range r.Question.Options() {
		mark := "✗"
		if r.Verdict(service.Option(i + 1)) {
			mark = "✓"
		}
		fmt.Fprintf(out, "  %s %d) %s\n", mark, i+1, text)
	}
	fmt.Fprintf(out, "Score: %d. Press enter for %s.\n", v.Score, v.Label)
}
