package service

import (
	"math/rand"

	"github.com/google/uuid"
)

// Per-question time budgets in milliseconds.
const (
	TimeoutEasyMillis    int64 = 45000
	TimeoutMediumMillis  int64 = 40000
	TimeoutHardMillis    int64 = 30000
	DefaultTimeoutMillis       = TimeoutMediumMillis
)

// TimeoutFor maps a difficulty label to its countdown. Unknown labels get the default.
func TimeoutFor(label string) int64 {
	switch Difficulty(label) {
	case DifficultyEasy:
		return TimeoutEasyMillis
	case DifficultyMedium:
		return TimeoutMediumMillis
	case DifficultyHard:
		return TimeoutHardMillis
	default:
		return DefaultTimeoutMillis
	}
}

type Phase int

const (
	PhaseLoading Phase = iota
	PhaseUnanswered
	PhaseAnswered
	PhaseCompleted
)

func (p Phase) String() string {
	switch p {
	case PhaseUnanswered:
		return "unanswered"
	case PhaseAnswered:
		return "answered"
	case PhaseCompleted:
		return "completed"
	}
	return "loading"
}

// Button labels for the confirm/next control.
const (
	LabelConfirm = "confirm"
	LabelNext    = "next"
	LabelFinish  = "finish"
)

// Reveal is the solution shown after a question has been answered or timed out.
type Reveal struct {
	Question Question
	Selected Option
	Correct  bool
	TimedOut bool
	Score    int
}

// Verdict reports how option o is highlighted: true for the correct answer,
// false for every other option, whatever was selected.
func (r Reveal) Verdict(o Option) bool {
	return o == r.Question.Answer
}

// Session is one quiz run. It is not safe for concurrent use; Runner
// serializes access when a countdown is attached.
type Session struct {
	id        string
	questions []Question
	index     int
	score     int
	remaining int64
	answered  bool
	completed bool
	timeout   int64
	last      Reveal
	selection Selection
}

type SessionOption func(*sessionOptions)

type sessionOptions struct {
	rand      *rand.Rand
	id        string
	selection Selection
}

// WithRand makes the shuffle deterministic.
func WithRand(r *rand.Rand) SessionOption {
	return func(o *sessionOptions) { o.rand = r }
}

func WithSessionID(id string) SessionOption {
	return func(o *sessionOptions) { o.id = id }
}

// WithSelection records the category and difficulty the session was
// started from so a restored session shows the same header.
func WithSelection(sel Selection) SessionOption {
	return func(o *sessionOptions) { o.selection = sel }
}

func applyOptions(opts []SessionOption) sessionOptions {
	var o sessionOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.New().String()
	}
	return o
}

// NewSession shuffles questions and advances to the first one.
func NewSession(questions []Question, timeoutMillis int64, opts ...SessionOption) (*Session, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyQuestionSet
	}
	if timeoutMillis <= 0 {
		timeoutMillis = DefaultTimeoutMillis
	}

	o := applyOptions(opts)
	s := &Session{
		id:        o.id,
		questions: ShuffleQuestions(questions, o.rand),
		timeout:   timeoutMillis,
		selection: o.selection,
	}
	if _, _, err := s.Advance(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Selection() Selection { return s.selection }

// Advance moves to the next question. ok is false once the list is exhausted;
// the session is then completed and Score is final.
func (s *Session) Advance() (q Question, ok bool, err error) {
	if s.completed {
		return Question{}, false, ErrSessionCompleted
	}
	if s.index > 0 && !s.answered {
		return Question{}, false, ErrNotAnswered
	}
	if s.index >= len(s.questions) {
		s.completed = true
		return Question{}, false, nil
	}

	q = s.questions[s.index]
	s.index++
	s.answered = false
	s.remaining = s.timeout
	s.last = Reveal{}
	return q, true, nil
}

// Tick consumes elapsedMillis of the countdown. When the countdown runs out
// the question is revealed as a miss and expired is true.
func (s *Session) Tick(elapsedMillis int64) (r Reveal, expired bool) {
	if s.completed || s.index == 0 || s.answered || elapsedMillis <= 0 {
		return Reveal{}, false
	}

	s.remaining -= elapsedMillis
	if s.remaining > 0 {
		return Reveal{}, false
	}
	s.remaining = 0
	return s.reveal(OptionNone, true), true
}

// SubmitAnswer scores the current question. Once answered, further calls
// return the same reveal and leave the score alone.
func (s *Session) SubmitAnswer(o Option) (Reveal, error) {
	if s.completed {
		return Reveal{}, ErrSessionCompleted
	}
	if s.answered {
		return s.last, nil
	}
	if !o.Valid() {
		return Reveal{}, ErrNoSelection
	}
	return s.reveal(o, false), nil
}

func (s *Session) reveal(o Option, timedOut bool) Reveal {
	q := s.questions[s.index-1]
	s.answered = true

	correct := !timedOut && o == q.Answer
	if correct {
		s.score++
	}

	s.last = Reveal{
		Question: q,
		Selected: o,
		Correct:  correct,
		TimedOut: timedOut,
		Score:    s.score,
	}
	return s.last
}

// LastReveal returns the solution of the current question if it was answered.
func (s *Session) LastReveal() (Reveal, bool) {
	return s.last, s.answered
}

func (s *Session) Current() (Question, bool) {
	if s.index == 0 || s.completed {
		return Question{}, false
	}
	return s.questions[s.index-1], true
}

func (s *Session) IsLastQuestion() bool {
	return s.index >= len(s.questions)
}

// ConfirmLabel is the text of the confirm/next button for the current state.
func (s *Session) ConfirmLabel() string {
	switch {
	case !s.answered:
		return LabelConfirm
	case s.IsLastQuestion():
		return LabelFinish
	default:
		return LabelNext
	}
}

func (s *Session) Phase() Phase {
	switch {
	case s.completed:
		return PhaseCompleted
	case s.index == 0:
		return PhaseLoading
	case s.answered:
		return PhaseAnswered
	default:
		return PhaseUnanswered
	}
}

func (s *Session) Score() int { return s.score }

func (s *Session) Total() int { return len(s.questions) }

func (s *Session) Index() int { return s.index }

func (s *Session) Answered() bool { return s.answered }

func (s *Session) Completed() bool { return s.completed }

func (s *Session) RemainingMillis() int64 { return s.remaining }

func (s *Session) TimeoutMillis() int64 { return s.timeout }

func (s *Session) Questions() []Question {
	return append([]Question(nil), s.questions...)
}

// Outcome is the completion result handed back to the selection screen.
func (s *Session) Outcome() Outcome {
	return Outcome{Status: OutcomeCompleted, Score: s.score, Total: len(s.questions)}
}

// Abort ends the session early and returns the score reached so far.
func (s *Session) Abort() Outcome {
	s.completed = true
	return Outcome{Status: OutcomeAborted, Score: s.score, Total: len(s.questions)}
}

// View is a read-only picture of the session for rendering.
type View struct {
	SessionID       string
	Phase           Phase
	Question        Question
	Number          int
	Total           int
	Score           int
	RemainingMillis int64
	Last            bool
	Label           string
	Reveal          *Reveal
}

func (s *Session) View() View {
	v := View{
		SessionID:       s.id,
		Phase:           s.Phase(),
		Number:          s.index,
		Total:           len(s.questions),
		Score:           s.score,
		RemainingMillis: s.remaining,
		Last:            s.IsLastQuestion(),
		Label:           s.ConfirmLabel(),
	}
	if q, ok := s.Current(); ok {
		v.Question = q
	}
	if s.answered {
		r := s.last
		v.Reveal = &r
	}
	return v
}
