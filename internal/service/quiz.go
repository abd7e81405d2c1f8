package service

import "strconv"

// Difficulty is the label stored with every question. It also selects the
// per-question time budget.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// AllDifficulties returns the labels in the order the selection screen shows them.
func AllDifficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// Option identifies one of the three answers of a question.
type Option int

const (
	OptionNone Option = iota
	Option1
	Option2
	Option3
)

func (o Option) Valid() bool {
	return o >= Option1 && o <= Option3
}

func (o Option) String() string {
	if !o.Valid() {
		return "none"
	}
	return strconv.Itoa(int(o))
}

type Category struct {
	ID    int    `json:"id" yaml:"id"`
	Name  string `json:"name" yaml:"name"`
	Mixed bool   `json:"mixed,omitempty" yaml:"mixed"`
}

type Question struct {
	ID         int        `json:"id"`
	Text       string     `json:"text"`
	Option1    string     `json:"option1"`
	Option2    string     `json:"option2"`
	Option3    string     `json:"option3"`
	Answer     Option     `json:"answer"`
	Difficulty Difficulty `json:"difficulty"`
	CategoryID int        `json:"category_id"`
}

// Options returns the answer texts indexed by Option-1.
func (q Question) Options() [3]string {
	return [3]string{q.Option1, q.Option2, q.Option3}
}

// OptionText returns the text of o, or "" for OptionNone.
func (q Question) OptionText(o Option) string {
	if !o.Valid() {
		return ""
	}
	return q.Options()[o-1]
}

// Selection is what the selection screen hands to the launcher.
type Selection struct {
	CategoryID   int
	CategoryName string
	Difficulty   Difficulty
}

// OutcomeStatus tells the selection screen how a session ended.
type OutcomeStatus int

const (
	// OutcomeCancelled means there is no result to record.
	OutcomeCancelled OutcomeStatus = iota
	OutcomeCompleted
	// OutcomeAborted is a confirmed early exit; the score so far counts.
	OutcomeAborted
)

func (s OutcomeStatus) String() string {
	switch s {
	case OutcomeCompleted:
		return "completed"
	case OutcomeAborted:
		return "aborted"
	}
	return "cancelled"
}

type Outcome struct {
	Status OutcomeStatus
	Score  int
	Total  int
}

// HasResult reports whether the outcome carries a score for the highscore.
func (o Outcome) HasResult() bool {
	return o.Status == OutcomeCompleted || o.Status == OutcomeAborted
}
