package service

import "github.com/pkg/errors"

var (
	// ErrStoreInit means the question store could not be created or seeded.
	ErrStoreInit = errors.New("question store initialization failed")
	// ErrEmptyQuestionSet is returned when a selection has no questions.
	ErrEmptyQuestionSet = errors.New("no questions available")
	// ErrInvalidSnapshot marks a snapshot that must be discarded.
	ErrInvalidSnapshot = errors.New("invalid session snapshot")
	// ErrNoSelection is returned when an answer is confirmed with no option chosen.
	ErrNoSelection = errors.New("no option selected")

	ErrNotAnswered      = errors.New("current question is not answered yet")
	ErrSessionCompleted = errors.New("session already completed")
	ErrNoSavedSession   = errors.New("no saved session")
)
