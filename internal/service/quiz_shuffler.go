package service

import (
	"math/rand"
	"time"
)

func newRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// ShuffleQuestions returns a shuffled copy of questions; the input is left untouched.
func ShuffleQuestions(questions []Question, r *rand.Rand) []Question {
	shuffled := make([]Question, len(questions))
	copy(shuffled, questions)

	if r == nil {
		r = newRand()
	}

	// Fisher–Yates
	for i := len(shuffled) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}

	return shuffled
}

// ShuffleQuestionsWithLimit shuffles and keeps at most limit questions.
// A limit <= 0 keeps them all.
func ShuffleQuestionsWithLimit(questions []Question, limit int, r *rand.Rand) []Question {
	shuffled := ShuffleQuestions(questions, r)

	if limit <= 0 || limit > len(shuffled) {
		limit = len(shuffled)
	}

	return shuffled[:limit]
}
