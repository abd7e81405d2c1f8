package service

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Snapshot is the serialized form of an in-progress session.
type Snapshot struct {
	SessionID           string     `json:"session_id"`
	Questions           []Question `json:"questions"`
	CurrentIndex        int        `json:"current_index"`
	Score               int        `json:"score"`
	TimeRemainingMillis int64      `json:"time_remaining_ms"`
	Answered            bool       `json:"answered"`
	TimeoutMillis       int64      `json:"timeout_ms"`
	CategoryID          int        `json:"category_id,omitempty"`
	CategoryName        string     `json:"category_name,omitempty"`
	Difficulty          Difficulty `json:"difficulty,omitempty"`
}

// Snapshot captures the session so it can be restored later without
// reshuffling or querying the store again.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		SessionID:           s.id,
		Questions:           s.Questions(),
		CurrentIndex:        s.index,
		Score:               s.score,
		TimeRemainingMillis: s.remaining,
		Answered:            s.answered,
		TimeoutMillis:       s.timeout,
		CategoryID:          s.selection.CategoryID,
		CategoryName:        s.selection.CategoryName,
		Difficulty:          s.selection.Difficulty,
	}
}

// Validate rejects partial or inconsistent snapshots.
func (snap Snapshot) Validate() error {
	n := len(snap.Questions)
	if n == 0 {
		return errors.Wrap(ErrInvalidSnapshot, "missing question list")
	}
	if snap.CurrentIndex < 1 || snap.CurrentIndex > n {
		return errors.Wrapf(ErrInvalidSnapshot, "current index %d out of range 1..%d", snap.CurrentIndex, n)
	}
	if snap.TimeoutMillis <= 0 {
		return errors.Wrapf(ErrInvalidSnapshot, "timeout %dms", snap.TimeoutMillis)
	}
	if snap.TimeRemainingMillis < 0 || snap.TimeRemainingMillis > snap.TimeoutMillis {
		return errors.Wrapf(ErrInvalidSnapshot, "remaining %dms outside 0..%dms", snap.TimeRemainingMillis, snap.TimeoutMillis)
	}

	// Only questions already answered can have scored.
	maxScore := snap.CurrentIndex - 1
	if snap.Answered {
		maxScore++
	}
	if snap.Score < 0 || snap.Score > maxScore {
		return errors.Wrapf(ErrInvalidSnapshot, "score %d exceeds %d answered questions", snap.Score, maxScore)
	}

	for i, q := range snap.Questions {
		if !q.Answer.Valid() {
			return errors.Wrapf(ErrInvalidSnapshot, "question %d has answer %d", i, q.Answer)
		}
	}
	return nil
}

// RestoreSession rebuilds a session from snap. The question order is kept as is.
func RestoreSession(snap Snapshot) (*Session, error) {
	if err := snap.Validate(); err != nil {
		return nil, err
	}

	id := snap.SessionID
	if id == "" {
		id = applyOptions(nil).id
	}

	s := &Session{
		id:        id,
		questions: append([]Question(nil), snap.Questions...),
		index:     snap.CurrentIndex,
		score:     snap.Score,
		remaining: snap.TimeRemainingMillis,
		answered:  snap.Answered,
		timeout:   snap.TimeoutMillis,
		selection: Selection{
			CategoryID:   snap.CategoryID,
			CategoryName: snap.CategoryName,
			Difficulty:   snap.Difficulty,
		},
	}
	if s.answered {
		// The selected option is not part of the snapshot; the solution view
		// only needs the correct one.
		s.last = Reveal{Question: s.questions[s.index-1], Score: s.score}
	}
	return s, nil
}

func EncodeSnapshot(snap Snapshot) ([]byte, error) {
	return json.Marshal(snap)
}

// DecodeSnapshot parses and validates data. Anything unusable is reported as
// ErrInvalidSnapshot.
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, errors.Wrap(ErrInvalidSnapshot, err.Error())
	}
	if err := snap.Validate(); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}
