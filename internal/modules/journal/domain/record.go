package domain

import (
	"fmt"
	"time"
)

const (
	// DefaultBatchThreshold is how many SaveSession calls accumulate before a persist.
	DefaultBatchThreshold = 5
	// DefaultResumeWindow bounds how old a checkpoint may be and still be offered.
	DefaultResumeWindow = 24 * time.Hour
)

type Mode string

const (
	ModeNotes  Mode = "notes"
	ModeChords Mode = "chords"
	ModeMixed  Mode = "mixed"
)

func (m Mode) Validate() error {
	switch m {
	case ModeNotes, ModeChords, ModeMixed:
		return nil
	default:
		return fmt.Errorf("unsupported practice mode: %s", m)
	}
}

// Record is the checkpoint of the single in-progress practice session.
type Record struct {
	Mode           Mode      `json:"mode"`
	SelectedItems  []string  `json:"selectedItems"`
	Difficulty     int       `json:"difficulty"`
	Score          int       `json:"score"`
	Attempts       int       `json:"attempts"`
	Streak         int       `json:"streak"`
	StartTime      time.Time `json:"startTime"`
	LastUpdateTime time.Time `json:"lastUpdateTime"`
}

func (r Record) Validate() error {
	if err := r.Mode.Validate(); err != nil {
		return err
	}
	if r.Difficulty < 0 || r.Score < 0 || r.Attempts < 0 || r.Streak < 0 {
		return fmt.Errorf("session counters must be non-negative")
	}
	if r.Streak > r.Attempts {
		return fmt.Errorf("streak %d exceeds attempts %d", r.Streak, r.Attempts)
	}
	return nil
}

// Resumable reports whether the checkpoint is worth offering: at least one answer was
// given and the last update is younger than window.
func (r Record) Resumable(now time.Time, window time.Duration) bool {
	return r.Attempts > 0 && now.Sub(r.LastUpdateTime) < window
}

// ApplyAnswer returns r with one more answer counted.
func (r Record) ApplyAnswer(correct bool, points int) Record {
	r.Attempts++
	if correct {
		r.Streak++
		if points > 0 {
			r.Score += points
		}
	} else {
		r.Streak = 0
	}
	return r
}

// Clone copies the record so callers can't alias SelectedItems.
func (r Record) Clone() Record {
	if r.SelectedItems != nil {
		r.SelectedItems = append([]string(nil), r.SelectedItems...)
	}
	return r
}

// State is the journal's position in the checkpoint lifecycle.
type State string

const (
	StateNoSession          State = "no_session"
	StatePendingUnpersisted State = "pending_unpersisted"
	StatePersisted          State = "persisted"
	StateResumable          State = "resumable"
	StateConsumed           State = "consumed"
)

type Snapshot struct {
	State   State
	Pending *Record
	Unsaved int
	Offered bool
}
