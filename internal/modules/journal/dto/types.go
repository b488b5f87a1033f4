package dto

import "time"

type StartInput struct {
	Mode       string
	Items      []string
	Difficulty int
}

type AnswerInput struct {
	Correct bool
	Points  int
}

type SessionOutput struct {
	Mode           string    `json:"mode" yaml:"mode"`
	Items          []string  `json:"selectedItems" yaml:"selected_items"`
	Difficulty     int       `json:"difficulty" yaml:"difficulty"`
	Score          int       `json:"score" yaml:"score"`
	Attempts       int       `json:"attempts" yaml:"attempts"`
	Streak         int       `json:"streak" yaml:"streak"`
	StartTime      time.Time `json:"startTime" yaml:"start_time"`
	LastUpdateTime time.Time `json:"lastUpdateTime" yaml:"last_update_time"`
}

type CheckOutput struct {
	Found   bool
	Session SessionOutput
}

type AnswerOutput struct {
	Session   SessionOutput
	Persisted bool
}

type SuspendOutput struct {
	Persisted bool
}

type CompleteOutput struct {
	Session SessionOutput
	// Queued holds the outbox item ids created for the finished session.
	Queued []string
	// Delivered counts items the immediate drain got through.
	Delivered int
}

type StatusOutput struct {
	State   string
	Session *SessionOutput
	Unsaved int
	Offered bool
}
