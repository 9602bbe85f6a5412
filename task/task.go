package task

import (
	"time"

	"ytaudio/youtube"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// IsFinished reports whether s is terminal.
func (s Status) IsFinished() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Outcome classifies a single attempt.
type Outcome string

const (
	OutcomeVerified   Outcome = "verified"
	OutcomeMismatched Outcome = "mismatched"
	OutcomeCrashed    Outcome = "crashed"
)

// Task is the download of one VideoRecord to one output path.
type Task struct {
	ID          string              `json:"id"`
	Record      youtube.VideoRecord `json:"record"`
	OutputPath  string              `json:"outputPath"`
	Status      Status              `json:"status"`
	Attempts    int                 `json:"attempts"`
	LastOutcome Outcome             `json:"lastOutcome,omitempty"`
	Error       string              `json:"error,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	StartedAt   time.Time           `json:"startedAt,omitempty"`
	CompletedAt time.Time           `json:"completedAt,omitempty"`
}
