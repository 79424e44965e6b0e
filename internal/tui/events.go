package tui

import "time"

// TaskID identifies a task in the TUI progress display.
type TaskID int

const (
	TaskValidate  TaskID = iota // Checking the window and principal
	TaskFetch                   // Listing activity from the upstream API
	TaskDetails                 // Per-item detail requests (PR detail, reviews, comments)
	TaskAggregate               // Computing the summary
)

// TaskStatus represents the current status of a task.
type TaskStatus int

const (
	StatusPending TaskStatus = iota
	StatusRunning
	StatusComplete
	StatusError
	StatusSkipped
)

// Event is the interface for all TUI events.
type Event interface {
	isEvent()
}

// TaskEvent represents an update to a task's status.
type TaskEvent struct {
	Task     TaskID
	Status   TaskStatus
	Message  string  // Optional message (e.g., "12/30" for progress)
	Count    int     // Count of records (e.g., pull requests fetched)
	Progress float64 // Progress from 0.0 to 1.0
	Error    error   // Error if status is StatusError
}

func (TaskEvent) isEvent() {}

// RateLimitEvent reports that an upstream API refused the run for quota.
type RateLimitEvent struct {
	Integration string
	Limited     bool
	ResetAt     time.Time
}

func (RateLimitEvent) isEvent() {}

// DoneEvent signals that all work is complete.
type DoneEvent struct{}

func (DoneEvent) isEvent() {}
