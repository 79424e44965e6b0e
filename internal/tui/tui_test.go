package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spiffcs/devpulse/internal/apperr"
	"github.com/spiffcs/devpulse/internal/service"
)

func TestTaskID(t *testing.T) {
	// Verify task IDs are distinct
	ids := []TaskID{TaskValidate, TaskFetch, TaskDetails, TaskAggregate}
	seen := make(map[TaskID]bool)

	for _, id := range ids {
		if seen[id] {
			t.Errorf("duplicate task ID: %d", id)
		}
		seen[id] = true
	}
}

func TestTaskStatus(t *testing.T) {
	// Verify statuses are distinct
	statuses := []TaskStatus{StatusPending, StatusRunning, StatusComplete, StatusError, StatusSkipped}
	seen := make(map[TaskStatus]bool)

	for _, status := range statuses {
		if seen[status] {
			t.Errorf("duplicate status: %d", status)
		}
		seen[status] = true
	}
}

func TestNewTask(t *testing.T) {
	task := NewTask(TaskFetch, "Fetching activity")

	if task.ID != TaskFetch {
		t.Errorf("expected ID %d, got %d", TaskFetch, task.ID)
	}
	if task.Name != "Fetching activity" {
		t.Errorf("expected name 'Fetching activity', got %q", task.Name)
	}
	if task.Status != StatusPending {
		t.Errorf("expected status %d, got %d", StatusPending, task.Status)
	}
}

func TestTaskEvent(t *testing.T) {
	event := TaskEvent{
		Task:     TaskDetails,
		Status:   StatusRunning,
		Message:  "10/20",
		Count:    10,
		Progress: 0.5,
	}

	// Verify it implements Event interface
	var _ Event = event

	if event.Task != TaskDetails {
		t.Errorf("expected task %d, got %d", TaskDetails, event.Task)
	}
	if event.Progress != 0.5 {
		t.Errorf("expected progress 0.5, got %f", event.Progress)
	}
}

func TestDoneEvent(t *testing.T) {
	event := DoneEvent{}

	// Verify it implements Event interface
	var _ Event = event
}

func TestSendEvent(t *testing.T) {
	ch := make(chan Event, 1)

	event := TaskEvent{Task: TaskValidate, Status: StatusComplete}
	SendEvent(ch, event)

	select {
	case received := <-ch:
		if te, ok := received.(TaskEvent); ok {
			if te.Task != TaskValidate {
				t.Errorf("expected task %d, got %d", TaskValidate, te.Task)
			}
		} else {
			t.Error("expected TaskEvent type")
		}
	default:
		t.Error("expected event in channel")
	}
}

func TestSendEventNilChannel(t *testing.T) {
	// Should not panic with nil channel
	SendEvent(nil, TaskEvent{})
}

func TestSendTaskEvent(t *testing.T) {
	ch := make(chan Event, 1)

	SendTaskEvent(ch, TaskAggregate, StatusRunning,
		WithMessage("processing"),
		WithCount(42),
		WithProgress(0.75),
	)

	select {
	case received := <-ch:
		te, ok := received.(TaskEvent)
		if !ok {
			t.Fatal("expected TaskEvent type")
		}
		if te.Task != TaskAggregate {
			t.Errorf("expected task %d, got %d", TaskAggregate, te.Task)
		}
		if te.Message != "processing" {
			t.Errorf("expected message 'processing', got %q", te.Message)
		}
		if te.Count != 42 {
			t.Errorf("expected count 42, got %d", te.Count)
		}
		if te.Progress != 0.75 {
			t.Errorf("expected progress 0.75, got %f", te.Progress)
		}
	default:
		t.Error("expected event in channel")
	}
}

func TestWithError(t *testing.T) {
	ch := make(chan Event, 1)
	testErr := errors.New("test error")

	SendTaskEvent(ch, TaskFetch, StatusError, WithError(testErr))

	select {
	case received := <-ch:
		te, ok := received.(TaskEvent)
		if !ok {
			t.Fatal("expected TaskEvent type")
		}
		if te.Error != testErr {
			t.Errorf("expected error %v, got %v", testErr, te.Error)
		}
	default:
		t.Error("expected event in channel")
	}
}

func TestShouldUseTUI(t *testing.T) {
	// Just verify it returns a boolean and doesn't panic
	// The actual result depends on the environment (TTY, CI vars)
	result := ShouldUseTUI()
	_ = result // Use the result to avoid compiler warning
}

func TestStatusIcon(t *testing.T) {
	// Test that StatusIcon returns non-empty strings for all statuses
	statuses := []TaskStatus{StatusPending, StatusRunning, StatusComplete, StatusError, StatusSkipped}

	for _, status := range statuses {
		icon := StatusIcon(status, ">")
		if icon == "" {
			t.Errorf("StatusIcon returned empty string for status %d", status)
		}
	}
}

func TestTaskEventFor(t *testing.T) {
	tests := []struct {
		name string
		in   service.Event
		want TaskEvent
	}{
		{
			name: "running with progress",
			in:   service.Event{Stage: service.StageDetails, State: service.StateRunning, Done: 3, Total: 12},
			want: TaskEvent{Task: TaskDetails, Status: StatusRunning, Message: "3/12", Progress: 0.25},
		},
		{
			name: "complete with count",
			in:   service.Event{Stage: service.StageFetch, State: service.StateComplete, Count: 7},
			want: TaskEvent{Task: TaskFetch, Status: StatusComplete, Count: 7},
		},
		{
			name: "skipped",
			in:   service.Event{Stage: service.StageDetails, State: service.StateSkipped},
			want: TaskEvent{Task: TaskDetails, Status: StatusSkipped},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TaskEventFor(tt.in); got != tt.want {
				t.Errorf("TaskEventFor() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestProgressRateLimited(t *testing.T) {
	ch := make(chan Event, 4)
	err := apperr.RateLimited("github", time.Minute)
	Progress(ch)(service.Event{Stage: service.StageFetch, State: service.StateFailed, Err: err})

	te, ok := (<-ch).(TaskEvent)
	if !ok || te.Status != StatusError || te.Task != TaskFetch {
		t.Fatalf("expected fetch error event, got %+v", te)
	}
	rl, ok := (<-ch).(RateLimitEvent)
	if !ok {
		t.Fatal("expected RateLimitEvent")
	}
	if !rl.Limited || rl.Integration != "github" {
		t.Errorf("unexpected rate limit event %+v", rl)
	}
	if until := time.Until(rl.ResetAt); until <= 0 || until > time.Minute {
		t.Errorf("ResetAt %v not within the next minute", rl.ResetAt)
	}
}

func TestModelUpdate(t *testing.T) {
	events := make(chan Event)
	m := NewModel(events, WithSubject("alice 2025-11-01..2025-11-15"))

	updated, _ := m.Update(TaskEvent{Task: TaskFetch, Status: StatusRunning, Message: "1/2", Progress: 0.5})
	m = updated.(Model)
	if m.tasks[1].Message != "1/2" {
		t.Errorf("expected running message, got %q", m.tasks[1].Message)
	}

	updated, _ = m.Update(TaskEvent{Task: TaskFetch, Status: StatusComplete, Count: 4})
	m = updated.(Model)
	if m.tasks[1].Message != "" || m.tasks[1].Count != 4 {
		t.Errorf("expected cleared message and count 4, got %+v", m.tasks[1])
	}

	updated, _ = m.Update(TaskEvent{Task: TaskValidate, Status: StatusComplete})
	m = updated.(Model)
	if view := m.View(); !strings.Contains(view, "alice 2025-11-01..2025-11-15") {
		t.Errorf("view does not show subject:\n%s", view)
	}

	updated, _ = m.Update(DoneEvent{})
	if !updated.(Model).done {
		t.Error("expected model to be done")
	}
}
