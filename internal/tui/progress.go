package tui

import (
	"fmt"
	"time"

	"github.com/go-faster/errors"

	"github.com/spiffcs/devpulse/internal/apperr"
	"github.com/spiffcs/devpulse/internal/service"
)

var stageTasks = map[service.Stage]TaskID{
	service.StageValidate:  TaskValidate,
	service.StageFetch:     TaskFetch,
	service.StageDetails:   TaskDetails,
	service.StageAggregate: TaskAggregate,
}

var stateStatuses = map[service.State]TaskStatus{
	service.StateRunning:  StatusRunning,
	service.StateComplete: StatusComplete,
	service.StateFailed:   StatusError,
	service.StateSkipped:  StatusSkipped,
}

// Progress adapts service progress events into TUI events on ch.
func Progress(ch chan<- Event) service.ProgressFunc {
	return func(e service.Event) {
		SendEvent(ch, TaskEventFor(e))

		var ae *apperr.Error
		if e.State == service.StateFailed && errors.As(e.Err, &ae) && ae.Kind == apperr.KindRateLimited {
			wait, _ := ae.RetryAfter()
			SendEvent(ch, RateLimitEvent{
				Integration: ae.Integration,
				Limited:     true,
				ResetAt:     time.Now().Add(wait),
			})
		}
	}
}

// TaskEventFor converts one service event.
func TaskEventFor(e service.Event) TaskEvent {
	te := TaskEvent{
		Task:   stageTasks[e.Stage],
		Status: stateStatuses[e.State],
		Count:  e.Count,
		Error:  e.Err,
	}
	if e.Total > 0 {
		te.Progress = float64(e.Done) / float64(e.Total)
		te.Message = fmt.Sprintf("%d/%d", e.Done, e.Total)
	}
	return te
}
