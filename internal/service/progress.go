package service

import "sync"

// Stage is a step of a computation.
type Stage int

const (
	StageValidate  Stage = iota // Checking input
	StageFetch                  // Running the upstream searches
	StageDetails                // Per-item lookups (PR details, reviews, comments)
	StageAggregate              // Computing the summary
)

func (s Stage) String() string {
	switch s {
	case StageValidate:
		return "validate"
	case StageFetch:
		return "fetch"
	case StageDetails:
		return "details"
	case StageAggregate:
		return "aggregate"
	}
	return "unknown"
}

// State is the state a stage moved to.
type State int

const (
	StateRunning State = iota
	StateComplete
	StateFailed
	StateSkipped
)

// Event reports a stage change. Done and Total are set while a stage
// with countable work runs; Count is set on completion.
type Event struct {
	Stage Stage
	State State
	Done  int
	Total int
	Count int
	Err   error
}

// ProgressFunc receives events. It may be called from several goroutines.
type ProgressFunc func(Event)

// reporter sends events to an optional ProgressFunc and sums per-item
// progress across concurrently running sources.
type reporter struct {
	fn ProgressFunc

	mu      sync.Mutex
	details map[string][2]int
}

func newReporter(fn ProgressFunc) *reporter {
	return &reporter{fn: fn, details: map[string][2]int{}}
}

func (r *reporter) emit(e Event) {
	if r.fn != nil {
		r.fn(e)
	}
}

func (r *reporter) start(stage Stage) {
	r.emit(Event{Stage: stage, State: StateRunning})
}

func (r *reporter) progress(stage Stage, done, total int) {
	r.emit(Event{Stage: stage, State: StateRunning, Done: done, Total: total})
}

func (r *reporter) complete(stage Stage, count int) {
	r.emit(Event{Stage: stage, State: StateComplete, Count: count})
}

func (r *reporter) fail(stage Stage, err error) {
	r.emit(Event{Stage: stage, State: StateFailed, Err: err})
}

func (r *reporter) skip(stage Stage) {
	r.emit(Event{Stage: stage, State: StateSkipped})
}

// detail records progress of one source's fan-out and emits the sum.
func (r *reporter) detail(source string, done, total int) {
	r.mu.Lock()
	r.details[source] = [2]int{done, total}
	var sumDone, sumTotal int
	for _, d := range r.details {
		sumDone += d[0]
		sumTotal += d[1]
	}
	r.mu.Unlock()
	r.progress(StageDetails, sumDone, sumTotal)
}
