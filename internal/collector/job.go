package collector

import "fmt"

// State is the lifecycle position of one ticker within a run.
type State int

const (
	Pending State = iota
	InFlight
	Retrying
	Success
	PermanentFailure
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case InFlight:
		return "in_flight"
	case Retrying:
		return "retrying"
	case Success:
		return "success"
	case PermanentFailure:
		return "permanent_failure"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Job tracks every ticker of one collection run. A ticker is in exactly one
// state at a time, and at most one ticker is in flight.
type Job struct {
	order    []string
	pending  []string
	inFlight string
	states   map[string]State
	attempts map[string]int
	failures []string
}

// NewJob queues tickers in order. Duplicates are dropped.
func NewJob(tickers []string) *Job {
	j := &Job{
		states:   make(map[string]State, len(tickers)),
		attempts: make(map[string]int, len(tickers)),
	}
	for _, t := range tickers {
		if _, seen := j.states[t]; seen || t == "" {
			continue
		}
		j.states[t] = Pending
		j.order = append(j.order, t)
		j.pending = append(j.pending, t)
	}
	return j
}

// Tickers returns the queued tickers in input order.
func (j *Job) Tickers() []string {
	return append([]string(nil), j.order...)
}

// Remaining returns the number of tickers still pending.
func (j *Job) Remaining() int { return len(j.pending) }

// Next dequeues the next pending ticker and marks it in flight.
func (j *Job) Next() (string, bool) {
	if len(j.pending) == 0 || j.inFlight != "" {
		return "", false
	}
	t := j.pending[0]
	j.pending = j.pending[1:]
	j.inFlight = t
	j.states[t] = InFlight
	return t, true
}

// Attempt records one fetch attempt of the in-flight ticker and returns the
// attempt number.
func (j *Job) Attempt(t string) int {
	j.mustBeActive(t)
	j.states[t] = InFlight
	j.attempts[t]++
	return j.attempts[t]
}

// Retry moves the in-flight ticker to Retrying.
func (j *Job) Retry(t string) {
	j.mustBeActive(t)
	j.states[t] = Retrying
}

// Succeed completes the in-flight ticker.
func (j *Job) Succeed(t string) {
	j.mustBeActive(t)
	j.states[t] = Success
	j.inFlight = ""
}

// Fail records the in-flight ticker as a permanent failure.
func (j *Job) Fail(t string) {
	j.mustBeActive(t)
	j.states[t] = PermanentFailure
	j.failures = append(j.failures, t)
	j.inFlight = ""
}

// State returns the state of t and whether t belongs to the job.
func (j *Job) State(t string) (State, bool) {
	s, ok := j.states[t]
	return s, ok
}

// Attempts returns how many times t has been fetched.
func (j *Job) Attempts(t string) int { return j.attempts[t] }

// Failures returns the permanently failed tickers in failure order.
func (j *Job) Failures() []string {
	return append([]string(nil), j.failures...)
}

func (j *Job) mustBeActive(t string) {
	if j.inFlight != t {
		panic(fmt.Sprintf("collector: %q is not in flight (in flight: %q)", t, j.inFlight))
	}
}
