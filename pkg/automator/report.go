package automator

import (
	"time"

	"github.com/entrhq/drover/pkg/instruction"
)

// Status is the terminal state of one action within a run.
type Status string

const (
	// StatusSucceeded means a generated snippet ran to completion.
	StatusSucceeded Status = "succeeded"

	// StatusFailed means the action exhausted its attempts or hit a
	// fatal failure.
	StatusFailed Status = "failed"

	// StatusSkipped means the run halted before the action was reached.
	StatusSkipped Status = "skipped"
)

// ActionRecord is the per-action entry of a run report. Failed actions stay
// in the report with their error; skipped actions record only their position.
type ActionRecord struct {
	// Index is the 1-based position of the action in the run.
	Index int `json:"index"`

	Description string `json:"description"`
	Type        string `json:"type"`
	Status      Status `json:"status"`

	// Attempts is how many generation+execution attempts were spent.
	// Zero for skipped actions.
	Attempts int `json:"attempts"`

	// Error is the terminal error text of a failed action.
	Error string `json:"error,omitempty"`

	// Snippet is the last generated code for the action.
	Snippet string `json:"snippet,omitempty"`

	// Cached is true when the snippet came from the run's cache.
	Cached bool `json:"cached,omitempty"`

	// Output is the text produced by the snippet's read operations.
	Output string `json:"output,omitempty"`

	// ScreenshotPath is set when a terminal failure captured a screenshot.
	ScreenshotPath string `json:"screenshot_path,omitempty"`

	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`

	Elapsed time.Duration `json:"elapsed"`
}

// Totals aggregate a run's records.
type Totals struct {
	Actions          int `json:"actions"`
	Succeeded        int `json:"succeeded"`
	Failed           int `json:"failed"`
	Skipped          int `json:"skipped"`
	Attempts         int `json:"attempts"`
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	CacheHits        int `json:"cache_hits"`
	CacheMisses      int `json:"cache_misses"`
}

// Report is the full outcome of one automation run.
type Report struct {
	// RunID identifies the run in logs and artifacts.
	RunID string `json:"run_id"`

	// Source names where the instructions came from (a file path, or
	// "inline" for text handed in directly).
	Source string `json:"source,omitempty"`

	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	Actions []ActionRecord `json:"actions"`

	// Halted is true when the run stopped before executing every action.
	Halted bool `json:"halted"`

	Totals Totals `json:"totals"`
}

// Succeeded reports whether every action ran to completion.
func (r *Report) Succeeded() bool {
	return !r.Halted && r.Totals.Failed == 0
}

// tally recomputes the aggregate counters from the records. Cache counters
// are filled in by the automator afterwards.
func (r *Report) tally() {
	t := Totals{Actions: len(r.Actions)}
	for _, rec := range r.Actions {
		switch rec.Status {
		case StatusSucceeded:
			t.Succeeded++
		case StatusFailed:
			t.Failed++
		case StatusSkipped:
			t.Skipped++
		}
		t.Attempts += rec.Attempts
		t.PromptTokens += rec.PromptTokens
		t.CompletionTokens += rec.CompletionTokens
	}
	r.Totals = t
}

// EventKind discriminates progress events.
type EventKind string

const (
	// EventRunStarted fires once, after parsing and before the browser
	// launches.
	EventRunStarted EventKind = "run_started"

	// EventActionStarted fires before each action executes.
	EventActionStarted EventKind = "action_started"

	// EventActionFinished fires after each action terminates, with its
	// record filled in.
	EventActionFinished EventKind = "action_finished"
)

// Event is one progress notification. Callbacks run synchronously on the
// run's goroutine, so they must not block on the run itself.
type Event struct {
	Kind  EventKind
	Index int // 1-based, zero for run-level events
	Total int

	// Action is set on action-level events.
	Action instruction.Action

	// Record is set on EventActionFinished.
	Record *ActionRecord
}

// ProgressFunc receives run progress. A nil ProgressFunc disables events.
type ProgressFunc func(Event)
