package harness

import (
	"fmt"
	"strings"
)

// TraceEvent records one executed flow step.
type TraceEvent struct {
	Seq    int    `json:"seq"`
	Op     string `json:"op"` // "store" | "get" | "fetch" | "advance"
	Input  string `json:"input"`
	Output string `json:"output,omitempty"`
}

// String renders the event as a transcript line.
func (e TraceEvent) String() string {
	if e.Output == "" {
		return fmt.Sprintf("%s %s", e.Op, e.Input)
	}
	return fmt.Sprintf("%s %s -> %s", e.Op, e.Input, e.Output)
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace contains the executed steps in order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Replay is the rendered Cache.store history after the flow.
	Replay string `json:"replay"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// AddTrace appends an executed step.
func (r *Result) AddTrace(op, input, output string) {
	r.Trace = append(r.Trace, TraceEvent{
		Seq:    len(r.Trace) + 1,
		Op:     op,
		Input:  input,
		Output: output,
	})
}

// Transcript renders the trace followed by a blank line and the replay.
func (r *Result) Transcript() string {
	var b strings.Builder
	for _, e := range r.Trace {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	b.WriteString(r.Replay)
	return b.String()
}
