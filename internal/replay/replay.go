// Package replay reads back what a recorder captured for an operation and
// renders it in call order.
package replay

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/roach88/recall/internal/kv"
	"github.com/roach88/recall/internal/recorder"
)

// Call is one recorded invocation: the canonical argument tuple and result.
type Call struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

// History is everything recorded for one operation name.
type History struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
	Calls []Call `json:"calls"`
}

// Read loads the counter and both logs for name.
//
// A missing counter reads as zero calls. Calls holds only positions present
// in both logs, so a failed inner call (input without output) or a concurrent
// writer mid-call shortens Calls without failing the read.
func Read(ctx context.Context, backend kv.Backend, name string) (History, error) {
	h := History{Name: name, Calls: []Call{}}

	raw, found, err := backend.Get(ctx, name)
	if err != nil {
		return History{}, fmt.Errorf("read counter %s: %w", name, err)
	}
	if found {
		h.Count, err = strconv.ParseInt(string(raw), 10, 64)
		if err != nil {
			return History{}, fmt.Errorf("read counter %s: not an integer: %q", name, raw)
		}
	}

	inputs, err := backend.LRange(ctx, recorder.InputsKey(name), 0, -1)
	if err != nil {
		return History{}, fmt.Errorf("read inputs %s: %w", name, err)
	}
	outputs, err := backend.LRange(ctx, recorder.OutputsKey(name), 0, -1)
	if err != nil {
		return History{}, fmt.Errorf("read outputs %s: %w", name, err)
	}

	n := min(len(inputs), len(outputs))
	if h.Count < int64(n) {
		n = int(h.Count)
	}
	for i := 0; i < n; i++ {
		h.Calls = append(h.Calls, Call{
			Input:  string(inputs[i]),
			Output: string(outputs[i]),
		})
	}
	return h, nil
}

// Render writes the summary line followed by one line per call:
//
//	Cache.store was called 2 times:
//	Cache.store(*["foo"]) -> "key-1"
//	Cache.store(*[123]) -> "key-2"
func Render(w io.Writer, h History) error {
	if _, err := fmt.Fprintf(w, "%s was called %d times:\n", h.Name, h.Count); err != nil {
		return err
	}
	for _, c := range h.Calls {
		if _, err := fmt.Fprintf(w, "%s(*%s) -> %s\n", h.Name, c.Input, c.Output); err != nil {
			return err
		}
	}
	return nil
}

// Replay reads the history for name and renders it to w.
func Replay(ctx context.Context, backend kv.Backend, name string, w io.Writer) error {
	h, err := Read(ctx, backend, name)
	if err != nil {
		return err
	}
	return Render(w, h)
}
