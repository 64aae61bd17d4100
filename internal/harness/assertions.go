package harness

import (
	"context"
	"fmt"

	"github.com/roach88/recall/internal/replay"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string // Assertion type for categorization
	Subject  string // Method or URL the assertion is about
	Expected int64
	Actual   int64
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("%s %s: expected %d, got %d", e.Type, e.Subject, e.Expected, e.Actual)
}

// evaluateAssertion returns an *AssertionError on mismatch and a plain
// error when the backend could not be read.
func (h *Harness) evaluateAssertion(ctx context.Context, a Assertion) error {
	var (
		subject string
		actual  int64
	)

	switch a.Type {
	case AssertCallCount, AssertHistoryLen:
		subject = a.Method
		history, err := replay.Read(ctx, h.env.Backend, a.Method)
		if err != nil {
			return err
		}
		actual = history.Count
		if a.Type == AssertHistoryLen {
			actual = int64(len(history.Calls))
		}
	case AssertVisits:
		subject = a.URL
		n, err := h.pages.Count(ctx, a.URL)
		if err != nil {
			return err
		}
		actual = n
	case AssertFetchCount:
		subject = a.URL
		actual = h.fetcher.Calls(a.URL)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}

	if actual != a.Count {
		return &AssertionError{Type: a.Type, Subject: subject, Expected: a.Count, Actual: actual}
	}
	return nil
}
