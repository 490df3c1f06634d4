package harness

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/roach88/nmlc/internal/engine"
	"github.com/roach88/nmlc/internal/testutil"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Expectation being checked
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Trace    []string // Sink events for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nSink trace:\n")
		for i, event := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, event)
		}
	}

	return buf.String()
}

func assertStatus(result *Result, want string) error {
	if result.Status.String() == want {
		return nil
	}
	actual := result.Status.String()
	if result.Err != nil {
		actual += " (" + result.Err.Error() + ")"
	}
	return &AssertionError{Type: "status", Expected: want, Actual: actual, Trace: result.Trace}
}

func assertLength(result *Result, want *int) error {
	if want == nil || result.Length == *want {
		return nil
	}
	return &AssertionError{
		Type:     "length",
		Expected: fmt.Sprintf("%d", *want),
		Actual:   fmt.Sprintf("%d", result.Length),
		Trace:    result.Trace,
	}
}

func assertHeader(result *Result, want *bool) error {
	if want == nil || result.Header == *want {
		return nil
	}
	return &AssertionError{
		Type:     "header",
		Expected: fmt.Sprintf("%t", *want),
		Actual:   fmt.Sprintf("%t", result.Header),
	}
}

// assertSequence compares a full expected sequence; nil means unchecked.
func assertSequence(typ string, actual, want []string) error {
	if want == nil || slicesEqual(actual, want) {
		return nil
	}
	return &AssertionError{
		Type:     typ,
		Expected: fmt.Sprintf("%q", want),
		Actual:   fmt.Sprintf("%q", actual),
	}
}

func assertErrorContains(result *Result, want string) error {
	if want == "" {
		return nil
	}
	if result.Err != nil && strings.Contains(result.Err.Error(), want) {
		return nil
	}
	actual := "no error"
	if result.Err != nil {
		actual = result.Err.Error()
	}
	return &AssertionError{
		Type:     "error_contains",
		Expected: fmt.Sprintf("error containing %q", want),
		Actual:   actual,
	}
}

// assertSinksConsistent checks that every recorder saw the same records and
// was released according to the outcome.
func assertSinksConsistent(result *Result, recorders []*testutil.RecordingSink) error {
	if len(recorders) == 0 {
		return nil
	}
	first := recorders[0]
	for _, r := range recorders[1:] {
		if !reflect.DeepEqual(first.Records, r.Records) {
			return &AssertionError{
				Type:     "sink_consistency",
				Expected: fmt.Sprintf("%s receives the same records as %s", r.Name(), first.Name()),
				Actual:   fmt.Sprintf("%q vs %q", first.Labels(), r.Labels()),
				Trace:    result.Trace,
			}
		}
	}

	for _, r := range recorders {
		if result.Status == engine.StatusSuccess {
			if !r.Closed || r.Discarded || len(r.Records) != result.Length {
				return &AssertionError{
					Type:     "sink_release",
					Expected: fmt.Sprintf("%s closed with %d records", r.Name(), result.Length),
					Actual:   fmt.Sprintf("closed=%t discarded=%t records=%d", r.Closed, r.Discarded, len(r.Records)),
					Trace:    result.Trace,
				}
			}
			continue
		}
		if r.Closed || len(r.Records) != 0 {
			return &AssertionError{
				Type:     "sink_release",
				Expected: fmt.Sprintf("%s discarded without records after %s", r.Name(), result.Status),
				Actual:   fmt.Sprintf("closed=%t records=%d", r.Closed, len(r.Records)),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

// EvaluateExpectations runs the built-in checks and the scenario
// expectations and returns the failure messages.
func EvaluateExpectations(result *Result, expect Expectation, recorders []*testutil.RecordingSink) []string {
	checks := []error{
		assertSinksConsistent(result, recorders),
		assertStatus(result, expect.Status),
		assertLength(result, expect.Length),
		assertHeader(result, expect.Header),
		assertSequence("kinds", result.Kinds, expect.Kinds),
		assertSequence("labels", result.Labels, expect.Labels),
		assertErrorContains(result, expect.ErrorContains),
	}

	var errs []string
	for _, err := range checks {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func slicesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
