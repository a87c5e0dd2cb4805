// Package continuity provides small error-aggregation helpers used when
// opening or tearing down a store's several file handles.
package continuity

import "strings"

// ErrList joins multiple errors into one, for the case where a partial
// teardown fails at more than one handle.
type ErrList []error

func (e ErrList) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return "multiple errors: " + strings.Join(msgs, ", ")
}

// Sequence runs a chain of fallible setup steps, stopping at the first
// failure. Intended for Open()-style construction, where a later step
// must never run once an earlier one has failed.
type Sequence struct {
	failedAt ErrList
}

// NewSequence starts a new step chain.
func NewSequence() *Sequence {
	return new(Sequence)
}

// Step runs f unless a previous step already failed.
func (s *Sequence) Step(f func() error) *Sequence {
	if len(s.failedAt) > 0 {
		return s
	}
	if err := f(); err != nil {
		s.failedAt = append(s.failedAt, err)
	}
	return s
}

// Err returns the first error encountered, if any.
func (s *Sequence) Err() error {
	if len(s.failedAt) == 0 {
		return nil
	}
	return s.failedAt[0]
}

// CloseAll calls every closer regardless of earlier failures and returns
// every non-nil error it collected. Used to tear down a store's several
// file handles without letting one failed Close mask another.
func CloseAll(closers ...func() error) error {
	var errs ErrList
	for _, c := range closers {
		if c == nil {
			continue
		}
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}
