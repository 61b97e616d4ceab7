package domain

import (
	"errors"
	"fmt"
)

// ErrSourceUnavailable marks failures talking to the issue source, as opposed
// to logic errors. Match with errors.Is.
var ErrSourceUnavailable = errors.New("issue source unavailable")

// SourceError carries the failing operation and, for HTTP failures, the status code.
type SourceError struct {
	Op     string
	Status int
	Body   string
	Err    error
}

func (e *SourceError) Error() string {
	switch {
	case e.Status > 0 && e.Err != nil:
		return fmt.Sprintf("%s: status=%d body=%s: %v", e.Op, e.Status, e.Body, e.Err)
	case e.Status > 0:
		return fmt.Sprintf("%s: status=%d body=%s", e.Op, e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + ": " + ErrSourceUnavailable.Error()
}

func (e *SourceError) Unwrap() error { return e.Err }

func (e *SourceError) Is(target error) bool { return target == ErrSourceUnavailable }
