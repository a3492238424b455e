package delta

import (
	"errors"
	"fmt"
)

// ErrMalformedDelta is matched by every *MalformedDeltaError.
var ErrMalformedDelta = errors.New("malformed delta")

// MalformedDeltaError describes why a delta could not be parsed or composed.
type MalformedDeltaError struct {
	Op     int // index of the offending step, -1 when not step specific
	Reason string
}

func (e *MalformedDeltaError) Error() string {
	if e.Op < 0 {
		return fmt.Sprintf("malformed delta: %s", e.Reason)
	}
	return fmt.Sprintf("malformed delta: op %d: %s", e.Op, e.Reason)
}

// Is reports ErrMalformedDelta as a match.
func (e *MalformedDeltaError) Is(target error) bool {
	return target == ErrMalformedDelta
}

func malformed(op int, format string, args ...any) error {
	return &MalformedDeltaError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
