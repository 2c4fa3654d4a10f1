package proctoring

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateSession is returned when a second active session is
	// started for the same (student, exam) pair.
	ErrDuplicateSession = errors.New("an active session already exists for this student and exam")

	// ErrSessionNotFound is returned for lookups of unknown session ids.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionNotActive is returned when an event arrives for a session
	// that has already been terminated or completed. Callers should log it
	// as a warning: it can indicate a spoofing attempt.
	ErrSessionNotActive = errors.New("session is not accepting events")
)

// ValidationError marks a malformed ingest payload. The offending event is
// dropped and the session left untouched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid event: %s %s", e.Field, e.Reason)
}
