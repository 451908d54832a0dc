// File: internal/brain/errors.go
package brain

import "fmt"

// DecisionError reports that the backend kept producing non-conformant
// output after every allowed repair attempt.
type DecisionError struct {
	Attempts int
	LastErr  error
}

func (e *DecisionError) Error() string {
	return fmt.Sprintf("backend produced no valid action after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *DecisionError) Unwrap() error { return e.LastErr }

// BackendError reports that the reasoning backend itself was unreachable
// after the transport layer exhausted its retries.
type BackendError struct {
	Provider string
	Cause    error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("reasoning backend (%s) unavailable: %v", e.Provider, e.Cause)
}

func (e *BackendError) Unwrap() error { return e.Cause }
