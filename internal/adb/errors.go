// File: internal/adb/errors.go
package adb

import "fmt"

// ConnectionError reports a failure to establish or keep the device session.
// It is fatal for the running task once the reconnect budget is exhausted.
type ConnectionError struct {
	Address string
	Cause   error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("device connection failed (%s): %v", e.Address, e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// OperationError reports a transport-level failure of a single device command.
type OperationError struct {
	Op    string
	Cause error
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("device operation %q failed: %v", e.Op, e.Cause)
}

func (e *OperationError) Unwrap() error { return e.Cause }
