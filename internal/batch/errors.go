package batch

import "fmt"

// ExecutionError wraps a panic recovered from inside a batch operation. Its
// message is the recovered value prefixed with "operation panicked: ";
// dispatchers map it to a user-visible EXECUTION_ERROR code.
type ExecutionError struct {
	Recovered any
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("operation panicked: %v", e.Recovered)
}
