package dispatch

// Code is a user-visible error code returned in a failed envelope.
type Code string

const (
	CodeInvalidOperation Code = "INVALID_OPERATION"
	CodeMappingError     Code = "MAPPING_ERROR"
	CodeServerUnavailable Code = "SERVER_UNAVAILABLE"
	CodeExecutionError   Code = "EXECUTION_ERROR"
	CodeTimeoutError     Code = "TIMEOUT_ERROR"
	CodeValidationError  Code = "VALIDATION_ERROR"
	CodeInternalError    Code = "INTERNAL_ERROR"
)

// Error pairs a user-visible Code with the underlying message.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Message }
