package pipeline

import "fmt"

// Messages surfaced to uploaders. They are displayed verbatim by the API.
const (
	msgMissingHeader  = "Invalid CSV format: missing required columns"
	msgMissingFields  = "Error parsing transaction: Invalid transaction data: missing required fields"
	msgColumnNotFound = "Required column %q not found"
	msgStreamPrefix   = "CSV parsing error: "
)

// FormatError reports malformed or incomplete CSV input. The whole parse is
// abandoned when one is returned.
type FormatError struct {
	// Msg is the user-facing cause.
	Msg string
	// Line is the 1-based input line that triggered the error, 0 if unknown.
	Line int
	// Err is the underlying reader error for stream-level malformation.
	Err error
}

func (e *FormatError) Error() string {
	return e.Msg
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

func missingColumnError(name string, line int) *FormatError {
	return &FormatError{Msg: fmt.Sprintf(msgColumnNotFound, name), Line: line}
}

func streamError(err error, line int) *FormatError {
	return &FormatError{Msg: msgStreamPrefix + err.Error(), Line: line, Err: err}
}
