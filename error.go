package forge

import (
	"fmt"
	"runtime/debug"
)

// ErrorMode controls how a panic recovered from a handler is shaped into a
// response. The zero value is ErrorModeHide.
type ErrorMode int

const (
	// ErrorModeHide emits a generic "Internal Server Error" body, hiding
	// the panic value entirely. Default.
	ErrorModeHide ErrorMode = iota
	// ErrorModeType emits the panic value's Go type name.
	ErrorModeType
	// ErrorModeShort emits the panic value's fmt.Sprint representation.
	ErrorModeShort
	// ErrorModeTraceback emits the short representation plus a full stack
	// trace captured at recovery time.
	ErrorModeTraceback
)

// String implements fmt.Stringer.
func (m ErrorMode) String() string {
	switch m {
	case ErrorModeType:
		return "type"
	case ErrorModeShort:
		return "short"
	case ErrorModeTraceback:
		return "traceback"
	default:
		return "hide"
	}
}

// ParseErrorMode maps a registration-time string to an ErrorMode, falling
// back to ErrorModeHide for anything unrecognized.
func ParseErrorMode(s string) ErrorMode {
	switch s {
	case "type":
		return ErrorModeType
	case "short":
		return ErrorModeShort
	case "traceback":
		return ErrorModeTraceback
	default:
		return ErrorModeHide
	}
}

// Error is the status/message pair that shapePanic produces. ResponseError
// and ResponseFromAny serialize it as JSON; the server itself writes
// recovered panics, returned errors, and protocol failures as text/plain.
type Error struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

func (e *Error) Error() string {
	return e.Message
}

// shapePanic turns a recovered panic value into an Error body per the
// handler's error mode. typeName identifies the panic value's
// dynamic type for ErrorModeType.
func shapePanic(mode ErrorMode, recovered any, typeName string) *Error {
	switch mode {
	case ErrorModeType:
		return &Error{Status: StatusInternalServerError, Message: typeName}
	case ErrorModeShort:
		return &Error{Status: StatusInternalServerError, Message: fmt.Sprint(recovered)}
	case ErrorModeTraceback:
		return &Error{
			Status:  StatusInternalServerError,
			Message: fmt.Sprintf("%v\n%s", recovered, debug.Stack()),
		}
	default:
		return &Error{Status: StatusInternalServerError, Message: StatusText(StatusInternalServerError)}
	}
}
