package requestflow

import (
	"errors"
	"fmt"
)

const (
	CodeValidation   = "validation"
	CodeNotFound     = "not_found"
	CodeInvalidState = "invalid_state"
	CodeUnavailable  = "unavailable"
	CodeInternal     = "internal"
)

// Error is a blocked precondition or failed flow action. Field names the
// input the message belongs to so a client can render it inline.
type Error struct {
	Code    string
	Field   string
	Message string
	Status  int
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func statusForCode(code string) int {
	switch code {
	case CodeValidation:
		return 400
	case CodeNotFound:
		return 404
	case CodeInvalidState:
		return 409
	case CodeUnavailable:
		return 503
	default:
		return 500
	}
}

func newError(code, field, message string) *Error {
	return &Error{
		Code:    code,
		Field:   field,
		Message: message,
		Status:  statusForCode(code),
	}
}

func NewValidationError(field, message string) error {
	return newError(CodeValidation, field, message)
}

func NewNotFoundError(field, message string) error {
	return newError(CodeNotFound, field, message)
}

func NewInternalError(message string) error {
	return newError(CodeInternal, "", message)
}

func errInvalidStep(op string, step Step) error {
	return newError(CodeInvalidState, "step", fmt.Sprintf("%s is not allowed in step %q", op, step))
}

// AsError unwraps err to a flow error, if it is one.
func AsError(err error) (*Error, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
