package utils

import "fmt"

// AppError attaches the failing operation and a human-facing message to an
// underlying cause. It unwraps, so errors.Is/As see through it.
type AppError struct {
	Op  string // dotted operation name, e.g. "catalog.load"
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Msg
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error { return e.Err }

// NewAppError wraps err with operation context. err may be nil for errors
// that originate here.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}
