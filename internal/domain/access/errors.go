package access

import "errors"

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrNotEligible  = errors.New("not eligible")
)

// ValidationError marks malformed caller input. Nothing is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// BusinessError is a hard rejection from the rule engine: the request is
// structurally invalid and no record is created for it.
type BusinessError struct {
	Reason string
}

func (e *BusinessError) Error() string {
	return e.Reason
}
