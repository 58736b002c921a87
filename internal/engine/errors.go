package engine

import (
	"errors"
	"fmt"
)

// ErrUnauthorized marks an operation attempted by an actor who is not
// allowed to perform it, such as a brigade reporting on another brigade's task.
var ErrUnauthorized = errors.New("unauthorized")

// ValidationError rejects malformed input before any state changes.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func IsValidation(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
