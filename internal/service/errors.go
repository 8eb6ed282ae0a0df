package service

import "fmt"

// ValidationError means the input for an operation was incomplete or malformed. Nothing was
// written.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// StateError means a transition was attempted from the wrong status. Nothing was written.
type StateError struct {
	Op       string
	Current  string
	Required string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s a request that is %s (must be %s)", e.Op, e.Current, e.Required)
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
