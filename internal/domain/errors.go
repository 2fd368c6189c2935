package domain

import "fmt"

// ValidationError reports a malformed export submission. It is raised
// synchronously, before any task record is created, and maps to an HTTP 400
// at the API boundary.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}
