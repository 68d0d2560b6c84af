package application

import "errors"

var (
	// ErrNotFound is returned when the requested event does not exist.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when an insert collides with an existing
	// id or slug.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrUnknownFilter is returned when choices are requested for a filter
	// that does not enumerate any.
	ErrUnknownFilter = errors.New("application: unknown filter")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
