package application

import "errors"

var (
	// ErrUnauthorized is returned when the acting user is not the owner of the
	// resource or carries no valid authentication. Ownership mismatches and
	// credential mismatches intentionally share this sentinel; the HTTP layer
	// maps all of them to 401.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrNotFound is returned when the requested resource does not exist or is
	// filtered out as deleted.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExists is returned when a unique field collides, e.g. a signup
	// with a taken email.
	ErrAlreadyExists = errors.New("application: already exists")
	// ErrConflict is returned when an operation contradicts the resource's
	// current lifecycle state, e.g. restoring a schedule that is active.
	ErrConflict = errors.New("application: conflict")
	// ErrInvalidCredentials is returned when a supplied password does not
	// match the stored digest.
	ErrInvalidCredentials = errors.New("application: invalid credentials")
	// ErrSessionExpired is returned when a session token resolves to a record
	// whose expiry has passed.
	ErrSessionExpired = errors.New("application: session expired")
)

// ValidationError captures field level validation issues that callers can surface to users.
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
