package kv

import "errors"

// Failure taxonomy shared by every backend and ingress surface.
// Callers match with errors.Is; backends wrap the underlying cause.
var (
	// ErrNotFound is returned when a key is absent for get or delete.
	ErrNotFound = errors.New("key not found")
	// ErrBackendUnavailable is returned when the backend is unreachable or
	// reports a failed write.
	ErrBackendUnavailable = errors.New("backend unavailable")
	// ErrMalformed is returned when an inbound request cannot be turned
	// into a valid Operation.
	ErrMalformed = errors.New("malformed request")
)

// ErrorKind classifies an error into the taxonomy above.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNotFound
	KindBackendUnavailable
	KindMalformed
)

// String returns the string representation of ErrorKind
func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNotFound:
		return "not_found"
	case KindBackendUnavailable:
		return "backend_unavailable"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Classify returns the kind of err. Errors outside the taxonomy are
// reported as KindBackendUnavailable.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrMalformed):
		return KindMalformed
	default:
		return KindBackendUnavailable
	}
}

// IsNotFound reports whether err wraps ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
