package contract

// Status is the outcome of a dispatch. It is part of the behaviour observed by
// consensus, thus it must be computed deterministically.
type Status int

const (
	// StatusOK means the handler completed successfully.
	StatusOK Status = iota
	// StatusFailed means the handler rejected the request.
	StatusFailed
	// StatusPermissionDenied means the originator is not allowed to perform
	// the action.
	StatusPermissionDenied
	// StatusNotFound means no handler is registered under the requested name.
	StatusNotFound
)

var statusNames = map[Status]string{
	StatusOK:               "OK",
	StatusFailed:           "FAILED",
	StatusPermissionDenied: "PERMISSION_DENIED",
	StatusNotFound:         "NOT_FOUND",
}

// String implements fmt.Stringer.
func (s Status) String() string {
	name, found := statusNames[s]
	if !found {
		return "UNKNOWN"
	}

	return name
}

// Result is the outcome of an initialisation or a transaction dispatch.
type Result struct {
	Status Status

	// ReturnValue is an optional value the handler can give back to the
	// caller.
	ReturnValue int64

	// Message gives a chance to the handler to explain a failure.
	Message string
}

// NewResult returns a result with the given status.
func NewResult(status Status) Result {
	return Result{Status: status}
}

// Failf returns a failed result with the message.
func Failf(status Status, msg string) Result {
	return Result{
		Status:  status,
		Message: msg,
	}
}
