package permission

import "fmt"

// Reason names why an evaluation denied.
type Reason string

const (
	ReasonBlacklistedUser    Reason = "blacklisted user"
	ReasonBlacklistedChannel Reason = "blacklisted channel"
	ReasonNoPermission       Reason = "no permission"
	ReasonTooFewArgs         Reason = "too few arguments"
	ReasonTooManyArgs        Reason = "too many arguments"
)

// Message is the text shown to the actor for r.
func (r Reason) Message() string {
	switch r {
	case ReasonBlacklistedUser:
		return "You have been blocked from this command"
	case ReasonNoPermission:
		return "You do not have permission to use this"
	case ReasonTooFewArgs:
		return "There is not enough arguments"
	case ReasonTooManyArgs:
		return "There are too many arguments"
	default:
		return ""
	}
}

// Validation reports whether r is an argument count failure rather than an
// access failure.
func (r Reason) Validation() bool {
	return r == ReasonTooFewArgs || r == ReasonTooManyArgs
}

// Decision is the outcome of Policy.Evaluate.
type Decision struct {
	Allowed bool
	Reason  Reason
	// Silent denials produce no response at all.
	Silent bool
}

func deny(r Reason) Decision {
	return Decision{Reason: r, Silent: r == ReasonBlacklistedChannel}
}

// Err converts a denial into a DeniedError or ValidationError, or nil when allowed.
func (d Decision) Err() error {
	switch {
	case d.Allowed:
		return nil
	case d.Reason.Validation():
		return &ValidationError{Reason: d.Reason}
	default:
		return &DeniedError{Reason: d.Reason, Silent: d.Silent}
	}
}

// DeniedError is returned when the actor may not use a command.
type DeniedError struct {
	Reason Reason
	Silent bool
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("permission denied: %s", e.Reason)
}

// ValidationError is returned when the argument count is out of bounds.
type ValidationError struct {
	Reason Reason
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid arguments: %s", e.Reason)
}
