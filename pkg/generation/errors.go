package generation

import (
	"context"
	"errors"
	"fmt"
)

// Reason classifies why an attempt failed.
type Reason string

const (
	ReasonUnknown   Reason = "unknown"
	ReasonAuth      Reason = "auth"      // account-wide credential problem
	ReasonQuota     Reason = "quota"     // rate limit or exhausted credits
	ReasonTransient Reason = "transient" // network, timeout, 5xx, model loading
	ReasonMalformed Reason = "malformed" // response could not be used
	ReasonCanceled  Reason = "canceled"  // the caller went away
	ReasonThrottled Reason = "throttled" // local pacing gave up, the candidate was never called
)

// Error is a failed attempt against one candidate.
type Error struct {
	Reason     Reason
	Candidate  string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: %s failure (status %d): %v", e.Candidate, e.Reason, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: %s failure: %v", e.Candidate, e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// ReasonOf extracts the failure reason from err. Untagged errors are
// classified from context errors where possible, else ReasonUnknown.
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	var gerr *Error
	if errors.As(err, &gerr) && gerr.Reason != "" {
		return gerr.Reason
	}
	switch {
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTransient
	}
	return ReasonUnknown
}
