package orchestrator

import (
	"errors"
	"fmt"
	"strings"

	"GoModelRouter/pkg/generation"
)

var (
	// ErrExhausted is matched by every error Generate returns after the
	// ordering ran out or the policy stopped the loop.
	ErrExhausted = errors.New("all candidates failed")
	// ErrAborted additionally marks loops stopped early by the policy.
	ErrAborted = errors.New("generation aborted")
)

// AttemptFailure is one failed attempt inside a Generate call.
type AttemptFailure struct {
	Candidate string
	Reason    generation.Reason
	Err       error
}

// ExhaustedError lists every failed attempt of a Generate call.
type ExhaustedError struct {
	Attempts []AttemptFailure
	Aborted  bool
}

func (e *ExhaustedError) Error() string {
	var b strings.Builder
	if e.Aborted {
		b.WriteString("generation aborted")
	} else {
		b.WriteString(ErrExhausted.Error())
	}
	fmt.Fprintf(&b, " after %d attempt(s)", len(e.Attempts))
	if n := len(e.Attempts); n > 0 {
		last := e.Attempts[n-1]
		fmt.Fprintf(&b, ", last %s: %v", last.Candidate, last.Err)
	}
	return b.String()
}

func (e *ExhaustedError) Is(target error) bool {
	return target == ErrExhausted || (e.Aborted && target == ErrAborted)
}

// Reasons counts failures by reason.
func (e *ExhaustedError) Reasons() map[generation.Reason]int {
	out := make(map[generation.Reason]int, len(e.Attempts))
	for _, a := range e.Attempts {
		out[a.Reason]++
	}
	return out
}
