package orchestrator

import "GoModelRouter/pkg/generation"

// Action is what the loop does after a failed attempt.
type Action int

const (
	// Next records the failure against the candidate and tries the next one.
	Next Action = iota
	// Skip tries the next candidate without penalizing this one.
	Skip
	// Abort stops the loop without penalizing the candidate.
	Abort
)

func (a Action) String() string {
	switch a {
	case Next:
		return "next"
	case Skip:
		return "skip"
	case Abort:
		return "abort"
	}
	return "unknown"
}

// Policy maps failure reasons to actions. Reasons missing from the map
// use Next.
type Policy map[generation.Reason]Action

// DefaultPolicy penalizes and moves on for every failure except local
// throttling, which never reached the candidate.
func DefaultPolicy() Policy {
	return Policy{generation.ReasonThrottled: Skip}
}

// AbortOnAuthPolicy stops at the first credential failure, since every
// other candidate behind the same router would fail the same way.
func AbortOnAuthPolicy() Policy {
	p := DefaultPolicy()
	p[generation.ReasonAuth] = Abort
	return p
}

// Decide returns the action for reason.
func (p Policy) Decide(reason generation.Reason) Action {
	if a, ok := p[reason]; ok {
		return a
	}
	return Next
}
