package domain

import "errors"

// Sentinel errors for the decision engine. Callers branch on these with
// errors.Is; none of them is used for ordinary control flow such as a
// single pass failing to resolve.
var (
	// ErrEmptyCandidateSet indicates a selection round was given no usable
	// candidates.
	ErrEmptyCandidateSet = errors.New("candidate set is empty")

	// ErrDuplicateCandidate indicates the candidate set violates the
	// unique-identity invariant.
	ErrDuplicateCandidate = errors.New("duplicate candidate identity")

	// ErrNoSelection indicates neither selection pass resolved to a
	// candidate; the caller performs its bounded random fallback.
	ErrNoSelection = errors.New("no selection: neither pass resolved a candidate")

	// ErrRefereeIndeterminate indicates the referee's declared winner could
	// not be normalized to either of its two inputs. Treated as a failed
	// round, never as a tie or a default to the first option.
	ErrRefereeIndeterminate = errors.New("referee winner matched neither option")

	// ErrNoIntro indicates both intro candidates failed validation even
	// after the relaxed pass; the session proceeds without a spoken intro.
	ErrNoIntro = errors.New("no intro candidate passed validation")

	// ErrExhausted indicates all bounded attempts for an operation were
	// consumed without an accepted result. This is the only condition that
	// propagates to the orchestrator as terminal for the round.
	ErrExhausted = errors.New("attempt budget exhausted")
)
