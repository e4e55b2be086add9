package domain

import "time"

// ModelProposal is the result of one language-model pass over a selection
// round: the raw response, the extracted choice and reason spans, and the
// candidate the choice resolved to, if any. Proposals are created per pass,
// never mutated, and discarded at the end of the round.
type ModelProposal struct {
	// Model identifies which model produced this proposal.
	Model string `json:"model"`

	// Raw is the unmodified model response text.
	Raw string `json:"raw"`

	// Choice is the extracted choice span, possibly empty when the
	// response was unparseable.
	Choice string `json:"choice"`

	// Reason is the extracted justification span; may be empty.
	Reason string `json:"reason"`

	// Resolved is the candidate the choice matched, or nil when no
	// candidate in the round's set matched.
	Resolved *Candidate `json:"resolved,omitempty"`
}

// IsResolved reports whether this pass contributed a usable candidate.
// Oracle failures, parse failures, and match failures all surface as an
// unresolved proposal rather than an error.
func (p ModelProposal) IsResolved() bool { return p.Resolved != nil }

// SelectionResult is the outcome of a full selection round.
// The winner, when present, is always a member of the candidate set the
// round was given; a model answer that matches nothing never becomes a
// winner.
type SelectionResult struct {
	// RoundID uniquely identifies the selection round (a UUID).
	RoundID string `json:"round_id"`

	// Winner is the selected candidate. It is nil only on the failure
	// path, in which case the caller applies its own fallback policy.
	Winner *Candidate `json:"winner,omitempty"`

	// Reason is the deciding justification text, taken from the agreeing
	// pass or from the referee.
	Reason string `json:"reason"`

	// RefereeUsed indicates whether a referee call was needed to break a
	// disagreement between the two passes.
	RefereeUsed bool `json:"referee_used"`

	// Proposals carries the per-pass results for history and debugging.
	Proposals []ModelProposal `json:"proposals,omitempty"`

	// Timestamp records when the round completed.
	Timestamp time.Time `json:"timestamp"`
}
