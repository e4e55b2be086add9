package domain

// VerdictStatus is the categorical outcome of validating one intro text.
type VerdictStatus string

const (
	// VerdictAccepted means the text satisfied every active rule as given.
	VerdictAccepted VerdictStatus = "accepted"

	// VerdictRepaired means the text satisfied every active rule after one
	// or more repair rules (boilerplate stripping) modified it. Downstream
	// callers distinguish this from a clean accept so repairs can be logged.
	VerdictRepaired VerdictStatus = "accepted_after_repair"

	// VerdictRejected means at least one rejecting rule fired. Partial
	// passes do not exist: accepted text satisfies all active rules
	// simultaneously.
	VerdictRejected VerdictStatus = "rejected"
)

// RejectReason identifies the specific validation rule that rejected an
// intro. A verdict may carry several when multiple rules fired.
type RejectReason string

const (
	RejectEmptyText    RejectReason = "empty_text"
	RejectLeakedFacts  RejectReason = "leaked_facts_section"
	RejectTooManySents RejectReason = "sentence_count_exceeded"
	RejectTooLong      RejectReason = "length_exceeded"
	RejectRepeatedSent RejectReason = "repeated_sentence"
	RejectMissingTitle RejectReason = "missing_title"
)

// Verdict is the Intro Validator's result: exactly one status, the
// (possibly repaired) text when accepted, and the rules that fired when
// rejected.
type Verdict struct {
	Status VerdictStatus `json:"status"`

	// Text is the accepted text, after any repairs. Empty on rejection.
	Text string `json:"text,omitempty"`

	// Reasons lists the rejecting rules that fired. Empty unless Status
	// is VerdictRejected.
	Reasons []RejectReason `json:"reasons,omitempty"`
}

// Accepted reports whether the text may flow downstream, with or without
// repair.
func (v Verdict) Accepted() bool {
	return v.Status == VerdictAccepted || v.Status == VerdictRepaired
}

// IntroCandidate is one generated intro text together with its validation
// verdict and the model that produced it. Two are created per duel round;
// at most one survives.
type IntroCandidate struct {
	// Text is the generated intro as extracted from the model response.
	Text string `json:"text"`

	// Model identifies the originating model.
	Model string `json:"model"`

	// Verdict is the validation outcome for Text.
	Verdict Verdict `json:"verdict"`
}

// TrackContext carries the metadata the intro pipeline needs about the
// track being introduced. Supplied by the metadata collaborator; the core
// never looks at audio files itself.
type TrackContext struct {
	// Track is the track being introduced.
	Track Candidate `json:"track"`

	// PreviousTitle names the previously played track, if any, so the
	// intro can reference the transition. Empty for the first track.
	PreviousTitle string `json:"previous_title,omitempty"`

	// Facts is optional supporting prose (biography, trivia) for the
	// prompt. It must never leak verbatim into the spoken intro.
	Facts string `json:"facts,omitempty"`
}
