package ports

import (
	"context"

	"github.com/localfm/airdj/internal/domain"
)

// CandidateSampler supplies the finite candidate sequence for a selection
// round. Inclusion and exclusion policy (no immediate artist repeat,
// sample size) belongs to the sampler, not to the engine.
type CandidateSampler interface {
	// Sample returns a non-empty, duplicate-free candidate set for the
	// round following current. It never includes current itself.
	Sample(current domain.Candidate, n int) ([]domain.Candidate, error)
}

// MetadataSource supplies supporting prose about a track for prompt
// construction. Lookups are best-effort; an error simply means the intro
// prompt falls back to bare track metadata.
type MetadataSource interface {
	Facts(ctx context.Context, track domain.Candidate) (string, error)
}

// HistorySink records played tracks and the intros that preceded them.
// Passing the sink explicitly keeps the engine free of process-wide state.
type HistorySink interface {
	Record(track domain.Candidate, intro string) error
}

// Speaker renders intro text as audio. Synthesis, tempo adjustment, and
// temp-file lifecycle are collaborator concerns.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Player plays one track and returns when playback finishes or ctx is
// cancelled.
type Player interface {
	Play(ctx context.Context, track domain.Candidate) error
}
