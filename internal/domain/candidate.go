// Package domain contains pure, dependency-free domain models and types
// for the radio DJ decision engine.
package domain

import (
	"path"
	"strings"
)

// Candidate represents one addressable track a selection round may resolve
// to. Its identity is a stable file path (or any unique key); the display
// metadata is optional and may be empty, in which case the identity string
// is the only matchable surface. A Candidate is immutable once constructed.
type Candidate struct {
	// Identity is the stable, unique key for this candidate, typically the
	// file path of the track.
	Identity string `json:"identity"`

	// Title is the track title, if known.
	Title string `json:"title,omitempty"`

	// Artist is the performing artist, if known.
	Artist string `json:"artist,omitempty"`

	// Album is the source album, if known.
	Album string `json:"album,omitempty"`
}

// Base returns the final path component of the candidate identity.
// For identities that are not paths, this is the identity itself.
func (c Candidate) Base() string { return path.Base(strings.TrimSpace(c.Identity)) }

// DisplayName returns a human-readable name for prompts and logs.
// It prefers "Artist - Title" when both are known and falls back to the
// identity's final path component.
func (c Candidate) DisplayName() string {
	if c.Artist != "" && c.Title != "" {
		return c.Artist + " - " + c.Title
	}
	return c.Base()
}

// Equal reports whether two candidates share the same identity.
// Display metadata does not participate in identity.
func (c Candidate) Equal(other Candidate) bool {
	return strings.EqualFold(strings.TrimSpace(c.Identity), strings.TrimSpace(other.Identity))
}

// ValidateCandidateSet checks the round invariants for a candidate
// sequence: non-empty and free of duplicate identities.
// The sequence is treated as read-only for the duration of a round.
func ValidateCandidateSet(candidates []Candidate) error {
	if len(candidates) == 0 {
		return ErrEmptyCandidateSet
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		key := strings.ToLower(strings.TrimSpace(c.Identity))
		if key == "" {
			return ErrEmptyCandidateSet
		}
		if _, dup := seen[key]; dup {
			return ErrDuplicateCandidate
		}
		seen[key] = struct{}{}
	}
	return nil
}
