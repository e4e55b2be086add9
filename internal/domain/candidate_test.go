package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCandidateBase(t *testing.T) {
	assert.Equal(t, "02 - Second Song.mp3", Candidate{Identity: "/music/02 - Second Song.mp3"}.Base())
	assert.Equal(t, "plain-key", Candidate{Identity: "plain-key"}.Base())
}

func TestCandidateDisplayName(t *testing.T) {
	full := Candidate{Identity: "/m/x.mp3", Title: "Neon Lights", Artist: "The Valves"}
	assert.Equal(t, "The Valves - Neon Lights", full.DisplayName())

	bare := Candidate{Identity: "/m/02 - x.mp3", Title: "Neon Lights"}
	assert.Equal(t, "02 - x.mp3", bare.DisplayName())
}

func TestCandidateEqual(t *testing.T) {
	a := Candidate{Identity: "/m/x.mp3", Title: "one"}
	b := Candidate{Identity: "/M/X.MP3", Title: "two"}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(Candidate{Identity: "/m/y.mp3"}))
}

func TestValidateCandidateSet(t *testing.T) {
	tests := []struct {
		name       string
		candidates []Candidate
		wantErr    error
	}{
		{
			name:    "empty set",
			wantErr: ErrEmptyCandidateSet,
		},
		{
			name:       "blank identity",
			candidates: []Candidate{{Identity: "  "}},
			wantErr:    ErrEmptyCandidateSet,
		},
		{
			name:       "duplicate identity ignoring case",
			candidates: []Candidate{{Identity: "a.mp3"}, {Identity: "A.mp3"}},
			wantErr:    ErrDuplicateCandidate,
		},
		{
			name:       "valid",
			candidates: []Candidate{{Identity: "a.mp3"}, {Identity: "b.mp3"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCandidateSet(tt.candidates)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVerdictAccepted(t *testing.T) {
	assert.True(t, Verdict{Status: VerdictAccepted}.Accepted())
	assert.True(t, Verdict{Status: VerdictRepaired}.Accepted())
	assert.False(t, Verdict{Status: VerdictRejected}.Accepted())
}

func TestModelProposalIsResolved(t *testing.T) {
	assert.False(t, ModelProposal{}.IsResolved())
	c := Candidate{Identity: "a.mp3"}
	assert.True(t, ModelProposal{Resolved: &c}.IsResolved())
}
