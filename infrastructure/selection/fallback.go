package selection

import (
	"math/rand"
	"strings"

	"github.com/localfm/airdj/internal/domain"
)

// DefaultFallbackAttempts bounds the resample loop in Fallback.
const DefaultFallbackAttempts = 5

// Fallback picks a track uniformly at random when the round failed to
// produce a winner. The pick never repeats the current track; when
// excludeArtist is set the first attempts also avoid the current artist,
// after which the artist filter is dropped rather than spinning forever.
// The attempt budget is fixed, so the session always proceeds.
func Fallback(rng *rand.Rand, current domain.Candidate, candidates []domain.Candidate, excludeArtist bool, attempts int) (domain.Candidate, error) {
	if err := domain.ValidateCandidateSet(candidates); err != nil {
		return domain.Candidate{}, err
	}
	if attempts < 1 {
		attempts = DefaultFallbackAttempts
	}

	for i := 0; i < attempts; i++ {
		pick := candidates[rng.Intn(len(candidates))]
		if pick.Equal(current) {
			continue
		}
		if excludeArtist && sameArtist(pick, current) {
			continue
		}
		return pick, nil
	}

	// Budget spent; accept anything that is not the current track.
	for _, c := range candidates {
		if !c.Equal(current) {
			return c, nil
		}
	}
	return domain.Candidate{}, domain.ErrNoSelection
}

func sameArtist(a, b domain.Candidate) bool {
	if a.Artist == "" || b.Artist == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(a.Artist), strings.TrimSpace(b.Artist))
}
