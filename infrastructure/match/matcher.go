// Package match maps a free-text model answer back to exactly one member of
// a finite candidate set. Matching is a tiered, fully deterministic
// normalization pipeline, not fuzzy scoring: every tier either yields
// exactly one candidate or falls through, and no tier ever guesses among
// multiple plausible candidates.
package match

import (
	"path"
	"regexp"
	"strings"

	"golang.org/x/text/cases"

	"github.com/localfm/airdj/internal/domain"
)

// foldCaser is a package-level Unicode case folder; matching is always
// case-insensitive.
var foldCaser = cases.Fold()

// trackNumberRE strips a leading numeric track token such as "03 - ",
// "03. ", "03) " or "03_" from an answer or candidate identity.
var trackNumberRE = regexp.MustCompile(`^\s*[0-9]{1,3}(\s*[-._)]\s*|\s+)`)

// punctRE collapses punctuation runs to single spaces for the loose
// containment tier.
var punctRE = regexp.MustCompile(`[^\p{L}\p{N}]+`)

// Match resolves answer to exactly one candidate, or reports no match.
// Tiers run in fixed priority order, stopping at the first that yields
// exactly one candidate:
//
//  1. exact identity, case-insensitive;
//  2. exact after stripping a leading numeric track token from both sides;
//  3. exact against the final path component only;
//  4. loose containment with punctuation collapsed to spaces.
//
// Higher tiers have zero ambiguity risk; lower tiers trade precision for
// recall only when precision fails. The returned candidate is always a
// member of candidates, for any input text.
func Match(answer string, candidates []domain.Candidate) (domain.Candidate, bool) {
	answer = strings.TrimSpace(answer)
	if answer == "" || len(candidates) == 0 {
		return domain.Candidate{}, false
	}

	tiers := []func(string, domain.Candidate) bool{
		matchExact,
		matchStrippedNumber,
		matchBaseName,
		matchContainment,
	}

	for _, tier := range tiers {
		if c, ok := uniqueHit(answer, candidates, tier); ok {
			return c, true
		}
	}
	return domain.Candidate{}, false
}

// uniqueHit applies one tier across the whole set and returns a candidate
// only when the tier fired for exactly one of them.
func uniqueHit(answer string, candidates []domain.Candidate, tier func(string, domain.Candidate) bool) (domain.Candidate, bool) {
	var hit domain.Candidate
	count := 0
	for _, c := range candidates {
		if tier(answer, c) {
			hit = c
			count++
			if count > 1 {
				return domain.Candidate{}, false
			}
		}
	}
	return hit, count == 1
}

func matchExact(answer string, c domain.Candidate) bool {
	return fold(answer) == fold(c.Identity)
}

func matchStrippedNumber(answer string, c domain.Candidate) bool {
	a := StripTrackNumber(answer)
	id := StripTrackNumber(c.Identity)
	base := StripTrackNumber(c.Base())
	return fold(a) == fold(id) || fold(a) == fold(base)
}

func matchBaseName(answer string, c domain.Candidate) bool {
	return fold(path.Base(answer)) == fold(c.Base())
}

// matchContainment is the lowest-precision tier: the candidate's normalized
// identity (or base name, with or without its extension and track number)
// appears inside the normalized answer, or the answer names a distinctive
// fragment of exactly one candidate.
func matchContainment(answer string, c domain.Candidate) bool {
	ans := NormalizeLoose(answer)
	if ans == "" {
		return false
	}
	for _, surface := range candidateSurfaces(c) {
		if surface == "" {
			continue
		}
		if strings.Contains(ans, surface) || strings.Contains(surface, ans) {
			return true
		}
	}
	return false
}

// candidateSurfaces enumerates the normalized strings a candidate can be
// recognized by: full identity, base name, and the base with the track
// number and extension stripped.
func candidateSurfaces(c domain.Candidate) []string {
	base := c.Base()
	bare := StripTrackNumber(strings.TrimSuffix(base, path.Ext(base)))
	return []string{
		NormalizeLoose(c.Identity),
		NormalizeLoose(base),
		NormalizeLoose(bare),
	}
}

// StripTrackNumber removes a leading numeric track token ("03 - ", "03. ",
// "03_") from s, if present.
func StripTrackNumber(s string) string {
	return strings.TrimSpace(trackNumberRE.ReplaceAllString(strings.TrimSpace(s), ""))
}

// NormalizeLoose lowercases s and collapses every punctuation run to a
// single space, the shared normalization for containment matching here and
// in referee winner resolution.
func NormalizeLoose(s string) string {
	return strings.TrimSpace(punctRE.ReplaceAllString(foldCaser.String(s), " "))
}

func fold(s string) string {
	return foldCaser.String(strings.TrimSpace(s))
}
