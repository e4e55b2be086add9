// Package intro validates generated DJ intros and runs the two-candidate
// duel that decides which intro gets spoken.
package intro

import (
	"regexp"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/go-playground/validator/v10"

	"github.com/localfm/airdj/infrastructure/match"
	"github.com/localfm/airdj/internal/domain"
)

var validate = validator.New()

// ValidatorConfig holds the tunable validation bounds. The sentence maximum
// is deliberately configuration, not a constant; it has been retuned before
// and will be again.
type ValidatorConfig struct {
	// MaxSentences is the upper bound on terminal sentence boundaries.
	MaxSentences int `yaml:"max_sentences" json:"max_sentences" validate:"required,min=1,max=50"`

	// MaxChars is the upper bound on total intro length in runes.
	MaxChars int `yaml:"max_chars" json:"max_chars" validate:"required,min=100,max=10000"`
}

// DefaultValidatorConfig returns production defaults.
func DefaultValidatorConfig() ValidatorConfig {
	return ValidatorConfig{MaxSentences: 10, MaxChars: 1200}
}

// boilerplateREs match stock openers that models keep prepending no matter
// what the prompt says. Each is anchored at the start so stripping is a
// pure prefix operation.
var boilerplateREs = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*ladies and gentlemen,?\s*welcome to[^.!?]*[.!?]\s*`),
	regexp.MustCompile(`(?i)^\s*welcome (back )?to the (show|station|airwaves)[^.!?]*[.!?]\s*`),
	regexp.MustCompile(`(?i)^\s*(hey|hello|hi)( there)?,?\s*(listeners|everyone|folks|music lovers)[.!?,]+\s*`),
	regexp.MustCompile(`(?i)^\s*(sure|of course|absolutely)[,!.]?\s*here('s| is) (your|the|a)[^.!?:]*[:.!?]\s*`),
}

// leakedLineRE detects supporting-fact lines the model was told to weave
// into prose but echoed verbatim instead.
var leakedLineRE = regexp.MustCompile(`(?im)^\s*(fact|trivia)\s*:`)

// sentenceSplitRE breaks text on terminal punctuation runs.
var sentenceSplitRE = regexp.MustCompile(`[.!?]+`)

// nearDuplicateSimilarity is the Levenshtein similarity at or above which
// two sentences count as the same sentence said twice.
const nearDuplicateSimilarity = 0.85

// Validator applies the intro rules in a fixed order: boilerplate strip
// (repair), leaked facts, sentence count, length, repetition, required
// title. Malformed or empty input is rejected, never an error.
type Validator struct {
	config ValidatorConfig
}

// NewValidator creates a Validator with validated bounds.
func NewValidator(config ValidatorConfig) (*Validator, error) {
	if err := validate.Struct(config); err != nil {
		return nil, err
	}
	return &Validator{config: config}, nil
}

// Validate runs the full strict rule set for the given track.
func (v *Validator) Validate(text string, track domain.Candidate) domain.Verdict {
	return v.run(text, track, false)
}

// ValidateRelaxed loosens the required-title and length rules. Leaked facts
// and repetition stay enforced; they are hard failures, not quality
// trade-offs.
func (v *Validator) ValidateRelaxed(text string, track domain.Candidate) domain.Verdict {
	return v.run(text, track, true)
}

func (v *Validator) run(text string, track domain.Candidate, relaxed bool) domain.Verdict {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.Verdict{Status: domain.VerdictRejected, Reasons: []domain.RejectReason{domain.RejectEmptyText}}
	}

	stripped, repaired := StripBoilerplate(trimmed)
	if stripped == "" {
		return domain.Verdict{Status: domain.VerdictRejected, Reasons: []domain.RejectReason{domain.RejectEmptyText}}
	}

	var reasons []domain.RejectReason

	if leakedLineRE.MatchString(stripped) || containsFactsRegion(stripped) {
		reasons = append(reasons, domain.RejectLeakedFacts)
	}

	sentences := SplitSentences(stripped)
	if len(sentences) > v.config.MaxSentences {
		reasons = append(reasons, domain.RejectTooManySents)
	}

	if !relaxed && len([]rune(stripped)) > v.config.MaxChars {
		reasons = append(reasons, domain.RejectTooLong)
	}

	if hasRepeatedSentence(sentences) {
		reasons = append(reasons, domain.RejectRepeatedSent)
	}

	if !relaxed && !mentionsTitle(stripped, track) {
		reasons = append(reasons, domain.RejectMissingTitle)
	}

	if len(reasons) > 0 {
		return domain.Verdict{Status: domain.VerdictRejected, Reasons: reasons}
	}
	if repaired {
		return domain.Verdict{Status: domain.VerdictRepaired, Text: stripped}
	}
	return domain.Verdict{Status: domain.VerdictAccepted, Text: stripped}
}

// StripBoilerplate removes known stock openers from the start of text,
// repeatedly, until none apply. Repeated application is a fixpoint, so
// stripping twice equals stripping once. The second result reports whether
// anything was removed.
func StripBoilerplate(text string) (string, bool) {
	current := strings.TrimSpace(text)
	repaired := false
	for {
		next := current
		for _, re := range boilerplateREs {
			next = strings.TrimSpace(re.ReplaceAllString(next, ""))
		}
		if next == current {
			return current, repaired
		}
		current = next
		repaired = true
	}
}

// SplitSentences splits text at terminal punctuation and returns the
// non-empty sentences.
func SplitSentences(text string) []string {
	parts := sentenceSplitRE.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// hasRepeatedSentence reports an exact or near-duplicate sentence pair.
// Exact repeats of any length count; the Levenshtein similarity check only
// applies to sentences long enough for edit distance to be meaningful.
func hasRepeatedSentence(sentences []string) bool {
	normalized := make([]string, len(sentences))
	for i, s := range sentences {
		normalized[i] = match.NormalizeLoose(s)
	}
	for i := 0; i < len(normalized); i++ {
		for j := i + 1; j < len(normalized); j++ {
			a, b := normalized[i], normalized[j]
			if a == "" || b == "" {
				continue
			}
			if a == b {
				return true
			}
			longer := len(a)
			if len(b) > longer {
				longer = len(b)
			}
			if longer < 20 {
				continue
			}
			dist := levenshtein.ComputeDistance(a, b)
			if 1.0-float64(dist)/float64(longer) >= nearDuplicateSimilarity {
				return true
			}
		}
	}
	return false
}

// mentionsTitle checks that the track title appears in the text, tolerant
// of case and punctuation. A track with no known title (no metadata and an
// empty identity) cannot be required and passes vacuously. The artist is
// intentionally not required.
func mentionsTitle(text string, track domain.Candidate) bool {
	title := track.Title
	if title == "" {
		base := track.Base()
		if dot := strings.LastIndexByte(base, '.'); dot > 0 {
			base = base[:dot]
		}
		title = match.StripTrackNumber(base)
	}
	needle := match.NormalizeLoose(title)
	if needle == "" {
		return true
	}
	return strings.Contains(match.NormalizeLoose(text), needle)
}

// containsFactsRegion detects a structured facts block that survived
// extraction, either as a literal tag or as the prompt's details header.
func containsFactsRegion(text string) bool {
	lower := strings.ToLower(text)
	return strings.Contains(lower, "<facts") ||
		strings.Contains(lower, "</facts") ||
		strings.Contains(lower, "song details:")
}
