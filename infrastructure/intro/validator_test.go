package intro

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localfm/airdj/internal/domain"
)

var testTrack = domain.Candidate{
	Identity: "02 - Neon Lights.mp3",
	Title:    "Neon Lights",
	Artist:   "The Valves",
}

// distinctSentences is a pool of sentences that are pairwise dissimilar,
// so sentence-count tests do not trip the repetition rule. The first one
// names the track.
var distinctSentences = []string{
	"Here comes Neon Lights by The Valves.",
	"The band formed in a tiny garage.",
	"Critics called the record fearless.",
	"You might recognize the opening synth riff.",
	"It topped the charts for three weeks.",
	"The drummer once toured with a jazz trio.",
	"Fans still argue about the lyrics.",
	"The album cover glows in the dark.",
	"Radio stations could not get enough of it.",
	"Turn the volume up for this one.",
	"The bassline was recorded in a single take.",
	"Nobody expected the quiet bridge.",
}

func introOfSentences(n int) string {
	return strings.Join(distinctSentences[:n], " ")
}

func newValidator(t *testing.T, config ValidatorConfig) *Validator {
	t.Helper()
	v, err := NewValidator(config)
	require.NoError(t, err)
	return v
}

func TestNewValidator(t *testing.T) {
	_, err := NewValidator(ValidatorConfig{MaxSentences: 0, MaxChars: 1200})
	assert.Error(t, err)

	_, err = NewValidator(DefaultValidatorConfig())
	assert.NoError(t, err)
}

func TestValidateAccepts(t *testing.T) {
	v := newValidator(t, DefaultValidatorConfig())

	verdict := v.Validate(introOfSentences(4), testTrack)
	assert.Equal(t, domain.VerdictAccepted, verdict.Status)
	assert.True(t, verdict.Accepted())
	assert.Equal(t, introOfSentences(4), verdict.Text)
	assert.Empty(t, verdict.Reasons)
}

func TestValidateEmptyText(t *testing.T) {
	v := newValidator(t, DefaultValidatorConfig())

	for _, text := range []string{"", "   ", "\n\t"} {
		verdict := v.Validate(text, testTrack)
		assert.Equal(t, domain.VerdictRejected, verdict.Status)
		assert.Contains(t, verdict.Reasons, domain.RejectEmptyText)
	}
}

func TestValidateSentenceBoundary(t *testing.T) {
	v := newValidator(t, ValidatorConfig{MaxSentences: 10, MaxChars: 2000})

	t.Run("exactly at the maximum is accepted", func(t *testing.T) {
		verdict := v.Validate(introOfSentences(10), testTrack)
		assert.True(t, verdict.Accepted())
	})

	t.Run("one over the maximum is rejected", func(t *testing.T) {
		verdict := v.Validate(introOfSentences(11), testTrack)
		assert.Equal(t, domain.VerdictRejected, verdict.Status)
		assert.Contains(t, verdict.Reasons, domain.RejectTooManySents)
	})
}

func TestValidateLeakedFacts(t *testing.T) {
	v := newValidator(t, DefaultValidatorConfig())

	tests := []struct {
		name string
		text string
	}{
		{
			name: "fact line",
			text: "Here comes Neon Lights by The Valves.\nFact: the band formed in 1989.",
		},
		{
			name: "trivia line",
			text: "Here comes Neon Lights.\nTRIVIA: the album went gold.",
		},
		{
			name: "facts tag literal",
			text: "Here comes Neon Lights. <facts>formed 1989</facts> Enjoy the ride.",
		},
		{
			name: "song details header",
			text: "Here comes Neon Lights. Song details: Title: Neon Lights.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := v.Validate(tt.text, testTrack)
			assert.Equal(t, domain.VerdictRejected, verdict.Status)
			assert.Contains(t, verdict.Reasons, domain.RejectLeakedFacts)

			// A leak is fatal in the relaxed pass too.
			relaxed := v.ValidateRelaxed(tt.text, testTrack)
			assert.Equal(t, domain.VerdictRejected, relaxed.Status)
			assert.Contains(t, relaxed.Reasons, domain.RejectLeakedFacts)
		})
	}
}

func TestValidateLength(t *testing.T) {
	v := newValidator(t, ValidatorConfig{MaxSentences: 10, MaxChars: 100})

	text := "Here comes Neon Lights by The Valves. The band formed in a tiny garage. Critics called the record fearless."
	require.Greater(t, len(text), 100)

	verdict := v.Validate(text, testTrack)
	assert.Equal(t, domain.VerdictRejected, verdict.Status)
	assert.Contains(t, verdict.Reasons, domain.RejectTooLong)

	// Length is loosened in the relaxed pass.
	relaxed := v.ValidateRelaxed(text, testTrack)
	assert.True(t, relaxed.Accepted())
}

func TestValidateRepetition(t *testing.T) {
	v := newValidator(t, DefaultValidatorConfig())

	tests := []struct {
		name string
		text string
	}{
		{
			name: "exact repeat",
			text: "Here comes Neon Lights. The band formed in a garage. The band formed in a garage.",
		},
		{
			name: "repeat differing only in case and punctuation",
			text: "Here comes Neon Lights! Turn the volume up, friends. Turn the volume up friends.",
		},
		{
			name: "near duplicate",
			text: "Here comes Neon Lights. The crowd went absolutely wild tonight. The crowd went absolutly wild tonight.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := v.Validate(tt.text, testTrack)
			assert.Equal(t, domain.VerdictRejected, verdict.Status)
			assert.Contains(t, verdict.Reasons, domain.RejectRepeatedSent)

			// Repetition is fatal in the relaxed pass too.
			relaxed := v.ValidateRelaxed(tt.text, testTrack)
			assert.Equal(t, domain.VerdictRejected, relaxed.Status)
			assert.Contains(t, relaxed.Reasons, domain.RejectRepeatedSent)
		})
	}
}

func TestValidateTitleRequiredArtistNot(t *testing.T) {
	v := newValidator(t, DefaultValidatorConfig())

	t.Run("missing title is rejected", func(t *testing.T) {
		verdict := v.Validate("A great song is coming up next. You will love this one.", testTrack)
		assert.Equal(t, domain.VerdictRejected, verdict.Status)
		assert.Contains(t, verdict.Reasons, domain.RejectMissingTitle)
	})

	t.Run("title without artist is accepted", func(t *testing.T) {
		verdict := v.Validate("Up next is Neon Lights, a song you will not forget.", testTrack)
		assert.True(t, verdict.Accepted())
	})

	t.Run("title tolerates case and punctuation", func(t *testing.T) {
		verdict := v.Validate("Get ready for NEON-LIGHTS, turned all the way up.", testTrack)
		assert.True(t, verdict.Accepted())
	})

	t.Run("title falls back to the file name", func(t *testing.T) {
		track := domain.Candidate{Identity: "03 - Silver Street.mp3"}
		verdict := v.Validate("Silver Street is rolling in next.", track)
		assert.True(t, verdict.Accepted())

		verdict = v.Validate("Something else entirely is rolling in next.", track)
		assert.Contains(t, verdict.Reasons, domain.RejectMissingTitle)
	})

	t.Run("missing title passes the relaxed pass", func(t *testing.T) {
		relaxed := v.ValidateRelaxed("A great song is coming up next. You will love this one.", testTrack)
		assert.True(t, relaxed.Accepted())
	})
}

func TestValidateBoilerplateRepair(t *testing.T) {
	v := newValidator(t, DefaultValidatorConfig())

	text := "Ladies and gentlemen, welcome to the show! Here comes Neon Lights by The Valves. The band formed in a tiny garage."
	verdict := v.Validate(text, testTrack)
	require.Equal(t, domain.VerdictRepaired, verdict.Status)
	assert.True(t, verdict.Accepted())
	assert.Equal(t, "Here comes Neon Lights by The Valves. The band formed in a tiny garage.", verdict.Text)

	t.Run("clean text is accepted not repaired", func(t *testing.T) {
		clean := v.Validate(verdict.Text, testTrack)
		assert.Equal(t, domain.VerdictAccepted, clean.Status)
		assert.Equal(t, verdict.Text, clean.Text)
	})
}

func TestStripBoilerplateIdempotent(t *testing.T) {
	tests := []string{
		"Ladies and gentlemen, welcome to the show! Here comes Neon Lights.",
		"Welcome back to the station, it is a big night. Here comes Neon Lights.",
		"Hey there, listeners! Here comes Neon Lights.",
		"Sure, here's your intro: Here comes Neon Lights.",
		"Here comes Neon Lights.",
	}

	for _, text := range tests {
		once, _ := StripBoilerplate(text)
		twice, repairedAgain := StripBoilerplate(once)
		assert.Equal(t, once, twice)
		assert.False(t, repairedAgain)
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty", text: "", want: 0},
		{name: "single", text: "One sentence here.", want: 1},
		{name: "mixed terminators", text: "First! Second? Third.", want: 3},
		{name: "ellipsis counts once", text: "Hold on... here it comes.", want: 2},
		{name: "no trailing terminator", text: "First. Second without a period", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Len(t, SplitSentences(tt.text), tt.want)
		})
	}
}
