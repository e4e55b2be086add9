package selection

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localfm/airdj/infrastructure/referee"
	"github.com/localfm/airdj/internal/domain"
	"github.com/localfm/airdj/internal/testutils"
)

var testCandidates = []domain.Candidate{
	{Identity: "01 - First Song.mp3"},
	{Identity: "02 - Second Song.mp3"},
	{Identity: "03 - Third Song.mp3"},
}

var currentTrack = domain.Candidate{Identity: "00 - Current Song.mp3"}

func newTestEngine(t *testing.T, passA, passB, refLLM *testutils.MockLLM) *Engine {
	t.Helper()
	ref, err := referee.New(refLLM, referee.DefaultConfig())
	require.NoError(t, err)
	engine, err := NewEngine(passA, passB, ref, DefaultConfig(), nil)
	require.NoError(t, err)
	return engine
}

func TestNewEngine(t *testing.T) {
	llm := testutils.NewMockLLMText("ok")
	ref, err := referee.New(llm, referee.DefaultConfig())
	require.NoError(t, err)

	tests := []struct {
		name    string
		passA   *testutils.MockLLM
		passB   *testutils.MockLLM
		config  Config
		wantErr string
	}{
		{
			name:   "valid",
			passA:  llm,
			passB:  llm,
			config: DefaultConfig(),
		},
		{
			name:    "missing pass client",
			passA:   llm,
			passB:   nil,
			config:  DefaultConfig(),
			wantErr: "both pass clients are required",
		},
		{
			name:    "invalid config",
			passA:   llm,
			passB:   llm,
			config:  Config{PromptTemplate: "too short", MaxTokens: 300},
			wantErr: "configuration validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var engine *Engine
			var err error
			if tt.passB == nil {
				engine, err = NewEngine(tt.passA, nil, ref, tt.config, nil)
			} else {
				engine, err = NewEngine(tt.passA, tt.passB, ref, tt.config, nil)
			}
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, engine)
		})
	}
}

func TestSelectAgreementSkipsReferee(t *testing.T) {
	passA := testutils.NewMockLLMText("<choice>02 - Second Song.mp3</choice><reason>good flow</reason>")
	passB := testutils.NewMockLLMText("<choice>Second Song</choice><reason>keeps the tempo</reason>")
	refLLM := testutils.NewMockLLMText("<winner>unused</winner>")
	engine := newTestEngine(t, passA, passB, refLLM)

	result, err := engine.Select(context.Background(), currentTrack, testCandidates)
	require.NoError(t, err)

	require.NotNil(t, result.Winner)
	assert.Equal(t, "02 - Second Song.mp3", result.Winner.Identity)
	assert.False(t, result.RefereeUsed)
	assert.NotEmpty(t, result.Reason)
	assert.NotEmpty(t, result.RoundID)

	// Two pass calls and nothing more.
	assert.Equal(t, 1, passA.Calls())
	assert.Equal(t, 1, passB.Calls())
	assert.Equal(t, 0, refLLM.Calls())
}

func TestSelectSingleResolvedPassWins(t *testing.T) {
	tests := []struct {
		name  string
		passA string
		passB string
	}{
		{
			name:  "second pass unparseable",
			passA: "<choice>03 - Third Song.mp3</choice><reason>variety</reason>",
			passB: "I think the third one is nice.",
		},
		{
			name:  "first pass matches nothing",
			passA: "<choice>Bohemian Rhapsody</choice><reason>a classic</reason>",
			passB: "<choice>03 - Third Song.mp3</choice><reason>variety</reason>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refLLM := testutils.NewMockLLMText("<winner>unused</winner>")
			engine := newTestEngine(t,
				testutils.NewMockLLMText(tt.passA),
				testutils.NewMockLLMText(tt.passB),
				refLLM,
			)

			result, err := engine.Select(context.Background(), currentTrack, testCandidates)
			require.NoError(t, err)
			require.NotNil(t, result.Winner)
			assert.Equal(t, "03 - Third Song.mp3", result.Winner.Identity)
			assert.False(t, result.RefereeUsed)
			assert.Equal(t, 0, refLLM.Calls())
		})
	}
}

func TestSelectOracleFailureIsUnresolvedNotFatal(t *testing.T) {
	passA := testutils.NewMockLLM(testutils.ScriptedResponse{Err: context.DeadlineExceeded})
	passB := testutils.NewMockLLMText("<choice>01 - First Song.mp3</choice><reason>steady</reason>")
	engine := newTestEngine(t, passA, passB, testutils.NewMockLLMText("unused"))

	result, err := engine.Select(context.Background(), currentTrack, testCandidates)
	require.NoError(t, err)
	require.NotNil(t, result.Winner)
	assert.Equal(t, "01 - First Song.mp3", result.Winner.Identity)
	assert.False(t, result.Proposals[0].IsResolved())
}

func TestSelectDisagreementGoesToReferee(t *testing.T) {
	tests := []struct {
		name   string
		winner string
		wantID string
	}{
		{
			name:   "referee picks the first pass",
			winner: "<winner>01 - First Song.mp3</winner><reason>steadier</reason>",
			wantID: "01 - First Song.mp3",
		},
		{
			name:   "referee picks the second pass",
			winner: "<winner>second option</winner><reason>bolder</reason>",
			wantID: "03 - Third Song.mp3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			passA := testutils.NewMockLLMText("<choice>01 - First Song.mp3</choice><reason>steady</reason>")
			passB := testutils.NewMockLLMText("<choice>03 - Third Song.mp3</choice><reason>bold</reason>")
			refLLM := testutils.NewMockLLMText(tt.winner)
			engine := newTestEngine(t, passA, passB, refLLM)

			result, err := engine.Select(context.Background(), currentTrack, testCandidates)
			require.NoError(t, err)
			require.NotNil(t, result.Winner)
			assert.Equal(t, tt.wantID, result.Winner.Identity)
			assert.True(t, result.RefereeUsed)
			assert.Equal(t, 1, refLLM.Calls())
		})
	}
}

func TestSelectRefereeIndeterminateFailsRound(t *testing.T) {
	passA := testutils.NewMockLLMText("<choice>01 - First Song.mp3</choice><reason>a</reason>")
	passB := testutils.NewMockLLMText("<choice>02 - Second Song.mp3</choice><reason>b</reason>")
	refLLM := testutils.NewMockLLMText("<winner>something else entirely</winner>")
	engine := newTestEngine(t, passA, passB, refLLM)

	result, err := engine.Select(context.Background(), currentTrack, testCandidates)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRefereeIndeterminate)
	assert.Nil(t, result.Winner)
	assert.True(t, result.RefereeUsed)
	assert.Len(t, result.Proposals, 2)
}

func TestSelectNeitherPassResolves(t *testing.T) {
	passA := testutils.NewMockLLMText("no tags at all")
	passB := testutils.NewMockLLMText("<choice>Some Unknown Track</choice>")
	refLLM := testutils.NewMockLLMText("unused")
	engine := newTestEngine(t, passA, passB, refLLM)

	result, err := engine.Select(context.Background(), currentTrack, testCandidates)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoSelection)
	assert.Nil(t, result.Winner)
	assert.Equal(t, 0, refLLM.Calls())
}

func TestSelectInvalidCandidateSet(t *testing.T) {
	engine := newTestEngine(t,
		testutils.NewMockLLMText("unused"),
		testutils.NewMockLLMText("unused"),
		testutils.NewMockLLMText("unused"),
	)

	_, err := engine.Select(context.Background(), currentTrack, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyCandidateSet)

	_, err = engine.Select(context.Background(), currentTrack, []domain.Candidate{
		{Identity: "a.mp3"},
		{Identity: "A.mp3"},
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateCandidate)
}

func TestSelectCommutativeInPasses(t *testing.T) {
	// Swapping which pass produced which answer must not change the winner
	// when the passes agree.
	respA := "<choice>02 - Second Song.mp3</choice><reason>x</reason>"
	respB := "<choice>Second Song</choice><reason>y</reason>"

	e1 := newTestEngine(t, testutils.NewMockLLMText(respA), testutils.NewMockLLMText(respB), testutils.NewMockLLMText("unused"))
	r1, err := e1.Select(context.Background(), currentTrack, testCandidates)
	require.NoError(t, err)

	e2 := newTestEngine(t, testutils.NewMockLLMText(respB), testutils.NewMockLLMText(respA), testutils.NewMockLLMText("unused"))
	r2, err := e2.Select(context.Background(), currentTrack, testCandidates)
	require.NoError(t, err)

	assert.Equal(t, r1.Winner.Identity, r2.Winner.Identity)
}

func TestFallback(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	t.Run("never repeats the current track", func(t *testing.T) {
		current := domain.Candidate{Identity: "a.mp3"}
		candidates := []domain.Candidate{{Identity: "a.mp3"}, {Identity: "b.mp3"}}
		for i := 0; i < 50; i++ {
			pick, err := Fallback(rng, current, candidates, false, DefaultFallbackAttempts)
			require.NoError(t, err)
			assert.Equal(t, "b.mp3", pick.Identity)
		}
	})

	t.Run("artist filter relaxes after budget", func(t *testing.T) {
		current := domain.Candidate{Identity: "a.mp3", Artist: "Prince"}
		candidates := []domain.Candidate{
			{Identity: "b.mp3", Artist: "Prince"},
			{Identity: "a.mp3", Artist: "Prince"},
		}
		pick, err := Fallback(rng, current, candidates, true, 3)
		require.NoError(t, err)
		assert.Equal(t, "b.mp3", pick.Identity)
	})

	t.Run("empty set fails", func(t *testing.T) {
		_, err := Fallback(rng, domain.Candidate{}, nil, false, 3)
		assert.ErrorIs(t, err, domain.ErrEmptyCandidateSet)
	})

	t.Run("only the current track fails", func(t *testing.T) {
		current := domain.Candidate{Identity: "a.mp3"}
		_, err := Fallback(rng, current, []domain.Candidate{{Identity: "a.mp3"}}, false, 3)
		assert.ErrorIs(t, err, domain.ErrNoSelection)
	})
}
