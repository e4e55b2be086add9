// Package referee breaks a disagreement between two prior oracle outputs
// with a single additional oracle call. The referee never fabricates a
// third outcome and never silently defaults to the first option: a winner
// that cannot be normalized back to one of the two inputs is a failure.
package referee

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/localfm/airdj/infrastructure/extract"
	"github.com/localfm/airdj/infrastructure/match"
	"github.com/localfm/airdj/internal/domain"
	"github.com/localfm/airdj/internal/ports"
)

var validate = validator.New()

// Option is one side of the duel: content (a candidate identity or an
// intro text), the justification that came with it, and a short label.
// Labels are cosmetic; swapping them must not change the outcome.
type Option struct {
	Label   string
	Content string
	Reason  string
}

// Config holds referee tunables.
type Config struct {
	// PromptTemplate is the Go template for the referee prompt. It
	// receives {{.A}} and {{.B}} Options.
	PromptTemplate string `yaml:"prompt_template" json:"prompt_template" validate:"required,min=20"`

	// Temperature for the referee call. Low by default; the referee is a
	// judgment call, not a creative one.
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0.0,max=2.0"`

	// MaxTokens bounds the referee's reasoning length.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"required,min=50,max=2000"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		PromptTemplate: defaultPrompt,
		Temperature:    0.2,
		MaxTokens:      400,
	}
}

const defaultPrompt = `Two proposals are competing and you must pick exactly one winner.

{{.A.Label}}: {{.A.Content}}
Argument for {{.A.Label}}: {{.A.Reason}}

{{.B.Label}}: {{.B.Content}}
Argument for {{.B.Label}}: {{.B.Reason}}

Weigh the two arguments and name the single better proposal. You must pick one of the two; there is no tie. Respond only with two XML tags and nothing else: <winner>THE WINNING PROPOSAL EXACTLY AS SHOWN</winner><reason>WHY IT WON</reason>`

// Referee issues the tie-break call and normalizes its answer.
type Referee struct {
	llm            ports.LLMClient
	config         Config
	promptTemplate *template.Template
	tracer         trace.Tracer
}

// New creates a Referee. The configuration is validated and the prompt
// template compiled up front.
func New(llm ports.LLMClient, config Config) (*Referee, error) {
	if llm == nil {
		return nil, fmt.Errorf("LLM client cannot be nil")
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	tmpl, err := template.New("refereePrompt").Parse(config.PromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse referee prompt template: %w", err)
	}
	return &Referee{
		llm:            llm,
		config:         config,
		promptTemplate: tmpl,
		tracer:         otel.Tracer("referee"),
	}, nil
}

// Decide runs the single referee call for options a and b and returns the
// index of the winner (0 for a, 1 for b) with the referee's reason.
//
// The declared winner is matched against the two labels first, then
// against the two contents with the same containment heuristic the
// candidate matcher uses. Anything that resolves to neither side returns
// domain.ErrRefereeIndeterminate.
func (r *Referee) Decide(ctx context.Context, a, b Option) (int, string, error) {
	ctx, span := r.tracer.Start(ctx, "Referee.Decide",
		trace.WithAttributes(attribute.String("referee.model", r.llm.GetModel())),
	)
	defer span.End()

	var buf bytes.Buffer
	if err := r.promptTemplate.Execute(&buf, struct{ A, B Option }{a, b}); err != nil {
		return 0, "", fmt.Errorf("execute referee prompt template: %w", err)
	}

	raw, err := r.llm.Complete(ctx, buf.String(), map[string]any{
		"temperature": r.config.Temperature,
		"max_tokens":  r.config.MaxTokens,
	})
	if err != nil {
		span.RecordError(err)
		return 0, "", fmt.Errorf("referee call failed: %w", err)
	}

	winner, ok := extract.Tag(raw, "winner")
	if !ok {
		span.RecordError(domain.ErrRefereeIndeterminate)
		return 0, "", fmt.Errorf("no winner tag in referee response: %w", domain.ErrRefereeIndeterminate)
	}
	reason, _ := extract.Tag(raw, "reason")

	idx, ok := resolveWinner(winner, a, b)
	if !ok {
		span.RecordError(domain.ErrRefereeIndeterminate)
		return 0, "", fmt.Errorf("winner %q: %w", winner, domain.ErrRefereeIndeterminate)
	}

	span.SetAttributes(attribute.Int("referee.winner_index", idx))
	return idx, reason, nil
}

// resolveWinner maps the declared winner onto side 0 or 1. Exactly one
// side must claim it; a declaration both sides could claim is unresolved.
func resolveWinner(winner string, a, b Option) (int, bool) {
	w := match.NormalizeLoose(winner)
	if w == "" {
		return 0, false
	}

	// Label comparison first: cheap and unambiguous when the model obeyed
	// the prompt ("first option", "B", ...).
	aLabel := labelClaims(w, a.Label)
	bLabel := labelClaims(w, b.Label)
	if aLabel != bLabel {
		if aLabel {
			return 0, true
		}
		return 1, true
	}

	// Containment against the contents, via the matcher so the heuristic
	// stays identical to free-text candidate resolution.
	c, ok := match.Match(winner, []domain.Candidate{
		{Identity: a.Content},
		{Identity: b.Content},
	})
	if !ok {
		return 0, false
	}
	if c.Identity == a.Content {
		return 0, true
	}
	return 1, true
}

// labelClaims reports whether the normalized winner names the given label.
// It accepts exact equality, the full label embedded in a longer
// declaration, and a single-token declaration naming one word of the label
// ("second" for "second option"). Shared words like "option" claim both
// labels and are discarded by the caller's exclusivity check.
func labelClaims(normalizedWinner, label string) bool {
	l := match.NormalizeLoose(label)
	if l == "" {
		return false
	}
	if normalizedWinner == l {
		return true
	}
	if strings.Contains(" "+normalizedWinner+" ", " "+l+" ") {
		return true
	}
	if !strings.ContainsRune(normalizedWinner, ' ') {
		for _, tok := range strings.Fields(l) {
			if tok == normalizedWinner {
				return true
			}
		}
	}
	return false
}
