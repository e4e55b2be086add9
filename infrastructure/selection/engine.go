// Package selection implements the next-track decision round: two
// independent model passes over one candidate set, reduced to exactly one
// winner or an explicit failure. A pass that errors, parses badly, or
// matches nothing is simply unresolved; it never aborts the round.
package selection

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/localfm/airdj/infrastructure/extract"
	"github.com/localfm/airdj/infrastructure/match"
	"github.com/localfm/airdj/infrastructure/referee"
	"github.com/localfm/airdj/internal/domain"
	"github.com/localfm/airdj/internal/ports"
)

var validate = validator.New()

// Config holds the selection round tunables.
type Config struct {
	// PromptTemplate renders the selection prompt. It receives
	// {{.Current}} (display name of the playing track) and
	// {{.Candidates}} (display names of the choices).
	PromptTemplate string `yaml:"prompt_template" json:"prompt_template" validate:"required,min=20"`

	// Temperature for the selection passes.
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0.0,max=2.0"`

	// MaxTokens bounds each pass response.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"required,min=50,max=2000"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		PromptTemplate: defaultPrompt,
		Temperature:    0.7,
		MaxTokens:      300,
	}
}

const defaultPrompt = `You are a radio DJ choosing the next song. The current song is {{.Current}}.

Pick the next song from this list and nothing outside it:
{{range .Candidates}}- {{.}}
{{end}}
Pick the song that flows best after the current one. Respond only with two XML tags and nothing else: <choice>THE SONG EXACTLY AS LISTED</choice><reason>ONE SHORT SENTENCE WHY</reason>`

// Engine runs one full selection round.
type Engine struct {
	passA   ports.LLMClient
	passB   ports.LLMClient
	referee *referee.Referee
	config  Config
	tmpl    *template.Template
	metrics ports.MetricsCollector
	tracer  trace.Tracer
}

// NewEngine creates an Engine over two pass clients and a referee. The two
// clients may share a model or differ; the engine treats them symmetrically.
func NewEngine(passA, passB ports.LLMClient, ref *referee.Referee, config Config, metrics ports.MetricsCollector) (*Engine, error) {
	if passA == nil || passB == nil {
		return nil, fmt.Errorf("both pass clients are required")
	}
	if ref == nil {
		return nil, fmt.Errorf("referee cannot be nil")
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	tmpl, err := template.New("selectionPrompt").Parse(config.PromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse selection prompt template: %w", err)
	}
	return &Engine{
		passA:   passA,
		passB:   passB,
		referee: ref,
		config:  config,
		tmpl:    tmpl,
		metrics: metrics,
		tracer:  otel.Tracer("selection"),
	}, nil
}

// Select runs the round: both passes concurrently, then the reduction.
//
// Reduction is commutative in the passes:
//   - both resolved to the same candidate: it wins, no referee;
//   - exactly one resolved: it wins, no referee;
//   - both resolved but different: one referee call decides;
//   - neither resolved: domain.ErrNoSelection.
//
// The returned result always carries both proposals, also on the failure
// path, so history can record what each model said.
func (e *Engine) Select(ctx context.Context, current domain.Candidate, candidates []domain.Candidate) (domain.SelectionResult, error) {
	start := time.Now()
	result := domain.SelectionResult{RoundID: uuid.NewString()}

	ctx, span := e.tracer.Start(ctx, "Selection.Select",
		trace.WithAttributes(
			attribute.String("selection.round_id", result.RoundID),
			attribute.Int("selection.candidates", len(candidates)),
		),
	)
	defer span.End()

	if err := domain.ValidateCandidateSet(candidates); err != nil {
		span.RecordError(err)
		return result, fmt.Errorf("invalid candidate set: %w", err)
	}

	prompt, err := e.renderPrompt(current, candidates)
	if err != nil {
		span.RecordError(err)
		return result, err
	}

	proposals := make([]domain.ModelProposal, 2)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		proposals[0] = e.runPass(gctx, e.passA, prompt, candidates)
		return nil
	})
	g.Go(func() error {
		proposals[1] = e.runPass(gctx, e.passB, prompt, candidates)
		return nil
	})
	// Passes never return errors; failures become unresolved proposals.
	_ = g.Wait()
	result.Proposals = proposals

	winner, reason, refereeUsed, err := e.reduce(ctx, proposals)
	result.Timestamp = time.Now()
	result.RefereeUsed = refereeUsed
	e.recordRound(start, refereeUsed, err)
	if err != nil {
		span.RecordError(err)
		return result, err
	}

	result.Winner = winner
	result.Reason = reason
	span.SetAttributes(
		attribute.String("selection.winner", winner.Identity),
		attribute.Bool("selection.referee_used", refereeUsed),
	)
	return result, nil
}

func (e *Engine) renderPrompt(current domain.Candidate, candidates []domain.Candidate) (string, error) {
	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Identity
	}
	var buf bytes.Buffer
	data := struct {
		Current    string
		Candidates []string
	}{current.DisplayName(), names}
	if err := e.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute selection prompt template: %w", err)
	}
	return buf.String(), nil
}

// runPass executes one model pass. Every failure mode collapses into an
// unresolved proposal carrying whatever raw text was available.
func (e *Engine) runPass(ctx context.Context, client ports.LLMClient, prompt string, candidates []domain.Candidate) domain.ModelProposal {
	proposal := domain.ModelProposal{Model: client.GetModel()}

	raw, err := client.Complete(ctx, prompt, map[string]any{
		"temperature": e.config.Temperature,
		"max_tokens":  e.config.MaxTokens,
	})
	if err != nil {
		return proposal
	}
	proposal.Raw = raw

	choice, ok := extract.Tag(raw, "choice")
	if !ok {
		return proposal
	}
	proposal.Choice = choice
	if reason, ok := extract.Tag(raw, "reason"); ok {
		proposal.Reason = reason
	}

	if c, ok := match.Match(choice, candidates); ok {
		proposal.Resolved = &c
	}
	return proposal
}

// reduce applies the agreement table to the two proposals.
func (e *Engine) reduce(ctx context.Context, proposals []domain.ModelProposal) (*domain.Candidate, string, bool, error) {
	a, b := proposals[0], proposals[1]

	switch {
	case a.IsResolved() && b.IsResolved() && a.Resolved.Equal(*b.Resolved):
		reason := a.Reason
		if reason == "" {
			reason = b.Reason
		}
		return a.Resolved, reason, false, nil

	case a.IsResolved() && !b.IsResolved():
		return a.Resolved, a.Reason, false, nil

	case b.IsResolved() && !a.IsResolved():
		return b.Resolved, b.Reason, false, nil

	case a.IsResolved() && b.IsResolved():
		idx, reason, err := e.referee.Decide(ctx,
			referee.Option{Label: "first option", Content: a.Resolved.Identity, Reason: a.Reason},
			referee.Option{Label: "second option", Content: b.Resolved.Identity, Reason: b.Reason},
		)
		if err != nil {
			return nil, "", true, fmt.Errorf("selection referee: %w", err)
		}
		if idx == 0 {
			return a.Resolved, reason, true, nil
		}
		return b.Resolved, reason, true, nil

	default:
		return nil, "", false, domain.ErrNoSelection
	}
}

func (e *Engine) recordRound(start time.Time, refereeUsed bool, err error) {
	if e.metrics == nil {
		return
	}
	labels := map[string]string{"model": e.passA.GetModel()}
	e.metrics.RecordLatency("selection_round", time.Since(start).Seconds(), labels)
	e.metrics.RecordCounter("selection_rounds_total", 1, labels)
	if refereeUsed {
		e.metrics.RecordCounter("selection_referee_total", 1, labels)
	}
	if err != nil {
		e.metrics.RecordCounter("selection_failures_total", 1, labels)
	}
}
