package intro

import (
	"bytes"
	"context"
	"fmt"
	"text/template"
	"time"

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

// DuelConfig holds intro generation tunables.
type DuelConfig struct {
	// PromptTemplate renders the generation prompt. It receives
	// {{.Track}}, {{.PreviousTitle}} and {{.Facts}}.
	PromptTemplate string `yaml:"prompt_template" json:"prompt_template" validate:"required,min=20"`

	// Temperature for intro generation. Higher than selection; the two
	// sides should actually differ.
	Temperature float64 `yaml:"temperature" json:"temperature" validate:"min=0.0,max=2.0"`

	// MaxTokens bounds each generation.
	MaxTokens int `yaml:"max_tokens" json:"max_tokens" validate:"required,min=50,max=4000"`

	// MaxAttemptsPerSide bounds regeneration when a side's output fails
	// strict validation. Never unbounded.
	MaxAttemptsPerSide int `yaml:"max_attempts_per_side" json:"max_attempts_per_side" validate:"required,min=1,max=5"`
}

// DefaultDuelConfig returns production defaults.
func DefaultDuelConfig() DuelConfig {
	return DuelConfig{
		PromptTemplate:     defaultIntroPrompt,
		Temperature:        0.9,
		MaxTokens:          500,
		MaxAttemptsPerSide: 2,
	}
}

const defaultIntroPrompt = `You're a charismatic radio DJ introducing {{.Track}}.{{if .PreviousTitle}} The previous song was {{.PreviousTitle}}.{{end}} Keep it short and natural (3-4 sentences) and say the song title. Do not mention any city, town, or location. Avoid brackets and parentheses.{{if .Facts}} Weave in one or two interesting facts from the details below; never read them out as a list.{{end}} Respond only with the final spoken intro inside <response>...</response>.{{if .Facts}}

Song details:
{{.Facts}}{{end}}`

// Duel generates two independent intro candidates, validates both, and
// picks at most one winner. Strict validation first; when both sides fail
// strict, a relaxed pass loosens title and length while leaked facts and
// repetition stay fatal.
type Duel struct {
	genA      ports.LLMClient
	genB      ports.LLMClient
	validator *Validator
	referee   *referee.Referee
	config    DuelConfig
	tmpl      *template.Template
	metrics   ports.MetricsCollector
	tracer    trace.Tracer
}

// NewDuel creates a Duel over two generation clients, a validator, and the
// shared referee.
func NewDuel(genA, genB ports.LLMClient, v *Validator, ref *referee.Referee, config DuelConfig, metrics ports.MetricsCollector) (*Duel, error) {
	if genA == nil || genB == nil {
		return nil, fmt.Errorf("both generation clients are required")
	}
	if v == nil {
		return nil, fmt.Errorf("validator cannot be nil")
	}
	if ref == nil {
		return nil, fmt.Errorf("referee cannot be nil")
	}
	if err := validate.Struct(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	tmpl, err := template.New("introPrompt").Parse(config.PromptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse intro prompt template: %w", err)
	}
	return &Duel{
		genA:      genA,
		genB:      genB,
		validator: v,
		referee:   ref,
		config:    config,
		tmpl:      tmpl,
		metrics:   metrics,
		tracer:    otel.Tracer("intro"),
	}, nil
}

// Run executes the full duel for one track.
//
// Decision table: both valid and different means one referee call; one
// valid means it wins without a referee; neither valid means one relaxed
// re-validation of each side's last text, and if both still fail,
// domain.ErrNoIntro.
func (d *Duel) Run(ctx context.Context, tctx domain.TrackContext) (domain.IntroCandidate, error) {
	start := time.Now()
	ctx, span := d.tracer.Start(ctx, "IntroDuel.Run",
		trace.WithAttributes(attribute.String("intro.track", tctx.Track.Identity)),
	)
	defer span.End()

	prompt, err := d.renderPrompt(tctx)
	if err != nil {
		span.RecordError(err)
		return domain.IntroCandidate{}, err
	}

	var a, b domain.IntroCandidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a = d.generateSide(gctx, d.genA, prompt, tctx.Track)
		return nil
	})
	g.Go(func() error {
		b = d.generateSide(gctx, d.genB, prompt, tctx.Track)
		return nil
	})
	_ = g.Wait()

	winner, refereeUsed, err := d.decide(ctx, a, b, tctx.Track)
	d.recordDuel(start, refereeUsed, err)
	if err != nil {
		span.RecordError(err)
		return domain.IntroCandidate{}, err
	}
	span.SetAttributes(
		attribute.String("intro.model", winner.Model),
		attribute.Bool("intro.referee_used", refereeUsed),
		attribute.String("intro.verdict", string(winner.Verdict.Status)),
	)
	return winner, nil
}

// RunSingle generates one intro with the same strict-then-relaxed policy
// and no duel. Used for the first track of a session, when there is no
// transition worth arguing about.
func (d *Duel) RunSingle(ctx context.Context, tctx domain.TrackContext) (domain.IntroCandidate, error) {
	ctx, span := d.tracer.Start(ctx, "IntroDuel.RunSingle",
		trace.WithAttributes(attribute.String("intro.track", tctx.Track.Identity)),
	)
	defer span.End()

	prompt, err := d.renderPrompt(tctx)
	if err != nil {
		span.RecordError(err)
		return domain.IntroCandidate{}, err
	}

	c := d.generateSide(ctx, d.genA, prompt, tctx.Track)
	if c.Verdict.Accepted() {
		return c, nil
	}
	if c.Text != "" {
		if relaxed := d.validator.ValidateRelaxed(c.Text, tctx.Track); relaxed.Accepted() {
			c.Verdict = relaxed
			return c, nil
		}
	}
	span.RecordError(domain.ErrNoIntro)
	return domain.IntroCandidate{}, domain.ErrNoIntro
}

func (d *Duel) renderPrompt(tctx domain.TrackContext) (string, error) {
	var buf bytes.Buffer
	data := struct {
		Track         string
		PreviousTitle string
		Facts         string
	}{tctx.Track.DisplayName(), tctx.PreviousTitle, tctx.Facts}
	if err := d.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute intro prompt template: %w", err)
	}
	return buf.String(), nil
}

// generateSide runs one side's bounded generate-and-validate loop. It
// returns as soon as an attempt passes strict validation; otherwise it
// returns the last attempt with its rejecting verdict, so the relaxed
// stage has text to work with.
func (d *Duel) generateSide(ctx context.Context, client ports.LLMClient, prompt string, track domain.Candidate) domain.IntroCandidate {
	last := domain.IntroCandidate{
		Model:   client.GetModel(),
		Verdict: domain.Verdict{Status: domain.VerdictRejected, Reasons: []domain.RejectReason{domain.RejectEmptyText}},
	}

	for attempt := 0; attempt < d.config.MaxAttemptsPerSide; attempt++ {
		if ctx.Err() != nil {
			return last
		}
		raw, err := client.Complete(ctx, prompt, map[string]any{
			"temperature": d.config.Temperature,
			"max_tokens":  d.config.MaxTokens,
		})
		if err != nil {
			continue
		}
		text, ok := extract.Tag(raw, "response")
		if !ok {
			continue
		}
		last.Text = text
		last.Verdict = d.validator.Validate(text, track)
		if last.Verdict.Accepted() {
			return last
		}
	}
	return last
}

func (d *Duel) decide(ctx context.Context, a, b domain.IntroCandidate, track domain.Candidate) (domain.IntroCandidate, bool, error) {
	aOK, bOK := a.Verdict.Accepted(), b.Verdict.Accepted()

	switch {
	case aOK && bOK:
		if match.NormalizeLoose(a.Verdict.Text) == match.NormalizeLoose(b.Verdict.Text) {
			return a, false, nil
		}
		return d.refereePick(ctx, a, b)

	case aOK:
		return a, false, nil

	case bOK:
		return b, false, nil
	}

	// Neither passed strict; one relaxed re-validation per side.
	if a.Text != "" {
		if v := d.validator.ValidateRelaxed(a.Text, track); v.Accepted() {
			a.Verdict = v
			aOK = true
		}
	}
	if b.Text != "" {
		if v := d.validator.ValidateRelaxed(b.Text, track); v.Accepted() {
			b.Verdict = v
			bOK = true
		}
	}
	switch {
	case aOK && bOK:
		if match.NormalizeLoose(a.Verdict.Text) == match.NormalizeLoose(b.Verdict.Text) {
			return a, false, nil
		}
		return d.refereePick(ctx, a, b)
	case aOK:
		return a, false, nil
	case bOK:
		return b, false, nil
	}
	return domain.IntroCandidate{}, false, domain.ErrNoIntro
}

func (d *Duel) refereePick(ctx context.Context, a, b domain.IntroCandidate) (domain.IntroCandidate, bool, error) {
	idx, _, err := d.referee.Decide(ctx,
		referee.Option{Label: "first intro", Content: a.Verdict.Text, Reason: "written by " + a.Model},
		referee.Option{Label: "second intro", Content: b.Verdict.Text, Reason: "written by " + b.Model},
	)
	if err != nil {
		return domain.IntroCandidate{}, true, fmt.Errorf("intro referee: %w", err)
	}
	if idx == 0 {
		return a, true, nil
	}
	return b, true, nil
}

func (d *Duel) recordDuel(start time.Time, refereeUsed bool, err error) {
	if d.metrics == nil {
		return
	}
	labels := map[string]string{"model": d.genA.GetModel()}
	d.metrics.RecordLatency("intro_duel", time.Since(start).Seconds(), labels)
	d.metrics.RecordCounter("intro_duels_total", 1, labels)
	if refereeUsed {
		d.metrics.RecordCounter("intro_referee_total", 1, labels)
	}
	if err != nil {
		d.metrics.RecordCounter("intro_failures_total", 1, labels)
	}
}
