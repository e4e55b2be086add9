// Package session runs the DJ play loop: speak an intro, play the track,
// and prepare the next round in the background while the current track is
// on air.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/localfm/airdj/infrastructure/intro"
	"github.com/localfm/airdj/infrastructure/selection"
	"github.com/localfm/airdj/internal/domain"
	"github.com/localfm/airdj/internal/ports"
)

// Config holds the loop tunables.
type Config struct {
	// SampleSize is the candidate count per selection round.
	SampleSize int

	// MaxTracks stops the session after that many tracks; zero means run
	// until the context is cancelled.
	MaxTracks int

	// ExcludeSameArtist applies to the random fallback pick.
	ExcludeSameArtist bool

	// UseMetadata enables fact lookups for intro prompts.
	UseMetadata bool
}

// Session wires the decision engine to its collaborators. It owns no
// audio or model state itself; everything arrives through ports.
type Session struct {
	sampler  ports.CandidateSampler
	selector *selection.Engine
	duel     *intro.Duel
	metadata ports.MetadataSource
	player   ports.Player
	speaker  ports.Speaker
	history  ports.HistorySink
	logger   *zap.Logger
	config   Config
	rng      *rand.Rand
}

// New creates a Session. The metadata source may be nil; intros then use
// bare track names. History may be nil and defaults to NopHistory.
func New(
	sampler ports.CandidateSampler,
	selector *selection.Engine,
	duel *intro.Duel,
	metadata ports.MetadataSource,
	player ports.Player,
	speaker ports.Speaker,
	history ports.HistorySink,
	logger *zap.Logger,
	config Config,
) (*Session, error) {
	if sampler == nil || selector == nil || duel == nil || player == nil || speaker == nil {
		return nil, fmt.Errorf("sampler, selector, duel, player, and speaker are required")
	}
	if config.SampleSize < 2 {
		return nil, fmt.Errorf("sample size must be at least 2, got %d", config.SampleSize)
	}
	if history == nil {
		history = NopHistory{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		sampler:  sampler,
		selector: selector,
		duel:     duel,
		metadata: metadata,
		player:   player,
		speaker:  speaker,
		history:  history,
		logger:   logger,
		config:   config,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}, nil
}

// prepared is the output of one background round: the next track and its
// intro, ready before the current track ends.
type prepared struct {
	track    domain.Candidate
	intro    domain.IntroCandidate
	hasIntro bool
}

// Run plays tracks starting from first until ctx is cancelled or the
// configured track count is reached. The round for track N+1 runs while
// track N plays and is joined before N+1 starts; a cancelled context
// discards any in-flight round.
func (s *Session) Run(ctx context.Context, first domain.Candidate) error {
	current := first
	currentIntro, hasIntro := s.firstIntro(ctx, first)

	for played := 0; s.config.MaxTracks == 0 || played < s.config.MaxTracks; played++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if hasIntro {
			if err := s.speaker.Speak(ctx, currentIntro.Verdict.Text); err != nil {
				s.logger.Warn("intro playback failed", zap.Error(err))
			}
			if err := s.history.Record(current, currentIntro.Verdict.Text); err != nil {
				s.logger.Warn("history write failed", zap.Error(err))
			}
		} else {
			s.logger.Info("no usable intro, playing without one", zap.String("track", current.Identity))
			if err := s.history.Record(current, ""); err != nil {
				s.logger.Warn("history write failed", zap.Error(err))
			}
		}

		// Prepare the next round while the current track plays.
		prepCh := make(chan prepared, 1)
		go func(cur domain.Candidate) {
			prepCh <- s.prepareNext(ctx, cur)
		}(current)

		s.logger.Info("playing", zap.String("track", current.Identity))
		if err := s.player.Play(ctx, current); err != nil {
			if errors.Is(err, context.Canceled) {
				return ctx.Err()
			}
			s.logger.Warn("playback failed", zap.String("track", current.Identity), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case p := <-prepCh:
			current = p.track
			currentIntro = p.intro
			hasIntro = p.hasIntro
		}
	}
	return nil
}

// firstIntro generates the opening intro with a single generation; there
// is no previous track to duel over.
func (s *Session) firstIntro(ctx context.Context, track domain.Candidate) (domain.IntroCandidate, bool) {
	tctx := domain.TrackContext{Track: track, Facts: s.lookupFacts(ctx, track)}
	c, err := s.duel.RunSingle(ctx, tctx)
	if err != nil {
		s.logger.Warn("first intro failed", zap.Error(err))
		return domain.IntroCandidate{}, false
	}
	return c, true
}

// prepareNext runs one full round: sample, select (with random fallback),
// enrich, and duel. It never fails the session; the worst case is a random
// track with no intro.
func (s *Session) prepareNext(ctx context.Context, current domain.Candidate) prepared {
	sample, err := s.sampler.Sample(current, s.config.SampleSize)
	if err != nil {
		s.logger.Error("sampling failed, replaying current track", zap.Error(err))
		return prepared{track: current}
	}

	var next domain.Candidate
	result, err := s.selector.Select(ctx, current, sample)
	if err == nil {
		next = *result.Winner
		s.logger.Info("track selected",
			zap.String("round_id", result.RoundID),
			zap.String("track", next.Identity),
			zap.String("reason", result.Reason),
			zap.Bool("referee_used", result.RefereeUsed),
		)
	} else {
		s.logger.Warn("selection round failed, falling back to random", zap.Error(err))
		next, err = selection.Fallback(s.rng, current, sample, s.config.ExcludeSameArtist, selection.DefaultFallbackAttempts)
		if err != nil {
			s.logger.Error("random fallback failed, replaying current track", zap.Error(err))
			return prepared{track: current}
		}
	}

	tctx := domain.TrackContext{
		Track:         next,
		PreviousTitle: current.DisplayName(),
		Facts:         s.lookupFacts(ctx, next),
	}
	introCand, err := s.duel.Run(ctx, tctx)
	if err != nil {
		s.logger.Warn("intro duel failed, track plays without intro", zap.Error(err))
		return prepared{track: next}
	}
	return prepared{track: next, intro: introCand, hasIntro: true}
}

func (s *Session) lookupFacts(ctx context.Context, track domain.Candidate) string {
	if !s.config.UseMetadata || s.metadata == nil {
		return ""
	}
	facts, err := s.metadata.Facts(ctx, track)
	if err != nil {
		s.logger.Debug("metadata lookup failed", zap.String("track", track.Identity), zap.Error(err))
		return ""
	}
	return facts
}
