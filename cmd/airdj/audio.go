package main

import (
	"context"
	"fmt"
	"math/rand"
	"os/exec"
	"strings"

	"go.uber.org/zap"

	"github.com/localfm/airdj/internal/domain"
	"github.com/localfm/airdj/internal/library"
	"github.com/localfm/airdj/internal/ports"
)

var (
	_ ports.Player  = (*execPlayer)(nil)
	_ ports.Speaker = (*execSpeaker)(nil)
)

// execPlayer plays tracks by shelling out to an external player such as
// ffplay or afplay. The track path is appended to the configured command.
type execPlayer struct {
	argv   []string
	logger *zap.Logger
}

func newExecPlayer(command string, logger *zap.Logger) *execPlayer {
	return &execPlayer{argv: strings.Fields(command), logger: logger}
}

// Play blocks until the player process exits or ctx is cancelled.
func (p *execPlayer) Play(ctx context.Context, track domain.Candidate) error {
	if len(p.argv) == 0 {
		return fmt.Errorf("no player command configured")
	}
	args := append(append([]string(nil), p.argv[1:]...), track.Identity)
	cmd := exec.CommandContext(ctx, p.argv[0], args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("player %s: %w", p.argv[0], err)
	}
	return nil
}

// execSpeaker speaks intro text through an external TTS command such as
// the macOS say binary. The text is appended as the final argument.
type execSpeaker struct {
	argv   []string
	logger *zap.Logger
}

func newExecSpeaker(command string, logger *zap.Logger) *execSpeaker {
	return &execSpeaker{argv: strings.Fields(command), logger: logger}
}

// Speak blocks until the TTS process exits or ctx is cancelled.
func (s *execSpeaker) Speak(ctx context.Context, text string) error {
	if len(s.argv) == 0 {
		return fmt.Errorf("no speaker command configured")
	}
	args := append(append([]string(nil), s.argv[1:]...), text)
	cmd := exec.CommandContext(ctx, s.argv[0], args...)
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("speaker %s: %w", s.argv[0], err)
	}
	return nil
}

// firstTrack picks a random opener from the library.
func firstTrack(lib *library.Library) (domain.Candidate, error) {
	tracks := lib.Tracks()
	if len(tracks) == 0 {
		return domain.Candidate{}, fmt.Errorf("library is empty")
	}
	return tracks[rand.Intn(len(tracks))], nil
}
