package session

import (
	"fmt"
	"os"
	"sync"

	"github.com/localfm/airdj/internal/domain"
	"github.com/localfm/airdj/internal/ports"
)

var (
	_ ports.HistorySink = (*FileHistory)(nil)
	_ ports.HistorySink = NopHistory{}
)

// FileHistory appends a SONG/INTRO record per played track to a plain text
// file. Records are written whole under a lock, so concurrent sessions
// sharing a file never interleave lines.
type FileHistory struct {
	mu   sync.Mutex
	path string
}

// NewFileHistory creates a sink appending to path. The file is created on
// first write.
func NewFileHistory(path string) *FileHistory {
	return &FileHistory{path: path}
}

// Record appends one SONG line and one INTRO line.
func (h *FileHistory) Record(track domain.Candidate, intro string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	f, err := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open history %s: %w", h.path, err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "SONG: %s\nINTRO: %s\n", track.Identity, intro); err != nil {
		return fmt.Errorf("write history: %w", err)
	}
	return nil
}

// NopHistory discards records. Used when no history path is configured.
type NopHistory struct{}

// Record does nothing.
func (NopHistory) Record(domain.Candidate, string) error { return nil }
