// Package library maintains the scanned music collection and samples
// candidate sets for selection rounds.
package library

import (
	"context"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/localfm/airdj/internal/domain"
	"github.com/localfm/airdj/internal/ports"
)

var _ ports.CandidateSampler = (*Library)(nil)

// audioExtensions lists the playable file types, matching what the player
// collaborators handle.
var audioExtensions = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".ogg":  true,
}

// Library is the scanned track collection. Reads and rescans may happen
// concurrently; the watcher rescans in the background while the session
// samples.
type Library struct {
	dir    string
	logger *zap.Logger

	mu     sync.RWMutex
	tracks []domain.Candidate

	watcher *fsnotify.Watcher
}

// New creates a Library rooted at dir and performs the initial scan.
func New(dir string, logger *zap.Logger) (*Library, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	l := &Library{dir: dir, logger: logger}
	if err := l.Scan(); err != nil {
		return nil, err
	}
	return l, nil
}

// Scan walks the library directory and replaces the track list with the
// sorted result.
func (l *Library) Scan() error {
	var tracks []domain.Candidate
	err := filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != l.dir {
				return filepath.SkipDir
			}
			return nil
		}
		if audioExtensions[strings.ToLower(filepath.Ext(path))] {
			tracks = append(tracks, candidateFromPath(path))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan library %s: %w", l.dir, err)
	}
	sort.Slice(tracks, func(i, j int) bool { return tracks[i].Identity < tracks[j].Identity })

	l.mu.Lock()
	l.tracks = tracks
	l.mu.Unlock()

	l.logger.Info("library scanned", zap.String("dir", l.dir), zap.Int("tracks", len(tracks)))
	return nil
}

// Tracks returns a copy of the current track list.
func (l *Library) Tracks() []domain.Candidate {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Candidate, len(l.tracks))
	copy(out, l.tracks)
	return out
}

// Size returns the number of known tracks.
func (l *Library) Size() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.tracks)
}

// Sample returns up to n distinct tracks drawn uniformly at random,
// never including current. It satisfies the selection round's candidate
// set invariants: non-empty and duplicate-free.
func (l *Library) Sample(current domain.Candidate, n int) ([]domain.Candidate, error) {
	if n < 1 {
		return nil, fmt.Errorf("sample size must be positive, got %d", n)
	}

	pool := l.Tracks()
	eligible := pool[:0:0]
	for _, c := range pool {
		if !c.Equal(current) {
			eligible = append(eligible, c)
		}
	}
	if len(eligible) == 0 {
		return nil, domain.ErrEmptyCandidateSet
	}

	rand.Shuffle(len(eligible), func(i, j int) {
		eligible[i], eligible[j] = eligible[j], eligible[i]
	})
	if len(eligible) > n {
		eligible = eligible[:n]
	}
	sort.Slice(eligible, func(i, j int) bool { return eligible[i].Identity < eligible[j].Identity })
	return eligible, nil
}

// Watch rescans whenever files appear, disappear, or are renamed under the
// library root. It blocks until ctx is cancelled.
func (l *Library) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()
	l.watcher = watcher

	if err := l.watchTree(watcher); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			l.logger.Debug("library changed", zap.String("path", event.Name), zap.String("op", event.Op.String()))
			if err := l.Scan(); err != nil {
				l.logger.Warn("rescan failed", zap.Error(err))
			}
			// New directories need their own watch.
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				_ = watcher.Add(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func (l *Library) watchTree(watcher *fsnotify.Watcher) error {
	return filepath.WalkDir(l.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := watcher.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
		}
		return nil
	})
}

// candidateFromPath builds a Candidate from a file path, parsing best-effort
// display metadata out of "NN - Artist - Title.ext" style names.
func candidateFromPath(path string) domain.Candidate {
	c := domain.Candidate{Identity: path}

	name := filepath.Base(path)
	name = strings.TrimSuffix(name, filepath.Ext(name))

	parts := strings.Split(name, " - ")
	for len(parts) > 0 && isTrackNumber(parts[0]) {
		parts = parts[1:]
	}
	switch len(parts) {
	case 0:
		c.Title = name
	case 1:
		c.Title = strings.TrimSpace(parts[0])
	default:
		c.Artist = strings.TrimSpace(parts[0])
		c.Title = strings.TrimSpace(strings.Join(parts[1:], " - "))
	}
	return c
}

// isTrackNumber reports whether s is a bare 1-3 digit track prefix.
// Longer digit runs ("1999") are treated as titles, not track numbers.
func isTrackNumber(s string) bool {
	s = strings.TrimSpace(s)
	if len(s) == 0 || len(s) > 3 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
