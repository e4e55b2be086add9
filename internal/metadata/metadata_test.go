package metadata

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localfm/airdj/internal/domain"
)

var metaTrack = domain.Candidate{
	Identity: "/music/02 - The Valves - Neon Lights.mp3",
	Title:    "Neon Lights",
	Artist:   "The Valves",
}

func newTestSource(wikipedia, allmusic string) *Source {
	s := NewSource(nil, nil)
	s.wikipediaBase = wikipedia
	s.allMusicBase = allmusic
	return s
}

func TestFactsFromWikipedia(t *testing.T) {
	wiki := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/api/rest_v1/page/summary/")
		w.Write([]byte(`{"type":"standard","extract":"Neon Lights is a 1978 song by The Valves."}`))
	}))
	defer wiki.Close()

	s := newTestSource(wiki.URL, "http://127.0.0.1:0")

	facts, err := s.Facts(context.Background(), metaTrack)
	require.NoError(t, err)
	assert.Contains(t, facts, "Title: Neon Lights")
	assert.Contains(t, facts, "Artist: The Valves")
	assert.Contains(t, facts, "1978 song")
}

func TestFactsDisambiguationFallsBack(t *testing.T) {
	wiki := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"disambiguation","extract":"Neon Lights may refer to:"}`))
	}))
	defer wiki.Close()

	var detailPath string
	allmusic := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/song/neon-lights-mn0001":
			detailPath = r.URL.Path
			w.Write([]byte(`<html><head><meta name="description" content="Song by The Valves, released 1978."></head></html>`))
		default:
			w.Write([]byte(`<html><body><a href="/song/neon-lights-mn0001">Neon Lights</a></body></html>`))
		}
	}))
	defer allmusic.Close()

	s := newTestSource(wiki.URL, allmusic.URL)

	facts, err := s.Facts(context.Background(), metaTrack)
	require.NoError(t, err)
	assert.Equal(t, "/song/neon-lights-mn0001", detailPath)
	assert.Contains(t, facts, "released 1978")
}

func TestFactsBothSourcesFail(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer failing.Close()

	s := newTestSource(failing.URL, failing.URL)

	_, err := s.Facts(context.Background(), metaTrack)
	assert.Error(t, err)
}

func TestFactsEmptyExtractFallsThrough(t *testing.T) {
	wiki := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"type":"standard","extract":""}`))
	}))
	defer wiki.Close()
	allmusic := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>no results</body></html>`))
	}))
	defer allmusic.Close()

	s := newTestSource(wiki.URL, allmusic.URL)

	_, err := s.Facts(context.Background(), metaTrack)
	assert.Error(t, err)
}

func TestSearchQuery(t *testing.T) {
	tests := []struct {
		name  string
		track domain.Candidate
		want  string
	}{
		{
			name:  "title and artist",
			track: metaTrack,
			want:  "Neon Lights The Valves",
		},
		{
			name:  "title only",
			track: domain.Candidate{Identity: "x.mp3", Title: "Neon Lights"},
			want:  "Neon Lights",
		},
		{
			name:  "identity fallback",
			track: domain.Candidate{Identity: "/music/neon_lights.mp3"},
			want:  "neon_lights.mp3",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, searchQuery(tt.track))
		})
	}
}
