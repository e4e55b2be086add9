// Package metadata fetches supporting prose about tracks for intro
// prompts. Lookups are strictly best-effort; every failure path returns an
// error and the caller falls back to a bare prompt.
package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/localfm/airdj/internal/domain"
	"github.com/localfm/airdj/internal/ports"
)

var _ ports.MetadataSource = (*Source)(nil)

const (
	defaultWikipediaBase = "https://en.wikipedia.org"
	defaultAllMusicBase  = "https://www.allmusic.com"
	userAgent            = "airdj/1.0 (local radio DJ)"
)

// Source looks up track facts on Wikipedia first and falls back to an
// AllMusic search. Both sites are polite-scraped with a short timeout.
type Source struct {
	client        *http.Client
	logger        *zap.Logger
	wikipediaBase string
	allMusicBase  string
}

// NewSource creates a Source. A nil client gets a five second timeout.
func NewSource(client *http.Client, logger *zap.Logger) *Source {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{
		client:        client,
		logger:        logger,
		wikipediaBase: defaultWikipediaBase,
		allMusicBase:  defaultAllMusicBase,
	}
}

// Facts returns a prose block describing the track, or an error when
// neither source had anything usable.
func (s *Source) Facts(ctx context.Context, track domain.Candidate) (string, error) {
	query := searchQuery(track)
	if query == "" {
		return "", fmt.Errorf("track %q has no searchable name", track.Identity)
	}

	if summary, err := s.wikipediaSummary(ctx, query); err == nil {
		return formatFacts(track, summary), nil
	} else {
		s.logger.Debug("wikipedia lookup failed", zap.String("query", query), zap.Error(err))
	}

	if desc, err := s.allMusicDescription(ctx, query); err == nil {
		return formatFacts(track, desc), nil
	} else {
		s.logger.Debug("allmusic lookup failed", zap.String("query", query), zap.Error(err))
	}

	return "", fmt.Errorf("no metadata found for %q", query)
}

// wikipediaSummary queries the REST summary endpoint for the page best
// matching query. Disambiguation pages are treated as a miss.
func (s *Source) wikipediaSummary(ctx context.Context, query string) (string, error) {
	endpoint := s.wikipediaBase + "/api/rest_v1/page/summary/" + url.PathEscape(query)
	body, err := s.get(ctx, endpoint)
	if err != nil {
		return "", err
	}
	defer body.Close()

	var payload struct {
		Type    string `json:"type"`
		Extract string `json:"extract"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode wikipedia summary: %w", err)
	}
	if payload.Type == "disambiguation" || strings.TrimSpace(payload.Extract) == "" {
		return "", fmt.Errorf("no usable wikipedia extract for %q", query)
	}
	return strings.TrimSpace(payload.Extract), nil
}

// allMusicDescription searches AllMusic and scrapes the description of the
// first song, album, or artist hit.
func (s *Source) allMusicDescription(ctx context.Context, query string) (string, error) {
	searchURL := s.allMusicBase + "/search/all/" + url.PathEscape(query)
	body, err := s.get(ctx, searchURL)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(body)
	body.Close()
	if err != nil {
		return "", fmt.Errorf("parse allmusic search: %w", err)
	}

	detailURL := ""
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		if strings.Contains(href, "/song/") || strings.Contains(href, "/album/") || strings.Contains(href, "/artist/") {
			if strings.HasPrefix(href, "/") {
				href = s.allMusicBase + href
			}
			detailURL = href
			return false
		}
		return true
	})
	if detailURL == "" {
		return "", fmt.Errorf("no allmusic result for %q", query)
	}

	detailBody, err := s.get(ctx, detailURL)
	if err != nil {
		return "", err
	}
	detail, err := goquery.NewDocumentFromReader(detailBody)
	detailBody.Close()
	if err != nil {
		return "", fmt.Errorf("parse allmusic page: %w", err)
	}

	desc, ok := detail.Find(`meta[name="description"]`).Attr("content")
	if !ok || strings.TrimSpace(desc) == "" {
		desc, ok = detail.Find(`meta[property="og:description"]`).Attr("content")
	}
	if !ok || strings.TrimSpace(desc) == "" {
		return "", fmt.Errorf("no description on %s", detailURL)
	}
	return strings.TrimSpace(desc), nil
}

func (s *Source) get(ctx context.Context, endpoint string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%s returned %d", endpoint, resp.StatusCode)
	}
	return resp.Body, nil
}

// searchQuery builds the lookup string from whatever metadata the track
// carries.
func searchQuery(track domain.Candidate) string {
	switch {
	case track.Title != "" && track.Artist != "":
		return track.Title + " " + track.Artist
	case track.Title != "":
		return track.Title
	default:
		return strings.TrimSpace(track.Base())
	}
}

// formatFacts renders the prompt block: known tags first, then the fetched
// prose.
func formatFacts(track domain.Candidate, prose string) string {
	var b strings.Builder
	if track.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", track.Title)
	}
	if track.Artist != "" {
		fmt.Fprintf(&b, "Artist: %s\n", track.Artist)
	}
	if track.Album != "" {
		fmt.Fprintf(&b, "Album: %s\n", track.Album)
	}
	b.WriteString("\n")
	b.WriteString(prose)
	return b.String()
}
