package driver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
)

// Snapshot is an offline Session that replays recorded directions pages.
//
// Each recording is an HTML file in Dir named after the slug of the search
// query, e.g. "midtown-atlanta-ga.html" for "Midtown Atlanta, GA". A query
// without a recording behaves like a search whose result grid never renders.
type Snapshot struct {
	Dir       string
	Selectors Selectors

	query    string
	selected string
	resets   int
	closed   bool
}

// NewSnapshot returns a replay session over the recordings in dir.
func NewSnapshot(dir string) *Snapshot {
	return &Snapshot{Dir: dir, Selectors: DefaultSelectors()}
}

// SnapshotOpener returns an Opener that checks dir exists and replays it.
// Zero selectors fall back to DefaultSelectors.
func SnapshotOpener(dir string, sel Selectors) Opener {
	return func(ctx context.Context) (Session, error) {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("driver: snapshot dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("driver: snapshot dir %s is not a directory", dir)
		}
		s := NewSnapshot(dir)
		if sel != (Selectors{}) {
			s.Selectors = sel
		}
		return s, nil
	}
}

// Slug turns a search query into its recording file stem.
func Slug(query string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(query) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Search replaces the current query. Any text from a previous attempt is
// discarded.
func (s *Snapshot) Search(ctx context.Context, query string) error {
	if s.closed {
		return uiErr(OpSearch, "", ErrSessionClosed)
	}
	if err := ctx.Err(); err != nil {
		return uiErr(OpSearch, s.Selectors.SearchInput, err)
	}
	s.query = query
	s.selected = ""
	return nil
}

// SelectFirstResult commits to the recording for the current query.
func (s *Snapshot) SelectFirstResult(ctx context.Context) error {
	if s.closed {
		return uiErr(OpSelect, "", ErrSessionClosed)
	}
	if err := ctx.Err(); err != nil {
		return uiErr(OpSelect, s.Selectors.FirstResult, err)
	}
	if s.query == "" {
		return uiErr(OpSelect, s.Selectors.FirstResult, fmt.Errorf("%w: no search issued", ErrElementNotFound))
	}

	path := filepath.Join(s.Dir, Slug(s.query)+".html")
	if _, err := os.Stat(path); err != nil {
		return uiErr(OpSelect, s.Selectors.FirstResult, fmt.Errorf("%w: no result for %q", ErrElementNotFound, s.query))
	}
	s.selected = path
	return nil
}

// ReadItineraryText extracts the itinerary panel text of the selected
// recording. Text nodes are joined with spaces so adjacent elements never
// fuse into a single token.
func (s *Snapshot) ReadItineraryText(ctx context.Context) (string, error) {
	sel := s.Selectors.ItineraryPanel
	if s.closed {
		return "", uiErr(OpRead, "", ErrSessionClosed)
	}
	if err := ctx.Err(); err != nil {
		return "", uiErr(OpRead, sel, err)
	}
	if s.selected == "" {
		return "", uiErr(OpRead, sel, fmt.Errorf("%w: no route selected", ErrElementNotFound))
	}

	f, err := os.Open(s.selected)
	if err != nil {
		return "", uiErr(OpRead, sel, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return "", uiErr(OpRead, sel, fmt.Errorf("parse %s: %w", s.selected, err))
	}
	panel := doc.Find(sel).First()
	if panel.Length() == 0 {
		return "", uiErr(OpRead, sel, ErrElementNotFound)
	}
	return nodeText(panel), nil
}

// Reset drops the current query and selection.
func (s *Snapshot) Reset(ctx context.Context, baselineURL string) error {
	if s.closed {
		return uiErr(OpReset, "", ErrSessionClosed)
	}
	s.query = ""
	s.selected = ""
	s.resets++
	return nil
}

// Resets reports how many times the session was reset.
func (s *Snapshot) Resets() int {
	return s.resets
}

// Close marks the session unusable.
func (s *Snapshot) Close() error {
	s.closed = true
	return nil
}

func nodeText(sel *goquery.Selection) string {
	var parts []string
	sel.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			if t := strings.TrimSpace(c.Text()); t != "" {
				parts = append(parts, t)
			}
		case "script", "style", "#comment":
		default:
			if t := nodeText(c); t != "" {
				parts = append(parts, t)
			}
		}
	})
	return strings.Join(parts, " ")
}
