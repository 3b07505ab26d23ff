package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const midtownPage = `<html><body>
<div id="pane">
  <div id="section-directions-trip-0">
    <h1>Directions</h1><span>8:05—9:12</span><span>AM</span>
    <div class="details">Trip details <span>8:05—9:40</span> AM</div>
    <script>var x = "AM";</script>
  </div>
  <div id="section-directions-trip-1"><span>8:05—10:00</span> AM</div>
</div>
</body></html>`

func writeRecording(t *testing.T, dir, query, body string) {
	t.Helper()
	path := filepath.Join(dir, Slug(query)+".html")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write recording: %v", err)
	}
}

func TestSlug(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "Midtown Atlanta, GA", expected: "midtown-atlanta-ga"},
		{input: "  Grant Park  Atlanta, GA ", expected: "grant-park-atlanta-ga"},
		{input: "Home Park/Georgia Tech", expected: "home-park-georgia-tech"},
		{input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Slug(tt.input); got != tt.expected {
				t.Fatalf("Slug(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestSnapshotReadsFirstPanel(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, dir, "Midtown Atlanta, GA", midtownPage)

	ctx := context.Background()
	s := NewSnapshot(dir)

	if err := s.Search(ctx, "Midtown Atlanta, GA"); err != nil {
		t.Fatalf("search: %v", err)
	}
	if err := s.SelectFirstResult(ctx); err != nil {
		t.Fatalf("select: %v", err)
	}
	text, err := s.ReadItineraryText(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	want := "Directions 8:05—9:12 AM Trip details 8:05—9:40 AM"
	if text != want {
		t.Fatalf("text = %q, want %q", text, want)
	}
}

func TestSnapshotMissingRecording(t *testing.T) {
	s := NewSnapshot(t.TempDir())
	ctx := context.Background()

	if err := s.Search(ctx, "Nowhere Atlanta, GA"); err != nil {
		t.Fatalf("search: %v", err)
	}
	err := s.SelectFirstResult(ctx)
	if !errors.Is(err, ErrElementNotFound) {
		t.Fatalf("expected ErrElementNotFound, got %v", err)
	}
	var uiErr *UIError
	if !errors.As(err, &uiErr) || uiErr.Op != OpSelect {
		t.Fatalf("expected select UIError, got %#v", err)
	}
}

func TestSnapshotMissingPanel(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, dir, "Empty Atlanta, GA", "<html><body><p>No routes</p></body></html>")

	ctx := context.Background()
	s := NewSnapshot(dir)
	_ = s.Search(ctx, "Empty Atlanta, GA")
	if err := s.SelectFirstResult(ctx); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := s.ReadItineraryText(ctx); !errors.Is(err, ErrElementNotFound) {
		t.Fatalf("expected ErrElementNotFound, got %v", err)
	}
}

func TestSnapshotResetClearsState(t *testing.T) {
	dir := t.TempDir()
	writeRecording(t, dir, "Midtown Atlanta, GA", midtownPage)

	ctx := context.Background()
	s := NewSnapshot(dir)
	_ = s.Search(ctx, "Midtown Atlanta, GA")
	_ = s.SelectFirstResult(ctx)

	if err := s.Reset(ctx, "https://maps.example/baseline"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s.Resets() != 1 {
		t.Fatalf("resets = %d, want 1", s.Resets())
	}
	if _, err := s.ReadItineraryText(ctx); !errors.Is(err, ErrElementNotFound) {
		t.Fatalf("read after reset should fail, got %v", err)
	}
}

func TestSnapshotClosed(t *testing.T) {
	s := NewSnapshot(t.TempDir())
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := s.Search(context.Background(), "x"); !errors.Is(err, ErrSessionClosed) {
		t.Fatalf("expected ErrSessionClosed, got %v", err)
	}
}

func TestSnapshotOpener(t *testing.T) {
	dir := t.TempDir()
	if _, err := SnapshotOpener(dir, Selectors{})(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := SnapshotOpener(filepath.Join(dir, "missing"), Selectors{})(context.Background()); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestShouldBlock(t *testing.T) {
	blockSet := map[string]bool{"images": true, "fonts": true}
	tests := []struct {
		resType  string
		expected bool
	}{
		{resType: "Image", expected: true},
		{resType: "Font", expected: true},
		{resType: "Stylesheet", expected: false},
		{resType: "Document", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.resType, func(t *testing.T) {
			if got := shouldBlock(blockSet, tt.resType); got != tt.expected {
				t.Fatalf("shouldBlock(%q) = %v, want %v", tt.resType, got, tt.expected)
			}
		})
	}
}
