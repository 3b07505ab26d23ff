package scraper

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/mvdvldn03/ATLPublicTransit/driver"
	"github.com/mvdvldn03/ATLPublicTransit/parser"
)

const testBaseline = "https://maps.example.test/dir/Home/Work"

// fakeSession replays itinerary texts keyed by search query.
type fakeSession struct {
	texts     map[string]string
	searchErr map[string]error
	selectErr map[string]error
	resetErr  error
	onSearch  func(query string)

	current   string
	calls     []string
	resetURLs []string
	closed    bool
}

func newFakeSession(texts map[string]string) *fakeSession {
	return &fakeSession{
		texts:     texts,
		searchErr: make(map[string]error),
		selectErr: make(map[string]error),
	}
}

func (f *fakeSession) Search(ctx context.Context, query string) error {
	f.calls = append(f.calls, "search:"+query)
	if f.onSearch != nil {
		f.onSearch(query)
	}
	if err := f.searchErr[query]; err != nil {
		return err
	}
	f.current = query
	return nil
}

func (f *fakeSession) SelectFirstResult(ctx context.Context) error {
	f.calls = append(f.calls, "select")
	if err := f.selectErr[f.current]; err != nil {
		return err
	}
	return nil
}

func (f *fakeSession) ReadItineraryText(ctx context.Context) (string, error) {
	f.calls = append(f.calls, "read")
	text, ok := f.texts[f.current]
	if !ok {
		return "", &driver.UIError{Op: driver.OpRead, Selector: "#trip", Err: driver.ErrElementNotFound}
	}
	return text, nil
}

func (f *fakeSession) Reset(ctx context.Context, baselineURL string) error {
	f.calls = append(f.calls, "reset")
	f.resetURLs = append(f.resetURLs, baselineURL)
	f.current = ""
	return f.resetErr
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

func (f *fakeSession) count(prefix string) int {
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

// arrival renders an itinerary whose default route arrives minutes past
// the baseline hour.
func arrival(minutes int) string {
	return fmt.Sprintf("Directions 8:00—8:10 AM Trip 8:00—%d:%02d AM", parser.BaselineHour+minutes/60, minutes%60)
}

func testProbeConfig() ProbeConfig {
	return ProbeConfig{
		Mode:        parser.ModeTime,
		BaselineURL: testBaseline,
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
