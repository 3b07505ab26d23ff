// Package driver abstracts the interactive maps UI that commute metrics are
// scraped from.
//
// A Session is a single stateful browser tab. It is not safe for concurrent
// use: search text, selected result and navigation state are shared by every
// call, so callers must issue operations strictly one after another.
package driver

import (
	"context"
	"errors"
	"fmt"
)

// UIDriver is the set of UI capabilities a probe needs.
type UIDriver interface {
	// Search clears the destination input and types query into it.
	Search(ctx context.Context, query string) error
	// SelectFirstResult commits to the first suggestion in the results grid,
	// which is what triggers route computation.
	SelectFirstResult(ctx context.Context) error
	// ReadItineraryText returns the raw text of the default route's
	// itinerary panel.
	ReadItineraryText(ctx context.Context) (string, error)
	// Reset navigates back to the baseline route.
	Reset(ctx context.Context, baselineURL string) error
}

// Session is a UIDriver with an explicit lifetime.
type Session interface {
	UIDriver
	Close() error
}

// Opener creates a Session. Callers navigate it with Reset before use.
type Opener func(ctx context.Context) (Session, error)

// Operation names reported in UIError.
const (
	OpSearch = "search"
	OpSelect = "select"
	OpRead   = "read"
	OpReset  = "reset"
)

var (
	// ErrElementNotFound means an expected element never appeared.
	ErrElementNotFound = errors.New("element not found")
	// ErrSessionClosed is returned by operations on a closed session.
	ErrSessionClosed = errors.New("session closed")
)

// UIError indicates a UI operation could not locate or drive its element.
type UIError struct {
	Op       string
	Selector string
	Err      error
}

func (e *UIError) Error() string {
	if e.Selector != "" {
		return fmt.Errorf("ui %s %s: %w", e.Op, e.Selector, e.Err).Error()
	}
	return fmt.Errorf("ui %s: %w", e.Op, e.Err).Error()
}

func (e *UIError) Unwrap() error {
	return e.Err
}

func uiErr(op, selector string, err error) error {
	if err == nil {
		return nil
	}
	return &UIError{Op: op, Selector: selector, Err: err}
}
