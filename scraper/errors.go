package scraper

import (
	"context"
	"errors"

	"github.com/mvdvldn03/ATLPublicTransit/driver"
	"github.com/mvdvldn03/ATLPublicTransit/parser"
)

// Failure labels used in logs, metrics and RunResult.FailuresByType.
const (
	labelParse    = "parse"
	labelNotFound = "not_found"
	labelTimeout  = "timeout"
	labelUI       = "ui"
	labelCanceled = "canceled"
	labelOther    = "other"
)

// failureLabel classifies a probe error. Parse errors win over UI errors
// because the UI interaction completed; a missing element wins over a plain
// timeout because it names the step that never rendered.
func failureLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var parseErr *parser.ParseError
	if errors.As(err, &parseErr) {
		return labelParse
	}
	if errors.Is(err, context.Canceled) {
		return labelCanceled
	}
	if errors.Is(err, driver.ErrElementNotFound) {
		return labelNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, driver.ErrWaitTimeout) {
		return labelTimeout
	}
	var uiErr *driver.UIError
	if errors.As(err, &uiErr) {
		return labelUI
	}
	return labelOther
}
