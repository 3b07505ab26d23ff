// Package parser extracts commute metrics from itinerary panel text.
//
// The extraction rules are positional: time mode reads the token before the
// second "AM" marker, distance mode reads the token before a "mile" or
// "miles" unit. They reproduce the figures the directions panel renders and
// will break if the panel layout changes.
package parser

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Mode selects which metric is extracted from itinerary text.
type Mode string

const (
	ModeTime     Mode = "time"
	ModeDistance Mode = "distance"
)

// BaselineHour is the departure hour that arrival times are measured against.
const BaselineHour = 8

const (
	meridiemMarker = "AM"
	rangeSeparator = "—" // em-dash between departure and arrival times
)

var unitTokens = []string{"mile", "miles"}

var (
	// ErrNoMarker means the structural token the mode depends on is absent.
	ErrNoMarker = errors.New("marker not found")
	// ErrNoPrecedingToken means the marker was the first token.
	ErrNoPrecedingToken = errors.New("no token before marker")
	// ErrMalformedToken means the value token could not be decoded.
	ErrMalformedToken = errors.New("malformed value token")
)

// ParseError reports why itinerary text did not yield a metric.
type ParseError struct {
	Mode   Mode
	Token  string
	Reason error
}

func (e *ParseError) Error() string {
	if e.Token != "" {
		return fmt.Errorf("parse %s: %q: %w", e.Mode, e.Token, e.Reason).Error()
	}
	return fmt.Errorf("parse %s: %w", e.Mode, e.Reason).Error()
}

func (e *ParseError) Unwrap() error {
	return e.Reason
}

// ParseMode resolves a user-supplied mode name.
func ParseMode(name string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "time", "minutes":
		return ModeTime, nil
	case "distance", "miles":
		return ModeDistance, nil
	default:
		return "", fmt.Errorf("unknown mode %q (want time or distance)", name)
	}
}

// Tokenize splits text on any run of whitespace, newlines included.
func Tokenize(text string) []string {
	return strings.Fields(text)
}

// Parse extracts the metric for mode from text.
func Parse(mode Mode, text string) (float64, error) {
	switch mode {
	case ModeTime:
		return ParseMinutes(text)
	case ModeDistance:
		return ParseMiles(text)
	default:
		return 0, fmt.Errorf("unknown mode %q", mode)
	}
}

// ParseMinutes returns the arrival time of the default route as minutes past
// BaselineHour.
//
// The first "AM" belongs to the panel summary line and is skipped. The token
// before the second "AM" has the form "<depart>—<arrival>", e.g. "8:05—9:40",
// which yields (9-8)*60+40 = 100.
func ParseMinutes(text string) (float64, error) {
	tokens := Tokenize(text)

	idx := nthIndex(tokens, meridiemMarker, 2)
	if idx < 0 {
		return 0, &ParseError{Mode: ModeTime, Reason: ErrNoMarker}
	}
	if idx == 0 {
		return 0, &ParseError{Mode: ModeTime, Reason: ErrNoPrecedingToken}
	}

	token := tokens[idx-1]
	clauses := strings.Split(token, rangeSeparator)
	if len(clauses) < 2 {
		return 0, &ParseError{Mode: ModeTime, Token: token, Reason: ErrMalformedToken}
	}

	clock := strings.Split(clauses[1], ":")
	if len(clock) < 2 {
		return 0, &ParseError{Mode: ModeTime, Token: token, Reason: ErrMalformedToken}
	}
	hour, err := strconv.Atoi(clock[0])
	if err != nil {
		return 0, &ParseError{Mode: ModeTime, Token: token, Reason: fmt.Errorf("%w: hour: %v", ErrMalformedToken, err)}
	}
	minute, err := strconv.Atoi(clock[1])
	if err != nil {
		return 0, &ParseError{Mode: ModeTime, Token: token, Reason: fmt.Errorf("%w: minute: %v", ErrMalformedToken, err)}
	}

	return float64((hour-BaselineHour)*60 + minute), nil
}

// ParseMiles returns the route distance in miles. The magnitude is the token
// preceding the first "mile" and the first "miles"; when both appear their
// values are summed.
func ParseMiles(text string) (float64, error) {
	tokens := Tokenize(text)

	var (
		total float64
		found bool
	)
	for _, unit := range unitTokens {
		idx := nthIndex(tokens, unit, 1)
		if idx < 0 {
			continue
		}
		if idx == 0 {
			return 0, &ParseError{Mode: ModeDistance, Token: unit, Reason: ErrNoPrecedingToken}
		}
		token := tokens[idx-1]
		value, err := strconv.ParseFloat(token, 64)
		if err != nil {
			return 0, &ParseError{Mode: ModeDistance, Token: token, Reason: fmt.Errorf("%w: %v", ErrMalformedToken, err)}
		}
		total += value
		found = true
	}

	if !found {
		return 0, &ParseError{Mode: ModeDistance, Reason: ErrNoMarker}
	}
	return total, nil
}

// nthIndex returns the index of the n-th (1-based) token equal to want, or -1.
func nthIndex(tokens []string, want string, n int) int {
	seen := 0
	for i, tok := range tokens {
		if tok != want {
			continue
		}
		seen++
		if seen == n {
			return i
		}
	}
	return -1
}

// Ready reports whether text carries the markers mode reads from, i.e.
// whether a still-rendering panel has finished. It does not validate the
// value tokens.
func Ready(mode Mode, text string) bool {
	tokens := Tokenize(text)
	switch mode {
	case ModeTime:
		return nthIndex(tokens, meridiemMarker, 2) >= 0
	case ModeDistance:
		for _, unit := range unitTokens {
			if nthIndex(tokens, unit, 1) >= 0 {
				return true
			}
		}
		return false
	default:
		return len(tokens) > 0
	}
}
