package parser

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestParseMinutes(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected float64
	}{
		{
			name:     "panel tokens",
			text:     strings.Join([]string{"Directions", "8:05—9:12", "AM", "Trip", "details", "8:05—9:40", "AM"}, " "),
			expected: 100,
		},
		{
			name:     "newlines and repeated spaces",
			text:     "Directions\n8:05—9:12 AM\n\n  Trip details\n8:05—8:47   AM\n41 min",
			expected: 47,
		},
		{
			name:     "arrival before baseline",
			text:     "x AM 7:10—7:50 AM",
			expected: -10,
		},
		{
			name:     "third marker ignored",
			text:     "a AM 8:00—10:05 AM 8:00—11:00 AM",
			expected: 125,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMinutes(tt.text)
			if err != nil {
				t.Fatalf("ParseMinutes() error = %v", err)
			}
			if got != tt.expected {
				t.Fatalf("ParseMinutes() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseMinutesFailures(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{name: "empty text", text: "", wantErr: ErrNoMarker},
		{name: "single marker", text: "Directions 8:05—9:12 AM", wantErr: ErrNoMarker},
		{name: "pm only", text: "5:05—5:40 PM 5:05—6:10 PM", wantErr: ErrNoMarker},
		{name: "missing em-dash", text: "8:05—9:12 AM 9:40 AM", wantErr: ErrMalformedToken},
		{name: "missing colon", text: "x AM 8:05—940 AM", wantErr: ErrMalformedToken},
		{name: "non numeric hour", text: "x AM 8:05—ab:40 AM", wantErr: ErrMalformedToken},
		{name: "non numeric minute", text: "x AM 8:05—9:4o AM", wantErr: ErrMalformedToken},
		{name: "hyphen instead of em-dash", text: "x AM 8:05-9:40 AM", wantErr: ErrMalformedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMinutes(tt.text)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
			var perr *ParseError
			if !errors.As(err, &perr) || perr.Mode != ModeTime {
				t.Fatalf("expected time ParseError, got %T", err)
			}
		})
	}
}

func TestParseMiles(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected float64
	}{
		{name: "plural", text: "Route 2.3 miles via I-75", expected: 2.3},
		{name: "singular", text: "Walk 1 mile to station", expected: 1},
		{name: "both summed", text: "Walk 0.4 mile then ride 7.5 miles", expected: 7.9},
		{name: "first plural only", text: "3 miles then 9 miles", expected: 3},
		{name: "multiline", text: "Trip\n12.25\nmiles\n", expected: 12.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMiles(tt.text)
			if err != nil {
				t.Fatalf("ParseMiles() error = %v", err)
			}
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Fatalf("ParseMiles() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestParseMilesFailures(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr error
	}{
		{name: "no unit", text: "Route 2.3 km", wantErr: ErrNoMarker},
		{name: "unit first", text: "miles 2.3", wantErr: ErrNoPrecedingToken},
		{name: "non numeric", text: "about two miles", wantErr: ErrMalformedToken},
		{name: "thousands separator", text: "1,204 miles", wantErr: ErrMalformedToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseMiles(tt.text)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseDispatch(t *testing.T) {
	text := "a AM 8:00—8:30 AM 4.5 miles"

	minutes, err := Parse(ModeTime, text)
	if err != nil || minutes != 30 {
		t.Fatalf("Parse(time) = %v, %v; want 30", minutes, err)
	}
	miles, err := Parse(ModeDistance, text)
	if err != nil || miles != 4.5 {
		t.Fatalf("Parse(distance) = %v, %v; want 4.5", miles, err)
	}
	if _, err := Parse(Mode("speed"), text); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input    string
		expected Mode
		wantErr  bool
	}{
		{input: "time", expected: ModeTime},
		{input: " Minutes ", expected: ModeTime},
		{input: "distance", expected: ModeDistance},
		{input: "MILES", expected: ModeDistance},
		{input: "fare", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMode(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMode(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.expected {
				t.Fatalf("ParseMode(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize(" Directions\n8:05—9:12  AM\tTrip ")
	want := []string{"Directions", "8:05—9:12", "AM", "Trip"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize() = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tokenize()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestReady(t *testing.T) {
	tests := []struct {
		name     string
		mode     Mode
		text     string
		expected bool
	}{
		{name: "time rendered", mode: ModeTime, text: "8:05—9:12 AM x 8:05—9:40 AM", expected: true},
		{name: "time summary only", mode: ModeTime, text: "8:05—9:12 AM", expected: false},
		{name: "distance rendered", mode: ModeDistance, text: "2.3 miles", expected: true},
		{name: "distance loading", mode: ModeDistance, text: "Loading…", expected: false},
		{name: "unknown mode any text", mode: Mode("x"), text: "anything", expected: true},
		{name: "unknown mode blank", mode: Mode("x"), text: "  ", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Ready(tt.mode, tt.text); got != tt.expected {
				t.Fatalf("Ready(%q, %q) = %v, want %v", tt.mode, tt.text, got, tt.expected)
			}
		})
	}
}
