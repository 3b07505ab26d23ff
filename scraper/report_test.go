package scraper

import (
	"bytes"
	"testing"

	"github.com/mvdvldn03/ATLPublicTransit/models"
	"github.com/mvdvldn03/ATLPublicTransit/parser"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		mode     parser.Mode
		value    float64
		expected string
	}{
		{mode: parser.ModeTime, value: 30, expected: "30.0"},
		{mode: parser.ModeTime, value: 37.5, expected: "37.5"},
		{mode: parser.ModeTime, value: 0, expected: "0.0"},
		{mode: parser.ModeTime, value: -10, expected: "-10.0"},
		{mode: parser.ModeDistance, value: 2.345678, expected: "2.3457"},
		{mode: parser.ModeDistance, value: 7.9, expected: "7.9"},
		{mode: parser.ModeDistance, value: 3, expected: "3.0"},
	}

	for _, tt := range tests {
		if got := FormatValue(tt.mode, tt.value); got != tt.expected {
			t.Fatalf("FormatValue(%s, %v) = %q, want %q", tt.mode, tt.value, got, tt.expected)
		}
	}
}

func TestReporterLines(t *testing.T) {
	var out bytes.Buffer
	r := NewReporter(&out, parser.ModeDistance)

	r.AreaFailed("Bankhead")
	r.GroupDone(&models.GroupMetric{Index: 4, Value: 1.23456})

	want := "No route found for Bankhead\n4, 1.2346\n"
	if got := out.String(); got != want {
		t.Fatalf("report = %q, want %q", got, want)
	}
}

func TestNilReporter(t *testing.T) {
	var r *Reporter
	r.AreaFailed("Bankhead")
	r.GroupDone(&models.GroupMetric{Index: 1})
}
