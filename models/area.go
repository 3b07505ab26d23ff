// Package models defines data structures for the commute measurement run.
package models

import (
	"errors"
	"strings"
	"time"
)

// AreaGroup is one statistical-area record: the comma-separated area names
// that share a single label.
type AreaGroup struct {
	Label string   `json:"label"`
	Areas []string `json:"areas"`
}

// ParseAreaGroup splits a comma-delimited record into trimmed area names.
// Empty names (stray or trailing commas) are dropped.
func ParseAreaGroup(record string) AreaGroup {
	parts := strings.Split(record, ",")
	areas := make([]string, 0, len(parts))
	for _, part := range parts {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		areas = append(areas, name)
	}
	return AreaGroup{
		Label: strings.TrimSpace(record),
		Areas: areas,
	}
}

var errUnknownFailure = errors.New("probe failed")

// ProbeResult is the outcome of measuring a single area. Err is nil exactly
// when the probe produced a value.
type ProbeResult struct {
	Area     string
	Value    float64
	Err      error
	Cached   bool
	Duration time.Duration
}

// Success builds a successful probe outcome.
func Success(area string, value float64) ProbeResult {
	return ProbeResult{Area: area, Value: value}
}

// Failure builds a failed probe outcome. A nil reason is never stored so the
// result cannot be mistaken for a success.
func Failure(area string, reason error) ProbeResult {
	if reason == nil {
		reason = errUnknownFailure
	}
	return ProbeResult{Area: area, Err: reason}
}

// OK reports whether the probe produced a value.
func (r ProbeResult) OK() bool {
	return r.Err == nil
}

// GroupMetric is the mean of the successful probes of one AreaGroup.
type GroupMetric struct {
	Index     int      `json:"index"`
	Label     string   `json:"label"`
	Value     float64  `json:"value"`
	Successes int      `json:"successes"`
	Failures  int      `json:"failures"`
	Failed    []string `json:"failed,omitempty"`
}

// Empty reports whether no member of the group produced a value.
func (m *GroupMetric) Empty() bool {
	return m.Successes == 0
}

// RunResult holds the overall result of a measurement run.
type RunResult struct {
	Metrics        []*GroupMetric
	StartTime      time.Time
	EndTime        time.Time
	ProbeCount     int
	FailureCount   int
	ResetCount     int
	CacheHits      int
	FailuresByType map[string]int
}

// Values returns the group metrics in input order.
func (r *RunResult) Values() []float64 {
	out := make([]float64, len(r.Metrics))
	for i, m := range r.Metrics {
		out[i] = m.Value
	}
	return out
}
