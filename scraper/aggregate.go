package scraper

import (
	"context"

	"github.com/mvdvldn03/ATLPublicTransit/models"
)

// AreaProber measures a single area.
type AreaProber interface {
	Probe(ctx context.Context, area string) models.ProbeResult
}

// Aggregate probes every member of group in listed order and averages the
// successful values. Failed members are excluded from the denominator; a
// group with no successes scores 0.0. Probing stops early only when ctx is
// done, in which case the returned metric is partial.
func Aggregate(ctx context.Context, p AreaProber, index int, group models.AreaGroup) *models.GroupMetric {
	m := &models.GroupMetric{
		Index: index,
		Label: group.Label,
	}

	var sum float64
	for _, area := range group.Areas {
		if ctx.Err() != nil {
			break
		}
		res := p.Probe(ctx, area)
		if res.OK() {
			sum += res.Value
			m.Successes++
			continue
		}
		m.Failures++
		m.Failed = append(m.Failed, area)
	}

	if m.Successes > 0 {
		m.Value = sum / float64(m.Successes)
	}
	return m
}
