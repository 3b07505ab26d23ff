package scraper

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/mvdvldn03/ATLPublicTransit/models"
	"github.com/mvdvldn03/ATLPublicTransit/parser"
)

// Reporter prints the human-readable progress lines of a run: one line per
// failed area and one "<index>, <metric>" line per group. A nil Reporter
// prints nothing.
type Reporter struct {
	w    io.Writer
	mode parser.Mode
}

// NewReporter returns a Reporter writing to w.
func NewReporter(w io.Writer, mode parser.Mode) *Reporter {
	return &Reporter{w: w, mode: mode}
}

// AreaFailed reports an area that produced no route.
func (r *Reporter) AreaFailed(area string) {
	if r == nil || r.w == nil {
		return
	}
	fmt.Fprintf(r.w, "No route found for %s\n", area)
}

// GroupDone reports the metric of a finished group.
func (r *Reporter) GroupDone(m *models.GroupMetric) {
	if r == nil || r.w == nil {
		return
	}
	fmt.Fprintf(r.w, "%d, %s\n", m.Index, FormatValue(r.mode, m.Value))
}

// FormatValue renders a metric the way progress lines show it. Distances are
// rounded to four decimals; whole numbers keep a trailing ".0".
func FormatValue(mode parser.Mode, v float64) string {
	if mode == parser.ModeDistance {
		v = math.Round(v*1e4) / 1e4
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
