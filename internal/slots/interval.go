package slots

import (
	"time"

	"github.com/julianstephens/weekcal/internal/models"
)

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether two half-open intervals intersect.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start.Before(other.End) && other.Start.Before(iv.End)
}

// Expand widens the interval by buffer on both ends.
func (iv Interval) Expand(buffer time.Duration) Interval {
	if buffer <= 0 {
		return iv
	}
	return Interval{Start: iv.Start.Add(-buffer), End: iv.End.Add(buffer)}
}

func (iv Interval) Duration() time.Duration {
	return iv.End.Sub(iv.Start)
}

// FromBusy converts busy intervals to plain intervals.
func FromBusy(busy []models.BusyInterval) []Interval {
	out := make([]Interval, 0, len(busy))
	for _, b := range busy {
		out = append(out, Interval{Start: b.Start, End: b.End})
	}
	return out
}
