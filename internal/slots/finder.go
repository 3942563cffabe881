package slots

import (
	"sort"
	"time"

	"github.com/julianstephens/weekcal/internal/utils"
)

// Request describes one slot search.
type Request struct {
	Duration    time.Duration
	Buffer      time.Duration
	Granularity time.Duration
	// NotBefore is the earliest allowed start.
	NotBefore time.Time
	// WindowEnd bounds the search; a slot must start before it.
	WindowEnd time.Time
}

// FindSlot returns the earliest slot of req.Duration that lies within working
// hours, starts at or after NotBefore on the granularity grid (counted from
// local midnight) and does not intersect any busy interval widened by Buffer.
func FindSlot(busy []Interval, wh WorkingHours, req Request) (Interval, bool) {
	if req.Duration <= 0 || !req.NotBefore.Before(req.WindowEnd) {
		return Interval{}, false
	}
	gran := req.Granularity
	if gran <= 0 {
		gran = time.Minute
	}

	blocked := make([]Interval, 0, len(busy))
	for _, b := range busy {
		e := b.Expand(req.Buffer)
		if e.End.After(req.NotBefore) && e.Start.Before(req.WindowEnd.Add(req.Duration)) {
			blocked = append(blocked, e)
		}
	}
	sort.Slice(blocked, func(i, j int) bool { return blocked[i].Start.Before(blocked[j].Start) })

	for day := utils.StartOfDay(req.NotBefore, wh.Location); day.Before(req.WindowEnd); day = utils.AddDays(day, 1, wh.Location) {
		if !wh.IsWorkingDay(day) {
			continue
		}
		window := wh.Window(day)

		cand := window.Start
		if cand.Before(req.NotBefore) {
			cand = req.NotBefore
		}
		cand = snapUp(cand, day, gran)

		for cand.Before(req.WindowEnd) {
			slot := Interval{Start: cand, End: cand.Add(req.Duration)}
			// both instants must sit in [window.Start, window.End)
			if !slot.End.Before(window.End) {
				break
			}
			conflict, ok := firstConflict(blocked, slot)
			if !ok {
				return slot, true
			}
			cand = snapUp(conflict.End, day, gran)
		}
	}
	return Interval{}, false
}

// HasWorkingTime reports whether [from, to) contains any working time at all.
func HasWorkingTime(wh WorkingHours, from, to time.Time) bool {
	if !from.Before(to) {
		return false
	}
	for day := utils.StartOfDay(from, wh.Location); day.Before(to); day = utils.AddDays(day, 1, wh.Location) {
		if !wh.IsWorkingDay(day) {
			continue
		}
		w := wh.Window(day)
		if w.Overlaps(Interval{Start: from, End: to}) {
			return true
		}
	}
	return false
}

// firstConflict returns the blocking interval with the latest end among those
// overlapping slot, so the caller can jump past all of them at once.
func firstConflict(blocked []Interval, slot Interval) (Interval, bool) {
	var (
		hit   Interval
		found bool
	)
	for _, b := range blocked {
		if !b.Start.Before(slot.End) {
			break
		}
		if b.Overlaps(slot) && (!found || b.End.After(hit.End)) {
			hit = b
			found = true
		}
	}
	return hit, found
}

// snapUp rounds t up to the next multiple of gran counted from dayStart.
func snapUp(t, dayStart time.Time, gran time.Duration) time.Time {
	offset := t.Sub(dayStart)
	if rem := offset % gran; rem != 0 {
		if rem < 0 {
			rem += gran
		}
		return t.Add(gran - rem)
	}
	return t
}
