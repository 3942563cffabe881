package ical

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/weekcal/internal/constants"
	"github.com/julianstephens/weekcal/internal/models"
)

const maxLineOctets = 75

// FeedMeta carries the document-level values a rendered feed depends on.
type FeedMeta struct {
	Name        string
	GeneratedAt time.Time
	Revision    string
	// Sequence is the monotonic publish counter for Revision.
	Sequence int
	// Refresh is the client polling hint; zero means the default of five minutes.
	Refresh time.Duration
}

// Render produces a calendar document with one VEVENT per item. Output is
// byte-identical for identical items and meta.
func Render(items []models.ScheduledItem, meta FeedMeta) string {
	refresh := meta.Refresh
	if refresh <= 0 {
		refresh = constants.FeedRefreshInterval
	}
	name := meta.Name
	if name == "" {
		name = constants.FeedCalendarName
	}
	stamp := meta.GeneratedAt.UTC().Format(constants.ICalDateTimeFormat)

	sorted := make([]models.ScheduledItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Start.Equal(sorted[j].Start) {
			return sorted[i].Start.Before(sorted[j].Start)
		}
		return sorted[i].EntryPath < sorted[j].EntryPath
	})

	var b strings.Builder
	w := func(line string) {
		b.WriteString(fold(line))
		b.WriteString("\r\n")
	}

	w("BEGIN:VCALENDAR")
	w("VERSION:2.0")
	w("PRODID:" + constants.FeedProductID)
	w("CALSCALE:GREGORIAN")
	w("METHOD:PUBLISH")
	w("X-WR-CALNAME:" + Escape(name))
	w("REFRESH-INTERVAL;VALUE=DURATION:" + FormatDuration(refresh))
	w("X-PUBLISHED-TTL:" + FormatDuration(refresh))

	for _, item := range sorted {
		w("BEGIN:VEVENT")
		w("UID:" + item.UID)
		w("DTSTAMP:" + stamp)
		w("DTSTART:" + item.Start.UTC().Format(constants.ICalDateTimeFormat))
		w("DTEND:" + item.End.UTC().Format(constants.ICalDateTimeFormat))
		w("SUMMARY:" + Escape(item.Title))
		if item.Reason != "" {
			w("DESCRIPTION:" + Escape(item.Reason))
		}
		w(fmt.Sprintf("SEQUENCE:%d", meta.Sequence))
		w("LAST-MODIFIED:" + stamp)
		w("END:VEVENT")
	}

	w("END:VCALENDAR")
	return b.String()
}

// FormatDuration renders a positive duration as an RFC 5545 DURATION value (e.g. PT5M).
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "PT0S"
	}
	var b strings.Builder
	b.WriteString("P")
	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	if days > 0 {
		fmt.Fprintf(&b, "%dD", days)
	}
	if d == 0 {
		return b.String()
	}
	b.WriteString("T")
	if h := d / time.Hour; h > 0 {
		fmt.Fprintf(&b, "%dH", h)
		d -= h * time.Hour
	}
	if m := d / time.Minute; m > 0 {
		fmt.Fprintf(&b, "%dM", m)
		d -= m * time.Minute
	}
	if s := d / time.Second; s > 0 {
		fmt.Fprintf(&b, "%dS", s)
	}
	return b.String()
}

// fold splits a content line into 75-octet chunks without breaking UTF-8 sequences.
func fold(line string) string {
	if len(line) <= maxLineOctets {
		return line
	}

	var b strings.Builder
	limit := maxLineOctets
	for len(line) > limit {
		cut := limit
		// back off to a rune boundary
		for cut > 0 && line[cut]&0xC0 == 0x80 {
			cut--
		}
		b.WriteString(line[:cut])
		b.WriteString("\r\n ")
		line = line[cut:]
		limit = maxLineOctets - 1
	}
	b.WriteString(line)
	return b.String()
}
