package ical

import (
	"strings"
	"time"

	"github.com/julianstephens/weekcal/internal/constants"
	"github.com/julianstephens/weekcal/internal/models"
)

// contentLine is one unfolded "NAME;PARAM=V:VALUE" line.
type contentLine struct {
	name   string
	params map[string]string
	value  string
}

// eventProps collects the properties of a single VEVENT.
type eventProps struct {
	uid, summary, location string
	status, transp         string
	dtstart, dtend         *contentLine
}

// Parse extracts busy intervals from a calendar document. Malformed events are
// skipped individually; the output order is unspecified.
func Parse(document string, sourceID string) []models.BusyInterval {
	var (
		intervals []models.BusyInterval
		current   *eventProps
		nested    int
	)

	for _, raw := range unfold(document) {
		line, ok := parseContentLine(raw)
		if !ok {
			continue
		}

		switch line.name {
		case "BEGIN":
			comp := strings.ToUpper(strings.TrimSpace(line.value))
			if current != nil {
				nested++
			} else if comp == "VEVENT" {
				current = &eventProps{}
				nested = 0
			}
			continue
		case "END":
			comp := strings.ToUpper(strings.TrimSpace(line.value))
			if current == nil {
				continue
			}
			if nested > 0 {
				nested--
				continue
			}
			if comp == "VEVENT" {
				if iv, ok := current.toInterval(sourceID); ok {
					intervals = append(intervals, iv)
				}
				current = nil
			}
			continue
		}

		if current == nil || nested > 0 {
			continue
		}

		switch line.name {
		case "UID":
			current.uid = line.value
		case "SUMMARY":
			current.summary = Unescape(line.value)
		case "LOCATION":
			current.location = Unescape(line.value)
		case "STATUS":
			current.status = strings.ToUpper(line.value)
		case "TRANSP":
			current.transp = strings.ToUpper(line.value)
		case "DTSTART":
			l := line
			current.dtstart = &l
		case "DTEND":
			l := line
			current.dtend = &l
		}
	}

	return intervals
}

func (e *eventProps) toInterval(sourceID string) (models.BusyInterval, bool) {
	if e.dtstart == nil || e.dtend == nil {
		return models.BusyInterval{}, false
	}
	if e.status == "CANCELLED" || e.transp == "TRANSPARENT" {
		return models.BusyInterval{}, false
	}

	start, allDay, ok := parseDateTime(*e.dtstart)
	if !ok {
		return models.BusyInterval{}, false
	}
	end, _, ok := parseDateTime(*e.dtend)
	if !ok {
		return models.BusyInterval{}, false
	}
	if allDay && end.Equal(start) {
		end = start.AddDate(0, 0, 1)
	}
	if !end.After(start) {
		return models.BusyInterval{}, false
	}

	return models.BusyInterval{
		SourceID: sourceID,
		UID:      e.uid,
		Start:    start,
		End:      end,
		Title:    e.summary,
		Location: e.location,
		IsAllDay: allDay,
	}, true
}

// parseDateTime reads DATE and DATE-TIME values. Date-only values are UTC midnight
// and flagged all-day. Local date-times use TZID when loadable, UTC otherwise.
func parseDateTime(line contentLine) (time.Time, bool, bool) {
	value := strings.TrimSpace(line.value)

	if strings.EqualFold(line.params["VALUE"], "DATE") || len(value) == len(constants.ICalDateFormat) {
		t, err := time.ParseInLocation(constants.ICalDateFormat, value, time.UTC)
		if err != nil {
			return time.Time{}, false, false
		}
		return t, true, true
	}

	if strings.HasSuffix(value, "Z") || strings.HasSuffix(value, "z") {
		t, err := time.Parse(constants.ICalDateTimeFormat, strings.ToUpper(value))
		if err != nil {
			return time.Time{}, false, false
		}
		return t.UTC(), false, true
	}

	loc := time.UTC
	if tzid := strings.Trim(line.params["TZID"], `"`); tzid != "" {
		if l, err := time.LoadLocation(tzid); err == nil {
			loc = l
		}
	}
	t, err := time.ParseInLocation(constants.ICalLocalDateTimeFormat, value, loc)
	if err != nil {
		return time.Time{}, false, false
	}
	return t.UTC(), false, true
}

// unfold splits the document into logical lines, joining continuation lines
// (those starting with a space or tab) onto their predecessor.
func unfold(document string) []string {
	rawLines := strings.Split(document, "\n")
	lines := make([]string, 0, len(rawLines))
	for _, l := range rawLines {
		l = strings.TrimSuffix(l, "\r")
		if (strings.HasPrefix(l, " ") || strings.HasPrefix(l, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += l[1:]
			continue
		}
		if l == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// parseContentLine splits a line at the first colon that is not inside a quoted
// parameter value. Property names are upper-cased; parameters are kept only for
// value interpretation.
func parseContentLine(line string) (contentLine, bool) {
	inQuotes := false
	colon := -1
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuotes = !inQuotes
		case ':':
			if !inQuotes {
				colon = i
			}
		}
		if colon >= 0 {
			break
		}
	}
	if colon <= 0 {
		return contentLine{}, false
	}

	head, value := line[:colon], line[colon+1:]
	parts := strings.Split(head, ";")
	cl := contentLine{
		name:  strings.ToUpper(strings.TrimSpace(parts[0])),
		value: value,
	}
	if len(parts) > 1 {
		cl.params = make(map[string]string, len(parts)-1)
		for _, p := range parts[1:] {
			k, v, found := strings.Cut(p, "=")
			if !found {
				continue
			}
			cl.params[strings.ToUpper(strings.TrimSpace(k))] = v
		}
	}
	return cl, true
}
