package feed

import (
	"bytes"
	"errors"
	"sort"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	appLog "barsign/internal/log"
	"barsign/internal/model"
	"barsign/internal/recur"
)

// ParseEvents parses an ICS payload into CalendarEvents. loc is the venue
// timezone, used to turn EXDATE instants into civil exception dates.
//
//   - RRULE is kept as the raw rule string; expansion is internal/recur's job.
//   - EXDATE entries become "YYYY-MM-DD" exception dates in venue time.
//   - VEVENTs missing a UID or DTSTART are logged and skipped; one bad
//     event never sinks the whole source.
func ParseEvents(src Source, body []byte, loc *time.Location) ([]model.CalendarEvent, error) {
	if len(body) == 0 {
		return nil, errors.New("empty ICS body")
	}
	if loc == nil {
		loc = time.UTC
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		appLog.Error("ics parse failed", err, "id", src.ID, "url", redactURL(src.URL))
		return nil, err
	}

	events := make([]model.CalendarEvent, 0)
	for _, ve := range cal.Events() {
		ev, perr := parseVEvent(src, ve, loc)
		if perr != nil {
			appLog.Error("ics vevent parse failed", perr, "id", src.ID, "url", redactURL(src.URL))
			continue
		}
		events = append(events, ev)
	}

	appLog.Info("ics parse completed", "id", src.ID, "url", redactURL(src.URL), "event_count", len(events))
	return events, nil
}

func parseVEvent(src Source, ve *ical.VEvent, loc *time.Location) (model.CalendarEvent, error) {
	var out model.CalendarEvent

	uidProp := ve.GetProperty(ical.ComponentPropertyUniqueId)
	if uidProp == nil || uidProp.Value == "" {
		return out, errors.New("missing UID")
	}
	// Prefix with the source id so two subscriptions cannot collide on UID.
	out.ID = src.ID + ":" + uidProp.Value

	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		out.Title = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertyDescription); p != nil {
		out.Description = p.Value
	}

	start, err := ve.GetStartAt()
	if err != nil {
		return out, errors.New("missing or unparseable DTSTART")
	}
	out.Start = start
	if end, err := ve.GetEndAt(); err == nil {
		out.End = end
	}

	if p := ve.GetProperty(ical.ComponentPropertyRrule); p != nil {
		out.RecurrenceRule = p.Value
	}

	// EXDATE can appear multiple times and carry comma-separated values.
	for _, p := range ve.GetProperties(ical.ComponentPropertyExdate) {
		for _, part := range strings.Split(p.Value, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			t, perr := parseICSTime(part, loc)
			if perr != nil {
				continue
			}
			out.Exceptions = append(out.Exceptions, t.In(loc).Format(recur.CivilDateLayout))
		}
	}
	sort.Strings(out.Exceptions)

	return out, nil
}

// parseICSTime parses a basic ICS date/date-time string. Floating and
// date-only values are read in the venue timezone.
func parseICSTime(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, errors.New("empty time value")
	}

	// UTC form, e.g. 20250101T090000Z
	if strings.HasSuffix(v, "Z") {
		return time.Parse("20060102T150405Z", v)
	}

	// Floating date-time, e.g. 20250101T090000
	if strings.Contains(v, "T") {
		return time.ParseInLocation("20060102T150405", v, loc)
	}

	// Date-only, e.g. 20250101
	return time.ParseInLocation("20060102", v, loc)
}
