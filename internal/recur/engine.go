package recur

import (
	"errors"
	"time"

	"github.com/teambition/rrule-go"

	appLog "barsign/internal/log"
	"barsign/internal/model"
)

const (
	// defaultMaxOccurrences caps how many instances a single rule may
	// produce per expansion, as a guard against runaway rules.
	defaultMaxOccurrences = 1000

	// CivilDateLayout is the civil-date form used for exception dates.
	CivilDateLayout = "2006-01-02"
)

// Engine expands recurring events into concrete occurrences. Recurrence
// rules are interpreted in a single fixed civil timezone ("venue time"),
// so an event scheduled for 7pm stays at 7pm on the wall clock across
// daylight-saving transitions.
//
// An Engine is immutable after construction and safe for concurrent use.
type Engine struct {
	loc *time.Location

	// offsets are the UTC offsets (hours west of UTC, probe order) the
	// venue's timezone has used historically. Civil-to-absolute resolution
	// probes these and keeps the first that round-trips exactly.
	offsets []time.Duration
}

// New constructs an Engine for the given venue timezone. offsetHours lists
// the timezone's historical UTC offsets in hours west of UTC; when empty,
// US Mountain time offsets (6, 7) are assumed.
func New(loc *time.Location, offsetHours []int) *Engine {
	if loc == nil {
		loc = time.UTC
	}
	if len(offsetHours) == 0 {
		offsetHours = []int{6, 7}
	}
	offs := make([]time.Duration, 0, len(offsetHours))
	for _, h := range offsetHours {
		offs = append(offs, time.Duration(h)*time.Hour)
	}
	return &Engine{loc: loc, offsets: offs}
}

// Location returns the venue timezone the engine evaluates in.
func (e *Engine) Location() *time.Location {
	return e.loc
}

// CivilDate formats an instant as its civil date in venue time.
func (e *Engine) CivilDate(t time.Time) string {
	return t.In(e.loc).Format(CivilDateLayout)
}

// Expand returns every occurrence of ev whose start falls within
// [windowStart, windowEnd] and at or after the event's own start. It never
// fails: malformed rules degrade to unanchored evaluation and, at worst, an
// empty result.
func (e *Engine) Expand(ev model.CalendarEvent, windowStart, windowEnd time.Time) []model.Occurrence {
	out := make([]model.Occurrence, 0)
	if windowEnd.Before(windowStart) {
		return out
	}

	if ev.RecurrenceRule == "" {
		if !ev.Start.Before(windowStart) && !ev.Start.After(windowEnd) {
			out = append(out, e.occurrence(ev, ev.Start, false))
		}
		return out
	}

	if occs, ok := e.expandAnchored(ev, windowStart, windowEnd); ok {
		return occs
	}
	return e.expandUnanchored(ev, windowStart, windowEnd)
}

// expandAnchored is the civil-time-correct path. It re-anchors the rule in
// venue wall-clock terms, evaluates it, and re-anchors every resulting
// instance individually (month and weekday boundaries can shift
// per-occurrence across DST transitions, so a fixed offset adjustment is
// not enough). ok is false when the rule cannot be anchored and the caller
// should degrade to expandUnanchored.
func (e *Engine) expandAnchored(ev model.CalendarEvent, windowStart, windowEnd time.Time) ([]model.Occurrence, bool) {
	pat, ok := parsePattern(ev.RecurrenceRule)
	if !ok {
		return nil, false
	}

	civil := ev.Start.In(e.loc)
	hour, minute, sec := civil.Clock()

	anchor, ok := e.resolveAnchor(pat, civil)
	if !ok {
		return nil, false
	}

	r, err := rrule.StrToRRule(ev.RecurrenceRule)
	if err != nil {
		appLog.Debug("recur: rule parse failed on anchored path", "event_id", ev.ID, "rule", ev.RecurrenceRule)
		return nil, false
	}
	// The evaluator steps through the calendar of its DTSTART's location;
	// hand it venue time so BYDAY/BYMONTHDAY match venue weekdays and dates.
	r.DTStart(anchor.In(e.loc))

	// Widen the evaluated range by a day on each side: re-anchoring can
	// move an instance across the exact window boundary.
	times := r.Between(windowStart.In(e.loc).AddDate(0, 0, -1), windowEnd.In(e.loc).AddDate(0, 0, 1), true)
	times = e.capOccurrences(ev.ID, times)

	skip := exceptionSet(ev.Exceptions)
	out := make([]model.Occurrence, 0, len(times))

	for _, t := range times {
		ct := t.In(e.loc)
		start := e.resolveCivil(ct.Year(), ct.Month(), ct.Day(), hour, minute, sec)
		if start.Before(windowStart) || start.After(windowEnd) || start.Before(ev.Start) {
			continue
		}
		if _, excluded := skip[e.CivilDate(start)]; excluded {
			continue
		}
		out = append(out, e.occurrence(ev, start, true))
	}
	return out, true
}

// resolveAnchor computes the rule evaluator's DTSTART for the given
// pattern, in venue civil terms.
func (e *Engine) resolveAnchor(pat pattern, civil time.Time) (time.Time, bool) {
	hour, minute, sec := civil.Clock()

	switch {
	case pat.monthDay > 0:
		// Find the nearest civil month at or after the anchor that actually
		// contains the requested day-of-month, and anchor at noon on that
		// date so day-boundary ambiguity cannot shift the civil date.
		year, month := civil.Year(), civil.Month()
		for i := 0; i < 12; i++ {
			if pat.monthDay <= daysInMonth(year, month) {
				return e.resolveCivil(year, month, pat.monthDay, 12, 0, 0), true
			}
			month++
			if month > time.December {
				month = time.January
				year++
			}
		}
		return time.Time{}, false

	case pat.freq == "WEEKLY" && len(pat.weekdays) > 0 && !pat.ordinalDay:
		// Advance to the nearest listed weekday at or after the start,
		// preserving the original civil time-of-day.
		d := civil
		for i := 0; i < 7; i++ {
			if pat.hasWeekday(d.Weekday()) {
				return e.resolveCivil(d.Year(), d.Month(), d.Day(), hour, minute, sec), true
			}
			d = d.AddDate(0, 0, 1)
		}
		return time.Time{}, false

	default:
		// Everything else (daily, nth-weekday-of-month, plain monthly,
		// yearly) is handled by the evaluator once the start itself is
		// re-anchored in civil terms.
		return e.resolveCivil(civil.Year(), civil.Month(), civil.Day(), hour, minute, sec), true
	}
}

// resolveCivil recovers the absolute instant for a venue civil date/time by
// probing the configured UTC offsets and keeping the first whose formatted-
// back civil time matches exactly. Inside a spring-forward gap no probe
// round-trips; the first offset wins, deterministically.
func (e *Engine) resolveCivil(year int, month time.Month, day, hour, minute, sec int) time.Time {
	utcGuess := time.Date(year, month, day, hour, minute, sec, 0, time.UTC)
	for _, off := range e.offsets {
		cand := utcGuess.Add(off)
		local := cand.In(e.loc)
		ly, lm, ld := local.Date()
		lh, lmin, ls := local.Clock()
		if ly == year && lm == month && ld == day && lh == hour && lmin == minute && ls == sec {
			return cand
		}
	}
	return utcGuess.Add(e.offsets[0])
}

// expandUnanchored is the degraded path for rules the anchoring logic
// cannot interpret: run the rule unmodified from the original absolute
// start and clip to the window. Wall-clock drift across DST transitions is
// tolerated here; a shifted occurrence beats a blank display.
func (e *Engine) expandUnanchored(ev model.CalendarEvent, windowStart, windowEnd time.Time) []model.Occurrence {
	out := make([]model.Occurrence, 0)

	r, err := rrule.StrToRRule(ev.RecurrenceRule)
	if err != nil {
		appLog.Error("recur: unusable recurrence rule, expanding nothing", err, "event_id", ev.ID, "rule", ev.RecurrenceRule)
		return out
	}
	r.DTStart(ev.Start.In(e.loc))

	times := r.Between(windowStart, windowEnd, true)
	times = e.capOccurrences(ev.ID, times)

	skip := exceptionSet(ev.Exceptions)
	for _, t := range times {
		if t.Before(ev.Start) {
			continue
		}
		if _, excluded := skip[e.CivilDate(t)]; excluded {
			continue
		}
		out = append(out, e.occurrence(ev, t, true))
	}
	return out
}

func (e *Engine) capOccurrences(eventID string, times []time.Time) []time.Time {
	if len(times) <= defaultMaxOccurrences {
		return times
	}
	appLog.Error("recur: occurrence cap hit", errors.New("max occurrences reached"), "event_id", eventID, "cap", defaultMaxOccurrences)
	return times[:defaultMaxOccurrences]
}

// occurrence builds an Occurrence at start, carrying over the base event's
// duration unchanged when an end time exists.
func (e *Engine) occurrence(ev model.CalendarEvent, start time.Time, recurring bool) model.Occurrence {
	occ := model.Occurrence{
		SourceEventID: ev.ID,
		Start:         start,
		Recurring:     recurring,
	}
	if !ev.End.IsZero() {
		occ.End = start.Add(ev.End.Sub(ev.Start))
	}
	return occ
}

func exceptionSet(dates []string) map[string]struct{} {
	if len(dates) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(dates))
	for _, d := range dates {
		set[d] = struct{}{}
	}
	return set
}
