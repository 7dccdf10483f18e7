package recur

import (
	"strconv"
	"strings"
	"time"
)

// pattern is the subset of a recurrence rule the anchoring logic cares
// about. The rule evaluator consumes the full rule string separately; this
// extraction exists so the anchor can be fixed up even for rule shapes the
// evaluator would accept as-is but evaluate from the wrong wall-clock base.
type pattern struct {
	freq string

	// monthDay is the BYMONTHDAY value when positive, 0 otherwise.
	monthDay int

	// weekdays holds plain (unprefixed) BYDAY entries.
	weekdays []time.Weekday

	// ordinalDay is true when any BYDAY entry carries an ordinal prefix
	// (e.g. "2TU", "-1FR"), i.e. an nth-weekday-of-month rule.
	ordinalDay bool
}

var weekdayCodes = map[string]time.Weekday{
	"SU": time.Sunday,
	"MO": time.Monday,
	"TU": time.Tuesday,
	"WE": time.Wednesday,
	"TH": time.Thursday,
	"FR": time.Friday,
	"SA": time.Saturday,
}

// parsePattern extracts the anchoring-relevant parts of an iCalendar-style
// rule string. ok is false for rules the anchoring logic cannot interpret;
// callers fall back to unanchored evaluation in that case.
func parsePattern(rule string) (pattern, bool) {
	var p pattern

	rule = strings.TrimSpace(rule)
	if rule == "" {
		return p, false
	}

	for _, part := range strings.Split(rule, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, found := strings.Cut(part, "=")
		if !found {
			return p, false
		}

		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "FREQ":
			p.freq = strings.ToUpper(strings.TrimSpace(value))
		case "BYMONTHDAY":
			// Only the single-day form is anchored specially; lists and
			// negative (from-month-end) days go through unmodified.
			value = strings.TrimSpace(value)
			if strings.Contains(value, ",") {
				continue
			}
			n, err := strconv.Atoi(value)
			if err != nil {
				return p, false
			}
			if n > 0 {
				p.monthDay = n
			}
		case "BYDAY":
			for _, tok := range strings.Split(value, ",") {
				tok = strings.TrimSpace(strings.ToUpper(tok))
				if tok == "" {
					continue
				}
				code := tok
				if len(tok) > 2 {
					p.ordinalDay = true
					code = tok[len(tok)-2:]
					if _, err := strconv.Atoi(tok[:len(tok)-2]); err != nil {
						return p, false
					}
					if _, known := weekdayCodes[code]; !known {
						return p, false
					}
					continue
				}
				wd, known := weekdayCodes[code]
				if !known {
					return p, false
				}
				p.weekdays = append(p.weekdays, wd)
			}
		}
	}

	if p.freq == "" {
		return p, false
	}
	return p, true
}

func (p pattern) hasWeekday(wd time.Weekday) bool {
	for _, w := range p.weekdays {
		if w == wd {
			return true
		}
	}
	return false
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the next month is the last day of this one.
	return time.Date(year, month+1, 0, 12, 0, 0, 0, time.UTC).Day()
}
