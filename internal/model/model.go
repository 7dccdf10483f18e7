package model

import "time"

// CalendarEvent is a scheduled happening as stored by the back-office app.
// Instants are absolute, but all scheduling semantics (recurrence, exception
// dates) are interpreted in the venue's civil timezone.
type CalendarEvent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`

	// Start is the event's first (anchor) instant. For recurring events it
	// doubles as the recurrence rule's DTSTART equivalent.
	Start time.Time `json:"start"`
	// End is the zero value when the event has no end time.
	End time.Time `json:"end,omitzero"`

	// RecurrenceRule is an iCalendar-style rule string
	// (e.g. "FREQ=WEEKLY;BYDAY=MO,WE"), empty for one-time events.
	RecurrenceRule string `json:"recurrence_rule,omitempty"`

	// Exceptions lists civil dates ("YYYY-MM-DD", venue time) on which an
	// otherwise-matching occurrence is suppressed.
	Exceptions []string `json:"exceptions,omitempty"`
}

// Occurrence is one concrete instance of an event after expansion. It is
// derived, never persisted, and owned by the expansion call that created it.
type Occurrence struct {
	SourceEventID string    `json:"source_event_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end,omitzero"`
	Recurring     bool      `json:"recurring"`
}

// SlideItem is one sanitized content line on a slide. Empty fields are
// omitted on the wire.
type SlideItem struct {
	Title  string `json:"title,omitempty"`
	Note   string `json:"note,omitempty"`
	Time   string `json:"time,omitempty"`
	Detail string `json:"detail,omitempty"`
	Image  string `json:"image,omitempty"`
}

// SlideSource tags which content category produced a slide.
type SlideSource string

const (
	SourceWelcome   SlideSource = "welcome"
	SourceHappyHour SlideSource = "happyHour"
	SourceFood      SlideSource = "food"
	SourceDrink     SlideSource = "drink"
	SourceEvents    SlideSource = "events"
	SourceCustom    SlideSource = "custom"
	SourceFallback  SlideSource = "fallback"
)

// Accent selects a slide's color treatment from a fixed palette.
type Accent string

const (
	AccentAmber Accent = "amber"
	AccentRust  Accent = "rust"
	AccentPine  Accent = "pine"
	AccentNavy  Accent = "navy"
	AccentPlum  Accent = "plum"

	AccentDefault = AccentAmber
)

// Valid reports whether a is a member of the palette.
func (a Accent) Valid() bool {
	switch a {
	case AccentAmber, AccentRust, AccentPine, AccentNavy, AccentPlum:
		return true
	}
	return false
}

// Slide is one page in the display rotation. Sequence is a dense 1-based
// position over the final list and is the only externally meaningful
// ordering key.
type Slide struct {
	ID       string      `json:"id"`
	Label    string      `json:"label,omitempty"`
	Title    string      `json:"title,omitempty"`
	Subtitle string      `json:"subtitle,omitempty"`
	Body     string      `json:"body,omitempty"`
	Items    []SlideItem `json:"items,omitempty"`
	Accent   Accent      `json:"accent"`
	Footer   string      `json:"footer,omitempty"`
	Source   SlideSource `json:"source"`
	Sequence int         `json:"sequence"`
}

// Custom slide kinds.
const (
	SlideTypeText  = "text"
	SlideTypeImage = "image"
)

// MissingImageKey is the placeholder the back-office app stores while an
// image upload is pending. A custom slide carrying it renders as text.
const MissingImageKey = "__missing__"

// CustomSlide is an operator-authored slide definition.
type CustomSlide struct {
	ID       string `json:"id,omitempty"`
	Position int    `json:"position"`
	// Enabled is treated as true when absent; only an explicit false
	// skips the slide.
	Enabled   *bool  `json:"is_enabled,omitempty"`
	Accent    string `json:"accent,omitempty"`
	SlideType string `json:"slide_type,omitempty"`
	Title     string `json:"title,omitempty"`
	Subtitle  string `json:"subtitle,omitempty"`
	Body      string `json:"body,omitempty"`
	Footer    string `json:"footer,omitempty"`
	ImageKey  string `json:"image_key,omitempty"`
}

// ContentConfig is the operator-controlled slice of the snapshot: which
// categories appear, plus the custom slide definitions.
type ContentConfig struct {
	IncludeWelcome       bool          `json:"include_welcome"`
	IncludeFoodSpecials  bool          `json:"include_food_specials"`
	IncludeDrinkSpecials bool          `json:"include_drink_specials"`
	IncludeHappyHour     bool          `json:"include_happy_hour"`
	IncludeEvents        bool          `json:"include_events"`
	CustomSlides         []CustomSlide `json:"custom_slides,omitempty"`
}

// HappyHour describes the venue's standing happy-hour offer.
type HappyHour struct {
	Title    string `json:"title,omitempty"`
	Schedule string `json:"schedule,omitempty"`
	Note     string `json:"note,omitempty"`
}

// Special is a food or drink special with an optional civil-date active
// range ("YYYY-MM-DD", venue time, inclusive on both ends).
type Special struct {
	Name        string `json:"name"`
	Price       string `json:"price,omitempty"`
	Description string `json:"description,omitempty"`
	StartDate   string `json:"start_date,omitempty"`
	EndDate     string `json:"end_date,omitempty"`
}

// Snapshot is one published state of the back-office content, as fetched
// from the snapshot feed (plus any ICS-imported events merged in).
type Snapshot struct {
	Events        []CalendarEvent `json:"events"`
	FoodSpecials  []Special       `json:"food_specials,omitempty"`
	DrinkSpecials []Special       `json:"drink_specials,omitempty"`
	HappyHour     *HappyHour      `json:"happy_hour,omitempty"`
	Content       ContentConfig   `json:"content"`

	// Revision and FetchedAt are assigned locally on load, not published
	// by the feed.
	Revision  string    `json:"revision,omitempty"`
	FetchedAt time.Time `json:"fetched_at,omitzero"`
}
