// Package playlist assembles the board's slide rotation from the venue's
// content snapshot. Build is a pure function: it never mutates its input
// and returns a fresh slice on every call, so one invocation per display
// refresh needs no coordination.
package playlist

import (
	"fmt"
	"sort"

	"barsign/internal/model"
)

// DefaultItemsPerSlide bounds how many items fit on one slide before the
// category is chunked across consecutive slides.
const DefaultItemsPerSlide = 6

// Input is one fully-formed content snapshot for a single build. Food,
// Drink, and Events are expected pre-filtered (active specials, upcoming
// occurrences); the builder only sanitizes and arranges them.
type Input struct {
	// NowLabel is the human label for the current day ("Friday, June 6"),
	// shown on the welcome slide.
	NowLabel string

	HappyHour *model.HappyHour

	Food   []model.SlideItem
	Drink  []model.SlideItem
	Events []model.SlideItem

	Config model.ContentConfig

	// ItemsPerSlide overrides DefaultItemsPerSlide when positive.
	ItemsPerSlide int
}

// Build produces the ordered slide list. Category order is fixed: welcome,
// happy hour (carrying drink specials when both are enabled), standalone
// drink specials (only when happy hour is disabled), food specials,
// upcoming events, operator custom slides, and a fallback slide when
// nothing else produced one. Always-on content leads, time-sensitive
// content follows, operator-authored material closes the loop.
func Build(in Input) []model.Slide {
	per := in.ItemsPerSlide
	if per <= 0 {
		per = DefaultItemsPerSlide
	}
	cfg := in.Config

	slides := make([]model.Slide, 0, 8)

	if cfg.IncludeWelcome {
		slides = append(slides, welcomeSlide(in.NowLabel))
	}

	drinks := cleanItems(in.Drink)
	if cfg.IncludeHappyHour && in.HappyHour != nil {
		var items []model.SlideItem
		if cfg.IncludeDrinkSpecials {
			items = drinks
		}
		slides = append(slides, happyHourSlides(in.HappyHour, items, per)...)
	}
	// Standalone drink specials require happy hour to be disabled, not
	// merely missing its data: with the toggle on and no offer published,
	// drinks are held back rather than promoted to their own slide.
	if !cfg.IncludeHappyHour && cfg.IncludeDrinkSpecials && len(drinks) > 0 {
		slides = append(slides, chunked(model.Slide{
			ID:     "drink-specials",
			Label:  "Drinks",
			Title:  "Drink Specials",
			Accent: model.AccentPlum,
			Source: model.SourceDrink,
		}, drinks, per)...)
	}

	if cfg.IncludeFoodSpecials {
		if food := cleanItems(in.Food); len(food) > 0 {
			slides = append(slides, chunked(model.Slide{
				ID:     "food-specials",
				Label:  "Kitchen",
				Title:  "Food Specials",
				Accent: model.AccentRust,
				Source: model.SourceFood,
			}, food, per)...)
		}
	}

	if cfg.IncludeEvents {
		if events := cleanItems(in.Events); len(events) > 0 {
			slides = append(slides, chunked(model.Slide{
				ID:     "upcoming-events",
				Label:  "Coming Up",
				Title:  "Upcoming Events",
				Accent: model.AccentNavy,
				Source: model.SourceEvents,
			}, events, per)...)
		}
	}

	slides = append(slides, customSlides(cfg.CustomSlides)...)

	if len(slides) == 0 {
		slides = append(slides, fallbackSlide())
	}

	// Sequence is assigned in a single post-pass over the concatenated
	// categories. The sort afterwards is an invariant check, not a
	// reordering step; emission order already matches.
	for i := range slides {
		slides[i].Sequence = i + 1
	}
	sort.SliceStable(slides, func(i, j int) bool {
		return slides[i].Sequence < slides[j].Sequence
	})
	return slides
}

func welcomeSlide(nowLabel string) model.Slide {
	return model.Slide{
		ID:       "welcome",
		Label:    "Welcome",
		Title:    "Welcome",
		Subtitle: cleanText(nowLabel, false),
		Accent:   model.AccentDefault,
		Source:   model.SourceWelcome,
	}
}

func happyHourSlides(hh *model.HappyHour, items []model.SlideItem, per int) []model.Slide {
	base := model.Slide{
		ID:       "happy-hour",
		Label:    "Happy Hour",
		Title:    cleanText(hh.Title, false),
		Subtitle: cleanText(hh.Schedule, false),
		Body:     cleanText(hh.Note, true),
		Accent:   model.AccentAmber,
		Source:   model.SourceHappyHour,
	}
	if base.Title == "" {
		base.Title = "Happy Hour"
	}
	return chunked(base, items, per)
}

func fallbackSlide() model.Slide {
	return model.Slide{
		ID:       "fallback",
		Label:    "Tonight",
		Title:    "Ask your bartender",
		Subtitle: "about today's specials and events",
		Accent:   model.AccentDefault,
		Source:   model.SourceFallback,
	}
}

// chunked splits items across consecutive slides of at most per items,
// each inheriting base's shared fields. Follow-up chunks get
// "<id>-2", "<id>-3", … ids; chunk pages intentionally repeat the same
// title and subtitle. With no items at all, base is emitted alone.
func chunked(base model.Slide, items []model.SlideItem, per int) []model.Slide {
	if len(items) == 0 {
		return []model.Slide{base}
	}
	out := make([]model.Slide, 0, (len(items)+per-1)/per)
	for start := 0; start < len(items); start += per {
		end := start + per
		if end > len(items) {
			end = len(items)
		}
		s := base
		s.Items = append([]model.SlideItem(nil), items[start:end]...)
		if start > 0 {
			s.ID = fmt.Sprintf("%s-%d", base.ID, start/per+1)
		}
		out = append(out, s)
	}
	return out
}

// customSlides renders the operator-authored slides in position order.
// Image slides carry only the image; text slides carry sanitized copy.
// A slide whose every field cleans to nothing is dropped rather than shown
// as a blank page.
func customSlides(defs []model.CustomSlide) []model.Slide {
	if len(defs) == 0 {
		return nil
	}

	ordered := append([]model.CustomSlide(nil), defs...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Position < ordered[j].Position
	})

	out := make([]model.Slide, 0, len(ordered))
	for i, cs := range ordered {
		if cs.Enabled != nil && !*cs.Enabled {
			continue
		}

		id := cs.ID
		if id == "" {
			id = fmt.Sprintf("custom-%d", i+1)
		}
		accent := normalizeAccent(cs.Accent)

		if cs.SlideType == model.SlideTypeImage && hasImage(cs.ImageKey) {
			// The title stays operator-facing only: it becomes the label,
			// never rendered copy.
			out = append(out, model.Slide{
				ID:     id,
				Label:  cleanText(cs.Title, false),
				Items:  []model.SlideItem{{Image: cs.ImageKey}},
				Accent: accent,
				Source: model.SourceCustom,
			})
			continue
		}

		s := model.Slide{
			ID:       id,
			Label:    "Custom",
			Title:    cleanText(cs.Title, false),
			Subtitle: cleanText(cs.Subtitle, false),
			Body:     cleanText(cs.Body, true),
			Footer:   cleanText(cs.Footer, false),
			Accent:   accent,
			Source:   model.SourceCustom,
		}
		if s.Title == "" && s.Subtitle == "" && s.Body == "" && s.Footer == "" {
			continue
		}
		out = append(out, s)
	}
	return out
}

func hasImage(key string) bool {
	return key != "" && key != model.MissingImageKey
}
