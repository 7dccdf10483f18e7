package web

import (
	"sort"
	"time"

	"barsign/internal/model"
	"barsign/internal/playlist"
	"barsign/internal/recur"
)

// composeInput turns a content snapshot into builder input: recurring
// events are expanded over the upcoming window and flattened into slide
// items, and specials are filtered down to the ones active today.
func composeInput(snap *model.Snapshot, eng *recur.Engine, now time.Time, windowDays, itemsPerSlide int) playlist.Input {
	loc := eng.Location()
	local := now.In(loc)

	// Window: today at venue midnight through windowDays ahead.
	windowStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	windowEnd := windowStart.AddDate(0, 0, windowDays)

	today := eng.CivilDate(now)

	return playlist.Input{
		NowLabel:      local.Format("Monday, January 2"),
		HappyHour:     snap.HappyHour,
		Food:          specialItems(snap.FoodSpecials, today),
		Drink:         specialItems(snap.DrinkSpecials, today),
		Events:        eventItems(snap.Events, eng, windowStart, windowEnd),
		Config:        snap.Content,
		ItemsPerSlide: itemsPerSlide,
	}
}

func specialItems(specials []model.Special, today string) []model.SlideItem {
	items := make([]model.SlideItem, 0, len(specials))
	for _, sp := range specials {
		if !specialActive(sp, today) {
			continue
		}
		items = append(items, model.SlideItem{
			Title:  sp.Name,
			Note:   sp.Price,
			Detail: sp.Description,
		})
	}
	return items
}

// specialActive checks the civil-date active range, inclusive on both ends.
// ISO dates compare correctly as strings.
func specialActive(sp model.Special, today string) bool {
	if sp.StartDate != "" && today < sp.StartDate {
		return false
	}
	if sp.EndDate != "" && today > sp.EndDate {
		return false
	}
	return true
}

func eventItems(events []model.CalendarEvent, eng *recur.Engine, windowStart, windowEnd time.Time) []model.SlideItem {
	byID := make(map[string]model.CalendarEvent, len(events))
	occs := make([]model.Occurrence, 0)
	for _, ev := range events {
		byID[ev.ID] = ev
		occs = append(occs, eng.Expand(ev, windowStart, windowEnd)...)
	}

	sort.Slice(occs, func(i, j int) bool {
		return occs[i].Start.Before(occs[j].Start)
	})

	loc := eng.Location()
	items := make([]model.SlideItem, 0, len(occs))
	for _, occ := range occs {
		ev := byID[occ.SourceEventID]
		items = append(items, model.SlideItem{
			Title:  ev.Title,
			Time:   occ.Start.In(loc).Format("Mon Jan 2 · 3:04 PM"),
			Detail: ev.Description,
		})
	}
	return items
}
