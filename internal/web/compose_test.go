package web

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barsign/internal/model"
	"barsign/internal/recur"
)

func TestSpecialActiveRanges(t *testing.T) {
	today := "2025-06-06"

	assert.True(t, specialActive(model.Special{}, today))
	assert.True(t, specialActive(model.Special{StartDate: "2025-06-06", EndDate: "2025-06-06"}, today))
	assert.True(t, specialActive(model.Special{StartDate: "2025-06-01"}, today))
	assert.False(t, specialActive(model.Special{StartDate: "2025-06-07"}, today))
	assert.False(t, specialActive(model.Special{EndDate: "2025-06-05"}, today))
}

func TestComposeInputFiltersAndFlattens(t *testing.T) {
	loc, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)
	eng := recur.New(loc, []int{6, 7})

	now := time.Date(2025, time.June, 6, 10, 0, 0, 0, loc)
	snap := &model.Snapshot{
		Events: []model.CalendarEvent{
			{
				ID:             "trivia",
				Title:          "Trivia Night",
				Start:          time.Date(2025, time.June, 2, 19, 0, 0, 0, loc),
				RecurrenceRule: "FREQ=WEEKLY;BYDAY=MO",
			},
			{
				ID:    "past",
				Title: "Already Over",
				Start: time.Date(2025, time.May, 1, 19, 0, 0, 0, loc),
			},
		},
		FoodSpecials: []model.Special{
			{Name: "Wings", Price: "$9", StartDate: "2025-06-06"},
			{Name: "Expired", EndDate: "2025-06-01"},
		},
		Content: model.ContentConfig{IncludeEvents: true, IncludeFoodSpecials: true},
	}

	in := composeInput(snap, eng, now, 14, 6)

	assert.Equal(t, "Friday, June 6", in.NowLabel)

	require.Len(t, in.Food, 1)
	assert.Equal(t, "Wings", in.Food[0].Title)

	// Mondays June 9 and 16 fall inside the 14-day window; the May
	// one-time event does not.
	require.Len(t, in.Events, 2)
	assert.Equal(t, "Trivia Night", in.Events[0].Title)
	assert.Contains(t, in.Events[0].Time, "Mon Jun 9")
	assert.Contains(t, in.Events[1].Time, "Mon Jun 16")
}

func TestComposeInputEventItemsAreSorted(t *testing.T) {
	loc, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)
	eng := recur.New(loc, []int{6, 7})

	now := time.Date(2025, time.June, 6, 10, 0, 0, 0, loc)
	snap := &model.Snapshot{
		Events: []model.CalendarEvent{
			{ID: "later", Title: "Later", Start: time.Date(2025, time.June, 12, 20, 0, 0, 0, loc)},
			{ID: "sooner", Title: "Sooner", Start: time.Date(2025, time.June, 8, 18, 0, 0, 0, loc)},
		},
		Content: model.ContentConfig{IncludeEvents: true},
	}

	in := composeInput(snap, eng, now, 30, 6)
	require.Len(t, in.Events, 2)
	assert.Equal(t, "Sooner", in.Events[0].Title)
	assert.Equal(t, "Later", in.Events[1].Title)
}
