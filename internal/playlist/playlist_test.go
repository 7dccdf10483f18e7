package playlist

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"barsign/internal/model"
)

func allOn() model.ContentConfig {
	return model.ContentConfig{
		IncludeWelcome:       true,
		IncludeFoodSpecials:  true,
		IncludeDrinkSpecials: true,
		IncludeHappyHour:     true,
		IncludeEvents:        true,
	}
}

func items(prefix string, n int) []model.SlideItem {
	out := make([]model.SlideItem, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, model.SlideItem{Title: fmt.Sprintf("%s %d", prefix, i)})
	}
	return out
}

func sources(slides []model.Slide) []model.SlideSource {
	out := make([]model.SlideSource, 0, len(slides))
	for _, s := range slides {
		out = append(out, s.Source)
	}
	return out
}

func TestCategoryOrderIsFixed(t *testing.T) {
	cfg := allOn()
	cfg.CustomSlides = []model.CustomSlide{{Position: 1, Title: "Game Day"}}

	slides := Build(Input{
		NowLabel:  "Friday, June 6",
		HappyHour: &model.HappyHour{Title: "Happy Hour", Schedule: "3–6pm daily"},
		Food:      items("Food", 2),
		Drink:     items("Drink", 2),
		Events:    items("Event", 1),
		Config:    cfg,
	})

	assert.Equal(t, []model.SlideSource{
		model.SourceWelcome,
		model.SourceHappyHour,
		model.SourceFood,
		model.SourceEvents,
		model.SourceCustom,
	}, sources(slides))

	// Drink specials ride on the happy hour slide when both are enabled.
	hh := slides[1]
	require.Len(t, hh.Items, 2)
	assert.Equal(t, "Drink 1", hh.Items[0].Title)
	assert.Equal(t, "Friday, June 6", slides[0].Subtitle)
}

func TestStandaloneDrinksOnlyWhenHappyHourDisabled(t *testing.T) {
	cfg := allOn()
	cfg.IncludeHappyHour = false

	slides := Build(Input{
		Drink:  items("Drink", 3),
		Config: cfg,
	})

	require.NotEmpty(t, slides)
	var drinkSlides []model.Slide
	for _, s := range slides {
		if s.Source == model.SourceDrink {
			drinkSlides = append(drinkSlides, s)
		}
	}
	require.Len(t, drinkSlides, 1)
	assert.Equal(t, "drink-specials", drinkSlides[0].ID)
	assert.Len(t, drinkSlides[0].Items, 3)
}

func TestNoStandaloneDrinksWhileHappyHourEnabledWithoutData(t *testing.T) {
	cfg := model.ContentConfig{
		IncludeHappyHour:     true,
		IncludeDrinkSpecials: true,
	}

	// Happy hour is toggled on but the offer is not published yet: no
	// happy-hour slide can be built, and drinks must not be promoted to a
	// standalone slide either.
	slides := Build(Input{
		HappyHour: nil,
		Drink:     items("Drink", 2),
		Config:    cfg,
	})

	for _, s := range slides {
		assert.NotEqual(t, model.SourceDrink, s.Source)
		assert.NotEqual(t, model.SourceHappyHour, s.Source)
	}
	require.Len(t, slides, 1)
	assert.Equal(t, model.SourceFallback, slides[0].Source)
}

func TestChunkingSplitsAndPreservesItemOrder(t *testing.T) {
	cfg := model.ContentConfig{IncludeFoodSpecials: true}
	all := items("Food", 13)

	slides := Build(Input{Food: all, Config: cfg})
	require.Len(t, slides, 3)

	assert.Equal(t, "food-specials", slides[0].ID)
	assert.Equal(t, "food-specials-2", slides[1].ID)
	assert.Equal(t, "food-specials-3", slides[2].ID)
	assert.Len(t, slides[0].Items, 6)
	assert.Len(t, slides[1].Items, 6)
	assert.Len(t, slides[2].Items, 1)

	// Shared fields are inherited by every chunk, including the subtitle
	// text (chunks are not individually numbered in copy).
	for _, s := range slides {
		assert.Equal(t, "Food Specials", s.Title)
		assert.Equal(t, model.SourceFood, s.Source)
	}

	// Union of chunk items, in order, equals the original list.
	var got []model.SlideItem
	for _, s := range slides {
		got = append(got, s.Items...)
	}
	assert.Equal(t, all, got)
}

func TestSequenceIsDenseAndOrdered(t *testing.T) {
	cfg := allOn()
	cfg.CustomSlides = []model.CustomSlide{{Position: 1, Title: "A"}, {Position: 2, Title: "B"}}

	slides := Build(Input{
		HappyHour: &model.HappyHour{Title: "HH"},
		Food:      items("Food", 8),
		Drink:     items("Drink", 1),
		Events:    items("Event", 7),
		Config:    cfg,
	})

	for i, s := range slides {
		assert.Equal(t, i+1, s.Sequence)
	}
}

func TestFallbackWhenEverythingIsOff(t *testing.T) {
	slides := Build(Input{Config: model.ContentConfig{}})

	require.Len(t, slides, 1)
	assert.Equal(t, model.SourceFallback, slides[0].Source)
	assert.Equal(t, 1, slides[0].Sequence)
	assert.Equal(t, "Ask your bartender", slides[0].Title)
}

func TestFallbackNotEmittedWhenContentExists(t *testing.T) {
	slides := Build(Input{
		Config: model.ContentConfig{IncludeFoodSpecials: true},
		Food:   items("Food", 1),
	})

	require.Len(t, slides, 1)
	assert.NotEqual(t, model.SourceFallback, slides[0].Source)
}

func TestCustomSlidesHonorPositionAndEnablement(t *testing.T) {
	off := false
	cfg := model.ContentConfig{CustomSlides: []model.CustomSlide{
		{Position: 3, Title: "Third"},
		{Position: 1, Title: "First"},
		{Position: 2, Title: "Skipped", Enabled: &off},
	}}

	slides := Build(Input{Config: cfg})
	require.Len(t, slides, 2)
	assert.Equal(t, "First", slides[0].Title)
	assert.Equal(t, "Third", slides[1].Title)
}

func TestImageCustomSlideCarriesOnlyTheImage(t *testing.T) {
	cfg := model.ContentConfig{CustomSlides: []model.CustomSlide{{
		Position:  1,
		SlideType: model.SlideTypeImage,
		Title:     "Poster",
		Body:      "should not render",
		ImageKey:  "uploads/poster.png",
	}}}

	slides := Build(Input{Config: cfg})
	require.Len(t, slides, 1)

	s := slides[0]
	assert.Equal(t, "Poster", s.Label, "title is retained for operator-facing labeling only")
	assert.Empty(t, s.Title)
	assert.Empty(t, s.Body)
	require.Len(t, s.Items, 1)
	assert.Equal(t, "uploads/poster.png", s.Items[0].Image)
}

func TestImageCustomSlideWithMissingKeyFallsBackToText(t *testing.T) {
	cfg := model.ContentConfig{CustomSlides: []model.CustomSlide{{
		Position:  1,
		SlideType: model.SlideTypeImage,
		Title:     "Poster",
		ImageKey:  model.MissingImageKey,
	}}}

	slides := Build(Input{Config: cfg})
	require.Len(t, slides, 1)
	assert.Equal(t, "Poster", slides[0].Title)
	assert.Empty(t, slides[0].Items)
}

func TestUnknownAccentNormalizesSilently(t *testing.T) {
	cfg := model.ContentConfig{CustomSlides: []model.CustomSlide{
		{Position: 1, Title: "A", Accent: "neon-green"},
		{Position: 2, Title: "B", Accent: "PLUM"},
	}}

	slides := Build(Input{Config: cfg})
	require.Len(t, slides, 2)
	assert.Equal(t, model.AccentDefault, slides[0].Accent)
	assert.Equal(t, model.AccentPlum, slides[1].Accent)
}

func TestBlankCustomSlideIsDropped(t *testing.T) {
	cfg := model.ContentConfig{CustomSlides: []model.CustomSlide{{
		Position: 1,
		Title:    "<p>  </p>",
		Body:     "&nbsp;",
	}}}

	slides := Build(Input{Config: cfg})
	require.Len(t, slides, 1)
	assert.Equal(t, model.SourceFallback, slides[0].Source)
}

func TestOverlongTextIsNeverTruncated(t *testing.T) {
	long := "An Extremely Long Special Name That Blows Well Past The Forty Character Layout Budget"
	require.Greater(t, len(long), ItemTitleBudget)

	cfg := model.ContentConfig{IncludeFoodSpecials: true}
	slides := Build(Input{
		Food:   []model.SlideItem{{Title: long}},
		Config: cfg,
	})
	require.Len(t, slides, 1)
	require.Len(t, slides[0].Items, 1)
	assert.Equal(t, long, slides[0].Items[0].Title)
}

func TestBuildDoesNotMutateInput(t *testing.T) {
	food := items("Food", 3)
	orig := append([]model.SlideItem(nil), food...)

	Build(Input{Food: food, Config: model.ContentConfig{IncludeFoodSpecials: true}})
	assert.Equal(t, orig, food)
}
