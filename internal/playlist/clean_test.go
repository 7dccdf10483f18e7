package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"barsign/internal/model"
)

func TestCleanTextStripsMarkup(t *testing.T) {
	assert.Equal(t, "Wing Night", cleanText("<b>Wing</b> Night", false))
	assert.Equal(t, "Half price", cleanText(`<a href="https://example.com">Half</a> price`, false))
	assert.Equal(t, "Mac & Cheese", cleanText("Mac &amp; Cheese", false))
}

func TestCleanTextCollapsesWhitespace(t *testing.T) {
	assert.Equal(t, "two for one", cleanText("  two \t for\n one  ", false))
	assert.Equal(t, "", cleanText("   \t\n ", false))
	assert.Equal(t, "", cleanText("<p></p>", false))
}

func TestCleanTextPreservesNewlinesWhenAsked(t *testing.T) {
	in := "Line one.  \r\nLine two.\n\n\n\nLine three."
	assert.Equal(t, "Line one.\nLine two.\n\nLine three.", cleanText(in, true))
}

func TestCleanItemsDropsEmptyEntries(t *testing.T) {
	out := cleanItems([]model.SlideItem{
		{Title: "<i></i>"},
		{Title: "Keeps", Note: "  $5  "},
	})
	assert.Equal(t, []model.SlideItem{{Title: "Keeps", Note: "$5"}}, out)
}

func TestNormalizeAccent(t *testing.T) {
	assert.Equal(t, model.AccentPine, normalizeAccent(" Pine "))
	assert.Equal(t, model.AccentDefault, normalizeAccent("chartreuse"))
	assert.Equal(t, model.AccentDefault, normalizeAccent(""))
}
