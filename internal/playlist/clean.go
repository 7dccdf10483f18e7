package playlist

import (
	"html"
	"regexp"
	"strings"

	"barsign/internal/model"
)

// Advisory per-field character budgets for the board layout. Text is never
// truncated to these; the screen has room and a clipped price or event name
// is worse than an overflowing one. They are exported so the back-office
// editor can warn the operator while typing.
const (
	TitleBudget      = 40
	SubtitleBudget   = 60
	BodyBudget       = 140
	FooterBudget     = 60
	ItemTitleBudget  = 40
	ItemMetaBudget   = 60
	ItemDetailBudget = 120
)

var (
	tagPattern    = regexp.MustCompile(`<[^>]*>`)
	spaceRun      = regexp.MustCompile(`\s+`)
	horizontalRun = regexp.MustCompile(`[^\S\n]+`)
	blankLines    = regexp.MustCompile(`\n{3,}`)
)

// cleanText strips markup tags, decodes entities, and collapses internal
// whitespace to single spaces. keepNewlines preserves line structure for
// free-form body copy (blank runs collapse to one empty line). The result
// is trimmed; empty input cleans to "".
func cleanText(s string, keepNewlines bool) string {
	if s == "" {
		return ""
	}
	s = tagPattern.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)

	if !keepNewlines {
		return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
	}

	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = horizontalRun.ReplaceAllString(s, " ")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func cleanItem(it model.SlideItem) model.SlideItem {
	return model.SlideItem{
		Title:  cleanText(it.Title, false),
		Note:   cleanText(it.Note, false),
		Time:   cleanText(it.Time, false),
		Detail: cleanText(it.Detail, false),
		Image:  strings.TrimSpace(it.Image),
	}
}

// cleanItems sanitizes every item and drops the ones that clean to nothing.
func cleanItems(items []model.SlideItem) []model.SlideItem {
	out := make([]model.SlideItem, 0, len(items))
	for _, it := range items {
		c := cleanItem(it)
		if c == (model.SlideItem{}) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// normalizeAccent maps any string to a palette member; unknown values take
// the default accent rather than erroring.
func normalizeAccent(s string) model.Accent {
	a := model.Accent(strings.ToLower(strings.TrimSpace(s)))
	if a.Valid() {
		return a
	}
	return model.AccentDefault
}
