package format

import (
	"html"
	"html/template"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/faizanr27/food-facts/internal/catalog"
)

// Nutrient formats a per-100g value with up to two decimals in lang's number
// style, followed by unit. A nil value renders na.
func Nutrient(v *float64, unit, lang, na string) string {
	if v == nil {
		return na
	}
	tag, err := language.Parse(lang)
	if err != nil {
		tag = language.English
	}
	out := message.NewPrinter(tag).Sprint(number.Decimal(*v, number.MaxFractionDigits(2)))
	if unit == "" {
		return out
	}
	return out + " " + unit
}

// GradeClass returns the badge CSS class for a grade.
func GradeClass(g catalog.Grade) string {
	if !g.Valid() {
		return "grade-unknown"
	}
	return "grade-" + string(g)
}

// GradeLabel returns the uppercase grade letter, or na when absent.
func GradeLabel(g catalog.Grade, na string) string {
	if !g.Valid() {
		return na
	}
	return g.Letter()
}

// OrNA returns s, or na when s is blank.
func OrNA(s, na string) string {
	if strings.TrimSpace(s) == "" {
		return na
	}
	return s
}

var (
	allergenMarker = regexp.MustCompile(`_([^_\n]+)_`)
	strongOnly     = bluemonday.NewPolicy().AllowElements("strong")
)

// Ingredients escapes the ingredient text and renders _allergen_ markers in bold.
func Ingredients(text string) template.HTML {
	escaped := html.EscapeString(strings.TrimSpace(text))
	marked := allergenMarker.ReplaceAllString(escaped, "<strong>$1</strong>")
	return template.HTML(strongOnly.Sanitize(marked))
}

// PlainIngredients drops the allergen markers.
func PlainIngredients(text string) string {
	return allergenMarker.ReplaceAllString(strings.TrimSpace(text), "$1")
}

// MarkdownIngredients renders _allergen_ markers as markdown bold.
func MarkdownIngredients(text string) string {
	return allergenMarker.ReplaceAllString(strings.TrimSpace(text), "**$1**")
}
