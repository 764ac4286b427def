package search

import (
	"regexp"
	"strings"
)

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*|\p{N}+`)

// categoryTerms expands a category key into the Norwegian words customers
// search with.
var categoryTerms = map[string]string{
	"hair":     "hair hår frisør klipp",
	"nails":    "nails negler manikyr pedikyr",
	"makeup":   "makeup sminke",
	"lashes":   "lashes vipper vippeextensions",
	"brows":    "brows bryn",
	"wedding":  "wedding bryllup brud",
	"skincare": "skincare hudpleie ansiktsbehandling",
}

// ServiceText flattens the searchable fields of a catalog entry into one
// document text.
//
// Notes:
//   - Empty parts are skipped.
//   - Whitespace runs collapse to one space.
//   - The category is expanded with its Norwegian search terms.
func ServiceText(title, category, description, stylistName, city string) string {
	parts := []string{title, categoryTerms[category], description, stylistName, city}
	if _, ok := categoryTerms[category]; !ok && category != "" {
		parts[1] = category
	}
	var b strings.Builder
	for _, p := range parts {
		p = strings.TrimSpace(normalizeWhitespace(p))
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p)
	}
	return b.String()
}

func normalizeWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	prevSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
			continue
		}
		prevSpace = false
		b.WriteRune(r)
	}
	return b.String()
}
