package pricing

import (
	"regexp"
	"strings"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases s, collapses every run of characters outside [a-z0-9]
// into a single hyphen and trims hyphens from both ends.
func Slugify(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(slug, "-")
}

// ProductSlug builds "{name}-{category}", or just "{name}" when the product
// has no category name. Identical inputs yield identical slugs; collisions are
// left to the unique index.
func ProductSlug(name, categoryName string) string {
	nameSlug := Slugify(name)
	if categoryName == "" {
		return nameSlug
	}
	return nameSlug + "-" + Slugify(categoryName)
}
