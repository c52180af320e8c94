package wiki

import "strings"

// HomeSlug is the slug of the page a wiki falls back to.
const HomeSlug = "home"

// Slug normalises a page identifier into its lookup key. Spaces become
// hyphens and surrounding path separators are dropped; no other trimming
// happens, so a blank identifier yields a key that matches nothing.
func Slug(identifier string) string {
	slug := strings.ReplaceAll(identifier, " ", "-")
	return strings.Trim(slug, "/")
}

// TitleFromSlug derives a display title from the final slug segment.
func TitleFromSlug(slug string) string {
	if idx := strings.LastIndex(slug, "/"); idx >= 0 {
		slug = slug[idx+1:]
	}
	return strings.ReplaceAll(slug, "-", " ")
}
