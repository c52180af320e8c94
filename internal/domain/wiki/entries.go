package wiki

import "strings"

// Entries groups pages into top-level pages and directories, preserving the
// order in which each entry is first seen.
func Entries(pages []Page) []Entry {
	entries := make([]Entry, 0, len(pages))
	directories := make(map[string]int)

	for i := range pages {
		page := pages[i]
		dir := topDirectory(page.Slug)
		if dir == "" {
			entries = append(entries, Entry{Page: &page})
			continue
		}

		if idx, ok := directories[dir]; ok {
			entries[idx].Pages = append(entries[idx].Pages, page)
			continue
		}

		directories[dir] = len(entries)
		entries = append(entries, Entry{Directory: dir, Pages: []Page{page}})
	}

	return entries
}

func topDirectory(slug string) string {
	idx := strings.Index(slug, "/")
	if idx <= 0 {
		return ""
	}
	return slug[:idx]
}
