package wiki

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/rotisserie/eris"
)

// Diff describes the change a version introduced to a page.
type Diff struct {
	Page      *Page
	Version   Version
	Previous  *Version
	Unified   string
	Additions int
	Deletions int
}

// buildDiff renders the unified diff between previous (nil for the first
// version) and version.
func buildDiff(page *Page, version Version, previous *Version) (*Diff, error) {
	fromFile := "/dev/null"
	var fromLines []string
	if previous != nil {
		fromFile = page.Slug + "@" + previous.ID
		fromLines = difflib.SplitLines(previous.Content)
	}

	unified, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        fromLines,
		B:        difflib.SplitLines(version.Content),
		FromFile: fromFile,
		ToFile:   page.Slug + "@" + version.ID,
		Context:  3,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "diffing version %s of %s", version.ID, page.Slug)
	}

	diff := &Diff{
		Page:     page,
		Version:  version,
		Previous: previous,
		Unified:  unified,
	}

	for _, line := range strings.Split(unified, "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
		case strings.HasPrefix(line, "+"):
			diff.Additions++
		case strings.HasPrefix(line, "-"):
			diff.Deletions++
		}
	}

	return diff, nil
}
