package templates

// SiteName is appended to every document title.
const SiteName = "Wikihub"

// LayoutData contains the shared chrome around every wiki view.
type LayoutData struct {
	Title     string
	Container string
	HomeURL   string
	PagesURL  string
	NewURL    string
	Notice    string
	Sidebar   *SidebarView
}

// SidebarView lists the first pages of a wiki next to the page being shown.
type SidebarView struct {
	Entries  []EntryView
	Limited  bool
	PagesURL string
}

// EntryView is a page link or a directory with its pages.
type EntryView struct {
	Title     string
	URL       string
	Directory string
	Children  []EntryView
}

// PageView renders an existing page.
type PageView struct {
	Title      string
	HTML       string
	Content    string
	Plain      bool
	EditURL    string
	HistoryURL string
	CanEdit    bool
}

// NewPageView renders the form for a page that does not exist yet.
type NewPageView struct {
	Title      string
	Action     string
	PreviewURL string
}

// EditPageView renders the edit form of an existing page.
type EditPageView struct {
	Title      string
	Content    string
	Format     string
	Action     string
	PreviewURL string
	PageURL    string
}

// PagesView lists every page of a wiki.
type PagesView struct {
	Entries []EntryView
	NewURL  string
	Count   int
}

// VersionView is one row of a page history.
type VersionView struct {
	ID        string
	Message   string
	Author    string
	CreatedAt string
	DiffURL   string
}

// HistoryView lists the versions of a page.
type HistoryView struct {
	Title    string
	PageURL  string
	Versions []VersionView
}

// DiffLine is one line of a unified diff classified for styling.
type DiffLine struct {
	Kind string
	Text string
}

// DiffView renders the change introduced by one version.
type DiffView struct {
	Title      string
	PageURL    string
	HistoryURL string
	VersionID  string
	Message    string
	Author     string
	Additions  int
	Deletions  int
	Lines      []DiffLine
}

// EmptyStateView is shown to users who may read a wiki but not write to it.
type EmptyStateView struct {
	Message string
	WikiURL string
}

// ContainerView is the landing page of a project or group.
type ContainerView struct {
	Label   string
	WikiURL string
}

// ErrorPageData holds information for rendering an error view.
type ErrorPageData struct {
	StatusLabel string
	Message     string
}
