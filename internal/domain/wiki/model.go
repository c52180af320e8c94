package wiki

import (
	"strings"
	"time"
)

// ContainerKind distinguishes the scopes that can own a wiki.
type ContainerKind string

const (
	ContainerProject ContainerKind = "project"
	ContainerGroup   ContainerKind = "group"
)

// Container is the project or group that owns a wiki.
type Container struct {
	Kind   ContainerKind
	Path   string
	Public bool
}

// Valid reports whether the container kind is known and the path is set.
func (c Container) Valid() bool {
	if strings.TrimSpace(c.Path) == "" {
		return false
	}
	return c.Kind == ContainerProject || c.Kind == ContainerGroup
}

// Page is a wiki page as seen by the domain layer. Loaded is false when the
// page was listed without its content.
type Page struct {
	Slug      string
	Title     string
	Content   string
	Format    string
	Loaded    bool
	VersionID string
	UpdatedAt time.Time
}

// Directory returns the directory portion of the slug, or "" for top-level pages.
func (p Page) Directory() string {
	idx := strings.LastIndex(p.Slug, "/")
	if idx < 0 {
		return ""
	}
	return p.Slug[:idx]
}

// File is a raw blob stored alongside wiki pages.
type File struct {
	Path        string
	Name        string
	ContentType string
	Data        []byte
}

// Version is a single entry in a page history.
type Version struct {
	ID        string
	Title     string
	Content   string
	Message   string
	Author    string
	CreatedAt time.Time
}

// PageInput carries the user supplied fields for creating or updating a page.
type PageInput struct {
	Title   string
	Content string
	Format  string
	Message string
	Author  string
}

// ListOptions controls how pages are listed.
type ListOptions struct {
	LoadContent bool
	Limit       int
}

// Resolution enumerates the outcomes of page resolution.
type Resolution int

const (
	ResolutionNew Resolution = iota
	ResolutionExisting
)

func (r Resolution) String() string {
	switch r {
	case ResolutionExisting:
		return "existing"
	default:
		return "new"
	}
}

// ResolvedPage is either an existing page or a placeholder for a new one.
type ResolvedPage struct {
	Kind            Resolution
	Title           string
	Page            *Page
	InvalidEncoding bool
}

// Existing reports whether the identifier matched a stored page.
func (r ResolvedPage) Existing() bool {
	return r.Kind == ResolutionExisting
}

// EditState is a terminal state of the edit flow.
type EditState int

const (
	EditStateEditable EditState = iota
	EditStateRedirectToShow
	EditStateRedirectToHome
)

func (s EditState) String() string {
	switch s {
	case EditStateEditable:
		return "editable"
	case EditStateRedirectToShow:
		return "redirect_to_show"
	case EditStateRedirectToHome:
		return "redirect_to_home"
	default:
		return "unknown"
	}
}

// EditOutcome is the result of running the edit state machine. Target holds
// the slug to redirect to for the redirect states.
type EditOutcome struct {
	State           EditState
	Page            *Page
	Target          string
	InvalidEncoding bool
}

// Entry is an element of the wiki entry tree: a top-level page or a
// directory grouping nested pages.
type Entry struct {
	Page      *Page
	Directory string
	Pages     []Page
}

// IsDirectory reports whether the entry groups nested pages.
func (e Entry) IsDirectory() bool {
	return e.Page == nil
}
