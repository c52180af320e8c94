package wiki

import (
	"context"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Service defines the wiki operations exposed to the transport layer.
type Service interface {
	NewPage(ctx context.Context, container Container) (string, error)
	Show(ctx context.Context, container Container, identifier string, randomTitle bool) (*ShowResult, error)
	Pages(ctx context.Context, container Container) (*PagesResult, error)
	History(ctx context.Context, container Container, identifier string) (*HistoryResult, error)
	Diff(ctx context.Context, container Container, identifier, versionID string) (*Diff, error)
	Edit(ctx context.Context, container Container, identifier string) (EditOutcome, error)
	Update(ctx context.Context, container Container, identifier string, input PageInput) (EditOutcome, *Page, error)
	Create(ctx context.Context, container Container, input PageInput) (*Page, error)
	Preview(ctx context.Context, text string) (*Rendered, error)
}

// ShowResult is what the show action displays: a resolved page with its
// sidebar, or a raw file when the identifier names a blob.
type ShowResult struct {
	Resolved       ResolvedPage
	File           *File
	Sidebar        []Entry
	SidebarLimited bool
	Notice         string
}

// PagesResult lists every page without content, plus the entry tree.
type PagesResult struct {
	Pages   []Page
	Entries []Entry
}

// HistoryResult lists the versions of a page, newest first.
type HistoryResult struct {
	Page     *Page
	Versions []Version
}

// ServiceOptions configures the wiki service.
type ServiceOptions struct {
	Stores       StoreFactory
	Renderer     Renderer
	Logger       *logrus.Logger
	SentryHub    *sentry.Hub
	SidebarLimit int
}

type service struct {
	resolver     *Resolver
	renderer     Renderer
	logger       *logrus.Logger
	sentryHub    *sentry.Hub
	sidebarLimit int
	newSlug      func() string
}

var _ Service = (*service)(nil)

const defaultSidebarLimit = 15

// NewService wires the wiki service with its dependencies.
func NewService(opts ServiceOptions) (Service, error) {
	if opts.Renderer == nil {
		return nil, eris.New("markdown renderer is required")
	}

	resolver, err := NewResolver(opts.Stores, opts.Logger)
	if err != nil {
		return nil, err
	}

	limit := opts.SidebarLimit
	if limit <= 0 {
		limit = defaultSidebarLimit
	}

	return &service{
		resolver:     resolver,
		renderer:     opts.Renderer,
		logger:       opts.Logger,
		sentryHub:    opts.SentryHub,
		sidebarLimit: limit,
		newSlug:      uuid.NewString,
	}, nil
}

func (s *service) NewPage(ctx context.Context, container Container) (string, error) {
	if _, err := s.open(ctx, container); err != nil {
		return "", err
	}

	return s.newSlug(), nil
}

func (s *service) Show(ctx context.Context, container Container, identifier string, randomTitle bool) (*ShowResult, error) {
	store, err := s.open(ctx, container)
	if err != nil {
		return nil, err
	}

	resolved, err := s.resolver.resolveIn(ctx, store, identifier, randomTitle)
	if err != nil {
		s.recordError(containerFields(container, identifier), err, "resolving wiki page")
		return nil, err
	}

	result := &ShowResult{Resolved: resolved}

	if !resolved.Existing() {
		file, err := store.FindFile(ctx, identifier)
		if err != nil {
			s.recordError(containerFields(container, identifier), err, "finding wiki file")
			return nil, eris.Wrapf(err, "finding file %q", identifier)
		}
		result.File = file
		return result, nil
	}

	if resolved.InvalidEncoding {
		result.Notice = NoticeInvalidEncoding
	}

	sidebar, err := store.ListPages(ctx, ListOptions{Limit: s.sidebarLimit + 1})
	if err != nil {
		s.recordError(containerFields(container, identifier), err, "listing sidebar pages")
		return nil, eris.Wrap(err, "listing sidebar pages")
	}

	if len(sidebar) > s.sidebarLimit {
		sidebar = sidebar[:s.sidebarLimit]
		result.SidebarLimited = true
	}
	result.Sidebar = Entries(sidebar)

	return result, nil
}

func (s *service) Pages(ctx context.Context, container Container) (*PagesResult, error) {
	store, err := s.open(ctx, container)
	if err != nil {
		return nil, err
	}

	pages, err := store.ListPages(ctx, ListOptions{})
	if err != nil {
		s.recordError(containerFields(container, ""), err, "listing wiki pages")
		return nil, eris.Wrap(err, "listing wiki pages")
	}

	return &PagesResult{Pages: pages, Entries: Entries(pages)}, nil
}

func (s *service) History(ctx context.Context, container Container, identifier string) (*HistoryResult, error) {
	store, page, err := s.findExisting(ctx, container, identifier)
	if err != nil {
		return nil, err
	}

	versions, err := store.History(ctx, page.Slug)
	if err != nil {
		s.recordError(containerFields(container, identifier), err, "loading page history")
		return nil, eris.Wrapf(err, "loading history of %s", page.Slug)
	}

	return &HistoryResult{Page: page, Versions: versions}, nil
}

func (s *service) Diff(ctx context.Context, container Container, identifier, versionID string) (*Diff, error) {
	store, page, err := s.findExisting(ctx, container, identifier)
	if err != nil {
		return nil, err
	}

	versionID = strings.TrimSpace(versionID)
	if versionID == "" {
		versionID = page.VersionID
	}

	version, err := store.FindVersion(ctx, page.Slug, versionID)
	if err != nil {
		s.recordError(containerFields(container, identifier), err, "loading page version")
		return nil, eris.Wrapf(err, "loading version %s of %s", versionID, page.Slug)
	}
	if version == nil {
		return nil, eris.Wrapf(ErrVersionNotFound, "version %s of %s", versionID, page.Slug)
	}

	versions, err := store.History(ctx, page.Slug)
	if err != nil {
		s.recordError(containerFields(container, identifier), err, "loading page history")
		return nil, eris.Wrapf(err, "loading history of %s", page.Slug)
	}

	var previous *Version
	for i := range versions {
		if versions[i].ID == version.ID && i+1 < len(versions) {
			previous = &versions[i+1]
			break
		}
	}

	return buildDiff(page, *version, previous)
}

func (s *service) Edit(ctx context.Context, container Container, identifier string) (EditOutcome, error) {
	store, err := s.open(ctx, container)
	if err != nil {
		return EditOutcome{}, err
	}

	outcome, err := s.resolver.resolveEditIn(ctx, store, identifier)
	if err != nil {
		s.recordError(containerFields(container, identifier), err, "resolving page for edit")
		return EditOutcome{}, err
	}

	return outcome, nil
}

func (s *service) Update(ctx context.Context, container Container, identifier string, input PageInput) (EditOutcome, *Page, error) {
	store, err := s.open(ctx, container)
	if err != nil {
		return EditOutcome{}, nil, err
	}

	outcome, err := s.resolver.resolveEditIn(ctx, store, identifier)
	if err != nil {
		s.recordError(containerFields(container, identifier), err, "resolving page for update")
		return EditOutcome{}, nil, err
	}
	if outcome.State != EditStateEditable {
		return outcome, nil, nil
	}

	current := outcome.Page
	input.Title = titleWithinDirectory(current, input.Title)
	if input.Content == "" {
		input.Content = current.Content
	}

	slug := Slug(input.Title)
	if slug == "" {
		return outcome, nil, eris.Wrapf(ErrInvalidPage, "title %q has no usable slug", input.Title)
	}

	if slug != current.Slug {
		clash, err := store.FindPage(ctx, slug)
		if err != nil {
			s.recordError(containerFields(container, identifier), err, "checking slug collision")
			return outcome, nil, eris.Wrapf(err, "checking slug %s", slug)
		}
		if clash != nil {
			return outcome, nil, eris.Wrapf(ErrInvalidPage, "a page with slug %s already exists", slug)
		}
	}

	if input.Message == "" {
		input.Message = "Update " + current.Title
	}

	updated, err := store.UpdatePage(ctx, current.Slug, input)
	if err != nil {
		s.recordError(containerFields(container, identifier), err, "updating wiki page")
		return outcome, nil, eris.Wrapf(err, "updating page %s", current.Slug)
	}

	outcome.Page = updated
	outcome.Target = updated.Slug

	return outcome, updated, nil
}

// titleWithinDirectory keeps a renamed page in its current directory unless
// the new title names a path. A leading slash moves it to the top level.
func titleWithinDirectory(current *Page, title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		title = current.Title
	}
	if strings.Contains(title, "/") {
		return title
	}
	if dir := current.Directory(); dir != "" {
		return dir + "/" + title
	}
	return title
}

func (s *service) Create(ctx context.Context, container Container, input PageInput) (*Page, error) {
	store, err := s.open(ctx, container)
	if err != nil {
		return nil, err
	}

	slug := Slug(strings.TrimSpace(input.Title))
	if slug == "" {
		return nil, eris.Wrap(ErrInvalidPage, "title is required")
	}

	existing, err := store.FindPage(ctx, slug)
	if err != nil {
		s.recordError(containerFields(container, slug), err, "checking slug collision")
		return nil, eris.Wrapf(err, "checking slug %s", slug)
	}
	if existing != nil {
		return nil, eris.Wrapf(ErrInvalidPage, "a page with slug %s already exists", slug)
	}

	input.Title = strings.TrimSpace(input.Title)
	if input.Message == "" {
		input.Message = "Create " + TitleFromSlug(slug)
	}

	page, err := store.CreatePage(ctx, input)
	if err != nil {
		s.recordError(containerFields(container, slug), err, "creating wiki page")
		return nil, eris.Wrapf(err, "creating page %s", slug)
	}

	return page, nil
}

func (s *service) Preview(ctx context.Context, text string) (*Rendered, error) {
	rendered, err := s.renderer.Render(ctx, text)
	if err != nil {
		s.recordError(nil, err, "rendering markdown preview")
		return nil, eris.Wrap(err, "rendering markdown preview")
	}

	if rendered.References == nil {
		rendered.References = []string{}
	}

	return &rendered, nil
}

func (s *service) open(ctx context.Context, container Container) (Store, error) {
	store, err := s.resolver.Open(ctx, container)
	if err != nil {
		s.recordError(containerFields(container, ""), err, "opening wiki store")
		return nil, err
	}
	return store, nil
}

func (s *service) findExisting(ctx context.Context, container Container, identifier string) (Store, *Page, error) {
	store, err := s.open(ctx, container)
	if err != nil {
		return nil, nil, err
	}

	page, err := store.FindPage(ctx, identifier)
	if err != nil {
		s.recordError(containerFields(container, identifier), err, "finding wiki page")
		return nil, nil, eris.Wrapf(err, "finding page %q", identifier)
	}
	if page == nil {
		return nil, nil, eris.Wrapf(ErrPageNotFound, "page %q", identifier)
	}

	return store, page, nil
}

func (s *service) recordError(fields logrus.Fields, err error, message string) {
	if err == nil {
		return
	}

	if s.logger != nil {
		entry := s.logger.WithField("error", err.Error())
		if len(fields) > 0 {
			entry = entry.WithFields(fields)
		}
		entry.Error(message)
	}

	if s.sentryHub != nil {
		s.sentryHub.CaptureException(err)
	}
}

func containerFields(container Container, identifier string) logrus.Fields {
	fields := logrus.Fields{
		"container_kind": container.Kind,
		"container_path": container.Path,
	}
	if identifier != "" {
		fields["page"] = identifier
	}
	return fields
}
