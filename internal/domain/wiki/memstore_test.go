package wiki

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

type memoryStore struct {
	pages    map[string]*Page
	versions map[string][]Version
	files    map[string]File
	findErr  error
	clock    time.Time
	seq      int
}

var _ Store = (*memoryStore)(nil)

func newMemoryStore() *memoryStore {
	return &memoryStore{
		pages:    make(map[string]*Page),
		versions: make(map[string][]Version),
		files:    make(map[string]File),
		clock:    time.Unix(1_700_000_000, 0),
	}
}

func (m *memoryStore) FindPage(_ context.Context, identifier string) (*Page, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	page, ok := m.pages[Slug(identifier)]
	if !ok {
		return nil, nil
	}
	copy := *page
	return &copy, nil
}

func (m *memoryStore) ListPages(_ context.Context, opts ListOptions) ([]Page, error) {
	slugs := make([]string, 0, len(m.pages))
	for slug := range m.pages {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	pages := make([]Page, 0, len(slugs))
	for _, slug := range slugs {
		page := *m.pages[slug]
		if !opts.LoadContent {
			page.Content = ""
			page.Loaded = false
		}
		pages = append(pages, page)
		if opts.Limit > 0 && len(pages) == opts.Limit {
			break
		}
	}
	return pages, nil
}

func (m *memoryStore) FindFile(_ context.Context, identifier string) (*File, error) {
	file, ok := m.files[strings.Trim(identifier, "/")]
	if !ok {
		return nil, nil
	}
	return &file, nil
}

func (m *memoryStore) CreatePage(_ context.Context, input PageInput) (*Page, error) {
	slug := Slug(input.Title)
	if _, exists := m.pages[slug]; exists {
		return nil, eris.Errorf("page with slug %s already exists", slug)
	}
	page := &Page{Slug: slug, Title: TitleFromSlug(slug), Format: "markdown"}
	m.pages[slug] = page
	m.commit(page, input)
	copy := *page
	return &copy, nil
}

func (m *memoryStore) UpdatePage(_ context.Context, slug string, input PageInput) (*Page, error) {
	page, ok := m.pages[slug]
	if !ok {
		return nil, eris.Errorf("page %s not found", slug)
	}
	newSlug := Slug(input.Title)
	if newSlug != slug {
		delete(m.pages, slug)
		m.versions[newSlug] = m.versions[slug]
		delete(m.versions, slug)
		page.Slug = newSlug
		m.pages[newSlug] = page
	}
	page.Title = TitleFromSlug(newSlug)
	m.commit(page, input)
	copy := *page
	return &copy, nil
}

func (m *memoryStore) commit(page *Page, input PageInput) {
	m.seq++
	m.clock = m.clock.Add(time.Minute)
	version := Version{
		ID:        fmt.Sprintf("v%d", m.seq),
		Title:     page.Title,
		Content:   input.Content,
		Message:   input.Message,
		Author:    input.Author,
		CreatedAt: m.clock,
	}
	page.Content = input.Content
	page.Loaded = true
	page.VersionID = version.ID
	page.UpdatedAt = m.clock
	m.versions[page.Slug] = append([]Version{version}, m.versions[page.Slug]...)
}

func (m *memoryStore) History(_ context.Context, slug string) ([]Version, error) {
	return append([]Version(nil), m.versions[slug]...), nil
}

func (m *memoryStore) FindVersion(_ context.Context, slug, versionID string) (*Version, error) {
	for _, version := range m.versions[slug] {
		if version.ID == versionID {
			v := version
			return &v, nil
		}
	}
	return nil, nil
}

func (m *memoryStore) CreateFile(_ context.Context, file File) error {
	m.files[strings.Trim(file.Path, "/")] = file
	return nil
}

// seed stores a page directly, bypassing validation, so tests can shape
// content that the service would never write.
func (m *memoryStore) seed(page Page) {
	m.pages[page.Slug] = &page
}

type memoryFactory struct {
	stores map[string]*memoryStore
	err    error
	calls  int
}

var _ StoreFactory = (*memoryFactory)(nil)

func newMemoryFactory() *memoryFactory {
	return &memoryFactory{stores: make(map[string]*memoryStore)}
}

func (f *memoryFactory) ForContainer(_ context.Context, container Container) (Store, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.store(container), nil
}

func (f *memoryFactory) store(container Container) *memoryStore {
	key := string(container.Kind) + ":" + container.Path
	store, ok := f.stores[key]
	if !ok {
		store = newMemoryStore()
		f.stores[key] = store
	}
	return store
}

type stubRenderer struct {
	rendered Rendered
	err      error
	calls    int
}

var _ Renderer = (*stubRenderer)(nil)

func (s *stubRenderer) Render(_ context.Context, text string) (Rendered, error) {
	s.calls++
	if s.err != nil {
		return Rendered{}, s.err
	}
	if s.rendered.HTML == "" {
		return Rendered{HTML: "<p>" + text + "</p>"}, nil
	}
	return s.rendered, nil
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

type errStub string

func (e errStub) Error() string {
	return string(e)
}

var testProject = Container{Kind: ContainerProject, Path: "acme/handbook"}
