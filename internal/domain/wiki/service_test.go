package wiki

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/rotisserie/eris"
)

func setupService(t *testing.T, sidebarLimit int) (Service, *memoryFactory, *memoryStore, *stubRenderer) {
	t.Helper()

	factory := newMemoryFactory()
	store := factory.store(testProject)
	if _, err := store.CreatePage(context.Background(), PageInput{Title: wikiTitle, Content: "hello world", Message: "initial"}); err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}

	renderer := &stubRenderer{}
	svc, err := NewService(ServiceOptions{
		Stores:       factory,
		Renderer:     renderer,
		Logger:       silentLogger(),
		SidebarLimit: sidebarLimit,
	})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}

	return svc, factory, store, renderer
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := NewService(ServiceOptions{Stores: newMemoryFactory()}); err == nil {
		t.Fatalf("expected error when renderer is missing")
	}

	if _, err := NewService(ServiceOptions{Renderer: &stubRenderer{}}); err == nil {
		t.Fatalf("expected error when store factory is missing")
	}
}

func TestServiceNewPageReturnsRandomSlug(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := setupService(t, 0)

	first, err := svc.NewPage(context.Background(), testProject)
	if err != nil {
		t.Fatalf("NewPage returned error: %v", err)
	}
	second, err := svc.NewPage(context.Background(), testProject)
	if err != nil {
		t.Fatalf("NewPage returned error: %v", err)
	}

	if len(first) != 36 {
		t.Fatalf("expected uuid slug, got %q", first)
	}
	if first == second {
		t.Fatalf("expected distinct slugs, got %q twice", first)
	}
}

func TestServiceNewPageReportsStoreUnavailable(t *testing.T) {
	t.Parallel()

	svc, factory, _, _ := setupService(t, 0)
	factory.err = errStub("cannot create repository")

	if _, err := svc.NewPage(context.Background(), testProject); !eris.Is(err, ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
}

func TestServiceShowExistingPageLoadsSidebar(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := setupService(t, 0)

	result, err := svc.Show(context.Background(), testProject, wikiTitle, false)
	if err != nil {
		t.Fatalf("Show returned error: %v", err)
	}

	if !result.Resolved.Existing() || result.Resolved.Title != wikiTitle {
		t.Fatalf("expected existing page %q, got %#v", wikiTitle, result.Resolved)
	}
	if len(result.Sidebar) != 1 || result.Sidebar[0].Page == nil {
		t.Fatalf("expected single page sidebar entry, got %#v", result.Sidebar)
	}
	if result.SidebarLimited {
		t.Fatalf("expected sidebar not to be limited")
	}
	if result.Notice != "" {
		t.Fatalf("expected no notice, got %q", result.Notice)
	}
}

func TestServiceShowLimitsSidebar(t *testing.T) {
	t.Parallel()

	svc, _, store, _ := setupService(t, 2)
	for i := 0; i < 3; i++ {
		if _, err := store.CreatePage(context.Background(), PageInput{Title: fmt.Sprintf("extra %d", i)}); err != nil {
			t.Fatalf("CreatePage returned error: %v", err)
		}
	}

	result, err := svc.Show(context.Background(), testProject, wikiTitle, false)
	if err != nil {
		t.Fatalf("Show returned error: %v", err)
	}

	if len(result.Sidebar) != 2 {
		t.Fatalf("expected 2 sidebar entries, got %d", len(result.Sidebar))
	}
	if !result.SidebarLimited {
		t.Fatalf("expected sidebar to be limited")
	}
}

func TestServiceShowSetsInvalidEncodingNotice(t *testing.T) {
	t.Parallel()

	svc, _, store, _ := setupService(t, 0)
	store.seed(Page{Slug: "latin1", Title: "latin1", Content: "caf\xe9", Loaded: true})

	result, err := svc.Show(context.Background(), testProject, "latin1", false)
	if err != nil {
		t.Fatalf("Show returned error: %v", err)
	}

	if result.Notice != NoticeInvalidEncoding {
		t.Fatalf("expected invalid encoding notice, got %q", result.Notice)
	}
}

func TestServiceShowMissingPage(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := setupService(t, 0)

	result, err := svc.Show(context.Background(), testProject, "does not exist", false)
	if err != nil {
		t.Fatalf("Show returned error: %v", err)
	}
	if result.Resolved.Existing() || result.Resolved.Title != "does not exist" {
		t.Fatalf("expected new page titled from identifier, got %#v", result.Resolved)
	}
	if result.Sidebar != nil {
		t.Fatalf("expected sidebar not to be loaded for new pages")
	}

	random, err := svc.Show(context.Background(), testProject, "does not exist", true)
	if err != nil {
		t.Fatalf("Show returned error: %v", err)
	}
	if random.Resolved.Title != "" {
		t.Fatalf("expected empty title with random_title, got %q", random.Resolved.Title)
	}
}

func TestServiceShowFindsFiles(t *testing.T) {
	t.Parallel()

	svc, _, store, _ := setupService(t, 0)
	file := File{Path: "uploads/dk.png", Name: "dk.png", ContentType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}}
	if err := store.CreateFile(context.Background(), file); err != nil {
		t.Fatalf("CreateFile returned error: %v", err)
	}

	result, err := svc.Show(context.Background(), testProject, "uploads/dk.png", false)
	if err != nil {
		t.Fatalf("Show returned error: %v", err)
	}

	if result.File == nil || result.File.Name != "dk.png" {
		t.Fatalf("expected file to be returned, got %#v", result.File)
	}
}

func TestServicePagesOmitsContent(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := setupService(t, 0)

	result, err := svc.Pages(context.Background(), testProject)
	if err != nil {
		t.Fatalf("Pages returned error: %v", err)
	}

	if len(result.Pages) != 1 || len(result.Entries) != 1 {
		t.Fatalf("expected one page and one entry, got %d and %d", len(result.Pages), len(result.Entries))
	}
	if result.Pages[0].Loaded || result.Pages[0].Content != "" {
		t.Fatalf("expected page content not to be loaded, got %#v", result.Pages[0])
	}
}

func TestServiceHistory(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := setupService(t, 0)

	result, err := svc.History(context.Background(), testProject, wikiTitle)
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(result.Versions) != 1 {
		t.Fatalf("expected one version, got %d", len(result.Versions))
	}

	if _, err := svc.History(context.Background(), testProject, "missing"); !eris.Is(err, ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound, got %v", err)
	}
}

func TestServiceDiff(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, store, _ := setupService(t, 0)

	updated, err := store.UpdatePage(ctx, "page-title-test", PageInput{Title: wikiTitle, Content: "hello gophers"})
	if err != nil {
		t.Fatalf("UpdatePage returned error: %v", err)
	}

	diff, err := svc.Diff(ctx, testProject, wikiTitle, updated.VersionID)
	if err != nil {
		t.Fatalf("Diff returned error: %v", err)
	}
	if diff.Previous == nil {
		t.Fatalf("expected previous version to be found")
	}
	if !strings.Contains(diff.Unified, "-hello world") || !strings.Contains(diff.Unified, "+hello gophers") {
		t.Fatalf("expected unified diff of the change, got %q", diff.Unified)
	}
	if diff.Additions != 1 || diff.Deletions != 1 {
		t.Fatalf("expected 1 addition and 1 deletion, got %d and %d", diff.Additions, diff.Deletions)
	}

	first, err := svc.Diff(ctx, testProject, wikiTitle, diff.Previous.ID)
	if err != nil {
		t.Fatalf("Diff returned error: %v", err)
	}
	if first.Previous != nil || !strings.Contains(first.Unified, "+hello world") {
		t.Fatalf("expected first version to diff against nothing, got %q", first.Unified)
	}
}

func TestServiceDiffNotFound(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := setupService(t, 0)

	if _, err := svc.Diff(context.Background(), testProject, wikiTitle, "invalid"); !eris.Is(err, ErrVersionNotFound) {
		t.Fatalf("expected ErrVersionNotFound, got %v", err)
	}

	if _, err := svc.Diff(context.Background(), testProject, "invalid", ""); !eris.Is(err, ErrPageNotFound) {
		t.Fatalf("expected ErrPageNotFound, got %v", err)
	}
}

func TestServiceUpdatePersistsNewVersion(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, store, _ := setupService(t, 0)

	outcome, page, err := svc.Update(ctx, testProject, wikiTitle, PageInput{Title: "New title", Content: "New content"})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}

	if outcome.State != EditStateEditable {
		t.Fatalf("expected editable outcome, got %s", outcome.State)
	}
	if page == nil || page.Title != "New title" || page.Content != "New content" {
		t.Fatalf("expected updated page, got %#v", page)
	}
	if outcome.Target != "New-title" {
		t.Fatalf("expected target New-title, got %q", outcome.Target)
	}

	pages, err := store.ListPages(ctx, ListOptions{LoadContent: true})
	if err != nil {
		t.Fatalf("ListPages returned error: %v", err)
	}
	if len(pages) != 1 || pages[0].Title != "New title" || pages[0].Content != "New content" {
		t.Fatalf("expected stored page to be updated, got %#v", pages)
	}

	history, err := store.History(ctx, "New-title")
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(history) != 2 || history[0].Message != "Update page title test" {
		t.Fatalf("expected two versions with default message, got %#v", history)
	}
}

func TestServiceUpdateFollowsEditStateMachine(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := setupService(t, 0)

	outcome, page, err := svc.Update(context.Background(), testProject, " ", PageInput{Title: "x", Content: "y"})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if outcome.State != EditStateRedirectToHome || page != nil {
		t.Fatalf("expected redirect to home without update, got %s %#v", outcome.State, page)
	}
}

func TestServiceUpdateKeepsNestedPageInItsDirectory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		title    string
		expected string
	}{
		{name: "blank title", title: "", expected: "guides/setup"},
		{name: "current title", title: "setup", expected: "guides/setup"},
		{name: "rename", title: "first steps", expected: "guides/first-steps"},
		{name: "explicit path", title: "howto/setup", expected: "howto/setup"},
		{name: "top level", title: "/setup", expected: "setup"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			svc, _, store, _ := setupService(t, 0)
			if _, err := store.CreatePage(ctx, PageInput{Title: "guides/setup", Content: "v1"}); err != nil {
				t.Fatalf("CreatePage returned error: %v", err)
			}

			outcome, page, err := svc.Update(ctx, testProject, "guides/setup", PageInput{Title: tt.title, Content: "v2"})
			if err != nil {
				t.Fatalf("Update returned error: %v", err)
			}
			if outcome.State != EditStateEditable || page == nil {
				t.Fatalf("expected editable outcome with page, got %s %#v", outcome.State, page)
			}
			if page.Slug != tt.expected || outcome.Target != tt.expected {
				t.Fatalf("expected slug %q, got %q (target %q)", tt.expected, page.Slug, outcome.Target)
			}
			if page.Content != "v2" {
				t.Fatalf("expected content v2, got %q", page.Content)
			}
		})
	}
}

func TestServiceUpdateWithoutContentKeepsExistingContent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, store, _ := setupService(t, 0)

	_, page, err := svc.Update(ctx, testProject, wikiTitle, PageInput{Title: "renamed"})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if page == nil || page.Slug != "renamed" || page.Content != "hello world" {
		t.Fatalf("expected renamed page with original content, got %#v", page)
	}

	history, err := store.History(ctx, "renamed")
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(history) != 2 || history[0].Content != "hello world" {
		t.Fatalf("expected new version to carry the original content, got %#v", history)
	}
}

func TestServiceUpdateRejectsSlugCollision(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, store, _ := setupService(t, 0)
	if _, err := store.CreatePage(ctx, PageInput{Title: "taken"}); err != nil {
		t.Fatalf("CreatePage returned error: %v", err)
	}

	if _, _, err := svc.Update(ctx, testProject, wikiTitle, PageInput{Title: "taken"}); !eris.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage, got %v", err)
	}
}

func TestServiceCreate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _, _, _ := setupService(t, 0)

	page, err := svc.Create(ctx, testProject, PageInput{Title: "guides/getting started", Content: "# Start"})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if page.Slug != "guides/getting-started" || page.Title != "getting started" {
		t.Fatalf("unexpected created page %#v", page)
	}

	if _, err := svc.Create(ctx, testProject, PageInput{Title: "  "}); !eris.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage for blank title, got %v", err)
	}

	if _, err := svc.Create(ctx, testProject, PageInput{Title: wikiTitle}); !eris.Is(err, ErrInvalidPage) {
		t.Fatalf("expected ErrInvalidPage for duplicate title, got %v", err)
	}
}

func TestServicePreview(t *testing.T) {
	t.Parallel()

	svc, _, _, renderer := setupService(t, 0)

	rendered, err := svc.Preview(context.Background(), "*Markdown* text")
	if err != nil {
		t.Fatalf("Preview returned error: %v", err)
	}
	if rendered.HTML != "<p>*Markdown* text</p>" {
		t.Fatalf("unexpected preview html %q", rendered.HTML)
	}
	if rendered.References == nil {
		t.Fatalf("expected references to be an empty list, not nil")
	}

	renderer.err = errStub("renderer down")
	if _, err := svc.Preview(context.Background(), "text"); err == nil {
		t.Fatalf("expected renderer error to be propagated")
	}
}
