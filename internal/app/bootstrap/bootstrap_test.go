package bootstrap

import (
	"context"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	domainwiki "wikihub/app/internal/domain/wiki"
	"wikihub/app/internal/platform/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	return config.Config{
		DBPath:       filepath.Join(t.TempDir(), "wikihub.db"),
		SidebarLimit: 15,
		RateLimit: config.RateLimitConfig{
			Burst:             50,
			RequestsPerSecond: 50,
			ClientTTL:         time.Minute,
		},
	}
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestBuildServesWikiEndToEnd(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	result, err := Build(ctx, Dependencies{Config: testConfig(t), Logger: silentLogger()})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := result.Cleanup(); err != nil {
			t.Errorf("cleanup returned error: %v", err)
		}
	})

	container := domainwiki.Container{Kind: domainwiki.ContainerProject, Path: "acme/handbook"}
	if _, err := result.WikiService.Create(ctx, container, domainwiki.PageInput{
		Title:   "home",
		Content: "Welcome to the **handbook**.",
		Author:  "alice",
	}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	req := httptest.NewRequest("GET", "/projects/acme%2Fhandbook/-/wikis/home", nil)
	req.Header.Set("X-Wiki-User", "alice")
	rec := httptest.NewRecorder()
	result.HTTPServer.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if !strings.Contains(rec.Body.String(), "<strong>handbook</strong>") {
		t.Fatalf("expected rendered markdown, got %q", rec.Body.String())
	}

	anonymous := httptest.NewRecorder()
	result.HTTPServer.ServeHTTP(anonymous, httptest.NewRequest("GET", "/projects/acme%2Fhandbook/-/wikis/home", nil))
	if anonymous.Code != 404 {
		t.Fatalf("expected private wiki to be hidden from anonymous users, got %d", anonymous.Code)
	}
}

func TestFormEditKeepsNestedPageInPlace(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	result, err := Build(ctx, Dependencies{Config: testConfig(t), Logger: silentLogger()})
	if err != nil {
		t.Fatalf("Build returned error: %v", err)
	}
	t.Cleanup(func() {
		if err := result.Cleanup(); err != nil {
			t.Errorf("cleanup returned error: %v", err)
		}
	})

	container := domainwiki.Container{Kind: domainwiki.ContainerProject, Path: "acme/handbook"}
	if _, err := result.WikiService.Create(ctx, container, domainwiki.PageInput{Title: "guides/setup", Content: "v1"}); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	req := httptest.NewRequest("POST", "/projects/acme%2Fhandbook/-/wikis/guides%2Fsetup", strings.NewReader("title=setup&content=v2"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-Wiki-User", "alice")
	rec := httptest.NewRecorder()
	result.HTTPServer.ServeHTTP(rec, req)

	if rec.Code != 302 {
		t.Fatalf("expected status 302, got %d: %s", rec.Code, rec.Body.String())
	}
	if location := rec.Header().Get("Location"); location != "/projects/acme%2Fhandbook/-/wikis/guides%2Fsetup" {
		t.Fatalf("expected redirect back to the nested page, got %q", location)
	}

	history, err := result.WikiService.History(ctx, container, "guides/setup")
	if err != nil {
		t.Fatalf("History returned error: %v", err)
	}
	if len(history.Versions) != 2 || history.Versions[0].Content != "v2" {
		t.Fatalf("expected edit to be recorded on guides/setup, got %#v", history.Versions)
	}
}

func TestOpenStorageAppliesMigrationsOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := testConfig(t)

	first, err := OpenStorage(ctx, cfg, silentLogger())
	if err != nil {
		t.Fatalf("OpenStorage returned error: %v", err)
	}
	if len(first.Applied) == 0 {
		t.Fatalf("expected data migrations to be applied on a fresh database")
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	second, err := OpenStorage(ctx, cfg, silentLogger())
	if err != nil {
		t.Fatalf("OpenStorage returned error: %v", err)
	}
	defer second.Close()

	if len(second.Applied) != 0 {
		t.Fatalf("expected no pending migrations, got %v", second.Applied)
	}
}
