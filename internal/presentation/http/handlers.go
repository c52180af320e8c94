package http

import (
	"context"
	stdhttp "net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"wikihub/app/internal/data/database"
	"wikihub/app/internal/domain/wiki"
	"wikihub/app/internal/presentation/http/templates"
)

const (
	errorFallbackMessage = "We couldn't process your request right now."
	notFoundMessage      = "The page you were looking for could not be found."
	emptyStateMessage    = "A wiki is where you can store all the details about your work. You do not have permission to create or edit pages here."
)

// ContainerParams identifies the project or group a request targets and who is asking.
type ContainerParams struct {
	Container string `path:"container"`
	User      string `header:"X-Wiki-User"`
	Flash     string `cookie:"wiki_flash"`
}

// PageParams additionally names a page.
type PageParams struct {
	ContainerParams
	ID string `path:"id"`
}

type showInput struct {
	PageParams
	RandomTitle bool `query:"random_title"`
}

type diffInput struct {
	PageParams
	VersionID string `query:"version_id"`
}

type pageBody struct {
	Title   string `json:"title,omitempty" maxLength:"255"`
	Content string `json:"content,omitempty"`
	Format  string `json:"format,omitempty" enum:"markdown,rdoc,asciidoc,org"`
	Message string `json:"message,omitempty"`
}

type updateInput struct {
	PageParams
	Body pageBody
}

type createInput struct {
	ContainerParams
	Body pageBody
}

type previewInput struct {
	PageParams
	Body struct {
		Text string `json:"text"`
	}
}

type previewResponse struct {
	Body struct {
		Body       string   `json:"body"`
		References []string `json:"references"`
	}
}

type healthResponse struct {
	Status int
	Body   struct {
		Status   string `json:"status"`
		Database string `json:"database"`
	}
}

// request carries the per-request state shared by every wiki handler.
type request struct {
	container wiki.Container
	user      string
	flash     string
}

func (s *Server) registerContainerRoutes(kind wiki.ContainerKind, prefix string) {
	base := prefix + "/{container}"
	wikis := base + "/-/wikis"
	page := wikis + "/{id}"

	huma.Get(s.api, base, func(ctx context.Context, in *ContainerParams) (*htmlResponse, error) {
		return s.containerHandler(ctx, s.newRequest(ctx, kind, in))
	}, htmlOperation("Container overview"))

	huma.Get(s.api, wikis, func(ctx context.Context, in *ContainerParams) (*htmlResponse, error) {
		req := s.newRequest(ctx, kind, in)
		return redirectResponse(pageURL(req.container, wiki.HomeSlug)), nil
	}, htmlOperation("Redirect to wiki home", stdhttp.StatusFound))

	huma.Get(s.api, wikis+"/new", func(ctx context.Context, in *ContainerParams) (*htmlResponse, error) {
		return s.newPageHandler(ctx, s.newRequest(ctx, kind, in))
	}, htmlOperation("Start a new wiki page", stdhttp.StatusFound, stdhttp.StatusNotFound))

	huma.Get(s.api, wikis+"/pages", func(ctx context.Context, in *ContainerParams) (*htmlResponse, error) {
		return s.pagesHandler(ctx, s.newRequest(ctx, kind, in))
	}, htmlOperation("List wiki pages", stdhttp.StatusNotFound))

	huma.Post(s.api, wikis, func(ctx context.Context, in *createInput) (*htmlResponse, error) {
		return s.createHandler(ctx, s.newRequest(ctx, kind, &in.ContainerParams), in.Body)
	}, htmlOperation("Create a wiki page", stdhttp.StatusFound, stdhttp.StatusUnprocessableEntity))

	huma.Get(s.api, page, func(ctx context.Context, in *showInput) (*htmlResponse, error) {
		return s.showHandler(ctx, s.newRequest(ctx, kind, &in.ContainerParams), in.ID, in.RandomTitle)
	}, htmlOperation("Show a wiki page", stdhttp.StatusNotFound))

	huma.Get(s.api, page+"/edit", func(ctx context.Context, in *PageParams) (*htmlResponse, error) {
		return s.editHandler(ctx, s.newRequest(ctx, kind, &in.ContainerParams), in.ID)
	}, htmlOperation("Edit a wiki page", stdhttp.StatusFound))

	update := func(ctx context.Context, in *updateInput) (*htmlResponse, error) {
		return s.updateHandler(ctx, s.newRequest(ctx, kind, &in.ContainerParams), in.ID, in.Body)
	}
	huma.Patch(s.api, page, update, htmlOperation("Update a wiki page", stdhttp.StatusFound, stdhttp.StatusUnprocessableEntity))
	huma.Post(s.api, page, update, htmlOperation("Update a wiki page from a form", stdhttp.StatusFound, stdhttp.StatusUnprocessableEntity))

	huma.Get(s.api, page+"/history", func(ctx context.Context, in *PageParams) (*htmlResponse, error) {
		return s.historyHandler(ctx, s.newRequest(ctx, kind, &in.ContainerParams), in.ID)
	}, htmlOperation("Wiki page history", stdhttp.StatusNotFound))

	huma.Get(s.api, page+"/diff", func(ctx context.Context, in *diffInput) (*htmlResponse, error) {
		return s.diffHandler(ctx, s.newRequest(ctx, kind, &in.ContainerParams), in.ID, in.VersionID)
	}, htmlOperation("Wiki page version diff", stdhttp.StatusNotFound))

	huma.Post(s.api, page+"/preview_markdown", func(ctx context.Context, in *previewInput) (*previewResponse, error) {
		return s.previewHandler(ctx, s.newRequest(ctx, kind, &in.ContainerParams), in.Body.Text)
	})
}

func (s *Server) registerHealthRoute() {
	huma.Get(s.api, "/healthz", s.healthHandler, func(op *huma.Operation) {
		op.Summary = "Health check"
	})
}

// newRequest resolves the container named in the URL. Unknown containers are
// treated as private.
func (s *Server) newRequest(ctx context.Context, kind wiki.ContainerKind, in *ContainerParams) request {
	containerPath := strings.Trim(strings.TrimSpace(in.Container), "/")
	container := wiki.Container{Kind: kind, Path: containerPath}

	if s.containers != nil && containerPath != "" {
		found, err := s.containers.Container(ctx, kind, containerPath)
		if err != nil {
			s.recordError(ctx, err, "looking up container", logrus.Fields{"container_path": containerPath})
		} else if found != nil {
			container = *found
		}
	}

	return request{
		container: container,
		user:      strings.TrimSpace(in.User),
		flash:     readFlash(in.Flash),
	}
}

func (s *Server) can(ctx context.Context, req request, ability wiki.Ability) bool {
	return s.authorizer.Can(ctx, req.user, ability, req.container)
}

// layout builds the shared chrome, showing any incoming flash notice.
func (s *Server) layout(req request, title string) templates.LayoutData {
	data := templates.LayoutData{
		Title:     title,
		Container: req.container.Path,
		HomeURL:   containerURL(req.container),
		PagesURL:  wikiURL(req.container) + "/pages",
		Notice:    req.flash,
	}
	return data
}

func (s *Server) finish(req request, resp *htmlResponse) *htmlResponse {
	if req.flash != "" {
		resp.SetCookie = append(resp.SetCookie, expiredFlashCookie())
	}
	return resp
}

// failure maps a wiki service error to a response.
func (s *Server) failure(ctx context.Context, req request, err error, message string) *htmlResponse {
	fields := logrus.Fields{
		"container_kind": req.container.Kind,
		"container_path": req.container.Path,
	}

	switch {
	case eris.Is(err, wiki.ErrStoreUnavailable):
		if s.logger != nil {
			s.logger.WithError(err).WithFields(fields).Warn(message)
		}
		resp := redirectResponse(containerURL(req.container))
		resp.SetCookie = []stdhttp.Cookie{flashCookie(wiki.NoticeStoreUnavailable)}
		return resp
	case eris.Is(err, wiki.ErrPageNotFound), eris.Is(err, wiki.ErrVersionNotFound), eris.Is(err, wiki.ErrInvalidContainer):
		return s.finish(req, s.renderErrorResponse(ctx, stdhttp.StatusNotFound, notFoundMessage))
	case eris.Is(err, wiki.ErrInvalidPage):
		return s.finish(req, s.renderErrorResponse(ctx, stdhttp.StatusUnprocessableEntity, invalidPageMessage(err)))
	default:
		s.recordError(ctx, err, message, fields)
		return s.finish(req, s.renderErrorResponse(ctx, stdhttp.StatusInternalServerError, errorFallbackMessage))
	}
}

func invalidPageMessage(err error) string {
	message := err.Error()
	if idx := strings.Index(message, ": "+wiki.ErrInvalidPage.Error()); idx > 0 {
		message = message[:idx]
	}
	return "The page could not be saved: " + message + "."
}

func (s *Server) notFound(ctx context.Context, req request) *htmlResponse {
	return s.finish(req, s.renderErrorResponse(ctx, stdhttp.StatusNotFound, notFoundMessage))
}

func (s *Server) emptyState(ctx context.Context, req request) *htmlResponse {
	body := templates.EmptyState(templates.EmptyStateView{
		Message: emptyStateMessage,
		WikiURL: wikiURL(req.container),
	})
	return s.finish(req, s.renderView(ctx, stdhttp.StatusOK, s.layout(req, "Wiki"), body))
}

func (s *Server) containerHandler(ctx context.Context, req request) (*htmlResponse, error) {
	if !req.container.Valid() {
		return s.notFound(ctx, req), nil
	}

	body := templates.ContainerHome(templates.ContainerView{
		Label:   req.container.Path,
		WikiURL: wikiURL(req.container),
	})
	return s.finish(req, s.renderView(ctx, stdhttp.StatusOK, s.layout(req, req.container.Path), body)), nil
}

func (s *Server) newPageHandler(ctx context.Context, req request) (*htmlResponse, error) {
	if !s.can(ctx, req, wiki.AbilityReadWiki) {
		return s.notFound(ctx, req), nil
	}

	slug, err := s.wiki.NewPage(ctx, req.container)
	if err != nil {
		return s.failure(ctx, req, err, "starting new wiki page"), nil
	}

	return redirectResponse(pageURL(req.container, slug) + "?random_title=true"), nil
}

func (s *Server) showHandler(ctx context.Context, req request, identifier string, randomTitle bool) (*htmlResponse, error) {
	if !s.can(ctx, req, wiki.AbilityReadWiki) {
		return s.notFound(ctx, req), nil
	}

	result, err := s.wiki.Show(ctx, req.container, identifier, randomTitle)
	if err != nil {
		return s.failure(ctx, req, err, "showing wiki page"), nil
	}

	switch {
	case result.Resolved.Existing():
		return s.renderPage(ctx, req, result)
	case result.File != nil:
		return fileResponse(result.File), nil
	case s.can(ctx, req, wiki.AbilityCreateWiki):
		body := templates.NewPage(templates.NewPageView{
			Title:      result.Resolved.Title,
			Action:     wikiURL(req.container),
			PreviewURL: pageActionURL(req.container, identifier, "preview_markdown"),
		})
		return s.finish(req, s.renderView(ctx, stdhttp.StatusOK, s.layout(req, "New page"), body)), nil
	default:
		return s.notFound(ctx, req), nil
	}
}

func (s *Server) renderPage(ctx context.Context, req request, result *wiki.ShowResult) (*htmlResponse, error) {
	page := result.Resolved.Page
	view := templates.PageView{
		Title:      page.Title,
		Content:    page.Content,
		Plain:      result.Resolved.InvalidEncoding,
		EditURL:    pageActionURL(req.container, page.Slug, "edit"),
		HistoryURL: pageActionURL(req.container, page.Slug, "history"),
		CanEdit:    s.can(ctx, req, wiki.AbilityCreateWiki),
	}

	if !view.Plain {
		rendered, err := s.wiki.Preview(ctx, page.Content)
		if err != nil {
			return s.failure(ctx, req, err, "rendering wiki page"), nil
		}
		view.HTML = rendered.HTML
	}

	layout := s.layout(req, page.Title)
	if result.Notice != "" {
		layout.Notice = result.Notice
	}
	if view.CanEdit {
		layout.NewURL = wikiURL(req.container) + "/new"
	}
	layout.Sidebar = &templates.SidebarView{
		Entries:  entryViews(req.container, result.Sidebar),
		Limited:  result.SidebarLimited,
		PagesURL: layout.PagesURL,
	}

	return s.finish(req, s.renderView(ctx, stdhttp.StatusOK, layout, templates.Page(view))), nil
}

func fileResponse(file *wiki.File) *htmlResponse {
	return &htmlResponse{
		Status:             stdhttp.StatusOK,
		ContentType:        file.ContentType,
		CacheControl:       "private, no-store",
		ContentDisposition: `inline; filename="` + strings.ReplaceAll(file.Name, `"`, "") + `"`,
		DetectContentType:  "true",
		Body:               file.Data,
	}
}

func (s *Server) pagesHandler(ctx context.Context, req request) (*htmlResponse, error) {
	if !s.can(ctx, req, wiki.AbilityReadWiki) {
		return s.notFound(ctx, req), nil
	}

	result, err := s.wiki.Pages(ctx, req.container)
	if err != nil {
		return s.failure(ctx, req, err, "listing wiki pages"), nil
	}

	view := templates.PagesView{
		Entries: entryViews(req.container, result.Entries),
		Count:   len(result.Pages),
	}
	if s.can(ctx, req, wiki.AbilityCreateWiki) {
		view.NewURL = wikiURL(req.container) + "/new"
	}

	return s.finish(req, s.renderView(ctx, stdhttp.StatusOK, s.layout(req, "Wiki pages"), templates.Pages(view))), nil
}

func (s *Server) editHandler(ctx context.Context, req request, identifier string) (*htmlResponse, error) {
	if !s.can(ctx, req, wiki.AbilityReadWiki) {
		return s.notFound(ctx, req), nil
	}
	if !s.can(ctx, req, wiki.AbilityCreateWiki) {
		return s.emptyState(ctx, req), nil
	}

	outcome, err := s.wiki.Edit(ctx, req.container, identifier)
	if err != nil {
		return s.failure(ctx, req, err, "loading page for edit"), nil
	}

	if outcome.State != wiki.EditStateEditable {
		return s.redirectForOutcome(req, outcome), nil
	}

	page := outcome.Page
	body := templates.EditPage(templates.EditPageView{
		Title:      page.Title,
		Content:    page.Content,
		Format:     page.Format,
		Action:     pageURL(req.container, page.Slug),
		PreviewURL: pageActionURL(req.container, page.Slug, "preview_markdown"),
		PageURL:    pageURL(req.container, page.Slug),
	})

	return s.finish(req, s.renderView(ctx, stdhttp.StatusOK, s.layout(req, "Edit "+page.Title), body)), nil
}

func (s *Server) updateHandler(ctx context.Context, req request, identifier string, body pageBody) (*htmlResponse, error) {
	if !s.can(ctx, req, wiki.AbilityReadWiki) {
		return s.notFound(ctx, req), nil
	}
	if !s.can(ctx, req, wiki.AbilityCreateWiki) {
		return s.emptyState(ctx, req), nil
	}

	outcome, page, err := s.wiki.Update(ctx, req.container, identifier, body.input(req.user))
	if err != nil {
		return s.failure(ctx, req, err, "updating wiki page"), nil
	}

	if outcome.State != wiki.EditStateEditable {
		return s.redirectForOutcome(req, outcome), nil
	}

	return redirectResponse(pageURL(req.container, page.Slug)), nil
}

func (s *Server) redirectForOutcome(req request, outcome wiki.EditOutcome) *htmlResponse {
	target := outcome.Target
	if outcome.State == wiki.EditStateRedirectToHome || target == "" {
		target = wiki.HomeSlug
	}
	return redirectResponse(pageURL(req.container, target))
}

func (s *Server) createHandler(ctx context.Context, req request, body pageBody) (*htmlResponse, error) {
	if !s.can(ctx, req, wiki.AbilityReadWiki) {
		return s.notFound(ctx, req), nil
	}
	if !s.can(ctx, req, wiki.AbilityCreateWiki) {
		return s.emptyState(ctx, req), nil
	}

	page, err := s.wiki.Create(ctx, req.container, body.input(req.user))
	if err != nil {
		return s.failure(ctx, req, err, "creating wiki page"), nil
	}

	return redirectResponse(pageURL(req.container, page.Slug)), nil
}

func (b pageBody) input(author string) wiki.PageInput {
	return wiki.PageInput{
		Title:   b.Title,
		Content: b.Content,
		Format:  b.Format,
		Message: strings.TrimSpace(b.Message),
		Author:  author,
	}
}

func (s *Server) historyHandler(ctx context.Context, req request, identifier string) (*htmlResponse, error) {
	if !s.can(ctx, req, wiki.AbilityReadWiki) {
		return s.notFound(ctx, req), nil
	}

	result, err := s.wiki.History(ctx, req.container, identifier)
	if err != nil {
		return s.failure(ctx, req, err, "loading wiki page history"), nil
	}

	view := templates.HistoryView{
		Title:    result.Page.Title,
		PageURL:  pageURL(req.container, result.Page.Slug),
		Versions: make([]templates.VersionView, 0, len(result.Versions)),
	}
	for _, version := range result.Versions {
		view.Versions = append(view.Versions, templates.VersionView{
			ID:        version.ID,
			Message:   version.Message,
			Author:    version.Author,
			CreatedAt: version.CreatedAt.UTC().Format("2006-01-02 15:04 MST"),
			DiffURL:   diffURL(req.container, result.Page.Slug, version.ID),
		})
	}

	layout := s.layout(req, "History of "+result.Page.Title)
	return s.finish(req, s.renderView(ctx, stdhttp.StatusOK, layout, templates.History(view))), nil
}

func (s *Server) diffHandler(ctx context.Context, req request, identifier, versionID string) (*htmlResponse, error) {
	if !s.can(ctx, req, wiki.AbilityReadWiki) {
		return s.notFound(ctx, req), nil
	}

	diff, err := s.wiki.Diff(ctx, req.container, identifier, versionID)
	if err != nil {
		return s.failure(ctx, req, err, "loading wiki page diff"), nil
	}

	view := templates.DiffView{
		Title:      diff.Page.Title,
		PageURL:    pageURL(req.container, diff.Page.Slug),
		HistoryURL: pageActionURL(req.container, diff.Page.Slug, "history"),
		VersionID:  diff.Version.ID,
		Message:    diff.Version.Message,
		Author:     diff.Version.Author,
		Additions:  diff.Additions,
		Deletions:  diff.Deletions,
		Lines:      diffLines(diff.Unified),
	}

	layout := s.layout(req, "Changes to "+diff.Page.Title)
	return s.finish(req, s.renderView(ctx, stdhttp.StatusOK, layout, templates.Diff(view))), nil
}

func (s *Server) previewHandler(ctx context.Context, req request, text string) (*previewResponse, error) {
	if !s.can(ctx, req, wiki.AbilityReadWiki) {
		return nil, huma.Error404NotFound(notFoundMessage)
	}

	rendered, err := s.wiki.Preview(ctx, text)
	if err != nil {
		s.recordError(ctx, err, "rendering markdown preview", nil)
		return nil, huma.Error500InternalServerError(errorFallbackMessage)
	}

	resp := &previewResponse{}
	resp.Body.Body = rendered.HTML
	resp.Body.References = rendered.References
	return resp, nil
}

func (s *Server) healthHandler(ctx context.Context, _ *struct{}) (*healthResponse, error) {
	resp := &healthResponse{Status: stdhttp.StatusOK}
	resp.Body.Status = "ok"
	resp.Body.Database = "ok"

	if s.db == nil {
		resp.Body.Database = "unconfigured"
		return resp, nil
	}

	if err := database.Ping(ctx, s.db); err != nil {
		s.recordError(ctx, err, "pinging database", nil)
		resp.Status = stdhttp.StatusServiceUnavailable
		resp.Body.Status = "degraded"
		resp.Body.Database = "error"
	}

	return resp, nil
}

func entryViews(container wiki.Container, entries []wiki.Entry) []templates.EntryView {
	views := make([]templates.EntryView, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDirectory() {
			views = append(views, pageEntryView(container, *entry.Page))
			continue
		}

		dir := templates.EntryView{Directory: entry.Directory}
		for _, page := range entry.Pages {
			dir.Children = append(dir.Children, pageEntryView(container, page))
		}
		views = append(views, dir)
	}
	return views
}

func pageEntryView(container wiki.Container, page wiki.Page) templates.EntryView {
	title := page.Title
	if title == "" {
		title = wiki.TitleFromSlug(page.Slug)
	}
	return templates.EntryView{Title: title, URL: pageURL(container, page.Slug)}
}

func diffLines(unified string) []templates.DiffLine {
	raw := strings.Split(strings.TrimSuffix(unified, "\n"), "\n")
	lines := make([]templates.DiffLine, 0, len(raw))
	for _, line := range raw {
		if line == "" {
			continue
		}
		kind := "context"
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"), strings.HasPrefix(line, "@@"):
			kind = "header"
		case strings.HasPrefix(line, "+"):
			kind = "addition"
		case strings.HasPrefix(line, "-"):
			kind = "deletion"
		}
		lines = append(lines, templates.DiffLine{Kind: kind, Text: line})
	}
	return lines
}
