package templates

import (
	"context"

	"github.com/a-h/templ"
)

// Layout wraps body in the shared document chrome.
func Layout(data LayoutData, body templ.Component) templ.Component {
	return view(func(ctx context.Context, m *markup) {
		m.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		m.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		m.raw(`<title>`)
		if data.Title != "" {
			m.text(data.Title)
			m.raw(` &middot; `)
		}
		m.text(SiteName)
		m.raw(`</title><link rel="icon" href="/favicon.ico"><link rel="stylesheet" href="/static/wiki.css"></head><body>`)

		m.raw(`<header class="wiki-header">`)
		if data.Container != "" {
			m.link(data.HomeURL, data.Container, "wiki-container")
		} else {
			m.text(SiteName)
		}
		if data.PagesURL != "" {
			m.raw(`<nav>`)
			m.link(data.PagesURL, "All pages", "")
			if data.NewURL != "" {
				m.link(data.NewURL, "New page", "wiki-new")
			}
			m.raw(`</nav>`)
		}
		m.raw(`</header>`)

		if data.Notice != "" {
			m.raw(`<div class="flash-notice" role="alert">`)
			m.text(data.Notice)
			m.raw(`</div>`)
		}

		m.raw(`<div class="wiki-layout"><main class="wiki-content">`)
		m.component(ctx, body)
		m.raw(`</main>`)
		if data.Sidebar != nil {
			m.component(ctx, Sidebar(*data.Sidebar))
		}
		m.raw(`</div></body></html>`)
	})
}

// Sidebar lists the first entries of a wiki.
func Sidebar(data SidebarView) templ.Component {
	return view(func(ctx context.Context, m *markup) {
		m.raw(`<aside class="wiki-sidebar"><ul>`)
		for _, entry := range data.Entries {
			writeEntry(m, entry)
		}
		m.raw(`</ul>`)
		if data.Limited {
			m.link(data.PagesURL, "View all pages", "wiki-more")
		}
		m.raw(`</aside>`)
	})
}

func writeEntry(m *markup, entry EntryView) {
	if entry.Directory == "" {
		m.raw(`<li>`)
		m.link(entry.URL, entry.Title, "")
		m.raw(`</li>`)
		return
	}

	m.raw(`<li class="wiki-directory"><strong>`)
	m.text(entry.Directory)
	m.raw(`</strong><ul>`)
	for _, child := range entry.Children {
		writeEntry(m, child)
	}
	m.raw(`</ul></li>`)
}

// Page renders an existing wiki page.
func Page(data PageView) templ.Component {
	return view(func(ctx context.Context, m *markup) {
		m.raw(`<article class="wiki-page"><h1>`)
		m.text(data.Title)
		m.raw(`</h1><div class="wiki-actions">`)
		if data.CanEdit && !data.Plain {
			m.link(data.EditURL, "Edit", "wiki-edit")
		}
		m.link(data.HistoryURL, "Page history", "wiki-history")
		m.raw(`</div>`)
		if data.Plain {
			m.raw(`<pre class="wiki-raw">`)
			m.text(data.Content)
			m.raw(`</pre>`)
		} else {
			m.raw(`<div class="md">`)
			m.component(ctx, RawHTML(data.HTML))
			m.raw(`</div>`)
		}
		m.raw(`</article>`)
	})
}

// NewPage renders the form for creating a page.
func NewPage(data NewPageView) templ.Component {
	return view(func(ctx context.Context, m *markup) {
		m.raw(`<section class="wiki-form"><h1>New page</h1>`)
		m.raw(`<form method="post" action="`)
		m.text(data.Action)
		m.raw(`" data-preview-url="`)
		m.text(data.PreviewURL)
		m.raw(`"><label for="wiki_title">Title</label>`)
		m.raw(`<input id="wiki_title" name="title" type="text" required value="`)
		m.text(data.Title)
		m.raw(`"><label for="wiki_content">Content</label>`)
		m.raw(`<textarea id="wiki_content" name="content" rows="20"></textarea>`)
		m.raw(`<label for="wiki_message">Commit message</label><input id="wiki_message" name="message" type="text">`)
		m.raw(`<button type="submit">Create page</button></form></section>`)
	})
}

// EditPage renders the edit form of an existing page.
func EditPage(data EditPageView) templ.Component {
	return view(func(ctx context.Context, m *markup) {
		m.raw(`<section class="wiki-form"><h1>Edit `)
		m.text(data.Title)
		m.raw(`</h1><form method="post" action="`)
		m.text(data.Action)
		m.raw(`" data-preview-url="`)
		m.text(data.PreviewURL)
		m.raw(`"><label for="wiki_title">Title</label>`)
		m.raw(`<input id="wiki_title" name="title" type="text" value="`)
		m.text(data.Title)
		m.raw(`"><input name="format" type="hidden" value="`)
		m.text(data.Format)
		m.raw(`"><label for="wiki_content">Content</label><textarea id="wiki_content" name="content" rows="20">`)
		m.text(data.Content)
		m.raw(`</textarea><label for="wiki_message">Commit message</label><input id="wiki_message" name="message" type="text">`)
		m.raw(`<button type="submit">Save changes</button> `)
		m.link(data.PageURL, "Cancel", "wiki-cancel")
		m.raw(`</form></section>`)
	})
}

// Pages lists every page of a wiki.
func Pages(data PagesView) templ.Component {
	return view(func(ctx context.Context, m *markup) {
		m.raw(`<section class="wiki-pages"><h1>Wiki pages <span class="count">`)
		m.number(data.Count)
		m.raw(`</span></h1>`)
		if len(data.Entries) == 0 {
			m.raw(`<p class="wiki-empty">This wiki has no pages yet.</p>`)
		} else {
			m.raw(`<ul>`)
			for _, entry := range data.Entries {
				writeEntry(m, entry)
			}
			m.raw(`</ul>`)
		}
		if data.NewURL != "" {
			m.link(data.NewURL, "New page", "wiki-new")
		}
		m.raw(`</section>`)
	})
}

// History lists the versions of a page, newest first.
func History(data HistoryView) templ.Component {
	return view(func(ctx context.Context, m *markup) {
		m.raw(`<section class="wiki-history"><h1>History of `)
		m.link(data.PageURL, data.Title, "")
		m.raw(`</h1><table><thead><tr><th>Version</th><th>Author</th><th>Message</th><th>Updated</th></tr></thead><tbody>`)
		for _, version := range data.Versions {
			m.raw(`<tr><td>`)
			label := version.ID
			if len(label) > 8 {
				label = label[:8]
			}
			m.link(version.DiffURL, label, "wiki-version")
			m.raw(`</td><td>`)
			m.text(version.Author)
			m.raw(`</td><td>`)
			m.text(version.Message)
			m.raw(`</td><td><time>`)
			m.text(version.CreatedAt)
			m.raw(`</time></td></tr>`)
		}
		m.raw(`</tbody></table></section>`)
	})
}

// Diff renders the change a version introduced. Discussion notes are not
// offered on wiki diffs.
func Diff(data DiffView) templ.Component {
	return view(func(ctx context.Context, m *markup) {
		m.raw(`<section class="wiki-diff" data-diff-notes="disabled"><h1>Changes to `)
		m.link(data.PageURL, data.Title, "")
		m.raw(`</h1><p class="wiki-diff-meta">`)
		m.text(data.Message)
		if data.Author != "" {
			m.raw(` by `)
			m.text(data.Author)
		}
		m.raw(` <span class="additions">+`)
		m.number(data.Additions)
		m.raw(`</span> <span class="deletions">-`)
		m.number(data.Deletions)
		m.raw(`</span> `)
		m.link(data.HistoryURL, "Page history", "")
		m.raw(`</p><pre class="diff">`)
		for _, line := range data.Lines {
			m.raw(`<span class="line `)
			m.text(line.Kind)
			m.raw(`">`)
			m.text(line.Text)
			m.raw("</span>\n")
		}
		m.raw(`</pre></section>`)
	})
}

// EmptyState tells a reader that they cannot create or edit pages.
func EmptyState(data EmptyStateView) templ.Component {
	return view(func(ctx context.Context, m *markup) {
		m.raw(`<section class="wiki-empty-state"><h1>Wiki</h1><p>`)
		m.text(data.Message)
		m.raw(`</p>`)
		if data.WikiURL != "" {
			m.link(data.WikiURL, "Back to the wiki", "")
		}
		m.raw(`</section>`)
	})
}

// ContainerHome is the landing page of a project or group.
func ContainerHome(data ContainerView) templ.Component {
	return view(func(ctx context.Context, m *markup) {
		m.raw(`<section class="container-home"><h1>`)
		m.text(data.Label)
		m.raw(`</h1>`)
		m.link(data.WikiURL, "Wiki", "")
		m.raw(`</section>`)
	})
}

// ErrorPage renders a status message.
func ErrorPage(data ErrorPageData) templ.Component {
	return view(func(ctx context.Context, m *markup) {
		m.raw(`<section class="error-page"><h1>`)
		m.text(data.StatusLabel)
		m.raw(`</h1><p>`)
		m.text(data.Message)
		m.raw(`</p></section>`)
	})
}
