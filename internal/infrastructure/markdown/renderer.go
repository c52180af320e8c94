package markdown

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"golang.org/x/net/html"

	domainwiki "wikihub/app/internal/domain/wiki"
)

// wikiLinkPattern matches [[Page title]] shorthand links.
var wikiLinkPattern = regexp.MustCompile(`\[\[([^\[\]|]+)(?:\|([^\[\]]+))?\]\]`)

// Renderer converts wiki markdown to HTML using goldmark.
type Renderer struct {
	md     goldmark.Markdown
	logger *logrus.Logger
}

var _ domainwiki.Renderer = (*Renderer)(nil)

// NewRenderer constructs a GitHub-flavoured markdown renderer. Raw HTML in
// the source is not passed through.
func NewRenderer(logger *logrus.Logger) *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)

	return &Renderer{md: md, logger: logger}
}

// Render implements domainwiki.Renderer.
func (r *Renderer) Render(ctx context.Context, text string) (domainwiki.Rendered, error) {
	if err := ctx.Err(); err != nil {
		return domainwiki.Rendered{}, eris.Wrap(err, "rendering markdown")
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(expandWikiLinks(text)), &buf); err != nil {
		r.logError(err, "converting markdown")
		return domainwiki.Rendered{}, eris.Wrap(err, "converting markdown")
	}

	rendered := buf.String()
	references, err := ExtractReferences(rendered)
	if err != nil {
		r.logError(err, "extracting references")
		return domainwiki.Rendered{}, err
	}

	return domainwiki.Rendered{HTML: rendered, References: references}, nil
}

// ExtractReferences returns the wiki slugs linked from the HTML fragment, in
// order of first appearance. Absolute URLs and in-page anchors are skipped.
func ExtractReferences(fragment string) ([]string, error) {
	doc, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return nil, eris.Wrap(err, "parsing rendered html")
	}

	references := []string{}
	seen := make(map[string]struct{})

	var walk func(node *html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.ElementNode && node.Data == "a" {
			if slug, ok := referenceFromHref(attr(node, "href")); ok {
				if _, dup := seen[slug]; !dup {
					seen[slug] = struct{}{}
					references = append(references, slug)
				}
			}
		}
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return references, nil
}

func referenceFromHref(href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "//") {
		return "", false
	}

	parsed, err := url.Parse(href)
	if err != nil || parsed.Scheme != "" || parsed.Host != "" {
		return "", false
	}

	slug := domainwiki.Slug(strings.TrimPrefix(parsed.Path, "./"))
	if slug == "" {
		return "", false
	}

	return slug, true
}

func expandWikiLinks(text string) string {
	return wikiLinkPattern.ReplaceAllStringFunc(text, func(match string) string {
		parts := wikiLinkPattern.FindStringSubmatch(match)
		target := strings.TrimSpace(parts[1])
		label := target
		if strings.TrimSpace(parts[2]) != "" {
			label = strings.TrimSpace(parts[2])
		}
		return "[" + label + "](" + domainwiki.Slug(target) + ")"
	})
}

func attr(node *html.Node, name string) string {
	for _, attribute := range node.Attr {
		if attribute.Key == name {
			return attribute.Val
		}
	}
	return ""
}

func (r *Renderer) logError(err error, message string) {
	if r.logger == nil || err == nil {
		return
	}
	r.logger.WithField("error", err.Error()).WithField("component", "markdown").Error(message)
}
