package http

import (
	"net/url"

	"wikihub/app/internal/domain/wiki"
)

var containerScopes = []struct {
	kind   wiki.ContainerKind
	prefix string
}{
	{kind: wiki.ContainerProject, prefix: "/projects"},
	{kind: wiki.ContainerGroup, prefix: "/groups"},
}

func containerURL(container wiki.Container) string {
	prefix := "/projects"
	if container.Kind == wiki.ContainerGroup {
		prefix = "/groups"
	}
	return prefix + "/" + url.PathEscape(container.Path)
}

func wikiURL(container wiki.Container) string {
	return containerURL(container) + "/-/wikis"
}

func pageURL(container wiki.Container, slug string) string {
	return wikiURL(container) + "/" + url.PathEscape(slug)
}

func pageActionURL(container wiki.Container, slug, action string) string {
	return pageURL(container, slug) + "/" + action
}

func diffURL(container wiki.Container, slug, versionID string) string {
	return pageActionURL(container, slug, "diff") + "?version_id=" + url.QueryEscape(versionID)
}
