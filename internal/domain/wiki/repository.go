package wiki

import "context"

// Store defines the storage operations of a single container's wiki.
// Lookups return nil, nil when nothing matches.
type Store interface {
	FindPage(ctx context.Context, identifier string) (*Page, error)
	ListPages(ctx context.Context, opts ListOptions) ([]Page, error)
	FindFile(ctx context.Context, identifier string) (*File, error)
	CreatePage(ctx context.Context, input PageInput) (*Page, error)
	UpdatePage(ctx context.Context, slug string, input PageInput) (*Page, error)
	History(ctx context.Context, slug string) ([]Version, error)
	FindVersion(ctx context.Context, slug, versionID string) (*Version, error)
	CreateFile(ctx context.Context, file File) error
}

// StoreFactory opens the wiki store owned by a container.
type StoreFactory interface {
	ForContainer(ctx context.Context, container Container) (Store, error)
}

// Ability names a permission checked against a container.
type Ability string

const (
	AbilityReadWiki   Ability = "read_wiki"
	AbilityCreateWiki Ability = "create_wiki"
)

// Authorizer decides whether a user holds an ability on a container.
type Authorizer interface {
	Can(ctx context.Context, user string, ability Ability, container Container) bool
}

// Rendered is page markup converted to HTML together with the wiki slugs it links to.
type Rendered struct {
	HTML       string
	References []string
}

// Renderer turns page markup into HTML.
type Renderer interface {
	Render(ctx context.Context, text string) (Rendered, error)
}

// ContainerDirectory looks up registered containers. It returns nil, nil for
// containers that have never held a wiki.
type ContainerDirectory interface {
	Container(ctx context.Context, kind ContainerKind, path string) (*Container, error)
}
