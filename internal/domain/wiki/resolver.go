package wiki

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
)

// Resolver maps a requested identifier onto an existing page or a new page placeholder.
type Resolver struct {
	stores StoreFactory
	logger *logrus.Logger
}

// NewResolver constructs a Resolver backed by the provided store factory.
func NewResolver(stores StoreFactory, logger *logrus.Logger) (*Resolver, error) {
	if stores == nil {
		return nil, eris.New("wiki store factory is required")
	}

	return &Resolver{stores: stores, logger: logger}, nil
}

// Open returns the store of the container, wrapping any failure in ErrStoreUnavailable.
func (r *Resolver) Open(ctx context.Context, container Container) (Store, error) {
	if !container.Valid() {
		return nil, eris.Wrapf(ErrInvalidContainer, "container %s:%q", container.Kind, container.Path)
	}

	store, err := r.stores.ForContainer(ctx, container)
	if err != nil {
		if r.logger != nil {
			r.logger.WithFields(logrus.Fields{
				"container_kind": container.Kind,
				"container_path": container.Path,
				"error":          err.Error(),
			}).Warn("opening wiki store failed")
		}
		return nil, eris.Wrapf(ErrStoreUnavailable, "opening wiki for %s %s: %v", container.Kind, container.Path, err)
	}
	if store == nil {
		return nil, eris.Wrapf(ErrStoreUnavailable, "no wiki for %s %s", container.Kind, container.Path)
	}

	return store, nil
}

// Resolve looks the identifier up as-is. A match yields an existing page;
// otherwise a new page whose title is the identifier, or empty when
// randomTitle is set.
func (r *Resolver) Resolve(ctx context.Context, container Container, identifier string, randomTitle bool) (ResolvedPage, error) {
	store, err := r.Open(ctx, container)
	if err != nil {
		return ResolvedPage{}, err
	}

	return r.resolveIn(ctx, store, identifier, randomTitle)
}

func (r *Resolver) resolveIn(ctx context.Context, store Store, identifier string, randomTitle bool) (ResolvedPage, error) {
	page, err := store.FindPage(ctx, identifier)
	if err != nil {
		return ResolvedPage{}, eris.Wrapf(err, "finding page %q", identifier)
	}

	if page != nil {
		return ResolvedPage{
			Kind:            ResolutionExisting,
			Title:           page.Title,
			Page:            page,
			InvalidEncoding: page.Loaded && !utf8.ValidString(page.Content),
		}, nil
	}

	title := identifier
	if randomTitle {
		title = ""
	}

	return ResolvedPage{Kind: ResolutionNew, Title: title}, nil
}

// ResolveEdit runs the edit flow state machine for the identifier.
func (r *Resolver) ResolveEdit(ctx context.Context, container Container, identifier string) (EditOutcome, error) {
	store, err := r.Open(ctx, container)
	if err != nil {
		return EditOutcome{}, err
	}

	return r.resolveEditIn(ctx, store, identifier)
}

func (r *Resolver) resolveEditIn(ctx context.Context, store Store, identifier string) (EditOutcome, error) {
	resolved, err := r.resolveIn(ctx, store, identifier, false)
	if err != nil {
		return EditOutcome{}, err
	}

	if !resolved.Existing() {
		if strings.TrimSpace(identifier) == "" {
			return EditOutcome{State: EditStateRedirectToHome, Target: HomeSlug}, nil
		}
		return EditOutcome{State: EditStateRedirectToShow, Target: identifier}, nil
	}

	page := resolved.Page

	// Content that never loaded cannot be edited safely.
	if !page.Loaded {
		return EditOutcome{State: EditStateRedirectToShow, Page: page, Target: page.Slug}, nil
	}

	if resolved.InvalidEncoding {
		return EditOutcome{
			State:           EditStateRedirectToShow,
			Page:            page,
			Target:          page.Slug,
			InvalidEncoding: true,
		}, nil
	}

	return EditOutcome{State: EditStateEditable, Page: page, Target: page.Slug}, nil
}
