package wiki

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	domainwiki "wikihub/app/internal/domain/wiki"
)

// Stores opens per-container repositories, creating the container row on first use.
type Stores struct {
	db     *gorm.DB
	logger *logrus.Logger
}

var _ domainwiki.StoreFactory = (*Stores)(nil)

// NewStores constructs the Gorm-backed store factory.
func NewStores(db *gorm.DB, logger *logrus.Logger) (*Stores, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &Stores{db: db, logger: logger}, nil
}

// ForContainer returns the repository of the container.
func (s *Stores) ForContainer(ctx context.Context, container domainwiki.Container) (domainwiki.Store, error) {
	record, err := s.ensureContainer(ctx, container)
	if err != nil {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{
				"container_kind": container.Kind,
				"container_path": container.Path,
				"error":          err.Error(),
			}).Error("creating wiki container")
		}
		return nil, err
	}

	return NewRepository(s.db, s.logger, record.ID)
}

// Container looks up a stored container, returning nil when it does not exist yet.
func (s *Stores) Container(ctx context.Context, kind domainwiki.ContainerKind, containerPath string) (*domainwiki.Container, error) {
	var record ContainerRecord
	err := s.db.WithContext(ctx).
		Where("kind = ? AND path = ?", string(kind), containerPath).
		First(&record).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "fetching container %s %s", kind, containerPath)
	}

	return &domainwiki.Container{
		Kind:   domainwiki.ContainerKind(record.Kind),
		Path:   record.Path,
		Public: record.Public,
	}, nil
}

// SetVisibility marks the container public or private, creating it when needed.
func (s *Stores) SetVisibility(ctx context.Context, container domainwiki.Container) error {
	record, err := s.ensureContainer(ctx, container)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Model(record).Update("public", container.Public).Error; err != nil {
		return eris.Wrapf(err, "updating visibility of %s %s", container.Kind, container.Path)
	}

	return nil
}

func (s *Stores) ensureContainer(ctx context.Context, container domainwiki.Container) (*ContainerRecord, error) {
	if !container.Valid() {
		return nil, eris.Wrapf(domainwiki.ErrInvalidContainer, "container %s:%q", container.Kind, container.Path)
	}

	db := s.db.WithContext(ctx)

	var existing ContainerRecord
	err := db.Where("kind = ? AND path = ?", string(container.Kind), container.Path).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !eris.Is(err, gorm.ErrRecordNotFound) {
		return nil, eris.Wrapf(err, "fetching container %s %s", container.Kind, container.Path)
	}

	record := &ContainerRecord{Kind: string(container.Kind), Path: container.Path, Public: container.Public}
	if err := db.Create(record).Error; err != nil {
		// A concurrent request may have created the row first.
		if lookupErr := db.Where("kind = ? AND path = ?", record.Kind, record.Path).First(&existing).Error; lookupErr == nil {
			return &existing, nil
		}
		return nil, eris.Wrapf(err, "creating container %s %s", container.Kind, container.Path)
	}

	return record, nil
}
