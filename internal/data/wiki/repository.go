package wiki

import (
	"context"
	"errors"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domainwiki "wikihub/app/internal/domain/wiki"
)

const defaultFormat = "markdown"

// listColumns are the page columns read when content is not requested.
var listColumns = []string{"id", "created_at", "updated_at", "container_id", "slug", "title", "format", "version_id"}

// Repository persists the wiki of a single container using a Gorm database connection.
type Repository struct {
	db          *gorm.DB
	logger      *logrus.Logger
	containerID uint
	now         func() time.Time
	newID       func() string
}

var _ domainwiki.Store = (*Repository)(nil)

// NewRepository constructs a Gorm-backed store for the container with the given id.
func NewRepository(db *gorm.DB, logger *logrus.Logger, containerID uint) (*Repository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}
	if containerID == 0 {
		return nil, eris.New("container id is required")
	}

	return &Repository{
		db:          db,
		logger:      logger,
		containerID: containerID,
		now:         time.Now,
		newID:       uuid.NewString,
	}, nil
}

// FindPage returns the page whose slug matches the identifier, or nil when none does.
func (r *Repository) FindPage(ctx context.Context, identifier string) (*domainwiki.Page, error) {
	slug := domainwiki.Slug(identifier)
	if slug == "" {
		return nil, nil
	}

	record, err := r.findPageRecord(r.db.WithContext(ctx), slug)
	if err != nil {
		r.logError(logrus.Fields{"slug": slug}, err, "fetching page by slug")
		return nil, eris.Wrapf(err, "fetching page by slug: %s", slug)
	}
	if record == nil {
		return nil, nil
	}

	page := toDomainPage(record, true)
	return &page, nil
}

// ListPages returns pages ordered by slug, omitting content unless requested.
func (r *Repository) ListPages(ctx context.Context, opts domainwiki.ListOptions) ([]domainwiki.Page, error) {
	query := r.db.WithContext(ctx).
		Where("container_id = ?", r.containerID).
		Order("slug ASC")

	if !opts.LoadContent {
		query = query.Select(listColumns)
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}

	var records []PageRecord
	if err := query.Find(&records).Error; err != nil {
		r.logError(nil, err, "listing pages")
		return nil, eris.Wrap(err, "listing pages")
	}

	pages := make([]domainwiki.Page, 0, len(records))
	for i := range records {
		pages = append(pages, toDomainPage(&records[i], opts.LoadContent))
	}

	return pages, nil
}

// FindFile returns the blob stored at the identifier, or nil when none is.
func (r *Repository) FindFile(ctx context.Context, identifier string) (*domainwiki.File, error) {
	filePath := strings.Trim(identifier, "/")
	if filePath == "" {
		return nil, nil
	}

	var record FileRecord
	err := r.db.WithContext(ctx).
		Where("container_id = ? AND path = ?", r.containerID, filePath).
		First(&record).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"path": filePath}, err, "fetching file by path")
		return nil, eris.Wrapf(err, "fetching file by path: %s", filePath)
	}

	return &domainwiki.File{
		Path:        record.Path,
		Name:        record.Name,
		ContentType: record.ContentType,
		Data:        record.Data,
	}, nil
}

// CreatePage stores a new page and its first version.
func (r *Repository) CreatePage(ctx context.Context, input domainwiki.PageInput) (*domainwiki.Page, error) {
	slug := domainwiki.Slug(strings.TrimSpace(input.Title))
	if slug == "" {
		return nil, eris.New("page title is required")
	}

	record := &PageRecord{
		ContainerID: r.containerID,
		Slug:        slug,
		Title:       domainwiki.TitleFromSlug(slug),
		Content:     input.Content,
		Format:      formatOrDefault(input.Format),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(record).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
				return eris.Errorf("page with slug %s already exists", slug)
			}
			return eris.Wrapf(err, "creating page: %s", slug)
		}
		return r.commit(tx, record, input)
	})
	if err != nil {
		r.logError(logrus.Fields{"slug": slug}, err, "creating page")
		return nil, err
	}

	page := toDomainPage(record, true)
	return &page, nil
}

// UpdatePage rewrites the page at slug, possibly renaming it, and records a new
// version. Empty content keeps what is stored.
func (r *Repository) UpdatePage(ctx context.Context, slug string, input domainwiki.PageInput) (*domainwiki.Page, error) {
	newSlug := domainwiki.Slug(strings.TrimSpace(input.Title))
	if newSlug == "" {
		return nil, eris.New("page title is required")
	}

	var record *PageRecord
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		found, err := r.findPageRecord(tx, slug)
		if err != nil {
			return eris.Wrapf(err, "fetching page by slug: %s", slug)
		}
		if found == nil {
			return eris.Wrapf(domainwiki.ErrPageNotFound, "page %s", slug)
		}

		found.Slug = newSlug
		found.Title = domainwiki.TitleFromSlug(newSlug)
		if input.Content != "" {
			found.Content = input.Content
		}
		if input.Format != "" {
			found.Format = input.Format
		}

		if err := r.commit(tx, found, input); err != nil {
			return err
		}

		record = found
		return nil
	})
	if err != nil {
		r.logError(logrus.Fields{"slug": slug}, err, "updating page")
		return nil, err
	}

	page := toDomainPage(record, true)
	return &page, nil
}

// History returns the versions of the page at slug, newest first.
func (r *Repository) History(ctx context.Context, slug string) ([]domainwiki.Version, error) {
	db := r.db.WithContext(ctx)

	record, err := r.findPageRecord(db, slug)
	if err != nil {
		r.logError(logrus.Fields{"slug": slug}, err, "fetching page for history")
		return nil, eris.Wrapf(err, "fetching page by slug: %s", slug)
	}
	if record == nil {
		return nil, eris.Wrapf(domainwiki.ErrPageNotFound, "page %s", slug)
	}

	var versions []VersionRecord
	if err := db.Where("page_id = ?", record.ID).Order("position DESC").Find(&versions).Error; err != nil {
		r.logError(logrus.Fields{"slug": slug}, err, "listing page versions")
		return nil, eris.Wrapf(err, "listing versions of %s", slug)
	}

	history := make([]domainwiki.Version, 0, len(versions))
	for _, version := range versions {
		history = append(history, toDomainVersion(version))
	}

	return history, nil
}

// FindVersion returns the version with the given id if it belongs to the page at slug.
func (r *Repository) FindVersion(ctx context.Context, slug, versionID string) (*domainwiki.Version, error) {
	if _, err := uuid.Parse(versionID); err != nil {
		return nil, nil
	}

	db := r.db.WithContext(ctx)

	record, err := r.findPageRecord(db, slug)
	if err != nil {
		r.logError(logrus.Fields{"slug": slug}, err, "fetching page for version")
		return nil, eris.Wrapf(err, "fetching page by slug: %s", slug)
	}
	if record == nil {
		return nil, nil
	}

	var version VersionRecord
	err = db.Where("id = ? AND page_id = ?", versionID, record.ID).First(&version).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"slug": slug, "version_id": versionID}, err, "fetching page version")
		return nil, eris.Wrapf(err, "fetching version %s", versionID)
	}

	domain := toDomainVersion(version)
	return &domain, nil
}

// CreateFile stores a blob, replacing any existing blob at the same path.
func (r *Repository) CreateFile(ctx context.Context, file domainwiki.File) error {
	filePath := strings.Trim(file.Path, "/")
	if filePath == "" {
		return eris.New("file path is required")
	}

	name := file.Name
	if name == "" {
		name = path.Base(filePath)
	}

	contentType := file.ContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(path.Ext(name))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	record := &FileRecord{
		ContainerID: r.containerID,
		Path:        filePath,
		Name:        name,
		ContentType: contentType,
		Data:        file.Data,
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "container_id"}, {Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "content_type", "data", "updated_at"}),
	}).Create(record).Error
	if err != nil {
		r.logError(logrus.Fields{"path": filePath}, err, "storing file")
		return eris.Wrapf(err, "storing file: %s", filePath)
	}

	return nil
}

func (r *Repository) findPageRecord(db *gorm.DB, slug string) (*PageRecord, error) {
	var record PageRecord
	err := db.Where("container_id = ? AND slug = ?", r.containerID, slug).First(&record).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &record, nil
}

// commit appends a version for the record's current content and saves the record.
func (r *Repository) commit(tx *gorm.DB, record *PageRecord, input domainwiki.PageInput) error {
	var position int
	if err := tx.Model(&VersionRecord{}).
		Where("page_id = ?", record.ID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&position).Error; err != nil {
		return eris.Wrapf(err, "reading version position of %s", record.Slug)
	}

	version := &VersionRecord{
		ID:        r.newID(),
		PageID:    record.ID,
		Position:  position + 1,
		Title:     record.Title,
		Content:   record.Content,
		Message:   input.Message,
		Author:    input.Author,
		CreatedAt: r.now(),
	}
	if err := tx.Create(version).Error; err != nil {
		return eris.Wrapf(err, "recording version of %s", record.Slug)
	}

	record.VersionID = version.ID
	if err := tx.Save(record).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			return eris.Errorf("page with slug %s already exists", record.Slug)
		}
		return eris.Wrapf(err, "saving page: %s", record.Slug)
	}

	return nil
}

func (r *Repository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error()).WithField("container_id", r.containerID)
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}

func formatOrDefault(format string) string {
	if strings.TrimSpace(format) == "" {
		return defaultFormat
	}
	return format
}

func toDomainPage(record *PageRecord, loaded bool) domainwiki.Page {
	page := domainwiki.Page{
		Slug:      record.Slug,
		Title:     record.Title,
		Format:    record.Format,
		Loaded:    loaded,
		VersionID: record.VersionID,
		UpdatedAt: record.UpdatedAt,
	}
	if loaded {
		page.Content = record.Content
	}
	return page
}

func toDomainVersion(record VersionRecord) domainwiki.Version {
	return domainwiki.Version{
		ID:        record.ID,
		Title:     record.Title,
		Content:   record.Content,
		Message:   record.Message,
		Author:    record.Author,
		CreatedAt: record.CreatedAt,
	}
}
