package wiki

import (
	"time"

	"gorm.io/gorm"
)

// ContainerRecord is a project or group that owns a wiki.
type ContainerRecord struct {
	gorm.Model
	Kind   string `gorm:"size:16;uniqueIndex:idx_containers_kind_path;not null"`
	Path   string `gorm:"size:255;uniqueIndex:idx_containers_kind_path;not null"`
	Public bool   `gorm:"not null;default:false"`
}

// TableName defines the table name for the ContainerRecord model.
func (ContainerRecord) TableName() string {
	return "containers"
}

// PageRecord is the current state of a wiki page.
type PageRecord struct {
	gorm.Model
	ContainerID uint   `gorm:"uniqueIndex:idx_wiki_pages_container_slug;not null"`
	Slug        string `gorm:"size:255;uniqueIndex:idx_wiki_pages_container_slug;not null"`
	Title       string `gorm:"size:255;not null"`
	Content     string `gorm:"type:text;not null"`
	Format      string `gorm:"size:32;not null;default:markdown"`
	VersionID   string `gorm:"size:36"`
}

// TableName defines the table name for the PageRecord model.
func (PageRecord) TableName() string {
	return "wiki_pages"
}

// VersionRecord is one commit in the history of a page.
type VersionRecord struct {
	ID        string `gorm:"primaryKey;size:36"`
	PageID    uint   `gorm:"index:idx_wiki_page_versions_page_position;not null"`
	Position  int    `gorm:"index:idx_wiki_page_versions_page_position;not null"`
	Title     string `gorm:"size:255;not null"`
	Content   string `gorm:"type:text;not null"`
	Message   string `gorm:"size:1024"`
	Author    string `gorm:"size:255"`
	CreatedAt time.Time
}

// TableName defines the table name for the VersionRecord model.
func (VersionRecord) TableName() string {
	return "wiki_page_versions"
}

// FileRecord is a raw blob stored in a wiki.
type FileRecord struct {
	gorm.Model
	ContainerID uint   `gorm:"uniqueIndex:idx_wiki_files_container_path;not null"`
	Path        string `gorm:"size:512;uniqueIndex:idx_wiki_files_container_path;not null"`
	Name        string `gorm:"size:255;not null"`
	ContentType string `gorm:"size:255"`
	Data        []byte `gorm:"not null"`
}

// TableName defines the table name for the FileRecord model.
func (FileRecord) TableName() string {
	return "wiki_files"
}

// Models lists every record persisted by the wiki store.
func Models() []interface{} {
	return []interface{}{
		&ContainerRecord{},
		&PageRecord{},
		&VersionRecord{},
		&FileRecord{},
	}
}
