package migrations

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SchemaMigration records a data migration that has been applied.
type SchemaMigration struct {
	Version   string `gorm:"primaryKey;size:255"`
	AppliedAt time.Time
}

// TableName defines the table name for the SchemaMigration model.
func (SchemaMigration) TableName() string {
	return "schema_migrations"
}

// Migration is a versioned data migration. Up runs inside a transaction.
type Migration struct {
	Version string
	Up      func(tx *gorm.DB) error
}

// Runner applies pending migrations in version order.
type Runner struct {
	db         *gorm.DB
	logger     *logrus.Logger
	migrations []Migration
	now        func() time.Time
}

// NewRunner constructs a Runner over the given migrations.
func NewRunner(db *gorm.DB, logger *logrus.Logger, migrations ...Migration) (*Runner, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	seen := make(map[string]struct{}, len(migrations))
	for _, migration := range migrations {
		if migration.Version == "" {
			return nil, eris.New("migration version is required")
		}
		if migration.Up == nil {
			return nil, eris.Errorf("migration %s has no up step", migration.Version)
		}
		if _, dup := seen[migration.Version]; dup {
			return nil, eris.Errorf("migration %s registered twice", migration.Version)
		}
		seen[migration.Version] = struct{}{}
	}

	sorted := append([]Migration(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	return &Runner{db: db, logger: logger, migrations: sorted, now: time.Now}, nil
}

// Up applies every migration not yet recorded and returns the versions it applied.
func (r *Runner) Up(ctx context.Context) ([]string, error) {
	db := r.db.WithContext(ctx)

	if err := db.AutoMigrate(&SchemaMigration{}); err != nil {
		return nil, eris.Wrap(err, "preparing schema_migrations table")
	}

	var recorded []SchemaMigration
	if err := db.Find(&recorded).Error; err != nil {
		return nil, eris.Wrap(err, "reading applied migrations")
	}

	applied := make(map[string]struct{}, len(recorded))
	for _, migration := range recorded {
		applied[migration.Version] = struct{}{}
	}

	var ran []string
	for _, migration := range r.migrations {
		if _, done := applied[migration.Version]; done {
			continue
		}

		fields := logrus.Fields{"component": "migrations", "version": migration.Version}
		if r.logger != nil {
			r.logger.WithFields(fields).Info("applying data migration")
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}
			return tx.Create(&SchemaMigration{Version: migration.Version, AppliedAt: r.now()}).Error
		})
		if err != nil {
			if r.logger != nil {
				r.logger.WithFields(fields).WithField("error", err.Error()).Error("data migration failed")
			}
			return ran, eris.Wrapf(err, "applying migration %s", migration.Version)
		}

		ran = append(ran, migration.Version)
	}

	return ran, nil
}
