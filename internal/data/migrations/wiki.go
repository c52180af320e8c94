package migrations

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	wikidata "wikihub/app/internal/data/wiki"
)

// MigrateWiki applies the wiki and metrics schemas using Gorm's AutoMigrate and logs progress.
func MigrateWiki(ctx context.Context, db *gorm.DB, logger *logrus.Logger) error {
	if db == nil {
		return eris.New("gorm DB is required")
	}

	logFields := logrus.Fields{"component": "wiki.migrate"}
	if logger != nil {
		logger.WithFields(logFields).Info("applying wiki schema")
	}

	models := append(wikidata.Models(), &PrometheusMetricRecord{}, &SchemaMigration{})
	if err := db.WithContext(ctx).AutoMigrate(models...); err != nil {
		if logger != nil {
			logger.WithFields(logFields).WithField("error", err.Error()).Error("wiki schema migration failed")
		}
		return eris.Wrap(err, "auto migrating wiki schema")
	}

	if logger != nil {
		logger.WithFields(logFields).Info("wiki schema migration complete")
	}

	return nil
}

// Run applies the schema followed by every pending data migration.
func Run(ctx context.Context, db *gorm.DB, logger *logrus.Logger) ([]string, error) {
	if err := MigrateWiki(ctx, db, logger); err != nil {
		return nil, err
	}

	runner, err := NewRunner(db, logger, DataMigrations()...)
	if err != nil {
		return nil, err
	}

	return runner.Up(ctx)
}
