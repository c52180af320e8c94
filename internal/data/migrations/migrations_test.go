package migrations

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"wikihub/app/internal/data/database"
)

const (
	legacyQuery = `avg(sum(container_memory_usage_bytes{container_name!="POD",` +
		`pod_name=~"^%{ci_environment_slug}-(.*)",namespace="%{kube_namespace}"})` +
		` by (job)) without (job)  /1024/1024/1024`
	expectedQuery = `avg(sum(container_memory_usage_bytes{container_name!="POD",` +
		`pod_name=~"^{{ci_environment_slug}}-(.*)",namespace="{{kube_namespace}}"})` +
		` by (job)) without (job)  /1024/1024/1024`
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := database.Open(database.Options{Path: filepath.Join(t.TempDir(), "migrations.db")})
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, database.Close(db))
	})

	return db
}

func silentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestConvertInterpolation(t *testing.T) {
	t.Parallel()

	assert.Equal(t, expectedQuery, ConvertInterpolation(legacyQuery))
	assert.Equal(t, "up{job=\"{{name}}\"}", ConvertInterpolation("up{job=\"{{name}}\"}"))
	assert.Equal(t, "rate(x[5m]) % 2", ConvertInterpolation("rate(x[5m]) % 2"))
}

func TestRunUpdatesCommonMetricQueries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)
	require.NoError(t, MigrateWiki(ctx, db, silentLogger()))

	common := &PrometheusMetricRecord{
		Identifier: "system_metrics_kubernetes_container_memory_total",
		Query:      legacyQuery,
		Title:      "Memory Usage (Total)",
		YLabel:     "Total Memory Used (GB)",
		Unit:       "GB",
		Legend:     "Total (GB)",
		Group:      -5,
		Common:     true,
	}
	require.NoError(t, db.Create(common).Error)

	projectID := uint(7)
	custom := &PrometheusMetricRecord{
		ProjectID:  &projectID,
		Identifier: "custom",
		Query:      legacyQuery,
		Title:      "Custom",
		Group:      -5,
	}
	require.NoError(t, db.Create(custom).Error)

	applied, err := Run(ctx, db, silentLogger())
	require.NoError(t, err)
	assert.Equal(t, []string{interpolationFormatVersion}, applied)

	var reloaded PrometheusMetricRecord
	require.NoError(t, db.First(&reloaded, common.ID).Error)
	assert.Equal(t, expectedQuery, reloaded.Query)

	var untouched PrometheusMetricRecord
	require.NoError(t, db.First(&untouched, custom.ID).Error)
	assert.Equal(t, legacyQuery, untouched.Query, "project metrics keep their own format")

	again, err := Run(ctx, db, silentLogger())
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestRunnerValidatesMigrations(t *testing.T) {
	t.Parallel()

	db := openTestDB(t)
	noop := func(*gorm.DB) error { return nil }

	_, err := NewRunner(nil, nil)
	assert.Error(t, err)

	_, err = NewRunner(db, nil, Migration{Version: "", Up: noop})
	assert.Error(t, err)

	_, err = NewRunner(db, nil, Migration{Version: "1", Up: nil})
	assert.Error(t, err)

	_, err = NewRunner(db, nil, Migration{Version: "1", Up: noop}, Migration{Version: "1", Up: noop})
	assert.Error(t, err)
}

func TestRunnerAppliesInOrderAndStopsOnFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := openTestDB(t)

	var order []string
	step := func(version string) Migration {
		return Migration{Version: version, Up: func(*gorm.DB) error {
			order = append(order, version)
			return nil
		}}
	}
	failing := Migration{Version: "003", Up: func(*gorm.DB) error { return eris.New("boom") }}

	runner, err := NewRunner(db, silentLogger(), step("002"), failing, step("001"), step("004"))
	require.NoError(t, err)

	applied, err := runner.Up(ctx)
	require.Error(t, err)
	assert.Equal(t, []string{"001", "002"}, applied)
	assert.Equal(t, []string{"001", "002"}, order)

	var recorded int64
	require.NoError(t, db.Model(&SchemaMigration{}).Count(&recorded).Error)
	assert.EqualValues(t, 2, recorded)
}
