package database

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := Open(Options{})
	if err == nil {
		t.Fatalf("expected error when no path supplied")
	}
}

func TestOpenAppliesPragmasWithDefaultTimeout(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "wikihub.db")

	database, err := Open(Options{Path: path})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := Close(database); closeErr != nil {
			t.Errorf("closing database failed: %v", closeErr)
		}
	})

	var foreignKeys int
	if queryErr := database.Raw("PRAGMA foreign_keys;").Scan(&foreignKeys).Error; queryErr != nil {
		t.Fatalf("querying foreign_keys pragma failed: %v", queryErr)
	}
	if foreignKeys != 1 {
		t.Fatalf("expected foreign keys pragma to be enabled, got %d", foreignKeys)
	}

	var journalMode string
	if queryErr := database.Raw("PRAGMA journal_mode;").Scan(&journalMode).Error; queryErr != nil {
		t.Fatalf("querying journal_mode pragma failed: %v", queryErr)
	}
	if !strings.EqualFold(strings.TrimSpace(journalMode), "wal") {
		t.Fatalf("expected journal mode WAL, got %q", journalMode)
	}

	var busyTimeout int
	if queryErr := database.Raw("PRAGMA busy_timeout;").Scan(&busyTimeout).Error; queryErr != nil {
		t.Fatalf("querying busy_timeout pragma failed: %v", queryErr)
	}

	expectedTimeout := int((5 * time.Second) / time.Millisecond)
	if busyTimeout != expectedTimeout {
		t.Fatalf("expected busy timeout %d, got %d", expectedTimeout, busyTimeout)
	}
}

func TestOpenHonoursBusyTimeoutAndConnectionLimits(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "wikihub_custom_test.db")
	opts := Options{
		Path:         path,
		BusyTimeout:  1500 * time.Millisecond,
		MaxOpenConns: 7,
		MaxIdleConns: 3,
		ConnMaxIdle:  2 * time.Second,
		ConnMaxLife:  5 * time.Second,
	}

	database, err := Open(opts)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := Close(database); closeErr != nil {
			t.Errorf("closing database failed: %v", closeErr)
		}
	})

	var busyTimeout int
	if queryErr := database.Raw("PRAGMA busy_timeout;").Scan(&busyTimeout).Error; queryErr != nil {
		t.Fatalf("querying busy_timeout pragma failed: %v", queryErr)
	}

	expectedTimeout := int(opts.BusyTimeout / time.Millisecond)
	if busyTimeout != expectedTimeout {
		t.Fatalf("expected busy timeout %d, got %d", expectedTimeout, busyTimeout)
	}

	sqlDB, err := SQLDB(database)
	if err != nil {
		t.Fatalf("SQLDB returned error: %v", err)
	}

	if stats := sqlDB.Stats(); stats.MaxOpenConnections != opts.MaxOpenConns {
		t.Fatalf("expected MaxOpenConns %d, got %d", opts.MaxOpenConns, stats.MaxOpenConnections)
	}
}

func TestSQLDBWithNilDatabase(t *testing.T) {
	t.Parallel()

	_, err := SQLDB(nil)
	if err == nil {
		t.Fatalf("expected error when database is nil")
	}
}

func TestPingReportsClosedDatabase(t *testing.T) {
	t.Parallel()

	database, err := Open(Options{Path: filepath.Join(t.TempDir(), "ping.db")})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}

	if err := Ping(context.Background(), database); err != nil {
		t.Fatalf("expected ping to succeed, got %v", err)
	}

	if err := Close(database); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}

	if err := Ping(context.Background(), database); err == nil {
		t.Fatalf("expected ping to fail after close")
	}
}

func TestOpenWithLogrusLoggerReportsFailedQueries(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logrus.New()
	log.SetOutput(&buf)
	log.SetFormatter(&logrus.JSONFormatter{})

	database, err := Open(Options{Path: filepath.Join(t.TempDir(), "logged.db"), Logger: log})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := Close(database); closeErr != nil {
			t.Errorf("closing database failed: %v", closeErr)
		}
	})

	if err := database.Exec("SELECT * FROM missing_table").Error; err == nil {
		t.Fatalf("expected query against missing table to fail")
	}

	if !strings.Contains(buf.String(), "database query failed") {
		t.Fatalf("expected failed query to be logged, got %q", buf.String())
	}
}
