package db

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestOpenRequiresPath(t *testing.T) {
	t.Parallel()

	if _, err := Open(Options{}); err == nil {
		t.Fatalf("expected error when no path supplied")
	}
}

func TestOpenCreatesMissingDirectory(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "deeper", "roster.db")

	database, err := Open(Options{Path: path})
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() {
		if closeErr := Close(database); closeErr != nil {
			t.Errorf("closing database failed: %v", closeErr)
		}
	})

	if _, statErr := os.Stat(filepath.Dir(path)); statErr != nil {
		t.Fatalf("expected parent directory to exist: %v", statErr)
	}
}

func TestOpenAppliesPragmasWithDefaultTimeout(t *testing.T) {
	t.Parallel()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	database, err := Open(Options{Path: filepath.Join(t.TempDir(), "roster.db"), Logger: logger})
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

	expected := int(defaultBusyTimeout / time.Millisecond)
	if busyTimeout != expected {
		t.Fatalf("expected busy timeout %d, got %d", expected, busyTimeout)
	}
}

func TestOpenHonoursBusyTimeoutAndConnectionLimits(t *testing.T) {
	t.Parallel()

	opts := Options{
		Path:         filepath.Join(t.TempDir(), "roster_custom.db"),
		BusyTimeout:  1500 * time.Millisecond,
		MaxOpenConns: 1,
		MaxIdleConns: 1,
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
	if busyTimeout != 1500 {
		t.Fatalf("expected busy timeout 1500, got %d", busyTimeout)
	}

	sqlDB, err := SQLDB(database)
	if err != nil {
		t.Fatalf("SQLDB returned error: %v", err)
	}

	if stats := sqlDB.Stats(); stats.MaxOpenConnections != opts.MaxOpenConns {
		t.Fatalf("expected MaxOpenConns %d, got %d", opts.MaxOpenConns, stats.MaxOpenConnections)
	}
}

func TestCloseIgnoresNilHandle(t *testing.T) {
	t.Parallel()

	if err := Close(nil); err != nil {
		t.Fatalf("expected nil error closing nil handle, got %v", err)
	}
}

func TestSQLDBWithNilDatabase(t *testing.T) {
	t.Parallel()

	if _, err := SQLDB(nil); err == nil {
		t.Fatalf("expected error when database is nil")
	}
}

func TestOpenKeepsReservedCharactersInFileName(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := filepath.Join(dir, "tav?ern.db")
	second := filepath.Join(dir, "tav?ish #1 100%.db")

	firstDB, err := Open(Options{Path: first})
	if err != nil {
		t.Fatalf("Open(%q) returned error: %v", first, err)
	}
	t.Cleanup(func() { _ = Close(firstDB) })

	secondDB, err := Open(Options{Path: second})
	if err != nil {
		t.Fatalf("Open(%q) returned error: %v", second, err)
	}
	t.Cleanup(func() { _ = Close(secondDB) })

	if execErr := firstDB.Exec("CREATE TABLE marker (id integer)").Error; execErr != nil {
		t.Fatalf("creating marker table failed: %v", execErr)
	}

	for _, path := range []string{first, second} {
		if _, statErr := os.Stat(path); statErr != nil {
			t.Fatalf("expected database file %q to exist: %v", path, statErr)
		}
	}
	if _, statErr := os.Stat(filepath.Join(dir, "tav")); !os.IsNotExist(statErr) {
		t.Fatalf("expected no truncated database file, stat returned %v", statErr)
	}

	if secondDB.Migrator().HasTable("marker") {
		t.Fatalf("expected databases at distinct paths to stay separate")
	}
}

func TestSQLiteDSNEscapesPath(t *testing.T) {
	t.Parallel()

	dsn := sqliteDSN("data/a?x#y%z.db", 1500*time.Millisecond)
	expected := "file:data/a%3Fx%23y%25z.db?_busy_timeout=1500&_foreign_keys=1&_journal_mode=WAL"
	if dsn != expected {
		t.Fatalf("expected dsn %q, got %q", expected, dsn)
	}
}

func TestOpenFailsWhenParentIsAFile(t *testing.T) {
	t.Parallel()

	occupied := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(occupied, []byte("not a directory"), 0o600); err != nil {
		t.Fatalf("writing blocker file failed: %v", err)
	}

	if _, err := Open(Options{Path: filepath.Join(occupied, "roster.db")}); err == nil {
		t.Fatalf("expected error when the parent path is a regular file")
	}
}

func TestOpenFailsInReadOnlyDirectory(t *testing.T) {
	t.Parallel()

	if os.Geteuid() == 0 {
		t.Skip("directory permissions are not enforced for root")
	}

	dir := filepath.Join(t.TempDir(), "locked")
	if err := os.Mkdir(dir, 0o500); err != nil {
		t.Fatalf("creating read-only directory failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chmod(dir, 0o700) })

	if _, err := Open(Options{Path: filepath.Join(dir, "roster.db")}); err == nil {
		t.Fatalf("expected error when the database directory is read-only")
	}
}
