package testing

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"agentdeck-server/internal/platform/config"
	"agentdeck-server/internal/platform/logging"
	"agentdeck-server/internal/platform/storage"
)

var dbSeq atomic.Int64

// SetupTestConfig returns the default configuration tuned for tests: an
// in-memory session store and a fixed JWT secret.
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.IP = "127.0.0.1"
	cfg.Server.JWTSecret = "test-secret"
	cfg.Log.Level = "DEBUG"
	cfg.Log.Dir = t.TempDir()
	cfg.Log.File = "test.log"
	cfg.Database.DSN = MemoryDSN()
	cfg.Session.Store = config.SessionStoreMemory
	return cfg
}

// SetupTestLogger builds a logger that writes into the test's temp dir.
func SetupTestLogger(t *testing.T) *logging.Logger {
	t.Helper()

	cfg := SetupTestConfig(t)
	logger, err := logging.New(logging.Config{
		Level:    cfg.Log.Level,
		Dir:      cfg.Log.Dir,
		Filename: cfg.Log.File,
		NoColor:  true,
	})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger
}

// MemoryDSN returns a unique shared-cache in-memory SQLite DSN.
func MemoryDSN() string {
	return fmt.Sprintf("file:test-%d?mode=memory&cache=shared", dbSeq.Add(1))
}

// SetupTestDB opens a migrated in-memory database closed at test cleanup.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := storage.Open(context.Background(), MemoryDSN())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close(db) })
	return db
}

func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error but got nil")
	}
}
