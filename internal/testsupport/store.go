package testsupport

import (
	"testing"

	"escucha/internal/config"
	"escucha/internal/storage"
)

// MustOpenDB opens the capture database for tests and registers cleanup.
func MustOpenDB(t testing.TB, cfg *config.Config) *storage.DB {
	t.Helper()

	db, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}
