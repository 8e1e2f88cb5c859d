package testsupport

import (
	"testing"

	"singleapp/internal/config"
	"singleapp/internal/directory"
	"singleapp/internal/logging"
)

// MustOpenDirectory opens a directory.Store for tests and registers cleanup.
func MustOpenDirectory(t testing.TB, cfg *config.Config) *directory.Store {
	t.Helper()

	store, err := directory.Open(cfg, logging.NewNop())
	if err != nil {
		t.Fatalf("directory.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}
