// Package integration holds end-to-end tests that drive the search service,
// the index backends, the watcher and the MCP server together.
package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/notesearch/internal/config"
	"github.com/Aman-CERP/notesearch/internal/search"
)

func writeNote(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// createTestVault writes a small vault with nested sections, a hidden
// folder and a non-note file.
func createTestVault(t *testing.T, root string) {
	t.Helper()
	writeNote(t, root, "inbox.md", "Call the plumber about the kitchen sink\n")
	writeNote(t, root, "work/standup.md", "# Standup\n\nDiscussed the migration plan.\nBlocked on database access.\n")
	writeNote(t, root, "work/projects/migration.md", "Migration checklist\n- freeze writes\n- copy tables\n")
	writeNote(t, root, "journal/2024-05-01.md", "Went hiking. The migration of birds was visible.\n")
	writeNote(t, root, ".trash/old.md", "migration notes that were deleted\n")
	writeNote(t, root, "work/diagram.txt", "migration diagram source\n")
}

func newConfig(t *testing.T, backend string) (*config.Config, string) {
	t.Helper()
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	cfg := config.NewConfig()
	cfg.NotesRoot = root
	cfg.IndexDir = filepath.Join(t.TempDir(), "index")
	cfg.Backend = backend
	cfg.Watch.Debounce = "100ms"
	cfg.Index.Workers = 2
	return cfg, root
}

func openService(t *testing.T, cfg *config.Config, opts ...search.Option) *search.Service {
	t.Helper()
	svc, err := search.New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func resultPaths(results []search.Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Path)
	}
	return out
}

func backends(t *testing.T, fn func(t *testing.T, backend string)) {
	for _, b := range []string{config.BackendBleve, config.BackendSQLite} {
		t.Run(b, func(t *testing.T) { fn(t, b) })
	}
}
