package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/notesearch/internal/mcp"
	"github.com/Aman-CERP/notesearch/internal/search"
)

// TestIntegration_RebuildAndSearch_SkipsHiddenAndForeignFiles tests the
// complete flow: vault on disk -> rebuild -> ranked results with sections.
func TestIntegration_RebuildAndSearch_SkipsHiddenAndForeignFiles(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	backends(t, func(t *testing.T, backend string) {
		// Given: a vault with notes, a hidden folder and a .txt file
		cfg, root := newConfig(t, backend)
		createTestVault(t, root)

		// When: the service starts and rebuilds
		svc := openService(t, cfg)
		results, err := svc.Search(context.Background(), "migration", 0)

		// Then: only the three visible notes match
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{
			filepath.Join(root, "work", "standup.md"),
			filepath.Join(root, "work", "projects", "migration.md"),
			filepath.Join(root, "journal", "2024-05-01.md"),
		}, resultPaths(results))

		// And: sections are the containing folder names
		for _, r := range results {
			assert.Equal(t, filepath.Base(filepath.Dir(r.Path)), r.Section)
		}
	})
}

// TestIntegration_IndexPersistsAcrossRestart tests that a second process can
// serve queries from the index without re-reading the vault, and that a
// later rebuild reconciles offline edits.
func TestIntegration_IndexPersistsAcrossRestart(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	backends(t, func(t *testing.T, backend string) {
		ctx := context.Background()
		cfg, root := newConfig(t, backend)
		createTestVault(t, root)

		// Given: a first service that rebuilt and closed
		first, err := search.New(ctx, cfg)
		require.NoError(t, err)
		require.NoError(t, first.Close())

		// And: edits made while nothing was running
		require.NoError(t, os.Remove(filepath.Join(root, "inbox.md")))
		writeNote(t, root, "work/standup.md", "# Standup\n\nNothing about birds.\n")

		// When: reopening without a rebuild
		second := openService(t, cfg, search.WithoutRebuild())
		results, err := second.Search(ctx, "plumber", 0)

		// Then: the persisted, now stale, documents are served
		require.NoError(t, err)
		assert.Len(t, results, 1)

		// When: rebuilding
		stats, err := second.Rebuild(ctx)
		require.NoError(t, err)

		// Then: deleted notes are gone and edits are visible
		assert.Equal(t, 1, stats.Removed)
		results, err = second.Search(ctx, "plumber", 0)
		require.NoError(t, err)
		assert.Empty(t, results)

		results, err = second.Search(ctx, "+migration +database", 0)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

// TestIntegration_ExcludePatterns tests that configured excludes apply to
// rebuild and to explicit indexing.
func TestIntegration_ExcludePatterns(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	cfg, root := newConfig(t, "bleve")
	cfg.Exclude = []string{"journal/**"}
	createTestVault(t, root)

	svc := openService(t, cfg)

	results, err := svc.Search(ctx, "hiking", 0)
	require.NoError(t, err)
	assert.Empty(t, results)

	err = svc.IndexFile(ctx, filepath.Join(root, "journal", "2024-05-01.md"))
	assert.Error(t, err)
}

// TestIntegration_MCPToolsOverRealService tests the MCP tool surface against
// a real index.
func TestIntegration_MCPToolsOverRealService(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	ctx := context.Background()
	cfg, root := newConfig(t, "bleve")
	createTestVault(t, root)
	svc := openService(t, cfg)

	server, err := mcp.NewServer(svc)
	require.NoError(t, err)

	// When: calling search_notes
	out, err := server.CallTool(ctx, mcp.ToolSearchNotes, map[string]any{"query": "plumber"})

	// Then: markdown names the note and its 1-based line
	require.NoError(t, err)
	md, ok := out.(string)
	require.True(t, ok)
	assert.Contains(t, md, filepath.Join(root, "inbox.md"))
	assert.Contains(t, md, "_line 1_")

	// When: calling index_status
	out, err = server.CallTool(ctx, mcp.ToolIndexStatus, nil)

	// Then: the count reflects the four visible notes
	require.NoError(t, err)
	status, ok := out.(*mcp.IndexStatusOutput)
	require.True(t, ok)
	assert.Equal(t, 4, status.Documents)
	assert.Equal(t, 4, status.LastIndexed)

	// When: the query is malformed
	_, err = server.CallTool(ctx, mcp.ToolSearchNotes, map[string]any{"query": `"open phrase`})

	// Then: the client gets invalid params
	mcpErr := mcp.MapError(err)
	assert.Equal(t, mcp.ErrCodeInvalidParams, mcpErr.Code)
}
