package search

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/notesearch/internal/config"
	nserrors "github.com/Aman-CERP/notesearch/internal/errors"
)

func writeNote(t *testing.T, root, rel, content string) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// testConfig returns a config over a fresh vault and index directory.
func testConfig(t *testing.T, backend string) (*config.Config, string) {
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

func newService(t *testing.T, cfg *config.Config, opts ...Option) *Service {
	t.Helper()
	s, err := New(context.Background(), cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func paths(results []Result) []string {
	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Path)
	}
	return out
}

func forEachBackend(t *testing.T, fn func(t *testing.T, backend string)) {
	for _, backend := range []string{config.BackendBleve, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) { fn(t, backend) })
	}
}

func TestService_HelloWorldScenario(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend string) {
		// Given: two notes in different sections
		cfg, root := testConfig(t, backend)
		note1 := writeNote(t, root, "a/note1.md", "hello world")
		note2 := writeNote(t, root, "b/note2.md", "goodbye world")
		s := newService(t, cfg)

		// When: searching for a term both share
		results, err := s.Search(context.Background(), "world", 10)

		// Then: both notes are returned
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{note1, note2}, paths(results))

		// When: searching for a term only one has
		results, err = s.Search(context.Background(), "hello", 10)

		// Then: only that note, with snippet and match line
		require.NoError(t, err)
		require.Len(t, results, 1)
		r := results[0]
		assert.Equal(t, note1, r.Path)
		assert.Equal(t, "note1", r.Filename)
		assert.Equal(t, "a", r.Section)
		assert.Contains(t, r.Snippet, "hello world")
		require.NotNil(t, r.MatchLine)
		assert.Equal(t, 0, *r.MatchLine)
		assert.Greater(t, r.Score, 0.0)
	})
}

func TestService_ShortQueryReturnsEmptyWithoutParsing(t *testing.T) {
	cfg, root := testConfig(t, config.BackendBleve)
	writeNote(t, root, "ab.md", "ab ab ab")
	s := newService(t, cfg)

	// "ab" would match, and `"a` would be a parse error if it were parsed
	for _, q := range []string{"ab", `"a`, "  ab  ", "", "日本"} {
		results, err := s.Search(context.Background(), q, 10)
		require.NoError(t, err, q)
		assert.NotNil(t, results)
		assert.Empty(t, results, q)
	}
}

func TestService_MinQueryLengthCountsCharacters(t *testing.T) {
	// Given: a three-character query made of multi-byte runes
	cfg, root := testConfig(t, config.BackendBleve)
	writeNote(t, root, "fr.md", "un été chaud")
	s := newService(t, cfg)

	// When: searching with it
	results, err := s.Search(context.Background(), "été", 10)

	// Then: it reaches the index
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestService_QueryParseError(t *testing.T) {
	cfg, root := testConfig(t, config.BackendBleve)
	writeNote(t, root, "a.md", "content")
	s := newService(t, cfg)

	_, err := s.Search(context.Background(), `"unbalanced quote`, 10)
	require.Error(t, err)
	assert.ErrorIs(t, err, nserrors.ErrQueryParse)
}

func TestService_LimitClamping(t *testing.T) {
	cfg, root := testConfig(t, config.BackendBleve)
	cfg.Search.DefaultLimit = 3
	cfg.Search.MaxLimit = 5
	for i := 0; i < 8; i++ {
		writeNote(t, root, filepath.Join("n", string(rune('a'+i))+".md"), "shared term")
	}
	s := newService(t, cfg)
	ctx := context.Background()

	tests := []struct {
		limit int
		want  int
	}{
		{0, 3},
		{-4, 1},
		{2, 2},
		{50, 5},
	}
	for _, tt := range tests {
		results, err := s.Search(ctx, "shared", tt.limit)
		require.NoError(t, err)
		assert.Len(t, results, tt.want, "limit %d", tt.limit)
	}
}

func TestService_SnippetAbsentForTokenOnlyMatch(t *testing.T) {
	// Given: a note matched through separate tokens, not the literal query
	cfg, root := testConfig(t, config.BackendBleve)
	writeNote(t, root, "a.md", "world peace and a hello")
	s := newService(t, cfg)

	// When: searching for the two words in the other order
	results, err := s.Search(context.Background(), "hello world", 10)

	// Then: the note is found without a snippet
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Empty(t, results[0].Snippet)
	assert.Nil(t, results[0].MatchLine)
}

func TestService_IndexFileAndRemoveFile(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend string) {
		ctx := context.Background()
		cfg, root := testConfig(t, backend)
		s := newService(t, cfg)

		// Given: a note written after startup
		path := writeNote(t, root, "later/idea.md", "serendipity strikes")

		// When: it is indexed explicitly
		require.NoError(t, s.IndexFile(ctx, path))

		// Then: it is searchable
		results, err := s.Search(ctx, "serendipity", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{path}, paths(results))

		// When: it is upserted again with new content
		require.NoError(t, os.WriteFile(path, []byte("different words"), 0o644))
		require.NoError(t, s.IndexFile(ctx, path))

		// Then: exactly one live document reflects the latest content
		results, err = s.Search(ctx, "serendipity", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
		results, err = s.Search(ctx, "different", 10)
		require.NoError(t, err)
		assert.Equal(t, []string{path}, paths(results))

		// When: it is removed twice
		require.NoError(t, s.RemoveFile(ctx, path))
		require.NoError(t, s.RemoveFile(ctx, path))

		// Then: it is gone
		results, err = s.Search(ctx, "different", 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})
}

func TestService_IndexFileRejectsPathsOutsideVault(t *testing.T) {
	cfg, root := testConfig(t, config.BackendBleve)
	s := newService(t, cfg)
	ctx := context.Background()

	outside := writeNote(t, t.TempDir(), "x.md", "x")
	hidden := writeNote(t, root, ".obsidian/x.md", "x")
	text := writeNote(t, root, "x.txt", "x")

	for _, p := range []string{outside, hidden, text} {
		err := s.IndexFile(ctx, p)
		require.Error(t, err, p)
		assert.Equal(t, nserrors.ErrCodeInvalidPath, nserrors.GetCode(err))
	}
}

func TestService_IndexFileUnreadable(t *testing.T) {
	cfg, root := testConfig(t, config.BackendBleve)
	s := newService(t, cfg)

	err := s.IndexFile(context.Background(), filepath.Join(root, "missing.md"))
	assert.ErrorIs(t, err, nserrors.ErrDocumentUnreadable)
}

func TestService_CacheInvalidatedByMutation(t *testing.T) {
	// Given: a cached result set
	ctx := context.Background()
	cfg, root := testConfig(t, config.BackendBleve)
	writeNote(t, root, "a.md", "cached phrase")
	s := newService(t, cfg)

	first, err := s.Search(ctx, "cached", 10)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// When: a second matching note is indexed
	path := writeNote(t, root, "b.md", "also cached")
	require.NoError(t, s.IndexFile(ctx, path))

	// Then: the next search sees it
	second, err := s.Search(ctx, "cached", 10)
	require.NoError(t, err)
	assert.Len(t, second, 2)
}

func TestService_CachedResultsAreCopies(t *testing.T) {
	ctx := context.Background()
	cfg, root := testConfig(t, config.BackendBleve)
	writeNote(t, root, "a.md", "stable text")
	writeNote(t, root, "b.md", "first line\nstable again")
	s := newService(t, cfg)

	// Given: results from a fresh search, mutated by the caller
	first, err := s.Search(ctx, "stable", 10)
	require.NoError(t, err)
	require.Len(t, first, 2)
	for i := range first {
		require.NotNil(t, first[i].MatchLine)
		first[i].Path = "mutated"
		*first[i].MatchLine = 99
	}

	// When: the same search is answered from the cache, and mutated again
	second, err := s.Search(ctx, "stable", 10)
	require.NoError(t, err)
	require.Len(t, second, 2)
	for i := range second {
		assert.NotEqual(t, "mutated", second[i].Path)
		require.NotNil(t, second[i].MatchLine)
		assert.NotEqual(t, 99, *second[i].MatchLine)
		*second[i].MatchLine = 42
	}

	// Then: later cached answers are unaffected by either caller
	third, err := s.Search(ctx, "stable", 10)
	require.NoError(t, err)
	lines := map[string]int{}
	for _, r := range third {
		require.NotNil(t, r.MatchLine)
		lines[filepath.Base(r.Path)] = *r.MatchLine
	}
	assert.Equal(t, map[string]int{"a.md": 0, "b.md": 1}, lines)
	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Queries.CacheHits)
}

func TestService_DeterministicOrdering(t *testing.T) {
	forEachBackend(t, func(t *testing.T, backend string) {
		cfg, root := testConfig(t, backend)
		cfg.Search.CacheSize = 0
		for _, name := range []string{"c", "a", "b", "d"} {
			writeNote(t, root, name+".md", "identical body")
		}
		s := newService(t, cfg)

		first, err := s.Search(context.Background(), "identical", 10)
		require.NoError(t, err)
		require.Len(t, first, 4)
		for i := 0; i < 5; i++ {
			again, err := s.Search(context.Background(), "identical", 10)
			require.NoError(t, err)
			assert.Equal(t, paths(first), paths(again))
		}
	})
}

func TestService_ConcurrentSearches(t *testing.T) {
	ctx := context.Background()
	cfg, root := testConfig(t, config.BackendBleve)
	writeNote(t, root, "a.md", "concurrent readers")
	s := newService(t, cfg)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				results, err := s.Search(ctx, "concurrent", 5)
				assert.NoError(t, err)
				assert.Len(t, results, 1)
			}
		}()
	}
	for i := 0; i < 10; i++ {
		p := writeNote(t, root, "w.md", "writer churn")
		require.NoError(t, s.IndexFile(ctx, p))
	}
	wg.Wait()
}

func TestNew_MissingNotesRoot(t *testing.T) {
	cfg, _ := testConfig(t, config.BackendBleve)
	cfg.NotesRoot = filepath.Join(t.TempDir(), "missing")

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, nserrors.ErrCodeNotesRootMissing, nserrors.GetCode(err))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg, _ := testConfig(t, config.BackendBleve)
	cfg.Backend = "lucene"

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.Equal(t, nserrors.ErrCodeConfigInvalid, nserrors.GetCode(err))
}

func TestNew_SecondServiceOnSameIndexIsUnavailable(t *testing.T) {
	cfg, _ := testConfig(t, config.BackendBleve)
	newService(t, cfg)

	_, err := New(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, nserrors.ErrIndexUnavailable)
	assert.True(t, nserrors.IsFatal(err))
}

func TestNew_WithoutRebuildKeepsExistingIndex(t *testing.T) {
	// Given: an index built once, then a note deleted from disk
	ctx := context.Background()
	cfg, root := testConfig(t, config.BackendBleve)
	path := writeNote(t, root, "kept.md", "persisted note")
	s, err := New(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, os.Remove(path))

	// When: reopening without a rebuild
	s = newService(t, cfg, WithoutRebuild())

	// Then: the old document is still served
	results, err := s.Search(ctx, "persisted", 10)
	require.NoError(t, err)
	assert.Equal(t, []string{path}, paths(results))

	// When: rebuilding explicitly
	stats, err := s.Rebuild(ctx)

	// Then: the stale document is removed
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Removed)
	results, err = s.Search(ctx, "persisted", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestService_SymlinkedNotesRoot(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	forEachBackend(t, func(t *testing.T, backend string) {
		// Given: a notes root configured through a symlink
		ctx := context.Background()
		cfg, vault := testConfig(t, backend)
		writeNote(t, vault, "a/note1.md", "hello world")
		link := filepath.Join(t.TempDir(), "Notes")
		require.NoError(t, os.Symlink(vault, link))
		cfg.NotesRoot = link

		// When: opening the service
		s := newService(t, cfg)

		// Then: the linked vault is indexed and searchable
		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, st.Documents)
		assert.Equal(t, vault, st.NotesRoot)

		results, err := s.Search(ctx, "hello", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, filepath.Join(vault, "a", "note1.md"), results[0].Path)

		// And: paths spelled through the link address the same note
		note2 := writeNote(t, vault, "b/note2.md", "hello again")
		require.NoError(t, s.IndexFile(ctx, filepath.Join(link, "b", "note2.md")))
		results, err = s.Search(ctx, "hello", 10)
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{filepath.Join(vault, "a", "note1.md"), note2}, paths(results))

		require.NoError(t, s.RemoveFile(ctx, filepath.Join(link, "b", "note2.md")))
		results, err = s.Search(ctx, "hello", 10)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})
}

func TestService_SymlinkedNotesRootIsWatched(t *testing.T) {
	if testing.Short() {
		t.Skip("watcher timing test")
	}
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg, vault := testConfig(t, config.BackendBleve)
	link := filepath.Join(t.TempDir(), "Notes")
	require.NoError(t, os.Symlink(vault, link))
	cfg.NotesRoot = link
	s := newService(t, cfg)
	require.NoError(t, s.StartWatcher(ctx))

	writeNote(t, vault, "fresh.md", "walrus sighting")

	require.Eventually(t, func() bool {
		results, err := s.Search(ctx, "walrus", 10)
		return err == nil && len(results) == 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestService_StatsAndClose(t *testing.T) {
	ctx := context.Background()
	cfg, root := testConfig(t, config.BackendSQLite)
	writeNote(t, root, "a.md", "one")
	writeNote(t, root, "b.md", "two")
	s := newService(t, cfg)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Documents)
	assert.Equal(t, config.BackendSQLite, st.Backend)
	assert.Equal(t, root, st.NotesRoot)
	assert.Equal(t, 2, st.LastRebuild.Indexed)
	assert.False(t, st.Watching)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Search(ctx, "one", 10)
	assert.ErrorIs(t, err, nserrors.ErrIndexUnavailable)
}

// Watcher-driven scenarios below depend on filesystem notification timing.

func TestService_WatcherDeleteScenario(t *testing.T) {
	if testing.Short() {
		t.Skip("watcher timing test")
	}
	forEachBackend(t, func(t *testing.T, backend string) {
		// Given: the hello/goodbye vault and a running watcher
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		cfg, root := testConfig(t, backend)
		note1 := writeNote(t, root, "a/note1.md", "hello world")
		writeNote(t, root, "b/note2.md", "goodbye world")
		s := newService(t, cfg)
		require.NoError(t, s.StartWatcher(ctx))

		results, err := s.Search(ctx, "hello", 10)
		require.NoError(t, err)
		require.Len(t, results, 1)

		// When: note1 is deleted from disk
		require.NoError(t, os.Remove(note1))

		// Then: after the debounce window it is no longer returned
		require.Eventually(t, func() bool {
			results, err := s.Search(ctx, "hello", 10)
			return err == nil && len(results) == 0
		}, 3*time.Second, 50*time.Millisecond)

		results, err = s.Search(ctx, "world", 10)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})
}

func TestService_WatcherIndexesNewAndChangedNotes(t *testing.T) {
	if testing.Short() {
		t.Skip("watcher timing test")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg, root := testConfig(t, config.BackendBleve)
	s := newService(t, cfg)
	require.NoError(t, s.StartWatcher(ctx))

	// When: a note is created and a non-note file appears
	path := writeNote(t, root, "inbox/fresh.md", "quokka sighting")
	writeNote(t, root, "inbox/fresh.txt", "quokka text file")

	// Then: only the note becomes searchable
	require.Eventually(t, func() bool {
		results, err := s.Search(ctx, "quokka", 10)
		return err == nil && len(results) == 1 && results[0].Path == path
	}, 3*time.Second, 50*time.Millisecond)

	// When: it is edited
	require.NoError(t, os.WriteFile(path, []byte("wombat sighting"), 0o644))

	// Then: the new content replaces the old
	require.Eventually(t, func() bool {
		results, err := s.Search(ctx, "wombat", 10)
		return err == nil && len(results) == 1
	}, 3*time.Second, 50*time.Millisecond)
	results, err := s.Search(ctx, "quokka", 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestService_WatcherCoalescesRapidWrites(t *testing.T) {
	if testing.Short() {
		t.Skip("watcher timing test")
	}
	// Given: a running watcher with a wide debounce window
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg, root := testConfig(t, config.BackendBleve)
	cfg.Watch.Debounce = "300ms"
	s := newService(t, cfg)
	require.NoError(t, s.StartWatcher(ctx))
	before, err := s.Stats(ctx)
	require.NoError(t, err)

	// When: one file is written many times in quick succession
	path := filepath.Join(root, "draft.md")
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(path, []byte("revision "+string(rune('a'+i))+" final"), 0o644))
	}

	// Then: one mutation is applied, reflecting the last write
	require.Eventually(t, func() bool {
		st, err := s.Stats(ctx)
		return err == nil && st.EventsApplied > before.EventsApplied
	}, 3*time.Second, 50*time.Millisecond)
	time.Sleep(500 * time.Millisecond)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.EventsApplied+1, st.EventsApplied)
	assert.Equal(t, before.Generation+1, st.Generation)

	results, err := s.Search(ctx, "final", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, results[0].Snippet, "revision j")
}

func TestService_WatcherDirectoryRemovalClearsTree(t *testing.T) {
	if testing.Short() {
		t.Skip("watcher timing test")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg, root := testConfig(t, config.BackendSQLite)
	writeNote(t, root, "journal/2024/jan.md", "winter entry")
	writeNote(t, root, "journal/2024/feb.md", "winter entry")
	writeNote(t, root, "keep.md", "winter outside")
	s := newService(t, cfg)
	require.NoError(t, s.StartWatcher(ctx))

	require.NoError(t, os.RemoveAll(filepath.Join(root, "journal")))

	require.Eventually(t, func() bool {
		results, err := s.Search(ctx, "winter", 10)
		return err == nil && len(results) == 1
	}, 3*time.Second, 50*time.Millisecond)
}

func TestService_WatcherFailuresDoNotStopDispatch(t *testing.T) {
	if testing.Short() {
		t.Skip("watcher timing test")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg, root := testConfig(t, config.BackendBleve)
	cfg.Index.MaxFileSize = 64
	s := newService(t, cfg)
	require.NoError(t, s.StartWatcher(ctx))

	// When: an oversized note fails to index, then a good one is written
	writeNote(t, root, "huge.md", string(make([]byte, 1024)))
	time.Sleep(300 * time.Millisecond)
	good := writeNote(t, root, "small.md", "still working")

	// Then: the failure is counted and the next event still applies
	require.Eventually(t, func() bool {
		results, err := s.Search(ctx, "working", 10)
		return err == nil && len(results) == 1 && results[0].Path == good
	}, 3*time.Second, 50*time.Millisecond)
	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, st.EventsFailed, uint64(1))
	assert.True(t, st.Watching)
}

func TestService_StartWatcherTwice(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg, _ := testConfig(t, config.BackendBleve)
	s := newService(t, cfg)

	require.NoError(t, s.StartWatcher(ctx))
	assert.Error(t, s.StartWatcher(ctx))
}

func TestService_StatsReportsWatcherStoppedByContext(t *testing.T) {
	// Given: a running watcher
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg, _ := testConfig(t, config.BackendBleve)
	s := newService(t, cfg)
	require.NoError(t, s.StartWatcher(ctx))

	st, err := s.Stats(context.Background())
	require.NoError(t, err)
	require.True(t, st.Watching)

	// When: its context is cancelled
	cancel()

	// Then: stats stop reporting it as watching
	require.Eventually(t, func() bool {
		st, err := s.Stats(context.Background())
		return err == nil && !st.Watching && st.WatchMode == ""
	}, 3*time.Second, 20*time.Millisecond)
}

func TestService_StartWatcherAfterClose(t *testing.T) {
	cfg, _ := testConfig(t, config.BackendBleve)
	s := newService(t, cfg)
	require.NoError(t, s.Close())

	err := s.StartWatcher(context.Background())
	assert.ErrorIs(t, err, nserrors.ErrIndexUnavailable)
}

func TestSearch_RecordsQueryMetrics(t *testing.T) {
	// Given: a service with one note
	cfg, root := testConfig(t, config.BackendBleve)
	writeNote(t, root, "a/note.md", "budget review notes\n")
	s := newService(t, cfg)
	ctx := context.Background()

	// When: running a short query, a query twice and a miss
	_, err := s.Search(ctx, "ab", 0)
	require.NoError(t, err)
	for i := 0; i < 2; i++ {
		_, err = s.Search(ctx, "budget", 0)
		require.NoError(t, err)
	}
	_, err = s.Search(ctx, "zebra", 0)
	require.NoError(t, err)

	// Then: only queries that reached the index are counted
	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.Queries.TotalQueries)
	assert.Equal(t, int64(1), st.Queries.ZeroResultCount)
	assert.Equal(t, int64(1), st.Queries.CacheHits)
	assert.Equal(t, []string{"zebra"}, st.Queries.ZeroResultQueries)
}
