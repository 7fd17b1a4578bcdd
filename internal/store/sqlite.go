package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	_ "modernc.org/sqlite" // pure Go driver, registers "sqlite"

	"github.com/Aman-CERP/notesearch/internal/query"
)

// SQLiteIndex implements NoteIndex with an FTS5 table in WAL mode.
//
// WAL gives each read transaction a stable snapshot, so searches on one
// connection are unaffected by an open write transaction on another.
type SQLiteIndex struct {
	// mu guards the handle lifetime; see BleveIndex.
	mu     sync.RWMutex
	db     *sql.DB
	path   string
	closed bool
}

var _ NoteIndex = (*SQLiteIndex)(nil)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER PRIMARY KEY
);

CREATE VIRTUAL TABLE IF NOT EXISTS notes USING fts5(
	path UNINDEXED,
	filename,
	section,
	content,
	tokenize='unicode61'
);

-- path -> FTS rowid, so replacing a note does not scan the FTS table
CREATE TABLE IF NOT EXISTS note_rows (
	path TEXT PRIMARY KEY,
	row  INTEGER NOT NULL
);

INSERT OR IGNORE INTO schema_version (version) VALUES (1);
`

// NewSQLiteIndex opens or creates the FTS5 database at path. A database that
// fails its integrity check is rejected with ErrCorrupt and left in place.
// An empty path opens a private in-memory database.
func NewSQLiteIndex(path string) (*SQLiteIndex, error) {
	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
		}
		if verr := validateSQLiteIntegrity(path); verr != nil {
			slog.Warn("sqlite_index_corrupted",
				slog.String("path", path),
				slog.String("error", verr.Error()))
			return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, verr)
		}
		// Pragmas in the DSN apply to every pooled connection.
		dsn = "file:" + path +
			"?_pragma=busy_timeout(5000)" +
			"&_pragma=journal_mode(WAL)" +
			"&_pragma=synchronous(NORMAL)" +
			"&_pragma=temp_store(MEMORY)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if path == "" {
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(4)
	}
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteIndex{db: db, path: path}, nil
}

func validateSQLiteIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", "file:"+path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA quick_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
	                   WHERE type='table' AND name IN ('notes', 'note_rows')`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count != 2 {
		return fmt.Errorf("notes tables missing")
	}
	return nil
}

// Apply commits b in one transaction.
func (s *SQLiteIndex) Apply(ctx context.Context, b *Batch) error {
	if b == nil || b.Len() == 0 {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	lookup, err := tx.PrepareContext(ctx, `SELECT row FROM note_rows WHERE path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare lookup: %w", err)
	}
	defer lookup.Close()

	delRow, err := tx.PrepareContext(ctx, `DELETE FROM notes WHERE rowid = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete: %w", err)
	}
	defer delRow.Close()

	delPath, err := tx.PrepareContext(ctx, `DELETE FROM note_rows WHERE path = ?`)
	if err != nil {
		return fmt.Errorf("failed to prepare delete: %w", err)
	}
	defer delPath.Close()

	insert, err := tx.PrepareContext(ctx,
		`INSERT INTO notes(path, filename, section, content) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer insert.Close()

	track, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO note_rows(path, row) VALUES (?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer track.Close()

	remove := func(p string) error {
		var row int64
		err := lookup.QueryRowContext(ctx, p).Scan(&row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to look up %s: %w", p, err)
		}
		if _, err := delRow.ExecContext(ctx, row); err != nil {
			return fmt.Errorf("failed to delete %s: %w", p, err)
		}
		if _, err := delPath.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("failed to delete %s: %w", p, err)
		}
		return nil
	}

	for _, p := range b.Deletes {
		if err := remove(p); err != nil {
			return err
		}
	}
	for _, doc := range b.Upserts {
		if err := remove(doc.Path); err != nil {
			return err
		}
		res, err := insert.ExecContext(ctx, doc.Path, doc.Filename, doc.Section, doc.Content)
		if err != nil {
			return fmt.Errorf("failed to index document %s: %w", doc.Path, err)
		}
		row, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read rowid for %s: %w", doc.Path, err)
		}
		if _, err := track.ExecContext(ctx, doc.Path, row); err != nil {
			return fmt.Errorf("failed to track document %s: %w", doc.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Search runs q as an FTS5 MATCH expression ranked by bm25.
func (s *SQLiteIndex) Search(ctx context.Context, q *query.Query, limit int) ([]*Hit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}
	if q == nil || limit <= 0 {
		return []*Hit{}, nil
	}

	match, ok := toFTS5(q)
	if !ok {
		return []*Hit{}, nil
	}

	// bm25() is negative; lower is better.
	rows, err := s.db.QueryContext(ctx, `
		SELECT path, filename, section, content, bm25(notes) AS score
		FROM notes
		WHERE notes MATCH ?
		ORDER BY score, path
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer rows.Close()

	hits := []*Hit{}
	for rows.Next() {
		h := &Hit{}
		var score float64
		if err := rows.Scan(&h.Path, &h.Filename, &h.Section, &h.Content, &score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		h.Score = -score
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// toFTS5 renders q in FTS5 query syntax. Every term is quoted, so user input
// cannot inject FTS5 operators. ok is false when q cannot match anything.
//
// FTS5 has no optional clauses next to required ones, so when q has "+"
// clauses the plain clauses are dropped; they only affected ranking.
func toFTS5(q *query.Query) (string, bool) {
	var must, should, not []string
	for _, c := range q.Clauses {
		expr, ok := clauseFTS5(c)
		switch c.Occur {
		case query.Must:
			if !ok {
				return "", false
			}
			must = append(must, expr)
		case query.MustNot:
			if ok {
				not = append(not, expr)
			}
		default:
			if ok {
				should = append(should, expr)
			}
		}
	}

	var positive string
	switch {
	case len(must) > 0:
		positive = strings.Join(must, " AND ")
	case len(should) > 0:
		positive = strings.Join(should, " OR ")
	default:
		return "", false
	}

	out := "(" + positive + ")"
	for _, n := range not {
		out += " NOT " + n
	}
	return out, true
}

// clauseFTS5 renders one clause as a column-filtered expression. A term that
// contains no indexable characters cannot match and reports ok=false.
func clauseFTS5(c query.Clause) (string, bool) {
	tokens := ftsTokens(c.Text)
	if len(tokens) == 0 {
		return "", false
	}

	var body string
	if c.Phrase {
		body = quoteFTS5(strings.Join(tokens, " "))
	} else {
		quoted := make([]string, len(tokens))
		for i, t := range tokens {
			quoted[i] = quoteFTS5(t)
		}
		body = "(" + strings.Join(quoted, " OR ") + ")"
	}
	return "({" + strings.Join(c.Fields(), " ") + "} : " + body + ")", true
}

// ftsTokens splits s the way unicode61 does: runs of letters and digits.
func ftsTokens(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func quoteFTS5(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

// Paths returns every indexed path.
func (s *SQLiteIndex) Paths(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	rows, err := s.db.QueryContext(ctx, `SELECT path FROM note_rows ORDER BY path`)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	paths := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("failed to scan path: %w", err)
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

// Count returns the number of indexed documents.
func (s *SQLiteIndex) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}

	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM note_rows`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return n, nil
}

// Backend returns "sqlite".
func (s *SQLiteIndex) Backend() string { return BackendSQLite }

// Close checkpoints the WAL and closes the database.
func (s *SQLiteIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true

	if s.path != "" {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	}
	return s.db.Close()
}
