// Package walker discovers indexable notes under a root directory and
// decides which paths the index and watcher should care about.
package walker

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// ErrInvalidPattern is returned for exclude patterns that do not compile.
var ErrInvalidPattern = errors.New("invalid exclude pattern")

// Options configures a Filter.
type Options struct {
	// Extensions lists indexable extensions with the leading dot; matching
	// is case-insensitive. Empty means ".md".
	Extensions []string
	// Exclude holds glob patterns matched against slash-separated paths
	// relative to the root, e.g. "archive/**" or "**/*.draft.md".
	Exclude []string
}

// Filter decides which paths under a root are indexable.
type Filter struct {
	root string
	// given is the absolute root as passed in, before symlinks were
	// resolved. It equals root when no link was involved.
	given    string
	exts     map[string]bool
	excludes []glob.Glob
}

// NewFilter builds a Filter for root, which is made absolute. When root
// exists, symlinks in it are resolved so a linked notes folder is walked and
// watched at its target. Links below the root are never followed.
func NewFilter(root string, opts Options) (*Filter, error) {
	given, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	abs := given
	if resolved, err := filepath.EvalSymlinks(given); err == nil {
		abs = resolved
	}

	exts := make(map[string]bool)
	for _, e := range opts.Extensions {
		exts[strings.ToLower(e)] = true
	}
	if len(exts) == 0 {
		exts[".md"] = true
	}

	excludes, err := compileExcludePatterns(opts.Exclude)
	if err != nil {
		return nil, err
	}

	return &Filter{root: abs, given: given, exts: exts, excludes: excludes}, nil
}

func compileExcludePatterns(patterns []string) ([]glob.Glob, error) {
	out := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		g, err := glob.Compile(p, '/')
		if err != nil {
			return nil, errors.Join(ErrInvalidPattern, fmt.Errorf("%q: %w", p, err))
		}
		out = append(out, g)
	}
	return out, nil
}

// Root returns the absolute root directory with symlinks resolved.
func (f *Filter) Root() string { return f.root }

// Canonical maps an absolute path spelled through the root as originally
// given onto the resolved root. Other paths are returned unchanged.
func (f *Filter) Canonical(path string) string {
	if f.given == f.root {
		return path
	}
	r, err := filepath.Rel(f.given, path)
	if err != nil || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.Join(f.root, r)
}

// rel returns path relative to the root in slash form, or ok=false when
// path is the root itself or lies outside it.
func (f *Filter) rel(path string) (string, bool) {
	r, err := filepath.Rel(f.root, path)
	if err != nil || r == "." || r == ".." || strings.HasPrefix(r, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(r), true
}

// Skipped reports whether path, or any directory between it and the root,
// is hidden (name starts with '.') or matches an exclude pattern. Paths
// outside the root are always skipped.
func (f *Filter) Skipped(path string) bool {
	r, ok := f.rel(path)
	if !ok {
		return true
	}
	for _, part := range strings.Split(r, "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return f.excluded(r)
}

func (f *Filter) excluded(rel string) bool {
	for _, g := range f.excludes {
		if g.Match(rel) || g.Match(rel+"/") {
			return true
		}
	}
	return false
}

// HasIndexableExt reports whether path has one of the configured extensions.
func (f *Filter) HasIndexableExt(path string) bool {
	return f.exts[strings.ToLower(filepath.Ext(path))]
}

// Indexable reports whether path names a note that belongs in the index,
// judged by name alone.
func (f *Filter) Indexable(path string) bool {
	return f.HasIndexableExt(path) && !f.Skipped(path)
}

// Walk calls fn with the absolute path of every indexable regular file under
// the root. Hidden and excluded directories are not descended into, symlinks
// are not followed, and unreadable directories are logged and skipped.
func (f *Filter) Walk(ctx context.Context, fn func(path string) error) error {
	info, err := os.Stat(f.root)
	if err != nil {
		return fmt.Errorf("failed to stat notes root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("notes root is not a directory: %s", f.root)
	}
	return f.walk(ctx, f.root, fn)
}

// WalkDir is Walk restricted to the subtree at dir, which must lie under the
// root. The watcher uses it for directories that appear after startup.
func (f *Filter) WalkDir(ctx context.Context, dir string, fn func(path string) error) error {
	if dir != f.root && f.Skipped(dir) {
		return nil
	}
	return f.walk(ctx, dir, fn)
}

func (f *Filter) walk(ctx context.Context, top string, fn func(path string) error) error {
	return filepath.WalkDir(top, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == top {
				return err
			}
			slog.Warn("walk_entry_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if path == top {
			return nil
		}

		if d.IsDir() {
			if f.Skipped(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !f.Indexable(path) {
			return nil
		}
		return fn(path)
	})
}

// Derive returns the document fields taken from a note's path: the file name
// without extension and the name of the directory containing it.
func Derive(path string) (filename, section string) {
	base := filepath.Base(path)
	filename = strings.TrimSuffix(base, filepath.Ext(base))
	section = filepath.Base(filepath.Dir(path))
	return filename, section
}
