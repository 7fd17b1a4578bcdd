package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Backend names.
const (
	BackendBleve  = "bleve"
	BackendSQLite = "sqlite"
)

// Location returns where backend keeps its data inside indexDir.
func Location(indexDir, backend string) string {
	switch backend {
	case BackendSQLite:
		return filepath.Join(indexDir, "notes.db")
	default:
		return filepath.Join(indexDir, "notes.bleve")
	}
}

// Open opens the NoteIndex for backend inside indexDir, creating it when
// missing. An empty indexDir yields an in-memory index.
func Open(indexDir, backend string) (NoteIndex, error) {
	switch backend {
	case BackendBleve, "":
		path := ""
		if indexDir != "" {
			path = Location(indexDir, BackendBleve)
		}
		return NewBleveIndex(path)

	case BackendSQLite:
		path := ""
		if indexDir != "" {
			path = Location(indexDir, BackendSQLite)
		}
		return NewSQLiteIndex(path)

	default:
		return nil, fmt.Errorf("unknown index backend: %s (valid options: bleve, sqlite)", backend)
	}
}

// Reset deletes backend's data inside indexDir so the next Open starts
// empty. Missing data is not an error. The caller must hold the index lock.
func Reset(indexDir, backend string) error {
	if indexDir == "" {
		return nil
	}
	path := Location(indexDir, backend)
	paths := []string{path}
	if backend == BackendSQLite {
		paths = append(paths, path+"-wal", path+"-shm")
	}
	for _, p := range paths {
		if err := os.RemoveAll(p); err != nil {
			return fmt.Errorf("failed to remove %s: %w", p, err)
		}
	}
	return nil
}
