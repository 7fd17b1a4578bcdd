package logging

import (
	"os"
	"path/filepath"
)

// DefaultLogDir returns ~/.notesearch/logs, or a temp-dir fallback when the
// home directory is unknown.
func DefaultLogDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".notesearch", "logs")
	}
	return filepath.Join(home, ".notesearch", "logs")
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultLogDir(), "notesearch.log")
}
