package index

import (
	"fmt"
	"os"
	"strings"

	nserrors "github.com/Aman-CERP/notesearch/internal/errors"
	"github.com/Aman-CERP/notesearch/internal/store"
	"github.com/Aman-CERP/notesearch/internal/walker"
)

// DefaultMaxFileSize bounds how much of a single note is read into memory.
const DefaultMaxFileSize int64 = 10 * 1024 * 1024

// loadDocument reads path and derives its indexed fields. Symlinks and
// non-regular files are rejected, as are files over maxSize. Invalid UTF-8
// is replaced rather than rejected.
func loadDocument(path string, maxSize int64) (*store.Document, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return nil, nserrors.DocumentUnreadable(path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, nserrors.DocumentUnreadable(path, fmt.Errorf("not a regular file (mode %s)", info.Mode().Type()))
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, nserrors.New(nserrors.ErrCodeFileTooLarge,
			fmt.Sprintf("note %s is %d bytes, over the %d byte limit", path, info.Size(), maxSize), nil).
			WithDetail("path", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nserrors.DocumentUnreadable(path, err)
	}

	filename, section := walker.Derive(path)
	return &store.Document{
		Path:     path,
		Filename: filename,
		Section:  section,
		Content:  strings.ToValidUTF8(string(data), "�"),
	}, nil
}
