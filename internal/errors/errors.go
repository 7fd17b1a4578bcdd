package errors

import (
	stderrors "errors"
	"fmt"
)

// NoteError is the structured error type for notesearch.
// It carries enough context for logging, CLI output and MCP error mapping.
type NoteError struct {
	// Code is the unique error code (e.g., "ERR_205_INDEX_UNAVAILABLE").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Validation, Internal).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Sentinels for errors.Is. Matching is by code, so any NoteError built with
// the same code satisfies errors.Is(err, ErrIndexUnavailable).
var (
	ErrIndexUnavailable        = &NoteError{Code: ErrCodeIndexUnavailable}
	ErrDocumentUnreadable      = &NoteError{Code: ErrCodeDocumentUnreadable}
	ErrQueryParse              = &NoteError{Code: ErrCodeQueryParse}
	ErrWatchSubscriptionFailed = &NoteError{Code: ErrCodeWatchSubscriptionFailed}
	ErrCommitFailed            = &NoteError{Code: ErrCodeCommitFailed}
)

// Error implements the error interface.
func (e *NoteError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *NoteError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a NoteError with the same code.
func (e *NoteError) Is(target error) bool {
	if t, ok := target.(*NoteError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *NoteError) WithDetail(key, value string) *NoteError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *NoteError) WithSuggestion(suggestion string) *NoteError {
	e.Suggestion = suggestion
	return e
}

// New creates a new NoteError with the given code and message.
// Category and severity are derived from the code.
func New(code string, message string, cause error) *NoteError {
	return &NoteError{
		Code:     code,
		Message:  message,
		Category: categoryFromCode(code),
		Severity: severityFromCode(code),
		Cause:    cause,
	}
}

// Wrap creates a NoteError from an existing error.
func Wrap(code string, err error) *NoteError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// IndexUnavailable reports that the index directory could not be opened,
// created, locked or recovered.
func IndexUnavailable(dir string, cause error) *NoteError {
	return New(ErrCodeIndexUnavailable, fmt.Sprintf("search index unavailable at %s", dir), cause).
		WithDetail("index_dir", dir).
		WithSuggestion("Check permissions on the index directory and that no other notesearch process holds it")
}

// DocumentUnreadable reports a note that could not be read from disk.
func DocumentUnreadable(path string, cause error) *NoteError {
	return New(ErrCodeDocumentUnreadable, fmt.Sprintf("cannot read note %s", path), cause).
		WithDetail("path", path)
}

// QueryParse reports a malformed query string.
func QueryParse(query, reason string) *NoteError {
	return New(ErrCodeQueryParse, fmt.Sprintf("invalid query %q: %s", query, reason), nil).
		WithDetail("reason", reason).
		WithSuggestion(`Use plain words, "quoted phrases", +required, -excluded or field:term (filename, content, section)`)
}

// WatchSubscriptionFailed reports that filesystem notifications could not be
// established for root.
func WatchSubscriptionFailed(root string, cause error) *NoteError {
	return New(ErrCodeWatchSubscriptionFailed, fmt.Sprintf("cannot watch %s", root), cause).
		WithDetail("root", root).
		WithSuggestion("Raise the inotify watch limit or set watch.mode to poll")
}

// CommitFailed reports an index write that could not be committed.
func CommitFailed(op string, cause error) *NoteError {
	return New(ErrCodeCommitFailed, fmt.Sprintf("index commit failed during %s", op), cause).
		WithDetail("op", op)
}

// ConfigError creates a configuration-related error.
func ConfigError(message string, cause error) *NoteError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// ValidationError creates a validation-related error.
func ValidationError(message string, cause error) *NoteError {
	return New(ErrCodeInvalidInput, message, cause)
}

// InternalError creates an internal error.
func InternalError(message string, cause error) *NoteError {
	return New(ErrCodeInternal, message, cause)
}

// As returns the first NoteError in err's chain.
func As(err error) (*NoteError, bool) {
	var ne *NoteError
	if stderrors.As(err, &ne) {
		return ne, true
	}
	return nil, false
}

// IsFatal checks if an error has fatal severity.
func IsFatal(err error) bool {
	if ne, ok := As(err); ok {
		return ne.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from a NoteError.
// Returns empty string if err carries no NoteError.
func GetCode(err error) string {
	if ne, ok := As(err); ok {
		return ne.Code
	}
	return ""
}

// GetCategory extracts the category from a NoteError.
func GetCategory(err error) Category {
	if ne, ok := As(err); ok {
		return ne.Category
	}
	return ""
}
