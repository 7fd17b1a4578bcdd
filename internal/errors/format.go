package errors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForCLI formats an error for terminal output.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	ne, ok := As(err)
	if !ok {
		ne = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Error: %s\n", ne.Message)
	if ne.Cause != nil && ne.Cause.Error() != ne.Message {
		fmt.Fprintf(&sb, "  Cause: %s\n", ne.Cause.Error())
	}
	if ne.Suggestion != "" {
		fmt.Fprintf(&sb, "  Hint: %s\n", ne.Suggestion)
	}
	fmt.Fprintf(&sb, "  Code: %s\n", ne.Code)

	return sb.String()
}

type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
}

// FormatJSON returns a JSON representation of the error, used by
// `search --format json` when a query fails.
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	ne, ok := As(err)
	if !ok {
		ne = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       ne.Code,
		Message:    ne.Message,
		Category:   string(ne.Category),
		Severity:   string(ne.Severity),
		Details:    ne.Details,
		Suggestion: ne.Suggestion,
	}
	if ne.Cause != nil {
		je.Cause = ne.Cause.Error()
	}

	return json.Marshal(je)
}

// LogAttrs returns slog key-value pairs describing err.
//
//	logger.Warn("watch_event_failed", errors.LogAttrs(err)...)
func LogAttrs(err error) []any {
	if err == nil {
		return nil
	}

	ne, ok := As(err)
	if !ok {
		return []any{"error", err.Error()}
	}

	attrs := []any{
		"error_code", ne.Code,
		"error", ne.Message,
		"severity", string(ne.Severity),
	}
	if ne.Cause != nil {
		attrs = append(attrs, "cause", ne.Cause.Error())
	}
	for k, v := range ne.Details {
		attrs = append(attrs, "detail_"+k, v)
	}
	return attrs
}
