package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nserrors "github.com/Aman-CERP/notesearch/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		contains string
	}{
		{
			name:     "query parse",
			err:      nserrors.QueryParse(`"x`, "unbalanced quote"),
			wantCode: ErrCodeInvalidParams,
			contains: "unbalanced quote",
		},
		{
			name:     "wrapped query parse",
			err:      fmt.Errorf("search: %w", nserrors.QueryParse("+", "dangling operator")),
			wantCode: ErrCodeInvalidParams,
		},
		{
			name:     "index unavailable",
			err:      nserrors.IndexUnavailable("/idx", errors.New("locked")),
			wantCode: ErrCodeIndexUnavailable,
		},
		{
			name:     "document unreadable",
			err:      nserrors.DocumentUnreadable("/n/a.md", errors.New("gone")),
			wantCode: ErrCodeFileNotFound,
		},
		{
			name:     "commit failed",
			err:      nserrors.CommitFailed("upsert", errors.New("disk full")),
			wantCode: ErrCodeInternalError,
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			wantCode: ErrCodeTimeout,
			contains: "timed out",
		},
		{
			name:     "canceled",
			err:      context.Canceled,
			wantCode: ErrCodeTimeout,
			contains: "canceled",
		},
		{
			name:     "plain",
			err:      errors.New("boom"),
			wantCode: ErrCodeInternalError,
			contains: "Internal server error",
		},
		{
			name:     "already mapped",
			err:      NewInvalidParamsError("bad limit"),
			wantCode: ErrCodeInvalidParams,
			contains: "bad limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			if tt.contains != "" {
				assert.Contains(t, got.Message, tt.contains)
			}
		})
	}
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	err := nserrors.IndexUnavailable("/idx", errors.New("locked")).WithSuggestion("Stop the other notesearch process.")

	got := MapError(err)

	assert.Contains(t, got.Message, "Stop the other notesearch process.")
}

func TestMCPError_Error(t *testing.T) {
	err := NewMethodNotFoundError("nope")
	assert.Equal(t, "MCP error -32601: Tool 'nope' not found.", err.Error())
}
