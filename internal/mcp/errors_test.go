package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Aman-CERP/travelrag/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_ContextErrors(t *testing.T) {
	// Given: deadline and cancellation errors, wrapped and bare
	tests := []struct {
		name    string
		err     error
		message string
	}{
		{"deadline", context.DeadlineExceeded, "Request timed out."},
		{"canceled", context.Canceled, "Request was canceled."},
		{"wrapped deadline", fmt.Errorf("retrieve: %w", context.DeadlineExceeded), "Request timed out."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// When: mapping
			got := MapError(tt.err)

			// Then: timeout code with a readable message
			require.NotNil(t, got)
			assert.Equal(t, ErrCodeTimeout, got.Code)
			assert.Equal(t, tt.message, got.Message)
		})
	}
}

func TestMapError_Sentinels(t *testing.T) {
	assert.Equal(t, ErrCodeMethodNotFound, MapError(ErrToolNotFound).Code)
	assert.Equal(t, ErrCodeInvalidParams, MapError(ErrInvalidParams).Code)
	assert.Equal(t, ErrCodeInternalError, MapError(errors.New("boom")).Code)
}

func TestMapError_PassesThroughMCPError(t *testing.T) {
	// Given: an MCP error wrapped by a caller
	orig := NewInvalidParamsError("top_k must be a number")
	wrapped := fmt.Errorf("call: %w", orig)

	// When: mapping
	got := MapError(wrapped)

	// Then: the original is returned unchanged
	assert.Same(t, orig, got)
}

// =============================================================================
// AppError mapping
// =============================================================================

func TestMapError_AppErrorCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"snapshot missing", apperrors.New(apperrors.ErrCodeSnapshotMissing, "no snapshot", nil), ErrCodeIndexNotFound},
		{"corrupt index", apperrors.New(apperrors.ErrCodeCorruptIndex, "bad snapshot", nil), ErrCodeIndexNotFound},
		{"embedding failed", apperrors.New(apperrors.ErrCodeEmbeddingFailed, "embed", nil), ErrCodeServiceFailed},
		{"network", apperrors.New(apperrors.ErrCodeNetworkTimeout, "slow", nil), ErrCodeTimeout},
		{"empty query", apperrors.New(apperrors.ErrCodeQueryEmpty, "query is empty", nil), ErrCodeInvalidParams},
		{"config", apperrors.ConfigError("bad config", nil), ErrCodeInternalError},
		{"internal", apperrors.New(apperrors.ErrCodeInternal, "oops", nil), ErrCodeInternalError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, MapError(tt.err).Code)
		})
	}
}

func TestMapError_AppErrorIncludesSuggestion(t *testing.T) {
	// Given: an error with a suggestion, wrapped
	err := fmt.Errorf("serve: %w", apperrors.New(apperrors.ErrCodeSnapshotMissing, "No index found.", nil).
		WithSuggestion("Run 'travelrag index' first."))

	// When: mapping
	got := MapError(err)

	// Then: message and suggestion are joined
	assert.Equal(t, "No index found. Run 'travelrag index' first.", got.Message)
}

func TestMCPError_Error(t *testing.T) {
	err := &MCPError{Code: ErrCodeInvalidParams, Message: "bad"}
	assert.Equal(t, "MCP error -32602: bad", err.Error())
}

func TestNewMethodNotFoundError(t *testing.T) {
	err := NewMethodNotFoundError("search")
	assert.Equal(t, ErrCodeMethodNotFound, err.Code)
	assert.Contains(t, err.Message, "'search'")
}
