package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderProducesClassifiedError(t *testing.T) {
	err := NewError(CategoryRender, "artifact write failed").
		WithContext("workspace", "abc123").
		Build()

	assert.Equal(t, CategoryRender, err.Category())
	assert.Equal(t, SeverityError, err.Severity())
	assert.Equal(t, "artifact write failed", err.Message())

	ws, ok := err.Context().GetString("workspace")
	require.True(t, ok)
	assert.Equal(t, "abc123", ws)
}

func TestWrapErrorUnwraps(t *testing.T) {
	cause := fmt.Errorf("disk full")
	err := WrapError(cause, CategoryFileSystem, "workspace clone failed").Build()

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), "[filesystem:error]")
}

func TestConvenienceConstructors(t *testing.T) {
	tests := []struct {
		name     string
		err      *ClassifiedError
		category ErrorCategory
		fatal    bool
	}{
		{"config", ConfigError("bad root").Build(), CategoryConfig, true},
		{"validation", ValidationError("nil store").Build(), CategoryValidation, true},
		{"not found", NotFoundError("no such file").Build(), CategoryNotFound, false},
		{"path", PathError("escapes workspace").Build(), CategoryPath, false},
		{"template", TemplateError("bad syntax").Build(), CategoryTemplate, false},
		{"render", RenderError("malformed markup").Build(), CategoryRender, false},
		{"filesystem", FileSystemError("rmdir failed").Build(), CategoryFileSystem, false},
		{"daemon", DaemonError("already running").Build(), CategoryDaemon, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category())
			assert.Equal(t, tt.fatal, tt.err.IsFatal())
		})
	}
}

func TestCategoryOf(t *testing.T) {
	assert.Equal(t, CategoryPath, CategoryOf(PathError("escape").Build()))
	assert.Equal(t, CategoryInternal, CategoryOf(errors.New("plain")))
}

func TestIsComparesCategoryAndMessage(t *testing.T) {
	a := NotFoundError("missing").Build()
	b := NotFoundError("missing").WithContext("path", "x").Build()
	c := NotFoundError("other").Build()

	assert.True(t, errors.Is(a, b))
	assert.False(t, errors.Is(a, c))
}

func TestSweepableRetryStrategy(t *testing.T) {
	err := FileSystemError("delete failed").Sweepable().Build()
	assert.Equal(t, RetryNextSweep, err.RetryStrategy())
}
