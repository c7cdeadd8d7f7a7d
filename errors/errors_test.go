package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrap(t *testing.T) {
	original := New("original")
	wrapped := Wrap(original, "wrapped")

	assert.Contains(t, wrapped.Error(), "wrapped")
	assert.Contains(t, wrapped.Error(), "original")
	assert.True(t, Is(wrapped, original))
}

func TestWithHint(t *testing.T) {
	err := WithHint(ErrInvalidArgs, "pass nil to match any argument list")

	hints := GetAllHints(err)
	require.Len(t, hints, 1)
	assert.Equal(t, "pass nil to match any argument list", hints[0])
	assert.True(t, Is(err, ErrInvalidArgs))
}

func TestValidationSentinelsAreInvalidRequests(t *testing.T) {
	for _, sentinel := range []error{
		ErrInvalidTenant,
		ErrInvalidHook,
		ErrInvalidArgs,
		ErrInvalidLimit,
		ErrNotRecurring,
	} {
		t.Run(sentinel.Error(), func(t *testing.T) {
			wrapped := Wrapf(sentinel, "query for site %d", 3)

			assert.True(t, Is(wrapped, sentinel))
			assert.True(t, IsInvalidRequestError(wrapped))
			assert.False(t, IsNotFoundError(wrapped))
			assert.False(t, Is(wrapped, ErrConflict))
		})
	}
}

func TestSentinelsAreDistinct(t *testing.T) {
	assert.False(t, Is(ErrInvalidHook, ErrInvalidTenant))
	assert.False(t, Is(ErrInvalidArgs, ErrInvalidHook))
	assert.False(t, Is(ErrInvalidLimit, ErrInvalidArgs))
}

func TestStillRunningIsConflict(t *testing.T) {
	err := Wrap(ErrStillRunning, "delete job 12")

	assert.True(t, IsStillRunningError(err))
	assert.True(t, Is(err, ErrConflict))
	assert.False(t, IsInvalidRequestError(err))
}

func TestNewNotFoundError(t *testing.T) {
	err := NewNotFoundError("job %d", 42)

	assert.True(t, IsNotFoundError(err))
	assert.Contains(t, err.Error(), "job 42")
	assert.False(t, IsNotFoundError(nil))
}

func TestNewInvalidRequestError(t *testing.T) {
	err := NewInvalidRequestError("bad timestamp range %s", "[5, 1]")

	assert.True(t, IsInvalidRequestError(err))
	assert.Contains(t, err.Error(), "bad timestamp range [5, 1]")
}

