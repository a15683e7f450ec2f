package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorString(t *testing.T) {
	err := New(ErrCodeNoItems, "need at least %d item", 1)
	assert.Equal(t, "NO_ITEMS: need at least 1 item", err.Error())

	wrapped := Wrap(ErrCodeFileNotFound, fmt.Errorf("boom"), "open %s", "a.csv")
	assert.Equal(t, "FILE_NOT_FOUND: open a.csv: boom", wrapped.Error())
}

func TestIsAndGetCode(t *testing.T) {
	cause := errors.New("inner")
	err := fmt.Errorf("outer: %w", Wrap(ErrCodeInvalidConfig, cause, "bad field"))

	assert.True(t, Is(err, ErrCodeInvalidConfig))
	assert.False(t, Is(err, ErrCodeNoItems))
	assert.Equal(t, ErrCodeInvalidConfig, GetCode(err))
	assert.True(t, errors.Is(err, cause))

	assert.Equal(t, Code(""), GetCode(cause))
	assert.False(t, Is(nil, ErrCodeInternal))
}

func TestUserMessage(t *testing.T) {
	assert.Equal(t, "canvas 1x1", UserMessage(New(ErrCodeCanvasTooSmall, "canvas %dx%d", 1, 1)))
	assert.Equal(t, "plain", UserMessage(errors.New("plain")))
}
