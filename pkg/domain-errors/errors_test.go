package domainerrors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHasCode(t *testing.T) {
	base := errors.New("connection reset")
	inner := Wrap(base, CodeUnavailable, "store unavailable")
	outer := Wrap(inner, CodeInternal, "commit failed")

	assert.True(t, HasCode(outer, CodeInternal))
	assert.True(t, HasCode(outer, CodeUnavailable))
	assert.False(t, HasCode(outer, CodeConflict))
	assert.False(t, HasCode(base, CodeInternal))
	assert.True(t, errors.Is(outer, base))
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeBadRequest, CodeOf(New(CodeBadRequest, "bad")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Equal(t, "bad", MessageOf(New(CodeBadRequest, "bad")))
	assert.Empty(t, MessageOf(errors.New("plain")))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, CodeInternal, "nothing"))
}

func TestErrorString(t *testing.T) {
	err := Wrap(errors.New("boom"), CodeInternal, "commit failed")
	assert.Equal(t, "commit failed: boom", err.Error())
	assert.Equal(t, "plain", New(CodeBadRequest, "plain").Error())
}
