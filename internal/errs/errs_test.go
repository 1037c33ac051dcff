package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigErrorMatchesClass(t *testing.T) {
	err := New(SampleRateMismatch, "sample %q at %d Hz", "hall", 48000)
	require.ErrorIs(t, err, ErrConfig)
	assert.Equal(t, `sampling rate mismatch: sample "hall" at 48000 Hz`, err.Error())

	wrapped := fmt.Errorf("build convolver: %w", err)
	code, ok := CodeOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, SampleRateMismatch, code)
}

func TestWrapUnwraps(t *testing.T) {
	base := errors.New("boom")
	err := Wrap(MissingSample, "kick", base)
	assert.ErrorIs(t, err, base)
	assert.ErrorIs(t, err, ErrConfig)

	_, ok := CodeOf(base)
	assert.False(t, ok)
}
