package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_IsMatchesKindAndCode(t *testing.T) {
	sentinel := NotFound("appointment_not_found", "appointment not found")
	wrapped := fmt.Errorf("load appointment: %w", sentinel.WithDetails("x"))

	assert.True(t, errors.Is(wrapped, sentinel))
	assert.True(t, errors.Is(wrapped, ErrNotFound))
	assert.False(t, errors.Is(wrapped, ErrConflict))
	assert.False(t, errors.Is(wrapped, NotFound("profile_not_found", "")))
}

func TestAs(t *testing.T) {
	err := fmt.Errorf("outer: %w", Conflict("overlap", "overlaps"))

	e, ok := As(err)
	require.True(t, ok)
	assert.Equal(t, KindConflict, e.Kind)
	assert.Equal(t, "overlaps", e.Error())

	_, ok = As(errors.New("plain"))
	assert.False(t, ok)
}
