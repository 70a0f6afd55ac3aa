package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorConstructors(t *testing.T) {
	assert.Equal(t, &Error{Kind: "not_found", Name: "not_found", Reason: "missing", Status: 404}, NotFound(""))
	assert.Equal(t, "deleted", NotFound("deleted").Reason)
	assert.Equal(t, &Error{Kind: "conflict", Name: "conflict", Reason: "Document update conflict", Status: 409}, Conflict(""))
	assert.Equal(t, 400, BadRequest("nope").Status)
	assert.Equal(t, 500, DocValidation("nope").Status)
	assert.Equal(t, "database is closed", ErrClosed().Reason)
}

func TestNormalize(t *testing.T) {
	assert.Nil(t, Normalize(nil))

	// structured errors pass through unchanged, wrapped or not
	conflict := Conflict("")
	assert.Same(t, conflict, Normalize(conflict))
	assert.Same(t, conflict, Normalize(fmt.Errorf("commit: %w", conflict)))

	// structural validation failures are recognized by message
	normalized := Normalize(errors.New("Bad special document member: _zing"))
	assert.Equal(t, KindDocValidation, normalized.Kind)
	assert.Equal(t, 500, normalized.Status)

	// anything else is a bad request
	normalized = Normalize(errors.New("boom"))
	assert.Equal(t, KindBadRequest, normalized.Kind)
	assert.Equal(t, "boom", normalized.Reason)
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound(""))
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(err, KindConflict))
	assert.False(t, IsKind(errors.New("plain"), KindNotFound))
	assert.False(t, IsKind(nil, KindNotFound))

	var target *Error
	require.ErrorAs(t, err, &target)
	assert.Equal(t, 404, target.Status)
}
