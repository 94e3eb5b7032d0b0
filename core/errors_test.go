package core

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestErrorKinds(t *testing.T) {
	notFound := NewNotFoundError("class not found")
	assert.True(t, IsNotFound(notFound))
	assert.True(t, IsNotFound(errors.Wrap(notFound, "getting class")))
	assert.False(t, IsNotFound(errors.New("class not found")))

	shutdown := NewShutdownError("rolling back transaction")
	assert.True(t, IsShutdown(errors.Wrap(shutdown, "updating assignment")))
	assert.False(t, IsShutdown(notFound))

	verr := NewValidationError(errors.New("invalid"), FieldError{Field: "cohortId", Error: "cohort not found"})
	assert.EqualError(t, verr, "invalid")
	assert.Empty(t, ValidationError{}.Error())
}
