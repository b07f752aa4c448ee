package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCloneMatchesTemplate(t *testing.T) {
	err := Clone(ErrNotFound, "feedback not found")

	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrAlreadyProcessed))
	assert.Equal(t, "feedback not found", err.Message)
	assert.Equal(t, "resource not found", ErrNotFound.Message)
}

func TestIsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("restore: %w", Clone(ErrPermissionDenied, "review required"))

	assert.True(t, errors.Is(err, ErrPermissionDenied))
	assert.Equal(t, ErrPermissionDenied.Code, CodeOf(err))
}

func TestFromErrorWrapsPlainErrors(t *testing.T) {
	appErr := FromError(errors.New("boom"))

	assert.Equal(t, ErrInternal.Code, appErr.Code)
	assert.Equal(t, "internal server error: boom", appErr.Error())
	assert.Equal(t, "", CodeOf(nil))
}
