package models_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmrouter/core/pkg/models"
)

func TestNewErrorAndError(t *testing.T) {
	err := models.NewError(models.CodeInvalidParam, "bad mode")
	assert.Equal(t, models.CodeInvalidParam, err.Code)
	assert.Equal(t, "bad mode", err.Error())
}

func TestAsDomainErrorUnwrapsWrappedError(t *testing.T) {
	inner := models.NewError(models.CodeNotFound, "run missing")
	wrapped := fmt.Errorf("handling request: %w", inner)

	de, ok := models.AsDomainError(wrapped)
	require.True(t, ok)
	assert.Equal(t, models.CodeNotFound, de.Code)
}

func TestAsDomainErrorRejectsPlainError(t *testing.T) {
	_, ok := models.AsDomainError(assert.AnError)
	assert.False(t, ok)
}

func TestErrNoModelIsADomainError(t *testing.T) {
	de, ok := models.AsDomainError(models.ErrNoModel)
	require.True(t, ok)
	assert.Equal(t, models.CodeNoModel, de.Code)
}
