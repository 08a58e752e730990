package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodedErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      *CodedError
		wantKind Kind
		wantCode string
	}{
		{"not authorized", ErrNotAuthorized, KindAuthorization, "ERR-NOT-AUTHORIZED"},
		{"expert already verified", ErrExpertAlreadyVerified, KindConflict, "ERR-EXPERT-ALREADY-VERIFIED"},
		{"farm not found", ErrFarmNotFound, KindNotFound, "ERR-FARM-NOT-FOUND"},
		{"invalid weather", ErrInvalidWeatherData, KindInvalidInput, "ERR-INVALID-WEATHER-DATA"},
		{"analysis not found", ErrAnalysisNotFound, KindNotFound, "ERR-ANALYSIS-NOT-FOUND"},
		{"recommendation not found", ErrRecommendationNotFound, KindNotFound, "ERR-RECOMMENDATION-NOT-FOUND"},
		{"already rated", ErrAlreadyRated, KindConflict, "ERR-ALREADY-RATED"},
		{"invalid rating", ErrInvalidRating, KindInvalidInput, "ERR-INVALID-RATING"},
		{"invariant", ErrInvariantViolated, KindInternal, "ERR-INVARIANT-VIOLATED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := NewOperationError("op", fmt.Errorf("context: %w", tt.err))

			assert.Equal(t, tt.wantKind, KindOf(wrapped))
			assert.Equal(t, tt.wantCode, CodeOf(wrapped))
			assert.True(t, errors.Is(wrapped, tt.err), "should unwrap to sentinel")
		})
	}
}

func TestKindOf_Uncoded(t *testing.T) {
	err := errors.New("disk full")

	assert.Equal(t, KindInternal, KindOf(err))
	assert.Equal(t, "ERR-INTERNAL", CodeOf(err))
	assert.Equal(t, "internal", KindOf(nil).String())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "authorization", KindAuthorization.String())
	assert.Equal(t, "not_found", KindNotFound.String())
	assert.Equal(t, "conflict", KindConflict.String())
	assert.Equal(t, "invalid_input", KindInvalidInput.String())
}

func TestOperationError(t *testing.T) {
	err := NewOperationError("SubmitFeedback", ErrAlreadyRated)

	assert.Equal(t, "SubmitFeedback: recommendation already rated", err.Error())
	assert.Equal(t, "SubmitFeedback", err.Operation)
	assert.True(t, errors.Is(err, ErrAlreadyRated))
}

func TestValidationError(t *testing.T) {
	t.Run("single error", func(t *testing.T) {
		err := NewValidationError("Template", nil)
		err.AddError("name is required")

		assert.Equal(t, "validation error for Template: name is required", err.Error())
		assert.True(t, err.HasErrors())
		assert.True(t, errors.Is(err, ErrInvalidInput))
		assert.Equal(t, KindInvalidInput, KindOf(err))
	})

	t.Run("multiple errors", func(t *testing.T) {
		err := NewValidationError("Farm", nil)
		err.AddError("farm size must be positive")
		err.AddError("latitude out of range")

		assert.Equal(t, "validation errors for Farm: [farm size must be positive latitude out of range]", err.Error())
		assert.Len(t, err.Errors, 2)
	})

	t.Run("custom cause", func(t *testing.T) {
		err := NewValidationError("Farm", ErrInvalidCropType)
		err.AddError(`unknown crop type "mayze"`)

		assert.True(t, errors.Is(err, ErrInvalidCropType))
		assert.Equal(t, "ERR-INVALID-CROP-TYPE", CodeOf(err))
	})

	t.Run("no errors", func(t *testing.T) {
		err := NewValidationError("Empty", nil)
		assert.False(t, err.HasErrors())
	})
}
