package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_ChainHelpers(t *testing.T) {
	base := NewInsufficientStock("p-1", 2, 4, 6)
	wrapped := fmt.Errorf("register sale: %w", base)

	appErr, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeInsufficientStock, appErr.Code)
	assert.Equal(t, int64(4), appErr.Details["available"])
	assert.Equal(t, int64(6), appErr.Details["requested"])
	assert.Equal(t, 2, appErr.Details["line"])

	assert.True(t, IsCode(wrapped, CodeInsufficientStock))
	assert.False(t, IsNotFound(wrapped))
	assert.Equal(t, http.StatusUnprocessableEntity, GetHTTPStatus(wrapped))
	assert.Equal(t, CodeInsufficientStock, CodeOf(wrapped))
}

func TestAppError_UnknownErrorMapsToInternal(t *testing.T) {
	err := errors.New("connection reset")

	assert.False(t, IsAppError(err))
	assert.Equal(t, http.StatusInternalServerError, GetHTTPStatus(err))
	assert.Equal(t, CodeInternal, CodeOf(err))
}

func TestAppError_WithCauseIsUnwrappable(t *testing.T) {
	cause := errors.New("unique_violation")
	err := NewDuplicateDocument("v-1", "V-20250101-0001").WithCause(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), CodeDuplicateDocument)
	assert.Contains(t, err.Error(), "unique_violation")
	assert.Equal(t, http.StatusConflict, err.HTTPStatus)
}

func TestAppError_SaleTaxonomyStatuses(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"not found", NewNotFound("product", "p-1"), CodeNotFound, http.StatusNotFound},
		{"empty lines", NewEmptyLineSet(), CodeEmptyLineSet, http.StatusBadRequest},
		{"price changed", NewPriceChanged("p-1", 1, "10.00", "9.50"), CodePriceChanged, http.StatusUnprocessableEntity},
		{"bad tax", NewInvalidTaxPercentage(3, "120"), CodeInvalidTaxPercentage, http.StatusUnprocessableEntity},
		{"duplicate document", NewDuplicateDocument("v-1", "A-1"), CodeDuplicateDocument, http.StatusConflict},
		{"generation exhausted", NewGenerationExhausted("v-1", 10), CodeGenerationExhausted, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
		})
	}
}

func TestAppError_WithDetailInitialisesMap(t *testing.T) {
	err := NewValidation("quantity must be positive").
		WithDetail("field", "lines").
		WithDetail("line", 2)

	assert.Equal(t, "lines", err.Details["field"])
	assert.Equal(t, 2, err.Details["line"])
}
