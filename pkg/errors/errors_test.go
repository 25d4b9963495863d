package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppErrorWrapping(t *testing.T) {
	cause := errors.New("connection refused")
	appErr := ErrRepository(cause)

	assert.Equal(t, CodeRepositoryError, appErr.Code)
	assert.ErrorIs(t, appErr, cause)
	assert.Contains(t, appErr.Error(), "connection refused")
}

func TestErrInvalidTransitionDetails(t *testing.T) {
	appErr := ErrInvalidTransition("delivered", "shipped")

	assert.Equal(t, CodeInvalidTransition, appErr.Code)
	assert.Equal(t, http.StatusConflict, appErr.HTTPStatus)
	assert.Equal(t, "delivered", appErr.Details["from"])
	assert.Equal(t, "shipped", appErr.Details["to"])
}

func TestErrRefundExceedsBalanceDetails(t *testing.T) {
	appErr := ErrRefundExceedsBalance(30, 12.5)

	assert.Equal(t, CodeRefundExceedsBalance, appErr.Code)
	assert.Equal(t, http.StatusUnprocessableEntity, appErr.HTTPStatus)
	assert.Equal(t, "30.00", appErr.Details["requested"])
	assert.Equal(t, "12.50", appErr.Details["remaining"])
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error", nil, ""},
		{"already an AppError", ErrNotFound("order"), CodeNotFound},
		{"wrapped AppError", fmt.Errorf("outer: %w", ErrConflict("stale")), CodeConflict},
		{"plain error", errors.New("boom"), CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := FromError(tt.err)
			if tt.err == nil {
				assert.Nil(t, appErr)
				return
			}
			assert.Equal(t, tt.wantCode, appErr.Code)
		})
	}
}

func TestHasCode(t *testing.T) {
	err := fmt.Errorf("service: %w", ErrInvalidOrderState("order is cancelled"))

	assert.True(t, HasCode(err, CodeInvalidOrderState))
	assert.False(t, HasCode(err, CodeNotFound))
	assert.False(t, HasCode(errors.New("plain"), CodeNotFound))
}
