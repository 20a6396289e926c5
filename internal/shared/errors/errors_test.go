package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("message without cause", func(t *testing.T) {
		err := Validation("amount is required")
		assert.Equal(t, "amount is required", err.Message)
		assert.Contains(t, err.Error(), "amount is required")
	})

	t.Run("wraps cause", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Internal("database unavailable", cause)
		assert.ErrorIs(t, err, cause)
	})

	t.Run("unwraps to sentinel", func(t *testing.T) {
		assert.ErrorIs(t, NotFound("payment"), ErrNotFound)
		assert.ErrorIs(t, AmountMismatch("callback amount differs"), ErrAmountMismatch)
		assert.ErrorIs(t, ConcurrencyConflict("stale version"), ErrConflict)
		assert.ErrorIs(t, GatewayUnavailable("gateway down", errors.New("timeout")), ErrGatewayUnavailable)
	})
}

func TestGetStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error not found", NotFound("payment"), http.StatusNotFound},
		{"app error validation", Validation("bad"), http.StatusBadRequest},
		{"app error amount mismatch", AmountMismatch("bad"), http.StatusUnprocessableEntity},
		{"app error conflict", ConcurrencyConflict("stale"), http.StatusConflict},
		{"app error gateway", GatewayUnavailable("down", errors.New("x")), http.StatusBadGateway},
		{"wrapped sentinel", fmt.Errorf("handle callback: %w", ErrNotFound), http.StatusNotFound},
		{"wrapped conflict", fmt.Errorf("update: %w", ErrConflict), http.StatusConflict},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetStatusCode(tt.err))
		})
	}
}
