package apperr_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"

	"github.com/relux-laundry/api/internal/apperr"
)

func TestKindOf(t *testing.T) {
	sentinel := apperr.Validation("Insufficient wallet balance")

	tests := []struct {
		name string
		err  error
		want apperr.Kind
	}{
		{"direct", apperr.NotFound("Order not found"), apperr.KindNotFound},
		{"wrapped with fmt", fmt.Errorf("debit: %w", sentinel), apperr.KindValidation},
		{"no rows", fmt.Errorf("get order: %w", pgx.ErrNoRows), apperr.KindNotFound},
		{"plain", errors.New("boom"), apperr.KindInternal},
		{"forbidden", apperr.Forbidden("Not authorized"), apperr.KindForbidden},
		{"conflict", apperr.Conflict("Phone number already registered"), apperr.KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apperr.KindOf(tt.err))
		})
	}
}

func TestMessageOf(t *testing.T) {
	err := fmt.Errorf("cancel: %w", apperr.Validation("Cannot cancel order in its current status"))
	assert.Equal(t, "Cannot cancel order in its current status", apperr.MessageOf(err, "Server Error"))
	assert.Equal(t, "Server Error", apperr.MessageOf(errors.New("db down"), "Server Error"))
}

func TestErrorUnwrap(t *testing.T) {
	inner := errors.New("connection reset")
	err := apperr.Wrap(apperr.KindInternal, "store failed", inner)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "store failed: connection reset", err.Error())
}
