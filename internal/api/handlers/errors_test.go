package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"auction-house/internal/domain"

	"github.com/stretchr/testify/require"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		err     error
		status  int
		message string
	}{
		{fmt.Errorf("%w: title is required", domain.ErrValidation), http.StatusBadRequest, "validation failed: title is required"},
		{fmt.Errorf("%w: auction a1", domain.ErrNotFound), http.StatusNotFound, "not found: auction a1"},
		{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
		{domain.ErrStateConflict, http.StatusConflict, "state conflict"},
		{fmt.Errorf("%w: insert bid: %w", domain.ErrPersistence, errors.New("disk full")), http.StatusInternalServerError, "internal server error"},
		{errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tt := range tests {
		status, message := mapError(tt.err)
		require.Equal(t, tt.status, status, tt.err.Error())
		require.Equal(t, tt.message, message)
	}
}
