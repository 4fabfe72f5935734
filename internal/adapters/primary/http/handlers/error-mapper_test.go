package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"mito-gallery-service/internal/core/domain"

	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{name: "not found", err: domain.ErrEntityNotFound, expected: http.StatusNotFound},
		{name: "bad neuron", err: domain.ErrInvalidNeuronID, expected: http.StatusBadRequest},
		{name: "bad page", err: fmt.Errorf("wrap: %w", domain.ErrInvalidPageParam), expected: http.StatusBadRequest},
		{name: "cancelled", err: context.Canceled, expected: 499},
		{name: "render timeout", err: &domain.RenderError{EntityID: 1, Timeout: true}, expected: http.StatusGatewayTimeout},
		{name: "render failed", err: &domain.RenderError{EntityID: 1, Err: errors.New("x")}, expected: http.StatusInternalServerError},
		{name: "unknown", err: errors.New("boom"), expected: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, statusFor(tt.err))
		})
	}
}

func TestPublicMessage(t *testing.T) {
	assert.Equal(t, "internal server error", publicMessage(errors.New("pq: secret"), http.StatusInternalServerError))

	cacheErr := fmt.Errorf("%w: disk full", domain.ErrCacheIO)
	assert.Equal(t, cacheErr.Error(), publicMessage(cacheErr, http.StatusInternalServerError))

	assert.Equal(t, domain.ErrEntityNotFound.Error(), publicMessage(domain.ErrEntityNotFound, http.StatusNotFound))
}
