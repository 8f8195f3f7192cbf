package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sumaiwise/sumaiwise/internal/specstore"
	"github.com/sumaiwise/sumaiwise/pkg/errors"
)

// SpecProvider exposes the currently active spec bundle.  Satisfied by
// specstore.Store.
type SpecProvider interface {
	Current() *specstore.Bundle
}

// SpecHandler reports which spec bundle version is serving evaluations.
type SpecHandler struct {
	specs SpecProvider
}

// NewSpecHandler creates a SpecHandler.
func NewSpecHandler(specs SpecProvider) *SpecHandler {
	return &SpecHandler{specs: specs}
}

// SpecInfoResponse describes the active spec bundle.
type SpecInfoResponse struct {
	Version                string `json:"version"`
	GeneratedAt            string `json:"generated_at,omitempty"`
	FeeInclusiveBenchmarks bool   `json:"fee_inclusive_benchmarks"`
}

// Info handles GET /api/v1/spec/version.
func (h *SpecHandler) Info(c *gin.Context) {
	bundle := h.specs.Current()
	if bundle == nil {
		writeError(c, http.StatusServiceUnavailable, errors.CodeSpecBundleNotFound, "no spec bundle loaded")
		return
	}

	c.JSON(http.StatusOK, SpecInfoResponse{
		Version:                bundle.Version,
		GeneratedAt:            bundle.GeneratedAt,
		FeeInclusiveBenchmarks: bundle.FeeInclusiveBenchmarks,
	})
}
