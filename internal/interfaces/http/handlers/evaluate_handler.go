package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sumaiwise/sumaiwise/internal/application/evaluation"
	"github.com/sumaiwise/sumaiwise/internal/infrastructure/monitoring/logging"
	"github.com/sumaiwise/sumaiwise/pkg/errors"
)

// Evaluator produces a full report for one listing payload.  Satisfied by
// evaluation.Service.
type Evaluator interface {
	Evaluate(ctx context.Context, payload map[string]interface{}) (*evaluation.Report, error)
}

// EvaluateHandler serves listing evaluation requests.
type EvaluateHandler struct {
	svc    Evaluator
	logger logging.Logger
}

// NewEvaluateHandler creates an EvaluateHandler.
func NewEvaluateHandler(svc Evaluator, logger logging.Logger) *EvaluateHandler {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &EvaluateHandler{svc: svc, logger: logger.Named("http.evaluate")}
}

// Evaluate handles POST /api/v1/evaluate.  The body is the raw listing
// payload as a JSON object; validation of its fields happens inside the
// evaluation service against the active spec bundle.
func (h *EvaluateHandler) Evaluate(c *gin.Context) {
	var payload map[string]interface{}
	if err := c.ShouldBindJSON(&payload); err != nil {
		writeError(c, http.StatusBadRequest, errors.CodeInputInvalid, "request body must be a JSON object")
		return
	}

	report, err := h.svc.Evaluate(c.Request.Context(), payload)
	if err != nil {
		if errors.IsServerError(errors.GetCode(err)) {
			h.logger.Error("evaluation failed",
				logging.Err(err),
				logging.String("code", errors.GetCode(err).String()),
			)
		}
		writeAppError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}
