package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-report-card/internal/dto"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
	"github.com/noah-isme/sma-report-card/pkg/response"
)

type gradeCalculator interface {
	Calculate(ctx context.Context, req dto.CalculateGradeRequest) (*dto.CalculateGradeResponse, error)
}

// GradeHandler exposes grade calculation.
type GradeHandler struct {
	grading gradeCalculator
}

// NewGradeHandler constructs the handler.
func NewGradeHandler(grading gradeCalculator) *GradeHandler {
	return &GradeHandler{grading: grading}
}

// Calculate godoc
// @Summary Calculate a subject grade
// @Tags Grades
// @Accept json
// @Produce json
// @Param payload body dto.CalculateGradeRequest true "Scores"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /grades/calculate [post]
func (h *GradeHandler) Calculate(c *gin.Context) {
	var req dto.CalculateGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	result, err := h.grading.Calculate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
