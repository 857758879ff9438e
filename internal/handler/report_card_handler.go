package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/internal/dto"
	"github.com/noah-isme/sma-report-card/internal/models"
	"github.com/noah-isme/sma-report-card/internal/service"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
	"github.com/noah-isme/sma-report-card/pkg/logger"
	"github.com/noah-isme/sma-report-card/pkg/response"
)

type reportCardProvider interface {
	Generate(ctx context.Context, req dto.GenerateReportCardRequest, actor models.Actor) (*models.ReportCard, error)
	Get(ctx context.Context, id string) (*models.ReportCard, error)
}

type reportCardRenderer interface {
	ReportCardPDF(card *models.ReportCard) ([]byte, error)
}

// ReportCardHandler exposes report card generation and retrieval.
type ReportCardHandler struct {
	cards    reportCardProvider
	renderer reportCardRenderer
	logger   *zap.Logger
}

// NewReportCardHandler constructs handler.
func NewReportCardHandler(cards reportCardProvider, renderer reportCardRenderer, logger *zap.Logger) *ReportCardHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportCardHandler{cards: cards, renderer: renderer, logger: logger}
}

// Generate godoc
// @Summary Generate a report card
// @Description Assembles the report card for a student and term. Set overwrite to regenerate an existing card.
// @Tags ReportCards
// @Accept json
// @Produce json
// @Param payload body dto.GenerateReportCardRequest true "Report card request"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /report-cards [post]
func (h *ReportCardHandler) Generate(c *gin.Context) {
	var req dto.GenerateReportCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	card, err := h.cards.Generate(c.Request.Context(), req, actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, card)
}

// Get godoc
// @Summary Get a report card
// @Tags ReportCards
// @Produce json
// @Param id path string true "Report card ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /report-cards/{id} [get]
func (h *ReportCardHandler) Get(c *gin.Context) {
	card, err := h.cards.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, card)
}

// PDF godoc
// @Summary Download a report card as PDF
// @Tags ReportCards
// @Produce application/pdf
// @Param id path string true "Report card ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /report-cards/{id}/pdf [get]
func (h *ReportCardHandler) PDF(c *gin.Context) {
	card, err := h.cards.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	data, err := h.renderer.ReportCardPDF(card)
	if err != nil {
		h.logger.Error("report card pdf render failed",
			zap.String("request_id", logger.RequestID(c)),
			zap.String("report_card_id", card.ReportCardID),
			zap.Error(err))
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", service.ReportCardFilename(card)))
	c.Data(http.StatusOK, "application/pdf", data)
}
