package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/internal/dto"
	"github.com/noah-isme/sma-report-card/internal/grading"
	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

const (
	componentMidTerm = "midTerm"
	componentEndTerm = "endTerm"
)

// GradingService exposes the grade calculator and remark generator to callers.
type GradingService struct {
	remarks   *grading.RemarkGenerator
	defaults  grading.Weights
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradingService constructs the grading service. defaults is the configured
// midTerm/endTerm weight map.
func NewGradingService(remarks *grading.RemarkGenerator, defaults map[string]float64, validate *validator.Validate, logger *zap.Logger) *GradingService {
	if remarks == nil {
		remarks = grading.NewRemarkGenerator(false)
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := grading.Weights{MidTerm: 0.2, EndTerm: 0.8}
	if mid, ok := defaults[componentMidTerm]; ok {
		w.MidTerm = mid
	}
	if end, ok := defaults[componentEndTerm]; ok {
		w.EndTerm = end
	}
	return &GradingService{remarks: remarks, defaults: w, validator: validate, logger: logger}
}

// Calculate computes a final grade either from a mid-term/end-term pair or from
// a component score map.
func (s *GradingService) Calculate(ctx context.Context, req dto.CalculateGradeRequest) (*dto.CalculateGradeResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grade payload")
	}

	var (
		final grading.FinalGrade
		err   error
	)
	if len(req.Scores) > 0 {
		info := grading.DefaultAssessment(map[string]float64{
			componentMidTerm: s.defaults.MidTerm,
			componentEndTerm: s.defaults.EndTerm,
		})
		if req.AssessmentInfo != nil {
			info = *req.AssessmentInfo
		}
		final, err = grading.WeightedScore(req.Scores, info)
	} else {
		if req.MidTerm == nil || req.EndTerm == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "midTerm and endTerm are required without scores")
		}
		weights := s.defaults
		if req.Weights != nil {
			weights = grading.Weights{MidTerm: req.Weights.MidTerm, EndTerm: req.Weights.EndTerm}
		}
		final, err = grading.CalculateFinalGrade(*req.MidTerm, *req.EndTerm, weights)
	}
	if err != nil {
		if errors.Is(err, appErrors.ErrNotAssessed) {
			return &dto.CalculateGradeResponse{
				LetterGrade: models.GradeNotAssessed,
				Remark:      grading.NotAssessedRemark,
			}, nil
		}
		return nil, err
	}

	s.logger.Debug("grade calculated",
		zap.String("subject", req.SubjectName),
		zap.Float64("percentage", final.Percentage),
		zap.String("grade", string(final.LetterGrade)),
	)

	return &dto.CalculateGradeResponse{
		Percentage:  final.Percentage,
		LetterGrade: final.LetterGrade,
		Remark:      s.remarks.GenerateSubjectRemark(final.LetterGrade, final.Percentage, req.SubjectName),
	}, nil
}
