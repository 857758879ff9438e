package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-report-card/internal/dto"
	"github.com/noah-isme/sma-report-card/internal/grading"
	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

func floatPtr(v float64) *float64 { return &v }

func newGradingServiceForTest() *GradingService {
	return NewGradingService(grading.NewRemarkGenerator(true), map[string]float64{"midTerm": 0.2, "endTerm": 0.8}, nil, nil)
}

func TestGradingServiceCalculateMidEnd(t *testing.T) {
	svc := newGradingServiceForTest()

	res, err := svc.Calculate(context.Background(), dto.CalculateGradeRequest{
		SubjectName: "Mathematics",
		MidTerm:     floatPtr(80),
		EndTerm:     floatPtr(90),
	})
	require.NoError(t, err)
	assert.InDelta(t, 88.0, res.Percentage, 0.001)
	assert.Equal(t, models.GradeA, res.LetterGrade)
	assert.Contains(t, grading.RemarkCandidates(models.GradeA), res.Remark)

	res, err = svc.Calculate(context.Background(), dto.CalculateGradeRequest{
		MidTerm: floatPtr(60),
		EndTerm: floatPtr(40),
		Weights: &dto.WeightsInput{MidTerm: 0.5, EndTerm: 0.5},
	})
	require.NoError(t, err)
	assert.InDelta(t, 50.0, res.Percentage, 0.001)
	assert.Equal(t, models.GradeC, res.LetterGrade)
}

func TestGradingServiceCalculateScores(t *testing.T) {
	svc := newGradingServiceForTest()

	res, err := svc.Calculate(context.Background(), dto.CalculateGradeRequest{
		SubjectName: "History",
		Scores:      map[string]float64{"continuous": 70, "midTerm": 80, "final": 90},
		AssessmentInfo: &models.AssessmentInfo{
			Scheme: models.SchemeWeighted,
			Components: []models.AssessmentComponent{
				{Code: "continuous", Weight: 0.3},
				{Code: "midTerm", Weight: 0.3},
				{Code: "final", Weight: 0.4},
			},
		},
	})
	require.NoError(t, err)
	assert.InDelta(t, 81.0, res.Percentage, 0.001)
	assert.Equal(t, models.GradeA, res.LetterGrade)

	res, err = svc.Calculate(context.Background(), dto.CalculateGradeRequest{
		Scores: map[string]float64{"project": 75},
	})
	require.NoError(t, err)
	assert.Equal(t, models.GradeNotAssessed, res.LetterGrade)
	assert.Equal(t, grading.NotAssessedRemark, res.Remark)
}

func TestGradingServiceCalculateErrors(t *testing.T) {
	svc := newGradingServiceForTest()

	cases := []struct {
		name string
		req  dto.CalculateGradeRequest
		want *appErrors.Error
	}{
		{name: "empty payload", req: dto.CalculateGradeRequest{}, want: appErrors.ErrValidation},
		{name: "missing end term", req: dto.CalculateGradeRequest{MidTerm: floatPtr(50)}, want: appErrors.ErrValidation},
		{name: "score out of range", req: dto.CalculateGradeRequest{MidTerm: floatPtr(101), EndTerm: floatPtr(50)}, want: appErrors.ErrInvalidScore},
		{
			name: "weights do not sum to one",
			req:  dto.CalculateGradeRequest{MidTerm: floatPtr(50), EndTerm: floatPtr(50), Weights: &dto.WeightsInput{MidTerm: 0.5, EndTerm: 0.6}},
			want: appErrors.ErrInvalidWeights,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Calculate(context.Background(), tc.req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.want), err.Error())
		})
	}
}
