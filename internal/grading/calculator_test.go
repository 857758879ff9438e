package grading

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

func TestCalculateGradeBoundaries(t *testing.T) {
	tests := []struct {
		name       string
		percentage float64
		want       models.LetterGrade
	}{
		{"perfect", 100, models.GradeA},
		{"A lower bound", 80, models.GradeA},
		{"just below A", 79.99, models.GradeB},
		{"B lower bound", 65, models.GradeB},
		{"just below B", 64.99, models.GradeC},
		{"C lower bound", 50, models.GradeC},
		{"just below C", 49.99, models.GradeD},
		{"D lower bound", 40, models.GradeD},
		{"just below D", 39.99, models.GradeE},
		{"zero", 0, models.GradeE},
		{"negative clamps to E", -12, models.GradeE},
		{"above range clamps to A", 140, models.GradeA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CalculateGrade(tt.percentage))
		})
	}
}

func TestCalculateGradeNeverAWithoutEighty(t *testing.T) {
	for p := 0.0; p < 80; p += 0.25 {
		assert.NotEqual(t, models.GradeA, CalculateGrade(p), "percentage %.2f", p)
	}
	for p := 80.0; p <= 100; p += 0.25 {
		assert.Equal(t, models.GradeA, CalculateGrade(p), "percentage %.2f", p)
	}
}

func TestCalculateFinalGrade(t *testing.T) {
	t.Run("configured thirty seventy split", func(t *testing.T) {
		result, err := CalculateFinalGrade(39, 10, Weights{MidTerm: 0.3, EndTerm: 0.7})
		require.NoError(t, err)
		assert.InDelta(t, 18.7, result.Percentage, 0.0001)
		assert.Equal(t, models.GradeE, result.LetterGrade)
	})

	t.Run("default twenty eighty split", func(t *testing.T) {
		result, err := CalculateFinalGrade(60, 70, Weights{MidTerm: 0.2, EndTerm: 0.8})
		require.NoError(t, err)
		assert.InDelta(t, 68, result.Percentage, 0.0001)
		assert.Equal(t, models.GradeB, result.LetterGrade)
	})

	t.Run("deterministic", func(t *testing.T) {
		w := Weights{MidTerm: 0.2, EndTerm: 0.8}
		first, err := CalculateFinalGrade(73.5, 81.25, w)
		require.NoError(t, err)
		second, err := CalculateFinalGrade(73.5, 81.25, w)
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})

	t.Run("rejects out of range score", func(t *testing.T) {
		_, err := CalculateFinalGrade(101, 50, Weights{MidTerm: 0.5, EndTerm: 0.5})
		require.Error(t, err)
		assert.True(t, errors.Is(err, appErrors.ErrInvalidScore))

		_, err = CalculateFinalGrade(50, -1, Weights{MidTerm: 0.5, EndTerm: 0.5})
		assert.True(t, errors.Is(err, appErrors.ErrInvalidScore))
	})

	t.Run("rejects weights not summing to one", func(t *testing.T) {
		_, err := CalculateFinalGrade(50, 50, Weights{MidTerm: 0.3, EndTerm: 0.6})
		require.Error(t, err)
		assert.True(t, errors.Is(err, appErrors.ErrInvalidWeights))
	})
}

func TestWeightedScore(t *testing.T) {
	defaults := DefaultAssessment(map[string]float64{"midTerm": 0.2, "endTerm": 0.8})
	continuous := models.AssessmentInfo{
		Scheme: models.SchemeWeighted,
		Components: []models.AssessmentComponent{
			{Code: "continuous", Weight: 0.3},
			{Code: "midTerm", Weight: 0.3},
			{Code: "final", Weight: 0.4},
		},
	}

	tests := []struct {
		name    string
		scores  map[string]float64
		info    models.AssessmentInfo
		want    float64
		grade   models.LetterGrade
		wantErr *appErrors.Error
	}{
		{name: "default weights", scores: map[string]float64{"midTerm": 50, "endTerm": 100}, info: defaults, want: 90, grade: models.GradeA},
		{name: "missing component renormalised", scores: map[string]float64{"endTerm": 70}, info: defaults, want: 70, grade: models.GradeB},
		{name: "thirty thirty forty", scores: map[string]float64{"continuous": 70, "midTerm": 80, "final": 90}, info: continuous, want: 81, grade: models.GradeA},
		{name: "unknown components ignored", scores: map[string]float64{"midTerm": 40, "endTerm": 40, "quiz": 100}, info: defaults, want: 40, grade: models.GradeD},
		{
			name:   "average scheme",
			scores: map[string]float64{"a": 60, "b": 70, "c": 80},
			info:   models.AssessmentInfo{Scheme: models.SchemeAverage},
			want:   70,
			grade:  models.GradeB,
		},
		{name: "no scores", scores: map[string]float64{}, info: defaults, wantErr: appErrors.ErrNotAssessed},
		{name: "score above range", scores: map[string]float64{"midTerm": 120}, info: defaults, wantErr: appErrors.ErrInvalidScore},
		{
			name:   "weights off by more than tolerance",
			scores: map[string]float64{"midTerm": 50},
			info: models.AssessmentInfo{Scheme: models.SchemeWeighted, Components: []models.AssessmentComponent{
				{Code: "midTerm", Weight: 0.5}, {Code: "endTerm", Weight: 0.4},
			}},
			wantErr: appErrors.ErrInvalidWeights,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := WeightedScore(tt.scores, tt.info)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, result.Percentage, 0.0001)
			assert.Equal(t, tt.grade, result.LetterGrade)
		})
	}
}

func TestRound2HalfToEven(t *testing.T) {
	assert.Equal(t, 81.67, Round2(245.0/3))
	assert.Equal(t, 0.12, Round2(0.125))
}
