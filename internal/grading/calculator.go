// Package grading turns raw component scores into percentages, letter grades,
// remarks and assembled report cards. Everything here is free of I/O.
package grading

import (
	"math"
	"sort"

	"github.com/noah-isme/sma-report-card/internal/models"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

const (
	minScore        = 0.0
	maxScore        = 100.0
	weightTolerance = 0.001
)

// Letter grade lower bounds, inclusive.
const (
	ThresholdA = 80.0
	ThresholdB = 65.0
	ThresholdC = 50.0
	ThresholdD = 40.0
)

// Weights splits a subject percentage between the mid-term and end-term papers.
type Weights struct {
	MidTerm float64 `json:"midTerm"`
	EndTerm float64 `json:"endTerm"`
}

// Validate ensures the weights are non-negative and sum to one.
func (w Weights) Validate() error {
	if w.MidTerm < 0 || w.EndTerm < 0 {
		return appErrors.Clone(appErrors.ErrInvalidWeights, "weights must not be negative")
	}
	if math.Abs(w.MidTerm+w.EndTerm-1) > weightTolerance {
		return appErrors.Clone(appErrors.ErrInvalidWeights, "weights must sum to 1")
	}
	return nil
}

// FinalGrade is a computed subject result.
type FinalGrade struct {
	Percentage  float64            `json:"percentage"`
	LetterGrade models.LetterGrade `json:"letterGrade"`
}

// Round2 rounds half-to-even at two decimal places.
func Round2(v float64) float64 {
	return math.RoundToEven(v*100) / 100
}

// CalculateGrade maps a percentage to a letter grade. Out-of-range input is clamped.
func CalculateGrade(percentage float64) models.LetterGrade {
	p := clamp(percentage)
	switch {
	case p >= ThresholdA:
		return models.GradeA
	case p >= ThresholdB:
		return models.GradeB
	case p >= ThresholdC:
		return models.GradeC
	case p >= ThresholdD:
		return models.GradeD
	default:
		return models.GradeE
	}
}

// CalculateFinalGrade combines mid-term and end-term scores with the given weights.
func CalculateFinalGrade(midTerm, endTerm float64, w Weights) (FinalGrade, error) {
	if err := validateScore(midTerm); err != nil {
		return FinalGrade{}, err
	}
	if err := validateScore(endTerm); err != nil {
		return FinalGrade{}, err
	}
	if err := w.Validate(); err != nil {
		return FinalGrade{}, err
	}
	return finalize(midTerm*w.MidTerm + endTerm*w.EndTerm), nil
}

// WeightedScore computes a subject percentage from component scores following
// the subject's assessment scheme. Components missing from scores are skipped
// and the remaining weights renormalised.
func WeightedScore(scores map[string]float64, info models.AssessmentInfo) (FinalGrade, error) {
	for _, score := range scores {
		if err := validateScore(score); err != nil {
			return FinalGrade{}, err
		}
	}

	switch info.Scheme {
	case models.SchemeAverage:
		return averageScore(scores, info.Components)
	case models.SchemeWeighted, "":
		return weightedScore(scores, info.Components)
	default:
		return FinalGrade{}, appErrors.Clone(appErrors.ErrValidation, "unsupported assessment scheme "+string(info.Scheme))
	}
}

// DefaultAssessment builds a weighted scheme from configured component weights.
func DefaultAssessment(weights map[string]float64) models.AssessmentInfo {
	codes := make([]string, 0, len(weights))
	for code := range weights {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	components := make([]models.AssessmentComponent, 0, len(codes))
	for _, code := range codes {
		components = append(components, models.AssessmentComponent{Code: code, Weight: weights[code]})
	}
	return models.AssessmentInfo{Scheme: models.SchemeWeighted, Components: components}
}

func weightedScore(scores map[string]float64, components []models.AssessmentComponent) (FinalGrade, error) {
	if len(components) == 0 {
		return FinalGrade{}, appErrors.Clone(appErrors.ErrInvalidWeights, "weighted scheme has no components")
	}
	var configured float64
	for _, comp := range components {
		if comp.Weight < 0 {
			return FinalGrade{}, appErrors.Clone(appErrors.ErrInvalidWeights, "weights must not be negative")
		}
		configured += comp.Weight
	}
	if math.Abs(configured-1) > weightTolerance {
		return FinalGrade{}, appErrors.Clone(appErrors.ErrInvalidWeights, "weights must sum to 1")
	}

	var sum, present float64
	for _, comp := range components {
		score, ok := scores[comp.Code]
		if !ok {
			continue
		}
		sum += score * comp.Weight
		present += comp.Weight
	}
	if present == 0 {
		return FinalGrade{}, appErrors.ErrNotAssessed
	}
	return finalize(sum / present), nil
}

func averageScore(scores map[string]float64, components []models.AssessmentComponent) (FinalGrade, error) {
	var sum float64
	var n int
	if len(components) == 0 {
		for _, score := range scores {
			sum += score
			n++
		}
	} else {
		for _, comp := range components {
			if score, ok := scores[comp.Code]; ok {
				sum += score
				n++
			}
		}
	}
	if n == 0 {
		return FinalGrade{}, appErrors.ErrNotAssessed
	}
	return finalize(sum / float64(n)), nil
}

func finalize(raw float64) FinalGrade {
	pct := Round2(raw)
	return FinalGrade{Percentage: pct, LetterGrade: CalculateGrade(pct)}
}

func validateScore(score float64) error {
	if math.IsNaN(score) || score < minScore || score > maxScore {
		return appErrors.ErrInvalidScore
	}
	return nil
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < minScore {
		return minScore
	}
	if v > maxScore {
		return maxScore
	}
	return v
}
