package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/sma-report-card/internal/models"
)

func TestGenerateSubjectRemarkRandomStaysInCandidates(t *testing.T) {
	gen := NewRemarkGenerator(false)
	for _, grade := range []models.LetterGrade{models.GradeA, models.GradeB, models.GradeC, models.GradeD, models.GradeE} {
		candidates := RemarkCandidates(grade)
		for i := 0; i < 20; i++ {
			assert.Contains(t, candidates, gen.GenerateSubjectRemark(grade, 70, "Biology"))
		}
	}
}

func TestGenerateSubjectRemarkDeterministic(t *testing.T) {
	gen := NewRemarkGenerator(true)
	first := gen.GenerateSubjectRemark(models.GradeB, 72.5, "History")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, gen.GenerateSubjectRemark(models.GradeB, 72.5, "History"))
	}
}

func TestGenerateSubjectRemarkNotAssessed(t *testing.T) {
	gen := NewRemarkGenerator(false)
	remark := gen.GenerateSubjectRemark(models.GradeNotAssessed, 0, "Chemistry")
	assert.Equal(t, NotAssessedRemark, remark)
	assert.NotContains(t, RemarkCandidates(models.GradeE), remark)
}

func TestGenerateSubjectRemarkCustomPicker(t *testing.T) {
	gen := NewRemarkGeneratorWithPicker(func(candidates []string, _ string) string {
		return candidates[len(candidates)-1]
	})
	candidates := RemarkCandidates(models.GradeA)
	assert.Equal(t, candidates[len(candidates)-1], gen.GenerateSubjectRemark(models.GradeA, 95, "English"))
}
