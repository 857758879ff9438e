package grading

import (
	"fmt"
	"hash/fnv"
	"math/rand"

	"github.com/noah-isme/sma-report-card/internal/models"
)

// NotAssessedRemark is returned for subjects without a grade this term.
const NotAssessedRemark = "Not assessed this term."

var remarkCandidates = map[models.LetterGrade][]string{
	models.GradeA: {
		"Excellent work, keep it up.",
		"Outstanding performance.",
		"Exceptional understanding of the subject.",
	},
	models.GradeB: {
		"Very good effort.",
		"Good work, aim higher.",
		"Commendable performance.",
	},
	models.GradeC: {
		"Fair performance, more effort needed.",
		"Satisfactory, can do better.",
		"Average work, keep practising.",
	},
	models.GradeD: {
		"Below average, needs to work harder.",
		"Weak performance, more revision required.",
		"Needs more attention to this subject.",
	},
	models.GradeE: {
		"Poor performance, requires serious improvement.",
		"Failed to meet expectations, extra support needed.",
		"Very weak, immediate remedial work advised.",
	},
}

// Picker selects one candidate phrase. key identifies the remark request.
type Picker func(candidates []string, key string) string

// RandomPicker picks uniformly at random, so identical inputs may yield different phrases.
func RandomPicker() Picker {
	return func(candidates []string, _ string) string {
		return candidates[rand.Intn(len(candidates))]
	}
}

// HashPicker picks by FNV hash of the key, so identical inputs yield the same phrase.
func HashPicker() Picker {
	return func(candidates []string, key string) string {
		h := fnv.New32a()
		_, _ = h.Write([]byte(key))
		return candidates[h.Sum32()%uint32(len(candidates))]
	}
}

// RemarkGenerator maps a graded subject to a short teacher remark.
type RemarkGenerator struct {
	pick Picker
}

// NewRemarkGenerator returns a generator that is random unless deterministic is set.
func NewRemarkGenerator(deterministic bool) *RemarkGenerator {
	if deterministic {
		return &RemarkGenerator{pick: HashPicker()}
	}
	return &RemarkGenerator{pick: RandomPicker()}
}

// NewRemarkGeneratorWithPicker allows a custom selection strategy.
func NewRemarkGeneratorWithPicker(pick Picker) *RemarkGenerator {
	if pick == nil {
		pick = RandomPicker()
	}
	return &RemarkGenerator{pick: pick}
}

// GenerateSubjectRemark returns a remark for the grade. Not assessed subjects
// get a neutral placeholder rather than a performance judgement.
func (g *RemarkGenerator) GenerateSubjectRemark(grade models.LetterGrade, percentage float64, subjectName string) string {
	candidates, ok := remarkCandidates[grade]
	if !ok || len(candidates) == 0 {
		return NotAssessedRemark
	}
	key := fmt.Sprintf("%s|%.2f|%s", grade, percentage, subjectName)
	return g.pick(candidates, key)
}

// RemarkCandidates exposes the phrase set for a grade.
func RemarkCandidates(grade models.LetterGrade) []string {
	return append([]string(nil), remarkCandidates[grade]...)
}
