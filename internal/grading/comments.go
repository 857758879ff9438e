package grading

import (
	"fmt"
	"strings"

	"github.com/noah-isme/sma-report-card/internal/models"
)

// FallbackComment is used when a report card has no scored subjects.
const FallbackComment = "The student needs to engage more actively in lessons and assessments so that progress can be measured."

// NoResultsComment is the head teacher remark for a card with no scored subjects.
const NoResultsComment = "No results recorded for this term."

type commentTier struct {
	min      float64
	template string
}

var commentTiers = []commentTier{
	{ThresholdA, "%s has demonstrated exceptional performance this term."},
	{ThresholdB, "%s has shown consistent and good performance this term."},
	{ThresholdC, "%s has achieved satisfactory results this term."},
	{ThresholdD, "%s needs improvement in several areas to reach their potential."},
	{0, "%s requires immediate intervention and close support to improve."},
}

var headTeacherComments = map[models.LetterGrade]string{
	models.GradeA: "Excellent results. Keep aiming high.",
	models.GradeB: "Good results. Keep up the effort.",
	models.GradeC: "Fair results. More effort will bring better grades.",
	models.GradeD: "Results below expectation. Work harder next term.",
	models.GradeE: "Poor results. Parents are invited to discuss a support plan.",
}

// GenerateComments writes the class teacher narrative for a report card.
// Only subjects with a recorded percentage count towards the average.
func GenerateComments(card *models.ReportCard) string {
	if card == nil {
		return FallbackComment
	}
	scored := card.ScoredSubjects()
	if len(scored) == 0 {
		return FallbackComment
	}

	var sum float64
	var excellent, weak []string
	for _, sp := range scored {
		pct := *sp.Percentage
		sum += pct
		switch {
		case pct >= ThresholdA:
			excellent = append(excellent, subjectLabel(sp))
		case pct < ThresholdD:
			weak = append(weak, subjectLabel(sp))
		}
	}
	average := Round2(sum / float64(len(scored)))

	name := strings.TrimSpace(card.StudentName)
	if name == "" {
		name = "The student"
	}

	var b strings.Builder
	for _, tier := range commentTiers {
		if average >= tier.min {
			fmt.Fprintf(&b, tier.template, name)
			break
		}
	}
	if len(excellent) > 0 {
		fmt.Fprintf(&b, " Excellent work in %s.", joinNames(excellent))
	}
	if len(weak) > 0 {
		fmt.Fprintf(&b, " Needs attention in %s.", joinNames(weak))
	}
	return b.String()
}

// HeadTeacherComment returns the short head teacher remark for the card's
// overall grade. A card without scored subjects is not judged.
func HeadTeacherComment(card *models.ReportCard) string {
	if card == nil || len(card.ScoredSubjects()) == 0 {
		return NoResultsComment
	}
	if comment, ok := headTeacherComments[card.AcademicPerformance.Grade]; ok {
		return comment
	}
	return NoResultsComment
}

func subjectLabel(sp models.SubjectPerformance) string {
	if sp.SubjectName != "" {
		return sp.SubjectName
	}
	return sp.SubjectID
}

func joinNames(names []string) string {
	switch len(names) {
	case 1:
		return names[0]
	case 2:
		return names[0] + " and " + names[1]
	default:
		return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
	}
}
