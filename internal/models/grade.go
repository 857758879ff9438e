package models

import "time"

// LetterGrade is the categorical label derived from a percentage.
type LetterGrade string

const (
	GradeA LetterGrade = "A"
	GradeB LetterGrade = "B"
	GradeC LetterGrade = "C"
	GradeD LetterGrade = "D"
	GradeE LetterGrade = "E"
	// GradeNotAssessed marks a subject with no eligible grade this term.
	GradeNotAssessed LetterGrade = "N/A"
)

// GradeStatus tracks the publication lifecycle of a grade.
type GradeStatus string

const (
	GradeStatusDraft     GradeStatus = "draft"
	GradeStatusPublished GradeStatus = "published"
)

// Grade is a teacher-entered subject result for one student and term.
type Grade struct {
	ID           string             `json:"id"`
	StudentID    string             `json:"studentId"`
	SubjectID    string             `json:"subjectId"`
	ClassID      string             `json:"classId"`
	Term         string             `json:"term"`
	AcademicYear string             `json:"academicYear"`
	Scores       map[string]float64 `json:"scores"`
	Percentage   *float64           `json:"percentage,omitempty"`
	LetterGrade  LetterGrade        `json:"letterGrade,omitempty"`
	Status       GradeStatus        `json:"status"`
	Remarks      string             `json:"remarks,omitempty"`
	EnteredBy    string             `json:"enteredBy,omitempty"`
	UpdatedAt    time.Time          `json:"updatedAt,omitempty"`
}

// Editable reports whether the grade can still be changed.
func (g Grade) Editable() bool {
	return g.Status != GradeStatusPublished
}

// Published reports whether the grade counts towards a report card.
func (g Grade) Published() bool {
	return g.Status == GradeStatusPublished
}

// InTerm reports whether the grade belongs to the given term and academic year.
func (g Grade) InTerm(term, academicYear string) bool {
	return g.Term == term && g.AcademicYear == academicYear
}
