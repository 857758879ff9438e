package models

import (
	"fmt"

	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

// TermSummary is an entry of a student's academic history.
type TermSummary struct {
	Term         string      `json:"term"`
	AcademicYear string      `json:"academicYear"`
	Percentage   float64     `json:"percentage"`
	Grade        LetterGrade `json:"grade"`
	ReportCardID string      `json:"reportCardId,omitempty"`
}

// Student represents a learner registered in the school.
type Student struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	AdmissionNumber string        `json:"admissionNumber,omitempty"`
	ClassID         string        `json:"classId"`
	Gender          string        `json:"gender,omitempty"`
	History         []TermSummary `json:"history,omitempty"`
}

// RecordTerm appends a term summary to the history. History is append-only,
// so a second summary for the same term and year is rejected.
func (s *Student) RecordTerm(summary TermSummary) error {
	for _, existing := range s.History {
		if existing.Term == summary.Term && existing.AcademicYear == summary.AcademicYear {
			return appErrors.Clone(appErrors.ErrConflict,
				fmt.Sprintf("history for %s %s already recorded", summary.Term, summary.AcademicYear))
		}
	}
	s.History = append(s.History, summary)
	return nil
}
