package models

import (
	"fmt"
	"math"
	"time"
)

// Rank is a class position computed outside the assembler.
type Rank struct {
	Position int `json:"position"`
	OutOf    int `json:"outOf"`
}

// AcademicPerformance summarises the overall result of a report card.
type AcademicPerformance struct {
	Percentage float64     `json:"percentage"`
	Grade      LetterGrade `json:"grade"`
	Rank       *Rank       `json:"rank,omitempty"`
}

// SubjectPerformance is one subject line of a report card. Percentage is nil when not assessed.
type SubjectPerformance struct {
	SubjectID   string      `json:"subjectId"`
	SubjectName string      `json:"subjectName,omitempty"`
	Percentage  *float64    `json:"percentage"`
	Grade       LetterGrade `json:"grade"`
	Remarks     string      `json:"remarks"`
}

// Attendance summarises presence over the term.
type Attendance struct {
	DaysPresent int     `json:"daysPresent"`
	DaysAbsent  int     `json:"daysAbsent"`
	TotalDays   int     `json:"totalDays"`
	Percentage  float64 `json:"percentage"`
}

// NewAttendance derives totals and the presence percentage.
func NewAttendance(present, absent int) Attendance {
	total := present + absent
	var pct float64
	if total > 0 {
		pct = math.RoundToEven(float64(present)/float64(total)*100*100) / 100
	}
	return Attendance{DaysPresent: present, DaysAbsent: absent, TotalDays: total, Percentage: pct}
}

// Comments holds the narrative part of a report card.
type Comments struct {
	ClassTeacher string `json:"classTeacher"`
	HeadTeacher  string `json:"headTeacher"`
}

// ReportCard is the per-student, per-term summary. It is regenerated as a whole, never patched.
type ReportCard struct {
	ReportCardID        string               `json:"reportCardId"`
	StudentID           string               `json:"studentId"`
	StudentName         string               `json:"studentName,omitempty"`
	ClassID             string               `json:"classId"`
	ClassName           string               `json:"className,omitempty"`
	Term                string               `json:"term"`
	AcademicYear        string               `json:"academicYear"`
	AcademicPerformance AcademicPerformance  `json:"academicPerformance"`
	SubjectPerformance  []SubjectPerformance `json:"subjectPerformance"`
	Attendance          *Attendance          `json:"attendance,omitempty"`
	Comments            Comments             `json:"comments"`
	GeneratedAt         time.Time            `json:"generatedAt"`
	GeneratedBy         string               `json:"generatedBy,omitempty"`
}

// DefaultReportCardID builds the identifier used when the caller supplies none.
func DefaultReportCardID(studentID, academicYear, term string) string {
	return fmt.Sprintf("%s_%s_%s", studentID, academicYear, term)
}

// ScoredSubjects returns the subject lines carrying a percentage.
func (r *ReportCard) ScoredSubjects() []SubjectPerformance {
	scored := make([]SubjectPerformance, 0, len(r.SubjectPerformance))
	for _, sp := range r.SubjectPerformance {
		if sp.Percentage != nil {
			scored = append(scored, sp)
		}
	}
	return scored
}
