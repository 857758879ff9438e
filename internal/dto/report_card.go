package dto

import "github.com/noah-isme/sma-report-card/internal/models"

// AttendanceInput carries attendance days for a generated report card.
type AttendanceInput struct {
	DaysPresent int `json:"daysPresent" validate:"min=0"`
	DaysAbsent  int `json:"daysAbsent" validate:"min=0"`
}

// GenerateReportCardRequest asks for a report card to be assembled and stored.
// Overwrite regenerates an existing card instead of failing with a conflict.
type GenerateReportCardRequest struct {
	ReportCardID string           `json:"reportCardId" validate:"omitempty,max=128"`
	StudentID    string           `json:"studentId" validate:"required"`
	Term         string           `json:"term" validate:"required"`
	AcademicYear string           `json:"academicYear" validate:"required"`
	Overwrite    bool             `json:"overwrite"`
	Rank         *models.Rank     `json:"rank" validate:"omitempty"`
	Attendance   *AttendanceInput `json:"attendance" validate:"omitempty"`
}

// CalculateGradeRequest computes a subject grade. Either midTerm/endTerm or scores must be set.
type CalculateGradeRequest struct {
	SubjectName    string                 `json:"subjectName"`
	MidTerm        *float64               `json:"midTerm" validate:"required_without=Scores"`
	EndTerm        *float64               `json:"endTerm" validate:"required_without=Scores"`
	Weights        *WeightsInput          `json:"weights"`
	Scores         map[string]float64     `json:"scores" validate:"required_without_all=MidTerm EndTerm"`
	AssessmentInfo *models.AssessmentInfo `json:"assessmentInfo"`
}

// WeightsInput overrides the configured mid-term/end-term split.
type WeightsInput struct {
	MidTerm float64 `json:"midTerm"`
	EndTerm float64 `json:"endTerm"`
}

// CalculateGradeResponse is the computed grade with a remark.
type CalculateGradeResponse struct {
	Percentage  float64            `json:"percentage"`
	LetterGrade models.LetterGrade `json:"letterGrade"`
	Remark      string             `json:"remark"`
}
