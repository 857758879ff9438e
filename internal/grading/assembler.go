package grading

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/internal/models"
)

// AssembleInput carries everything needed to compose one report card.
type AssembleInput struct {
	ReportCardID string
	Student      models.Student
	Class        models.Class
	Subjects     []models.Subject
	Grades       []models.Grade
	Attendance   *models.Attendance
	Rank         *models.Rank
	Actor        models.Actor
	Term         string
	AcademicYear string
}

// Assembler composes report cards from reference data and grades.
type Assembler struct {
	remarks  *RemarkGenerator
	defaults models.AssessmentInfo
	now      func() time.Time
	logger   *zap.Logger
}

// NewAssembler constructs an assembler. defaults is used for subjects without assessment info.
func NewAssembler(remarks *RemarkGenerator, defaults models.AssessmentInfo, logger *zap.Logger) *Assembler {
	if remarks == nil {
		remarks = NewRemarkGenerator(false)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assembler{remarks: remarks, defaults: defaults, now: time.Now, logger: logger}
}

// Assemble builds the report card. It never fails: invalid or missing grades
// leave their subject not assessed.
func (a *Assembler) Assemble(in AssembleInput) *models.ReportCard {
	subjects := make(map[string]models.Subject, len(in.Subjects))
	for _, s := range in.Subjects {
		subjects[s.ID] = s
	}

	eligible := a.eligibleGrades(in)

	order := append([]string(nil), in.Class.SubjectIDs...)
	seen := make(map[string]struct{}, len(order))
	for _, id := range order {
		seen[id] = struct{}{}
	}
	for _, g := range in.Grades {
		if _, ok := eligible[g.SubjectID]; !ok {
			continue
		}
		if _, ok := seen[g.SubjectID]; !ok {
			seen[g.SubjectID] = struct{}{}
			order = append(order, g.SubjectID)
		}
	}

	card := &models.ReportCard{
		ReportCardID:       in.ReportCardID,
		StudentID:          in.Student.ID,
		StudentName:        in.Student.Name,
		ClassID:            in.Class.ID,
		ClassName:          in.Class.Name,
		Term:               in.Term,
		AcademicYear:       in.AcademicYear,
		SubjectPerformance: make([]models.SubjectPerformance, 0, len(order)),
		Attendance:         in.Attendance,
		GeneratedAt:        a.now().UTC(),
		GeneratedBy:        in.Actor.Label(),
	}
	if card.ReportCardID == "" {
		card.ReportCardID = models.DefaultReportCardID(in.Student.ID, in.AcademicYear, in.Term)
	}
	if card.ClassID == "" {
		card.ClassID = in.Student.ClassID
	}

	var sum float64
	var scored int
	for _, subjectID := range order {
		subject, ok := subjects[subjectID]
		if !ok {
			subject = models.Subject{ID: subjectID, Name: subjectID}
		}
		line := models.SubjectPerformance{SubjectID: subjectID, SubjectName: subject.Name}

		grade, hasGrade := eligible[subjectID]
		if !hasGrade {
			a.markNotAssessed(&line)
			card.SubjectPerformance = append(card.SubjectPerformance, line)
			continue
		}

		result, err := a.score(subject, grade)
		if err != nil {
			a.logger.Warn("grade excluded from report card",
				zap.String("student_id", in.Student.ID),
				zap.String("subject_id", subjectID),
				zap.String("grade_id", grade.ID),
				zap.Error(err))
			a.markNotAssessed(&line)
			card.SubjectPerformance = append(card.SubjectPerformance, line)
			continue
		}

		pct := result.Percentage
		line.Percentage = &pct
		line.Grade = result.LetterGrade
		line.Remarks = grade.Remarks
		if line.Remarks == "" {
			line.Remarks = a.remarks.GenerateSubjectRemark(result.LetterGrade, pct, subject.Name)
		}
		card.SubjectPerformance = append(card.SubjectPerformance, line)

		sum += pct
		scored++
	}

	var aggregate float64
	if scored > 0 {
		aggregate = Round2(sum / float64(scored))
	}
	card.AcademicPerformance = models.AcademicPerformance{
		Percentage: aggregate,
		Grade:      CalculateGrade(aggregate),
		Rank:       in.Rank,
	}
	card.Comments = models.Comments{
		ClassTeacher: GenerateComments(card),
		HeadTeacher:  HeadTeacherComment(card),
	}
	return card
}

// eligibleGrades keeps published grades of the requested student and term,
// one per subject. The most recently updated grade wins.
func (a *Assembler) eligibleGrades(in AssembleInput) map[string]models.Grade {
	eligible := make(map[string]models.Grade, len(in.Grades))
	for _, g := range in.Grades {
		if !g.Published() || !g.InTerm(in.Term, in.AcademicYear) {
			continue
		}
		if g.StudentID != "" && in.Student.ID != "" && g.StudentID != in.Student.ID {
			continue
		}
		if existing, ok := eligible[g.SubjectID]; ok {
			a.logger.Warn("duplicate published grade for subject",
				zap.String("student_id", in.Student.ID),
				zap.String("subject_id", g.SubjectID))
			if !g.UpdatedAt.After(existing.UpdatedAt) {
				continue
			}
		}
		eligible[g.SubjectID] = g
	}
	return eligible
}

func (a *Assembler) score(subject models.Subject, grade models.Grade) (FinalGrade, error) {
	if len(grade.Scores) > 0 {
		info := a.defaults
		if subject.AssessmentInfo != nil {
			info = *subject.AssessmentInfo
		}
		return WeightedScore(grade.Scores, info)
	}
	if grade.Percentage != nil {
		if err := validateScore(*grade.Percentage); err != nil {
			return FinalGrade{}, err
		}
		return finalize(*grade.Percentage), nil
	}
	return FinalGrade{}, errNoScores
}

func (a *Assembler) markNotAssessed(line *models.SubjectPerformance) {
	line.Percentage = nil
	line.Grade = models.GradeNotAssessed
	line.Remarks = a.remarks.GenerateSubjectRemark(models.GradeNotAssessed, 0, line.SubjectName)
}

var errNoScores = errors.New("grade has no scores")
