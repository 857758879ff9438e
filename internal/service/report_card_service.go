package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/internal/dto"
	"github.com/noah-isme/sma-report-card/internal/grading"
	"github.com/noah-isme/sma-report-card/internal/models"
	"github.com/noah-isme/sma-report-card/internal/repository"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

type documentReader interface {
	Get(ctx context.Context, collection, id string) (models.Record, error)
	Query(ctx context.Context, collection string, filters ...repository.Filter) ([]models.Record, error)
}

type collectionWriter interface {
	WriteCollection(ctx context.Context, collection string, records []models.Record, idField string, mode repository.WriteMode) (*repository.WriteResult, error)
}

type reportAssembler interface {
	Assemble(in grading.AssembleInput) *models.ReportCard
}

// ReportCardService loads the records behind a report card, assembles it and persists it.
type ReportCardService struct {
	reader    documentReader
	writer    collectionWriter
	assembler reportAssembler
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewReportCardService constructs the report card service.
func NewReportCardService(reader documentReader, writer collectionWriter, assembler reportAssembler, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *ReportCardService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportCardService{
		reader:    reader,
		writer:    writer,
		assembler: assembler,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// Generate assembles and stores a report card. An existing card is only
// replaced when req.Overwrite is set; otherwise ErrConflict is returned.
func (s *ReportCardService) Generate(ctx context.Context, req dto.GenerateReportCardRequest, actor models.Actor) (*models.ReportCard, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid report card payload")
	}

	in, err := s.loadInput(ctx, req)
	if err != nil {
		return nil, err
	}
	in.Actor = actor

	card := s.assembler.Assemble(in)

	record, err := models.ToRecord(card)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode report card")
	}

	mode := repository.ModeCheckFirst
	if req.Overwrite {
		mode = repository.ModePushAlways
	}
	start := time.Now()
	result, err := s.writer.WriteCollection(ctx, models.CollectionReportCards, []models.Record{record}, models.ReportCardIDField, mode)
	s.metrics.ObserveStoreOperation("report_card_write", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrBatchCommit.Code, appErrors.ErrBatchCommit.Status, "failed to store report card")
	}
	if result.Skipped > 0 {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("report card %s already exists", card.ReportCardID))
	}

	s.cache.Invalidate(ctx, card.ReportCardID)
	s.metrics.ObserveReportCard(string(card.AcademicPerformance.Grade))
	s.logger.Info("report card generated",
		zap.String("report_card_id", card.ReportCardID),
		zap.String("student_id", card.StudentID),
		zap.String("grade", string(card.AcademicPerformance.Grade)),
		zap.String("actor", actor.Label()),
		zap.Bool("overwrite", req.Overwrite),
	)
	return card, nil
}

// Get returns a stored report card, serving from cache when enabled.
func (s *ReportCardService) Get(ctx context.Context, id string) (*models.ReportCard, error) {
	var cached models.ReportCard
	if s.cache.Get(ctx, id, &cached) {
		return &cached, nil
	}

	start := time.Now()
	record, err := s.reader.Get(ctx, models.CollectionReportCards, id)
	s.metrics.ObserveStoreOperation("report_card_get", time.Since(start))
	if err != nil {
		if errors.Is(err, appErrors.ErrRecordNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "report card not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load report card")
	}

	var card models.ReportCard
	if err := models.FromRecord(record, &card); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode report card")
	}
	s.cache.Set(ctx, id, card)
	return &card, nil
}

func (s *ReportCardService) loadInput(ctx context.Context, req dto.GenerateReportCardRequest) (grading.AssembleInput, error) {
	in := grading.AssembleInput{
		ReportCardID: req.ReportCardID,
		Term:         req.Term,
		AcademicYear: req.AcademicYear,
		Rank:         req.Rank,
	}
	if req.Attendance != nil {
		att := models.NewAttendance(req.Attendance.DaysPresent, req.Attendance.DaysAbsent)
		in.Attendance = &att
	}

	studentRec, err := s.reader.Get(ctx, models.CollectionStudents, req.StudentID)
	if err != nil {
		if errors.Is(err, appErrors.ErrRecordNotFound) {
			return in, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return in, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	if err := models.FromRecord(studentRec, &in.Student); err != nil {
		return in, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode student")
	}

	in.Class = models.Class{ID: in.Student.ClassID}
	if in.Student.ClassID != "" {
		classRec, err := s.reader.Get(ctx, models.CollectionClasses, in.Student.ClassID)
		switch {
		case err == nil:
			if err := models.FromRecord(classRec, &in.Class); err != nil {
				return in, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to decode class")
			}
		case errors.Is(err, appErrors.ErrRecordNotFound):
			s.logger.Warn("class not found for student", zap.String("student_id", req.StudentID), zap.String("class_id", in.Student.ClassID))
		default:
			return in, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
		}
	}

	gradeRecs, err := s.reader.Query(ctx, models.CollectionGrades,
		repository.Filter{Field: "studentId", Value: req.StudentID},
		repository.Filter{Field: "term", Value: req.Term},
		repository.Filter{Field: "academicYear", Value: req.AcademicYear},
	)
	if err != nil {
		return in, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load grades")
	}
	for _, rec := range gradeRecs {
		var g models.Grade
		if err := models.FromRecord(rec, &g); err != nil {
			s.logger.Warn("skipping undecodable grade", zap.Any("id", rec[models.DefaultIDField]), zap.Error(err))
			continue
		}
		in.Grades = append(in.Grades, g)
	}

	subjectRecs, err := s.reader.Query(ctx, models.CollectionSubjects)
	if err != nil {
		return in, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	for _, rec := range subjectRecs {
		var subj models.Subject
		if err := models.FromRecord(rec, &subj); err != nil {
			s.logger.Warn("skipping undecodable subject", zap.Any("id", rec[models.DefaultIDField]), zap.Error(err))
			continue
		}
		in.Subjects = append(in.Subjects, subj)
	}

	return in, nil
}
