package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/sma-report-card/internal/fixtures"
	"github.com/noah-isme/sma-report-card/internal/grading"
	"github.com/noah-isme/sma-report-card/internal/models"
	"github.com/noah-isme/sma-report-card/internal/repository"
	appErrors "github.com/noah-isme/sma-report-card/pkg/errors"
)

type collectionLocker interface {
	Acquire(ctx context.Context, collection string) (repository.ReleaseFunc, error)
}

// SetupOptions controls one setup run.
type SetupOptions struct {
	Mode            repository.WriteMode
	SkipReportCards bool
	Actor           models.Actor
}

// CollectionResult is the outcome of writing one collection. A failed
// collection never affects the others.
type CollectionResult struct {
	Collection string
	Success    bool
	Result     *repository.WriteResult
	Err        error
	Duration   time.Duration
}

// SetupReport summarises a setup run.
type SetupReport struct {
	Mode        repository.WriteMode
	Results     []CollectionResult
	Rejected    []fixtures.Rejected
	ReportCards []*models.ReportCard
}

// Failed reports whether any collection failed.
func (r *SetupReport) Failed() bool {
	if r == nil {
		return false
	}
	for _, res := range r.Results {
		if !res.Success {
			return true
		}
	}
	return false
}

// SetupServiceConfig tunes setup behaviour.
type SetupServiceConfig struct {
	BcryptCost int
}

// SetupService seeds collections from fixtures and generates report cards.
type SetupService struct {
	writer    collectionWriter
	assembler reportAssembler
	locker    collectionLocker
	metrics   *MetricsService
	logger    *zap.Logger
	cfg       SetupServiceConfig
}

// NewSetupService constructs the setup service. locker may be nil.
func NewSetupService(writer collectionWriter, assembler reportAssembler, locker collectionLocker, metrics *MetricsService, logger *zap.Logger, cfg SetupServiceConfig) *SetupService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.BcryptCost < bcrypt.MinCost || cfg.BcryptCost > bcrypt.MaxCost {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	return &SetupService{
		writer:    writer,
		assembler: assembler,
		locker:    locker,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
	}
}

type collectionJob struct {
	name    string
	idField string
	records []models.Record
	err     error
}

// Run writes every fixture collection concurrently, one goroutine per
// collection, and returns a per-collection report.
func (s *SetupService) Run(ctx context.Context, fx *fixtures.Fixtures, opts SetupOptions) (*SetupReport, error) {
	if fx == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fixtures are required")
	}
	if opts.Mode == "" {
		opts.Mode = repository.ModeCheckFirst
	}
	if opts.Actor.UserID == "" {
		opts.Actor = models.SystemActor
	}

	report := &SetupReport{Mode: opts.Mode, Rejected: append([]fixtures.Rejected(nil), fx.Rejected...)}

	prepared := make(map[string][]models.Record, len(fx.Collections))
	for _, name := range fx.CollectionNames() {
		prepared[name] = copyRecords(fx.Collections[name])
	}
	prepared[models.CollectionStaff] = s.hashPasswords(prepared[models.CollectionStaff], report)

	jobs := make([]collectionJob, 0, len(prepared)+1)
	var cardsJob *collectionJob
	if !opts.SkipReportCards {
		cards, students, err := s.buildReportCards(fx, prepared[models.CollectionStudents], opts.Actor)
		job := collectionJob{name: models.CollectionReportCards, idField: models.ReportCardIDField, err: err}
		if err == nil {
			report.ReportCards = cards
			prepared[models.CollectionStudents] = students
			for _, card := range cards {
				rec, encErr := models.ToRecord(card)
				if encErr != nil {
					job.err = encErr
					break
				}
				job.records = append(job.records, rec)
			}
		}
		cardsJob = &job
	}

	for _, name := range fx.CollectionNames() {
		jobs = append(jobs, collectionJob{name: name, idField: models.DefaultIDField, records: prepared[name]})
	}
	if cardsJob != nil {
		jobs = append(jobs, *cardsJob)
	}

	report.Results = make([]CollectionResult, len(jobs))
	var wg sync.WaitGroup
	for i := range jobs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			report.Results[i] = s.runCollection(ctx, jobs[i], opts.Mode)
		}(i)
	}
	wg.Wait()

	for _, card := range report.ReportCards {
		s.metrics.ObserveReportCard(string(card.AcademicPerformance.Grade))
	}
	s.logger.Info("setup finished",
		zap.String("mode", string(opts.Mode)),
		zap.Int("collections", len(report.Results)),
		zap.Int("rejected", len(report.Rejected)),
		zap.Bool("failed", report.Failed()),
	)
	return report, nil
}

func (s *SetupService) runCollection(ctx context.Context, job collectionJob, mode repository.WriteMode) (res CollectionResult) {
	start := time.Now()
	res.Collection = job.name
	log := s.logger.With(zap.String("collection", job.name))

	defer func() {
		if r := recover(); r != nil {
			res.Success = false
			res.Err = fmt.Errorf("collection %s panicked: %v", job.name, r)
			log.Error("collection setup panicked", zap.Any("panic", r))
		}
		res.Duration = time.Since(start)
	}()

	if job.err != nil {
		res.Err = job.err
		log.Error("collection could not be prepared", zap.Error(job.err))
		return res
	}

	if s.locker != nil {
		release, err := s.locker.Acquire(ctx, job.name)
		if err != nil {
			res.Err = err
			log.Warn("collection lock not acquired", zap.Error(err))
			return res
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("collection lock release failed", zap.Error(err))
			}
		}()
	}

	result, err := s.writer.WriteCollection(ctx, job.name, job.records, job.idField, mode)
	res.Result = result
	res.Err = err
	res.Success = err == nil
	if err != nil {
		log.Error("collection setup failed", zap.Error(err))
		return res
	}
	log.Info("collection setup completed",
		zap.Int("written", result.Written),
		zap.Int("skipped", result.Skipped),
		zap.Int("invalid", result.Invalid),
	)
	return res
}

// hashPasswords replaces plaintext fixture passwords with bcrypt hashes.
// Records whose password cannot be hashed are rejected.
func (s *SetupService) hashPasswords(records []models.Record, report *SetupReport) []models.Record {
	out := make([]models.Record, 0, len(records))
	for i, rec := range records {
		plain, ok := rec["password"].(string)
		delete(rec, "password")
		if ok && plain != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(plain), s.cfg.BcryptCost)
			if err != nil {
				report.Rejected = append(report.Rejected, fixtures.Rejected{Collection: models.CollectionStaff, Index: i, Err: err})
				continue
			}
			rec["passwordHash"] = string(hash)
		}
		out = append(out, rec)
	}
	return out
}

// buildReportCards assembles one card per student, ranks each class and
// appends the term to each student's history. It returns the cards and the
// updated student records.
func (s *SetupService) buildReportCards(fx *fixtures.Fixtures, studentRecords []models.Record, actor models.Actor) ([]*models.ReportCard, []models.Record, error) {
	students, err := fx.Students()
	if err != nil {
		return nil, nil, err
	}
	classes, err := fx.Classes()
	if err != nil {
		return nil, nil, err
	}
	subjects, err := fx.Subjects()
	if err != nil {
		return nil, nil, err
	}
	grades, err := fx.Grades()
	if err != nil {
		return nil, nil, err
	}

	classByID := make(map[string]models.Class, len(classes))
	for _, c := range classes {
		classByID[c.ID] = c
	}
	gradesByStudent := make(map[string][]models.Grade)
	for _, g := range grades {
		gradesByStudent[g.StudentID] = append(gradesByStudent[g.StudentID], g)
	}

	cards := make([]*models.ReportCard, 0, len(students))
	rankEntries := make(map[string][]grading.RankEntry)
	for _, student := range students {
		class, ok := classByID[student.ClassID]
		if !ok {
			class = models.Class{ID: student.ClassID}
		}
		in := grading.AssembleInput{
			Student:      student,
			Class:        class,
			Subjects:     subjects,
			Grades:       gradesByStudent[student.ID],
			Actor:        actor,
			Term:         fx.Term,
			AcademicYear: fx.AcademicYear,
		}
		if att, ok := fx.Attendance[student.ID]; ok {
			in.Attendance = &att
		}
		card := s.assembler.Assemble(in)
		cards = append(cards, card)
		if len(card.ScoredSubjects()) > 0 {
			rankEntries[card.ClassID] = append(rankEntries[card.ClassID], grading.RankEntry{
				StudentID:  card.StudentID,
				Percentage: card.AcademicPerformance.Percentage,
			})
		}
	}

	for _, entries := range rankEntries {
		ranks := grading.RankClass(entries)
		for _, card := range cards {
			if rank, ok := ranks[card.StudentID]; ok && card.AcademicPerformance.Rank == nil {
				r := rank
				card.AcademicPerformance.Rank = &r
			}
		}
	}
	sort.Slice(cards, func(i, j int) bool { return cards[i].ReportCardID < cards[j].ReportCardID })

	updated, err := appendHistory(studentRecords, students, cards)
	if err != nil {
		return nil, nil, err
	}
	return cards, updated, nil
}

func appendHistory(records []models.Record, students []models.Student, cards []*models.ReportCard) ([]models.Record, error) {
	cardByStudent := make(map[string]*models.ReportCard, len(cards))
	for _, card := range cards {
		cardByStudent[card.StudentID] = card
	}
	studentByID := make(map[string]models.Student, len(students))
	for _, st := range students {
		studentByID[st.ID] = st
	}

	out := make([]models.Record, 0, len(records))
	for _, rec := range records {
		id, _ := rec.ID(models.DefaultIDField)
		student, okStudent := studentByID[id]
		card, okCard := cardByStudent[id]
		if !okStudent || !okCard {
			out = append(out, rec)
			continue
		}
		err := student.RecordTerm(models.TermSummary{
			Term:         card.Term,
			AcademicYear: card.AcademicYear,
			Percentage:   card.AcademicPerformance.Percentage,
			Grade:        card.AcademicPerformance.Grade,
			ReportCardID: card.ReportCardID,
		})
		if err != nil && !errors.Is(err, appErrors.ErrConflict) {
			return nil, err
		}
		history, err := models.ToRecord(struct {
			History []models.TermSummary `json:"history"`
		}{History: student.History})
		if err != nil {
			return nil, err
		}
		rec["history"] = history["history"]
		out = append(out, rec)
	}
	return out, nil
}

func copyRecords(records []models.Record) []models.Record {
	out := make([]models.Record, 0, len(records))
	for _, rec := range records {
		cp := make(models.Record, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}
