// Package cli builds the setup commands shared by the basic and professional entry points.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-report-card/internal/fixtures"
	"github.com/noah-isme/sma-report-card/internal/grading"
	"github.com/noah-isme/sma-report-card/internal/models"
	"github.com/noah-isme/sma-report-card/internal/repository"
	"github.com/noah-isme/sma-report-card/internal/service"
	"github.com/noah-isme/sma-report-card/pkg/cache"
	"github.com/noah-isme/sma-report-card/pkg/config"
	"github.com/noah-isme/sma-report-card/pkg/logger"
	"github.com/noah-isme/sma-report-card/pkg/storage"
)

// ErrCollectionsFailed is returned when at least one collection did not complete.
var ErrCollectionsFailed = errors.New("one or more collections failed")

// Options describes a setup command variant.
type Options struct {
	Use   string
	Short string
	Mode  repository.WriteMode
}

// Option customises the command, mainly for tests.
type Option func(*setupCommand)

// WithConfig skips loading configuration from the environment.
func WithConfig(cfg *config.Config) Option {
	return func(s *setupCommand) { s.cfg = cfg }
}

// WithStore uses store instead of opening the configured driver.
func WithStore(store repository.DocumentStore) Option {
	return func(s *setupCommand) { s.store = store }
}

// WithLogger replaces the console logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *setupCommand) { s.logger = l }
}

type setupFlags struct {
	fixtures        string
	batchSize       int
	skipReportCards bool
	pdfDir          string
	csv             bool
}

type setupCommand struct {
	opts   Options
	flags  setupFlags
	cfg    *config.Config
	store  repository.DocumentStore
	logger *zap.Logger
}

// NewSetupCommand builds the cobra command for one setup variant.
func NewSetupCommand(opts Options, options ...Option) *cobra.Command {
	s := &setupCommand{opts: opts}
	for _, o := range options {
		o(s)
	}

	cmd := &cobra.Command{
		Use:           opts.Use,
		Short:         opts.Short,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return s.run(cmd.Context(), cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVar(&s.flags.fixtures, "fixtures", "", "fixture file (.yaml, .yml or .json); embedded defaults when empty")
	f.IntVar(&s.flags.batchSize, "batch-size", 0, fmt.Sprintf("documents per batch commit, at most %d", config.MaxBatchSize))
	f.BoolVar(&s.flags.skipReportCards, "skip-report-cards", false, "seed collections without generating report cards")
	f.StringVar(&s.flags.pdfDir, "pdf-dir", "", "directory to write generated report cards as PDF")
	f.BoolVar(&s.flags.csv, "csv", false, "print the summary as CSV instead of a table")
	return cmd
}

// Execute runs the command and returns the process exit code.
func Execute(ctx context.Context, cmd *cobra.Command) int {
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", cmd.Name(), err)
		return 1
	}
	return 0
}

func (s *setupCommand) run(ctx context.Context, out io.Writer) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := s.cfg
	if cfg == nil {
		if cfg, err = config.Load(); err != nil {
			return fmt.Errorf("load config: %w", err)
		}
	}

	log := s.logger
	if log == nil {
		if log, err = logger.NewCLI(cfg); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}
		defer log.Sync() //nolint:errcheck
	}

	fixturePath := s.flags.fixtures
	if fixturePath == "" {
		fixturePath = cfg.Setup.FixturesPath
	}
	fx, err := fixtures.Load(fixturePath)
	if err != nil {
		return err
	}
	for _, rej := range fx.Rejected {
		log.Warn("fixture record rejected", zap.String("collection", rej.Collection), zap.Int("index", rej.Index), zap.Error(rej.Err))
	}

	store := s.store
	if store == nil {
		if store, err = repository.Open(ctx, cfg); err != nil {
			return fmt.Errorf("open %s store: %w", cfg.Store.Driver, err)
		}
		defer func() {
			if cerr := store.Close(context.WithoutCancel(ctx)); cerr != nil {
				log.Warn("store close failed", zap.Error(cerr))
			}
		}()
	}

	var locker *repository.CollectionLocker
	if cfg.Setup.LockEnabled {
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("connect lock store: %w", err)
		}
		defer client.Close() //nolint:errcheck
		locker = repository.NewCollectionLocker(client, cfg.Setup.LockTTL)
	}

	batchSize := cfg.Setup.BatchSize
	if s.flags.batchSize > 0 {
		batchSize = s.flags.batchSize
	}
	metrics := service.NewMetricsService()
	writer := repository.NewDocumentWriter(store, log,
		repository.WithBatchSize(batchSize),
		repository.WithBatchTimeout(cfg.Setup.BatchTimeout),
		repository.WithObserver(metrics),
	)
	assembler := grading.NewAssembler(
		grading.NewRemarkGenerator(cfg.Grading.DeterministicRemarks),
		grading.DefaultAssessment(cfg.Grading.DefaultWeights),
		log,
	)

	var svc *service.SetupService
	if locker != nil {
		svc = service.NewSetupService(writer, assembler, locker, metrics, log, service.SetupServiceConfig{BcryptCost: cfg.Setup.BcryptCost})
	} else {
		svc = service.NewSetupService(writer, assembler, nil, metrics, log, service.SetupServiceConfig{BcryptCost: cfg.Setup.BcryptCost})
	}

	log.Info("setup starting",
		zap.String("mode", string(s.opts.Mode)),
		zap.String("store", cfg.Store.Driver),
		zap.String("term", fx.Term),
		zap.String("academic_year", fx.AcademicYear),
		zap.Int("batch_size", batchSize),
	)
	report, err := svc.Run(ctx, fx, service.SetupOptions{
		Mode:            s.opts.Mode,
		SkipReportCards: s.flags.skipReportCards,
		Actor:           models.SystemActor,
	})
	if err != nil {
		return err
	}

	exporter := service.NewExportService(nil, nil, log)
	if s.flags.pdfDir != "" && len(report.ReportCards) > 0 {
		dir, err := storage.NewLocalStorage(filepath.Clean(s.flags.pdfDir))
		if err != nil {
			return err
		}
		paths, err := exporter.SaveReportCards(dir, report.ReportCards)
		if err != nil {
			return fmt.Errorf("write report card pdfs: %w", err)
		}
		log.Info("report card pdfs written", zap.Int("count", len(paths)), zap.String("dir", s.flags.pdfDir))
	}

	if s.flags.csv {
		data, err := exporter.SummaryCSV(report)
		if err != nil {
			return err
		}
		if _, err := out.Write(data); err != nil {
			return err
		}
	} else if err := renderSummary(out, report); err != nil {
		return err
	}

	if report.Failed() {
		return ErrCollectionsFailed
	}
	return nil
}

func renderSummary(w io.Writer, report *service.SetupReport) error {
	data := service.SummaryDataset(report)
	table := tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row: tw.CellConfig{
			Alignment: tw.CellAlignment{
				PerColumn: []tw.Align{tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignRight, tw.AlignLeft},
			},
		},
	}))
	table.Header(toAny(data.Headers)...)
	for _, row := range data.Rows {
		if err := table.Append(toAny(row)...); err != nil {
			return err
		}
	}
	table.Footer(toAny(data.Footer)...)
	return table.Render()
}

func toAny(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = strings.TrimSpace(v)
	}
	return out
}

// Main wires signal handling around Execute for the cmd entry points.
func Main(opts Options) {
	ctx, stop := notifyContext()
	code := Execute(ctx, NewSetupCommand(opts))
	stop()
	os.Exit(code)
}
