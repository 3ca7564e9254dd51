package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
	"github.com/heartware/timetable-sync/modules/timetable/infrastructure/persistence"
	"github.com/heartware/timetable-sync/modules/timetable/services"
	"github.com/heartware/timetable-sync/pkg/composables"
	"github.com/heartware/timetable-sync/pkg/configuration"
)

type importOptions struct {
	weekday       int
	stats         bool
	top           int
	scope         string
	track         string
	grades        []int
	maxPeriods    int
	allDays       bool
	batchSize     int
	weekdaySource string
	classConflict string
	onChunkError  string
	ambiguous     string
	retryChunks   []string
	sheet         string
	schemaPath    string
	dryRun        bool
	outputDir     string
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a timetable export (CSV or XLSX) into the database",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cmd.OutOrStdout(), cmd.Flags(), args[0], opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.weekday, "weekday", 0, "Weekday override 1-5 (default: derived from the file name)")
	f.BoolVar(&opts.stats, "stats", false, "Print database statistics after a successful import")
	f.IntVar(&opts.top, "top", services.DefaultTopSchools, "Schools listed by --stats")
	f.StringVar(&opts.scope, "scope", "", "Education authority code limiting school matching (default: derived from the file name)")
	f.StringVar(&opts.track, "track", "", "Track filter, empty string disables it")
	f.IntSliceVar(&opts.grades, "grades", nil, "Grades to import (default: all)")
	f.IntVar(&opts.maxPeriods, "max-periods", 0, "Highest period number kept")
	f.BoolVar(&opts.allDays, "all-days", false, "Keep weekend dates in date_column mode")
	f.IntVar(&opts.batchSize, "batch-size", 0, "Records per chunk transaction")
	f.StringVar(&opts.weekdaySource, "weekday-source", "", "Weekday source: filename|date_column")
	f.StringVar(&opts.classConflict, "class-conflict", "", "Existing class rows: ignore|update")
	f.StringVar(&opts.onChunkError, "on-chunk-error", "", "Failed chunk handling: abort|continue")
	f.StringVar(&opts.ambiguous, "ambiguous", "", "Ambiguous school matches: reject|first")
	f.StringArrayVar(&opts.retryChunks, "retry-chunks", nil, "Only write these chunks, e.g. school_timetables=2,3 (repeatable)")
	f.StringVar(&opts.sheet, "sheet", "", "Worksheet name for XLSX input (default: first sheet)")
	f.StringVar(&opts.schemaPath, "schema", "", "YAML file overriding table descriptors")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Normalize and match without writing")
	f.StringVar(&opts.outputDir, "output", "", "Directory for the JSON run report")
	return cmd
}

// applyImportFlags overlays explicitly set flags on the environment defaults.
func applyImportFlags(flags *pflag.FlagSet, cfg *configuration.ImportOptions, opts importOptions) {
	lower := func(v string) string { return strings.ToLower(strings.TrimSpace(v)) }
	if flags.Changed("scope") {
		cfg.AuthorityScope = strings.ToUpper(strings.TrimSpace(opts.scope))
	}
	if flags.Changed("track") {
		cfg.TrackFilter = strings.TrimSpace(opts.track)
	}
	if flags.Changed("grades") {
		cfg.Grades = opts.grades
	}
	if flags.Changed("max-periods") {
		cfg.MaxPeriods = opts.maxPeriods
	}
	if flags.Changed("all-days") {
		cfg.SchoolDaysOnly = !opts.allDays
	}
	if flags.Changed("batch-size") {
		cfg.BatchSize = opts.batchSize
	}
	if flags.Changed("weekday-source") {
		cfg.WeekdaySource = lower(opts.weekdaySource)
	}
	if flags.Changed("class-conflict") {
		cfg.ClassConflict = lower(opts.classConflict)
	}
	if flags.Changed("on-chunk-error") {
		cfg.OnChunkError = lower(opts.onChunkError)
	}
	if flags.Changed("ambiguous") {
		cfg.AmbiguousMatch = lower(opts.ambiguous)
	}
}

// parseRetryChunks turns "table=2,3" values into per-table chunk sets. Repeated
// tables are merged. No values yields nil, meaning a normal run.
func parseRetryChunks(values []string) (map[string]map[int]struct{}, error) {
	if len(values) == 0 {
		return nil, nil
	}
	out := make(map[string]map[int]struct{}, len(values))
	for _, v := range values {
		table, list, ok := strings.Cut(strings.TrimSpace(v), "=")
		table = strings.TrimSpace(table)
		if !ok || table == "" {
			return nil, fmt.Errorf("invalid --retry-chunks %q: expected table=N[,N...]", v)
		}
		chunks := out[table]
		if chunks == nil {
			chunks = map[int]struct{}{}
			out[table] = chunks
		}
		for _, part := range strings.Split(list, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			n, err := strconv.Atoi(part)
			if err != nil || n < 1 {
				return nil, fmt.Errorf("invalid --retry-chunks %q: chunk %q is not a positive integer", v, part)
			}
			chunks[n] = struct{}{}
		}
		if len(chunks) == 0 {
			return nil, fmt.Errorf("invalid --retry-chunks %q: no chunks listed", v)
		}
	}
	return out, nil
}

func pipelineOptions(cfg configuration.ImportOptions, schema domain.Schema, opts importOptions) (services.PipelineOptions, error) {
	if opts.weekday != 0 && !domain.IsSchoolDay(opts.weekday) {
		return services.PipelineOptions{}, fmt.Errorf("invalid --weekday %d: expected 1-5", opts.weekday)
	}
	retry, err := parseRetryChunks(opts.retryChunks)
	if err != nil {
		return services.PipelineOptions{}, err
	}
	for table := range retry {
		if !knownTable(schema, table) {
			return services.PipelineOptions{}, fmt.Errorf("invalid --retry-chunks: unknown table %q", table)
		}
	}
	return services.PipelineOptions{
		Schema:         schema,
		Sheet:          opts.sheet,
		TrackFilter:    cfg.TrackFilter,
		AuthorityScope: cfg.AuthorityScope,
		Grades:         cfg.Grades,
		WeekdaySource:  services.WeekdaySource(cfg.WeekdaySource),
		Weekday:        opts.weekday,
		SchoolDaysOnly: cfg.SchoolDaysOnly,
		MaxPeriods:     cfg.MaxPeriods,
		BatchSize:      cfg.BatchSize,
		ClassConflict:  domain.ConflictPolicy(cfg.ClassConflict),
		OnChunkError:   services.ChunkPolicy(cfg.OnChunkError),
		Ambiguity:      services.AmbiguityPolicy(cfg.AmbiguousMatch),
		RetryChunks:    retry,
		DryRun:         opts.dryRun,
	}, nil
}

// knownTable reports whether the timetable import writes table.
func knownTable(schema domain.Schema, table string) bool {
	for _, d := range []domain.TableDescriptor{schema.Classes, schema.Timetables, schema.TimetableDays, schema.SchoolSubjects} {
		if d.Table == table {
			return true
		}
	}
	return false
}

func runImport(ctx context.Context, out io.Writer, flags *pflag.FlagSet, path string, opts importOptions) error {
	if strings.TrimSpace(path) == "" {
		return withCode(exitUsage, fmt.Errorf("input file is required"))
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	defer cfg.Unload()

	applyImportFlags(flags, &cfg.Import, opts)
	if err := cfg.Validate(); err != nil {
		return withCode(exitUsage, err)
	}
	schema, err := loadSchema(opts.schemaPath)
	if err != nil {
		return err
	}
	popts, err := pipelineOptions(cfg.Import, schema, opts)
	if err != nil {
		return withCode(exitUsage, err)
	}

	log := commandLogger(cfg, "import")
	pool, err := connectDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()
	ctx = composables.WithPool(ctx, pool)
	ctx = composables.WithLogger(ctx, log)

	metrics := services.NewMetrics()
	pipeline := services.NewPipeline(services.PipelineDeps{
		Registry: persistence.NewRegistryRepository(),
		Classes:  persistence.NewClassRepository(),
		Writer:   persistence.NewUpsertWriter(log),
		Metrics:  metrics,
		Logger:   log,
	}, popts)

	summary, runErr := pipeline.Run(ctx, path)
	if runErr == nil && opts.stats && !opts.dryRun {
		report, err := importStats(ctx, cfg, statsQuery(schema, cfg.Import.WeekdaySource, summary.Scope, opts.top))
		if err != nil {
			log.WithError(err).Error("stats after import failed")
			runErr = err
		}
		summary.Stats = report
	}

	writeMetrics(log, metrics, cfg.MetricsTextfile)
	if opts.outputDir != "" {
		report := filepath.Join(opts.outputDir, fmt.Sprintf("timetable-import-%s.json", summary.RunID))
		if err := writeJSONFile(report, summary); err != nil {
			return err
		}
	}
	if err := writeJSONLine(out, summary.Line(runStatus(summary, runErr))); err != nil {
		return err
	}
	return classify(runErr)
}

func runStatus(s *services.Summary, err error) string {
	switch {
	case err != nil:
		return "failed"
	case s.DryRun:
		return "dry_run"
	default:
		return "ok"
	}
}

// statsQuery targets the entries table that weekdaySource writes to.
func statsQuery(schema domain.Schema, weekdaySource, scope string, top int) services.StatsQuery {
	dated := services.WeekdaySource(weekdaySource) == services.WeekdayFromDateColumn
	return services.StatsQuery{
		Scope:     scope,
		Top:       top,
		Classes:   schema.Classes,
		Timetable: schema.Timetable(dated),
	}
}

func importStats(ctx context.Context, cfg *configuration.Configuration, q services.StatsQuery) (*services.StatsReport, error) {
	db, err := connectSQLX(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	defer db.Close()
	return services.NewStatsService(persistence.NewStatsRepository(db)).Report(ctx, q)
}

func writeMetrics(log *logrus.Entry, m *services.Metrics, path string) {
	if path == "" {
		return
	}
	if err := m.WriteTextfile(path); err != nil {
		log.WithError(err).WithField("path", path).Warn("metrics textfile not written")
	}
}
