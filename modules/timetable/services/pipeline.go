package services

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
	"github.com/heartware/timetable-sync/pkg/logging"
	"github.com/heartware/timetable-sync/pkg/tabular"
)

// PipelineOptions is the resolved configuration for one run.
type PipelineOptions struct {
	Schema         domain.Schema
	Sheet          string
	TrackFilter    string
	AuthorityScope string
	Grades         []int
	WeekdaySource  WeekdaySource
	// Weekday overrides the file name weekday when set (1-5).
	Weekday        int
	SchoolDaysOnly bool
	MaxPeriods     int
	BatchSize      int
	ClassConflict  domain.ConflictPolicy
	OnChunkError   ChunkPolicy
	Ambiguity      AmbiguityPolicy
	// RetryChunks limits writes to the listed chunks per table. Tables absent from a
	// non-nil map are not written.
	RetryChunks map[string]map[int]struct{}
	DryRun      bool
}

type PipelineDeps struct {
	Registry SchoolRegistry
	Classes  ClassResolver
	Writer   UpsertWriter
	Metrics  *Metrics
	Logger   *logrus.Entry
}

// Pipeline runs normalize, match, dedup and upsert for one file.
type Pipeline struct {
	deps PipelineDeps
	opts PipelineOptions
	log  *logrus.Entry
}

func NewPipeline(deps PipelineDeps, opts PipelineOptions) *Pipeline {
	log := deps.Logger
	if log == nil {
		log = logging.Nop()
	}
	if opts.WeekdaySource == "" {
		opts.WeekdaySource = WeekdayFromFileName
	}
	if opts.ClassConflict == "" {
		opts.ClassConflict = domain.ConflictIgnore
	}
	if opts.OnChunkError == "" {
		opts.OnChunkError = ChunkAbort
	}
	return &Pipeline{deps: deps, opts: opts, log: log}
}

func (p *Pipeline) dated() bool {
	return p.opts.WeekdaySource == WeekdayFromDateColumn
}

// Run returns the summary even when it also returns an error, so callers can report
// partial progress. Errors: *domain.FileStructureError before any write,
// *domain.MatchError when the registry fails, *domain.ChunkError when a chunk was
// rolled back, domain.ErrNothingWritten when no chunk committed a row.
func (p *Pipeline) Run(ctx context.Context, path string) (*Summary, error) {
	s := &Summary{
		RunID:     uuid.New(),
		File:      filepath.Base(path),
		Variant:   "weekday",
		DryRun:    p.opts.DryRun,
		Retry:     p.opts.RetryChunks != nil,
		StartedAt: time.Now().UTC(),
		Tables:    []TableResult{},
	}
	if p.dated() {
		s.Variant = "date"
	}
	log := p.log.WithFields(logrus.Fields{"run_id": s.RunID, "file": s.File})

	err := p.run(ctx, path, s, log)
	s.FinishedAt = time.Now().UTC()

	status := "ok"
	if err != nil {
		status = "failed"
	}
	p.deps.Metrics.recordFinished(status, float64(s.FinishedAt.Unix()))
	return s, err
}

func (p *Pipeline) run(ctx context.Context, path string, s *Summary, log *logrus.Entry) error {
	if _, ok := p.opts.RetryChunks[p.opts.Schema.Classes.Table]; ok {
		// entry chunks are numbered over resolved classes, so retried classes shift them
		return fmt.Errorf("%w: %s chunks cannot be retried on their own", domain.ErrFullRunRequired, p.opts.Schema.Classes.Table)
	}
	fileWeekday := 0
	if !p.dated() {
		fileWeekday = p.opts.Weekday
		if fileWeekday == 0 {
			wd, err := WeekdayFromFilename(path)
			if err != nil {
				return &domain.FileStructureError{Path: path, Reason: "weekday", Err: err}
			}
			fileWeekday = wd
		}
		s.Weekday = fileWeekday
	}

	scope := p.opts.AuthorityScope
	if scope == "" {
		scope = AuthorityFromFilename(path)
	}
	s.Scope = scope

	records, err := p.read(path, fileWeekday, s)
	if err != nil {
		return err
	}
	p.deps.Metrics.recordRows(s.Rows)
	log.WithFields(logrus.Fields{
		"read":     s.Rows.Read,
		"accepted": s.Rows.Accepted,
		"filtered": s.Rows.Filtered,
		"rejected": s.Rows.Rejected,
		"coerced":  s.Rows.Coerced,
	}).Info("rows normalized")

	matcher := NewMatcher(p.deps.Registry, MatcherOptions{Scope: scope, Ambiguity: p.opts.Ambiguity}, log)
	match, err := matcher.Match(ctx, records)
	if err != nil {
		return err
	}
	s.Match = MatchCounts{
		Groups:    match.Groups,
		Matched:   match.Matched(),
		Unmatched: len(match.Unmatched),
		Ambiguous: len(match.Ambiguous),
	}
	s.Unmatched = match.Unmatched
	s.Ambiguous = match.Ambiguous
	p.deps.Metrics.recordMatch(s.Match)

	staged := Dedup(records, match, p.opts.MaxPeriods)
	s.Dropped = staged.Dropped
	s.Staged = StagedCounts{Classes: len(staged.Classes), Entries: len(staged.Entries), Subjects: len(staged.Subjects)}

	if p.opts.DryRun {
		p.deps.Metrics.recordDropped(s.Dropped)
		log.Info("dry run: nothing written")
		return nil
	}

	err = p.write(ctx, staged, match, s, log)
	p.deps.Metrics.recordDropped(s.Dropped)
	if err != nil {
		return err
	}
	if len(s.FailedChunks) > 0 {
		return s.FailedChunks[0].AsError()
	}
	if s.Written == 0 {
		return domain.ErrNothingWritten
	}
	return nil
}

func (p *Pipeline) read(path string, fileWeekday int, s *Summary) ([]domain.Record, error) {
	r, err := tabular.Open(path, tabular.Options{Sheet: p.opts.Sheet})
	if err != nil {
		return nil, &domain.FileStructureError{Path: path, Reason: "open", Err: err}
	}
	defer r.Close()

	cols := p.opts.Schema.Source
	if err := tabular.RequireColumns(r.Header(), cols.Required(p.dated())...); err != nil {
		return nil, &domain.FileStructureError{Path: path, Reason: "header", Err: err}
	}

	norm := NewNormalizer(NormalizerOptions{
		Columns:        cols,
		TrackFilter:    p.opts.TrackFilter,
		Grades:         p.opts.Grades,
		WeekdaySource:  p.opts.WeekdaySource,
		FileWeekday:    fileWeekday,
		SchoolDaysOnly: p.opts.SchoolDaysOnly,
	})

	var records []domain.Record
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, &domain.FileStructureError{Path: path, Reason: "read", Err: err}
		}
		if row.Blank() {
			continue
		}
		outcome := norm.Normalize(row)
		s.addOutcome(outcome)
		if a, ok := outcome.(domain.Accepted); ok {
			records = append(records, a.Record)
		}
	}
	return records, nil
}

func (p *Pipeline) writeOptions(table string) (WriteOptions, bool) {
	opts := WriteOptions{
		BatchSize: p.opts.BatchSize,
		OnError:   p.opts.OnChunkError,
		OnChunk:   p.deps.Metrics.recordChunk,
	}
	if p.opts.RetryChunks != nil {
		chunks, ok := p.opts.RetryChunks[table]
		if !ok {
			return opts, false
		}
		opts.OnlyChunks = chunks
	}
	return opts, true
}

// upsert writes one table unless a retry run excludes it.
func (p *Pipeline) upsert(ctx context.Context, d domain.TableDescriptor, rows [][]any, s *Summary, log *logrus.Entry) error {
	opts, ok := p.writeOptions(d.Table)
	if !ok {
		log.WithField("table", d.Table).Debug("table not selected for retry")
		return nil
	}
	res, err := p.deps.Writer.Upsert(ctx, d, rows, opts)
	s.addTable(res)
	log.WithFields(logrus.Fields{
		"table":     d.Table,
		"records":   res.Records,
		"committed": res.Committed,
		"failed":    res.Failed,
		"affected":  res.Affected,
		"unchanged": res.Unchanged,
	}).Info("table written")
	return err
}

func (p *Pipeline) write(ctx context.Context, staged Staged, match *MatchResult, s *Summary, log *logrus.Entry) error {
	schema := p.opts.Schema

	classes := schema.Classes.WithPolicy(p.opts.ClassConflict)
	if err := p.upsert(ctx, classes, classRows(staged.Classes), s, log); err != nil {
		return err
	}

	ids, err := p.deps.Classes.ResolveClassIDs(ctx, classes, match.SchoolIDs())
	if err != nil {
		return &domain.ConnectionError{Err: fmt.Errorf("resolve class ids: %w", err)}
	}

	timetable := schema.Timetable(p.dated())
	rows, unresolved := entryRows(staged.Entries, ids, p.dated())
	s.Dropped.UnresolvedClass = unresolved
	if unresolved > 0 {
		log.WithField("entries", unresolved).Warn("entries dropped: class not stored")
	}
	if _, retried := p.writeOptions(timetable.Table); retried && unresolved > 0 && p.opts.RetryChunks != nil {
		return fmt.Errorf("%w: %d entries reference classes that are not stored", domain.ErrFullRunRequired, unresolved)
	}
	if err := p.upsert(ctx, timetable, rows, s, log); err != nil {
		return err
	}

	return p.upsert(ctx, schema.SchoolSubjects, schoolSubjectRows(staged.Subjects), s, log)
}
