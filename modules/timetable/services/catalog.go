package services

import (
	"context"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
	"github.com/heartware/timetable-sync/pkg/logging"
	"github.com/heartware/timetable-sync/pkg/tabular"
)

// DefaultCatalogSheet is the workbook sheet holding the subject master list.
const DefaultCatalogSheet = "전과목"

type CatalogSummary struct {
	RunID      uuid.UUID   `json:"run_id"`
	File       string      `json:"file"`
	Sheet      string      `json:"sheet"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Rows       RowCounts   `json:"rows"`
	Duplicates int         `json:"duplicates"`
	Table      TableResult `json:"table"`
}

// CatalogService loads the subject master workbook. Columns are positional:
// subject name, department name, subject type.
type CatalogService struct {
	writer  UpsertWriter
	table   domain.TableDescriptor
	metrics *Metrics
	log     *logrus.Entry
}

func NewCatalogService(writer UpsertWriter, table domain.TableDescriptor, metrics *Metrics, log *logrus.Entry) *CatalogService {
	if log == nil {
		log = logging.Nop()
	}
	return &CatalogService{writer: writer, table: table, metrics: metrics, log: log}
}

func (c *CatalogService) Import(ctx context.Context, path, sheet string, opts WriteOptions) (*CatalogSummary, error) {
	if sheet == "" {
		sheet = DefaultCatalogSheet
	}
	s := &CatalogSummary{
		RunID:     uuid.New(),
		File:      filepath.Base(path),
		Sheet:     sheet,
		StartedAt: time.Now().UTC(),
	}
	defer func() { s.FinishedAt = time.Now().UTC() }()

	subjects, err := c.read(path, sheet, s)
	if err != nil {
		return s, err
	}

	if opts.OnChunk == nil {
		opts.OnChunk = c.metrics.recordChunk
	}
	res, err := c.writer.Upsert(ctx, c.table, catalogRows(subjects), opts)
	s.Table = res
	c.log.WithFields(logrus.Fields{
		"run_id":    s.RunID,
		"table":     res.Table,
		"records":   res.Records,
		"affected":  res.Affected,
		"unchanged": res.Unchanged,
	}).Info("subject catalog written")
	if err != nil {
		return s, err
	}
	if len(res.Failures) > 0 {
		return s, res.Failures[0].AsError()
	}
	if res.Written == 0 {
		return s, domain.ErrNothingWritten
	}
	return s, nil
}

func (c *CatalogService) read(path, sheet string, s *CatalogSummary) ([]domain.CatalogSubject, error) {
	r, err := tabular.Open(path, tabular.Options{Sheet: sheet})
	if err != nil {
		return nil, &domain.FileStructureError{Path: path, Reason: "open", Err: err}
	}
	defer r.Close()
	if len(r.Header()) < 3 {
		return nil, &domain.FileStructureError{Path: path, Reason: "header: expected at least 3 columns"}
	}

	seen := make(map[domain.CatalogSubjectKey]struct{})
	var out []domain.CatalogSubject
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
		s.Rows.Read++
		key := domain.CatalogSubjectKey{
			Name:       norm.NFC.String(row.At(0)),
			Department: norm.NFC.String(row.At(1)),
		}
		if key.Name == "" || key.Department == "" {
			s.Rows.Rejected++
			continue
		}
		s.Rows.Accepted++
		if _, ok := seen[key]; ok {
			s.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		out = append(out, domain.CatalogSubject{
			Key:         key,
			Type:        norm.NFC.String(row.At(2)),
			CreditHours: domain.DefaultCreditHours,
		})
	}
	return out, nil
}
