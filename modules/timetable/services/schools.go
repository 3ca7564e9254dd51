package services

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/text/unicode/norm"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
	"github.com/heartware/timetable-sync/pkg/logging"
	"github.com/heartware/timetable-sync/pkg/tabular"
)

// Registry workbook headers.
const (
	colSchoolCode         = "행정표준코드"
	colSchoolName         = "학교명"
	colSchoolType         = "학교종류명"
	colOffice             = "시도교육청명"
	colProvince           = "시도명"
	colDistrict           = "구분"
	colEstablishment      = "설립명"
	colPhone              = "전화번호"
	colWebsite            = "홈페이지주소"
	colHighSchoolCategory = "고등학교구분명"
	colHighSchoolDivision = "고등학교일반전문구분명"
	colAddress            = "도로명주소"
)

type SchoolsSummary struct {
	RunID          uuid.UUID   `json:"run_id"`
	File           string      `json:"file"`
	Sheet          string      `json:"sheet,omitempty"`
	StartedAt      time.Time   `json:"started_at"`
	FinishedAt     time.Time   `json:"finished_at"`
	Rows           RowCounts   `json:"rows"`
	Duplicates     int         `json:"duplicates"`
	UnknownOffices []string    `json:"unknown_offices"`
	Table          TableResult `json:"table"`
}

// SchoolsService loads the school registry workbook into the schools table, keyed on
// the administrative code. Rows repeating a code keep the first occurrence.
type SchoolsService struct {
	writer  UpsertWriter
	table   domain.TableDescriptor
	metrics *Metrics
	log     *logrus.Entry
}

func NewSchoolsService(writer UpsertWriter, table domain.TableDescriptor, metrics *Metrics, log *logrus.Entry) *SchoolsService {
	if log == nil {
		log = logging.Nop()
	}
	return &SchoolsService{writer: writer, table: table, metrics: metrics, log: log}
}

// Import reads sheet (the first sheet when empty) and upserts every accepted school.
func (svc *SchoolsService) Import(ctx context.Context, path, sheet string, opts WriteOptions) (*SchoolsSummary, error) {
	s := &SchoolsSummary{
		RunID:          uuid.New(),
		File:           filepath.Base(path),
		Sheet:          sheet,
		StartedAt:      time.Now().UTC(),
		UnknownOffices: []string{},
	}
	defer func() { s.FinishedAt = time.Now().UTC() }()

	schools, err := svc.read(path, sheet, s)
	if err != nil {
		return s, err
	}
	for _, office := range s.UnknownOffices {
		svc.log.WithField("office", office).Warnf("unknown education office, stored as %s", domain.UnknownOfficeCode)
	}

	if opts.OnChunk == nil {
		opts.OnChunk = svc.metrics.recordChunk
	}
	res, err := svc.writer.Upsert(ctx, svc.table, schoolRows(schools), opts)
	s.Table = res
	svc.log.WithFields(logrus.Fields{
		"run_id":    s.RunID,
		"table":     res.Table,
		"records":   res.Records,
		"affected":  res.Affected,
		"unchanged": res.Unchanged,
	}).Info("school registry written")
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

func (svc *SchoolsService) read(path, sheet string, s *SchoolsSummary) ([]domain.RegistrySchool, error) {
	r, err := tabular.Open(path, tabular.Options{Sheet: sheet})
	if err != nil {
		return nil, &domain.FileStructureError{Path: path, Reason: "open", Err: err}
	}
	defer r.Close()
	if err := tabular.RequireColumns(r.Header(), colSchoolCode, colSchoolName, colOffice); err != nil {
		return nil, &domain.FileStructureError{Path: path, Reason: "header", Err: err}
	}

	seen := make(map[string]struct{})
	var out []domain.RegistrySchool
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &domain.FileStructureError{Path: path, Reason: "read", Err: err}
		}
		if row.Blank() {
			continue
		}
		s.Rows.Read++
		get := func(col string) string { return norm.NFC.String(row.Get(col)) }

		school := domain.RegistrySchool{
			AdministrativeCode: get(colSchoolCode),
			Name:               get(colSchoolName),
			SchoolType:         get(colSchoolType),
			Office:             get(colOffice),
			Province:           get(colProvince),
			District:           get(colDistrict),
			EstablishmentType:  get(colEstablishment),
			Phone:              get(colPhone),
			Website:            get(colWebsite),
			HighSchoolCategory: get(colHighSchoolCategory),
			HighSchoolDivision: get(colHighSchoolDivision),
			Address:            get(colAddress),
		}
		if school.AdministrativeCode == "" || school.Name == "" {
			s.Rows.Rejected++
			continue
		}
		s.Rows.Accepted++
		if _, ok := seen[school.AdministrativeCode]; ok {
			s.Duplicates++
			continue
		}
		seen[school.AdministrativeCode] = struct{}{}

		if school.SchoolType == "" {
			school.SchoolType = domain.DefaultSchoolType
		}
		code, known := domain.OfficeCode(school.Office)
		school.OfficeCode = code
		if !known && !slices.Contains(s.UnknownOffices, school.Office) {
			s.UnknownOffices = append(s.UnknownOffices, school.Office)
		}
		out = append(out, school)
	}
	return out, nil
}
