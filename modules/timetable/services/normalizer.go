package services

import (
	"golang.org/x/text/unicode/norm"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
	"github.com/heartware/timetable-sync/pkg/tabular"
)

type WeekdaySource string

const (
	WeekdayFromFileName   WeekdaySource = "filename"
	WeekdayFromDateColumn WeekdaySource = "date_column"
)

const (
	ReasonTrack          = "track"
	ReasonGrade          = "grade"
	ReasonMissingSchool  = "missing_school"
	ReasonInvalidDate    = "invalid_date"
	ReasonNonSchoolDay   = "non_school_day"
	ReasonMissingWeekday = "missing_weekday"
)

type NormalizerOptions struct {
	Columns domain.SourceColumns
	// TrackFilter keeps only rows whose track equals it. Empty keeps every track.
	TrackFilter string
	// Grades keeps only listed grades. Empty keeps every grade.
	Grades         []int
	WeekdaySource  WeekdaySource
	FileWeekday    int
	SchoolDaysOnly bool
}

// Normalizer turns raw rows into typed records.
type Normalizer struct {
	opts   NormalizerOptions
	grades map[int]struct{}
}

func NewNormalizer(opts NormalizerOptions) *Normalizer {
	n := &Normalizer{opts: opts}
	if len(opts.Grades) > 0 {
		n.grades = make(map[int]struct{}, len(opts.Grades))
		for _, g := range opts.Grades {
			n.grades[g] = struct{}{}
		}
	}
	return n
}

func (n *Normalizer) cell(row tabular.Row, column string) string {
	return norm.NFC.String(row.Get(column))
}

func (n *Normalizer) Normalize(row tabular.Row) domain.Outcome {
	c := n.opts.Columns
	rec := domain.Record{
		Line: row.Line,
		School: domain.SchoolRef{
			AdministrativeCode: n.cell(row, c.AdministrativeCode),
			Name:               n.cell(row, c.SchoolName),
			AuthorityCode:      n.cell(row, c.AuthorityCode),
			AuthorityName:      n.cell(row, c.AuthorityName),
		},
		Track:      n.cell(row, c.Track),
		Department: n.cell(row, c.Department),
		Classroom:  n.cell(row, c.Classroom),
		Subject:    n.cell(row, c.Subject),
	}

	if rec.School.Name == "" && rec.School.AdministrativeCode == "" {
		return domain.Rejected{Line: row.Line, Reason: ReasonMissingSchool}
	}
	if n.opts.TrackFilter != "" && rec.Track != n.opts.TrackFilter {
		return domain.Excluded{Line: row.Line, Reason: ReasonTrack}
	}

	ints := []struct {
		field  string
		raw    string
		target *int
		parse  func(string) (int, bool)
	}{
		{c.AcademicYear, n.cell(row, c.AcademicYear), &rec.AcademicYear, coerceInt},
		{c.Semester, n.cell(row, c.Semester), &rec.Semester, coerceInt},
		{c.Grade, n.cell(row, c.Grade), &rec.Grade, coerceInt},
		{c.ClassName, n.cell(row, c.ClassName), &rec.ClassNumber, coerceClassNumber},
		{c.Period, n.cell(row, c.Period), &rec.Period, coerceInt},
	}
	for _, f := range ints {
		v, ok := f.parse(f.raw)
		*f.target = v
		if !ok {
			rec.Coerced = append(rec.Coerced, f.field)
		}
	}

	if n.grades != nil {
		if _, ok := n.grades[rec.Grade]; !ok {
			return domain.Excluded{Line: row.Line, Reason: ReasonGrade}
		}
	}

	switch n.opts.WeekdaySource {
	case WeekdayFromDateColumn:
		raw := n.cell(row, c.Date)
		d, err := ParseCompactDate(raw)
		if err != nil {
			return domain.Rejected{
				Line:   row.Line,
				Reason: ReasonInvalidDate,
				Err:    &domain.ParseError{Line: row.Line, Field: c.Date, Value: raw, Err: err},
			}
		}
		rec.Date = d
		rec.Weekday = ISOWeekday(d)
		if n.opts.SchoolDaysOnly && !domain.IsSchoolDay(rec.Weekday) {
			return domain.Rejected{
				Line:   row.Line,
				Reason: ReasonNonSchoolDay,
				Err:    &domain.ParseError{Line: row.Line, Field: c.Date, Value: raw},
			}
		}
	default:
		if n.opts.FileWeekday <= 0 {
			return domain.Rejected{Line: row.Line, Reason: ReasonMissingWeekday}
		}
		rec.Weekday = n.opts.FileWeekday
	}

	modified, ok := parseModifiedDate(n.cell(row, c.ModifiedDate))
	rec.ModifiedDate = modified
	if !ok {
		rec.Coerced = append(rec.Coerced, c.ModifiedDate)
	}

	return domain.Accepted{Record: rec}
}
