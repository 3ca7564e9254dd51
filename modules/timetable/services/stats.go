package services

import (
	"context"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
)

const DefaultTopSchools = 10

type StatsQuery struct {
	Scope     string
	Top       int
	Classes   domain.TableDescriptor
	Timetable domain.TableDescriptor
}

type StatsTotals struct {
	Schools int64 `db:"schools" json:"schools"`
	Classes int64 `db:"classes" json:"classes"`
	Entries int64 `db:"entries" json:"entries"`
}

type WeekdayCount struct {
	Weekday int    `db:"day_of_week" json:"weekday"`
	Label   string `db:"-" json:"label"`
	Entries int64  `db:"entries" json:"entries"`
}

type SchoolCount struct {
	SchoolID int64  `db:"school_id" json:"school_id"`
	Name     string `db:"name" json:"name"`
	Entries  int64  `db:"entries" json:"entries"`
	Grades   int64  `db:"grades" json:"grades"`
	Classes  int64  `db:"classes" json:"classes"`
}

type StatsReport struct {
	Scope     string         `json:"scope,omitempty"`
	Table     string         `json:"table"`
	Totals    StatsTotals    `json:"totals"`
	ByWeekday []WeekdayCount `json:"by_weekday"`
	Top       []SchoolCount  `json:"top_schools"`
}

// StatsService builds the read-only aggregate report.
type StatsService struct {
	reader StatsReader
}

func NewStatsService(reader StatsReader) *StatsService {
	return &StatsService{reader: reader}
}

func (s *StatsService) Report(ctx context.Context, q StatsQuery) (*StatsReport, error) {
	if q.Top <= 0 {
		q.Top = DefaultTopSchools
	}
	totals, err := s.reader.Totals(ctx, q)
	if err != nil {
		return nil, err
	}
	counts, err := s.reader.CountByWeekday(ctx, q)
	if err != nil {
		return nil, err
	}
	top, err := s.reader.TopSchools(ctx, q)
	if err != nil {
		return nil, err
	}
	if top == nil {
		top = []SchoolCount{}
	}
	return &StatsReport{
		Scope:     q.Scope,
		Table:     q.Timetable.Table,
		Totals:    totals,
		ByWeekday: fillWeekdays(counts),
		Top:       top,
	}, nil
}

// fillWeekdays returns Monday..Friday always, plus weekend days that have entries.
func fillWeekdays(counts []WeekdayCount) []WeekdayCount {
	byDay := make(map[int]int64, len(counts))
	for _, c := range counts {
		byDay[c.Weekday] += c.Entries
	}
	out := make([]WeekdayCount, 0, 7)
	for d := 1; d <= 7; d++ {
		n, ok := byDay[d]
		if !ok && !domain.IsSchoolDay(d) {
			continue
		}
		out = append(out, WeekdayCount{Weekday: d, Label: domain.WeekdayLabel(d), Entries: n})
	}
	return out
}
