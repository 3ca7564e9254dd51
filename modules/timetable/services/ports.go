package services

import (
	"context"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
)

// SchoolRegistry is the read-only view of the schools table.
type SchoolRegistry interface {
	FindSchools(ctx context.Context, ref domain.SchoolRef, scope string) ([]domain.School, error)
	ListSchoolNames(ctx context.Context, scope string) ([]string, error)
}

// ClassResolver maps class natural keys to stored ids after classes are written.
type ClassResolver interface {
	ResolveClassIDs(ctx context.Context, d domain.TableDescriptor, schoolIDs []int64) (map[domain.ClassKey]int64, error)
}

// UpsertWriter persists positional rows for a table descriptor in chunked transactions.
type UpsertWriter interface {
	Upsert(ctx context.Context, d domain.TableDescriptor, rows [][]any, opts WriteOptions) (TableResult, error)
}

// StatsReader serves the read-only post-load aggregates.
type StatsReader interface {
	Totals(ctx context.Context, q StatsQuery) (StatsTotals, error)
	CountByWeekday(ctx context.Context, q StatsQuery) ([]WeekdayCount, error)
	TopSchools(ctx context.Context, q StatsQuery) ([]SchoolCount, error)
}
