package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jmoiron/sqlx"

	"github.com/heartware/timetable-sync/modules/timetable/services"
)

// StatsRepository runs read-only aggregates over database/sql.
type StatsRepository struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func totalsQuery(q services.StatsQuery) string {
	return fmt.Sprintf(`
	SELECT
	  (SELECT COUNT(*) FROM schools s WHERE $1 = '' OR s.education_office_code = $1) AS schools,
	  (SELECT COUNT(*) FROM %[1]s c JOIN schools s ON s.id = c.school_id WHERE $1 = '' OR s.education_office_code = $1) AS classes,
	  (SELECT COUNT(*) FROM %[2]s t JOIN schools s ON s.id = t.school_id WHERE $1 = '' OR s.education_office_code = $1) AS entries`,
		ident(q.Classes.Table), ident(q.Timetable.Table))
}

func weekdayQuery(q services.StatsQuery) string {
	return fmt.Sprintf(`
	SELECT t.day_of_week AS day_of_week, COUNT(*) AS entries
	FROM %s t
	JOIN schools s ON s.id = t.school_id
	WHERE $1 = '' OR s.education_office_code = $1
	GROUP BY t.day_of_week
	ORDER BY t.day_of_week ASC`, ident(q.Timetable.Table))
}

func topSchoolsQuery(q services.StatsQuery) string {
	return fmt.Sprintf(`
	SELECT s.id AS school_id,
	       s.name AS name,
	       COUNT(*) AS entries,
	       COUNT(DISTINCT c.grade) AS grades,
	       COUNT(DISTINCT c.id) AS classes
	FROM %s t
	JOIN schools s ON s.id = t.school_id
	JOIN %s c ON c.id = t.class_id
	WHERE $1 = '' OR s.education_office_code = $1
	GROUP BY s.id, s.name
	ORDER BY entries DESC, s.id ASC
	LIMIT $2`, ident(q.Timetable.Table), ident(q.Classes.Table))
}

func (r *StatsRepository) Totals(ctx context.Context, q services.StatsQuery) (services.StatsTotals, error) {
	var out services.StatsTotals
	if err := r.db.GetContext(ctx, &out, totalsQuery(q), q.Scope); err != nil {
		return services.StatsTotals{}, errors.Wrap(err, "stats totals")
	}
	return out, nil
}

func (r *StatsRepository) CountByWeekday(ctx context.Context, q services.StatsQuery) ([]services.WeekdayCount, error) {
	var out []services.WeekdayCount
	if err := r.db.SelectContext(ctx, &out, weekdayQuery(q), q.Scope); err != nil {
		return nil, errors.Wrap(err, "stats by weekday")
	}
	return out, nil
}

func (r *StatsRepository) TopSchools(ctx context.Context, q services.StatsQuery) ([]services.SchoolCount, error) {
	top := q.Top
	if top <= 0 {
		top = services.DefaultTopSchools
	}
	var out []services.SchoolCount
	if err := r.db.SelectContext(ctx, &out, topSchoolsQuery(q), q.Scope, top); err != nil {
		return nil, errors.Wrap(err, "stats top schools")
	}
	return out, nil
}
