package persistence

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
	"github.com/heartware/timetable-sync/pkg/composables"
)

// ClassRepository resolves class ids by natural key.
type ClassRepository struct{}

func NewClassRepository() *ClassRepository {
	return &ClassRepository{}
}

// classIDQuery selects id plus the first five descriptor columns, which hold
// school id, grade, label, year and semester in that order.
func classIDQuery(d domain.TableDescriptor) (string, error) {
	if len(d.Columns) < 5 {
		return "", fmt.Errorf("%s: expected at least 5 columns, got %d", d.Table, len(d.Columns))
	}
	c := d.Columns
	return fmt.Sprintf(`
	SELECT id, %s, %s, %s, %s, %s
	FROM %s
	WHERE %s = ANY($1)`,
		ident(c[0]), ident(c[1]), ident(c[2]), ident(c[3]), ident(c[4]),
		ident(d.Table),
		ident(c[0]),
	), nil
}

func (r *ClassRepository) ResolveClassIDs(ctx context.Context, d domain.TableDescriptor, schoolIDs []int64) (map[domain.ClassKey]int64, error) {
	out := make(map[domain.ClassKey]int64)
	if len(schoolIDs) == 0 {
		return out, nil
	}
	q, err := classIDQuery(d)
	if err != nil {
		return nil, err
	}
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, q, schoolIDs)
	if err != nil {
		return nil, errors.Wrap(err, "query classes")
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id  int64
			key domain.ClassKey
		)
		if err := rows.Scan(&id, &key.SchoolID, &key.Grade, &key.Label, &key.AcademicYear, &key.Semester); err != nil {
			return nil, errors.Wrap(err, "scan class")
		}
		out[key] = id
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate classes")
	}
	return out, nil
}
