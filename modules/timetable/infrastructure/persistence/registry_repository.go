package persistence

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
	"github.com/heartware/timetable-sync/pkg/composables"
)

const findSchoolsQuery = `
	SELECT id,
	       COALESCE(administrative_code, ''),
	       name,
	       COALESCE(school_type, ''),
	       COALESCE(education_office_code, '')
	FROM schools
	WHERE (($1::text <> '' AND name = $1::text) OR ($2::text <> '' AND administrative_code = $2::text))
	  AND ($3::text = '' OR education_office_code = $3::text)
	ORDER BY id ASC`

const listSchoolNamesQuery = `
	SELECT DISTINCT name
	FROM schools
	WHERE $1::text = '' OR education_office_code = $1::text
	ORDER BY name ASC`

// RegistryRepository reads the schools registry.
type RegistryRepository struct{}

func NewRegistryRepository() *RegistryRepository {
	return &RegistryRepository{}
}

func (r *RegistryRepository) FindSchools(ctx context.Context, ref domain.SchoolRef, scope string) ([]domain.School, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, findSchoolsQuery, ref.Name, ref.AdministrativeCode, scope)
	if err != nil {
		return nil, errors.Wrap(err, "query schools")
	}
	defer rows.Close()

	var out []domain.School
	for rows.Next() {
		var s domain.School
		if err := rows.Scan(&s.ID, &s.AdministrativeCode, &s.Name, &s.SchoolType, &s.AuthorityCode); err != nil {
			return nil, errors.Wrap(err, "scan school")
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterate schools")
	}
	return out, nil
}

func (r *RegistryRepository) ListSchoolNames(ctx context.Context, scope string) ([]string, error) {
	tx, err := composables.UseTx(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := tx.Query(ctx, listSchoolNamesQuery, scope)
	if err != nil {
		return nil, errors.Wrap(err, "query school names")
	}
	defer rows.Close()

	out := make([]string, 0, 256)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.Wrap(err, "scan school name")
		}
		out = append(out, name)
	}
	return out, errors.Wrap(rows.Err(), "iterate school names")
}
