package persistence

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
)

func TestUpsertSQL_UpdateGuardsOnMutableColumnsOnly(t *testing.T) {
	t.Parallel()

	d := domain.DefaultSchema().Timetables
	sql := upsertSQL(d, 2)

	require.Equal(t,
		`INSERT INTO "school_timetables" AS target ("class_id", "school_id", "day_of_week", "period", "subject_name", "classroom", "academic_year", "semester") `+
			`VALUES ($1, $2, $3, $4, $5, $6, $7, $8), ($9, $10, $11, $12, $13, $14, $15, $16) `+
			`ON CONFLICT ("class_id", "day_of_week", "period", "academic_year", "semester") `+
			`DO UPDATE SET "subject_name" = EXCLUDED."subject_name", "classroom" = EXCLUDED."classroom", "updated_at" = CURRENT_TIMESTAMP `+
			`WHERE (target."subject_name" IS DISTINCT FROM EXCLUDED."subject_name" OR target."classroom" IS DISTINCT FROM EXCLUDED."classroom")`,
		sql)
}

func TestUpsertSQL_IgnorePolicy(t *testing.T) {
	t.Parallel()

	d := domain.DefaultSchema().Classes
	sql := upsertSQL(d, 1)
	require.Equal(t,
		`INSERT INTO "school_classes" AS target ("school_id", "grade", "class_name", "academic_year", "semester", "classroom") `+
			`VALUES ($1, $2, $3, $4, $5, $6) `+
			`ON CONFLICT ("school_id", "grade", "class_name", "academic_year", "semester") DO NOTHING`,
		sql)

	updated := upsertSQL(d.WithPolicy(domain.ConflictUpdate), 1)
	require.Contains(t, updated, `DO UPDATE SET "classroom" = EXCLUDED."classroom", "updated_at" = CURRENT_TIMESTAMP`)
}

func TestUpsertSQL_QualifiedTableName(t *testing.T) {
	t.Parallel()

	d := domain.DefaultSchema().SchoolSubjects
	d.Table = "timetable.school_subjects"
	require.Contains(t, upsertSQL(d, 1), `INSERT INTO "timetable"."school_subjects" AS target`)
}

func TestRowsPerStatement_StaysUnderParamLimit(t *testing.T) {
	t.Parallel()

	for _, d := range domain.DefaultSchema().Tables() {
		n := rowsPerStatement(d)
		require.LessOrEqual(t, n*len(d.Columns), maxBindParams, d.Table)
		require.Greater(t, (n+1)*len(d.Columns), maxBindParams, d.Table)
	}
}
