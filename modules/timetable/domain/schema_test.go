package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultSchema_DescriptorsAreConsistent(t *testing.T) {
	t.Parallel()

	for _, d := range DefaultSchema().Tables() {
		require.NoError(t, d.Check(), d.Table)
	}
}

func TestTableDescriptor_Check(t *testing.T) {
	t.Parallel()

	base := TableDescriptor{
		Table:           "t",
		Columns:         []string{"k", "m"},
		ConflictColumns: []string{"k"},
		MutableColumns:  []string{"m"},
		Policy:          ConflictUpdate,
	}
	require.NoError(t, base.Check())

	bad := base
	bad.ConflictColumns = []string{"x"}
	require.ErrorContains(t, bad.Check(), "conflict column")

	bad = base
	bad.MutableColumns = []string{"k"}
	require.ErrorContains(t, bad.Check(), "both conflict and mutable")

	bad = base
	bad.MutableColumns = nil
	require.ErrorContains(t, bad.Check(), "needs at least one mutable column")
	require.NoError(t, bad.WithPolicy(ConflictIgnore).Check())

	bad = base
	bad.TouchColumn = "m"
	require.ErrorContains(t, bad.Check(), "touch column")
}

func TestSourceColumns_Required(t *testing.T) {
	t.Parallel()

	src := DefaultSchema().Source
	require.NotContains(t, src.Required(false), "시간표일자")
	require.Contains(t, src.Required(true), "시간표일자")
	require.Contains(t, src.Required(false), "수업내용")
}

func TestClassLabelAndWeekdayLabel(t *testing.T) {
	t.Parallel()

	require.Equal(t, "3반", ClassLabel(3))
	require.Equal(t, "월요일", WeekdayLabel(1))
	require.Equal(t, "일요일", WeekdayLabel(7))
	require.Equal(t, "", WeekdayLabel(0))
	require.True(t, IsSchoolDay(5))
	require.False(t, IsSchoolDay(6))
}
