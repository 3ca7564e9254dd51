package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
	"github.com/heartware/timetable-sync/modules/timetable/services"
)

func TestResolveFormat(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	f, err := resolveFormat("", &buf)
	require.NoError(t, err)
	require.Equal(t, formatJSON, f)

	f, err = resolveFormat("TABLE", &buf)
	require.NoError(t, err)
	require.Equal(t, formatTable, f)

	_, err = resolveFormat("yaml", &buf)
	require.Error(t, err)
}

func TestRenderStats(t *testing.T) {
	t.Parallel()

	report := &services.StatsReport{
		Table:  "school_timetables",
		Totals: services.StatsTotals{Schools: 2, Classes: 5, Entries: 120},
		ByWeekday: []services.WeekdayCount{
			{Weekday: 1, Label: "월요일", Entries: 70},
			{Weekday: 2, Label: "화요일", Entries: 50},
		},
		Top: []services.SchoolCount{{SchoolID: 1, Name: "가나고등학교", Entries: 70, Grades: 3, Classes: 4}},
	}

	var buf bytes.Buffer
	require.NoError(t, renderStats(&buf, report))
	out := buf.String()
	require.Contains(t, out, "범위: 전체")
	require.Contains(t, out, "월요일")
	require.Contains(t, out, "가나고등학교")
	require.Contains(t, out, "120")
}

func TestStatsQuery_FollowsWeekdaySource(t *testing.T) {
	t.Parallel()

	schema := domain.DefaultSchema()
	q := statsQuery(schema, "date_column", "B10", 5)
	require.Equal(t, "school_timetable_days", q.Timetable.Table)
	require.Equal(t, "B10", q.Scope)
	require.Equal(t, 5, q.Top)

	q = statsQuery(schema, "filename", "", 5)
	require.Equal(t, "school_timetables", q.Timetable.Table)
}

func TestResolveWeekdaySource(t *testing.T) {
	t.Parallel()

	got, err := resolveWeekdaySource("", "date_column")
	require.NoError(t, err)
	require.Equal(t, "date_column", got)

	got, err = resolveWeekdaySource(" Filename ", "date_column")
	require.NoError(t, err)
	require.Equal(t, "filename", got)

	_, err = resolveWeekdaySource("calendar", "filename")
	require.Error(t, err)
}
