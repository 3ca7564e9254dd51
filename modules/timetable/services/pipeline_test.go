package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
)

const csvHeader = "행정표준코드,학교명,시도교육청코드,시도교육청명,계열명,학과명,학년도,학기,학년,학급명,강의실명,시간표일자,교시,수업내용,수정일자"

func writeCSV(t *testing.T, name string, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	content := "\xEF\xBB\xBF" + csvHeader + "\n" + strings.Join(lines, "\n") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testRegistry() *fakeRegistry {
	return &fakeRegistry{schools: []domain.School{
		{ID: 1, Name: "가나고등학교", AdministrativeCode: "7010001", AuthorityCode: "B10"},
		{ID: 2, Name: "다라고등학교", AdministrativeCode: "7010002", AuthorityCode: "B10"},
	}}
}

func testPipeline(reg SchoolRegistry, store *fakeStore, opts PipelineOptions) *Pipeline {
	opts.Schema = domain.DefaultSchema()
	if opts.TrackFilter == "" {
		opts.TrackFilter = "일반계"
	}
	if opts.MaxPeriods == 0 {
		opts.MaxPeriods = 7
	}
	return NewPipeline(PipelineDeps{Registry: reg, Classes: store, Writer: store, Metrics: NewMetrics()}, opts)
}

var sampleLines = []string{
	"7010001,가나고등학교,B10,서울특별시교육청,일반계,일반과,2025,2,1,1,1-1,20250901,1,국어,2025-08-20",
	"7010001,가나고등학교,B10,서울특별시교육청,일반계,일반과,2025,2,1,1,별관,20250901,1,수학,2025-08-20",
	"7010001,가나고등학교,B10,서울특별시교육청,일반계,일반과,2025,2,1,1,1-1,20250901,2,영어,2025-08-20",
	"7010002,다라고등학교,B10,서울특별시교육청,일반계,일반과,2025,2,2,3반,2-3,20250901,1,과학,",
	"7010002,다라고등학교,B10,서울특별시교육청,전문계,기계과,2025,2,2,3,2-3,20250901,2,기계,",
	"9999999,없는고등학교,B10,서울특별시교육청,일반계,일반과,2025,2,1,1,1-1,20250901,1,국어,",
	"7010002,다라고등학교,B10,서울특별시교육청,일반계,일반과,2025,2,2,3,2-3,20250901,9,체육,",
}

func TestPipeline_WeekdayVariantEndToEnd(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	path := writeCSV(t, "서울시_화요일.csv", sampleLines...)

	s, err := testPipeline(testRegistry(), store, PipelineOptions{}).Run(context.Background(), path)
	require.NoError(t, err)

	require.Equal(t, "weekday", s.Variant)
	require.Equal(t, 2, s.Weekday)
	require.Equal(t, "B10", s.Scope)
	require.Equal(t, RowCounts{Read: 7, Accepted: 6, Filtered: 1}, s.Rows)
	require.Equal(t, MatchCounts{Groups: 3, Matched: 2, Unmatched: 1}, s.Match)
	require.Equal(t, DropCounts{Unmatched: 1, OutOfRange: 1, Duplicates: 1}, s.Dropped)
	require.Equal(t, StagedCounts{Classes: 2, Entries: 3, Subjects: 4}, s.Staged)

	require.Equal(t, []string{"school_classes", "school_timetables", "school_subjects"}, store.calls)
	require.Len(t, store.rows["school_timetables"], 3)
	first := store.rows["school_timetables"][0]
	require.Equal(t, 2, first[2])
	require.Equal(t, "국어", first[4])
	require.Equal(t, "1-1", first[5])
	require.Equal(t, 2+3+4, s.Written)
	require.NotEqual(t, s.RunID.String(), "")
	require.False(t, s.FinishedAt.Before(s.StartedAt))
}

func TestPipeline_DateVariantUsesDateTable(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	path := writeCSV(t, "export.csv",
		"7010001,가나고등학교,B10,서울특별시교육청,일반계,일반과,2025,2,1,1,1-1,20250901,1,국어,2025-08-20",
		"7010001,가나고등학교,B10,서울특별시교육청,일반계,일반과,2025,2,1,1,1-1,20250906,1,국어,2025-08-20",
	)

	s, err := testPipeline(testRegistry(), store, PipelineOptions{
		WeekdaySource:  WeekdayFromDateColumn,
		SchoolDaysOnly: true,
	}).Run(context.Background(), path)
	require.NoError(t, err)
	require.Equal(t, "date", s.Variant)
	require.Equal(t, 1, s.Rows.Rejected)
	require.Len(t, s.Rejected, 1)
	require.Equal(t, ReasonNonSchoolDay, s.Rejected[0].Reason)

	rows := store.rows["school_timetable_days"]
	require.Len(t, rows, 1)
	require.Equal(t, time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC), rows[0][2])
	require.Equal(t, 1, rows[0][3])
}

func TestPipeline_FileStructureErrorsWriteNothing(t *testing.T) {
	t.Parallel()

	store := newFakeStore()

	_, err := testPipeline(testRegistry(), store, PipelineOptions{}).Run(context.Background(), writeCSV(t, "timetable.csv", sampleLines...))
	var fse *domain.FileStructureError
	require.True(t, errors.As(err, &fse))
	require.Equal(t, "weekday", fse.Reason)

	path := filepath.Join(t.TempDir(), "월요일.csv")
	require.NoError(t, os.WriteFile(path, []byte("학교명,학년\n가나고등학교,1\n"), 0o644))
	_, err = testPipeline(testRegistry(), store, PipelineOptions{}).Run(context.Background(), path)
	require.True(t, errors.As(err, &fse))
	require.Equal(t, "header", fse.Reason)

	require.Empty(t, store.calls)
}

func TestPipeline_WeekdayOverride(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	s, err := testPipeline(testRegistry(), store, PipelineOptions{Weekday: 4}).Run(context.Background(), writeCSV(t, "timetable.csv", sampleLines[0]))
	require.NoError(t, err)
	require.Equal(t, 4, s.Weekday)
}

func TestPipeline_MatchErrorAborts(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	_, err := testPipeline(&fakeRegistry{err: errors.New("down")}, store, PipelineOptions{}).Run(context.Background(), writeCSV(t, "월요일.csv", sampleLines...))
	var matchErr *domain.MatchError
	require.True(t, errors.As(err, &matchErr))
	require.Empty(t, store.calls)
}

func TestPipeline_ChunkFailurePolicies(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	store.failTable = "school_timetables"
	s, err := testPipeline(testRegistry(), store, PipelineOptions{}).Run(context.Background(), writeCSV(t, "월요일.csv", sampleLines...))
	var chunkErr *domain.ChunkError
	require.True(t, errors.As(err, &chunkErr))
	require.Equal(t, "school_timetables", chunkErr.Table)
	require.Equal(t, []string{"school_classes", "school_timetables"}, store.calls)
	require.Len(t, s.FailedChunks, 1)

	store = newFakeStore()
	store.failTable = "school_timetables"
	s, err = testPipeline(testRegistry(), store, PipelineOptions{OnChunkError: ChunkContinue}).Run(context.Background(), writeCSV(t, "월요일.csv", sampleLines...))
	require.True(t, errors.As(err, &chunkErr))
	require.Equal(t, []string{"school_classes", "school_timetables", "school_subjects"}, store.calls)
	require.Len(t, s.Tables, 3)
}

func TestPipeline_RetryWritesOnlyNamedTables(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	path := writeCSV(t, "월요일.csv", sampleLines...)
	_, err := testPipeline(testRegistry(), store, PipelineOptions{}).Run(context.Background(), path)
	require.NoError(t, err)
	store.calls = nil

	p := testPipeline(testRegistry(), store, PipelineOptions{
		RetryChunks: map[string]map[int]struct{}{"school_timetables": {2: {}}},
	})
	s, err := p.Run(context.Background(), path)
	require.NoError(t, err)
	require.True(t, s.Retry)
	require.Equal(t, []string{"school_timetables"}, store.calls)
	require.Equal(t, map[int]struct{}{2: {}}, store.lastOpts["school_timetables"].OnlyChunks)
}

func TestPipeline_RetryOfClassChunksNeedsFullRun(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	p := testPipeline(testRegistry(), store, PipelineOptions{
		RetryChunks: map[string]map[int]struct{}{"school_classes": {1: {}}},
	})
	_, err := p.Run(context.Background(), writeCSV(t, "월요일.csv", sampleLines...))
	require.ErrorIs(t, err, domain.ErrFullRunRequired)
	require.Empty(t, store.calls)
}

func TestPipeline_RetryWithUnstoredClassesNeedsFullRun(t *testing.T) {
	t.Parallel()

	// no prior run, so none of the file's classes resolve
	store := newFakeStore()
	p := testPipeline(testRegistry(), store, PipelineOptions{
		RetryChunks: map[string]map[int]struct{}{"school_timetables": {1: {}}},
	})
	_, err := p.Run(context.Background(), writeCSV(t, "월요일.csv", sampleLines...))
	require.ErrorIs(t, err, domain.ErrFullRunRequired)
	require.NotContains(t, store.calls, "school_timetables")
}

func TestPipeline_NothingWritten(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	_, err := testPipeline(testRegistry(), store, PipelineOptions{}).Run(context.Background(), writeCSV(t, "월요일.csv", sampleLines[5]))
	require.ErrorIs(t, err, domain.ErrNothingWritten)
}

func TestPipeline_DryRunWritesNothing(t *testing.T) {
	t.Parallel()

	store := newFakeStore()
	s, err := testPipeline(testRegistry(), store, PipelineOptions{DryRun: true}).Run(context.Background(), writeCSV(t, "월요일.csv", sampleLines...))
	require.NoError(t, err)
	require.Empty(t, store.calls)
	require.Equal(t, 3, s.Staged.Entries)
}
