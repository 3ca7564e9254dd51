package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/heartware/timetable-sync/modules/timetable/domain"
)

var registryHeader = []any{
	"시도교육청명", "행정표준코드", "학교명", "학교종류명", "시도명", "구분", "설립명",
	"전화번호", "홈페이지주소", "고등학교구분명", "고등학교일반전문구분명", "도로명주소",
}

func writeRegistryWorkbook(t *testing.T, header []any, rows ...[]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "highschool_list.xlsx")
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &header))
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &r))
	}
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())
	return path
}

func TestSchoolsService_ImportsRegistry(t *testing.T) {
	t.Parallel()

	path := writeRegistryWorkbook(t, registryHeader,
		[]any{"서울특별시교육청", "7010057", "가나고등학교", "고등학교", "서울특별시", "강남구", "공립", "02-000-0000", "http://gana.hs.kr", "일반고", "일반계", "서울특별시 강남구 1"},
		[]any{"서울특별시교육청", "7010057", "가나고등학교", "고등학교", "서울특별시", "강남구", "공립", "", "", "", "", ""},
		[]any{"해외교육청", "Z000001", "다라한국학교", "", "", "", "사립", "", "", "", "", ""},
		[]any{"경기도교육청", "", "이름만고등학교", "고등학교", "경기도", "", "", "", "", "", "", ""},
		[]any{"경기도교육청", "J100001", "마바고등학교", "특수학교", "경기도", "수원시", "공립", "", "", "특목고", "전문계", ""},
	)
	store := newFakeStore()
	svc := NewSchoolsService(store, domain.DefaultSchema().Schools, NewMetrics(), nil)

	s, err := svc.Import(context.Background(), path, "", WriteOptions{})
	require.NoError(t, err)
	require.Equal(t, RowCounts{Read: 5, Accepted: 4, Rejected: 1}, s.Rows)
	require.Equal(t, 1, s.Duplicates)
	require.Equal(t, []string{"해외교육청"}, s.UnknownOffices)
	require.Equal(t, 3, s.Table.Written)

	rows := store.rows["schools"]
	require.Len(t, rows, 3)
	require.Equal(t, []any{
		"7010057", "가나고등학교", "고등학교", "서울특별시교육청", "B10",
		"서울특별시", "강남구", "공립", "02-000-0000", "http://gana.hs.kr",
		"일반고", "일반계", "서울특별시 강남구 1",
	}, rows[0])
	require.Equal(t, []any{
		"Z000001", "다라한국학교", domain.DefaultSchoolType, "해외교육청", domain.UnknownOfficeCode,
		nil, nil, "사립", nil, nil, nil, nil, nil,
	}, rows[1])
	require.Equal(t, "J10", rows[2][4])
	for _, r := range rows {
		require.Len(t, r, len(domain.DefaultSchema().Schools.Columns))
	}
}

func TestSchoolsService_MissingRequiredHeader(t *testing.T) {
	t.Parallel()

	path := writeRegistryWorkbook(t, []any{"행정표준코드", "학교명"}, []any{"7010057", "가나고등학교"})
	store := newFakeStore()
	svc := NewSchoolsService(store, domain.DefaultSchema().Schools, nil, nil)

	_, err := svc.Import(context.Background(), path, "", WriteOptions{})
	var fse *domain.FileStructureError
	require.True(t, errors.As(err, &fse))
	require.ErrorContains(t, err, "시도교육청명")
	require.Empty(t, store.calls)
}

func TestSchoolsService_NothingAccepted(t *testing.T) {
	t.Parallel()

	path := writeRegistryWorkbook(t, registryHeader, []any{"서울특별시교육청", "", ""})
	svc := NewSchoolsService(newFakeStore(), domain.DefaultSchema().Schools, nil, nil)

	_, err := svc.Import(context.Background(), path, "", WriteOptions{})
	require.ErrorIs(t, err, domain.ErrNothingWritten)
}

func TestOfficeCode(t *testing.T) {
	t.Parallel()

	code, ok := domain.OfficeCode("제주특별자치도교육청")
	require.True(t, ok)
	require.Equal(t, "T10", code)

	code, ok = domain.OfficeCode("재외교육지원담당관실")
	require.True(t, ok)
	require.Equal(t, "Z20", code)

	code, ok = domain.OfficeCode("")
	require.False(t, ok)
	require.Equal(t, domain.UnknownOfficeCode, code)
}
