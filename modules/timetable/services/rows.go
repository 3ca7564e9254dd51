package services

import (
	"github.com/heartware/timetable-sync/modules/timetable/domain"
)

// Row mappers emit values in the positional order of the default descriptors.

func classRows(groups []domain.ClassGroup) [][]any {
	rows := make([][]any, 0, len(groups))
	for _, g := range groups {
		k := g.Key
		rows = append(rows, []any{k.SchoolID, k.Grade, k.Label, k.AcademicYear, k.Semester, g.Classroom})
	}
	return rows
}

// entryRows resolves class ids; entries without a stored class are returned separately.
func entryRows(entries []domain.TimetableEntry, classIDs map[domain.ClassKey]int64, dated bool) ([][]any, int) {
	rows := make([][]any, 0, len(entries))
	unresolved := 0
	for _, e := range entries {
		k := e.Key
		classID, ok := classIDs[k.Class]
		if !ok {
			unresolved++
			continue
		}
		c := k.Class
		if dated {
			rows = append(rows, []any{
				classID, c.SchoolID, k.Day.Date, k.Day.Weekday, k.Period,
				e.Subject, e.Classroom, c.AcademicYear, c.Semester, e.ModifiedDate,
			})
			continue
		}
		rows = append(rows, []any{
			classID, c.SchoolID, k.Day.Weekday, k.Period,
			e.Subject, e.Classroom, c.AcademicYear, c.Semester,
		})
	}
	return rows, unresolved
}

func schoolSubjectRows(subjects []domain.SchoolSubject) [][]any {
	rows := make([][]any, 0, len(subjects))
	for _, s := range subjects {
		rows = append(rows, []any{s.Key.SchoolID, s.Key.Name, s.Type})
	}
	return rows
}

func catalogRows(subjects []domain.CatalogSubject) [][]any {
	rows := make([][]any, 0, len(subjects))
	for _, s := range subjects {
		rows = append(rows, []any{s.Key.Name, s.Key.Department, s.Type, s.CreditHours})
	}
	return rows
}

func schoolRows(schools []domain.RegistrySchool) [][]any {
	rows := make([][]any, 0, len(schools))
	for _, s := range schools {
		rows = append(rows, []any{
			s.AdministrativeCode, s.Name, s.SchoolType, nullable(s.Office), s.OfficeCode,
			nullable(s.Province), nullable(s.District), nullable(s.EstablishmentType),
			nullable(s.Phone), nullable(s.Website),
			nullable(s.HighSchoolCategory), nullable(s.HighSchoolDivision), nullable(s.Address),
		})
	}
	return rows
}

// nullable stores blank registry cells as NULL.
func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
