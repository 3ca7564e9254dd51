package domain

// DefaultSchoolSubjectType is assigned to subjects discovered through timetables.
const DefaultSchoolSubjectType = "일반"

// DefaultCreditHours is stored for catalog subjects; the workbook carries no credit column.
const DefaultCreditHours = 1

type SchoolSubjectKey struct {
	SchoolID int64
	Name     string
}

type SchoolSubject struct {
	Key  SchoolSubjectKey
	Type string
}

type CatalogSubjectKey struct {
	Name       string
	Department string
}

type CatalogSubject struct {
	Key         CatalogSubjectKey
	Type        string
	CreditHours int
}
