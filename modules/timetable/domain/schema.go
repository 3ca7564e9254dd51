package domain

import (
	"fmt"
	"slices"
)

type ConflictPolicy string

const (
	ConflictUpdate ConflictPolicy = "update"
	ConflictIgnore ConflictPolicy = "ignore"
)

// TableDescriptor drives the generic upsert. Columns are positional: row values are
// produced in the same order by the mappers, so an override may rename columns but
// not reorder or drop them.
type TableDescriptor struct {
	Table           string         `yaml:"table" toml:"table" validate:"required"`
	Columns         []string       `yaml:"columns" toml:"columns" validate:"required,min=1,dive,required"`
	ConflictColumns []string       `yaml:"conflict_columns" toml:"conflict_columns" validate:"required,min=1,dive,required"`
	MutableColumns  []string       `yaml:"mutable_columns" toml:"mutable_columns" validate:"dive,required"`
	Policy          ConflictPolicy `yaml:"policy" toml:"policy" validate:"oneof=update ignore"`
	TouchColumn     string         `yaml:"touch_column" toml:"touch_column"`
}

// Check verifies the relations between column lists.
func (d TableDescriptor) Check() error {
	for _, c := range d.ConflictColumns {
		if !slices.Contains(d.Columns, c) {
			return fmt.Errorf("%s: conflict column %q is not a column", d.Table, c)
		}
	}
	for _, c := range d.MutableColumns {
		if !slices.Contains(d.Columns, c) {
			return fmt.Errorf("%s: mutable column %q is not a column", d.Table, c)
		}
		if slices.Contains(d.ConflictColumns, c) {
			return fmt.Errorf("%s: column %q cannot be both conflict and mutable", d.Table, c)
		}
	}
	if d.Policy == ConflictUpdate && len(d.MutableColumns) == 0 {
		return fmt.Errorf("%s: policy update needs at least one mutable column", d.Table)
	}
	if d.TouchColumn != "" && slices.Contains(d.Columns, d.TouchColumn) {
		return fmt.Errorf("%s: touch column %q must not be a written column", d.Table, d.TouchColumn)
	}
	return nil
}

// WithPolicy returns a copy using p. Ignore keeps mutable columns so the descriptor
// can be switched back.
func (d TableDescriptor) WithPolicy(p ConflictPolicy) TableDescriptor {
	d.Policy = p
	return d
}

// SourceColumns maps logical fields to file headers.
type SourceColumns struct {
	AdministrativeCode string `yaml:"administrative_code" toml:"administrative_code" validate:"required"`
	SchoolName         string `yaml:"school_name" toml:"school_name" validate:"required"`
	AuthorityCode      string `yaml:"authority_code" toml:"authority_code" validate:"required"`
	AuthorityName      string `yaml:"authority_name" toml:"authority_name" validate:"required"`
	Track              string `yaml:"track" toml:"track" validate:"required"`
	Department         string `yaml:"department" toml:"department" validate:"required"`
	AcademicYear       string `yaml:"academic_year" toml:"academic_year" validate:"required"`
	Semester           string `yaml:"semester" toml:"semester" validate:"required"`
	Grade              string `yaml:"grade" toml:"grade" validate:"required"`
	ClassName          string `yaml:"class_name" toml:"class_name" validate:"required"`
	Classroom          string `yaml:"classroom" toml:"classroom" validate:"required"`
	Date               string `yaml:"date" toml:"date" validate:"required"`
	Period             string `yaml:"period" toml:"period" validate:"required"`
	Subject            string `yaml:"subject" toml:"subject" validate:"required"`
	ModifiedDate       string `yaml:"modified_date" toml:"modified_date" validate:"required"`
}

// Required lists the headers that must be present. The date column is required only
// when the day dimension is read from it.
func (s SourceColumns) Required(dateColumn bool) []string {
	out := []string{
		s.AdministrativeCode, s.SchoolName, s.Track,
		s.AcademicYear, s.Semester, s.Grade, s.ClassName,
		s.Period, s.Subject,
	}
	if dateColumn {
		out = append(out, s.Date)
	}
	return out
}

// Schema bundles the source mapping and every target table.
type Schema struct {
	Source         SourceColumns   `yaml:"source" toml:"source"`
	Classes        TableDescriptor `yaml:"classes" toml:"classes"`
	Timetables     TableDescriptor `yaml:"timetables" toml:"timetables"`
	TimetableDays  TableDescriptor `yaml:"timetable_days" toml:"timetable_days"`
	SchoolSubjects TableDescriptor `yaml:"school_subjects" toml:"school_subjects"`
	Subjects       TableDescriptor `yaml:"subjects" toml:"subjects"`
	Schools        TableDescriptor `yaml:"schools" toml:"schools"`
}

// Timetable returns the entries descriptor of the date-keyed variant when dated is
// set, else the weekday-keyed one.
func (s Schema) Timetable(dated bool) TableDescriptor {
	if dated {
		return s.TimetableDays
	}
	return s.Timetables
}

// Tables returns descriptors in write order.
func (s Schema) Tables() []TableDescriptor {
	return []TableDescriptor{s.Classes, s.Timetables, s.TimetableDays, s.SchoolSubjects, s.Subjects, s.Schools}
}

func DefaultSchema() Schema {
	return Schema{
		Source: SourceColumns{
			AdministrativeCode: "행정표준코드",
			SchoolName:         "학교명",
			AuthorityCode:      "시도교육청코드",
			AuthorityName:      "시도교육청명",
			Track:              "계열명",
			Department:         "학과명",
			AcademicYear:       "학년도",
			Semester:           "학기",
			Grade:              "학년",
			ClassName:          "학급명",
			Classroom:          "강의실명",
			Date:               "시간표일자",
			Period:             "교시",
			Subject:            "수업내용",
			ModifiedDate:       "수정일자",
		},
		Classes: TableDescriptor{
			Table:           "school_classes",
			Columns:         []string{"school_id", "grade", "class_name", "academic_year", "semester", "classroom"},
			ConflictColumns: []string{"school_id", "grade", "class_name", "academic_year", "semester"},
			MutableColumns:  []string{"classroom"},
			Policy:          ConflictIgnore,
			TouchColumn:     "updated_at",
		},
		Timetables: TableDescriptor{
			Table:           "school_timetables",
			Columns:         []string{"class_id", "school_id", "day_of_week", "period", "subject_name", "classroom", "academic_year", "semester"},
			ConflictColumns: []string{"class_id", "day_of_week", "period", "academic_year", "semester"},
			MutableColumns:  []string{"subject_name", "classroom"},
			Policy:          ConflictUpdate,
			TouchColumn:     "updated_at",
		},
		TimetableDays: TableDescriptor{
			Table:           "school_timetable_days",
			Columns:         []string{"class_id", "school_id", "date", "day_of_week", "period", "subject_name", "classroom", "academic_year", "semester", "modified_date"},
			ConflictColumns: []string{"class_id", "date", "period", "academic_year", "semester"},
			MutableColumns:  []string{"subject_name", "classroom", "modified_date"},
			Policy:          ConflictUpdate,
			TouchColumn:     "updated_at",
		},
		SchoolSubjects: TableDescriptor{
			Table:           "school_subjects",
			Columns:         []string{"school_id", "subject_name", "subject_type"},
			ConflictColumns: []string{"school_id", "subject_name"},
			Policy:          ConflictIgnore,
		},
		Subjects: TableDescriptor{
			Table:           "subjects",
			Columns:         []string{"subject_name", "department_name", "subject_type", "credit_hours"},
			ConflictColumns: []string{"subject_name", "department_name"},
			MutableColumns:  []string{"subject_type", "credit_hours"},
			Policy:          ConflictUpdate,
			TouchColumn:     "updated_at",
		},
		Schools: TableDescriptor{
			Table: "schools",
			Columns: []string{
				"administrative_code", "name", "school_type", "education_office", "education_office_code",
				"province", "district", "establishment_type", "phone", "website",
				"high_school_category", "high_school_division", "address",
			},
			ConflictColumns: []string{"administrative_code"},
			MutableColumns: []string{
				"name", "school_type", "education_office", "education_office_code",
				"province", "district", "establishment_type", "phone", "website",
				"high_school_category", "high_school_division", "address",
			},
			Policy:      ConflictUpdate,
			TouchColumn: "updated_at",
		},
	}
}
