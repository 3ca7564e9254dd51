package domain

// School is a registry row. The timetable pipeline only reads schools; they are
// created by the registry workbook import.
type School struct {
	ID                 int64
	AdministrativeCode string
	Name               string
	SchoolType         string
	AuthorityCode      string
}

// SchoolRef is the source-side identity of a school as it appears in a file.
type SchoolRef struct {
	AdministrativeCode string
	Name               string
	AuthorityCode      string
	AuthorityName      string
}

// Label is the display form used in reports.
func (r SchoolRef) Label() string {
	switch {
	case r.Name != "" && r.AdministrativeCode != "":
		return r.Name + " (" + r.AdministrativeCode + ")"
	case r.Name != "":
		return r.Name
	default:
		return r.AdministrativeCode
	}
}

// UnknownOfficeCode is stored for offices missing from the code table.
const UnknownOfficeCode = "Z99"

var officeCodes = map[string]string{
	"서울특별시교육청":   "B10",
	"부산광역시교육청":   "C10",
	"대구광역시교육청":   "D10",
	"인천광역시교육청":   "E10",
	"광주광역시교육청":   "F10",
	"대전광역시교육청":   "G10",
	"울산광역시교육청":   "H10",
	"세종특별자치시교육청": "I10",
	"경기도교육청":     "J10",
	"강원특별자치도교육청": "K10",
	"충청북도교육청":    "M10",
	"충청남도교육청":    "N10",
	"전북특별자치도교육청": "P10",
	"전라남도교육청":    "Q10",
	"경상북도교육청":    "R10",
	"경상남도교육청":    "S10",
	"제주특별자치도교육청": "T10",
	"재외한국학교교육청":  "Z10",
	"재외교육지원담당관실": "Z20",
}

// OfficeCode maps an education office name to its code. The second result is false
// for unknown offices, which get UnknownOfficeCode.
func OfficeCode(office string) (string, bool) {
	code, ok := officeCodes[office]
	if !ok {
		return UnknownOfficeCode, false
	}
	return code, true
}

// DefaultSchoolType is stored when the registry leaves the school type empty.
const DefaultSchoolType = "고등학교"

// RegistrySchool is one row of the school registry workbook. Optional fields are
// empty when the sheet leaves them blank.
type RegistrySchool struct {
	AdministrativeCode string
	Name               string
	SchoolType         string
	Office             string
	OfficeCode         string
	Province           string
	District           string
	EstablishmentType  string
	Phone              string
	Website            string
	HighSchoolCategory string
	HighSchoolDivision string
	Address            string
}
