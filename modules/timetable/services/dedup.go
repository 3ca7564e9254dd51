package services

import (
	"github.com/heartware/timetable-sync/modules/timetable/domain"
)

// Staged holds one canonical value per natural key, in first-seen order.
type Staged struct {
	Classes  []domain.ClassGroup
	Entries  []domain.TimetableEntry
	Subjects []domain.SchoolSubject
	Dropped  DropCounts
}

type DropCounts struct {
	Unmatched       int `json:"unmatched"`
	Incomplete      int `json:"incomplete"`
	OutOfRange      int `json:"out_of_range"`
	Duplicates      int `json:"duplicates"`
	UnresolvedClass int `json:"unresolved_class"`
}

// Dedup keys records by class, entry and subject. Records of unmatched schools are
// dropped. The first record wins for non-key attributes.
func Dedup(records []domain.Record, match *MatchResult, maxPeriods int) Staged {
	var out Staged
	classSeen := make(map[domain.ClassKey]struct{})
	entrySeen := make(map[domain.EntryKey]struct{})
	subjectSeen := make(map[domain.SchoolSubjectKey]struct{})

	for _, rec := range records {
		school, ok := match.Lookup(rec.School)
		if !ok {
			out.Dropped.Unmatched++
			continue
		}

		ck := domain.ClassKey{
			SchoolID:     school.ID,
			Grade:        rec.Grade,
			Label:        rec.ClassLabel(),
			AcademicYear: rec.AcademicYear,
			Semester:     rec.Semester,
		}
		if _, ok := classSeen[ck]; !ok {
			classSeen[ck] = struct{}{}
			out.Classes = append(out.Classes, domain.ClassGroup{Key: ck, Classroom: rec.Classroom})
		}

		if rec.Period <= 0 || rec.Subject == "" {
			out.Dropped.Incomplete++
			continue
		}
		if maxPeriods > 0 && rec.Period > maxPeriods {
			out.Dropped.OutOfRange++
			continue
		}

		ek := domain.EntryKey{
			Class:  ck,
			Day:    domain.Day{Date: rec.Date, Weekday: rec.Weekday},
			Period: rec.Period,
		}
		if _, ok := entrySeen[ek]; ok {
			out.Dropped.Duplicates++
		} else {
			entrySeen[ek] = struct{}{}
			out.Entries = append(out.Entries, domain.TimetableEntry{
				Key:          ek,
				Subject:      rec.Subject,
				Classroom:    rec.Classroom,
				ModifiedDate: rec.ModifiedDate,
			})
		}

		sk := domain.SchoolSubjectKey{SchoolID: school.ID, Name: rec.Subject}
		if _, ok := subjectSeen[sk]; !ok {
			subjectSeen[sk] = struct{}{}
			out.Subjects = append(out.Subjects, domain.SchoolSubject{Key: sk, Type: domain.DefaultSchoolSubjectType})
		}
	}
	return out
}
