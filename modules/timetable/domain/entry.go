package domain

import "time"

// Day is the day dimension of an entry: a calendar date, or a weekday 1-5 when Date is zero.
type Day struct {
	Date    time.Time
	Weekday int
}

func (d Day) IsDate() bool {
	return !d.Date.IsZero()
}

// EntryKey identifies an entry before class ids exist. It maps one-to-one onto the
// stored key (class_id, day, period, academic_year, semester).
type EntryKey struct {
	Class  ClassKey
	Day    Day
	Period int
}

type TimetableEntry struct {
	Key          EntryKey
	Subject      string
	Classroom    string
	ModifiedDate *time.Time
}
