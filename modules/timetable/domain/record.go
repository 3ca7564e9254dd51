package domain

import (
	"fmt"
	"time"
)

// Record is a typed, trimmed timetable row accepted by the normalizer.
type Record struct {
	Line int

	School     SchoolRef
	Track      string
	Department string

	AcademicYear int
	Semester     int
	Grade        int
	ClassNumber  int
	Classroom    string

	// Date is set only when the day dimension comes from the date column.
	Date    time.Time
	Weekday int
	Period  int
	Subject string

	ModifiedDate *time.Time

	// Coerced lists fields whose raw value could not be parsed and became 0 (or nil).
	Coerced []string
}

func (r Record) ClassLabel() string {
	return ClassLabel(r.ClassNumber)
}

// HasDate reports whether the record carries a calendar date.
func (r Record) HasDate() bool {
	return !r.Date.IsZero()
}

// Outcome is the normalizer result for one raw row: Accepted, Rejected or Excluded.
type Outcome interface {
	SourceLine() int
	isOutcome()
}

type Accepted struct {
	Record Record
}

// Rejected rows are malformed; they are counted and reported but never written.
type Rejected struct {
	Line   int
	Reason string
	Err    error
}

// Excluded rows are well-formed but out of scope (track or grade filter).
type Excluded struct {
	Line   int
	Reason string
}

func (a Accepted) SourceLine() int { return a.Record.Line }
func (r Rejected) SourceLine() int { return r.Line }
func (e Excluded) SourceLine() int { return e.Line }

func (Accepted) isOutcome() {}
func (Rejected) isOutcome() {}
func (Excluded) isOutcome() {}

func (r Rejected) String() string {
	if r.Err != nil {
		return fmt.Sprintf("line %d: %s: %v", r.Line, r.Reason, r.Err)
	}
	return fmt.Sprintf("line %d: %s", r.Line, r.Reason)
}
