package domain

import "strconv"

const classSuffix = "반"

// ClassLabel renders a class number the way the target schema stores it, e.g. "3반".
func ClassLabel(n int) string {
	return strconv.Itoa(n) + classSuffix
}

// ClassKey is the natural key of school_classes.
type ClassKey struct {
	SchoolID     int64
	Grade        int
	Label        string
	AcademicYear int
	Semester     int
}

type ClassGroup struct {
	Key       ClassKey
	Classroom string
}
