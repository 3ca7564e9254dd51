package services

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

var fullWeekdays = []struct {
	token string
	day   int
}{
	{"월요일", 1}, {"화요일", 2}, {"수요일", 3}, {"목요일", 4}, {"금요일", 5},
}

var shortWeekdays = map[string]int{"월": 1, "화": 2, "수": 3, "목": 4, "금": 5}

// WeekdayFromFilename derives the ISO weekday (Monday=1..Friday=5) from a file name.
// Full day names match anywhere in the name; one-letter abbreviations must be a whole
// token. Zero or conflicting matches are errors.
func WeekdayFromFilename(path string) (int, error) {
	name := fileStem(path)

	found := map[int]struct{}{}
	for _, w := range fullWeekdays {
		if strings.Contains(name, w.token) {
			found[w.day] = struct{}{}
		}
	}
	if len(found) == 0 {
		for _, tok := range filenameTokens(name) {
			if day, ok := shortWeekdays[tok]; ok {
				found[day] = struct{}{}
			}
		}
	}

	switch len(found) {
	case 0:
		return 0, fmt.Errorf("no weekday token in file name %q", filepath.Base(path))
	case 1:
		for day := range found {
			return day, nil
		}
	}
	return 0, fmt.Errorf("file name %q names more than one weekday", filepath.Base(path))
}

// ParseCompactDate parses an 8-digit YYYYMMDD value. A trailing ".0" left by
// spreadsheet exports is tolerated.
func ParseCompactDate(raw string) (time.Time, error) {
	s := strings.TrimSuffix(strings.TrimSpace(raw), ".0")
	if len(s) != 8 {
		return time.Time{}, fmt.Errorf("expected YYYYMMDD, got %q", raw)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return time.Time{}, fmt.Errorf("expected YYYYMMDD, got %q", raw)
		}
	}
	t, err := time.ParseInLocation("20060102", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", raw, err)
	}
	return t, nil
}

// ISOWeekday maps time.Weekday onto Monday=1..Sunday=7.
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

var authorityRegions = []struct {
	token string
	code  string
}{
	{"서울시", "B10"},
	{"부산시", "C10"},
	{"대구시", "D10"},
	{"인천시", "E10"},
	{"광주시", "F10"},
	{"대전시", "G10"},
	{"울산시", "H10"},
	{"세종시", "I10"},
	{"경기도", "J10"},
	{"강원도", "K10"},
	{"충청북도", "M10"},
	{"충청남도", "N10"},
	{"전라북도", "P10"},
	{"전라남도", "Q10"},
	{"경상북도", "R10"},
	{"경상남도", "S10"},
	{"제주도", "T10"},
}

// AuthorityFromFilename returns the education office code for a region named in the
// file name, or "" when none or more than one region is named.
func AuthorityFromFilename(path string) string {
	name := fileStem(path)
	code := ""
	for _, r := range authorityRegions {
		if !strings.Contains(name, r.token) {
			continue
		}
		if code != "" && code != r.code {
			return ""
		}
		code = r.code
	}
	return code
}

func fileStem(path string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return norm.NFC.String(base)
}

func filenameTokens(name string) []string {
	return strings.FieldsFunc(name, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
