package services

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// coerceInt parses integer cells. Spreadsheet floats with no fraction are accepted.
// ok is false when raw is empty or not an integer; the value is then 0.
func coerceInt(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt32 || f < math.MinInt32 {
		return 0, false
	}
	return int(f), true
}

// coerceClassNumber accepts "3", "03", "3반" and "3.0".
func coerceClassNumber(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	s = strings.TrimSpace(strings.TrimSuffix(s, "반"))
	return coerceInt(s)
}

var modifiedDateLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006.01.02",
	"2006/01/02",
	"20060102150405",
	"20060102",
}

// parseModifiedDate returns nil for empty input. ok is false when a value was present
// but matched no known layout.
func parseModifiedDate(raw string) (*time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil, true
	}
	s = strings.TrimSuffix(s, ".0")
	for _, layout := range modifiedDateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			u := t.UTC()
			return &u, true
		}
	}
	return nil, false
}
