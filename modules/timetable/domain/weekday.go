package domain

var weekdayLabels = [...]string{"", "월요일", "화요일", "수요일", "목요일", "금요일", "토요일", "일요일"}

// WeekdayLabel returns the Korean label for an ISO weekday (Monday=1).
func WeekdayLabel(n int) string {
	if n < 1 || n >= len(weekdayLabels) {
		return ""
	}
	return weekdayLabels[n]
}

func IsSchoolDay(n int) bool {
	return n >= 1 && n <= 5
}
