package util

import (
	"fmt"
	"time"
)

// SchoolYearStartMonth is the first month of the Indonesian school year
const SchoolYearStartMonth = time.July

var monthNames = [...]string{
	"Januari", "Februari", "Maret", "April", "Mei", "Juni",
	"Juli", "Agustus", "September", "Oktober", "November", "Desember",
}

// MonthBounds returns the half-open range [start, end) of the calendar month containing t
func MonthBounds(t time.Time) (time.Time, time.Time) {
	start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
	return start, start.AddDate(0, 1, 0)
}

// SchoolYearOf returns the school year containing t, e.g. "2024/2025" for any
// date from July 2024 through June 2025
func SchoolYearOf(t time.Time) string {
	year := t.Year()
	if t.Month() < SchoolYearStartMonth {
		year--
	}
	return fmt.Sprintf("%d/%d", year, year+1)
}

// MonthName returns the Indonesian name of a month (1-12), or "" when out of range
func MonthName(month int) string {
	if month < 1 || month > 12 {
		return ""
	}
	return monthNames[month-1]
}
