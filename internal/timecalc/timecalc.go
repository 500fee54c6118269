// Package timecalc turns raw day entries into categorized hour breakdowns
// under the daily overtime ladder and the seventh-consecutive-day rule.
// Everything here is pure; storage and workflow live elsewhere.
package timecalc

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Day labels in week order, Monday first.
const (
	Monday    = "monday"
	Tuesday   = "tuesday"
	Wednesday = "wednesday"
	Thursday  = "thursday"
	Friday    = "friday"
	Saturday  = "saturday"
	Sunday    = "sunday"
)

// WeekDays is the fixed ordered set of day labels in a timesheet week.
var WeekDays = [7]string{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}

// Leave type tags on a non-worked day.
const (
	LeaveNone     = "none"
	LeaveSick     = "sick"
	LeaveHoliday  = "holiday"
	LeaveVacation = "vacation"
)

// ValidLeaveType reports whether tag is a recognized leave type.
func ValidLeaveType(tag string) bool {
	switch tag {
	case LeaveNone, LeaveSick, LeaveHoliday, LeaveVacation:
		return true
	}
	return false
}

// WeekStart normalizes t to the Monday of its week, at midnight in t's
// location. Every timesheet is keyed by this date.
func WeekStart(t time.Time) time.Time {
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7
	}
	monday := t.AddDate(0, 0, -(wd - 1))
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
}

// Hours converts minutes to fractional hours rounded to two decimals.
// Rounding happens only here, at presentation; aggregation stays in minutes.
func Hours(minutes int) float64 {
	return math.Round(float64(minutes)/60*100) / 100
}

// parseClock parses an "HH:MM" clock string into minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("malformed clock time %q", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("malformed clock time %q", s)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("malformed clock time %q", s)
	}
	return h*60 + m, nil
}
