package timecalc_test

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/pesio-ai/be-hr-timesheets/internal/timecalc"
)

// standardWeek builds seven entries, working the given day labels 8:00-16:30
// with a half-hour meal break.
func standardWeek(workedDays ...string) []timecalc.DayEntry {
	worked := make(map[string]bool, len(workedDays))
	for _, d := range workedDays {
		worked[d] = true
	}
	entries := make([]timecalc.DayEntry, 0, 7)
	for _, day := range timecalc.WeekDays {
		if worked[day] {
			entries = append(entries, workedDay(day, "08:00", "16:30", "12:00", "12:30"))
		} else {
			entries = append(entries, timecalc.DayEntry{Day: day})
		}
	}
	return entries
}

func TestComputeWeekTotals(t *testing.T) {
	entries := standardWeek(timecalc.Monday, timecalc.Tuesday, timecalc.Wednesday, timecalc.Thursday, timecalc.Friday)
	entries[5] = timecalc.DayEntry{Day: timecalc.Saturday, LeaveType: timecalc.LeaveVacation}

	got, err := timecalc.ComputeWeek(entries, nil)
	if err != nil {
		t.Fatalf("ComputeWeek: %v", err)
	}
	if got.RegularHours() != 40.00 {
		t.Errorf("regular = %.2f, want 40.00", got.RegularHours())
	}
	if got.OvertimeMin != 0 || got.DoubleTimeMin != 0 {
		t.Errorf("overtime/doubleTime = %d/%d, want 0/0", got.OvertimeMin, got.DoubleTimeMin)
	}
	if got.VacationMin != 480 {
		t.Errorf("vacation = %d, want 480", got.VacationMin)
	}
	if len(got.Days) != 7 {
		t.Fatalf("days = %d, want 7", len(got.Days))
	}
}

func TestComputeWeekSeventhDayWithinWeek(t *testing.T) {
	entries := standardWeek(timecalc.WeekDays[:]...)

	got, err := timecalc.ComputeWeek(entries, nil)
	if err != nil {
		t.Fatalf("ComputeWeek: %v", err)
	}
	for i := 0; i < 6; i++ {
		if got.Days[i].SeventhDay {
			t.Errorf("day %d flagged as seventh day", i)
		}
	}
	if !got.Days[6].SeventhDay {
		t.Error("sunday not flagged as seventh consecutive day")
	}
	if got.Days[6].RegularMin != 0 || got.Days[6].OvertimeMin != 480 {
		t.Errorf("sunday = %d regular / %d overtime min, want 0/480",
			got.Days[6].RegularMin, got.Days[6].OvertimeMin)
	}
}

func TestComputeWeekPriorTailCompletesStreak(t *testing.T) {
	// Four trailing worked days last week: Wednesday is day seven.
	entries := standardWeek(timecalc.Monday, timecalc.Tuesday, timecalc.Wednesday, timecalc.Thursday)
	tail := 4

	got, err := timecalc.ComputeWeek(entries, &tail)
	if err != nil {
		t.Fatalf("ComputeWeek: %v", err)
	}
	if got.Days[0].SeventhDay || got.Days[1].SeventhDay {
		t.Error("monday/tuesday should not be seventh days")
	}
	if !got.Days[2].SeventhDay {
		t.Error("wednesday should be the seventh consecutive day")
	}
	// The streak continues: thursday is the eighth day, still reclassified.
	if !got.Days[3].SeventhDay {
		t.Error("thursday (eighth consecutive day) should stay reclassified")
	}
}

func TestComputeWeekRestDayResetsStreak(t *testing.T) {
	entries := standardWeek(timecalc.Monday, timecalc.Tuesday, timecalc.Thursday, timecalc.Friday,
		timecalc.Saturday, timecalc.Sunday)
	tail := 6

	got, err := timecalc.ComputeWeek(entries, &tail)
	if err != nil {
		t.Fatalf("ComputeWeek: %v", err)
	}
	// Monday completes the streak from last week.
	if !got.Days[0].SeventhDay {
		t.Error("monday should be the seventh consecutive day")
	}
	// Wednesday off resets the streak; the rest of the week is plain.
	for i := 3; i < 7; i++ {
		if got.Days[i].SeventhDay {
			t.Errorf("day %d flagged seventh after a rest day", i)
		}
	}
}

func TestComputeWeekDegradedModeIgnoresMissingTail(t *testing.T) {
	entries := standardWeek(timecalc.Monday, timecalc.Tuesday, timecalc.Wednesday)

	withNil, err := timecalc.ComputeWeek(entries, nil)
	if err != nil {
		t.Fatalf("ComputeWeek: %v", err)
	}
	zero := 0
	withZero, err := timecalc.ComputeWeek(entries, &zero)
	if err != nil {
		t.Fatalf("ComputeWeek: %v", err)
	}
	if !reflect.DeepEqual(withNil, withZero) {
		t.Error("nil tail should behave like a zero tail")
	}
}

func TestComputeWeekIdempotent(t *testing.T) {
	entries := standardWeek(timecalc.Monday, timecalc.Wednesday, timecalc.Friday)
	entries[1] = timecalc.DayEntry{Day: timecalc.Tuesday, LeaveType: timecalc.LeaveSick}

	first, err := timecalc.ComputeWeek(entries, nil)
	if err != nil {
		t.Fatalf("ComputeWeek: %v", err)
	}
	second, err := timecalc.ComputeWeek(entries, nil)
	if err != nil {
		t.Fatalf("ComputeWeek: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated ComputeWeek calls on identical input differ")
	}
}

func TestComputeWeekRejectsBadShape(t *testing.T) {
	// Shape defects are client input, so they carry the same error class as
	// any other malformed entry.
	var invalid *timecalc.InvalidTimeEntryError

	_, err := timecalc.ComputeWeek(standardWeek()[:5], nil)
	if !errors.As(err, &invalid) {
		t.Errorf("five entries: error = %v, want *InvalidTimeEntryError", err)
	}

	shuffled := standardWeek()
	shuffled[0], shuffled[1] = shuffled[1], shuffled[0]
	_, err = timecalc.ComputeWeek(shuffled, nil)
	if !errors.As(err, &invalid) {
		t.Errorf("out-of-order entries: error = %v, want *InvalidTimeEntryError", err)
	}
}

func TestTrailingWorkedDays(t *testing.T) {
	tests := []struct {
		name string
		days []string
		want int
	}{
		{"empty week", nil, 0},
		{"weekend worked", []string{timecalc.Saturday, timecalc.Sunday}, 2},
		{"full week", timecalc.WeekDays[:], 7},
		{"gap before weekend", []string{timecalc.Monday, timecalc.Friday, timecalc.Saturday, timecalc.Sunday}, 3},
		{"sunday off", []string{timecalc.Friday, timecalc.Saturday}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := timecalc.TrailingWorkedDays(standardWeek(tt.days...))
			if got != tt.want {
				t.Errorf("TrailingWorkedDays = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			"friday normalizes back to monday",
			time.Date(2026, 2, 27, 10, 30, 0, 0, time.UTC),
			time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC),
		},
		{
			"sunday belongs to the preceding monday",
			time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC),
			time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC),
		},
		{
			"monday is a fixed point",
			time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 2, 23, 0, 0, 0, 0, time.UTC),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := timecalc.WeekStart(tt.in); !got.Equal(tt.want) {
				t.Errorf("WeekStart = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHoursRounding(t *testing.T) {
	tests := []struct {
		minutes int
		want    float64
	}{
		{0, 0},
		{480, 8.00},
		{481, 8.02},
		{90, 1.5},
		{50, 0.83},
	}
	for _, tt := range tests {
		if got := timecalc.Hours(tt.minutes); got != tt.want {
			t.Errorf("Hours(%d) = %.2f, want %.2f", tt.minutes, got, tt.want)
		}
	}
}
