package timecalc_test

import (
	"errors"
	"testing"

	"github.com/pesio-ai/be-hr-timesheets/internal/timecalc"
)

func workedDay(day, in, out, mealStart, mealEnd string) timecalc.DayEntry {
	return timecalc.DayEntry{
		Day:       day,
		Worked:    true,
		TimeIn:    in,
		TimeOut:   out,
		MealStart: mealStart,
		MealEnd:   mealEnd,
	}
}

func TestComputeDayLadder(t *testing.T) {
	tests := []struct {
		name                          string
		entry                         timecalc.DayEntry
		regular, overtime, doubleTime float64
	}{
		{
			name:    "exactly eight hours",
			entry:   workedDay(timecalc.Monday, "08:00", "16:30", "12:00", "12:30"),
			regular: 8.00,
		},
		{
			name:     "ten hour day",
			entry:    workedDay(timecalc.Monday, "07:00", "17:30", "12:00", "12:30"),
			regular:  8.00,
			overtime: 2.00,
		},
		{
			name:       "thirteen hour day",
			entry:      workedDay(timecalc.Monday, "06:00", "19:30", "12:00", "12:30"),
			regular:    8.00,
			overtime:   4.00,
			doubleTime: 1.00,
		},
		{
			name:    "short day",
			entry:   workedDay(timecalc.Tuesday, "09:00", "13:00", "", ""),
			regular: 4.00,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := timecalc.ComputeDay(tt.entry, false)
			if err != nil {
				t.Fatalf("ComputeDay: %v", err)
			}
			if got.RegularHours() != tt.regular {
				t.Errorf("regular = %.2f, want %.2f", got.RegularHours(), tt.regular)
			}
			if got.OvertimeHours() != tt.overtime {
				t.Errorf("overtime = %.2f, want %.2f", got.OvertimeHours(), tt.overtime)
			}
			if got.DoubleTimeHours() != tt.doubleTime {
				t.Errorf("doubleTime = %.2f, want %.2f", got.DoubleTimeHours(), tt.doubleTime)
			}
		})
	}
}

func TestComputeDayConservation(t *testing.T) {
	// regular + overtime + doubleTime must equal gross minus deductions, exactly.
	entry := timecalc.DayEntry{
		Day:          timecalc.Wednesday,
		Worked:       true,
		TimeIn:       "06:15",
		TimeOut:      "20:47",
		MealStart:    "12:00",
		MealEnd:      "12:23",
		AMBreakStart: "09:00",
		AMBreakEnd:   "09:15",
		PMBreakStart: "15:00",
		PMBreakEnd:   "15:10",
	}
	got, err := timecalc.ComputeDay(entry, false)
	if err != nil {
		t.Fatalf("ComputeDay: %v", err)
	}

	gross := (20*60 + 47) - (6*60 + 15)
	deducted := got.MealDeductedMin + got.AMDeductedMin + got.PMDeductedMin
	if got.WorkedMin() != gross-deducted {
		t.Errorf("worked = %d, want gross %d - deducted %d = %d", got.WorkedMin(), gross, deducted, gross-deducted)
	}
}

func TestComputeDayBreakDeductions(t *testing.T) {
	tests := []struct {
		name       string
		entry      timecalc.DayEntry
		meal       int
		am         int
		pm         int
		mealMissed bool
	}{
		{
			name:  "short meal break still deducted in full",
			entry: workedDay(timecalc.Monday, "08:00", "17:00", "12:00", "12:08"),
			meal:  8,
		},
		{
			name: "ten minute rest break is paid",
			entry: timecalc.DayEntry{
				Day: timecalc.Monday, Worked: true, TimeIn: "08:00", TimeOut: "17:00",
				MealStart: "12:00", MealEnd: "12:30",
				AMBreakStart: "10:00", AMBreakEnd: "10:10",
			},
			meal: 30,
		},
		{
			name: "eleven minute rest break deducted in full",
			entry: timecalc.DayEntry{
				Day: timecalc.Monday, Worked: true, TimeIn: "08:00", TimeOut: "17:00",
				MealStart: "12:00", MealEnd: "12:30",
				PMBreakStart: "15:00", PMBreakEnd: "15:11",
			},
			meal: 30,
			pm:   11,
		},
		{
			name:       "zero duration meal flagged not deducted",
			entry:      workedDay(timecalc.Monday, "08:00", "17:00", "12:00", "12:00"),
			mealMissed: true,
		},
		{
			name:       "absent meal break flagged",
			entry:      workedDay(timecalc.Monday, "08:00", "17:00", "", ""),
			mealMissed: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := timecalc.ComputeDay(tt.entry, false)
			if err != nil {
				t.Fatalf("ComputeDay: %v", err)
			}
			if got.MealDeductedMin != tt.meal {
				t.Errorf("meal deducted = %d, want %d", got.MealDeductedMin, tt.meal)
			}
			if got.AMDeductedMin != tt.am {
				t.Errorf("am deducted = %d, want %d", got.AMDeductedMin, tt.am)
			}
			if got.PMDeductedMin != tt.pm {
				t.Errorf("pm deducted = %d, want %d", got.PMDeductedMin, tt.pm)
			}
			if got.MealBreakMissed != tt.mealMissed {
				t.Errorf("meal break missed = %v, want %v", got.MealBreakMissed, tt.mealMissed)
			}
		})
	}
}

func TestComputeDaySeventhDay(t *testing.T) {
	// Nine worked hours on a seventh consecutive day: all overtime/double-time.
	entry := workedDay(timecalc.Sunday, "08:00", "17:30", "12:00", "12:30")
	got, err := timecalc.ComputeDay(entry, true)
	if err != nil {
		t.Fatalf("ComputeDay: %v", err)
	}
	if got.RegularHours() != 0 {
		t.Errorf("regular = %.2f, want 0", got.RegularHours())
	}
	if got.OvertimeHours() != 8.00 {
		t.Errorf("overtime = %.2f, want 8.00", got.OvertimeHours())
	}
	if got.DoubleTimeHours() != 1.00 {
		t.Errorf("doubleTime = %.2f, want 1.00", got.DoubleTimeHours())
	}
	if !got.SeventhDay {
		t.Error("expected SeventhDay flag set")
	}
}

func TestComputeDayLeave(t *testing.T) {
	tests := []struct {
		leave string
		check func(*timecalc.DayHours) int
	}{
		{timecalc.LeaveSick, func(d *timecalc.DayHours) int { return d.SickMin }},
		{timecalc.LeaveHoliday, func(d *timecalc.DayHours) int { return d.HolidayMin }},
		{timecalc.LeaveVacation, func(d *timecalc.DayHours) int { return d.VacationMin }},
	}
	for _, tt := range tests {
		t.Run(tt.leave, func(t *testing.T) {
			got, err := timecalc.ComputeDay(timecalc.DayEntry{Day: timecalc.Friday, LeaveType: tt.leave}, false)
			if err != nil {
				t.Fatalf("ComputeDay: %v", err)
			}
			if tt.check(got) != 480 {
				t.Errorf("leave credit = %d min, want 480", tt.check(got))
			}
			if got.WorkedMin() != 0 {
				t.Errorf("worked = %d min, want 0 on a leave day", got.WorkedMin())
			}
		})
	}
}

func TestComputeDayTravelOutsideLadder(t *testing.T) {
	entry := workedDay(timecalc.Monday, "06:00", "19:30", "12:00", "12:30")
	entry.TravelMinutes = 120
	got, err := timecalc.ComputeDay(entry, false)
	if err != nil {
		t.Fatalf("ComputeDay: %v", err)
	}
	if got.TravelMin != 120 {
		t.Errorf("travel = %d, want 120", got.TravelMin)
	}
	// The thirteen-hour ladder split is unchanged by travel time.
	if got.RegularHours() != 8.00 || got.OvertimeHours() != 4.00 || got.DoubleTimeHours() != 1.00 {
		t.Errorf("ladder = %.2f/%.2f/%.2f, want 8.00/4.00/1.00",
			got.RegularHours(), got.OvertimeHours(), got.DoubleTimeHours())
	}
}

func TestComputeDayInvalid(t *testing.T) {
	tests := []struct {
		name  string
		entry timecalc.DayEntry
	}{
		{"time out before time in", workedDay(timecalc.Monday, "17:00", "08:00", "", "")},
		{"meal ends before it starts", workedDay(timecalc.Monday, "08:00", "17:00", "12:30", "12:00")},
		{"meal before clock in", workedDay(timecalc.Monday, "08:00", "17:00", "07:00", "07:30")},
		{"meal after clock out", workedDay(timecalc.Monday, "08:00", "17:00", "17:30", "18:00")},
		{"half a break interval", timecalc.DayEntry{
			Day: timecalc.Monday, Worked: true, TimeIn: "08:00", TimeOut: "17:00", AMBreakStart: "10:00",
		}},
		{"garbage clock value", workedDay(timecalc.Monday, "8am", "17:00", "", "")},
		{"negative travel", timecalc.DayEntry{Day: timecalc.Monday, TravelMinutes: -5}},
		{"unknown leave type", timecalc.DayEntry{Day: timecalc.Monday, LeaveType: "sabbatical"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := timecalc.ComputeDay(tt.entry, false)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var invalid *timecalc.InvalidTimeEntryError
			if !errors.As(err, &invalid) {
				t.Errorf("error = %T, want *InvalidTimeEntryError", err)
			}
		})
	}
}
