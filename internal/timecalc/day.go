package timecalc

import "fmt"

// Daily ladder thresholds and the paid rest break allowance, in minutes.
const (
	regularDailyLimitMin   = 8 * 60
	doubleTimeThresholdMin = 12 * 60
	paidRestBreakMaxMin    = 10
	leaveDayCreditMin      = 8 * 60
)

// DayEntry is one raw day of a timesheet as the employee entered it.
// Clock fields are "HH:MM" strings; an empty pair means the interval was not
// taken. Immutable once the parent timesheet is certified.
type DayEntry struct {
	Day           string `json:"day"`
	Worked        bool   `json:"worked"`
	TimeIn        string `json:"time_in,omitempty"`
	TimeOut       string `json:"time_out,omitempty"`
	MealStart     string `json:"meal_start,omitempty"`
	MealEnd       string `json:"meal_end,omitempty"`
	AMBreakStart  string `json:"am_break_start,omitempty"`
	AMBreakEnd    string `json:"am_break_end,omitempty"`
	PMBreakStart  string `json:"pm_break_start,omitempty"`
	PMBreakEnd    string `json:"pm_break_end,omitempty"`
	TravelMinutes int    `json:"travel_minutes,omitempty"`
	LeaveType     string `json:"leave_type,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

// DayHours is the derived breakdown for one day. Derived only; never
// hand-edited. Minutes throughout; use the *Hours accessors for presentation.
type DayHours struct {
	RegularMin    int  `json:"regular_min"`
	OvertimeMin   int  `json:"overtime_min"`
	DoubleTimeMin int  `json:"double_time_min"`
	TravelMin     int  `json:"travel_min"`
	SickMin       int  `json:"sick_min"`
	HolidayMin    int  `json:"holiday_min"`
	VacationMin   int  `json:"vacation_min"`
	SeventhDay    bool `json:"seventh_day"`

	// Deduction detail that produced the figures above.
	MealDeductedMin int  `json:"meal_deducted_min"`
	AMDeductedMin   int  `json:"am_deducted_min"`
	PMDeductedMin   int  `json:"pm_deducted_min"`
	MealBreakMissed bool `json:"meal_break_missed"`
}

func (d *DayHours) RegularHours() float64    { return Hours(d.RegularMin) }
func (d *DayHours) OvertimeHours() float64   { return Hours(d.OvertimeMin) }
func (d *DayHours) DoubleTimeHours() float64 { return Hours(d.DoubleTimeMin) }

// WorkedMin is total laddered minutes for the day.
func (d *DayHours) WorkedMin() int {
	return d.RegularMin + d.OvertimeMin + d.DoubleTimeMin
}

// InvalidTimeEntryError reports a malformed or contradictory day entry.
// Always a client input error; never retried.
type InvalidTimeEntryError struct {
	Day    string
	Reason string
}

func (e *InvalidTimeEntryError) Error() string {
	return fmt.Sprintf("invalid time entry for %s: %s", e.Day, e.Reason)
}

func invalidEntry(day, format string, args ...any) error {
	return &InvalidTimeEntryError{Day: day, Reason: fmt.Sprintf(format, args...)}
}

// ComputeDay turns a raw entry into its hour breakdown. seventhDay marks the
// entry as the employee's seventh consecutive working day, which reclassifies
// the whole day: first 8h overtime, remainder double-time, no regular hours.
//
// Deduction policy: the meal break is always deducted in full, whatever its
// length. A worked day with no meal break (absent or zero-length) deducts
// nothing but is flagged MealBreakMissed for compliance review. AM/PM rest
// breaks are paid up to 10 minutes and deducted in full beyond that. Travel
// minutes are a separate category and never enter the ladder.
func ComputeDay(entry DayEntry, seventhDay bool) (*DayHours, error) {
	if entry.TravelMinutes < 0 {
		return nil, invalidEntry(entry.Day, "travel minutes cannot be negative")
	}
	if entry.LeaveType != "" && !ValidLeaveType(entry.LeaveType) {
		return nil, invalidEntry(entry.Day, "unknown leave type %q", entry.LeaveType)
	}

	hours := &DayHours{TravelMin: entry.TravelMinutes}

	if !entry.Worked {
		// Leave day: credit a standard day to the leave category, outside
		// the overtime ladder. No tag means a plain day off.
		switch entry.LeaveType {
		case LeaveSick:
			hours.SickMin = leaveDayCreditMin
		case LeaveHoliday:
			hours.HolidayMin = leaveDayCreditMin
		case LeaveVacation:
			hours.VacationMin = leaveDayCreditMin
		}
		return hours, nil
	}

	timeIn, err := parseClock(entry.TimeIn)
	if err != nil {
		return nil, invalidEntry(entry.Day, "time in: %v", err)
	}
	timeOut, err := parseClock(entry.TimeOut)
	if err != nil {
		return nil, invalidEntry(entry.Day, "time out: %v", err)
	}
	if timeOut < timeIn {
		return nil, invalidEntry(entry.Day, "time out %s precedes time in %s", entry.TimeOut, entry.TimeIn)
	}

	mealDur, err := breakDuration(entry.Day, "meal break", entry.MealStart, entry.MealEnd, timeIn, timeOut)
	if err != nil {
		return nil, err
	}
	amDur, err := breakDuration(entry.Day, "am break", entry.AMBreakStart, entry.AMBreakEnd, timeIn, timeOut)
	if err != nil {
		return nil, err
	}
	pmDur, err := breakDuration(entry.Day, "pm break", entry.PMBreakStart, entry.PMBreakEnd, timeIn, timeOut)
	if err != nil {
		return nil, err
	}

	hours.MealDeductedMin = mealDur
	hours.MealBreakMissed = mealDur == 0
	if amDur > paidRestBreakMaxMin {
		hours.AMDeductedMin = amDur
	}
	if pmDur > paidRestBreakMaxMin {
		hours.PMDeductedMin = pmDur
	}

	net := (timeOut - timeIn) - hours.MealDeductedMin - hours.AMDeductedMin - hours.PMDeductedMin
	if net < 0 {
		return nil, invalidEntry(entry.Day, "deducted break time exceeds worked time")
	}

	hours.SeventhDay = seventhDay
	if seventhDay {
		// Seventh consecutive day: regular rate is suppressed entirely.
		hours.OvertimeMin = min(net, regularDailyLimitMin)
		hours.DoubleTimeMin = max(net-regularDailyLimitMin, 0)
		return hours, nil
	}

	hours.RegularMin = min(net, regularDailyLimitMin)
	hours.OvertimeMin = min(max(net-regularDailyLimitMin, 0), doubleTimeThresholdMin-regularDailyLimitMin)
	hours.DoubleTimeMin = max(net-doubleTimeThresholdMin, 0)
	return hours, nil
}

// breakDuration parses an optional break interval, validating that it lies
// inside the work interval. Returns 0 when the break was not taken.
func breakDuration(day, name, start, end string, timeIn, timeOut int) (int, error) {
	if start == "" && end == "" {
		return 0, nil
	}
	if start == "" || end == "" {
		return 0, invalidEntry(day, "%s has only one of start/end", name)
	}
	s, err := parseClock(start)
	if err != nil {
		return 0, invalidEntry(day, "%s start: %v", name, err)
	}
	e, err := parseClock(end)
	if err != nil {
		return 0, invalidEntry(day, "%s end: %v", name, err)
	}
	if e < s {
		return 0, invalidEntry(day, "%s ends %s before it starts %s", name, end, start)
	}
	if s < timeIn || e > timeOut {
		return 0, invalidEntry(day, "%s falls outside the work interval", name)
	}
	return e - s, nil
}
