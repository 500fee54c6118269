package timecalc

// WeekResult is the outcome of folding a week of entries: the per-day
// breakdowns in entry order plus the week totals, all in minutes.
type WeekResult struct {
	Days          []*DayHours
	RegularMin    int
	OvertimeMin   int
	DoubleTimeMin int
	TravelMin     int
	SickMin       int
	HolidayMin    int
	VacationMin   int
}

func (w *WeekResult) RegularHours() float64    { return Hours(w.RegularMin) }
func (w *WeekResult) OvertimeHours() float64   { return Hours(w.OvertimeMin) }
func (w *WeekResult) DoubleTimeHours() float64 { return Hours(w.DoubleTimeMin) }

// ComputeWeek folds the seven ordered day entries into per-day breakdowns and
// week totals, applying the seventh-consecutive-day reclassification.
//
// priorWeekTail is the number of consecutive worked days immediately before
// this week's Monday, looked up by the caller from the prior week's record.
// A nil tail means prior-week data is unavailable; consecutiveness is then
// evaluated from the current week's days alone (degraded mode, not an error).
// Any day at streak position seven or later is reclassified.
//
// A wrong entry count or out-of-order day labels come from the caller's input
// and fail with InvalidTimeEntryError, like any other malformed entry.
func ComputeWeek(entries []DayEntry, priorWeekTail *int) (*WeekResult, error) {
	if len(entries) != len(WeekDays) {
		return nil, invalidEntry("week", "expected %d day entries, got %d", len(WeekDays), len(entries))
	}
	for i, entry := range entries {
		if entry.Day != WeekDays[i] {
			return nil, invalidEntry(entry.Day, "out of order: position %d, want %q", i, WeekDays[i])
		}
	}

	streak := 0
	if priorWeekTail != nil && *priorWeekTail > 0 {
		streak = *priorWeekTail
	}

	result := &WeekResult{Days: make([]*DayHours, 0, len(entries))}
	for _, entry := range entries {
		seventh := false
		if entry.Worked {
			streak++
			seventh = streak >= 7
		} else {
			streak = 0
		}

		day, err := ComputeDay(entry, seventh)
		if err != nil {
			return nil, err
		}

		result.Days = append(result.Days, day)
		result.RegularMin += day.RegularMin
		result.OvertimeMin += day.OvertimeMin
		result.DoubleTimeMin += day.DoubleTimeMin
		result.TravelMin += day.TravelMin
		result.SickMin += day.SickMin
		result.HolidayMin += day.HolidayMin
		result.VacationMin += day.VacationMin
	}

	return result, nil
}

// TrailingWorkedDays returns the length of the consecutive worked-day run at
// the end of a week's entries. This is the prior-week tail fed into the next
// week's ComputeWeek.
func TrailingWorkedDays(entries []DayEntry) int {
	tail := 0
	for i := len(entries) - 1; i >= 0; i-- {
		if !entries[i].Worked {
			break
		}
		tail++
	}
	return tail
}
