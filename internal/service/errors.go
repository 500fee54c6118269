package service

import "fmt"

// InvalidTransitionError reports a workflow action attempted from a state
// that does not permit it. The attempt has no side effects.
type InvalidTransitionError struct {
	Status string
	Action string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a timesheet with status '%s'", e.Action, e.Status)
}

// IncompleteTimesheetError reports a submission attempt with days that lack
// both worked times and a leave tag.
type IncompleteTimesheetError struct {
	MissingDays []string
}

func (e *IncompleteTimesheetError) Error() string {
	return fmt.Sprintf("timesheet is incomplete: %v lack worked times or a leave tag", e.MissingDays)
}

// DuplicateTimesheetError reports that a timesheet already exists for the
// (employee, week) pair. ExistingID lets the caller redirect instead of
// duplicating.
type DuplicateTimesheetError struct {
	ExistingID string
}

func (e *DuplicateTimesheetError) Error() string {
	return fmt.Sprintf("timesheet already exists for this week (id %s)", e.ExistingID)
}
