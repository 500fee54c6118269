package repository

import (
	"time"

	"github.com/pesio-ai/be-hr-timesheets/internal/timecalc"
)

// ── Domain types for the timesheet workflow ──────────────────────────────────

// Timesheet statuses.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
)

// Audit actions recorded on lifecycle transitions.
const (
	ActionCreated   = "created"
	ActionDaysaved  = "day_saved"
	ActionSubmitted = "submitted"
	ActionApproved  = "approved"
	ActionRejected  = "rejected"
	ActionAmended   = "amended"
	ActionDeleted   = "deleted"
)

// Employee roles and compensation classes.
const (
	RoleHourly = "hourly"
	RoleAdmin  = "admin"

	CompHourly   = "hourly"
	CompSalaried = "salaried"
)

// Employee is a timesheet owner or approver.
type Employee struct {
	ID           string
	Username     string
	PasswordHash string
	FullName     string
	Role         string // hourly | admin
	CompClass    string // hourly | salaried
	Active       bool
	CreatedAt    time.Time
}

// Timesheet is the aggregate root: one employee, one Monday-keyed week,
// exactly seven day rows. Unique per (employee_id, week_start).
type Timesheet struct {
	ID          string
	EmployeeID  string
	WeekStart   time.Time
	Status      string // draft | submitted | approved
	Certified   bool
	SubmittedAt *time.Time
	Approved    bool
	ApprovedBy  *string
	ApprovedAt  *time.Time
	CompClass   string // informational for salaried employees

	// Weekly totals, minutes. Overwritten on every recomputation.
	RegularMin    int
	OvertimeMin   int
	DoubleTimeMin int
	TravelMin     int
	SickMin       int
	HolidayMin    int
	VacationMin   int

	AdminNotes *string
	CreatedAt  time.Time
	UpdatedAt  time.Time

	Days     []*TimesheetDay
	Expenses []*ExpenseLine
}

// TimesheetDay stores one day's raw entry alongside its derived breakdown.
// Unique per (timesheet_id, day); writes are upserts on that key.
type TimesheetDay struct {
	ID          string
	TimesheetID string
	Entry       timecalc.DayEntry
	Hours       timecalc.DayHours
	UpdatedAt   time.Time
}

// ExpenseLine is one reimbursable expense on a timesheet.
type ExpenseLine struct {
	ID          string
	TimesheetID string
	Description string
	AmountCents int64
	CreatedAt   time.Time
}

// AuditEntry is one immutable record in the timesheet audit log.
type AuditEntry struct {
	ID           string
	TimesheetID  string
	ActorID      string
	Action       string
	StatusBefore *string
	StatusAfter  *string
	Detail       string
	Metadata     map[string]interface{} // arbitrary JSON context
	PerformedAt  time.Time
}
