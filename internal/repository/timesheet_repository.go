package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-hr-timesheets/internal/apperrors"
	"github.com/pesio-ai/be-hr-timesheets/internal/database"
	"github.com/pesio-ai/be-hr-timesheets/internal/timecalc"
)

// ErrDuplicateWeek is returned by Create when a timesheet already exists for
// the (employee, week_start) pair. The unique constraint is the authoritative
// guard; callers translate this into a DuplicateTimesheet error with the
// existing id.
var ErrDuplicateWeek = errors.New("timesheet already exists for employee and week")

// TimesheetRepository handles timesheet aggregate data operations.
type TimesheetRepository struct {
	db *database.DB
}

// NewTimesheetRepository creates a new timesheet repository.
func NewTimesheetRepository(db *database.DB) *TimesheetRepository {
	return &TimesheetRepository{db: db}
}

// Create inserts a timesheet header with its seven day rows and the creation
// audit entry in one transaction.
func (r *TimesheetRepository) Create(ctx context.Context, ts *Timesheet, audit *AuditEntry) error {
	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO timesheets (employee_id, week_start, status, certified, comp_class,
			                        regular_min, overtime_min, double_time_min,
			                        travel_min, sick_min, holiday_min, vacation_min)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING id, created_at, updated_at
		`
		err := tx.QueryRow(ctx, query,
			ts.EmployeeID,
			ts.WeekStart,
			ts.Status,
			ts.Certified,
			ts.CompClass,
			ts.RegularMin,
			ts.OvertimeMin,
			ts.DoubleTimeMin,
			ts.TravelMin,
			ts.SickMin,
			ts.HolidayMin,
			ts.VacationMin,
		).Scan(&ts.ID, &ts.CreatedAt, &ts.UpdatedAt)
		if err != nil {
			if database.IsUniqueViolation(err) {
				return ErrDuplicateWeek
			}
			return apperrors.Unavailable(err, "failed to create timesheet")
		}

		for _, day := range ts.Days {
			day.TimesheetID = ts.ID
			if err := upsertDayTx(ctx, tx, day); err != nil {
				return err
			}
		}

		if audit != nil {
			audit.TimesheetID = ts.ID
			if err := insertAudit(ctx, tx, audit); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

// GetByID retrieves a timesheet with its day rows and expenses.
func (r *TimesheetRepository) GetByID(ctx context.Context, id string) (*Timesheet, error) {
	ts := &Timesheet{}
	query := timesheetSelect + ` WHERE id = $1`
	if err := scanTimesheet(r.db.QueryRow(ctx, query, id), ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("timesheet", id)
		}
		return nil, apperrors.Unavailable(err, "failed to get timesheet")
	}

	if err := r.loadChildren(ctx, ts); err != nil {
		return nil, err
	}
	return ts, nil
}

// FindByEmployeeWeek returns the timesheet for the (employee, week) pair, or
// nil when none exists. weekStart must already be Monday-normalized.
func (r *TimesheetRepository) FindByEmployeeWeek(ctx context.Context, employeeID string, weekStart time.Time) (*Timesheet, error) {
	ts := &Timesheet{}
	query := timesheetSelect + ` WHERE employee_id = $1 AND week_start = $2`
	if err := scanTimesheet(r.db.QueryRow(ctx, query, employeeID, weekStart), ts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperrors.Unavailable(err, "failed to find timesheet")
	}

	if err := r.loadChildren(ctx, ts); err != nil {
		return nil, err
	}
	return ts, nil
}

// ListByEmployee returns an employee's timesheets, newest week first, without
// day rows or expenses.
func (r *TimesheetRepository) ListByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]*Timesheet, error) {
	query := timesheetSelect + ` WHERE employee_id = $1 ORDER BY week_start DESC LIMIT $2 OFFSET $3`
	rows, err := r.db.Query(ctx, query, employeeID, limit, offset)
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to list timesheets")
	}
	defer rows.Close()
	return scanTimesheets(rows)
}

// ListByWeek returns all timesheets for a week, optionally filtered by status.
func (r *TimesheetRepository) ListByWeek(ctx context.Context, weekStart time.Time, status *string) ([]*Timesheet, error) {
	query := timesheetSelect + ` WHERE week_start = $1`
	args := []any{weekStart}
	if status != nil {
		query += ` AND status = $2`
		args = append(args, *status)
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to list timesheets for week")
	}
	defer rows.Close()
	return scanTimesheets(rows)
}

// Commit persists a lifecycle mutation as one atomic unit: the header (status,
// flags, totals, notes), every loaded day row, and the audit entry. A reader
// never observes a status without its matching totals and audit record.
func (r *TimesheetRepository) Commit(ctx context.Context, ts *Timesheet, audit *AuditEntry) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE timesheets
			SET status = $2,
			    certified = $3,
			    submitted_at = $4,
			    approved = $5,
			    approved_by = $6,
			    approved_at = $7,
			    regular_min = $8,
			    overtime_min = $9,
			    double_time_min = $10,
			    travel_min = $11,
			    sick_min = $12,
			    holiday_min = $13,
			    vacation_min = $14,
			    admin_notes = $15,
			    updated_at = NOW()
			WHERE id = $1
			RETURNING updated_at
		`
		err := tx.QueryRow(ctx, query,
			ts.ID,
			ts.Status,
			ts.Certified,
			ts.SubmittedAt,
			ts.Approved,
			ts.ApprovedBy,
			ts.ApprovedAt,
			ts.RegularMin,
			ts.OvertimeMin,
			ts.DoubleTimeMin,
			ts.TravelMin,
			ts.SickMin,
			ts.HolidayMin,
			ts.VacationMin,
			ts.AdminNotes,
		).Scan(&ts.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.NotFound("timesheet", ts.ID)
		}
		if err != nil {
			return apperrors.Unavailable(err, "failed to update timesheet")
		}

		for _, day := range ts.Days {
			day.TimesheetID = ts.ID
			if err := upsertDayTx(ctx, tx, day); err != nil {
				return err
			}
		}

		if audit != nil {
			audit.TimesheetID = ts.ID
			if err := insertAudit(ctx, tx, audit); err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a draft timesheet. Day rows and expenses cascade.
func (r *TimesheetRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM timesheets WHERE id = $1 AND status = 'draft'`, id)
	if err != nil {
		return apperrors.Unavailable(err, "failed to delete timesheet")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.New(apperrors.CodeConflict, "only draft timesheets can be deleted")
	}
	return nil
}

// ── Expenses ─────────────────────────────────────────────────────────────────

// AddExpense appends one reimbursable expense line.
func (r *TimesheetRepository) AddExpense(ctx context.Context, line *ExpenseLine) error {
	query := `
		INSERT INTO timesheet_expenses (timesheet_id, description, amount_cents)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query, line.TimesheetID, line.Description, line.AmountCents).
		Scan(&line.ID, &line.CreatedAt)
	if err != nil {
		return apperrors.Unavailable(err, "failed to add expense")
	}
	return nil
}

// DeleteExpense removes one expense line from a timesheet.
func (r *TimesheetRepository) DeleteExpense(ctx context.Context, timesheetID, expenseID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM timesheet_expenses WHERE id = $1 AND timesheet_id = $2`, expenseID, timesheetID)
	if err != nil {
		return apperrors.Unavailable(err, "failed to delete expense")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("expense", expenseID)
	}
	return nil
}

// ── Internal helpers ─────────────────────────────────────────────────────────

const timesheetSelect = `
	SELECT id, employee_id, week_start, status, certified, submitted_at,
	       approved, approved_by, approved_at, comp_class,
	       regular_min, overtime_min, double_time_min,
	       travel_min, sick_min, holiday_min, vacation_min,
	       admin_notes, created_at, updated_at
	FROM timesheets`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTimesheet(row rowScanner, ts *Timesheet) error {
	return row.Scan(
		&ts.ID,
		&ts.EmployeeID,
		&ts.WeekStart,
		&ts.Status,
		&ts.Certified,
		&ts.SubmittedAt,
		&ts.Approved,
		&ts.ApprovedBy,
		&ts.ApprovedAt,
		&ts.CompClass,
		&ts.RegularMin,
		&ts.OvertimeMin,
		&ts.DoubleTimeMin,
		&ts.TravelMin,
		&ts.SickMin,
		&ts.HolidayMin,
		&ts.VacationMin,
		&ts.AdminNotes,
		&ts.CreatedAt,
		&ts.UpdatedAt,
	)
}

func scanTimesheets(rows pgx.Rows) ([]*Timesheet, error) {
	sheets := make([]*Timesheet, 0)
	for rows.Next() {
		ts := &Timesheet{}
		if err := scanTimesheet(rows, ts); err != nil {
			return nil, apperrors.Unavailable(err, "failed to scan timesheet")
		}
		sheets = append(sheets, ts)
	}
	return sheets, nil
}

func (r *TimesheetRepository) loadChildren(ctx context.Context, ts *Timesheet) error {
	days, err := r.getDays(ctx, ts.ID)
	if err != nil {
		return err
	}
	ts.Days = days

	expenses, err := r.getExpenses(ctx, ts.ID)
	if err != nil {
		return err
	}
	ts.Expenses = expenses
	return nil
}

func (r *TimesheetRepository) getDays(ctx context.Context, timesheetID string) ([]*TimesheetDay, error) {
	query := `
		SELECT id, timesheet_id, day, worked,
		       time_in, time_out, meal_start, meal_end,
		       am_break_start, am_break_end, pm_break_start, pm_break_end,
		       travel_minutes, leave_type, reason,
		       regular_min, overtime_min, double_time_min,
		       sick_min, holiday_min, vacation_min, seventh_day,
		       meal_deducted_min, am_deducted_min, pm_deducted_min, meal_break_missed,
		       updated_at
		FROM timesheet_days
		WHERE timesheet_id = $1
		ORDER BY array_position($2::text[], day)
	`
	rows, err := r.db.Query(ctx, query, timesheetID, timecalc.WeekDays[:])
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to get timesheet days")
	}
	defer rows.Close()

	days := make([]*TimesheetDay, 0, len(timecalc.WeekDays))
	for rows.Next() {
		day := &TimesheetDay{}
		err := rows.Scan(
			&day.ID,
			&day.TimesheetID,
			&day.Entry.Day,
			&day.Entry.Worked,
			&day.Entry.TimeIn,
			&day.Entry.TimeOut,
			&day.Entry.MealStart,
			&day.Entry.MealEnd,
			&day.Entry.AMBreakStart,
			&day.Entry.AMBreakEnd,
			&day.Entry.PMBreakStart,
			&day.Entry.PMBreakEnd,
			&day.Entry.TravelMinutes,
			&day.Entry.LeaveType,
			&day.Entry.Reason,
			&day.Hours.RegularMin,
			&day.Hours.OvertimeMin,
			&day.Hours.DoubleTimeMin,
			&day.Hours.SickMin,
			&day.Hours.HolidayMin,
			&day.Hours.VacationMin,
			&day.Hours.SeventhDay,
			&day.Hours.MealDeductedMin,
			&day.Hours.AMDeductedMin,
			&day.Hours.PMDeductedMin,
			&day.Hours.MealBreakMissed,
			&day.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Unavailable(err, "failed to scan timesheet day")
		}
		day.Hours.TravelMin = day.Entry.TravelMinutes
		days = append(days, day)
	}
	return days, nil
}

func (r *TimesheetRepository) getExpenses(ctx context.Context, timesheetID string) ([]*ExpenseLine, error) {
	query := `
		SELECT id, timesheet_id, description, amount_cents, created_at
		FROM timesheet_expenses
		WHERE timesheet_id = $1
		ORDER BY created_at
	`
	rows, err := r.db.Query(ctx, query, timesheetID)
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to get expenses")
	}
	defer rows.Close()

	lines := make([]*ExpenseLine, 0)
	for rows.Next() {
		line := &ExpenseLine{}
		if err := rows.Scan(&line.ID, &line.TimesheetID, &line.Description, &line.AmountCents, &line.CreatedAt); err != nil {
			return nil, apperrors.Unavailable(err, "failed to scan expense")
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// upsertDayTx writes one day row keyed by (timesheet_id, day) so repeated
// writes of the same day are idempotent instead of creating duplicates.
func upsertDayTx(ctx context.Context, tx pgx.Tx, day *TimesheetDay) error {
	query := `
		INSERT INTO timesheet_days (timesheet_id, day, worked,
		    time_in, time_out, meal_start, meal_end,
		    am_break_start, am_break_end, pm_break_start, pm_break_end,
		    travel_minutes, leave_type, reason,
		    regular_min, overtime_min, double_time_min,
		    sick_min, holiday_min, vacation_min, seventh_day,
		    meal_deducted_min, am_deducted_min, pm_deducted_min, meal_break_missed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
		        $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25)
		ON CONFLICT (timesheet_id, day) DO UPDATE SET
		    worked = EXCLUDED.worked,
		    time_in = EXCLUDED.time_in,
		    time_out = EXCLUDED.time_out,
		    meal_start = EXCLUDED.meal_start,
		    meal_end = EXCLUDED.meal_end,
		    am_break_start = EXCLUDED.am_break_start,
		    am_break_end = EXCLUDED.am_break_end,
		    pm_break_start = EXCLUDED.pm_break_start,
		    pm_break_end = EXCLUDED.pm_break_end,
		    travel_minutes = EXCLUDED.travel_minutes,
		    leave_type = EXCLUDED.leave_type,
		    reason = EXCLUDED.reason,
		    regular_min = EXCLUDED.regular_min,
		    overtime_min = EXCLUDED.overtime_min,
		    double_time_min = EXCLUDED.double_time_min,
		    sick_min = EXCLUDED.sick_min,
		    holiday_min = EXCLUDED.holiday_min,
		    vacation_min = EXCLUDED.vacation_min,
		    seventh_day = EXCLUDED.seventh_day,
		    meal_deducted_min = EXCLUDED.meal_deducted_min,
		    am_deducted_min = EXCLUDED.am_deducted_min,
		    pm_deducted_min = EXCLUDED.pm_deducted_min,
		    meal_break_missed = EXCLUDED.meal_break_missed,
		    updated_at = NOW()
		RETURNING id, updated_at
	`
	err := tx.QueryRow(ctx, query,
		day.TimesheetID,
		day.Entry.Day,
		day.Entry.Worked,
		day.Entry.TimeIn,
		day.Entry.TimeOut,
		day.Entry.MealStart,
		day.Entry.MealEnd,
		day.Entry.AMBreakStart,
		day.Entry.AMBreakEnd,
		day.Entry.PMBreakStart,
		day.Entry.PMBreakEnd,
		day.Entry.TravelMinutes,
		day.Entry.LeaveType,
		day.Entry.Reason,
		day.Hours.RegularMin,
		day.Hours.OvertimeMin,
		day.Hours.DoubleTimeMin,
		day.Hours.SickMin,
		day.Hours.HolidayMin,
		day.Hours.VacationMin,
		day.Hours.SeventhDay,
		day.Hours.MealDeductedMin,
		day.Hours.AMDeductedMin,
		day.Hours.PMDeductedMin,
		day.Hours.MealBreakMissed,
	).Scan(&day.ID, &day.UpdatedAt)
	if err != nil {
		return apperrors.Unavailable(err, "failed to upsert timesheet day")
	}
	return nil
}
