package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pesio-ai/be-hr-timesheets/internal/apperrors"
	"github.com/pesio-ai/be-hr-timesheets/internal/repository"
	"github.com/pesio-ai/be-hr-timesheets/internal/timecalc"
)

// Actor is the authenticated caller of a service operation, resolved by the
// identity layer. The service never authenticates.
type Actor struct {
	ID        string
	Role      string
	CompClass string
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool { return a.Role == repository.RoleAdmin }

// TimesheetStore is the repository surface the lifecycle depends on. Every
// Commit is one atomic transaction (status + totals + day rows + audit entry).
type TimesheetStore interface {
	Create(ctx context.Context, ts *repository.Timesheet, audit *repository.AuditEntry) error
	GetByID(ctx context.Context, id string) (*repository.Timesheet, error)
	FindByEmployeeWeek(ctx context.Context, employeeID string, weekStart time.Time) (*repository.Timesheet, error)
	ListByEmployee(ctx context.Context, employeeID string, limit, offset int) ([]*repository.Timesheet, error)
	ListByWeek(ctx context.Context, weekStart time.Time, status *string) ([]*repository.Timesheet, error)
	Commit(ctx context.Context, ts *repository.Timesheet, audit *repository.AuditEntry) error
	Delete(ctx context.Context, id string) error
	AddExpense(ctx context.Context, line *repository.ExpenseLine) error
	DeleteExpense(ctx context.Context, timesheetID, expenseID string) error
}

// EmployeeDirectory resolves employees and their compensation class.
type EmployeeDirectory interface {
	GetByID(ctx context.Context, id string) (*repository.Employee, error)
}

// AuditLog is the append-only audit trail. Lifecycle transitions write their
// entries inside the Commit transaction; Append covers actions with no
// surviving row to commit against, such as draft deletion.
type AuditLog interface {
	Append(ctx context.Context, entry *repository.AuditEntry) error
	ListByTimesheet(ctx context.Context, timesheetID string) ([]*repository.AuditEntry, error)
}

// Notifier publishes workflow events. Implementations are fire-and-forget:
// failures are logged, never propagated.
type Notifier interface {
	PublishTimesheetEvent(ctx context.Context, eventType, timesheetID, actorID string, recipients []string, payload map[string]interface{})
}

// TimesheetService owns the timesheet lifecycle: creation with duplicate
// prevention, draft edits with recomputation, and the submit/approve/reject
// state machine.
type TimesheetService struct {
	timesheets TimesheetStore
	employees  EmployeeDirectory
	auditLog   AuditLog
	notifier   Notifier
	log        zerolog.Logger
	now        func() time.Time
}

// NewTimesheetService creates a new timesheet service.
func NewTimesheetService(
	timesheets TimesheetStore,
	employees EmployeeDirectory,
	auditLog AuditLog,
	notifier Notifier,
	log zerolog.Logger,
) *TimesheetService {
	return &TimesheetService{
		timesheets: timesheets,
		employees:  employees,
		auditLog:   auditLog,
		notifier:   notifier,
		log:        log,
		now:        time.Now,
	}
}

// WithClock replaces the time source. Tests use this to make submission and
// approval timestamps deterministic.
func (s *TimesheetService) WithClock(now func() time.Time) *TimesheetService {
	s.now = now
	return s
}

// ── Creation ─────────────────────────────────────────────────────────────────

// SubmitNew opens a new week for an employee from the given day entries.
// weekStart is normalized to its Monday. The pre-check against an existing
// week is best-effort; the storage unique constraint is the authoritative
// guard, and a losing racer gets the same DuplicateTimesheetError.
func (s *TimesheetService) SubmitNew(ctx context.Context, actor Actor, employeeID string, weekStart time.Time, entries []timecalc.DayEntry) (*repository.Timesheet, error) {
	if actor.ID != employeeID && !actor.IsAdmin() {
		return nil, apperrors.New(apperrors.CodeForbidden, "cannot open a timesheet for another employee")
	}

	employee, err := s.employees.GetByID(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	week := timecalc.WeekStart(weekStart)

	existing, err := s.timesheets.FindByEmployeeWeek(ctx, employeeID, week)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, &DuplicateTimesheetError{ExistingID: existing.ID}
	}

	result, err := timecalc.ComputeWeek(entries, s.priorWeekTail(ctx, employeeID, week))
	if err != nil {
		return nil, err
	}

	ts := &repository.Timesheet{
		EmployeeID: employeeID,
		WeekStart:  week,
		Status:     repository.StatusDraft,
		CompClass:  employee.CompClass,
	}
	applyComputation(ts, entries, result)

	audit := &repository.AuditEntry{
		ActorID:     actor.ID,
		Action:      repository.ActionCreated,
		StatusAfter: ptr(repository.StatusDraft),
		Detail:      fmt.Sprintf("opened week of %s for %s", week.Format("2006-01-02"), employee.Username),
	}

	if err := s.timesheets.Create(ctx, ts, audit); err != nil {
		if errors.Is(err, repository.ErrDuplicateWeek) {
			// Lost the create race; surface the winning row.
			winner, findErr := s.timesheets.FindByEmployeeWeek(ctx, employeeID, week)
			if findErr == nil && winner != nil {
				return nil, &DuplicateTimesheetError{ExistingID: winner.ID}
			}
			return nil, &DuplicateTimesheetError{}
		}
		return nil, err
	}

	s.log.Info().
		Str("timesheet_id", ts.ID).
		Str("employee_id", employeeID).
		Str("week_start", week.Format("2006-01-02")).
		Str("comp_class", ts.CompClass).
		Msg("Timesheet created")

	return ts, nil
}

// ── Reads ────────────────────────────────────────────────────────────────────

// Get returns a timesheet visible to the actor (owner or admin).
func (s *TimesheetService) Get(ctx context.Context, actor Actor, id string) (*repository.Timesheet, error) {
	ts, err := s.timesheets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.assertCanView(actor, ts); err != nil {
		return nil, err
	}
	return ts, nil
}

// ListMine returns the actor's own timesheets, newest first.
func (s *TimesheetService) ListMine(ctx context.Context, actor Actor, limit, offset int) ([]*repository.Timesheet, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	return s.timesheets.ListByEmployee(ctx, actor.ID, limit, offset)
}

// ListWeek returns all timesheets for a week, admin only.
func (s *TimesheetService) ListWeek(ctx context.Context, actor Actor, weekStart time.Time, status *string) ([]*repository.Timesheet, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.New(apperrors.CodeForbidden, "admin role required")
	}
	return s.timesheets.ListByWeek(ctx, timecalc.WeekStart(weekStart), status)
}

// AuditTrail returns the audit log for a timesheet the actor may view.
func (s *TimesheetService) AuditTrail(ctx context.Context, actor Actor, id string) ([]*repository.AuditEntry, error) {
	ts, err := s.timesheets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.assertCanView(actor, ts); err != nil {
		return nil, err
	}
	return s.auditLog.ListByTimesheet(ctx, id)
}

// ── Draft edits ──────────────────────────────────────────────────────────────

// SaveDay upserts one day entry on a draft timesheet and recomputes the whole
// week. Writes are keyed by (timesheet, day), so saving the same day twice is
// idempotent.
func (s *TimesheetService) SaveDay(ctx context.Context, actor Actor, timesheetID string, entry timecalc.DayEntry) (*repository.Timesheet, error) {
	ts, err := s.timesheets.GetByID(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	if err := s.assertCanEdit(actor, ts); err != nil {
		return nil, err
	}
	if ts.Status != repository.StatusDraft {
		return nil, &InvalidTransitionError{Status: ts.Status, Action: "edit"}
	}

	entries, err := replaceDay(ts, entry)
	if err != nil {
		return nil, err
	}

	result, err := timecalc.ComputeWeek(entries, s.priorWeekTail(ctx, ts.EmployeeID, ts.WeekStart))
	if err != nil {
		return nil, err
	}
	applyComputation(ts, entries, result)

	audit := &repository.AuditEntry{
		ActorID:      actor.ID,
		Action:       repository.ActionDaysaved,
		StatusBefore: ptr(ts.Status),
		StatusAfter:  ptr(ts.Status),
		Detail:       fmt.Sprintf("saved %s", entry.Day),
	}
	if err := s.timesheets.Commit(ctx, ts, audit); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("timesheet_id", ts.ID).
		Str("day", entry.Day).
		Int("regular_min", ts.RegularMin).
		Int("overtime_min", ts.OvertimeMin).
		Int("double_time_min", ts.DoubleTimeMin).
		Msg("Timesheet day saved")

	return ts, nil
}

// Delete removes a draft timesheet. Owner only; nothing past draft is ever
// physically deleted.
func (s *TimesheetService) Delete(ctx context.Context, actor Actor, id string) error {
	ts, err := s.timesheets.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if ts.EmployeeID != actor.ID && !actor.IsAdmin() {
		return apperrors.New(apperrors.CodeForbidden, "not the timesheet owner")
	}
	if ts.Status != repository.StatusDraft {
		return &InvalidTransitionError{Status: ts.Status, Action: "delete"}
	}

	if err := s.timesheets.Delete(ctx, id); err != nil {
		return err
	}

	// The audit table has no FK to timesheets, so the record outlives the row.
	audit := &repository.AuditEntry{
		TimesheetID:  id,
		ActorID:      actor.ID,
		Action:       repository.ActionDeleted,
		StatusBefore: ptr(repository.StatusDraft),
		Detail:       fmt.Sprintf("deleted draft for week of %s", ts.WeekStart.Format("2006-01-02")),
	}
	if err := s.auditLog.Append(ctx, audit); err != nil {
		s.log.Warn().Err(err).Str("timesheet_id", id).Msg("Failed to record deletion in audit log")
	}

	s.log.Info().Str("timesheet_id", id).Str("actor_id", actor.ID).Msg("Draft timesheet deleted")
	return nil
}

// ── Lifecycle transitions ────────────────────────────────────────────────────

// Submit moves a draft timesheet to submitted: the owner attests the hours
// are accurate. Fails IncompleteTimesheet when a weekday lacks both worked
// times and a leave tag.
func (s *TimesheetService) Submit(ctx context.Context, actor Actor, id string) (*repository.Timesheet, error) {
	ts, err := s.timesheets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.assertCanEdit(actor, ts); err != nil {
		return nil, err
	}
	if ts.Status != repository.StatusDraft {
		return nil, &InvalidTransitionError{Status: ts.Status, Action: "submit"}
	}
	if missing := incompleteDays(ts); len(missing) > 0 {
		return nil, &IncompleteTimesheetError{MissingDays: missing}
	}

	statusBefore := ts.Status
	now := s.now()
	ts.Status = repository.StatusSubmitted
	ts.Certified = true
	ts.SubmittedAt = &now

	audit := &repository.AuditEntry{
		ActorID:      actor.ID,
		Action:       repository.ActionSubmitted,
		StatusBefore: &statusBefore,
		StatusAfter:  ptr(ts.Status),
		Detail:       "employee certified hours and submitted for approval",
	}
	if err := s.timesheets.Commit(ctx, ts, audit); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("timesheet_id", ts.ID).
		Str("employee_id", ts.EmployeeID).
		Str("submitted_by", actor.ID).
		Msg("Timesheet submitted")

	s.notifier.PublishTimesheetEvent(ctx, "timesheet_submitted", ts.ID, actor.ID,
		[]string{ts.EmployeeID}, map[string]interface{}{
			"week_start": ts.WeekStart.Format("2006-01-02"),
		})

	return ts, nil
}

// Approve is the admin sign-off converting a submitted timesheet into a
// payroll-ready record. The sheet becomes immutable except for admin
// amendments.
func (s *TimesheetService) Approve(ctx context.Context, actor Actor, id string, notes *string) (*repository.Timesheet, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.New(apperrors.CodeForbidden, "admin role required")
	}

	ts, err := s.timesheets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ts.Status != repository.StatusSubmitted {
		return nil, &InvalidTransitionError{Status: ts.Status, Action: "approve"}
	}

	statusBefore := ts.Status
	now := s.now()
	ts.Status = repository.StatusApproved
	ts.Approved = true
	ts.ApprovedBy = ptr(actor.ID)
	ts.ApprovedAt = &now
	if notes != nil && *notes != "" {
		appendAdminNote(ts, *notes)
	}

	audit := &repository.AuditEntry{
		ActorID:      actor.ID,
		Action:       repository.ActionApproved,
		StatusBefore: &statusBefore,
		StatusAfter:  ptr(ts.Status),
		Detail:       fmt.Sprintf("approved by %s", actor.ID),
	}
	if err := s.timesheets.Commit(ctx, ts, audit); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("timesheet_id", ts.ID).
		Str("employee_id", ts.EmployeeID).
		Str("approved_by", actor.ID).
		Msg("Timesheet approved")

	s.notifier.PublishTimesheetEvent(ctx, "timesheet_approved", ts.ID, actor.ID,
		[]string{ts.EmployeeID}, nil)

	return ts, nil
}

// Reject sends a submitted timesheet back to the owner for correction. The
// status returns to draft; the reason is preserved in admin notes and the
// audit trail retains the rejection.
func (s *TimesheetService) Reject(ctx context.Context, actor Actor, id, reason string) (*repository.Timesheet, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.New(apperrors.CodeForbidden, "admin role required")
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.InvalidInput("reason", "rejection reason is required")
	}

	ts, err := s.timesheets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ts.Status != repository.StatusSubmitted {
		return nil, &InvalidTransitionError{Status: ts.Status, Action: "reject"}
	}

	statusBefore := ts.Status
	ts.Status = repository.StatusDraft
	ts.Certified = false
	ts.Approved = false
	appendAdminNote(ts, "rejected: "+reason)

	audit := &repository.AuditEntry{
		ActorID:      actor.ID,
		Action:       repository.ActionRejected,
		StatusBefore: &statusBefore,
		StatusAfter:  ptr(ts.Status),
		Detail:       reason,
	}
	if err := s.timesheets.Commit(ctx, ts, audit); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("timesheet_id", ts.ID).
		Str("employee_id", ts.EmployeeID).
		Str("rejected_by", actor.ID).
		Str("reason", reason).
		Msg("Timesheet rejected")

	s.notifier.PublishTimesheetEvent(ctx, "timesheet_rejected", ts.ID, actor.ID,
		[]string{ts.EmployeeID}, map[string]interface{}{"reason": reason})

	return ts, nil
}

// Amend applies an admin-only correction to a submitted or approved
// timesheet: an optional corrected day entry plus a note. Corrections re-run
// the full recomputation and emit an audit entry distinct from approval.
func (s *TimesheetService) Amend(ctx context.Context, actor Actor, id string, corrected *timecalc.DayEntry, note string) (*repository.Timesheet, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.New(apperrors.CodeForbidden, "admin role required")
	}

	ts, err := s.timesheets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ts.Status != repository.StatusSubmitted && ts.Status != repository.StatusApproved {
		return nil, &InvalidTransitionError{Status: ts.Status, Action: "amend"}
	}

	detail := "admin note"
	if corrected != nil {
		entries, err := replaceDay(ts, *corrected)
		if err != nil {
			return nil, err
		}
		result, err := timecalc.ComputeWeek(entries, s.priorWeekTail(ctx, ts.EmployeeID, ts.WeekStart))
		if err != nil {
			return nil, err
		}
		applyComputation(ts, entries, result)
		detail = fmt.Sprintf("admin correction to %s", corrected.Day)
	}
	if note != "" {
		appendAdminNote(ts, note)
	}

	audit := &repository.AuditEntry{
		ActorID:      actor.ID,
		Action:       repository.ActionAmended,
		StatusBefore: ptr(ts.Status),
		StatusAfter:  ptr(ts.Status),
		Detail:       detail,
		Metadata:     map[string]interface{}{"note": note},
	}
	if err := s.timesheets.Commit(ctx, ts, audit); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("timesheet_id", ts.ID).
		Str("amended_by", actor.ID).
		Msg("Timesheet amended")

	return ts, nil
}

// ── Expenses ─────────────────────────────────────────────────────────────────

// AddExpense appends a reimbursable expense line to a draft timesheet.
func (s *TimesheetService) AddExpense(ctx context.Context, actor Actor, timesheetID, description string, amountCents int64) (*repository.ExpenseLine, error) {
	if strings.TrimSpace(description) == "" {
		return nil, apperrors.InvalidInput("description", "description is required")
	}
	if amountCents <= 0 {
		return nil, apperrors.InvalidInput("amount_cents", "amount must be positive")
	}

	ts, err := s.timesheets.GetByID(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	if err := s.assertCanEdit(actor, ts); err != nil {
		return nil, err
	}
	if ts.Status != repository.StatusDraft {
		return nil, &InvalidTransitionError{Status: ts.Status, Action: "add expense to"}
	}

	line := &repository.ExpenseLine{
		TimesheetID: timesheetID,
		Description: description,
		AmountCents: amountCents,
	}
	if err := s.timesheets.AddExpense(ctx, line); err != nil {
		return nil, err
	}
	return line, nil
}

// DeleteExpense removes an expense line from a draft timesheet.
func (s *TimesheetService) DeleteExpense(ctx context.Context, actor Actor, timesheetID, expenseID string) error {
	ts, err := s.timesheets.GetByID(ctx, timesheetID)
	if err != nil {
		return err
	}
	if err := s.assertCanEdit(actor, ts); err != nil {
		return err
	}
	if ts.Status != repository.StatusDraft {
		return &InvalidTransitionError{Status: ts.Status, Action: "remove expense from"}
	}
	return s.timesheets.DeleteExpense(ctx, timesheetID, expenseID)
}

// ── Internal helpers ─────────────────────────────────────────────────────────

func (s *TimesheetService) assertCanView(actor Actor, ts *repository.Timesheet) error {
	if ts.EmployeeID == actor.ID || actor.IsAdmin() {
		return nil
	}
	return apperrors.New(apperrors.CodeForbidden, "not the timesheet owner")
}

func (s *TimesheetService) assertCanEdit(actor Actor, ts *repository.Timesheet) error {
	if ts.EmployeeID == actor.ID || actor.IsAdmin() {
		return nil
	}
	return apperrors.New(apperrors.CodeForbidden, "not the timesheet owner")
}

// priorWeekTail looks up the trailing consecutive worked days of the prior
// week. Returns nil when prior-week data is unavailable, which drops the
// aggregator into its current-week-only degraded mode.
func (s *TimesheetService) priorWeekTail(ctx context.Context, employeeID string, weekStart time.Time) *int {
	prior, err := s.timesheets.FindByEmployeeWeek(ctx, employeeID, weekStart.AddDate(0, 0, -7))
	if err != nil {
		s.log.Warn().Err(err).
			Str("employee_id", employeeID).
			Msg("Prior week lookup failed; evaluating consecutiveness from current week only")
		return nil
	}
	if prior == nil {
		return nil
	}

	entries := make([]timecalc.DayEntry, 0, len(prior.Days))
	for _, day := range prior.Days {
		entries = append(entries, day.Entry)
	}
	tail := timecalc.TrailingWorkedDays(entries)
	return &tail
}

// replaceDay swaps one entry into the timesheet's seven days and returns the
// ordered entry list for recomputation.
func replaceDay(ts *repository.Timesheet, entry timecalc.DayEntry) ([]timecalc.DayEntry, error) {
	entries := make([]timecalc.DayEntry, 0, len(timecalc.WeekDays))
	found := false
	for _, day := range ts.Days {
		if day.Entry.Day == entry.Day {
			entries = append(entries, entry)
			found = true
			continue
		}
		entries = append(entries, day.Entry)
	}
	if !found {
		return nil, apperrors.InvalidInput("day", fmt.Sprintf("unknown day label %q", entry.Day))
	}
	return entries, nil
}

// applyComputation overwrites the stored per-day breakdowns and week totals
// from a fresh computation.
func applyComputation(ts *repository.Timesheet, entries []timecalc.DayEntry, result *timecalc.WeekResult) {
	days := make([]*repository.TimesheetDay, 0, len(entries))
	for i, entry := range entries {
		day := &repository.TimesheetDay{
			TimesheetID: ts.ID,
			Entry:       entry,
			Hours:       *result.Days[i],
		}
		days = append(days, day)
	}
	ts.Days = days
	ts.RegularMin = result.RegularMin
	ts.OvertimeMin = result.OvertimeMin
	ts.DoubleTimeMin = result.DoubleTimeMin
	ts.TravelMin = result.TravelMin
	ts.SickMin = result.SickMin
	ts.HolidayMin = result.HolidayMin
	ts.VacationMin = result.VacationMin
}

// incompleteDays returns weekday labels that carry neither worked times nor a
// leave tag. Weekend days may be left blank.
func incompleteDays(ts *repository.Timesheet) []string {
	var missing []string
	for _, day := range ts.Days {
		entry := day.Entry
		if entry.Day == timecalc.Saturday || entry.Day == timecalc.Sunday {
			if !entry.Worked {
				continue
			}
		}
		switch {
		case entry.Worked && entry.TimeIn != "" && entry.TimeOut != "":
		case !entry.Worked && entry.LeaveType != "" && entry.LeaveType != timecalc.LeaveNone:
		default:
			missing = append(missing, entry.Day)
		}
	}
	return missing
}

func appendAdminNote(ts *repository.Timesheet, note string) {
	if ts.AdminNotes == nil || *ts.AdminNotes == "" {
		ts.AdminNotes = &note
		return
	}
	combined := *ts.AdminNotes + "\n" + note
	ts.AdminNotes = &combined
}

func ptr(s string) *string { return &s }
