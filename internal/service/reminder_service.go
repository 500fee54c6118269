package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/pesio-ai/be-hr-timesheets/internal/repository"
	"github.com/pesio-ai/be-hr-timesheets/internal/timecalc"
)

// ReminderDirectory lists employees missing a timesheet for a week.
type ReminderDirectory interface {
	ListWithoutTimesheet(ctx context.Context, weekStart time.Time) ([]*repository.Employee, error)
}

// ReminderService sweeps for employees with no timesheet for the current week
// and dispatches reminders. Dispatch is fire-and-forget; a failed publish is
// logged and the sweep continues.
type ReminderService struct {
	employees ReminderDirectory
	notifier  Notifier
	log       zerolog.Logger
	now       func() time.Time
}

// NewReminderService creates a new reminder service.
func NewReminderService(employees ReminderDirectory, notifier Notifier, log zerolog.Logger) *ReminderService {
	return &ReminderService{
		employees: employees,
		notifier:  notifier,
		log:       log,
		now:       time.Now,
	}
}

// WithClock replaces the time source for tests.
func (s *ReminderService) WithClock(now func() time.Time) *ReminderService {
	s.now = now
	return s
}

// SendReminders publishes one reminder per employee missing the current
// week's timesheet. Returns the number of reminders dispatched.
func (s *ReminderService) SendReminders(ctx context.Context) (int, error) {
	week := timecalc.WeekStart(s.now())

	missing, err := s.employees.ListWithoutTimesheet(ctx, week)
	if err != nil {
		return 0, err
	}

	for _, emp := range missing {
		s.notifier.PublishTimesheetEvent(ctx, "timesheet_reminder", "", emp.ID,
			[]string{emp.ID}, map[string]interface{}{
				"week_start": week.Format("2006-01-02"),
			})
	}

	s.log.Info().
		Str("week_start", week.Format("2006-01-02")).
		Int("reminders", len(missing)).
		Msg("Timesheet reminder sweep complete")

	return len(missing), nil
}
