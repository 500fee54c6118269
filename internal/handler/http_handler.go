package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/pesio-ai/be-hr-timesheets/internal/apperrors"
	"github.com/pesio-ai/be-hr-timesheets/internal/auth"
	"github.com/pesio-ai/be-hr-timesheets/internal/repository"
	"github.com/pesio-ai/be-hr-timesheets/internal/service"
	"github.com/pesio-ai/be-hr-timesheets/internal/timecalc"
)

// EmployeeDirectory resolves login names to employee records.
type EmployeeDirectory interface {
	GetByUsername(ctx context.Context, username string) (*repository.Employee, error)
}

// HTTPHandler binds the timesheet service to the HTTP API.
type HTTPHandler struct {
	service   *service.TimesheetService
	employees EmployeeDirectory
	jwtSecret string
	jwtTTL    time.Duration
	log       zerolog.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(svc *service.TimesheetService, employees EmployeeDirectory, jwtSecret string, jwtTTL time.Duration, log zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		service:   svc,
		employees: employees,
		jwtSecret: jwtSecret,
		jwtTTL:    jwtTTL,
		log:       log,
	}
}

// Register mounts all routes on the echo instance.
func (h *HTTPHandler) Register(e *echo.Echo) {
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
	})

	e.POST("/api/v1/auth/login", h.Login)

	api := e.Group("/api/v1", auth.RequireAuth(h.jwtSecret))
	api.POST("/timesheets", h.CreateTimesheet)
	api.GET("/timesheets", h.ListMine)
	api.GET("/timesheets/:id", h.GetTimesheet)
	api.DELETE("/timesheets/:id", h.DeleteTimesheet)
	api.PUT("/timesheets/:id/days", h.SaveDay)
	api.POST("/timesheets/:id/submit", h.Submit)
	api.POST("/timesheets/:id/expenses", h.AddExpense)
	api.DELETE("/timesheets/:id/expenses/:expenseID", h.DeleteExpense)
	api.GET("/timesheets/:id/audit", h.AuditTrail)

	adminAPI := api.Group("/admin", auth.RequireAdmin())
	adminAPI.GET("/timesheets", h.ListWeek)
	adminAPI.POST("/timesheets/:id/approve", h.Approve)
	adminAPI.POST("/timesheets/:id/reject", h.Reject)
	adminAPI.POST("/timesheets/:id/amend", h.Amend)
}

// Login verifies credentials and issues an access token.
func (h *HTTPHandler) Login(c echo.Context) error {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	emp, err := h.employees.GetByUsername(c.Request().Context(), req.Username)
	if err != nil {
		// A storage outage is retryable and must not masquerade as bad
		// credentials.
		if apperrors.IsCode(err, apperrors.CodeUnavailable) {
			return h.mapError(c, err)
		}
		return echo.NewHTTPError(http.StatusUnauthorized, map[string]any{"error": "INVALID_CREDENTIALS"})
	}
	if !emp.Active || !auth.CheckPassword(emp.PasswordHash, req.Password) {
		return echo.NewHTTPError(http.StatusUnauthorized, map[string]any{"error": "INVALID_CREDENTIALS"})
	}

	token, err := auth.IssueToken(h.jwtSecret, emp, h.jwtTTL)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"token": token,
		"employee": map[string]any{
			"id":         emp.ID,
			"username":   emp.Username,
			"full_name":  emp.FullName,
			"role":       emp.Role,
			"comp_class": emp.CompClass,
		},
	})
}

// CreateTimesheet opens a new week. Admins may pass employee_id to open a
// week on an employee's behalf.
func (h *HTTPHandler) CreateTimesheet(c echo.Context) error {
	actor := auth.ActorFrom(c)

	var req struct {
		EmployeeID string              `json:"employee_id"`
		WeekStart  string              `json:"week_start"`
		Days       []timecalc.DayEntry `json:"days"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	weekStart, err := time.Parse("2006-01-02", req.WeekStart)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "week_start must be YYYY-MM-DD")
	}
	employeeID := req.EmployeeID
	if employeeID == "" {
		employeeID = actor.ID
	}
	if len(req.Days) == 0 {
		req.Days = blankWeek()
	}

	ts, err := h.service.SubmitNew(c.Request().Context(), actor, employeeID, weekStart, req.Days)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, timesheetResponse(ts))
}

// GetTimesheet returns one timesheet with days and expenses.
func (h *HTTPHandler) GetTimesheet(c echo.Context) error {
	ts, err := h.service.Get(c.Request().Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, timesheetResponse(ts))
}

// ListMine returns the caller's timesheets.
func (h *HTTPHandler) ListMine(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	sheets, err := h.service.ListMine(c.Request().Context(), auth.ActorFrom(c), pageSize, (page-1)*pageSize)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{
		"timesheets": summaries(sheets),
		"page":       page,
		"page_size":  pageSize,
	})
}

// ListWeek returns every timesheet for a week, admin only.
func (h *HTTPHandler) ListWeek(c echo.Context) error {
	weekStart, err := time.Parse("2006-01-02", c.QueryParam("week_start"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "week_start must be YYYY-MM-DD")
	}
	var status *string
	if s := c.QueryParam("status"); s != "" {
		status = &s
	}

	sheets, err := h.service.ListWeek(c.Request().Context(), auth.ActorFrom(c), weekStart, status)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"timesheets": summaries(sheets)})
}

// SaveDay upserts one day entry on a draft timesheet.
func (h *HTTPHandler) SaveDay(c echo.Context) error {
	var entry timecalc.DayEntry
	if err := c.Bind(&entry); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ts, err := h.service.SaveDay(c.Request().Context(), auth.ActorFrom(c), c.Param("id"), entry)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, timesheetResponse(ts))
}

// Submit certifies and submits a draft timesheet.
func (h *HTTPHandler) Submit(c echo.Context) error {
	ts, err := h.service.Submit(c.Request().Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, timesheetResponse(ts))
}

// Approve signs off a submitted timesheet.
func (h *HTTPHandler) Approve(c echo.Context) error {
	var req struct {
		Notes *string `json:"notes"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ts, err := h.service.Approve(c.Request().Context(), auth.ActorFrom(c), c.Param("id"), req.Notes)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, timesheetResponse(ts))
}

// Reject sends a submitted timesheet back for correction.
func (h *HTTPHandler) Reject(c echo.Context) error {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ts, err := h.service.Reject(c.Request().Context(), auth.ActorFrom(c), c.Param("id"), req.Reason)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, timesheetResponse(ts))
}

// Amend applies an admin correction or note to a submitted/approved timesheet.
func (h *HTTPHandler) Amend(c echo.Context) error {
	var req struct {
		Day  *timecalc.DayEntry `json:"day"`
		Note string             `json:"note"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ts, err := h.service.Amend(c.Request().Context(), auth.ActorFrom(c), c.Param("id"), req.Day, req.Note)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, timesheetResponse(ts))
}

// DeleteTimesheet removes a draft timesheet.
func (h *HTTPHandler) DeleteTimesheet(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), auth.ActorFrom(c), c.Param("id")); err != nil {
		return h.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AddExpense appends an expense line to a draft timesheet.
func (h *HTTPHandler) AddExpense(c echo.Context) error {
	var req struct {
		Description string `json:"description"`
		AmountCents int64  `json:"amount_cents"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	line, err := h.service.AddExpense(c.Request().Context(), auth.ActorFrom(c), c.Param("id"), req.Description, req.AmountCents)
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusCreated, line)
}

// DeleteExpense removes an expense line from a draft timesheet.
func (h *HTTPHandler) DeleteExpense(c echo.Context) error {
	err := h.service.DeleteExpense(c.Request().Context(), auth.ActorFrom(c), c.Param("id"), c.Param("expenseID"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AuditTrail returns the audit log for a timesheet.
func (h *HTTPHandler) AuditTrail(c echo.Context) error {
	entries, err := h.service.AuditTrail(c.Request().Context(), auth.ActorFrom(c), c.Param("id"))
	if err != nil {
		return h.mapError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]any{"entries": entries})
}

// ── Error mapping ────────────────────────────────────────────────────────────

// mapError translates domain errors into HTTP responses. DuplicateTimesheet
// carries the existing id so clients can redirect instead of duplicating.
func (h *HTTPHandler) mapError(c echo.Context, err error) error {
	var (
		invalidEntry *timecalc.InvalidTimeEntryError
		incomplete   *service.IncompleteTimesheetError
		transition   *service.InvalidTransitionError
		duplicate    *service.DuplicateTimesheetError
	)

	switch {
	case errors.As(err, &invalidEntry):
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "INVALID_TIME_ENTRY", "detail": invalidEntry.Error()})
	case errors.As(err, &incomplete):
		return c.JSON(http.StatusBadRequest, map[string]any{"error": "INCOMPLETE_TIMESHEET", "missing_days": incomplete.MissingDays})
	case errors.As(err, &transition):
		return c.JSON(http.StatusConflict, map[string]any{"error": "INVALID_TRANSITION", "detail": transition.Error()})
	case errors.As(err, &duplicate):
		return c.JSON(http.StatusConflict, map[string]any{"error": "DUPLICATE_TIMESHEET", "existing_id": duplicate.ExistingID})
	}

	status := http.StatusInternalServerError
	switch apperrors.CodeOf(err) {
	case apperrors.CodeInvalidInput:
		status = http.StatusBadRequest
	case apperrors.CodeNotFound:
		status = http.StatusNotFound
	case apperrors.CodeConflict:
		status = http.StatusConflict
	case apperrors.CodeUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.CodeForbidden:
		status = http.StatusForbidden
	case apperrors.CodeUnavailable:
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		h.log.Error().Err(err).Str("path", c.Path()).Msg("Request failed")
	}
	return c.JSON(status, map[string]any{"error": string(apperrors.CodeOf(err)), "detail": err.Error()})
}

// ── Response shaping ─────────────────────────────────────────────────────────

// Week totals are presented as fractional hours at two decimals; storage and
// aggregation stay in minutes.
func timesheetResponse(ts *repository.Timesheet) map[string]any {
	days := make([]map[string]any, 0, len(ts.Days))
	for _, day := range ts.Days {
		days = append(days, map[string]any{
			"entry": day.Entry,
			"hours": map[string]any{
				"regular":           timecalc.Hours(day.Hours.RegularMin),
				"overtime":          timecalc.Hours(day.Hours.OvertimeMin),
				"double_time":       timecalc.Hours(day.Hours.DoubleTimeMin),
				"travel":            timecalc.Hours(day.Hours.TravelMin),
				"seventh_day":       day.Hours.SeventhDay,
				"meal_break_missed": day.Hours.MealBreakMissed,
			},
		})
	}

	return map[string]any{
		"id":           ts.ID,
		"employee_id":  ts.EmployeeID,
		"week_start":   ts.WeekStart.Format("2006-01-02"),
		"status":       ts.Status,
		"certified":    ts.Certified,
		"submitted_at": ts.SubmittedAt,
		"approved":     ts.Approved,
		"approved_by":  ts.ApprovedBy,
		"approved_at":  ts.ApprovedAt,
		"comp_class":   ts.CompClass,
		"admin_notes":  ts.AdminNotes,
		"totals": map[string]any{
			"regular":     timecalc.Hours(ts.RegularMin),
			"overtime":    timecalc.Hours(ts.OvertimeMin),
			"double_time": timecalc.Hours(ts.DoubleTimeMin),
			"travel":      timecalc.Hours(ts.TravelMin),
			"sick":        timecalc.Hours(ts.SickMin),
			"holiday":     timecalc.Hours(ts.HolidayMin),
			"vacation":    timecalc.Hours(ts.VacationMin),
		},
		"days":     days,
		"expenses": ts.Expenses,
	}
}

func summaries(sheets []*repository.Timesheet) []map[string]any {
	out := make([]map[string]any, 0, len(sheets))
	for _, ts := range sheets {
		out = append(out, map[string]any{
			"id":          ts.ID,
			"employee_id": ts.EmployeeID,
			"week_start":  ts.WeekStart.Format("2006-01-02"),
			"status":      ts.Status,
			"regular":     timecalc.Hours(ts.RegularMin),
			"overtime":    timecalc.Hours(ts.OvertimeMin),
			"double_time": timecalc.Hours(ts.DoubleTimeMin),
		})
	}
	return out
}

// blankWeek returns seven untouched day entries in week order.
func blankWeek() []timecalc.DayEntry {
	entries := make([]timecalc.DayEntry, 0, len(timecalc.WeekDays))
	for _, day := range timecalc.WeekDays {
		entries = append(entries, timecalc.DayEntry{Day: day})
	}
	return entries
}
