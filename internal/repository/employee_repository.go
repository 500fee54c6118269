package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-hr-timesheets/internal/apperrors"
	"github.com/pesio-ai/be-hr-timesheets/internal/database"
)

// EmployeeRepository handles employee records.
type EmployeeRepository struct {
	db *database.DB
}

// NewEmployeeRepository creates a new employee repository.
func NewEmployeeRepository(db *database.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

const employeeSelect = `
	SELECT id, username, password_hash, full_name, role, comp_class, active, created_at
	FROM employees`

// Create inserts an employee.
func (r *EmployeeRepository) Create(ctx context.Context, emp *Employee) error {
	query := `
		INSERT INTO employees (username, password_hash, full_name, role, comp_class, active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`
	err := r.db.QueryRow(ctx, query,
		emp.Username, emp.PasswordHash, emp.FullName, emp.Role, emp.CompClass, emp.Active,
	).Scan(&emp.ID, &emp.CreatedAt)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return apperrors.New(apperrors.CodeConflict, "username already taken")
		}
		return apperrors.Unavailable(err, "failed to create employee")
	}
	return nil
}

// GetByID retrieves one employee.
func (r *EmployeeRepository) GetByID(ctx context.Context, id string) (*Employee, error) {
	emp := &Employee{}
	err := scanEmployee(r.db.QueryRow(ctx, employeeSelect+` WHERE id = $1`, id), emp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("employee", id)
	}
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to get employee")
	}
	return emp, nil
}

// GetByUsername retrieves one employee by login name.
func (r *EmployeeRepository) GetByUsername(ctx context.Context, username string) (*Employee, error) {
	emp := &Employee{}
	err := scanEmployee(r.db.QueryRow(ctx, employeeSelect+` WHERE username = $1`, username), emp)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("employee", username)
	}
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to get employee")
	}
	return emp, nil
}

// ListWithoutTimesheet returns active employees who have no timesheet for the
// given week. Feeds the reminder sweep.
func (r *EmployeeRepository) ListWithoutTimesheet(ctx context.Context, weekStart time.Time) ([]*Employee, error) {
	query := employeeSelect + `
		WHERE active
		  AND NOT EXISTS (
		      SELECT 1 FROM timesheets t
		      WHERE t.employee_id = employees.id AND t.week_start = $1
		  )
		ORDER BY username
	`
	rows, err := r.db.Query(ctx, query, weekStart)
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to list employees without timesheet")
	}
	defer rows.Close()

	employees := make([]*Employee, 0)
	for rows.Next() {
		emp := &Employee{}
		if err := scanEmployee(rows, emp); err != nil {
			return nil, apperrors.Unavailable(err, "failed to scan employee")
		}
		employees = append(employees, emp)
	}
	return employees, nil
}

func scanEmployee(row rowScanner, emp *Employee) error {
	return row.Scan(
		&emp.ID,
		&emp.Username,
		&emp.PasswordHash,
		&emp.FullName,
		&emp.Role,
		&emp.CompClass,
		&emp.Active,
		&emp.CreatedAt,
	)
}
