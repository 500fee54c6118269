package repository

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/pesio-ai/be-hr-timesheets/internal/apperrors"
	"github.com/pesio-ai/be-hr-timesheets/internal/database"
)

// AuditRepository appends and reads immutable timesheet audit log entries.
// The table has a delete/update-prevention trigger, so Append is the only
// mutation operation exposed.
type AuditRepository struct {
	db *database.DB
}

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one audit entry.
func (r *AuditRepository) Append(ctx context.Context, entry *AuditEntry) error {
	return insertAudit(ctx, r.db, entry)
}

// ListByTimesheet returns the full audit trail for a timesheet oldest-first.
func (r *AuditRepository) ListByTimesheet(ctx context.Context, timesheetID string) ([]*AuditEntry, error) {
	query := `
		SELECT id, timesheet_id, actor_id, action,
		       status_before, status_after, detail, metadata, performed_at
		FROM timesheet_audit_log
		WHERE timesheet_id = $1
		ORDER BY performed_at ASC
	`
	rows, err := r.db.Query(ctx, query, timesheetID)
	if err != nil {
		return nil, apperrors.Unavailable(err, "failed to get audit log")
	}
	defer rows.Close()

	var entries []*AuditEntry
	for rows.Next() {
		entry := &AuditEntry{}
		var metadataJSON []byte
		err := rows.Scan(
			&entry.ID,
			&entry.TimesheetID,
			&entry.ActorID,
			&entry.Action,
			&entry.StatusBefore,
			&entry.StatusAfter,
			&entry.Detail,
			&metadataJSON,
			&entry.PerformedAt,
		)
		if err != nil {
			return nil, apperrors.Unavailable(err, "failed to scan audit entry")
		}
		if metadataJSON != nil {
			if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
				return nil, apperrors.Wrap(err, apperrors.CodeInternal, "failed to unmarshal audit metadata")
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// auditQuerier is satisfied by both *database.DB and pgx.Tx so audit entries
// can be written standalone or inside a lifecycle transaction.
type auditQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func insertAudit(ctx context.Context, q auditQuerier, entry *AuditEntry) error {
	var metadataJSON []byte
	if entry.Metadata != nil {
		var err error
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return apperrors.Wrap(err, apperrors.CodeInternal, "failed to marshal audit metadata")
		}
	}

	query := `
		INSERT INTO timesheet_audit_log
		    (timesheet_id, actor_id, action, status_before, status_after, detail, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, performed_at
	`
	err := q.QueryRow(ctx, query,
		entry.TimesheetID,
		entry.ActorID,
		entry.Action,
		entry.StatusBefore,
		entry.StatusAfter,
		entry.Detail,
		metadataJSON,
	).Scan(&entry.ID, &entry.PerformedAt)
	if err != nil {
		return apperrors.Unavailable(err, "failed to append audit entry")
	}
	return nil
}
