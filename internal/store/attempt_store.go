package store

import (
	"context"
	"fmt"

	"iterable-forwarder/internal/domain"
)

// DispatchAttemptRecord holds data for inserting one outbound call record.
type DispatchAttemptRecord struct {
	JobID          string
	RequestKind    string
	Endpoint       string
	Status         string
	HTTPStatusCode *int
	AppCode        string
	DurationMs     int
	ErrorMessage   string
}

// RecordDispatchAttempt inserts an outbound call record into the audit log.
func (s *PostgresStore) RecordDispatchAttempt(ctx context.Context, rec DispatchAttemptRecord) error {
	var appCode *string
	if rec.AppCode != "" {
		appCode = &rec.AppCode
	}

	var errMsg *string
	if rec.ErrorMessage != "" {
		errMsg = &rec.ErrorMessage
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO dispatch_attempts (job_id, request_kind, endpoint, status, http_status_code, app_code, duration_ms, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, rec.JobID, rec.RequestKind, rec.Endpoint, rec.Status, rec.HTTPStatusCode, appCode, rec.DurationMs, errMsg)
	if err != nil {
		return fmt.Errorf("inserting dispatch attempt: %w", err)
	}
	return nil
}

// ListDispatchAttempts returns recorded outbound calls, newest first, with
// optional filtering by job id and status.
func (s *PostgresStore) ListDispatchAttempts(ctx context.Context, jobID, status string, limit int) ([]domain.DispatchAttempt, error) {
	query := `SELECT id, job_id, request_kind, endpoint, status, http_status_code, app_code, duration_ms, error_message, created_at FROM dispatch_attempts`

	var args []any
	where := ""
	if jobID != "" {
		args = append(args, jobID)
		where = fmt.Sprintf(" WHERE job_id = $%d", len(args))
	}
	if status != "" {
		args = append(args, status)
		if where == "" {
			where = fmt.Sprintf(" WHERE status = $%d", len(args))
		} else {
			where += fmt.Sprintf(" AND status = $%d", len(args))
		}
	}
	args = append(args, limit)
	query += where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d", len(args))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing dispatch attempts: %w", err)
	}
	defer rows.Close()

	attempts := []domain.DispatchAttempt{}
	for rows.Next() {
		var a domain.DispatchAttempt
		var appCode, errMsg *string
		err := rows.Scan(&a.ID, &a.JobID, &a.RequestKind, &a.Endpoint, &a.Status,
			&a.HTTPStatusCode, &appCode, &a.DurationMs, &errMsg, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scanning dispatch attempt: %w", err)
		}
		if appCode != nil {
			a.AppCode = *appCode
		}
		if errMsg != nil {
			a.ErrorMessage = *errMsg
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
