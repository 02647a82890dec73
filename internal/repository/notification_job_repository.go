package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/portfolio-contact/internal/domain"
)

// NotificationJobRepository keeps the ledger of outbound mail jobs.
type NotificationJobRepository interface {
	Create(ctx context.Context, job *domain.NotificationJob) error
	RecordAttempt(ctx context.Context, id string, attempts int, deadline *time.Time, lastError string) error
	MarkDelivered(ctx context.Context, id string, attempts int) error
	MarkAbandoned(ctx context.Context, id string, attempts int, lastError string) error
	ListBySubmission(ctx context.Context, submissionID string) ([]domain.NotificationJob, error)
}

type notificationJobRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationJobRepository instantiates repository.
func NewNotificationJobRepository(pool *pgxpool.Pool) NotificationJobRepository {
	return &notificationJobRepository{pool: pool}
}

func (r *notificationJobRepository) Create(ctx context.Context, job *domain.NotificationJob) error {
	const query = `
        INSERT INTO notification_jobs (id, submission_id, kind, target, attempts, max_attempts, deadline, state)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        RETURNING created_at, updated_at`
	if job.State == "" {
		job.State = domain.NotificationJobQueued
	}
	return r.pool.QueryRow(ctx, query,
		job.ID,
		job.SubmissionID,
		job.Kind,
		job.Target,
		job.Attempts,
		job.MaxAttempts,
		job.Deadline,
		job.State,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
}

func (r *notificationJobRepository) RecordAttempt(ctx context.Context, id string, attempts int, deadline *time.Time, lastError string) error {
	const query = `
        UPDATE notification_jobs
        SET attempts=$2, deadline=COALESCE(deadline, $3), last_error=NULLIF($4, ''), updated_at=NOW()
        WHERE id=$1 AND state='queued'`
	return r.exec(ctx, query, id, attempts, deadline, lastError)
}

func (r *notificationJobRepository) MarkDelivered(ctx context.Context, id string, attempts int) error {
	const query = `
        UPDATE notification_jobs
        SET state='delivered', attempts=$2, last_error=NULL, updated_at=NOW()
        WHERE id=$1 AND state='queued'`
	return r.exec(ctx, query, id, attempts)
}

func (r *notificationJobRepository) MarkAbandoned(ctx context.Context, id string, attempts int, lastError string) error {
	const query = `
        UPDATE notification_jobs
        SET state='abandoned', attempts=$2, last_error=$3, updated_at=NOW()
        WHERE id=$1 AND state='queued'`
	return r.exec(ctx, query, id, attempts, lastError)
}

func (r *notificationJobRepository) exec(ctx context.Context, query string, args ...any) error {
	cmd, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationJobRepository) ListBySubmission(ctx context.Context, submissionID string) ([]domain.NotificationJob, error) {
	if !isUUID(submissionID) {
		return []domain.NotificationJob{}, nil
	}
	const query = `
        SELECT id, submission_id, kind, target, attempts, max_attempts, deadline, state, last_error, created_at, updated_at
        FROM notification_jobs WHERE submission_id=$1 ORDER BY created_at ASC, kind ASC`
	rows, err := r.pool.Query(ctx, query, submissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []domain.NotificationJob{}
	for rows.Next() {
		var job domain.NotificationJob
		if err := rows.Scan(
			&job.ID,
			&job.SubmissionID,
			&job.Kind,
			&job.Target,
			&job.Attempts,
			&job.MaxAttempts,
			&job.Deadline,
			&job.State,
			&job.LastError,
			&job.CreatedAt,
			&job.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, job)
	}
	return result, rows.Err()
}
