package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/portfolio-contact/internal/domain"
)

// SubmissionPageSize is the fixed page size of List.
const SubmissionPageSize = 20

const submissionColumns = `id, name, email, project_type, message, COALESCE(ip_address, ''), status, read_at, created_at, updated_at`

// statusRank mirrors domain.SubmissionStatus.Rank for the stored column.
const statusRank = `(CASE status WHEN 'new' THEN 0 WHEN 'read' THEN 1 ELSE 2 END)`

// SubmissionFilter captures admin search parameters.
type SubmissionFilter struct {
	Status      *domain.SubmissionStatus
	ProjectType *domain.ProjectType
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	SearchTerm  *string
	Page        int
}

// SubmissionPage is one page of List results.
type SubmissionPage struct {
	Items      []domain.Submission
	Page       int
	PageSize   int
	Total      int64
	TotalPages int
}

// StatusCounts is the per-status breakdown of stored submissions.
type StatusCounts struct {
	New     int64
	Read    int64
	Replied int64
	Total   int64
}

// PeriodCounts buckets submissions by creation time.
type PeriodCounts struct {
	Today     int64
	ThisWeek  int64
	ThisMonth int64
}

// SubmissionRepository encapsulates contact submission persistence.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *domain.Submission) error
	GetByID(ctx context.Context, id string) (*domain.Submission, error)
	MarkAsRead(ctx context.Context, id string) (bool, error)
	MarkAsReplied(ctx context.Context, id string) (bool, error)
	UpdateStatus(ctx context.Context, id string, status domain.SubmissionStatus) (bool, error)
	List(ctx context.Context, filter SubmissionFilter) (*SubmissionPage, error)
	Recent(ctx context.Context, limit int) ([]domain.Submission, error)
	CountsByStatus(ctx context.Context) (StatusCounts, error)
	CountsByPeriod(ctx context.Context, now time.Time, loc *time.Location) (PeriodCounts, error)
}

type submissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository instantiates repository.
func NewSubmissionRepository(pool *pgxpool.Pool) SubmissionRepository {
	return &submissionRepository{pool: pool}
}

func (r *submissionRepository) Create(ctx context.Context, s *domain.Submission) error {
	const query = `
        INSERT INTO contact_submissions (name, email, project_type, message, ip_address, status)
        VALUES ($1,$2,$3,$4,NULLIF($5, ''),$6)
        RETURNING id, status, created_at, updated_at`
	return r.pool.QueryRow(ctx, query,
		s.Name,
		s.Email,
		s.ProjectType,
		s.Message,
		s.IPAddress,
		domain.SubmissionStatusNew,
	).Scan(&s.ID, &s.Status, &s.CreatedAt, &s.UpdatedAt)
}

func (r *submissionRepository) GetByID(ctx context.Context, id string) (*domain.Submission, error) {
	if !isUUID(id) {
		return nil, pgx.ErrNoRows
	}
	query := `SELECT ` + submissionColumns + ` FROM contact_submissions WHERE id=$1`
	var s domain.Submission
	if err := scanSubmission(r.pool.QueryRow(ctx, query, id), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *submissionRepository) MarkAsRead(ctx context.Context, id string) (bool, error) {
	const query = `
        UPDATE contact_submissions
        SET status = CASE WHEN status = 'new' THEN 'read' ELSE status END,
            read_at = COALESCE(read_at, NOW()),
            updated_at = NOW()
        WHERE id=$1`
	return r.execByID(ctx, query, id)
}

func (r *submissionRepository) MarkAsReplied(ctx context.Context, id string) (bool, error) {
	const query = `
        UPDATE contact_submissions
        SET status = 'replied',
            read_at = COALESCE(read_at, NOW()),
            updated_at = NOW()
        WHERE id=$1`
	return r.execByID(ctx, query, id)
}

// UpdateStatus moves a submission forward to status. Unknown statuses and
// backward transitions are refused with false.
func (r *submissionRepository) UpdateStatus(ctx context.Context, id string, status domain.SubmissionStatus) (bool, error) {
	if !status.Valid() {
		return false, nil
	}
	query := `
        UPDATE contact_submissions
        SET status = $2,
            read_at = CASE WHEN $3 > 0 THEN COALESCE(read_at, NOW()) ELSE read_at END,
            updated_at = NOW()
        WHERE id=$1 AND ` + statusRank + ` <= $3`
	return r.execByID(ctx, query, id, string(status), status.Rank())
}

func (r *submissionRepository) execByID(ctx context.Context, query, id string, args ...any) (bool, error) {
	if !isUUID(id) {
		return false, nil
	}
	cmd, err := r.pool.Exec(ctx, query, append([]any{id}, args...)...)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *submissionRepository) List(ctx context.Context, filter SubmissionFilter) (*SubmissionPage, error) {
	clauses := []string{"1=1"}
	args := []any{}

	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		clauses = append(clauses, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.ProjectType != nil {
		args = append(args, string(*filter.ProjectType))
		clauses = append(clauses, fmt.Sprintf("project_type=$%d", len(args)))
	}
	if filter.CreatedFrom != nil {
		args = append(args, *filter.CreatedFrom)
		clauses = append(clauses, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.CreatedTo != nil {
		args = append(args, *filter.CreatedTo)
		clauses = append(clauses, fmt.Sprintf("created_at <= $%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + escapeLike(strings.ToLower(strings.TrimSpace(*filter.SearchTerm))) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(name) LIKE %[1]s OR LOWER(email) LIKE %[1]s OR LOWER(message) LIKE %[1]s)", placeholder))
	}
	where := strings.Join(clauses, " AND ")

	var total int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM contact_submissions WHERE `+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * SubmissionPageSize

	query := fmt.Sprintf(`SELECT %s FROM contact_submissions WHERE %s ORDER BY created_at DESC, id DESC LIMIT %d OFFSET %d`,
		submissionColumns, where, SubmissionPageSize, offset)
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanSubmissions(rows)
	if err != nil {
		return nil, err
	}
	return &SubmissionPage{
		Items:      items,
		Page:       page,
		PageSize:   SubmissionPageSize,
		Total:      total,
		TotalPages: int((total + SubmissionPageSize - 1) / SubmissionPageSize),
	}, nil
}

func (r *submissionRepository) Recent(ctx context.Context, limit int) ([]domain.Submission, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `SELECT ` + submissionColumns + ` FROM contact_submissions ORDER BY created_at DESC, id DESC LIMIT $1`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSubmissions(rows)
}

func (r *submissionRepository) CountsByStatus(ctx context.Context) (StatusCounts, error) {
	const query = `
        SELECT COUNT(*) FILTER (WHERE status = 'new'),
               COUNT(*) FILTER (WHERE status = 'read'),
               COUNT(*) FILTER (WHERE status = 'replied'),
               COUNT(*)
        FROM contact_submissions`
	var c StatusCounts
	err := r.pool.QueryRow(ctx, query).Scan(&c.New, &c.Read, &c.Replied, &c.Total)
	return c, err
}

func (r *submissionRepository) CountsByPeriod(ctx context.Context, now time.Time, loc *time.Location) (PeriodCounts, error) {
	day, week, month := PeriodStarts(now, loc)
	const query = `
        SELECT COUNT(*) FILTER (WHERE created_at >= $1),
               COUNT(*) FILTER (WHERE created_at >= $2),
               COUNT(*) FILTER (WHERE created_at >= $3)
        FROM contact_submissions`
	var c PeriodCounts
	err := r.pool.QueryRow(ctx, query, day, week, month).Scan(&c.Today, &c.ThisWeek, &c.ThisMonth)
	return c, err
}

// PeriodStarts returns the start of now's day, week (Monday) and month in loc.
func PeriodStarts(now time.Time, loc *time.Location) (day, week, month time.Time) {
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	day = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	offset := (int(local.Weekday()) + 6) % 7
	week = day.AddDate(0, 0, -offset)
	month = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
	return day, week, month
}

func scanSubmission(row pgx.Row, s *domain.Submission) error {
	return row.Scan(
		&s.ID,
		&s.Name,
		&s.Email,
		&s.ProjectType,
		&s.Message,
		&s.IPAddress,
		&s.Status,
		&s.ReadAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
}

func scanSubmissions(rows pgx.Rows) ([]domain.Submission, error) {
	result := []domain.Submission{}
	for rows.Next() {
		var s domain.Submission
		if err := scanSubmission(rows, &s); err != nil {
			return nil, err
		}
		result = append(result, s)
	}
	return result, rows.Err()
}

func escapeLike(term string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(term)
}

func isUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
