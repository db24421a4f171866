package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/drilldown/backend/internal/model"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const submissionColumns = `id, name, email, phone, company, message, status, submitted_at,
	email_sent, email_sent_at, admin_response, response_sent_at, response_email_sent`

// PgSubmissionRepository is the PostgreSQL implementation of SubmissionRepository.
// Each method issues exactly one statement, so a failed write leaves the row untouched.
type PgSubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewPgSubmissionRepository creates a PgSubmissionRepository backed by the given pool.
func NewPgSubmissionRepository(pool *pgxpool.Pool) *PgSubmissionRepository {
	return &PgSubmissionRepository{pool: pool}
}

var _ SubmissionRepository = (*PgSubmissionRepository)(nil)

// Create inserts a new contact_submissions row.
func (r *PgSubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	id := uuid.NewString()
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = time.Now().UTC()
	}
	if s.Status == "" {
		s.Status = model.StatusPending
	}

	err := r.pool.QueryRow(ctx,
		`INSERT INTO contact_submissions (id, name, email, phone, company, message, status, submitted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING submitted_at`,
		id, s.Name, s.Email, s.Phone, s.Company, s.Message, string(s.Status), s.SubmittedAt,
	).Scan(&s.SubmittedAt)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	s.ID = id
	return nil
}

// FindByID returns the submission with the given id or ErrNotFound.
func (r *PgSubmissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+submissionColumns+` FROM contact_submissions WHERE id = $1`, id)
	return scanSubmission(row)
}

// List returns submissions newest first, optionally filtered by status.
func (r *PgSubmissionRepository) List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.Submission, error) {
	query := `SELECT ` + submissionColumns + ` FROM contact_submissions`
	var args []any
	if status := strings.TrimSpace(string(opts.Status)); status != "" && status != "all" {
		args = append(args, status)
		query += ` WHERE status = $1`
	}
	query += ` ORDER BY submitted_at DESC, id DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	var submissions []*model.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, s)
	}
	return submissions, rows.Err()
}

// Update applies patch with a single UPDATE ... RETURNING statement.
func (r *PgSubmissionRepository) Update(ctx context.Context, id string, patch model.SubmissionPatch) (*model.Submission, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	var (
		sets []string
		args []any
	)
	set := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if patch.Status != nil {
		set("status", string(*patch.Status))
	}
	if patch.EmailSent != nil {
		set("email_sent", *patch.EmailSent)
	}
	if patch.EmailSentAt != nil {
		set("email_sent_at", *patch.EmailSentAt)
	}
	if patch.AdminResponse != nil {
		set("admin_response", *patch.AdminResponse)
		set("response_sent_at", *patch.ResponseSentAt)
		set("response_email_sent", patch.ResponseEmailSent)
	} else if patch.ResponseEmailSent != nil {
		set("response_email_sent", *patch.ResponseEmailSent)
	}

	args = append(args, id)
	where := `id = $` + strconv.Itoa(len(args))
	if patch.IfResponseSentAt != nil {
		args = append(args, *patch.IfResponseSentAt)
		where += ` AND response_sent_at = $` + strconv.Itoa(len(args))
	}
	query := `UPDATE contact_submissions SET ` + strings.Join(sets, ", ") +
		` WHERE ` + where +
		` RETURNING ` + submissionColumns

	s, err := scanSubmission(r.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, ErrNotFound) && patch.IfResponseSentAt != nil {
		return nil, r.conflictOrMissing(ctx, id)
	}
	return s, err
}

// conflictOrMissing tells a failed precondition apart from a missing row.
func (r *PgSubmissionRepository) conflictOrMissing(ctx context.Context, id string) error {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM contact_submissions WHERE id = $1)`, id,
	).Scan(&exists)
	switch {
	case err != nil:
		return fmt.Errorf("check submission: %w", err)
	case exists:
		return ErrConflict
	default:
		return ErrNotFound
	}
}

// ToggleStatus flips the status inside a single UPDATE so concurrent toggles serialize.
func (r *PgSubmissionRepository) ToggleStatus(ctx context.Context, id string) (*model.Submission, error) {
	return scanSubmission(r.pool.QueryRow(ctx,
		`UPDATE contact_submissions
		 SET status = CASE WHEN status = 'responded' THEN 'pending' ELSE 'responded' END
		 WHERE id = $1
		 RETURNING `+submissionColumns, id))
}

// Delete hard-deletes the submission.
func (r *PgSubmissionRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM contact_submissions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats counts submissions per status in one query so the totals are consistent.
func (r *PgSubmissionRepository) Stats(ctx context.Context) (model.SubmissionStats, error) {
	var st model.SubmissionStats
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE status = 'pending'),
		        COUNT(*) FILTER (WHERE status = 'responded'),
		        COUNT(*) FILTER (WHERE status = 'archived')
		 FROM contact_submissions`,
	).Scan(&st.Total, &st.Pending, &st.Responded, &st.Archived)
	if err != nil {
		return model.SubmissionStats{}, fmt.Errorf("count submissions: %w", err)
	}
	return st, nil
}

func scanSubmission(row pgx.Row) (*model.Submission, error) {
	var (
		s      model.Submission
		status string
	)
	err := row.Scan(
		&s.ID, &s.Name, &s.Email, &s.Phone, &s.Company, &s.Message, &status, &s.SubmittedAt,
		&s.EmailSent, &s.EmailSentAt, &s.AdminResponse, &s.ResponseSentAt, &s.ResponseEmailSent,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan submission: %w", err)
	}
	s.Status = model.SubmissionStatus(status)
	return &s, nil
}
