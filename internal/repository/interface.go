package repository

import (
	"context"
	"errors"

	"github.com/drilldown/backend/internal/model"
)

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a conditional update finds the record changed.
	ErrConflict = errors.New("record changed concurrently")
)

// DB checks that the database connection is alive.
type DB interface {
	Ping(ctx context.Context) error
}

// SubmissionRepository persists contact submissions. Every mutation is
// atomic per record: readers observe either the previous or the new state.
type SubmissionRepository interface {
	// Create stores s and populates s.ID. A zero SubmittedAt is set to now.
	Create(ctx context.Context, s *model.Submission) error
	FindByID(ctx context.Context, id string) (*model.Submission, error)
	// List returns submissions ordered by submitted_at, newest first.
	List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.Submission, error)
	// Update applies patch in a single read-modify-write and returns the committed record.
	// A patch whose precondition no longer holds fails with ErrConflict.
	Update(ctx context.Context, id string, patch model.SubmissionPatch) (*model.Submission, error)
	// ToggleStatus flips the status with SubmissionStatus.Toggled in one atomic step.
	ToggleStatus(ctx context.Context, id string) (*model.Submission, error)
	// Delete removes the record permanently.
	Delete(ctx context.Context, id string) error
	Stats(ctx context.Context) (model.SubmissionStats, error)
}
