package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/drilldown/backend/internal/model"
	"github.com/google/uuid"
)

// MemorySubmissionRepository keeps submissions in process memory.
// It backs local development without PostgreSQL and the service tests.
// Stored records are never handed out directly; callers always get copies.
type MemorySubmissionRepository struct {
	mu      sync.RWMutex
	records map[string]*model.Submission
	now     func() time.Time
}

// NewMemorySubmissionRepository creates an empty in-memory repository.
func NewMemorySubmissionRepository() *MemorySubmissionRepository {
	return &MemorySubmissionRepository{
		records: make(map[string]*model.Submission),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

var _ SubmissionRepository = (*MemorySubmissionRepository)(nil)

// Ping always succeeds.
func (r *MemorySubmissionRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *MemorySubmissionRepository) Create(ctx context.Context, s *model.Submission) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.SubmittedAt.IsZero() {
		s.SubmittedAt = r.now()
	}
	if s.Status == "" {
		s.Status = model.StatusPending
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	id := uuid.NewString()
	for r.records[id] != nil {
		id = uuid.NewString()
	}
	s.ID = id
	r.records[id] = s.Clone()
	return nil
}

func (r *MemorySubmissionRepository) FindByID(ctx context.Context, id string) (*model.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.Clone(), nil
}

func (r *MemorySubmissionRepository) List(ctx context.Context, opts model.SubmissionListOptions) ([]*model.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filter := strings.TrimSpace(string(opts.Status))
	if filter == "all" {
		filter = ""
	}

	r.mu.RLock()
	out := make([]*model.Submission, 0, len(r.records))
	for _, s := range r.records {
		if filter != "" && string(s.Status) != filter {
			continue
		}
		out = append(out, s.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r *MemorySubmissionRepository) Update(ctx context.Context, id string, patch model.SubmissionPatch) (*model.Submission, error) {
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	if !patch.Matches(current) {
		return nil, ErrConflict
	}
	next := current.Clone()
	patch.Apply(next)
	r.records[id] = next
	return next.Clone(), nil
}

func (r *MemorySubmissionRepository) ToggleStatus(ctx context.Context, id string) (*model.Submission, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	next := current.Clone()
	next.Status = current.Status.Toggled()
	r.records[id] = next
	return next.Clone(), nil
}

func (r *MemorySubmissionRepository) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *MemorySubmissionRepository) Stats(ctx context.Context) (model.SubmissionStats, error) {
	if err := ctx.Err(); err != nil {
		return model.SubmissionStats{}, err
	}
	var st model.SubmissionStats
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.records {
		st.Count(s.Status)
	}
	return st, nil
}
