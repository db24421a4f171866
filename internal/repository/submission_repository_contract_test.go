package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/drilldown/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newSubmission(name string, at time.Time) *model.Submission {
	return &model.Submission{
		Name:        name,
		Email:       name + "@x.io",
		Message:     "hello from " + name,
		Status:      model.StatusPending,
		SubmittedAt: at,
	}
}

// runSubmissionRepositoryTests exercises the behaviour every
// SubmissionRepository implementation must share. newRepo returns an
// empty repository.
func runSubmissionRepositoryTests(t *testing.T, newRepo func(t *testing.T) SubmissionRepository) {
	base := time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC)

	t.Run("CreateAssignsIDAndRoundTrips", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		s := newSubmission("ada", base)
		s.Company = strPtr("Acme")
		require.NoError(t, repo.Create(ctx, s))
		require.NotEmpty(t, s.ID)

		got, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, "ada", got.Name)
		assert.Equal(t, "ada@x.io", got.Email)
		assert.Nil(t, got.Phone)
		require.NotNil(t, got.Company)
		assert.Equal(t, "Acme", *got.Company)
		assert.Equal(t, model.StatusPending, got.Status)
		assert.WithinDuration(t, base, got.SubmittedAt, time.Millisecond)
		assert.False(t, got.EmailSent)
		assert.Nil(t, got.AdminResponse)
		assert.Nil(t, got.ResponseSentAt)
		assert.Nil(t, got.ResponseEmailSent)
	})

	t.Run("CreateDefaultsTimestampAndStatus", func(t *testing.T) {
		repo := newRepo(t)
		s := &model.Submission{Name: "bo", Email: "bo@x.io", Message: "m"}
		require.NoError(t, repo.Create(context.Background(), s))
		assert.Equal(t, model.StatusPending, s.Status)
		assert.False(t, s.SubmittedAt.IsZero())
	})

	t.Run("FindByIDMissing", func(t *testing.T) {
		repo := newRepo(t)
		_, err := repo.FindByID(context.Background(), "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ListNewestFirstWithFilter", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		old := newSubmission("old", base)
		mid := newSubmission("mid", base.Add(time.Hour))
		mid.Status = model.StatusArchived
		latest := newSubmission("new", base.Add(2*time.Hour))
		for _, s := range []*model.Submission{mid, old, latest} {
			require.NoError(t, repo.Create(ctx, s))
		}

		all, err := repo.List(ctx, model.SubmissionListOptions{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, []string{"new", "mid", "old"}, []string{all[0].Name, all[1].Name, all[2].Name})

		archived, err := repo.List(ctx, model.SubmissionListOptions{Status: model.StatusArchived})
		require.NoError(t, err)
		require.Len(t, archived, 1)
		assert.Equal(t, "mid", archived[0].Name)

		everything, err := repo.List(ctx, model.SubmissionListOptions{Status: "all"})
		require.NoError(t, err)
		assert.Len(t, everything, 3)
	})

	t.Run("UpdateAppliesPatch", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		s := newSubmission("ada", base)
		require.NoError(t, repo.Create(ctx, s))

		status := model.StatusResponded
		got, err := repo.Update(ctx, s.ID, model.SubmissionPatch{Status: &status})
		require.NoError(t, err)
		assert.Equal(t, model.StatusResponded, got.Status)

		text := "We will call you"
		at := base.Add(time.Hour)
		got, err = repo.Update(ctx, s.ID, model.SubmissionPatch{AdminResponse: &text, ResponseSentAt: &at})
		require.NoError(t, err)
		require.NotNil(t, got.AdminResponse)
		assert.Equal(t, text, *got.AdminResponse)
		require.NotNil(t, got.ResponseSentAt)
		assert.WithinDuration(t, at, *got.ResponseSentAt, time.Millisecond)
		assert.Nil(t, got.ResponseEmailSent)
		assert.Equal(t, model.StatusResponded, got.Status)

		sent := false
		got, err = repo.Update(ctx, s.ID, model.SubmissionPatch{ResponseEmailSent: &sent})
		require.NoError(t, err)
		require.NotNil(t, got.ResponseEmailSent)
		assert.False(t, *got.ResponseEmailSent)

		emailSent := true
		got, err = repo.Update(ctx, s.ID, model.SubmissionPatch{EmailSent: &emailSent, EmailSentAt: &at})
		require.NoError(t, err)
		assert.True(t, got.EmailSent)
		require.NotNil(t, got.EmailSentAt)

		stored, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, got.AdminResponse, stored.AdminResponse)
		assert.WithinDuration(t, base, stored.SubmittedAt, time.Millisecond, "submitted_at is immutable")
	})

	t.Run("UpdateRejectsHalfResponse", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		s := newSubmission("ada", base)
		require.NoError(t, repo.Create(ctx, s))

		text := "half"
		_, err := repo.Update(ctx, s.ID, model.SubmissionPatch{AdminResponse: &text})
		assert.ErrorIs(t, err, model.ErrInvalidPatch)

		_, err = repo.Update(ctx, s.ID, model.SubmissionPatch{})
		assert.ErrorIs(t, err, model.ErrInvalidPatch)

		got, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Nil(t, got.AdminResponse)
		assert.Nil(t, got.ResponseSentAt)
	})

	t.Run("UpdateMissing", func(t *testing.T) {
		repo := newRepo(t)
		status := model.StatusArchived
		_, err := repo.Update(context.Background(), "00000000-0000-0000-0000-000000000000", model.SubmissionPatch{Status: &status})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ResponseReplacesEmailFlag", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		s := newSubmission("ada", base)
		require.NoError(t, repo.Create(ctx, s))

		first, at := "first", base.Add(time.Hour)
		sent := true
		_, err := repo.Update(ctx, s.ID, model.SubmissionPatch{AdminResponse: &first, ResponseSentAt: &at, ResponseEmailSent: &sent})
		require.NoError(t, err)

		second, later := "second", base.Add(2*time.Hour)
		got, err := repo.Update(ctx, s.ID, model.SubmissionPatch{AdminResponse: &second, ResponseSentAt: &later})
		require.NoError(t, err)
		assert.Equal(t, "second", *got.AdminResponse)
		assert.Nil(t, got.ResponseEmailSent, "a new response starts without a delivery flag")
	})

	t.Run("ConditionalUpdateOnResponseTime", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		s := newSubmission("ada", base)
		require.NoError(t, repo.Create(ctx, s))

		sent := true
		at := base.Add(time.Hour)
		_, err := repo.Update(ctx, s.ID, model.SubmissionPatch{ResponseEmailSent: &sent, IfResponseSentAt: &at})
		assert.ErrorIs(t, err, ErrConflict, "no response stored yet")

		text := "reply"
		_, err = repo.Update(ctx, s.ID, model.SubmissionPatch{AdminResponse: &text, ResponseSentAt: &at})
		require.NoError(t, err)

		stale := base.Add(time.Minute)
		_, err = repo.Update(ctx, s.ID, model.SubmissionPatch{ResponseEmailSent: &sent, IfResponseSentAt: &stale})
		assert.ErrorIs(t, err, ErrConflict)

		got, err := repo.Update(ctx, s.ID, model.SubmissionPatch{ResponseEmailSent: &sent, IfResponseSentAt: &at})
		require.NoError(t, err)
		require.NotNil(t, got.ResponseEmailSent)
		assert.True(t, *got.ResponseEmailSent)

		_, err = repo.Update(ctx, "00000000-0000-0000-0000-000000000000", model.SubmissionPatch{ResponseEmailSent: &sent, IfResponseSentAt: &at})
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ToggleStatus", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		s := newSubmission("ada", base)
		s.Status = model.StatusArchived
		require.NoError(t, repo.Create(ctx, s))

		for _, want := range []model.SubmissionStatus{model.StatusResponded, model.StatusPending, model.StatusResponded} {
			got, err := repo.ToggleStatus(ctx, s.ID)
			require.NoError(t, err)
			assert.Equal(t, want, got.Status)
		}

		_, err := repo.ToggleStatus(ctx, "00000000-0000-0000-0000-000000000000")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("ConcurrentTogglesAreNotLost", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		s := newSubmission("ada", base)
		require.NoError(t, repo.Create(ctx, s))

		const n = 20
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := repo.ToggleStatus(ctx, s.ID); err != nil {
					t.Errorf("toggle: %v", err)
				}
			}()
		}
		wg.Wait()

		got, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, got.Status, "an even number of toggles ends where it started")
	})

	t.Run("ConcurrentStatusAndResponseUpdates", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		s := newSubmission("ada", base)
		require.NoError(t, repo.Create(ctx, s))

		const n = 20
		sentAt := make(map[string]time.Time, n)
		for i := 0; i < n; i++ {
			sentAt[fmt.Sprintf("reply %d", i)] = base.Add(time.Duration(i+1) * time.Second)
		}
		statuses := []model.SubmissionStatus{model.StatusPending, model.StatusResponded, model.StatusArchived}

		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				st := statuses[i%len(statuses)]
				if _, err := repo.Update(ctx, s.ID, model.SubmissionPatch{Status: &st}); err != nil {
					t.Errorf("status update: %v", err)
				}
			}()
			go func() {
				defer wg.Done()
				text := fmt.Sprintf("reply %d", i)
				at := sentAt[text]
				flag := i%2 == 0
				patch := model.SubmissionPatch{AdminResponse: &text, ResponseSentAt: &at, ResponseEmailSent: &flag}
				if _, err := repo.Update(ctx, s.ID, patch); err != nil {
					t.Errorf("response update: %v", err)
				}
			}()
		}
		wg.Wait()

		got, err := repo.FindByID(ctx, s.ID)
		require.NoError(t, err)
		assert.Contains(t, statuses, got.Status)
		require.NotNil(t, got.AdminResponse)
		require.NotNil(t, got.ResponseSentAt)
		want, ok := sentAt[*got.AdminResponse]
		require.True(t, ok, "unexpected response %q", *got.AdminResponse)
		assert.True(t, want.Equal(*got.ResponseSentAt), "response text and time come from the same write")

		var idx int
		_, err = fmt.Sscanf(*got.AdminResponse, "reply %d", &idx)
		require.NoError(t, err)
		require.NotNil(t, got.ResponseEmailSent)
		assert.Equal(t, idx%2 == 0, *got.ResponseEmailSent, "delivery flag comes from the same write")
	})

	t.Run("Delete", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()
		s := newSubmission("ada", base)
		require.NoError(t, repo.Create(ctx, s))

		require.NoError(t, repo.Delete(ctx, s.ID))
		_, err := repo.FindByID(ctx, s.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.ErrorIs(t, repo.Delete(ctx, s.ID), ErrNotFound)
	})

	t.Run("StatsTotalsMatch", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		statuses := []model.SubmissionStatus{
			model.StatusPending, model.StatusPending, model.StatusResponded,
			model.StatusArchived, model.StatusArchived, model.StatusArchived,
		}
		for i, st := range statuses {
			s := newSubmission("s", base.Add(time.Duration(i)*time.Minute))
			s.Status = st
			require.NoError(t, repo.Create(ctx, s))
		}

		stats, err := repo.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, model.SubmissionStats{Total: 6, Pending: 2, Responded: 1, Archived: 3}, stats)
	})

	t.Run("ConcurrentCreatesGetDistinctIDs", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		const n = 20
		ids := make([]string, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s := newSubmission("c", base)
				if err := repo.Create(ctx, s); err != nil {
					t.Errorf("create: %v", err)
					return
				}
				ids[i] = s.ID
			}()
		}
		wg.Wait()

		seen := make(map[string]bool, n)
		for _, id := range ids {
			assert.False(t, seen[id], "duplicate id %s", id)
			seen[id] = true
		}
		stats, err := repo.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, n, stats.Total)
	})
}
