package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alexanderramin/cronograma/internal/domain"
	"github.com/alexanderramin/cronograma/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleRepo_CreateAndGet(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewSQLiteScheduleRepo(db)

	s := testutil.NewTestSchedule("Bridge retrofit", testutil.WithProjectID("proj-42"))
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Bridge retrofit", got.Name)
	assert.Equal(t, "proj-42", got.ProjectID)
	assert.Equal(t, domain.StateDraft, got.State)
	assert.False(t, got.ApprovedByReviewer1)
	assert.Nil(t, got.SubmittedAt)
	assert.Nil(t, got.DecidedAt)
	assert.True(t, s.CreatedAt.Equal(got.CreatedAt))
}

func TestScheduleRepo_GetMissing(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewSQLiteScheduleRepo(db)

	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestScheduleRepo_UpdateRoundTripsWorkflowFields(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewSQLiteScheduleRepo(db)

	s := testutil.NewTestSchedule("Plan")
	require.NoError(t, repo.Create(ctx, s))

	submitted := time.Date(2025, 4, 1, 9, 30, 0, 123456789, time.UTC)
	s.State = domain.StateInReview
	s.ApprovedByReviewer2 = true
	s.Reviewer2Comment = "budget ok"
	s.SubmittedAt = &submitted
	s.Version = 4
	require.NoError(t, repo.Update(ctx, s, 0))

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateInReview, got.State)
	assert.False(t, got.ApprovedByReviewer1)
	assert.True(t, got.ApprovedByReviewer2)
	assert.Equal(t, "budget ok", got.Reviewer2Comment)
	require.NotNil(t, got.SubmittedAt)
	assert.True(t, submitted.Equal(*got.SubmittedAt), "nanoseconds survive storage")
	assert.Equal(t, 4, got.Version)
}

func TestScheduleRepo_UpdateStaleVersion(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewSQLiteScheduleRepo(db)

	s := testutil.NewTestSchedule("Plan")
	require.NoError(t, repo.Create(ctx, s))

	s.Version = 1
	require.NoError(t, repo.Update(ctx, s, 0))

	// A second writer still holding version 0 loses.
	s.Name = "Other"
	s.Version = 1
	err := repo.Update(ctx, s, 0)
	assert.ErrorIs(t, err, ErrStaleVersion)

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "Plan", got.Name)
}

func TestScheduleRepo_ListInCreationOrder(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewSQLiteScheduleRepo(db)

	first := testutil.NewTestSchedule("First")
	second := testutil.NewTestSchedule("Second")
	second.CreatedAt = first.CreatedAt.Add(time.Millisecond)
	require.NoError(t, repo.Create(ctx, second))
	require.NoError(t, repo.Create(ctx, first))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "First", list[0].Name)
	assert.Equal(t, "Second", list[1].Name)
}

func TestScheduleRepo_Delete(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewSQLiteScheduleRepo(db)

	s := testutil.NewTestSchedule("Plan")
	require.NoError(t, repo.Create(ctx, s))
	require.NoError(t, repo.Delete(ctx, s.ID))

	_, err := repo.GetByID(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScheduleRepo_CreateKeepsInitialState(t *testing.T) {
	db := testutil.NewTestDB(t)
	ctx := context.Background()
	repo := NewSQLiteScheduleRepo(db)

	s := testutil.NewTestSchedule("Approved plan", testutil.WithState(domain.StateApproved))
	require.NoError(t, repo.Create(ctx, s))

	got, err := repo.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StateApproved, got.State)
}
