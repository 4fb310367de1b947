package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/alexanderramin/cronograma/internal/actor"
	"github.com/alexanderramin/cronograma/internal/contract"
	"github.com/alexanderramin/cronograma/internal/db"
	"github.com/alexanderramin/cronograma/internal/domain"
	"github.com/alexanderramin/cronograma/internal/repository"
	"github.com/alexanderramin/cronograma/internal/testutil"
	"github.com/alexanderramin/cronograma/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func as(role domain.Role) context.Context {
	return actor.WithRole(context.Background(), role)
}

func newScheduleService(database *sql.DB, uow db.UnitOfWork, observers ...UseCaseObserver) ScheduleService {
	return NewScheduleService(
		repository.NewSQLiteScheduleRepo(database),
		repository.NewSQLiteTaskRepo(database),
		repository.NewSQLiteDependencyRepo(database),
		repository.NewSQLiteEventRepo(database),
		uow,
		workflow.DefaultPolicy(),
		observers...,
	)
}

func setupScheduleService(t *testing.T) (ScheduleService, *sql.DB) {
	t.Helper()
	database := testutil.NewTestDB(t)
	return newScheduleService(database, testutil.NewTestUoW(database)), database
}

func createSchedule(t *testing.T, svc ScheduleService) string {
	t.Helper()
	agg, err := svc.CreateSchedule(as(domain.RolePlanner), contract.CreateScheduleInput{ProjectID: "P-1", Name: "Bridge retrofit"})
	require.NoError(t, err)
	return agg.Schedule.ID
}

func addTask(t *testing.T, svc ScheduleService, scheduleID, name string, start, end int) domain.Task {
	t.Helper()
	task, err := svc.CreateTask(as(domain.RolePlanner), scheduleID, contract.TaskInput{
		Name:  name,
		Start: testutil.Day(start),
		End:   testutil.Day(end),
	})
	require.NoError(t, err)
	return task
}

func findTask(agg *contract.ScheduleAggregate, id string) contract.TaskView {
	for _, v := range agg.Tasks {
		if v.ID == id {
			return v
		}
	}
	return contract.TaskView{}
}

func TestScheduleService_EndToEndScenario(t *testing.T) {
	svc, _ := setupScheduleService(t)
	planner := as(domain.RolePlanner)
	id := createSchedule(t, svc)

	a := addTask(t, svc, id, "A", 1, 5)
	b := addTask(t, svc, id, "B", 6, 10)
	_, err := svc.AddDependency(planner, id, contract.DependencyInput{OriginID: a.ID, DestinationID: b.ID})
	require.NoError(t, err)

	agg, err := svc.GetSchedule(planner, id)
	require.NoError(t, err)
	assert.Empty(t, agg.Conflicts)

	// Moving B before A finishes flags B.
	_, err = svc.UpdateTaskDates(planner, id, b.ID, testutil.Day(4), testutil.Day(10))
	require.NoError(t, err)
	agg, err = svc.GetSchedule(planner, id)
	require.NoError(t, err)
	require.Len(t, agg.Conflicts, 1)
	assert.Equal(t, b.ID, agg.Conflicts[0].TaskID)
	assert.True(t, findTask(agg, b.ID).HasConflict)

	_, err = svc.SubmitForReview(planner, id)
	require.NoError(t, err)

	_, err = svc.UpdateTaskDates(planner, id, b.ID, testutil.Day(6), testutil.Day(10))
	assert.ErrorIs(t, err, domain.ErrScheduleLocked)

	agg, err = svc.Decide(as(domain.RolePMOReviewer), id, contract.DecisionInput{Approved: true})
	require.NoError(t, err)
	assert.Equal(t, "in_review", agg.Schedule.State)

	agg, err = svc.Decide(as(domain.RoleSponsorReviewer), id, contract.DecisionInput{Approved: true, Comment: "funded"})
	require.NoError(t, err)
	assert.Equal(t, "approved", agg.Schedule.State)

	done, err := svc.UpdateTaskStatus(as(domain.RoleExecutor), id, b.ID, domain.TaskDone)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskDone, done.Status)

	_, err = svc.UpdateTaskDates(planner, id, b.ID, testutil.Day(6), testutil.Day(10))
	assert.ErrorIs(t, err, domain.ErrScheduleLocked)
}

func TestScheduleService_ConflictClearsWhenLagSatisfied(t *testing.T) {
	svc, _ := setupScheduleService(t)
	planner := as(domain.RolePlanner)
	id := createSchedule(t, svc)

	p := addTask(t, svc, id, "P", 1, 10)
	s := addTask(t, svc, id, "S", 11, 15)
	_, err := svc.AddDependency(planner, id, contract.DependencyInput{OriginID: p.ID, DestinationID: s.ID, LagDays: 2})
	require.NoError(t, err)

	agg, err := svc.GetSchedule(planner, id)
	require.NoError(t, err)
	require.Len(t, agg.Conflicts, 1)
	assert.Equal(t, 1, agg.Conflicts[0].Violations[0].ShortfallDays)

	_, err = svc.UpdateTaskDates(planner, id, s.ID, testutil.Day(12), testutil.Day(15))
	require.NoError(t, err)
	agg, err = svc.GetSchedule(planner, id)
	require.NoError(t, err)
	assert.Empty(t, agg.Conflicts)
}

func TestScheduleService_LockEnforcementInReview(t *testing.T) {
	svc, _ := setupScheduleService(t)
	id := createSchedule(t, svc)
	a := addTask(t, svc, id, "A", 1, 2)
	b := addTask(t, svc, id, "B", 3, 4)
	dep, err := svc.AddDependency(as(domain.RolePlanner), id, contract.DependencyInput{OriginID: a.ID, DestinationID: b.ID})
	require.NoError(t, err)

	_, err = svc.SubmitForReview(as(domain.RolePlanner), id)
	require.NoError(t, err)

	for _, role := range []domain.Role{domain.RolePlanner, domain.RoleAdmin, domain.RoleExecutor, domain.RolePMOReviewer} {
		ctx := as(role)
		_, err = svc.CreateTask(ctx, id, contract.TaskInput{Name: "C", Start: testutil.Day(1), End: testutil.Day(1)})
		assert.ErrorIs(t, err, domain.ErrScheduleLocked, "create task as %s", role)

		_, err = svc.UpdateTask(ctx, id, a.ID, domain.TaskPatch{Name: domain.Ptr("A2")})
		assert.ErrorIs(t, err, domain.ErrScheduleLocked)

		_, err = svc.UpdateTaskProgress(ctx, id, a.ID, 10)
		assert.ErrorIs(t, err, domain.ErrScheduleLocked)

		_, err = svc.UpdateTaskStatus(ctx, id, a.ID, domain.TaskInProgress)
		assert.ErrorIs(t, err, domain.ErrScheduleLocked)

		assert.ErrorIs(t, svc.DeleteTask(ctx, id, a.ID), domain.ErrScheduleLocked)
		assert.ErrorIs(t, svc.RemoveDependency(ctx, id, dep.ID), domain.ErrScheduleLocked)

		_, err = svc.AddDependency(ctx, id, contract.DependencyInput{OriginID: b.ID, DestinationID: a.ID, Type: domain.DepStartToStart})
		assert.ErrorIs(t, err, domain.ErrScheduleLocked)
	}

	var locked *domain.LockedError
	_, err = svc.UpdateTaskDates(as(domain.RolePlanner), id, a.ID, testutil.Day(2), testutil.Day(3))
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, domain.StateInReview, locked.State)
	assert.Equal(t, domain.CapStructure, locked.Capability)

	agg, err := svc.GetSchedule(as(domain.RolePlanner), id)
	require.NoError(t, err)
	assert.Len(t, agg.Tasks, 2)
	assert.Len(t, agg.Dependencies, 1)
}

func TestScheduleService_DualApproval(t *testing.T) {
	svc, _ := setupScheduleService(t)
	id := createSchedule(t, svc)
	addTask(t, svc, id, "A", 1, 2)
	_, err := svc.SubmitForReview(as(domain.RolePlanner), id)
	require.NoError(t, err)

	// The same reviewer approving twice does not count as two sign-offs.
	for i := 0; i < 2; i++ {
		agg, err := svc.Decide(as(domain.RoleSponsorReviewer), id, contract.DecisionInput{Approved: true})
		require.NoError(t, err)
		assert.Equal(t, "in_review", agg.Schedule.State)
		assert.True(t, agg.Schedule.ApprovedByReviewer2)
		assert.False(t, agg.Schedule.ApprovedByReviewer1)
	}

	_, err = svc.Decide(as(domain.RolePlanner), id, contract.DecisionInput{Approved: true})
	assert.ErrorIs(t, err, domain.ErrValidation, "planners are not reviewers")

	agg, err := svc.Decide(as(domain.RolePMOReviewer), id, contract.DecisionInput{Approved: true, Comment: "ok"})
	require.NoError(t, err)
	assert.Equal(t, "approved", agg.Schedule.State)
	assert.Equal(t, "ok", agg.Schedule.Reviewer1Comment)
	assert.NotEmpty(t, agg.Schedule.DecidedAt)

	_, err = svc.Decide(as(domain.RolePMOReviewer), id, contract.DecisionInput{Approved: true})
	var trErr *domain.TransitionError
	require.ErrorAs(t, err, &trErr)
	assert.Equal(t, domain.StateApproved, trErr.From)
}

func TestScheduleService_RejectionRequiresComment(t *testing.T) {
	svc, _ := setupScheduleService(t)
	id := createSchedule(t, svc)
	addTask(t, svc, id, "A", 1, 2)
	_, err := svc.SubmitForReview(as(domain.RolePlanner), id)
	require.NoError(t, err)
	_, err = svc.Decide(as(domain.RolePMOReviewer), id, contract.DecisionInput{Approved: true})
	require.NoError(t, err)

	_, err = svc.Decide(as(domain.RoleSponsorReviewer), id, contract.DecisionInput{Approved: false, Comment: "   "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	agg, err := svc.GetSchedule(as(domain.RolePlanner), id)
	require.NoError(t, err)
	assert.Equal(t, "in_review", agg.Schedule.State)
	assert.True(t, agg.Schedule.ApprovedByReviewer1, "a refused rejection changes nothing")

	agg, err = svc.Decide(as(domain.RoleSponsorReviewer), id, contract.DecisionInput{Approved: false, Comment: "cost overrun"})
	require.NoError(t, err)
	assert.Equal(t, "draft", agg.Schedule.State)
	assert.Equal(t, "cost overrun", agg.Schedule.RejectionComment)
	assert.False(t, agg.Schedule.ApprovedByReviewer1)

	// Back in draft the planner can edit again, and resubmitting clears the comment.
	_, err = svc.UpdateTaskDates(as(domain.RolePlanner), id, agg.Tasks[0].ID, testutil.Day(2), testutil.Day(3))
	require.NoError(t, err)
	agg, err = svc.SubmitForReview(as(domain.RolePlanner), id)
	require.NoError(t, err)
	assert.Empty(t, agg.Schedule.RejectionComment)
}

func TestScheduleService_RolesAfterApproval(t *testing.T) {
	svc, _ := setupScheduleService(t)
	id := createSchedule(t, svc)
	a := addTask(t, svc, id, "A", 1, 2)
	approve(t, svc, id)

	_, err := svc.UpdateTaskProgress(as(domain.RoleExecutor), id, a.ID, 60)
	require.NoError(t, err)
	_, err = svc.UpdateTaskStatus(as(domain.RolePMOReviewer), id, a.ID, domain.TaskDone)
	assert.ErrorIs(t, err, domain.ErrScheduleLocked)
	_, err = svc.UpdateTask(as(domain.RoleAdmin), id, a.ID, domain.TaskPatch{Progress: domain.Ptr(70), Name: domain.Ptr("A!")})
	assert.ErrorIs(t, err, domain.ErrScheduleLocked, "a patch mixing structure and progress needs both")

	caps, err := svc.AllowedMutations(as(domain.RoleExecutor), id)
	require.NoError(t, err)
	assert.Equal(t, []domain.Capability{domain.CapProgress, domain.CapStatus}, caps)

	_, err = svc.Reopen(as(domain.RolePlanner), id, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	agg, err := svc.Reopen(as(domain.RoleAdmin), id, "scope change")
	require.NoError(t, err)
	assert.Equal(t, "draft", agg.Schedule.State)
	_, err = svc.UpdateTaskDates(as(domain.RolePlanner), id, a.ID, testutil.Day(3), testutil.Day(4))
	assert.NoError(t, err)
}

func approve(t *testing.T, svc ScheduleService, id string) {
	t.Helper()
	_, err := svc.SubmitForReview(as(domain.RolePlanner), id)
	require.NoError(t, err)
	_, err = svc.Decide(as(domain.RolePMOReviewer), id, contract.DecisionInput{Approved: true})
	require.NoError(t, err)
	_, err = svc.Decide(as(domain.RoleSponsorReviewer), id, contract.DecisionInput{Approved: true})
	require.NoError(t, err)
}

func TestScheduleService_ExecutorInDraft(t *testing.T) {
	svc, _ := setupScheduleService(t)
	id := createSchedule(t, svc)
	a := addTask(t, svc, id, "A", 1, 2)
	exec := as(domain.RoleExecutor)

	_, err := svc.CreateTask(exec, id, contract.TaskInput{Name: "X", Start: testutil.Day(1), End: testutil.Day(1)})
	assert.ErrorIs(t, err, domain.ErrScheduleLocked)

	updated, err := svc.UpdateTaskProgress(exec, id, a.ID, 30)
	require.NoError(t, err)
	assert.Equal(t, 30, updated.Progress)
}

func TestScheduleService_GraphErrors(t *testing.T) {
	svc, _ := setupScheduleService(t)
	planner := as(domain.RolePlanner)
	id := createSchedule(t, svc)
	a := addTask(t, svc, id, "A", 1, 2)
	b := addTask(t, svc, id, "B", 3, 4)
	c := addTask(t, svc, id, "C", 5, 6)

	_, err := svc.AddDependency(planner, id, contract.DependencyInput{OriginID: a.ID, DestinationID: a.ID})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.AddDependency(planner, id, contract.DependencyInput{OriginID: a.ID, DestinationID: b.ID})
	require.NoError(t, err)
	_, err = svc.AddDependency(planner, id, contract.DependencyInput{OriginID: a.ID, DestinationID: b.ID, Type: domain.DepFinishToStart})
	assert.ErrorIs(t, err, domain.ErrDuplicateEdge)

	_, err = svc.AddDependency(planner, id, contract.DependencyInput{OriginID: b.ID, DestinationID: c.ID})
	require.NoError(t, err)
	_, err = svc.AddDependency(planner, id, contract.DependencyInput{OriginID: c.ID, DestinationID: a.ID})
	var cycle *domain.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.Equal(t, []string{c.ID, a.ID, b.ID, c.ID}, cycle.Path)

	_, err = svc.AddDependency(planner, id, contract.DependencyInput{OriginID: a.ID, DestinationID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, svc.RemoveDependency(planner, id, "ghost"), domain.ErrNotFound)
	_, err = svc.GetSchedule(planner, "no-such-schedule")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	agg, err := svc.GetSchedule(planner, id)
	require.NoError(t, err)
	assert.Len(t, agg.Dependencies, 2)
	assert.Equal(t, 5, agg.Schedule.Version, "refused mutations never bump the version")
}

func TestScheduleService_DeleteTaskCascades(t *testing.T) {
	svc, database := setupScheduleService(t)
	planner := as(domain.RolePlanner)
	id := createSchedule(t, svc)

	group, err := svc.CreateTask(planner, id, contract.TaskInput{Name: "Phase 1", Kind: domain.KindGroup, Start: testutil.Day(1), End: testutil.Day(9)})
	require.NoError(t, err)
	child, err := svc.CreateTask(planner, id, contract.TaskInput{Name: "Child", ParentID: group.ID, Start: testutil.Day(1), End: testutil.Day(3)})
	require.NoError(t, err)
	other := addTask(t, svc, id, "Other", 4, 5)
	_, err = svc.AddDependency(planner, id, contract.DependencyInput{OriginID: group.ID, DestinationID: other.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteTask(planner, id, group.ID))

	agg, err := svc.GetSchedule(planner, id)
	require.NoError(t, err)
	assert.Len(t, agg.Tasks, 2)
	assert.Empty(t, agg.Dependencies)
	assert.Empty(t, findTask(agg, child.ID).ParentID, "orphaned children move up to the root")

	// The persisted rows agree with the snapshot.
	reloaded := newScheduleService(database, testutil.NewTestUoW(database))
	fresh, err := reloaded.GetSchedule(planner, id)
	require.NoError(t, err)
	assert.Equal(t, agg, fresh)
}

func TestScheduleService_GroupProgressIsDerived(t *testing.T) {
	svc, _ := setupScheduleService(t)
	planner := as(domain.RolePlanner)
	id := createSchedule(t, svc)

	group, err := svc.CreateTask(planner, id, contract.TaskInput{Name: "Phase", Kind: domain.KindGroup, Start: testutil.Day(1), End: testutil.Day(1)})
	require.NoError(t, err)
	a, err := svc.CreateTask(planner, id, contract.TaskInput{Name: "A", ParentID: group.ID, Start: testutil.Day(1), End: testutil.Day(1)})
	require.NoError(t, err)
	b, err := svc.CreateTask(planner, id, contract.TaskInput{Name: "B", ParentID: group.ID, Start: testutil.Day(2), End: testutil.Day(4)})
	require.NoError(t, err)

	_, err = svc.UpdateTaskProgress(planner, id, group.ID, 50)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateTaskProgress(planner, id, a.ID, 100)
	require.NoError(t, err)
	_, err = svc.UpdateTaskProgress(planner, id, b.ID, 0)
	require.NoError(t, err)

	agg, err := svc.GetSchedule(planner, id)
	require.NoError(t, err)
	g := findTask(agg, group.ID)
	assert.Equal(t, 25, g.DisplayProgress, "one of four task-days done")
	assert.Equal(t, "2025-04-01", g.DisplayStart)
	assert.Equal(t, "2025-04-04", g.DisplayEnd)
}

func TestScheduleService_GetScheduleIsIdempotent(t *testing.T) {
	svc, _ := setupScheduleService(t)
	planner := as(domain.RolePlanner)
	id := createSchedule(t, svc)
	a := addTask(t, svc, id, "A", 1, 5)
	b := addTask(t, svc, id, "B", 3, 8)
	_, err := svc.AddDependency(planner, id, contract.DependencyInput{OriginID: a.ID, DestinationID: b.ID, LagDays: 1})
	require.NoError(t, err)

	first, err := svc.GetSchedule(planner, id)
	require.NoError(t, err)
	firstJSON, err := json.Marshal(first)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := svc.GetSchedule(planner, id)
		require.NoError(t, err)
		againJSON, err := json.Marshal(again)
		require.NoError(t, err)
		assert.Equal(t, string(firstJSON), string(againJSON))
	}

	// Mutating a returned aggregate does not leak into the next read.
	first.Tasks[0].Name = "tampered"
	again, err := svc.GetSchedule(planner, id)
	require.NoError(t, err)
	assert.Equal(t, "A", again.Tasks[0].Name)
}

func TestScheduleService_ReloadMatchesSnapshot(t *testing.T) {
	svc, database := setupScheduleService(t)
	planner := as(domain.RolePlanner)
	id := createSchedule(t, svc)

	a := addTask(t, svc, id, "A", 1, 5)
	b := addTask(t, svc, id, "B", 2, 6)
	c := addTask(t, svc, id, "C", 7, 9)
	for _, in := range []contract.DependencyInput{
		{OriginID: a.ID, DestinationID: c.ID},
		{OriginID: b.ID, DestinationID: c.ID, Type: domain.DepFinishToFinish, LagDays: 5},
		{OriginID: a.ID, DestinationID: b.ID, Type: domain.DepStartToStart},
	} {
		_, err := svc.AddDependency(planner, id, in)
		require.NoError(t, err)
	}
	_, err := svc.SubmitForReview(planner, id)
	require.NoError(t, err)
	_, err = svc.Decide(as(domain.RolePMOReviewer), id, contract.DecisionInput{Approved: true, Comment: "dates fine"})
	require.NoError(t, err)

	want, err := svc.GetSchedule(planner, id)
	require.NoError(t, err)
	wantJSON, err := json.Marshal(want)
	require.NoError(t, err)

	reloaded := newScheduleService(database, testutil.NewTestUoW(database))
	got, err := reloaded.GetSchedule(planner, id)
	require.NoError(t, err)
	gotJSON, err := json.Marshal(got)
	require.NoError(t, err)

	assert.JSONEq(t, string(wantJSON), string(gotJSON))
	assert.Equal(t, string(wantJSON), string(gotJSON))
}

func TestScheduleService_FailedWriteLeavesSnapshot(t *testing.T) {
	database := testutil.NewTestDB(t)
	setup := newScheduleService(database, testutil.NewTestUoW(database))
	planner := as(domain.RolePlanner)
	id := createSchedule(t, setup)
	a := addTask(t, setup, id, "A", 1, 2)
	b := addTask(t, setup, id, "B", 3, 4)
	c := addTask(t, setup, id, "C", 5, 6)
	_, err := setup.AddDependency(planner, id, contract.DependencyInput{OriginID: a.ID, DestinationID: b.ID})
	require.NoError(t, err)
	_, err = setup.AddDependency(planner, id, contract.DependencyInput{OriginID: b.ID, DestinationID: c.ID})
	require.NoError(t, err)

	// Deleting B writes: header update, two edge deletes, task delete.
	failing := &testutil.FailOnNthExecUoW{DB: database, FailOn: 3, Err: assert.AnError}
	svc := newScheduleService(database, failing)
	before, err := svc.GetSchedule(planner, id)
	require.NoError(t, err)

	err = svc.DeleteTask(planner, id, b.ID)
	assert.ErrorIs(t, err, assert.AnError)

	after, err := svc.GetSchedule(planner, id)
	require.NoError(t, err)
	assert.Equal(t, before, after, "published snapshot is unchanged")

	fresh, err := newScheduleService(database, testutil.NewTestUoW(database)).GetSchedule(planner, id)
	require.NoError(t, err)
	assert.Equal(t, before, fresh, "transaction rolled back")
}

func TestScheduleService_StaleVersionReloads(t *testing.T) {
	database := testutil.NewTestDB(t)
	planner := as(domain.RolePlanner)
	first := newScheduleService(database, testutil.NewTestUoW(database))
	second := newScheduleService(database, testutil.NewTestUoW(database))

	id := createSchedule(t, first)
	addTask(t, first, id, "A", 1, 2)

	_, err := second.GetSchedule(planner, id)
	require.NoError(t, err)

	addTask(t, first, id, "B", 3, 4)

	_, err = second.CreateTask(planner, id, contract.TaskInput{Name: "C", Start: testutil.Day(5), End: testutil.Day(5)})
	assert.ErrorIs(t, err, repository.ErrStaleVersion)

	// The stale copy was dropped, so a retry works against fresh state.
	_, err = second.CreateTask(planner, id, contract.TaskInput{Name: "C", Start: testutil.Day(5), End: testutil.Day(5)})
	require.NoError(t, err)
	agg, err := second.GetSchedule(planner, id)
	require.NoError(t, err)
	assert.Len(t, agg.Tasks, 3)
	assert.Equal(t, 3, agg.Schedule.Version)
}

func TestScheduleService_History(t *testing.T) {
	svc, _ := setupScheduleService(t)
	id := createSchedule(t, svc)
	addTask(t, svc, id, "A", 1, 2)

	_, err := svc.SubmitForReview(as(domain.RolePlanner), id)
	require.NoError(t, err)
	_, err = svc.Decide(as(domain.RolePMOReviewer), id, contract.DecisionInput{Comment: "resequence"})
	require.NoError(t, err)
	approve(t, svc, id)
	_, err = svc.Reopen(as(domain.RoleAdmin), id, "new scope")
	require.NoError(t, err)

	history, err := svc.History(as(domain.RolePlanner), id)
	require.NoError(t, err)
	require.Len(t, history, 6)

	var actions []string
	for i, e := range history {
		assert.Equal(t, i+1, e.Seq)
		actions = append(actions, e.Action)
	}
	assert.Equal(t, []string{"submit", "reject", "submit", "approve", "approve", "reopen"}, actions)
	assert.Equal(t, "resequence", history[1].Comment)
	assert.Equal(t, "pmo_reviewer", history[1].Role)
	assert.Equal(t, "draft", history[1].ToState)
	assert.Equal(t, "approved", history[4].ToState)
	assert.Equal(t, "new scope", history[5].Comment)
}

func TestScheduleService_DeleteSchedule(t *testing.T) {
	svc, _ := setupScheduleService(t)
	planner := as(domain.RolePlanner)

	draft := createSchedule(t, svc)
	addTask(t, svc, draft, "A", 1, 2)
	require.NoError(t, svc.DeleteSchedule(planner, draft))
	_, err := svc.GetSchedule(planner, draft)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	reviewed := createSchedule(t, svc)
	addTask(t, svc, reviewed, "A", 1, 2)
	_, err = svc.SubmitForReview(planner, reviewed)
	require.NoError(t, err)
	assert.ErrorIs(t, svc.DeleteSchedule(planner, reviewed), domain.ErrScheduleLocked)

	list, err := svc.ListSchedules(planner)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, reviewed, list[0].ID)
	assert.Equal(t, 1, list[0].TaskCount)
}

func TestScheduleService_RenameAndValidation(t *testing.T) {
	svc, _ := setupScheduleService(t)
	planner := as(domain.RolePlanner)

	_, err := svc.CreateSchedule(planner, contract.CreateScheduleInput{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrValidation)

	id := createSchedule(t, svc)
	agg, err := svc.RenameSchedule(planner, id, "Bridge retrofit, phase 2")
	require.NoError(t, err)
	assert.Equal(t, "Bridge retrofit, phase 2", agg.Schedule.Name)

	_, err = svc.UpdateTaskProgress(planner, id, "any", 101)
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.UpdateTaskStatus(planner, id, "any", "paused")
	assert.ErrorIs(t, err, domain.ErrValidation)
	_, err = svc.UpdateTask(planner, id, "any", domain.TaskPatch{})
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.SubmitForReview(planner, id)
	assert.ErrorIs(t, err, domain.ErrValidation, "an empty schedule cannot be reviewed")
}

func TestScheduleService_Phases(t *testing.T) {
	svc, _ := setupScheduleService(t)
	planner := as(domain.RolePlanner)
	id := createSchedule(t, svc)

	for _, in := range []contract.TaskInput{
		{Name: "Survey", Phase: "design", Start: testutil.Day(1), End: testutil.Day(2), Progress: 100},
		{Name: "Drawings", Phase: "design", Start: testutil.Day(3), End: testutil.Day(4)},
		{Name: "Permit", Start: testutil.Day(1), End: testutil.Day(1)},
		{Name: "Pour", Phase: "build", Start: testutil.Day(5), End: testutil.Day(9)},
	} {
		_, err := svc.CreateTask(planner, id, in)
		require.NoError(t, err)
	}

	phases, err := svc.Phases(planner, id)
	require.NoError(t, err)
	require.Len(t, phases, 3)
	assert.Equal(t, "design", phases[0].Phase)
	assert.Len(t, phases[0].TaskIDs, 2)
	assert.Equal(t, 50, phases[0].Progress)
	assert.Equal(t, "2025-04-01", phases[0].Start)
	assert.Equal(t, "2025-04-04", phases[0].End)
	assert.Equal(t, "", phases[1].Phase)
	assert.Equal(t, "build", phases[2].Phase)
}

func TestScheduleService_ConcurrentWriters(t *testing.T) {
	svc, database := setupScheduleService(t)
	planner := as(domain.RolePlanner)
	id := createSchedule(t, svc)

	const writers = 20
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.CreateTask(planner, id, contract.TaskInput{
				Name:  fmt.Sprintf("T%02d", i),
				Start: testutil.Day(1),
				End:   testutil.Day(2),
			})
			errs <- err
		}(i)
	}

	// Readers run alongside the writers and always see a whole snapshot.
	var readers sync.WaitGroup
	for i := 0; i < 4; i++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for j := 0; j < 10; j++ {
				agg, err := svc.GetSchedule(planner, id)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, agg.Schedule.Version, len(agg.Tasks))
			}
		}()
	}

	wg.Wait()
	readers.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	agg, err := svc.GetSchedule(planner, id)
	require.NoError(t, err)
	assert.Equal(t, writers, agg.Schedule.Version)
	assert.Len(t, agg.Tasks, writers)

	fresh, err := newScheduleService(database, testutil.NewTestUoW(database)).GetSchedule(planner, id)
	require.NoError(t, err)
	assert.Equal(t, agg, fresh)
}
