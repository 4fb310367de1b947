package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/alexanderramin/cronograma/internal/contract"
	"github.com/alexanderramin/cronograma/internal/domain"
	"github.com/alexanderramin/cronograma/internal/repository"
	"github.com/alexanderramin/cronograma/internal/service"
	"github.com/alexanderramin/cronograma/internal/testutil"
	"github.com/alexanderramin/cronograma/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

// testApp wires a full App backed by an in-memory DB for CLI integration tests.
func testApp(t *testing.T) *App {
	t.Helper()
	db := testutil.NewTestDB(t)
	uow := testutil.NewTestUoW(db)
	policy := workflow.DefaultPolicy()

	return &App{
		Schedules: service.NewScheduleService(
			repository.NewSQLiteScheduleRepo(db),
			repository.NewSQLiteTaskRepo(db),
			repository.NewSQLiteDependencyRepo(db),
			repository.NewSQLiteEventRepo(db),
			uow,
			policy,
		),
		Import: service.NewImportService(uow, policy),
	}
}

// executeCmd runs a cobra command and captures stdout/stderr.
func executeCmd(t *testing.T, app *App, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd(app)
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err := root.Execute()
	return ansiPattern.ReplaceAllString(buf.String(), ""), err
}

// seedSchedule creates a schedule with two FS-linked tasks, A on days 1-5
// and B on days 6-10, and returns its ID.
func seedSchedule(t *testing.T, app *App) string {
	t.Helper()
	_, err := executeCmd(t, app, "schedule", "new", "--name", "Bridge", "--project", "P-1")
	require.NoError(t, err)
	list, err := app.Schedules.ListSchedules(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	id := list[0].ID

	_, err = executeCmd(t, app, "task", "add", "Bridge", "--name", "Survey", "--code", "A", "--start", "2025-04-01", "--end", "2025-04-05")
	require.NoError(t, err)
	_, err = executeCmd(t, app, "task", "add", "Bridge", "--name", "Drawings", "--code", "B", "--start", "2025-04-06", "--end", "2025-04-10")
	require.NoError(t, err)
	_, err = executeCmd(t, app, "dep", "add", "Bridge", "A", "B")
	require.NoError(t, err)
	return id
}

func TestScheduleNewAndList(t *testing.T) {
	app := testApp(t)

	out, err := executeCmd(t, app, "schedule", "new", "--name", "Bridge", "--project", "P-1")
	require.NoError(t, err)
	assert.Contains(t, out, "Created schedule Bridge")

	out, err = executeCmd(t, app, "schedule", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Bridge")
	assert.Contains(t, out, "DRAFT")
	assert.Contains(t, out, "P-1")
}

func TestScheduleList_Empty(t *testing.T) {
	out, err := executeCmd(t, testApp(t), "schedule", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No schedules found.")
}

func TestScheduleShow_TreeAndJSON(t *testing.T) {
	app := testApp(t)
	id := seedSchedule(t, app)

	out, err := executeCmd(t, app, "schedule", "show", id[:8])
	require.NoError(t, err)
	assert.Contains(t, out, "A Survey")
	assert.Contains(t, out, "B Drawings")
	assert.Contains(t, out, "2025-04-06 → 2025-04-10")

	out, err = executeCmd(t, app, "schedule", "show", "bridge", "--json")
	require.NoError(t, err)
	var agg contract.ScheduleAggregate
	require.NoError(t, json.Unmarshal([]byte(out), &agg))
	assert.Equal(t, id, agg.Schedule.ID)
	assert.Len(t, agg.Tasks, 2)
	assert.Len(t, agg.Dependencies, 1)

	again, err := executeCmd(t, app, "schedule", "show", "bridge", "--json")
	require.NoError(t, err)
	assert.Equal(t, out, again)
}

func TestTaskDates_ReportsConflict(t *testing.T) {
	app := testApp(t)
	seedSchedule(t, app)

	out, err := executeCmd(t, app, "task", "dates", "Bridge", "b", "--start", "2025-04-04", "--end", "2025-04-10")
	require.NoError(t, err)
	assert.Contains(t, out, "Moved B Drawings to 2025-04-04 → 2025-04-10")
	assert.Contains(t, out, "warning: Drawings violates 1 dependency constraint(s)")

	out, err = executeCmd(t, app, "schedule", "conflicts", "Bridge")
	require.NoError(t, err)
	assert.Contains(t, out, "Drawings")
	assert.Contains(t, out, "1d")
}

func TestReviewFlow(t *testing.T) {
	app := testApp(t)
	seedSchedule(t, app)

	out, err := executeCmd(t, app, "review", "submit", "Bridge")
	require.NoError(t, err)
	assert.Contains(t, out, "Bridge is now ◐ IN REVIEW")

	_, err = executeCmd(t, app, "task", "dates", "Bridge", "B", "--start", "2025-04-07")
	assert.ErrorIs(t, err, domain.ErrScheduleLocked)

	_, err = executeCmd(t, app, "--role", "pmo_reviewer", "review", "approve", "Bridge")
	require.NoError(t, err)
	out, err = executeCmd(t, app, "--role", "sponsor_reviewer", "review", "approve", "Bridge", "-m", "funded")
	require.NoError(t, err)
	assert.Contains(t, out, "APPROVED")

	out, err = executeCmd(t, app, "--role", "executor", "task", "status", "Bridge", "A", "done")
	require.NoError(t, err)
	assert.Contains(t, out, "A Survey is now done")

	out, err = executeCmd(t, app, "--role", "executor", "schedule", "caps", "Bridge")
	require.NoError(t, err)
	assert.Contains(t, out, "as executor: progress, status")

	out, err = executeCmd(t, app, "schedule", "history", "Bridge")
	require.NoError(t, err)
	assert.Contains(t, out, "draft → in_review")
	assert.Contains(t, out, "funded")
}

func TestReviewReject_RequiresComment(t *testing.T) {
	app := testApp(t)
	seedSchedule(t, app)
	_, err := executeCmd(t, app, "review", "submit", "Bridge")
	require.NoError(t, err)

	_, err = executeCmd(t, app, "--role", "pmo_reviewer", "review", "reject", "Bridge")
	assert.ErrorIs(t, err, domain.ErrValidation)

	out, err := executeCmd(t, app, "--role", "pmo_reviewer", "review", "reject", "Bridge", "--comment", "resequence")
	require.NoError(t, err)
	assert.Contains(t, out, "DRAFT")

	out, err = executeCmd(t, app, "schedule", "show", "Bridge")
	require.NoError(t, err)
	assert.Contains(t, out, "Rejected: resequence")
}

func TestRoleFlag_RejectsUnknownRole(t *testing.T) {
	_, err := executeCmd(t, testApp(t), "--role", "ceo", "schedule", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown role")
}

func TestDepCommands(t *testing.T) {
	app := testApp(t)
	seedSchedule(t, app)

	_, err := executeCmd(t, app, "dep", "add", "Bridge", "B", "A")
	assert.ErrorIs(t, err, domain.ErrCycleDetected)

	_, err = executeCmd(t, app, "dep", "add", "Bridge", "A", "B", "--type", "ss", "--lag", "2")
	require.NoError(t, err)

	out, err := executeCmd(t, app, "dep", "list", "Bridge")
	require.NoError(t, err)
	assert.Contains(t, out, "FS")
	assert.Contains(t, out, "SS")

	agg, err := loadSchedule(context.Background(), app, "Bridge")
	require.NoError(t, err)
	require.Len(t, agg.Dependencies, 2)
	_, err = executeCmd(t, app, "dep", "rm", "Bridge", agg.Dependencies[0].ID[:8])
	require.NoError(t, err)

	agg, err = loadSchedule(context.Background(), app, "Bridge")
	require.NoError(t, err)
	require.Len(t, agg.Dependencies, 1)
	assert.Equal(t, "SS", agg.Dependencies[0].Type)
}

func TestTaskEditAndRemove(t *testing.T) {
	app := testApp(t)
	seedSchedule(t, app)

	_, err := executeCmd(t, app, "task", "add", "Bridge", "--name", "Design", "--kind", "group", "--start", "2025-04-01", "--code", "G")
	require.NoError(t, err)
	out, err := executeCmd(t, app, "task", "edit", "Bridge", "A", "--parent", "G", "--phase", "design")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated A Survey")

	agg, err := loadSchedule(context.Background(), app, "Bridge")
	require.NoError(t, err)
	var survey contract.TaskView
	for _, v := range agg.Tasks {
		if v.Code == "A" {
			survey = v
		}
	}
	assert.Equal(t, 1, survey.Depth)
	assert.Equal(t, "design", survey.Phase)

	_, err = executeCmd(t, app, "task", "progress", "Bridge", "G", "40%")
	assert.ErrorIs(t, err, domain.ErrValidation)

	out, err = executeCmd(t, app, "task", "progress", "Bridge", "A", "40%")
	require.NoError(t, err)
	assert.Contains(t, out, "40% complete")

	_, err = executeCmd(t, app, "task", "rm", "Bridge", "A")
	require.NoError(t, err)
	out, err = executeCmd(t, app, "dep", "list", "Bridge")
	require.NoError(t, err)
	assert.Contains(t, out, "No dependencies.")
}

func TestTaskAdd_BadDate(t *testing.T) {
	app := testApp(t)
	seedSchedule(t, app)
	_, err := executeCmd(t, app, "task", "add", "Bridge", "--name", "X", "--start", "04/01/2025")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--start")
}

func TestScheduleImportAndRemove(t *testing.T) {
	app := testApp(t)
	doc := `{
  "schedule": {"name": "Imported"},
  "tasks": [
    {"ref": "a", "code": "A", "name": "Dig", "start": "2025-04-01", "end": "2025-04-03"},
    {"ref": "b", "code": "B", "name": "Pour", "start": "2025-04-02", "end": "2025-04-04"}
  ],
  "dependencies": [{"predecessor_ref": "a", "successor_ref": "b"}]
}`
	path := filepath.Join(t.TempDir(), "schedule.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	out, err := executeCmd(t, app, "schedule", "import", path)
	require.NoError(t, err)
	assert.Contains(t, out, "2 tasks, 1 dependencies")
	assert.Contains(t, out, "1 task(s) violate a dependency")

	out, err = executeCmd(t, app, "schedule", "phases", "Imported")
	require.NoError(t, err)
	assert.Contains(t, out, "(untagged)")

	out, err = executeCmd(t, app, "schedule", "rm", "Imported")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted schedule Imported")

	_, err = executeCmd(t, app, "schedule", "show", "Imported")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schedule not found")
}

func TestResolveTaskID(t *testing.T) {
	agg := &contract.ScheduleAggregate{Tasks: []contract.TaskView{
		{ID: "aaaa-1", Code: "D-1"},
		{ID: "aaab-2"},
	}}

	id, err := resolveTaskID(agg, "d-1")
	require.NoError(t, err)
	assert.Equal(t, "aaaa-1", id)

	id, err = resolveTaskID(agg, "aaab")
	require.NoError(t, err)
	assert.Equal(t, "aaab-2", id)

	_, err = resolveTaskID(agg, "aaa")
	assert.ErrorContains(t, err, "ambiguous")

	_, err = resolveTaskID(agg, "zzz")
	assert.ErrorContains(t, err, "task not found")
}

func writeTemplate(t *testing.T) string {
	t.Helper()
	doc := `{
  "id": "pours",
  "name": "Pour Train",
  "variables": [{"key": "pours", "default": 2, "min": 1}],
  "tasks": [
    {"id": "p{i}", "repeat": {"var": "i", "from": 1, "to_var": "pours"}, "code": "P-{i}",
     "title": "Pour {i}", "offset_days": "(i-1)*7", "duration_days": "3"}
  ],
  "dependencies": [
    {"repeat": {"var": "i", "from": 1, "to_var": "pours-1"}, "predecessor": "p{i}", "successor": "p{i+1}"}
  ]
}`
	path := filepath.Join(t.TempDir(), "pours.json")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))
	return path
}

func TestScheduleNew_FromTemplate(t *testing.T) {
	app := testApp(t)
	path := writeTemplate(t)

	out, err := executeCmd(t, app, "schedule", "new", "--template", path, "--start", "2025-04-01", "--var", "pours=3")
	require.NoError(t, err)
	assert.Contains(t, out, "Created schedule Pour Train")
	assert.Contains(t, out, "3 tasks, 2 dependencies")

	out, err = executeCmd(t, app, "schedule", "show", "Pour Train")
	require.NoError(t, err)
	assert.Contains(t, out, "P-3")
	assert.Contains(t, out, "2025-04-15")
}

func TestScheduleNew_TemplateDryRun(t *testing.T) {
	app := testApp(t)
	path := writeTemplate(t)

	out, err := executeCmd(t, app, "schedule", "new", "--template", path, "--start", "2025-04-01", "--name", "Preview", "--dry_run")
	require.NoError(t, err)

	var doc struct {
		Schedule struct {
			Name string `json:"name"`
		} `json:"schedule"`
		Tasks []json.RawMessage `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, "Preview", doc.Schedule.Name)
	assert.Len(t, doc.Tasks, 2)

	list, err := app.Schedules.ListSchedules(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list, "dry run must not persist")
}

func TestScheduleNew_TemplateNeedsStart(t *testing.T) {
	app := testApp(t)

	_, err := executeCmd(t, app, "schedule", "new", "--template", writeTemplate(t))
	require.Error(t, err)

	_, err = executeCmd(t, app, "schedule", "new")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--name is required")
}
