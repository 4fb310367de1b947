package service

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/alexanderramin/cronograma/internal/domain"
	"github.com/alexanderramin/cronograma/internal/importer"
	"github.com/alexanderramin/cronograma/internal/testutil"
	"github.com/alexanderramin/cronograma/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeImportJSON(t *testing.T, schema *importer.ImportSchema) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "import.json")
	data, err := json.MarshalIndent(schema, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
	return path
}

func ptrStr(s string) *string { return &s }

func bridgeSchema() *importer.ImportSchema {
	return &importer.ImportSchema{
		Schedule: importer.ScheduleImport{Name: "Bridge retrofit", ProjectID: "P-7"},
		Tasks: []importer.TaskImport{
			{Ref: "design", Name: "Design", Kind: "group", Start: "2025-04-01", End: "2025-04-10"},
			{Ref: "survey", ParentRef: ptrStr("design"), Code: "D-1", Name: "Site survey", Start: "2025-04-01", End: "2025-04-03", Progress: 100, Phase: "design"},
			{Ref: "drawings", ParentRef: ptrStr("design"), Code: "D-2", Name: "Drawings", Start: "2025-04-04", End: "2025-04-10", Phase: "design"},
			{Ref: "pour", Code: "B-1", Name: "Pour deck", Start: "2025-04-08", End: "2025-04-20", Phase: "build"},
		},
		Dependencies: []importer.DependencyImport{
			{PredecessorRef: "survey", SuccessorRef: "drawings"},
			{PredecessorRef: "drawings", SuccessorRef: "pour"},
		},
	}
}

func setupImport(t *testing.T) (ImportService, ScheduleService) {
	t.Helper()
	database := testutil.NewTestDB(t)
	uow := testutil.NewTestUoW(database)
	return NewImportService(uow, workflow.DefaultPolicy()), newScheduleService(database, uow)
}

func TestImportSchedule_FullStructure(t *testing.T) {
	imports, schedules := setupImport(t)
	path := writeImportJSON(t, bridgeSchema())

	result, err := imports.ImportSchedule(as(domain.RolePlanner), path)
	require.NoError(t, err)
	assert.Equal(t, 4, result.TaskCount)
	assert.Equal(t, 2, result.DependencyCount)
	assert.Equal(t, "draft", result.Schedule.Schedule.State)

	// The pour starts before the drawings finish.
	require.Len(t, result.Schedule.Conflicts, 1)
	assert.Equal(t, "Pour deck", result.Schedule.Conflicts[0].TaskName)

	agg, err := schedules.GetSchedule(as(domain.RolePlanner), result.Schedule.Schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Schedule, agg, "the stored schedule reloads identically")

	require.Len(t, agg.Tasks, 4)
	assert.Equal(t, "Design", agg.Tasks[0].Name)
	assert.Equal(t, 1, agg.Tasks[1].Depth)
	assert.Equal(t, agg.Tasks[0].ID, agg.Tasks[1].ParentID)
	assert.Equal(t, 30, agg.Tasks[0].DisplayProgress, "3 of 10 design days are done")
}

func TestImportSchedule_ThenEdit(t *testing.T) {
	imports, schedules := setupImport(t)
	result, err := imports.ImportScheduleFromSchema(as(domain.RolePlanner), bridgeSchema())
	require.NoError(t, err)
	id := result.Schedule.Schedule.ID

	var pourID string
	for _, v := range result.Schedule.Tasks {
		if v.Code == "B-1" {
			pourID = v.ID
		}
	}
	require.NotEmpty(t, pourID)

	_, err = schedules.UpdateTaskDates(as(domain.RolePlanner), id, pourID, testutil.Day(11), testutil.Day(20))
	require.NoError(t, err)
	agg, err := schedules.GetSchedule(as(domain.RolePlanner), id)
	require.NoError(t, err)
	assert.Empty(t, agg.Conflicts)
	assert.Equal(t, result.Schedule.Schedule.Version+1, agg.Schedule.Version)
}

func TestImportSchedule_ValidationErrorsAreCollected(t *testing.T) {
	imports, schedules := setupImport(t)
	schema := bridgeSchema()
	schema.Tasks[2].End = "2025-04-01"
	schema.Dependencies = append(schema.Dependencies, importer.DependencyImport{PredecessorRef: "pour", SuccessorRef: "survey"})

	_, err := imports.ImportScheduleFromSchema(as(domain.RolePlanner), schema)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "tasks[2]: end 2025-04-01 is before start 2025-04-04")
	assert.Contains(t, err.Error(), "dependencies[2]: circular dependency")

	list, err := schedules.ListSchedules(as(domain.RolePlanner))
	require.NoError(t, err)
	assert.Empty(t, list, "nothing is stored")
}

func TestImportSchedule_RequiresDraftEditor(t *testing.T) {
	imports, schedules := setupImport(t)

	_, err := imports.ImportScheduleFromSchema(as(domain.RoleExecutor), bridgeSchema())
	assert.ErrorIs(t, err, domain.ErrScheduleLocked)

	_, err = imports.ImportScheduleFromSchema(as(domain.RoleAdmin), bridgeSchema())
	require.NoError(t, err)
	list, err := schedules.ListSchedules(as(domain.RoleAdmin))
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestImportSchedule_MissingFile(t *testing.T) {
	imports, _ := setupImport(t)
	_, err := imports.ImportSchedule(as(domain.RolePlanner), filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading import file")
}

func TestImportSchedule_RollsBackOnWriteFailure(t *testing.T) {
	database := testutil.NewTestDB(t)
	failing := &testutil.FailOnNthExecUoW{DB: database, FailOn: 4, Err: assert.AnError}
	imports := NewImportService(failing, workflow.DefaultPolicy())

	_, err := imports.ImportScheduleFromSchema(as(domain.RolePlanner), bridgeSchema())
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 4, failing.Writes())

	var count int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM schedules`).Scan(&count))
	assert.Zero(t, count)
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM tasks`).Scan(&count))
	assert.Zero(t, count)
}
