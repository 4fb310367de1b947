package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/cronograma/internal/db"
	"github.com/alexanderramin/cronograma/internal/domain"
)

// taskColumns is the canonical SELECT column list for tasks.
const taskColumns = `id, schedule_id, seq, code, name, description,
		start_date, end_date, progress, kind, phase, assignee_id, color,
		display_order, parent_id, status, critical, created_at, updated_at`

// SQLiteTaskRepo implements TaskRepo using a SQLite database.
type SQLiteTaskRepo struct {
	db db.DBTX
}

// NewSQLiteTaskRepo creates a new SQLiteTaskRepo.
func NewSQLiteTaskRepo(conn db.DBTX) *SQLiteTaskRepo {
	return &SQLiteTaskRepo{db: conn}
}

func (r *SQLiteTaskRepo) Create(ctx context.Context, t *domain.Task) error {
	query := `INSERT INTO tasks (` + taskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.ScheduleID,
		t.Seq,
		t.Code,
		t.Name,
		t.Description,
		domain.FormatDate(t.Start),
		domain.FormatDate(t.End),
		t.Progress,
		string(t.Kind),
		t.Phase,
		t.AssigneeID,
		t.Color,
		t.DisplayOrder,
		t.ParentID, // *string: nil becomes SQL NULL
		string(t.Status),
		boolToInt(t.Critical),
		formatTimestamp(t.CreatedAt),
		formatTimestamp(t.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting task: %w", err)
	}
	return nil
}

func (r *SQLiteTaskRepo) GetByID(ctx context.Context, id string) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`
	t, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("task %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return t, nil
}

// ListBySchedule returns the tasks of a schedule in insertion order.
func (r *SQLiteTaskRepo) ListBySchedule(ctx context.Context, scheduleID string) ([]*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE schedule_id = ? ORDER BY seq, id`
	rows, err := r.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks by schedule: %w", err)
	}
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating tasks: %w", err)
	}
	return tasks, nil
}

func (r *SQLiteTaskRepo) Update(ctx context.Context, t *domain.Task) error {
	query := `UPDATE tasks SET code = ?, name = ?, description = ?,
		start_date = ?, end_date = ?, progress = ?, kind = ?, phase = ?,
		assignee_id = ?, color = ?, display_order = ?, parent_id = ?,
		status = ?, critical = ?, updated_at = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query,
		t.Code,
		t.Name,
		t.Description,
		domain.FormatDate(t.Start),
		domain.FormatDate(t.End),
		t.Progress,
		string(t.Kind),
		t.Phase,
		t.AssigneeID,
		t.Color,
		t.DisplayOrder,
		t.ParentID,
		string(t.Status),
		boolToInt(t.Critical),
		formatTimestamp(t.UpdatedAt),
		t.ID,
	)
	if err != nil {
		return fmt.Errorf("updating task: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("task %s: %w", t.ID, ErrNotFound)
	}
	return nil
}

func (r *SQLiteTaskRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting task: %w", err)
	}
	return nil
}

func scanTask(row scanner) (*domain.Task, error) {
	var t domain.Task
	var start, end, kind, status, createdAt, updatedAt string
	var parentID sql.NullString
	var critical int

	err := row.Scan(
		&t.ID, &t.ScheduleID, &t.Seq, &t.Code, &t.Name, &t.Description,
		&start, &end, &t.Progress, &kind, &t.Phase, &t.AssigneeID, &t.Color,
		&t.DisplayOrder, &parentID, &status, &critical, &createdAt, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning task: %w", err)
	}

	t.Kind = domain.TaskKind(kind)
	t.Status = domain.TaskStatus(status)
	t.Critical = intToBool(critical)
	if parentID.Valid {
		p := parentID.String
		t.ParentID = &p
	}
	if t.Start, err = parseDate(start, "start_date"); err != nil {
		return nil, err
	}
	if t.End, err = parseDate(end, "end_date"); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = parseTimestamp(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if t.UpdatedAt, err = parseTimestamp(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &t, nil
}
