package repository

import (
	"context"
	"fmt"

	"github.com/alexanderramin/cronograma/internal/db"
	"github.com/alexanderramin/cronograma/internal/domain"
)

// SQLiteEventRepo implements EventRepo over the schedule_events table.
type SQLiteEventRepo struct {
	db db.DBTX
}

// NewSQLiteEventRepo creates a new SQLiteEventRepo.
func NewSQLiteEventRepo(conn db.DBTX) *SQLiteEventRepo {
	return &SQLiteEventRepo{db: conn}
}

// Append allocates the next seq for the schedule and inserts e in one
// statement, so concurrent appends within a transaction cannot collide.
func (r *SQLiteEventRepo) Append(ctx context.Context, e *domain.ScheduleEvent) error {
	query := `INSERT INTO schedule_events (id, schedule_id, seq, action, role, comment, from_state, to_state, at)
		SELECT ?, ?, COALESCE(MAX(seq), 0) + 1, ?, ?, ?, ?, ?, ?
		FROM schedule_events WHERE schedule_id = ?
		RETURNING seq`
	err := r.db.QueryRowContext(ctx, query,
		e.ID,
		e.ScheduleID,
		string(e.Action),
		string(e.Role),
		e.Comment,
		string(e.FromState),
		string(e.ToState),
		formatTimestamp(e.At),
		e.ScheduleID,
	).Scan(&e.Seq)
	if err != nil {
		return fmt.Errorf("appending schedule event: %w", err)
	}
	return nil
}

// ListBySchedule returns the workflow history of a schedule, oldest first.
func (r *SQLiteEventRepo) ListBySchedule(ctx context.Context, scheduleID string) ([]domain.ScheduleEvent, error) {
	query := `SELECT id, schedule_id, seq, action, role, comment, from_state, to_state, at
		FROM schedule_events WHERE schedule_id = ? ORDER BY seq`
	rows, err := r.db.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, fmt.Errorf("listing schedule events: %w", err)
	}
	defer rows.Close()

	var events []domain.ScheduleEvent
	for rows.Next() {
		var e domain.ScheduleEvent
		var action, role, from, to, at string
		if err := rows.Scan(&e.ID, &e.ScheduleID, &e.Seq, &action, &role, &e.Comment, &from, &to, &at); err != nil {
			return nil, fmt.Errorf("scanning schedule event: %w", err)
		}
		e.Action = domain.WorkflowAction(action)
		e.Role = domain.Role(role)
		e.FromState = domain.WorkflowState(from)
		e.ToState = domain.WorkflowState(to)
		if e.At, err = parseTimestamp(at, "at"); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schedule events: %w", err)
	}
	return events, nil
}
