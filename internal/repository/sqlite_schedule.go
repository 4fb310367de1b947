package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/alexanderramin/cronograma/internal/db"
	"github.com/alexanderramin/cronograma/internal/domain"
)

const scheduleColumns = `id, project_id, name, state,
		approved_by_reviewer1, approved_by_reviewer2,
		reviewer1_comment, reviewer2_comment, rejection_comment,
		submitted_at, decided_at, version, created_at, updated_at`

// SQLiteScheduleRepo implements ScheduleRepo using a SQLite database.
type SQLiteScheduleRepo struct {
	db db.DBTX
}

// NewSQLiteScheduleRepo creates a new SQLiteScheduleRepo.
func NewSQLiteScheduleRepo(conn db.DBTX) *SQLiteScheduleRepo {
	return &SQLiteScheduleRepo{db: conn}
}

func (r *SQLiteScheduleRepo) Create(ctx context.Context, s *domain.Schedule) error {
	query := `INSERT INTO schedules (` + scheduleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.ProjectID,
		s.Name,
		string(s.State),
		boolToInt(s.ApprovedByReviewer1),
		boolToInt(s.ApprovedByReviewer2),
		s.Reviewer1Comment,
		s.Reviewer2Comment,
		s.RejectionComment,
		nullableTimeToString(s.SubmittedAt),
		nullableTimeToString(s.DecidedAt),
		s.Version,
		formatTimestamp(s.CreatedAt),
		formatTimestamp(s.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting schedule: %w", err)
	}
	return nil
}

func (r *SQLiteScheduleRepo) GetByID(ctx context.Context, id string) (*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = ?`
	s, err := scanSchedule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("schedule %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	return s, nil
}

func (r *SQLiteScheduleRepo) List(ctx context.Context) ([]*domain.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules ORDER BY created_at, id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing schedules: %w", err)
	}
	defer rows.Close()

	var schedules []*domain.Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		schedules = append(schedules, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating schedules: %w", err)
	}
	return schedules, nil
}

func (r *SQLiteScheduleRepo) Update(ctx context.Context, s *domain.Schedule, prevVersion int) error {
	query := `UPDATE schedules SET project_id = ?, name = ?, state = ?,
		approved_by_reviewer1 = ?, approved_by_reviewer2 = ?,
		reviewer1_comment = ?, reviewer2_comment = ?, rejection_comment = ?,
		submitted_at = ?, decided_at = ?, version = ?, updated_at = ?
		WHERE id = ? AND version = ?`
	res, err := r.db.ExecContext(ctx, query,
		s.ProjectID,
		s.Name,
		string(s.State),
		boolToInt(s.ApprovedByReviewer1),
		boolToInt(s.ApprovedByReviewer2),
		s.Reviewer1Comment,
		s.Reviewer2Comment,
		s.RejectionComment,
		nullableTimeToString(s.SubmittedAt),
		nullableTimeToString(s.DecidedAt),
		s.Version,
		formatTimestamp(s.UpdatedAt),
		s.ID,
		prevVersion,
	)
	if err != nil {
		return fmt.Errorf("updating schedule: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating schedule: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("schedule %s at version %d: %w", s.ID, prevVersion, ErrStaleVersion)
	}
	return nil
}

func (r *SQLiteScheduleRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting schedule: %w", err)
	}
	return nil
}

func scanSchedule(row scanner) (*domain.Schedule, error) {
	var s domain.Schedule
	var state, createdAt, updatedAt string
	var approved1, approved2 int
	var submittedAt, decidedAt sql.NullString

	err := row.Scan(
		&s.ID, &s.ProjectID, &s.Name, &state,
		&approved1, &approved2,
		&s.Reviewer1Comment, &s.Reviewer2Comment, &s.RejectionComment,
		&submittedAt, &decidedAt, &s.Version, &createdAt, &updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("scanning schedule: %w", err)
	}

	s.State = domain.WorkflowState(state)
	s.ApprovedByReviewer1 = intToBool(approved1)
	s.ApprovedByReviewer2 = intToBool(approved2)
	s.SubmittedAt = parseNullableTime(submittedAt)
	s.DecidedAt = parseNullableTime(decidedAt)
	if s.CreatedAt, err = parseTimestamp(createdAt, "created_at"); err != nil {
		return nil, err
	}
	if s.UpdatedAt, err = parseTimestamp(updatedAt, "updated_at"); err != nil {
		return nil, err
	}
	return &s, nil
}
