package db

import (
	"database/sql"
	"fmt"
)

// Migrate runs all schema migrations. Every statement is idempotent, so
// it is safe to run on each open.
func Migrate(db *sql.DB) error {
	for i, stmt := range migrations {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS schedules (
		id                    TEXT PRIMARY KEY,
		project_id            TEXT NOT NULL DEFAULT '',
		name                  TEXT NOT NULL,
		state                 TEXT NOT NULL DEFAULT 'draft'
		                      CHECK(state IN ('draft','in_review','approved','rejected')),
		approved_by_reviewer1 INTEGER NOT NULL DEFAULT 0,
		approved_by_reviewer2 INTEGER NOT NULL DEFAULT 0,
		reviewer1_comment     TEXT NOT NULL DEFAULT '',
		reviewer2_comment     TEXT NOT NULL DEFAULT '',
		rejection_comment     TEXT NOT NULL DEFAULT '',
		submitted_at          TEXT,
		decided_at            TEXT,
		version               INTEGER NOT NULL DEFAULT 0,
		created_at            TEXT NOT NULL,
		updated_at            TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_schedules_project ON schedules(project_id)`,

	`CREATE TABLE IF NOT EXISTS tasks (
		id            TEXT PRIMARY KEY,
		schedule_id   TEXT NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
		code          TEXT NOT NULL DEFAULT '',
		name          TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		start_date    TEXT NOT NULL,
		end_date      TEXT NOT NULL,
		progress      INTEGER NOT NULL DEFAULT 0 CHECK(progress BETWEEN 0 AND 100),
		kind          TEXT NOT NULL DEFAULT 'task'
		              CHECK(kind IN ('task','milestone','group')),
		phase         TEXT NOT NULL DEFAULT '',
		assignee_id   TEXT NOT NULL DEFAULT '',
		color         TEXT NOT NULL DEFAULT '',
		display_order INTEGER NOT NULL DEFAULT 0,
		parent_id     TEXT,
		status        TEXT NOT NULL DEFAULT 'not_started'
		              CHECK(status IN ('not_started','in_progress','done','on_hold','cancelled')),
		critical      INTEGER NOT NULL DEFAULT 0,
		seq           INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL,
		updated_at    TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_schedule ON tasks(schedule_id)`,
	`CREATE INDEX IF NOT EXISTS idx_tasks_parent ON tasks(parent_id)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_tasks_code ON tasks(schedule_id, code COLLATE NOCASE) WHERE code <> ''`,

	`CREATE TABLE IF NOT EXISTS dependencies (
		id                  TEXT PRIMARY KEY,
		schedule_id         TEXT NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
		origin_task_id      TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		destination_task_id TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
		type                TEXT NOT NULL DEFAULT 'FS' CHECK(type IN ('FS','FF','SS','SF')),
		lag_days            INTEGER NOT NULL DEFAULT 0,
		created_at          TEXT NOT NULL,
		CHECK(origin_task_id <> destination_task_id),
		UNIQUE(origin_task_id, destination_task_id, type)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_dependencies_schedule ON dependencies(schedule_id)`,
	`CREATE INDEX IF NOT EXISTS idx_dependencies_destination ON dependencies(destination_task_id)`,

	`CREATE TABLE IF NOT EXISTS schedule_events (
		id          TEXT PRIMARY KEY,
		schedule_id TEXT NOT NULL REFERENCES schedules(id) ON DELETE CASCADE,
		seq         INTEGER NOT NULL,
		action      TEXT NOT NULL CHECK(action IN ('submit','approve','reject','reopen')),
		role        TEXT NOT NULL,
		comment     TEXT NOT NULL DEFAULT '',
		from_state  TEXT NOT NULL,
		to_state    TEXT NOT NULL,
		at          TEXT NOT NULL,
		UNIQUE(schedule_id, seq)
	)`,
}
