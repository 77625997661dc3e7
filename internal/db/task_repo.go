package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ErrTaskNotFound is returned when an id does not exist for the owner.
// Cross-owner lookups are indistinguishable from missing rows.
var ErrTaskNotFound = fmt.Errorf("task not found")

type TaskRepo struct {
	db *sql.DB
}

func NewTaskRepo(db *sql.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

func (r *TaskRepo) Create(ctx context.Context, task *Task) error {
	if task.CreatedAt.IsZero() {
		task.CreatedAt = nowUTC()
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = task.CreatedAt
	}
	if task.Status == "" {
		task.Status = StatusPending
	}

	res, err := r.db.ExecContext(ctx, `
INSERT INTO tasks (owner, title, description, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
`, task.Owner, task.Title, task.Description, task.Status, formatTimestamp(task.CreatedAt), formatTimestamp(task.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	task.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read created task id: %w", err)
	}

	return nil
}

func (r *TaskRepo) Get(ctx context.Context, owner string, id int64) (*Task, error) {
	var t Task
	var createdAtRaw, updatedAtRaw string

	err := r.db.QueryRowContext(ctx, `
SELECT id, owner, title, description, status, created_at, updated_at
FROM tasks
WHERE id = ? AND owner = ?
`, id, owner).Scan(&t.ID, &t.Owner, &t.Title, &t.Description, &t.Status, &createdAtRaw, &updatedAtRaw)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task %d: %w", id, err)
	}

	t.CreatedAt, err = parseTimestamp(createdAtRaw)
	if err != nil {
		return nil, err
	}
	t.UpdatedAt, err = parseTimestamp(updatedAtRaw)
	if err != nil {
		return nil, err
	}

	return &t, nil
}

func (r *TaskRepo) List(ctx context.Context, filter TaskFilter) ([]*Task, error) {
	query := `SELECT id, owner, title, description, status, created_at, updated_at FROM tasks`
	args := []any{}
	where := []string{}

	if filter.Owner != "" {
		where = append(where, "owner = ?")
		args = append(args, filter.Owner)
	}
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []*Task{}
	for rows.Next() {
		var t Task
		var createdAtRaw, updatedAtRaw string
		if err := rows.Scan(&t.ID, &t.Owner, &t.Title, &t.Description, &t.Status, &createdAtRaw, &updatedAtRaw); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		t.CreatedAt, err = parseTimestamp(createdAtRaw)
		if err != nil {
			return nil, err
		}
		t.UpdatedAt, err = parseTimestamp(updatedAtRaw)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, &t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed while iterating tasks: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepo) Update(ctx context.Context, task *Task) error {
	task.UpdatedAt = nowUTC()
	res, err := r.db.ExecContext(ctx, `
UPDATE tasks
SET title = ?, description = ?, status = ?, updated_at = ?
WHERE id = ? AND owner = ?
`, task.Title, task.Description, task.Status, formatTimestamp(task.UpdatedAt), task.ID, task.Owner)
	if err != nil {
		return fmt.Errorf("failed to update task %d: %w", task.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read updated rows for task %d: %w", task.ID, err)
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

func (r *TaskRepo) Delete(ctx context.Context, owner string, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND owner = ?`, id, owner)
	if err != nil {
		return fmt.Errorf("failed to delete task %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read deleted rows for task %d: %w", id, err)
	}
	if affected == 0 {
		return ErrTaskNotFound
	}
	return nil
}
