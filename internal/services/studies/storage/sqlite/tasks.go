package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/louisbranch/studies/internal/platform/errors"
	"github.com/louisbranch/studies/internal/services/studies/storage"
)

const taskColumns = `id, discipline_id, name, description, due_date, due_time, is_completed`

// Undated tasks sort after dated ones; within a date, untimed after timed.
const taskOrder = `
ORDER BY due_date IS NULL, due_date ASC, due_time IS NULL, due_time ASC, id ASC`

// InsertTask persists a new task and returns its id.
func (s *Store) InsertTask(ctx context.Context, task storage.Task) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	normalized, err := normalizeTask(task)
	if err != nil {
		return 0, err
	}
	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO tasks (discipline_id, name, description, due_date, due_time, is_completed)
VALUES (?, ?, ?, ?, ?, ?)
`, nullID(normalized.DisciplineID), normalized.Name, nullString(normalized.Description),
		nullString(normalized.DueDate), nullString(normalized.DueTime), boolToInt(normalized.IsCompleted))
	if err != nil {
		return 0, translateWriteErr("insert task", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert task id: %w", err)
	}
	s.publish(storage.TableTasks)
	return id, nil
}

// UpdateTask replaces every column of an existing task.
func (s *Store) UpdateTask(ctx context.Context, task storage.Task) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if task.ID <= 0 {
		return storage.ErrNotFound
	}
	normalized, err := normalizeTask(task)
	if err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE tasks
SET discipline_id = ?, name = ?, description = ?, due_date = ?, due_time = ?, is_completed = ?
WHERE id = ?
`, nullID(normalized.DisciplineID), normalized.Name, nullString(normalized.Description),
		nullString(normalized.DueDate), nullString(normalized.DueTime), boolToInt(normalized.IsCompleted), normalized.ID)
	if err != nil {
		return translateWriteErr("update task", err)
	}
	if err := requireAffected(result, "update task"); err != nil {
		return err
	}
	s.publish(storage.TableTasks)
	return nil
}

// DeleteTask removes a task by id. Deleting a missing task is a no-op.
func (s *Store) DeleteTask(ctx context.Context, task storage.Task) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, task.ID)
	if err != nil {
		return translateWriteErr("delete task", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return nil
	}
	s.publish(storage.TableTasks)
	return nil
}

// GetTask loads one task by id.
func (s *Store) GetTask(ctx context.Context, id int64) (storage.Task, error) {
	if err := s.ready(ctx); err != nil {
		return storage.Task{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Task{}, storage.ErrNotFound
		}
		return storage.Task{}, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// ListTasks returns every task in due order.
func (s *Store) ListTasks(ctx context.Context) ([]storage.Task, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.listTasks(ctx, "")
}

// ListTasksByDiscipline returns the tasks of one discipline in due order.
func (s *Store) ListTasksByDiscipline(ctx context.Context, disciplineID int64) ([]storage.Task, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.listTasks(ctx, `WHERE discipline_id = ?`, disciplineID)
}

// ListPendingTasks returns incomplete tasks in due order.
func (s *Store) ListPendingTasks(ctx context.Context) ([]storage.Task, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.listTasks(ctx, `WHERE is_completed = 0`)
}

func (s *Store) listTasks(ctx context.Context, where string, args ...any) ([]storage.Task, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks `+where+taskOrder, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	tasks := []storage.Task{}
	for rows.Next() {
		task, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

func scanTask(scan func(dest ...any) error) (storage.Task, error) {
	var (
		task         storage.Task
		disciplineID sql.NullInt64
		description  sql.NullString
		dueDate      sql.NullString
		dueTime      sql.NullString
		completed    int
	)
	if err := scan(&task.ID, &disciplineID, &task.Name, &description, &dueDate, &dueTime, &completed); err != nil {
		return storage.Task{}, err
	}
	task.DisciplineID = disciplineID.Int64
	task.Description = description.String
	task.DueDate = dueDate.String
	task.DueTime = dueTime.String
	task.IsCompleted = completed != 0
	return task, nil
}

func normalizeTask(task storage.Task) (storage.Task, error) {
	task.Name = strings.TrimSpace(task.Name)
	task.Description = strings.TrimSpace(task.Description)
	task.DueDate = strings.TrimSpace(task.DueDate)
	task.DueTime = strings.TrimSpace(task.DueTime)
	if task.Name == "" {
		return storage.Task{}, apperrors.New(apperrors.CodeValidationRejected, "task name is required")
	}
	if task.DisciplineID < 0 {
		task.DisciplineID = 0
	}
	if task.DueDate != "" {
		if _, err := time.Parse(storage.DateLayout, task.DueDate); err != nil {
			return storage.Task{}, apperrors.Wrap(apperrors.CodeValidationRejected, "invalid task due date", err)
		}
	}
	if task.DueTime != "" {
		clock, err := normalizeClock(task.DueTime)
		if err != nil {
			return storage.Task{}, apperrors.Wrap(apperrors.CodeValidationRejected, "invalid task due time", err)
		}
		task.DueTime = clock
	}
	return task, nil
}
