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

const disciplineColumns = `id, name, location, professor, image_ref`

const listDisciplinesSQL = `
SELECT ` + disciplineColumns + `
FROM disciplines
ORDER BY name COLLATE NOCASE ASC, id ASC
`

const scheduleOrder = `
CASE day_of_week
    WHEN 'MONDAY' THEN 1
    WHEN 'TUESDAY' THEN 2
    WHEN 'WEDNESDAY' THEN 3
    WHEN 'THURSDAY' THEN 4
    WHEN 'FRIDAY' THEN 5
    WHEN 'SATURDAY' THEN 6
    ELSE 7
END, start_time ASC, id ASC`

// InsertDiscipline persists a new discipline and returns its id.
func (s *Store) InsertDiscipline(ctx context.Context, discipline storage.Discipline) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	normalized, err := normalizeDiscipline(discipline)
	if err != nil {
		return 0, err
	}
	id, err := insertDisciplineExec(ctx, s.sqlDB, normalized)
	if err != nil {
		return 0, err
	}
	s.publish(storage.TableDisciplines)
	return id, nil
}

// InsertSchedules bulk-inserts schedules in one transaction.
func (s *Store) InsertSchedules(ctx context.Context, schedules []storage.Schedule) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if len(schedules) == 0 {
		return nil
	}
	normalized := make([]storage.Schedule, 0, len(schedules))
	for _, schedule := range schedules {
		value, err := normalizeSchedule(schedule)
		if err != nil {
			return err
		}
		if value.DisciplineID <= 0 {
			return apperrors.New(apperrors.CodeValidationRejected, "schedule discipline id is required")
		}
		normalized = append(normalized, value)
	}
	return s.withTx(ctx, "schedule insert", func(tx *sql.Tx) error {
		for _, schedule := range normalized {
			if err := insertScheduleExec(ctx, tx, schedule); err != nil {
				return err
			}
		}
		return nil
	}, storage.TableSchedules)
}

// InsertDisciplineWithSchedules inserts a discipline and its schedules
// atomically; every schedule is stamped with the new discipline id.
func (s *Store) InsertDisciplineWithSchedules(ctx context.Context, discipline storage.Discipline, schedules []storage.Schedule) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	normalized, err := normalizeDiscipline(discipline)
	if err != nil {
		return 0, err
	}
	normalizedSchedules := make([]storage.Schedule, 0, len(schedules))
	for _, schedule := range schedules {
		value, err := normalizeSchedule(schedule)
		if err != nil {
			return 0, err
		}
		normalizedSchedules = append(normalizedSchedules, value)
	}

	var id int64
	err = s.withTx(ctx, "discipline bootstrap write", func(tx *sql.Tx) error {
		var err error
		id, err = insertDisciplineExec(ctx, tx, normalized)
		if err != nil {
			return err
		}
		for _, schedule := range normalizedSchedules {
			schedule.DisciplineID = id
			if err := insertScheduleExec(ctx, tx, schedule); err != nil {
				return err
			}
		}
		return nil
	}, storage.TableDisciplines, storage.TableSchedules)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateDiscipline replaces every column of an existing discipline.
func (s *Store) UpdateDiscipline(ctx context.Context, discipline storage.Discipline) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if discipline.ID <= 0 {
		return storage.ErrNotFound
	}
	normalized, err := normalizeDiscipline(discipline)
	if err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE disciplines
SET name = ?, location = ?, professor = ?, image_ref = ?
WHERE id = ?
`, normalized.Name, nullString(normalized.Location), nullString(normalized.Professor), nullString(normalized.ImageRef), normalized.ID)
	if err != nil {
		return translateWriteErr("update discipline", err)
	}
	if err := requireAffected(result, "update discipline"); err != nil {
		return err
	}
	s.publish(storage.TableDisciplines)
	return nil
}

// DeleteDiscipline removes a discipline by id. Its schedules and links are
// deleted and its tasks unassigned by foreign-key actions. Deleting a
// missing discipline is a no-op.
func (s *Store) DeleteDiscipline(ctx context.Context, discipline storage.Discipline) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM disciplines WHERE id = ?`, discipline.ID)
	if err != nil {
		return translateWriteErr("delete discipline", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return nil
	}
	s.publish(storage.TableDisciplines, storage.TableSchedules, storage.TableTasks, storage.TableMaterialLinks)
	return nil
}

// ListDisciplines returns every discipline ordered by name.
func (s *Store) ListDisciplines(ctx context.Context) ([]storage.Discipline, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return listDisciplines(ctx, s.sqlDB)
}

// GetDisciplineWithSchedules loads one discipline joined with its schedules.
func (s *Store) GetDisciplineWithSchedules(ctx context.Context, id int64) (storage.DisciplineWithSchedules, error) {
	if err := s.ready(ctx); err != nil {
		return storage.DisciplineWithSchedules{}, err
	}
	var out storage.DisciplineWithSchedules
	err := s.readTx(ctx, func(q queryer) error {
		row := q.QueryRowContext(ctx, `SELECT `+disciplineColumns+` FROM disciplines WHERE id = ?`, id)
		discipline, err := scanDiscipline(row.Scan)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return storage.ErrNotFound
			}
			return fmt.Errorf("get discipline: %w", err)
		}
		schedules, err := listSchedules(ctx, q, `WHERE discipline_id = ?`, id)
		if err != nil {
			return err
		}
		out = storage.DisciplineWithSchedules{Discipline: discipline, Schedules: schedules}
		return nil
	})
	if err != nil {
		return storage.DisciplineWithSchedules{}, err
	}
	return out, nil
}

// ListDisciplinesWithSchedules returns every discipline with its schedules,
// in discipline list order.
func (s *Store) ListDisciplinesWithSchedules(ctx context.Context) ([]storage.DisciplineWithSchedules, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	var out []storage.DisciplineWithSchedules
	err := s.readTx(ctx, func(q queryer) error {
		disciplines, err := listDisciplines(ctx, q)
		if err != nil {
			return err
		}
		schedules, err := listSchedules(ctx, q, "")
		if err != nil {
			return err
		}
		byDiscipline := make(map[int64][]storage.Schedule, len(disciplines))
		for _, schedule := range schedules {
			byDiscipline[schedule.DisciplineID] = append(byDiscipline[schedule.DisciplineID], schedule)
		}
		out = make([]storage.DisciplineWithSchedules, 0, len(disciplines))
		for _, discipline := range disciplines {
			joined := byDiscipline[discipline.ID]
			if joined == nil {
				joined = []storage.Schedule{}
			}
			out = append(out, storage.DisciplineWithSchedules{Discipline: discipline, Schedules: joined})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func insertDisciplineExec(ctx context.Context, exec execer, discipline storage.Discipline) (int64, error) {
	result, err := exec.ExecContext(ctx, `
INSERT INTO disciplines (name, location, professor, image_ref)
VALUES (?, ?, ?, ?)
`, discipline.Name, nullString(discipline.Location), nullString(discipline.Professor), nullString(discipline.ImageRef))
	if err != nil {
		return 0, translateWriteErr("insert discipline", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert discipline id: %w", err)
	}
	return id, nil
}

func insertScheduleExec(ctx context.Context, exec execer, schedule storage.Schedule) error {
	_, err := exec.ExecContext(ctx, `
INSERT INTO schedules (discipline_id, day_of_week, start_time, end_time)
VALUES (?, ?, ?, ?)
`, schedule.DisciplineID, string(schedule.DayOfWeek), schedule.StartTime, schedule.EndTime)
	if err != nil {
		return translateWriteErr("insert schedule", err)
	}
	return nil
}

func listDisciplines(ctx context.Context, q queryer) ([]storage.Discipline, error) {
	rows, err := q.QueryContext(ctx, listDisciplinesSQL)
	if err != nil {
		return nil, fmt.Errorf("list disciplines: %w", err)
	}
	defer rows.Close()

	disciplines := []storage.Discipline{}
	for rows.Next() {
		discipline, err := scanDiscipline(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan discipline: %w", err)
		}
		disciplines = append(disciplines, discipline)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate disciplines: %w", err)
	}
	return disciplines, nil
}

func listSchedules(ctx context.Context, q queryer, where string, args ...any) ([]storage.Schedule, error) {
	rows, err := q.QueryContext(ctx, `
SELECT id, discipline_id, day_of_week, start_time, end_time
FROM schedules
`+where+`
ORDER BY discipline_id ASC, `+scheduleOrder, args...)
	if err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	defer rows.Close()

	schedules := []storage.Schedule{}
	for rows.Next() {
		var schedule storage.Schedule
		var day string
		if err := rows.Scan(&schedule.ID, &schedule.DisciplineID, &day, &schedule.StartTime, &schedule.EndTime); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		schedule.DayOfWeek = storage.Weekday(day)
		schedules = append(schedules, schedule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedules: %w", err)
	}
	return schedules, nil
}

func scanDiscipline(scan func(dest ...any) error) (storage.Discipline, error) {
	var (
		discipline storage.Discipline
		location   sql.NullString
		professor  sql.NullString
		imageRef   sql.NullString
	)
	if err := scan(&discipline.ID, &discipline.Name, &location, &professor, &imageRef); err != nil {
		return storage.Discipline{}, err
	}
	discipline.Location = location.String
	discipline.Professor = professor.String
	discipline.ImageRef = imageRef.String
	return discipline, nil
}

func normalizeDiscipline(discipline storage.Discipline) (storage.Discipline, error) {
	discipline.Name = strings.TrimSpace(discipline.Name)
	discipline.Location = strings.TrimSpace(discipline.Location)
	discipline.Professor = strings.TrimSpace(discipline.Professor)
	discipline.ImageRef = strings.TrimSpace(discipline.ImageRef)
	if discipline.Name == "" {
		return storage.Discipline{}, apperrors.New(apperrors.CodeValidationRejected, "discipline name is required")
	}
	return discipline, nil
}

func normalizeSchedule(schedule storage.Schedule) (storage.Schedule, error) {
	schedule.DayOfWeek = storage.Weekday(strings.ToUpper(strings.TrimSpace(string(schedule.DayOfWeek))))
	if !schedule.DayOfWeek.Valid() {
		return storage.Schedule{}, apperrors.New(apperrors.CodeValidationRejected, fmt.Sprintf("invalid day of week %q", schedule.DayOfWeek))
	}
	var err error
	if schedule.StartTime, err = normalizeClock(schedule.StartTime); err != nil {
		return storage.Schedule{}, apperrors.Wrap(apperrors.CodeValidationRejected, "invalid schedule start time", err)
	}
	if schedule.EndTime, err = normalizeClock(schedule.EndTime); err != nil {
		return storage.Schedule{}, apperrors.Wrap(apperrors.CodeValidationRejected, "invalid schedule end time", err)
	}
	return schedule, nil
}

// normalizeClock accepts H:MM or HH:MM and returns HH:MM.
func normalizeClock(value string) (string, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return "", err
	}
	return parsed.Format(storage.TimeLayout), nil
}
