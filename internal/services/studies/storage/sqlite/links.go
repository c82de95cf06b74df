package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	apperrors "github.com/louisbranch/studies/internal/platform/errors"
	"github.com/louisbranch/studies/internal/services/studies/storage"
)

// InsertMaterialLink persists a new link and returns its id.
func (s *Store) InsertMaterialLink(ctx context.Context, link storage.MaterialLink) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	normalized, err := normalizeMaterialLink(link)
	if err != nil {
		return 0, err
	}
	result, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO material_links (discipline_id, url, description)
VALUES (?, ?, ?)
`, normalized.DisciplineID, normalized.URL, nullString(normalized.Description))
	if err != nil {
		return 0, translateWriteErr("insert material link", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert material link id: %w", err)
	}
	s.publish(storage.TableMaterialLinks)
	return id, nil
}

// UpdateMaterialLink replaces every column of an existing link.
func (s *Store) UpdateMaterialLink(ctx context.Context, link storage.MaterialLink) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if link.ID <= 0 {
		return storage.ErrNotFound
	}
	normalized, err := normalizeMaterialLink(link)
	if err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `
UPDATE material_links
SET discipline_id = ?, url = ?, description = ?
WHERE id = ?
`, normalized.DisciplineID, normalized.URL, nullString(normalized.Description), normalized.ID)
	if err != nil {
		return translateWriteErr("update material link", err)
	}
	if err := requireAffected(result, "update material link"); err != nil {
		return err
	}
	s.publish(storage.TableMaterialLinks)
	return nil
}

// DeleteMaterialLink removes a link by id. Deleting a missing link is a no-op.
func (s *Store) DeleteMaterialLink(ctx context.Context, link storage.MaterialLink) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	result, err := s.sqlDB.ExecContext(ctx, `DELETE FROM material_links WHERE id = ?`, link.ID)
	if err != nil {
		return translateWriteErr("delete material link", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return nil
	}
	s.publish(storage.TableMaterialLinks)
	return nil
}

// GetMaterialLink loads one link by id.
func (s *Store) GetMaterialLink(ctx context.Context, id int64) (storage.MaterialLink, error) {
	if err := s.ready(ctx); err != nil {
		return storage.MaterialLink{}, err
	}
	row := s.sqlDB.QueryRowContext(ctx, `
SELECT id, discipline_id, url, description FROM material_links WHERE id = ?
`, id)
	link, err := scanMaterialLink(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.MaterialLink{}, storage.ErrNotFound
		}
		return storage.MaterialLink{}, fmt.Errorf("get material link: %w", err)
	}
	return link, nil
}

// ListMaterialLinksByDiscipline returns the links of one discipline in
// creation order.
func (s *Store) ListMaterialLinksByDiscipline(ctx context.Context, disciplineID int64) ([]storage.MaterialLink, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, discipline_id, url, description
FROM material_links
WHERE discipline_id = ?
ORDER BY id ASC
`, disciplineID)
	if err != nil {
		return nil, fmt.Errorf("list material links: %w", err)
	}
	defer rows.Close()

	links := []storage.MaterialLink{}
	for rows.Next() {
		link, err := scanMaterialLink(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan material link: %w", err)
		}
		links = append(links, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate material links: %w", err)
	}
	return links, nil
}

func scanMaterialLink(scan func(dest ...any) error) (storage.MaterialLink, error) {
	var (
		link        storage.MaterialLink
		description sql.NullString
	)
	if err := scan(&link.ID, &link.DisciplineID, &link.URL, &description); err != nil {
		return storage.MaterialLink{}, err
	}
	link.Description = description.String
	return link, nil
}

func normalizeMaterialLink(link storage.MaterialLink) (storage.MaterialLink, error) {
	link.URL = strings.TrimSpace(link.URL)
	link.Description = strings.TrimSpace(link.Description)
	if link.URL == "" {
		return storage.MaterialLink{}, apperrors.New(apperrors.CodeValidationRejected, "material link url is required")
	}
	if link.DisciplineID <= 0 {
		return storage.MaterialLink{}, apperrors.New(apperrors.CodeValidationRejected, "material link discipline id is required")
	}
	return link, nil
}
