package repository

import (
	"context"

	"estate_crm/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AreaRepository struct {
	db *pgxpool.Pool
}

func NewAreaRepository(db *pgxpool.Pool) *AreaRepository {
	return &AreaRepository{db: db}
}

const selectArea = "SELECT id, name, name_ar, description, is_active, created_at, updated_at FROM areas"

func scanArea(row pgx.Row) (*entities.Area, error) {
	var a entities.Area
	if err := row.Scan(&a.ID, &a.Name, &a.NameAr, &a.Description, &a.IsActive, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, mapError(err)
	}
	return &a, nil
}

func (r *AreaRepository) Create(ctx context.Context, a *entities.Area) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO areas (name, name_ar, description, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		a.Name, a.NameAr, a.Description, a.IsActive,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	return mapError(err)
}

func (r *AreaRepository) Update(ctx context.Context, a *entities.Area) error {
	err := r.db.QueryRow(ctx, `
		UPDATE areas SET name = $1, name_ar = $2, description = $3, is_active = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING created_at, updated_at`,
		a.Name, a.NameAr, a.Description, a.IsActive, a.ID,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	return mapError(err)
}

// Delete deactivates the area; requests and units keep referencing it
func (r *AreaRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.db.Exec(ctx, "UPDATE areas SET is_active = FALSE, updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound
	}
	return nil
}

func (r *AreaRepository) GetByID(ctx context.Context, id int) (*entities.Area, error) {
	return scanArea(r.db.QueryRow(ctx, selectArea+" WHERE id = $1", id))
}

func (r *AreaRepository) List(ctx context.Context, activeOnly bool) ([]entities.Area, error) {
	rows, err := r.db.Query(ctx, selectArea+" WHERE ($1 = FALSE OR is_active) ORDER BY name", activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	areas := []entities.Area{}
	for rows.Next() {
		a, err := scanArea(rows)
		if err != nil {
			return nil, err
		}
		areas = append(areas, *a)
	}
	return areas, rows.Err()
}

// FindMentioned returns the active area whose English name appears in text as
// whole words, or whose Arabic name appears anywhere in it, preferring the
// longest name. Arabic prepositions and the article attach to the word, so
// Arabic names have no boundary check.
func (r *AreaRepository) FindMentioned(ctx context.Context, text string) (*entities.Area, error) {
	return scanArea(r.db.QueryRow(ctx, selectArea+`
		WHERE is_active AND (
			lower($1) ~ (`+wordPattern("name", "")+`)
			OR (name_ar <> '' AND strpos($1, name_ar) > 0)
		)
		ORDER BY greatest(length(name), length(name_ar)) DESC, id
		LIMIT 1`, text))
}
