package repository

import (
	"context"

	"estate_crm/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UnitTypeRepository struct {
	db *pgxpool.Pool
}

func NewUnitTypeRepository(db *pgxpool.Pool) *UnitTypeRepository {
	return &UnitTypeRepository{db: db}
}

const selectUnitType = "SELECT id, name, name_ar, created_at FROM unit_types"

func scanUnitType(row pgx.Row) (*entities.UnitType, error) {
	var t entities.UnitType
	if err := row.Scan(&t.ID, &t.Name, &t.NameAr, &t.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &t, nil
}

func (r *UnitTypeRepository) Create(ctx context.Context, t *entities.UnitType) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO unit_types (name, name_ar) VALUES ($1, $2)
		RETURNING id, created_at`, t.Name, t.NameAr).Scan(&t.ID, &t.CreatedAt)
	return mapError(err)
}

func (r *UnitTypeRepository) GetByID(ctx context.Context, id int) (*entities.UnitType, error) {
	return scanUnitType(r.db.QueryRow(ctx, selectUnitType+" WHERE id = $1", id))
}

func (r *UnitTypeRepository) List(ctx context.Context) ([]entities.UnitType, error) {
	rows, err := r.db.Query(ctx, selectUnitType+" ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := []entities.UnitType{}
	for rows.Next() {
		t, err := scanUnitType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, *t)
	}
	return types, rows.Err()
}

// FindMentioned returns the unit type whose name appears in text. English
// names match as whole words, plurals included ("villas"); Arabic names match
// anywhere, as in AreaRepository.FindMentioned.
func (r *UnitTypeRepository) FindMentioned(ctx context.Context, text string) (*entities.UnitType, error) {
	return scanUnitType(r.db.QueryRow(ctx, selectUnitType+`
		WHERE lower($1) ~ (`+wordPattern("name", "(e?s)?")+`)
			OR (name_ar <> '' AND strpos($1, name_ar) > 0)
		ORDER BY greatest(length(name), length(name_ar)) DESC, id
		LIMIT 1`, text))
}
