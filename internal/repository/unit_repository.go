package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"estate_crm/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UnitRepository struct {
	db *pgxpool.Pool
}

func NewUnitRepository(db *pgxpool.Pool) *UnitRepository {
	return &UnitRepository{db: db}
}

const selectUnit = `
	SELECT id, area_id, unit_type_id, title, price, bedrooms, bathrooms, size_sqm, status, created_at, updated_at
	FROM units`

func scanUnit(row pgx.Row) (*entities.Unit, error) {
	var u entities.Unit
	err := row.Scan(&u.ID, &u.AreaID, &u.UnitTypeID, &u.Title, &u.Price, &u.Bedrooms, &u.Bathrooms,
		&u.SizeSqm, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

func (r *UnitRepository) Create(ctx context.Context, u *entities.Unit) error {
	return insertUnit(ctx, r.db, u)
}

func insertUnit(ctx context.Context, db DBTX, u *entities.Unit) error {
	err := db.QueryRow(ctx, `
		INSERT INTO units (area_id, unit_type_id, title, price, bedrooms, bathrooms, size_sqm, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at`,
		u.AreaID, u.UnitTypeID, u.Title, u.Price, u.Bedrooms, u.Bathrooms, u.SizeSqm, u.Status,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return mapError(err)
}

func (r *UnitRepository) Update(ctx context.Context, u *entities.Unit) error {
	err := r.db.QueryRow(ctx, `
		UPDATE units SET area_id = $1, unit_type_id = $2, title = $3, price = $4, bedrooms = $5,
			bathrooms = $6, size_sqm = $7, status = $8, updated_at = NOW()
		WHERE id = $9
		RETURNING created_at, updated_at`,
		u.AreaID, u.UnitTypeID, u.Title, u.Price, u.Bedrooms, u.Bathrooms, u.SizeSqm, u.Status, u.ID,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	return mapError(err)
}

func (r *UnitRepository) GetByID(ctx context.Context, id int) (*entities.Unit, error) {
	return scanUnit(r.db.QueryRow(ctx, selectUnit+" WHERE id = $1", id))
}

func (r *UnitRepository) List(ctx context.Context, f entities.UnitFilter) ([]entities.Unit, error) {
	limit, offset := pageBounds(f.Limit, f.Offset)
	rows, err := r.db.Query(ctx, selectUnit+`
		WHERE ($1 = 0 OR area_id = $1)
			AND ($2 = 0 OR unit_type_id = $2)
			AND ($3 = '' OR status = $3)
			AND ($4 = 0 OR price >= $4)
			AND ($5 = 0 OR price <= $5)
			AND ($6 = 0 OR bedrooms = $6)
		ORDER BY id
		LIMIT $7 OFFSET $8`,
		f.AreaID, f.UnitTypeID, f.Status, f.MinPrice, f.MaxPrice, f.Bedrooms, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	units := []entities.Unit{}
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, *u)
	}
	return units, rows.Err()
}

// ImportCSV inserts every row of a unit sheet in one transaction; any bad row
// aborts the whole import. Columns are matched by header name: area (id or
// name), unit_type (id or name), title, price, bedrooms, bathrooms, size_sqm,
// status.
func (r *UnitRepository) ImportCSV(ctx context.Context, data io.Reader) (int, error) {
	reader := csv.NewReader(data)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read CSV: %v", entities.ErrInvalidInput, err)
	}
	if len(rows) < 2 {
		return 0, fmt.Errorf("%w: csv has no data rows", entities.ErrInvalidInput)
	}

	cols := make(map[string]int, len(rows[0]))
	for i, h := range rows[0] {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range []string{"area", "unit_type", "title"} {
		if _, ok := cols[required]; !ok {
			return 0, fmt.Errorf("%w: missing column %q", entities.ErrInvalidInput, required)
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	areaIDs, err := nameIndex(ctx, tx, "SELECT id, name FROM areas")
	if err != nil {
		return 0, err
	}
	typeIDs, err := nameIndex(ctx, tx, "SELECT id, name FROM unit_types")
	if err != nil {
		return 0, err
	}

	for i := 1; i < len(rows); i++ {
		u, err := parseUnitRow(rows[i], cols, areaIDs, typeIDs)
		if err != nil {
			return 0, fmt.Errorf("%w: row %d: %v", entities.ErrInvalidInput, i+1, err)
		}
		if err := insertUnit(ctx, tx, u); err != nil {
			return 0, fmt.Errorf("row %d insert failed: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit import: %w", err)
	}
	return len(rows) - 1, nil
}

// nameIndex maps lower-cased names and string ids to ids
func nameIndex(ctx context.Context, tx pgx.Tx, query string) (map[string]int, error) {
	rows, err := tx.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	idx := map[string]int{}
	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, err
		}
		idx[strings.ToLower(name)] = id
		idx[strconv.Itoa(id)] = id
	}
	return idx, rows.Err()
}

func parseUnitRow(row []string, cols map[string]int, areaIDs, typeIDs map[string]int) (*entities.Unit, error) {
	get := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	u := &entities.Unit{Title: get("title"), Status: entities.UnitAvailable}
	if u.Title == "" {
		return nil, fmt.Errorf("title is empty")
	}

	var ok bool
	if u.AreaID, ok = areaIDs[strings.ToLower(get("area"))]; !ok {
		return nil, fmt.Errorf("unknown area %q", get("area"))
	}
	if u.UnitTypeID, ok = typeIDs[strings.ToLower(get("unit_type"))]; !ok {
		return nil, fmt.Errorf("unknown unit type %q", get("unit_type"))
	}

	var err error
	if v := get("price"); v != "" {
		if u.Price, err = strconv.ParseFloat(v, 64); err != nil || u.Price < 0 {
			return nil, fmt.Errorf("bad price %q", v)
		}
	}
	if v := get("size_sqm"); v != "" {
		if u.SizeSqm, err = strconv.ParseFloat(v, 64); err != nil || u.SizeSqm < 0 {
			return nil, fmt.Errorf("bad size_sqm %q", v)
		}
	}
	if v := get("bedrooms"); v != "" {
		if u.Bedrooms, err = strconv.Atoi(v); err != nil || u.Bedrooms < 0 {
			return nil, fmt.Errorf("bad bedrooms %q", v)
		}
	}
	if v := get("bathrooms"); v != "" {
		if u.Bathrooms, err = strconv.Atoi(v); err != nil || u.Bathrooms < 0 {
			return nil, fmt.Errorf("bad bathrooms %q", v)
		}
	}
	if v := strings.ToLower(get("status")); v != "" {
		if !entities.ValidUnitStatus(v) {
			return nil, fmt.Errorf("bad status %q", v)
		}
		u.Status = v
	}
	return u, nil
}
