package repository

import (
	"context"

	"estate_crm/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type CustomerRepository struct {
	db *pgxpool.Pool
}

func NewCustomerRepository(db *pgxpool.Pool) *CustomerRepository {
	return &CustomerRepository{db: db}
}

const selectCustomer = "SELECT id, name, phone, email, notes, created_by, created_at FROM customers"

func scanCustomer(row pgx.Row) (*entities.Customer, error) {
	var c entities.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Notes, &c.CreatedBy, &c.CreatedAt); err != nil {
		return nil, mapError(err)
	}
	return &c, nil
}

func (r *CustomerRepository) Create(ctx context.Context, c *entities.Customer) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO customers (name, phone, email, notes, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		c.Name, c.Phone, c.Email, c.Notes, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt)
	return mapError(err)
}

// Upsert finds the customer by phone, filling in a name it did not have yet
func (r *CustomerRepository) Upsert(ctx context.Context, c *entities.Customer) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO customers (name, phone, email, notes, created_by)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (phone) DO UPDATE
			SET name = CASE WHEN customers.name = '' THEN EXCLUDED.name ELSE customers.name END
		RETURNING id, name, email, notes, created_by, created_at`,
		c.Name, c.Phone, c.Email, c.Notes, c.CreatedBy,
	).Scan(&c.ID, &c.Name, &c.Email, &c.Notes, &c.CreatedBy, &c.CreatedAt)
	return mapError(err)
}

func (r *CustomerRepository) GetByID(ctx context.Context, id int) (*entities.Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx, selectCustomer+" WHERE id = $1", id))
}

func (r *CustomerRepository) GetByPhone(ctx context.Context, phone string) (*entities.Customer, error) {
	return scanCustomer(r.db.QueryRow(ctx, selectCustomer+" WHERE phone = $1", phone))
}

// List searches by name or phone substring
func (r *CustomerRepository) List(ctx context.Context, search string, limit, offset int) ([]entities.Customer, error) {
	limit, offset = pageBounds(limit, offset)
	rows, err := r.db.Query(ctx, selectCustomer+`
		WHERE ($1 = '' OR name ILIKE '%' || $1 || '%' OR phone LIKE '%' || $1 || '%')
		ORDER BY id DESC
		LIMIT $2 OFFSET $3`, search, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	customers := []entities.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, rows.Err()
}
