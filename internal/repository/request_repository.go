package repository

import (
	"context"
	"fmt"
	"strconv"

	"estate_crm/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RequestRepository struct {
	db *pgxpool.Pool
}

func NewRequestRepository(db *pgxpool.Pool) *RequestRepository {
	return &RequestRepository{db: db}
}

const selectRequest = `
	SELECT rq.id, rq.customer_id, rq.area_id, rq.unit_type_id, rq.budget_min, rq.budget_max,
		rq.bedrooms, rq.notes, rq.status, rq.source, rq.assigned_broker_id, rq.created_at, rq.updated_at,
		c.name, c.phone, a.name
	FROM requests rq
	JOIN customers c ON c.id = rq.customer_id
	JOIN areas a ON a.id = rq.area_id`

func scanRequest(row pgx.Row) (*entities.Request, error) {
	var q entities.Request
	err := row.Scan(&q.ID, &q.CustomerID, &q.AreaID, &q.UnitTypeID, &q.BudgetMin, &q.BudgetMax,
		&q.Bedrooms, &q.Notes, &q.Status, &q.Source, &q.AssignedBrokerID, &q.CreatedAt, &q.UpdatedAt,
		&q.CustomerName, &q.CustomerPhone, &q.AreaName)
	if err != nil {
		return nil, mapError(err)
	}
	return &q, nil
}

// Create stores the request and its opening history rows
func (r *RequestRepository) Create(ctx context.Context, q *entities.Request, actorID *int) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO requests (customer_id, area_id, unit_type_id, budget_min, budget_max, bedrooms,
			notes, status, source, assigned_broker_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at`,
		q.CustomerID, q.AreaID, q.UnitTypeID, q.BudgetMin, q.BudgetMax, q.Bedrooms,
		q.Notes, q.Status, q.Source, q.AssignedBrokerID,
	).Scan(&q.ID, &q.CreatedAt, &q.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert request: %w", mapError(err))
	}

	if err := addHistory(ctx, tx, q.ID, entities.HistoryCreated, "", q.Status, actorID, q.Notes); err != nil {
		return err
	}
	if q.AssignedBrokerID != nil {
		if err := addHistory(ctx, tx, q.ID, entities.HistoryAssigned, "", strconv.Itoa(*q.AssignedBrokerID), actorID, ""); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func addHistory(ctx context.Context, db DBTX, requestID int, action, from, to string, actorID *int, note string) error {
	_, err := db.Exec(ctx, `
		INSERT INTO request_history (request_id, action, from_value, to_value, actor_id, note)
		VALUES ($1, $2, $3, $4, $5, $6)`, requestID, action, from, to, actorID, note)
	if err != nil {
		return fmt.Errorf("insert request history: %w", mapError(err))
	}
	return nil
}

func (r *RequestRepository) GetByID(ctx context.Context, id int) (*entities.Request, error) {
	return scanRequest(r.db.QueryRow(ctx, selectRequest+" WHERE rq.id = $1", id))
}

func (r *RequestRepository) List(ctx context.Context, f entities.RequestFilter) ([]entities.Request, error) {
	limit, offset := pageBounds(f.Limit, f.Offset)
	rows, err := r.db.Query(ctx, selectRequest+`
		WHERE ($1 = 0 OR rq.assigned_broker_id = $1)
			AND ($2 = '' OR rq.status = $2)
			AND ($3 = 0 OR rq.area_id = $3)
			AND ($4 = FALSE OR rq.assigned_broker_id IS NULL)
		ORDER BY rq.updated_at DESC, rq.id DESC
		LIMIT $5 OFFSET $6`,
		f.BrokerID, f.Status, f.AreaID, f.Unassigned, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entities.Request{}
	for rows.Next() {
		q, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *q)
	}
	return out, rows.Err()
}

// UpdateStatus moves a request from one status to another. It only applies
// while the stored status still equals from.
func (r *RequestRepository) UpdateStatus(ctx context.Context, id int, from, to string, actorID *int, note string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE requests SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`, to, id, from)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: request %d is no longer %s", entities.ErrInvalidTransition, id, from)
	}
	if err := addHistory(ctx, tx, id, entities.HistoryStatusChanged, from, to, actorID, note); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *RequestRepository) AddNote(ctx context.Context, id int, actorID *int, note string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "UPDATE requests SET updated_at = NOW() WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound
	}
	if err := addHistory(ctx, tx, id, entities.HistoryNote, "", "", actorID, note); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Assign sets the broker of a request; action is HistoryAssigned or HistoryReassigned
func (r *RequestRepository) Assign(ctx context.Context, id, brokerID int, action string, actorID *int, note string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var previous *int
	err = tx.QueryRow(ctx, "SELECT assigned_broker_id FROM requests WHERE id = $1 FOR UPDATE", id).Scan(&previous)
	if err != nil {
		return mapError(err)
	}
	if _, err := tx.Exec(ctx, `
		UPDATE requests SET assigned_broker_id = $1, updated_at = NOW() WHERE id = $2`, brokerID, id); err != nil {
		return mapError(err)
	}

	from := ""
	if previous != nil {
		from = strconv.Itoa(*previous)
	}
	if err := addHistory(ctx, tx, id, action, from, strconv.Itoa(brokerID), actorID, note); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *RequestRepository) History(ctx context.Context, id int) ([]entities.RequestHistory, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, request_id, action, from_value, to_value, actor_id, note, created_at
		FROM request_history WHERE request_id = $1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entities.RequestHistory{}
	for rows.Next() {
		var h entities.RequestHistory
		if err := rows.Scan(&h.ID, &h.RequestID, &h.Action, &h.FromValue, &h.ToValue, &h.ActorID, &h.Note, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
