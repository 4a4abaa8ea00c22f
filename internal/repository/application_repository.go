package repository

import (
	"context"
	"errors"
	"fmt"

	"estate_crm/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ApplicationRepository struct {
	db *pgxpool.Pool
}

func NewApplicationRepository(db *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

const selectApplication = `
	SELECT a.id, a.user_id, a.status, a.final_score, a.decided_by, a.decision_note, a.created_at, a.decided_at,
		u.full_name, u.email
	FROM broker_applications a
	JOIN users u ON u.id = a.user_id`

func scanApplication(row pgx.Row) (*entities.BrokerApplication, error) {
	var a entities.BrokerApplication
	err := row.Scan(&a.ID, &a.UserID, &a.Status, &a.FinalScore, &a.DecidedBy, &a.DecisionNote, &a.CreatedAt, &a.DecidedAt,
		&a.FullName, &a.Email)
	if err != nil {
		return nil, mapError(err)
	}
	return &a, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id int) (*entities.BrokerApplication, error) {
	return scanApplication(r.db.QueryRow(ctx, selectApplication+" WHERE a.id = $1", id))
}

func (r *ApplicationRepository) GetByUserID(ctx context.Context, userID int) (*entities.BrokerApplication, error) {
	return scanApplication(r.db.QueryRow(ctx, selectApplication+" WHERE a.user_id = $1", userID))
}

func (r *ApplicationRepository) List(ctx context.Context, status string) ([]entities.BrokerApplication, error) {
	rows, err := r.db.Query(ctx, selectApplication+`
		WHERE ($1 = '' OR a.status = $1)
		ORDER BY a.created_at DESC, a.id DESC`, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entities.BrokerApplication{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// MarkInterviewing moves a pending application into the interview
func (r *ApplicationRepository) MarkInterviewing(ctx context.Context, id int) error {
	_, err := r.db.Exec(ctx, `
		UPDATE broker_applications SET status = $1
		WHERE id = $2 AND status = $3`, entities.ApplicationInterviewing, id, entities.ApplicationPending)
	return err
}

// Decision is the final outcome written to an application and its user
type Decision struct {
	ApplicationID int
	Status        string // approved or rejected
	UserStatus    string
	FinalScore    *float64
	DecidedBy     *int
	Note          string
}

// Decide records a final decision and the matching account status in one
// transaction. An application that is already decided is left untouched and
// ErrApplicationDecided is returned.
func (r *ApplicationRepository) Decide(ctx context.Context, d Decision) (*entities.BrokerApplication, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	app, err := decide(ctx, tx, d)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return app, nil
}

// decide writes d inside the caller's transaction
func decide(ctx context.Context, db DBTX, d Decision) (*entities.BrokerApplication, error) {
	var userID int
	err := db.QueryRow(ctx, `
		UPDATE broker_applications
		SET status = $1, final_score = COALESCE($2, final_score), decided_by = $3, decision_note = $4, decided_at = NOW()
		WHERE id = $5 AND status NOT IN ($6, $7)
		RETURNING user_id`,
		d.Status, d.FinalScore, d.DecidedBy, d.Note, d.ApplicationID,
		entities.ApplicationApproved, entities.ApplicationRejected,
	).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM broker_applications WHERE id = $1)", d.ApplicationID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, entities.ErrNotFound
		}
		return nil, entities.ErrApplicationDecided
	}
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(ctx, "UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2", d.UserStatus, userID); err != nil {
		return nil, fmt.Errorf("update user status: %w", err)
	}
	return scanApplication(db.QueryRow(ctx, selectApplication+" WHERE a.id = $1", d.ApplicationID))
}
