package repository

import (
	"context"
	"fmt"

	"estate_crm/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const selectUser = `
	SELECT u.id, u.email, u.phone, u.full_name, u.password_hash, u.role, u.status,
		u.telegram_chat_id, u.created_at, u.updated_at,
		COALESCE(array_agg(ua.area_id ORDER BY ua.area_id) FILTER (WHERE ua.area_id IS NOT NULL), '{}')
	FROM users u
	LEFT JOIN user_areas ua ON ua.user_id = u.id`

func scanUser(row pgx.Row) (*entities.User, error) {
	var u entities.User
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.FullName, &u.PasswordHash, &u.Role, &u.Status,
		&u.TelegramChatID, &u.CreatedAt, &u.UpdatedAt, &u.AreaIDs)
	if err != nil {
		return nil, mapError(err)
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, user *entities.User) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CreateBrokerWithApplication stores a new broker, the areas it covers and
// its pending application atomically
func (r *UserRepository) CreateBrokerWithApplication(ctx context.Context, user *entities.User, app *entities.BrokerApplication) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := insertUser(ctx, tx, user); err != nil {
		return err
	}

	app.UserID = user.ID
	app.Status = entities.ApplicationPending
	err = tx.QueryRow(ctx, `
		INSERT INTO broker_applications (user_id, status) VALUES ($1, $2)
		RETURNING id, created_at`, app.UserID, app.Status).Scan(&app.ID, &app.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert application: %w", mapError(err))
	}
	return tx.Commit(ctx)
}

func insertUser(ctx context.Context, tx pgx.Tx, user *entities.User) error {
	err := tx.QueryRow(ctx, `
		INSERT INTO users (email, phone, full_name, password_hash, role, status, telegram_chat_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		user.Email, user.Phone, user.FullName, user.PasswordHash, user.Role, user.Status, user.TelegramChatID,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", mapError(err))
	}
	return replaceAreas(ctx, tx, user.ID, user.AreaIDs)
}

func replaceAreas(ctx context.Context, tx pgx.Tx, userID int, areaIDs []int) error {
	if _, err := tx.Exec(ctx, "DELETE FROM user_areas WHERE user_id = $1", userID); err != nil {
		return fmt.Errorf("clear user areas: %w", err)
	}
	for _, areaID := range areaIDs {
		_, err := tx.Exec(ctx, `
			INSERT INTO user_areas (user_id, area_id) VALUES ($1, $2)
			ON CONFLICT DO NOTHING`, userID, areaID)
		if err != nil {
			return fmt.Errorf("assign area %d: %w", areaID, mapError(err))
		}
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (*entities.User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+" WHERE u.id = $1 GROUP BY u.id", id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entities.User, error) {
	return scanUser(r.db.QueryRow(ctx, selectUser+" WHERE lower(u.email) = lower($1) GROUP BY u.id", email))
}

// IsBlocked reports whether a blocked account already uses this email or phone
func (r *UserRepository) IsBlocked(ctx context.Context, email, phone string) (bool, error) {
	var blocked bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE status = $1 AND (lower(email) = lower($2) OR ($3 <> '' AND phone = $3))
		)`, entities.UserStatusBlocked, email, phone).Scan(&blocked)
	return blocked, err
}

// List returns users, optionally narrowed by role and status
func (r *UserRepository) List(ctx context.Context, role, status string) ([]entities.User, error) {
	rows, err := r.db.Query(ctx, selectUser+`
		WHERE ($1 = '' OR u.role = $1) AND ($2 = '' OR u.status = $2)
		GROUP BY u.id ORDER BY u.id`, role, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []entities.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *UserRepository) UpdateStatus(ctx context.Context, id int, status string) error {
	tag, err := r.db.Exec(ctx, "UPDATE users SET status = $1, updated_at = NOW() WHERE id = $2", status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound
	}
	return nil
}

func (r *UserRepository) UpdateProfile(ctx context.Context, user *entities.User) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE users SET full_name = $1, phone = $2, telegram_chat_id = $3, updated_at = NOW()
		WHERE id = $4`, user.FullName, user.Phone, user.TelegramChatID, user.ID)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return entities.ErrNotFound
	}
	if user.AreaIDs != nil {
		if err := replaceAreas(ctx, tx, user.ID, user.AreaIDs); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// LeastLoadedBroker picks the active broker covering areaID with the fewest
// open requests, lowest id first on ties
func (r *UserRepository) LeastLoadedBroker(ctx context.Context, areaID int) (*entities.User, error) {
	var id int
	err := r.db.QueryRow(ctx, `
		SELECT u.id
		FROM users u
		JOIN user_areas ua ON ua.user_id = u.id AND ua.area_id = $1
		LEFT JOIN requests rq ON rq.assigned_broker_id = u.id AND rq.status NOT IN ($2, $3)
		WHERE u.role = $4 AND u.status = $5
		GROUP BY u.id
		ORDER BY COUNT(rq.id) ASC, u.id ASC
		LIMIT 1`,
		areaID, entities.RequestClosedWon, entities.RequestClosedLost, entities.RoleBroker, entities.UserStatusActive,
	).Scan(&id)
	if err != nil {
		return nil, mapError(err)
	}
	return r.GetByID(ctx, id)
}

const selectPerformance = `
	SELECT u.id, u.full_name,
		COUNT(rq.id),
		COUNT(rq.id) FILTER (WHERE rq.status NOT IN ('closed_won', 'closed_lost')),
		COUNT(rq.id) FILTER (WHERE rq.status = 'closed_won'),
		COUNT(rq.id) FILTER (WHERE rq.status = 'closed_lost')
	FROM users u
	LEFT JOIN requests rq ON rq.assigned_broker_id = u.id`

func scanPerformance(row pgx.Row) (*entities.BrokerPerformance, error) {
	var p entities.BrokerPerformance
	if err := row.Scan(&p.BrokerID, &p.FullName, &p.TotalAssigned, &p.Open, &p.ClosedWon, &p.ClosedLost); err != nil {
		return nil, mapError(err)
	}
	p.ComputeConversion()
	return &p, nil
}

func (r *UserRepository) Performance(ctx context.Context, brokerID int) (*entities.BrokerPerformance, error) {
	return scanPerformance(r.db.QueryRow(ctx, selectPerformance+`
		WHERE u.id = $1 AND u.role = 'broker'
		GROUP BY u.id`, brokerID))
}

// AllPerformance lists every non-blocked broker, best closers first
func (r *UserRepository) AllPerformance(ctx context.Context) ([]entities.BrokerPerformance, error) {
	rows, err := r.db.Query(ctx, selectPerformance+`
		WHERE u.role = 'broker' AND u.status <> 'blocked'
		GROUP BY u.id
		ORDER BY COUNT(rq.id) FILTER (WHERE rq.status = 'closed_won') DESC, u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []entities.BrokerPerformance{}
	for rows.Next() {
		p, err := scanPerformance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}
