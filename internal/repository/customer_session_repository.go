package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"estate_crm/internal/entities"

	"github.com/jackc/pgx/v5/pgxpool"
)

type CustomerSessionRepository struct {
	db *pgxpool.Pool
}

func NewCustomerSessionRepository(db *pgxpool.Pool) *CustomerSessionRepository {
	return &CustomerSessionRepository{db: db}
}

func (r *CustomerSessionRepository) GetByPhone(ctx context.Context, phone string) (*entities.CustomerSession, error) {
	var s entities.CustomerSession
	var reqs []byte
	err := r.db.QueryRow(ctx, `
		SELECT session_id, phone_number, extracted_requirements, last_intent, is_complete, confirmed,
			awaiting_confirmation, confirmation_attempt, created_at, updated_at
		FROM customer_sessions WHERE phone_number = $1`, phone,
	).Scan(&s.SessionID, &s.PhoneNumber, &reqs, &s.LastIntent, &s.IsComplete, &s.Confirmed,
		&s.AwaitingConfirmation, &s.ConfirmationAttempt, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, mapError(err)
	}
	if err := json.Unmarshal(reqs, &s.ExtractedRequirements); err != nil {
		return nil, fmt.Errorf("decode requirements of %s: %w", phone, err)
	}
	return &s, nil
}

// Save inserts or replaces the session of a phone number
func (r *CustomerSessionRepository) Save(ctx context.Context, s *entities.CustomerSession) error {
	reqs, err := json.Marshal(s.ExtractedRequirements)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, `
		INSERT INTO customer_sessions (session_id, phone_number, extracted_requirements, last_intent,
			is_complete, confirmed, awaiting_confirmation, confirmation_attempt)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (phone_number) DO UPDATE SET
			extracted_requirements = EXCLUDED.extracted_requirements,
			last_intent = EXCLUDED.last_intent,
			is_complete = EXCLUDED.is_complete,
			confirmed = EXCLUDED.confirmed,
			awaiting_confirmation = EXCLUDED.awaiting_confirmation,
			confirmation_attempt = EXCLUDED.confirmation_attempt,
			updated_at = NOW()
		RETURNING session_id, created_at, updated_at`,
		s.SessionID, s.PhoneNumber, reqs, s.LastIntent,
		s.IsComplete, s.Confirmed, s.AwaitingConfirmation, s.ConfirmationAttempt,
	).Scan(&s.SessionID, &s.CreatedAt, &s.UpdatedAt)
	return mapError(err)
}
