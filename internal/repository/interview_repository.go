package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"estate_crm/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type InterviewRepository struct {
	db *pgxpool.Pool
}

func NewInterviewRepository(db *pgxpool.Pool) *InterviewRepository {
	return &InterviewRepository{db: db}
}

const selectInterview = `
	SELECT id, application_id, user_id, current_phase, phase_question_index,
		phase1_score, phase2_score, phase3_score, phase4_score, phase5_score, phase6_score,
		total_score, is_complete, passed, transcript, started_at, updated_at, completed_at
	FROM interview_sessions`

func scanInterview(row pgx.Row) (*entities.InterviewSession, error) {
	var s entities.InterviewSession
	var transcript []byte
	err := row.Scan(&s.ID, &s.ApplicationID, &s.UserID, &s.CurrentPhase, &s.PhaseQuestionIndex,
		&s.PhaseScores[0], &s.PhaseScores[1], &s.PhaseScores[2], &s.PhaseScores[3], &s.PhaseScores[4], &s.PhaseScores[5],
		&s.TotalScore, &s.IsComplete, &s.Passed, &transcript, &s.StartedAt, &s.UpdatedAt, &s.CompletedAt)
	if err != nil {
		return nil, mapError(err)
	}
	if err := json.Unmarshal(transcript, &s.Transcript); err != nil {
		return nil, fmt.Errorf("decode transcript of session %s: %w", s.ID, err)
	}
	return &s, nil
}

func (r *InterviewRepository) Create(ctx context.Context, s *entities.InterviewSession) error {
	transcript, err := json.Marshal(transcriptOrEmpty(s.Transcript))
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `
		INSERT INTO interview_sessions (id, application_id, user_id, current_phase, phase_question_index,
			transcript, started_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID, s.ApplicationID, s.UserID, s.CurrentPhase, s.PhaseQuestionIndex, transcript, s.StartedAt, s.UpdatedAt)
	return mapError(err)
}

func (r *InterviewRepository) GetByID(ctx context.Context, id string) (*entities.InterviewSession, error) {
	return scanInterview(r.db.QueryRow(ctx, selectInterview+" WHERE id = $1", id))
}

// LatestForApplication returns the most recent session of an application
func (r *InterviewRepository) LatestForApplication(ctx context.Context, applicationID int) (*entities.InterviewSession, error) {
	return scanInterview(r.db.QueryRow(ctx, selectInterview+`
		WHERE application_id = $1 ORDER BY started_at DESC LIMIT 1`, applicationID))
}

// Position is where a session stood when an answer was read against it
type Position struct {
	Phase         int
	QuestionIndex int
}

func PositionOf(s *entities.InterviewSession) Position {
	return Position{Phase: s.CurrentPhase, QuestionIndex: s.PhaseQuestionIndex}
}

// Update persists progress recorded from position from. A session that moved
// on in the meantime is left alone: ErrInterviewComplete when it finished,
// ErrConflict when another answer got there first.
func (r *InterviewRepository) Update(ctx context.Context, s *entities.InterviewSession, from Position) error {
	return saveProgress(ctx, r.db, s, from)
}

// Complete saves the final answer of a session and records the outcome on the
// application and its user in one transaction. Nothing is written when the
// decision fails. If a supervisor decided the application first, the session
// is still saved and ErrApplicationDecided is returned.
func (r *InterviewRepository) Complete(ctx context.Context, s *entities.InterviewSession, from Position, d Decision) (*entities.BrokerApplication, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := saveProgress(ctx, tx, s, from); err != nil {
		return nil, err
	}
	app, decideErr := decide(ctx, tx, d)
	if decideErr != nil && !errors.Is(decideErr, entities.ErrApplicationDecided) {
		return nil, decideErr
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return app, decideErr
}

func saveProgress(ctx context.Context, db DBTX, s *entities.InterviewSession, from Position) error {
	transcript, err := json.Marshal(transcriptOrEmpty(s.Transcript))
	if err != nil {
		return err
	}
	tag, err := db.Exec(ctx, `
		UPDATE interview_sessions SET
			current_phase = $1, phase_question_index = $2,
			phase1_score = $3, phase2_score = $4, phase3_score = $5,
			phase4_score = $6, phase5_score = $7, phase6_score = $8,
			total_score = $9, is_complete = $10, passed = $11, transcript = $12,
			updated_at = $13, completed_at = $14
		WHERE id = $15 AND NOT is_complete
			AND current_phase = $16 AND phase_question_index = $17`,
		s.CurrentPhase, s.PhaseQuestionIndex,
		s.PhaseScores[0], s.PhaseScores[1], s.PhaseScores[2],
		s.PhaseScores[3], s.PhaseScores[4], s.PhaseScores[5],
		s.TotalScore, s.IsComplete, s.Passed, transcript,
		s.UpdatedAt, s.CompletedAt, s.ID,
		from.Phase, from.QuestionIndex)
	if err != nil {
		return err
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var complete bool
	if err := db.QueryRow(ctx, "SELECT is_complete FROM interview_sessions WHERE id = $1", s.ID).Scan(&complete); err != nil {
		return mapError(err)
	}
	if complete {
		return entities.ErrInterviewComplete
	}
	return fmt.Errorf("%w: session %s was answered concurrently", entities.ErrConflict, s.ID)
}

func transcriptOrEmpty(t []entities.InterviewAnswer) []entities.InterviewAnswer {
	if t == nil {
		return []entities.InterviewAnswer{}
	}
	return t
}
