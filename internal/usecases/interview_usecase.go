package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"estate_crm/internal/entities"
	"estate_crm/internal/infrastructure"
	"estate_crm/internal/interfaces"
	"estate_crm/internal/interview"
	"estate_crm/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// InterviewUsecase runs the scripted broker interview and applies its outcome
type InterviewUsecase struct {
	machine    *interview.Machine
	scorer     interview.Scorer
	interviews InterviewStore
	apps       ApplicationStore
	users      UserStore
	notifier   interfaces.Notifier
	now        func() time.Time
}

func NewInterviewUsecase(machine *interview.Machine, scorer interview.Scorer, interviews InterviewStore,
	apps ApplicationStore, users UserStore, notifier interfaces.Notifier) *InterviewUsecase {
	return &InterviewUsecase{
		machine:    machine,
		scorer:     scorer,
		interviews: interviews,
		apps:       apps,
		users:      users,
		notifier:   notifier,
		now:        time.Now,
	}
}

// Start opens the interview for the broker's application. An unfinished
// session is resumed rather than replaced.
func (uc *InterviewUsecase) Start(ctx context.Context, userID int) (*entities.InterviewView, error) {
	user, err := uc.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status == entities.UserStatusBlocked {
		return nil, entities.ErrAccountBlocked
	}

	app, err := uc.apps.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	latest, err := uc.interviews.LatestForApplication(ctx, app.ID)
	switch {
	case err == nil && latest.IsComplete:
		return nil, entities.ErrInterviewComplete
	case err == nil:
		return uc.view(latest, "")
	case !errors.Is(err, entities.ErrNotFound):
		return nil, err
	}

	if app.IsDecided() {
		return nil, entities.ErrApplicationDecided
	}

	session := &entities.InterviewSession{
		ID:            uuid.NewString(),
		ApplicationID: app.ID,
		UserID:        userID,
	}
	uc.machine.Begin(session, uc.now())
	if err := uc.interviews.Create(ctx, session); err != nil {
		return nil, err
	}
	if err := uc.apps.MarkInterviewing(ctx, app.ID); err != nil {
		return nil, err
	}

	log.Info().Str("session_id", session.ID).Int("user_id", userID).Msg("interview started")
	return uc.view(session, "")
}

// Respond scores one answer and moves the session forward
func (uc *InterviewUsecase) Respond(ctx context.Context, userID int, sessionID, answer string) (*entities.InterviewView, error) {
	session, err := uc.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, entities.ErrForbidden
	}
	if session.IsComplete {
		return nil, entities.ErrInterviewComplete
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return nil, entities.ErrEmptyAnswer
	}

	phase, ok := uc.machine.Script().Phase(session.CurrentPhase)
	if !ok {
		return nil, fmt.Errorf("%w: session phase %d out of range", entities.ErrInvalidInput, session.CurrentPhase)
	}
	question, err := uc.machine.CurrentQuestion(session)
	if err != nil {
		return nil, err
	}

	scoreCtx, span := infrastructure.StartSpan(ctx, "interview.Score",
		attribute.Int("interview.phase", phase.Number),
		attribute.Int("interview.question", session.PhaseQuestionIndex))
	score, err := uc.scorer.Score(scoreCtx, phase, question, answer)
	if err != nil {
		infrastructure.SpanError(scoreCtx, err)
		span.End()
		return nil, fmt.Errorf("score answer: %w", err)
	}
	span.SetAttributes(attribute.Float64("interview.answer_score", score.Value))
	span.End()

	from := repository.PositionOf(session)
	if err := uc.machine.Record(session, answer, score, uc.now()); err != nil {
		return nil, err
	}
	if !session.IsComplete {
		if err := uc.interviews.Update(ctx, session, from); err != nil {
			return nil, err
		}
		return uc.view(session, score.Feedback)
	}

	if err := uc.finish(ctx, session, from); err != nil {
		return nil, err
	}
	return uc.view(session, score.Feedback)
}

// finish saves the last answer together with the outcome: a pass approves the
// application and activates the broker, a fail rejects it and blocks the
// account for good. On error nothing is saved and the answer can be resent.
func (uc *InterviewUsecase) finish(ctx context.Context, session *entities.InterviewSession, from repository.Position) error {
	decision := repository.Decision{
		ApplicationID: session.ApplicationID,
		Status:        entities.ApplicationRejected,
		UserStatus:    entities.UserStatusBlocked,
		FinalScore:    &session.TotalScore,
		Note:          fmt.Sprintf("interview score %.2f", session.TotalScore),
	}
	if session.Passed {
		decision.Status = entities.ApplicationApproved
		decision.UserStatus = entities.UserStatusActive
	}

	logger := log.With().Str("session_id", session.ID).Float64("score", session.TotalScore).Bool("passed", session.Passed).Logger()
	app, err := uc.interviews.Complete(ctx, session, from, decision)
	if errors.Is(err, entities.ErrApplicationDecided) {
		logger.Warn().Msg("application decided before the interview finished, keeping that decision")
		return nil
	}
	if err != nil {
		logger.Error().Err(err).Msg("failed to record interview outcome")
		return fmt.Errorf("record interview outcome: %w", err)
	}
	logger.Info().Str("status", app.Status).Msg("interview complete")

	user, err := uc.users.GetByID(ctx, session.UserID)
	if err != nil {
		logger.Warn().Err(err).Msg("cannot load broker for notification")
		return nil
	}
	if err := uc.notifier.NotifyInterviewResult(ctx, *user, *app); err != nil {
		logger.Warn().Err(err).Msg("interview result notification failed")
	}
	return nil
}

// Get returns a session; brokers may only read their own
func (uc *InterviewUsecase) Get(ctx context.Context, userID int, role, sessionID string) (*entities.InterviewView, error) {
	session, err := uc.load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if role != entities.RoleSupervisor && session.UserID != userID {
		return nil, entities.ErrForbidden
	}
	return uc.view(session, "")
}

func (uc *InterviewUsecase) load(ctx context.Context, sessionID string) (*entities.InterviewSession, error) {
	if _, err := uuid.Parse(sessionID); err != nil {
		return nil, entities.ErrNotFound
	}
	return uc.interviews.GetByID(ctx, sessionID)
}

func (uc *InterviewUsecase) view(s *entities.InterviewSession, feedback string) (*entities.InterviewView, error) {
	next, err := uc.machine.Current(s)
	if err != nil {
		return nil, err
	}
	return &entities.InterviewView{
		Session:      s,
		NextQuestion: next,
		LastFeedback: feedback,
		PassScore:    uc.machine.PassScore(),
	}, nil
}
