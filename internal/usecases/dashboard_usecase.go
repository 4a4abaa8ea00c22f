package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"estate_crm/internal/entities"
	"estate_crm/internal/interfaces"
	"estate_crm/internal/repository"

	"github.com/rs/zerolog/log"
)

// messageHistoryDays is the window of the dashboard's message chart
const messageHistoryDays = 14

// DashboardUsecase serves the supervisor: broker accounts, applications,
// performance figures and the chatbot's reply templates.
type DashboardUsecase struct {
	users      UserStore
	apps       ApplicationStore
	dashboard  DashboardStore
	embeddings EmbeddingStore
	configs    ConfigStore
	notifier   interfaces.Notifier
}

func NewDashboardUsecase(users UserStore, apps ApplicationStore, dashboard DashboardStore, embeddings EmbeddingStore,
	configs ConfigStore, notifier interfaces.Notifier) *DashboardUsecase {
	return &DashboardUsecase{
		users:      users,
		apps:       apps,
		dashboard:  dashboard,
		embeddings: embeddings,
		configs:    configs,
		notifier:   notifier,
	}
}

// User Management
func (u *DashboardUsecase) ListUsers(ctx context.Context, role, status string) ([]entities.User, error) {
	if role != "" && role != entities.RoleBroker && role != entities.RoleSupervisor {
		return nil, fmt.Errorf("%w: unknown role %q", entities.ErrInvalidInput, role)
	}
	if status != "" && !entities.ValidUserStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", entities.ErrInvalidInput, status)
	}
	return u.users.List(ctx, role, status)
}

func (u *DashboardUsecase) ListBrokers(ctx context.Context, status string) ([]entities.User, error) {
	return u.ListUsers(ctx, entities.RoleBroker, status)
}

// UpdateUserStatus changes an account status. Supervisors cannot change their
// own status, and a blocked broker stays blocked. A broker is activated only
// once their application is approved, so a pending broker goes through
// DecideApplication instead.
func (u *DashboardUsecase) UpdateUserStatus(ctx context.Context, actor Actor, userID int, status string) (*entities.User, error) {
	if !entities.ValidUserStatus(status) {
		return nil, fmt.Errorf("%w: unknown status %q", entities.ErrInvalidInput, status)
	}
	if actor.ID == userID {
		return nil, fmt.Errorf("%w: cannot change your own status", entities.ErrForbidden)
	}
	user, err := u.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Status == status {
		return user, nil
	}
	if user.Status == entities.UserStatusBlocked {
		return nil, fmt.Errorf("%w: user %d is permanently blocked", entities.ErrInvalidTransition, userID)
	}
	if status == entities.UserStatusActive && user.Role == entities.RoleBroker {
		if err := u.requireApproved(ctx, userID); err != nil {
			return nil, err
		}
	}
	if err := u.users.UpdateStatus(ctx, userID, status); err != nil {
		return nil, err
	}
	log.Info().Int("user_id", userID).Int("actor_id", actor.ID).Str("from", user.Status).Str("to", status).Msg("user status changed")
	user.Status = status
	return user, nil
}

func (u *DashboardUsecase) requireApproved(ctx context.Context, userID int) error {
	app, err := u.apps.GetByUserID(ctx, userID)
	if errors.Is(err, entities.ErrNotFound) {
		return fmt.Errorf("%w: user %d has no application", entities.ErrInvalidTransition, userID)
	}
	if err != nil {
		return err
	}
	if app.Status != entities.ApplicationApproved {
		return fmt.Errorf("%w: user %d has not passed the interview, decide application %d instead",
			entities.ErrInvalidTransition, userID, app.ID)
	}
	return nil
}

// Performance returns one broker's figures; brokers may only read their own
func (u *DashboardUsecase) Performance(ctx context.Context, actor Actor, brokerID int) (*entities.BrokerPerformance, error) {
	if !actor.IsSupervisor() && actor.ID != brokerID {
		return nil, entities.ErrForbidden
	}
	broker, err := u.users.GetByID(ctx, brokerID)
	if err != nil {
		return nil, err
	}
	if broker.Role != entities.RoleBroker {
		return nil, entities.ErrNotFound
	}
	return u.users.Performance(ctx, brokerID)
}

func (u *DashboardUsecase) Dashboard(ctx context.Context) (*entities.SupervisorDashboard, error) {
	d := &entities.SupervisorDashboard{}
	if err := u.dashboard.Counts(ctx, d); err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}
	messages, err := u.embeddings.MessageCounts(ctx, messageHistoryDays)
	if err != nil {
		return nil, fmt.Errorf("message counts: %w", err)
	}
	brokers, err := u.users.AllPerformance(ctx)
	if err != nil {
		return nil, fmt.Errorf("broker performance: %w", err)
	}
	d.Messages = messages
	d.Brokers = brokers
	return d, nil
}

// Application Management
func (u *DashboardUsecase) ListApplications(ctx context.Context, status string) ([]entities.BrokerApplication, error) {
	switch status {
	case "", entities.ApplicationPending, entities.ApplicationInterviewing, entities.ApplicationApproved, entities.ApplicationRejected:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", entities.ErrInvalidInput, status)
	}
	return u.apps.List(ctx, status)
}

type ApplicationDecision struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note"`
}

// DecideApplication records a supervisor's decision. Approval activates the
// broker, rejection blocks the account.
func (u *DashboardUsecase) DecideApplication(ctx context.Context, actor Actor, applicationID int, in ApplicationDecision) (*entities.BrokerApplication, error) {
	d := repository.Decision{
		ApplicationID: applicationID,
		Status:        in.Status,
		DecidedBy:     &actor.ID,
		Note:          strings.TrimSpace(in.Note),
	}
	switch in.Status {
	case entities.ApplicationApproved:
		d.UserStatus = entities.UserStatusActive
	case entities.ApplicationRejected:
		d.UserStatus = entities.UserStatusBlocked
	default:
		return nil, fmt.Errorf("%w: status must be %s or %s", entities.ErrInvalidInput, entities.ApplicationApproved, entities.ApplicationRejected)
	}

	app, err := u.apps.Decide(ctx, d)
	if err != nil {
		return nil, err
	}
	log.Info().Int("application_id", app.ID).Int("actor_id", actor.ID).Str("status", app.Status).Msg("application decided")

	user, err := u.users.GetByID(ctx, app.UserID)
	if err != nil {
		log.Warn().Err(err).Int("user_id", app.UserID).Msg("cannot load broker for notification")
		return app, nil
	}
	if err := u.notifier.NotifyInterviewResult(ctx, *user, *app); err != nil {
		log.Warn().Err(err).Int("user_id", app.UserID).Msg("decision notification failed")
	}
	return app, nil
}

// Config Management
func (u *DashboardUsecase) GetAllConfigs(ctx context.Context) ([]repository.BotConfig, error) {
	stored, err := u.configs.GetAllConfigs(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(stored))
	for _, c := range stored {
		set[c.Key] = true
	}
	// Unset templates are listed with their built-in text
	for _, key := range TemplateKeys() {
		if !set[key] {
			stored = append(stored, repository.BotConfig{Key: key, Value: defaultTemplates[key]})
		}
	}
	return stored, nil
}

func (u *DashboardUsecase) SetConfig(ctx context.Context, key, value string) error {
	if _, ok := defaultTemplates[key]; !ok {
		return fmt.Errorf("%w: unknown config key %q", entities.ErrInvalidInput, key)
	}
	if strings.TrimSpace(value) == "" {
		return u.configs.DeleteConfig(ctx, key)
	}
	return u.configs.SetConfig(ctx, key, value)
}
