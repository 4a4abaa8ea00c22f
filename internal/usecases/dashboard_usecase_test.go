package usecases

import (
	"context"
	"testing"

	"estate_crm/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDashboard struct{}

func (fakeDashboard) Counts(_ context.Context, d *entities.SupervisorDashboard) error {
	d.RequestsByStatus = map[string]int{entities.RequestNew: 3}
	d.ActiveBrokers = 2
	return nil
}

type fakeMessageCounts struct {
	EmbeddingStore
	days int
}

func (f *fakeMessageCounts) MessageCounts(_ context.Context, days int) ([]entities.DailyMessages, error) {
	f.days = days
	return []entities.DailyMessages{{Inbound: 4, Outbound: 4}}, nil
}

type dashboardFixture struct {
	uc       *DashboardUsecase
	users    *fakeUsers
	apps     *fakeApplications
	configs  *fakeConfigs
	notifier *recordingNotifier
}

func newDashboardFixture() *dashboardFixture {
	users := newFakeUsers(
		entities.User{ID: 1, Email: "boss@example.com", Role: entities.RoleSupervisor, Status: entities.UserStatusActive},
		entities.User{ID: 10, Email: "a@example.com", Role: entities.RoleBroker, Status: entities.UserStatusActive},
		entities.User{ID: 11, Email: "b@example.com", Role: entities.RoleBroker, Status: entities.UserStatusBlocked},
		entities.User{ID: 12, Email: "c@example.com", Role: entities.RoleBroker, Status: entities.UserStatusPending},
	)
	apps := &fakeApplications{users: users, apps: map[int]*entities.BrokerApplication{
		100: {ID: 100, UserID: 12, Status: entities.ApplicationInterviewing},
		101: {ID: 101, UserID: 11, Status: entities.ApplicationRejected},
	}}
	configs := &fakeConfigs{values: map[string]string{}}
	notifier := &recordingNotifier{}
	return &dashboardFixture{
		uc:       NewDashboardUsecase(users, apps, fakeDashboard{}, &fakeMessageCounts{}, configs, notifier),
		users:    users,
		apps:     apps,
		configs:  configs,
		notifier: notifier,
	}
}

func TestDashboardUsecase_UpdateUserStatus(t *testing.T) {
	f := newDashboardFixture()
	ctx := context.Background()

	_, err := f.uc.UpdateUserStatus(ctx, supervisor, supervisor.ID, entities.UserStatusInactive)
	assert.ErrorIs(t, err, entities.ErrForbidden, "own status")

	_, err = f.uc.UpdateUserStatus(ctx, supervisor, 11, entities.UserStatusActive)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition, "blocked stays blocked")

	_, err = f.uc.UpdateUserStatus(ctx, supervisor, 12, entities.UserStatusActive)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition, "pending skips the interview")
	stored, _ := f.users.GetByID(ctx, 12)
	assert.Equal(t, entities.UserStatusPending, stored.Status)
	assert.Equal(t, entities.ApplicationInterviewing, f.apps.apps[100].Status)

	// A pending broker can be deactivated, but not reactivated around the interview
	u, err := f.uc.UpdateUserStatus(ctx, supervisor, 12, entities.UserStatusInactive)
	require.NoError(t, err)
	assert.Equal(t, entities.UserStatusInactive, u.Status)
	_, err = f.uc.UpdateUserStatus(ctx, supervisor, 12, entities.UserStatusActive)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition)

	_, err = f.uc.UpdateUserStatus(ctx, supervisor, 10, "retired")
	assert.ErrorIs(t, err, entities.ErrInvalidInput)

	u, err = f.uc.UpdateUserStatus(ctx, supervisor, 10, entities.UserStatusInactive)
	require.NoError(t, err)
	assert.Equal(t, entities.UserStatusInactive, u.Status)

	stored, _ = f.users.GetByID(ctx, 10)
	assert.Equal(t, entities.UserStatusInactive, stored.Status)

	_, err = f.uc.UpdateUserStatus(ctx, supervisor, 10, entities.UserStatusActive)
	assert.ErrorIs(t, err, entities.ErrInvalidTransition, "no application on file")
	f.apps.apps[102] = &entities.BrokerApplication{ID: 102, UserID: 10, Status: entities.ApplicationApproved}
	u, err = f.uc.UpdateUserStatus(ctx, supervisor, 10, entities.UserStatusActive)
	require.NoError(t, err)
	assert.Equal(t, entities.UserStatusActive, u.Status)
}

func TestDashboardUsecase_Performance(t *testing.T) {
	f := newDashboardFixture()
	ctx := context.Background()

	_, err := f.uc.Performance(ctx, Actor{ID: 10, Role: entities.RoleBroker}, 12)
	assert.ErrorIs(t, err, entities.ErrForbidden)

	p, err := f.uc.Performance(ctx, Actor{ID: 10, Role: entities.RoleBroker}, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, p.BrokerID)

	_, err = f.uc.Performance(ctx, supervisor, supervisor.ID)
	assert.ErrorIs(t, err, entities.ErrNotFound, "supervisors have no broker figures")
}

func TestDashboardUsecase_Dashboard(t *testing.T) {
	f := newDashboardFixture()
	d, err := f.uc.Dashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, d.RequestsByStatus[entities.RequestNew])
	assert.Len(t, d.Messages, 1)
	assert.NotNil(t, d.Brokers)
}

func TestDashboardUsecase_DecideApplication(t *testing.T) {
	f := newDashboardFixture()
	ctx := context.Background()

	_, err := f.uc.DecideApplication(ctx, supervisor, 100, ApplicationDecision{Status: entities.ApplicationPending})
	assert.ErrorIs(t, err, entities.ErrInvalidInput)

	app, err := f.uc.DecideApplication(ctx, supervisor, 100, ApplicationDecision{Status: entities.ApplicationApproved, Note: "strong candidate"})
	require.NoError(t, err)
	assert.Equal(t, entities.ApplicationApproved, app.Status)
	require.NotNil(t, app.DecidedBy)
	assert.Equal(t, supervisor.ID, *app.DecidedBy)

	broker, _ := f.users.GetByID(ctx, 12)
	assert.Equal(t, entities.UserStatusActive, broker.Status)
	assert.Equal(t, []string{entities.ApplicationApproved}, f.notifier.results)

	_, err = f.uc.DecideApplication(ctx, supervisor, 100, ApplicationDecision{Status: entities.ApplicationRejected})
	assert.ErrorIs(t, err, entities.ErrApplicationDecided)
	_, err = f.uc.DecideApplication(ctx, supervisor, 101, ApplicationDecision{Status: entities.ApplicationApproved})
	assert.ErrorIs(t, err, entities.ErrApplicationDecided)
	_, err = f.uc.DecideApplication(ctx, supervisor, 999, ApplicationDecision{Status: entities.ApplicationApproved})
	assert.ErrorIs(t, err, entities.ErrNotFound)
}

func TestDashboardUsecase_Configs(t *testing.T) {
	f := newDashboardFixture()
	ctx := context.Background()

	assert.ErrorIs(t, f.uc.SetConfig(ctx, "unknown_key", "x"), entities.ErrInvalidInput)
	require.NoError(t, f.uc.SetConfig(ctx, "welcome_message", "Hi there"))
	assert.Equal(t, "Hi there", f.configs.values["welcome_message"])

	all, err := f.uc.GetAllConfigs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(TemplateKeys()))

	require.NoError(t, f.uc.SetConfig(ctx, "welcome_message", "  "))
	_, ok := f.configs.values["welcome_message"]
	assert.False(t, ok, "blank value restores the default")
}
