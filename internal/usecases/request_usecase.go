package usecases

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"estate_crm/internal/entities"
	"estate_crm/internal/interfaces"

	"github.com/rs/zerolog/log"
)

// Actor is the authenticated user behind a call
type Actor struct {
	ID   int
	Role string
}

func (a Actor) IsSupervisor() bool { return a.Role == entities.RoleSupervisor }

type RequestUsecase struct {
	requests  RequestStore
	customers CustomerStore
	users     UserStore
	areas     AreaStore
	unitTypes UnitTypeStore
	notifier  interfaces.Notifier
}

func NewRequestUsecase(requests RequestStore, customers CustomerStore, users UserStore, areas AreaStore,
	unitTypes UnitTypeStore, notifier interfaces.Notifier) *RequestUsecase {
	return &RequestUsecase{
		requests:  requests,
		customers: customers,
		users:     users,
		areas:     areas,
		unitTypes: unitTypes,
		notifier:  notifier,
	}
}

type CustomerInput struct {
	Name  string `json:"name" binding:"required"`
	Phone string `json:"phone" binding:"required"`
	Email string `json:"email"`
	Notes string `json:"notes"`
}

func (uc *RequestUsecase) CreateCustomer(ctx context.Context, actor Actor, in CustomerInput) (*entities.Customer, error) {
	if err := uc.requireActive(ctx, actor); err != nil {
		return nil, err
	}
	c := &entities.Customer{
		Name:      strings.TrimSpace(in.Name),
		Phone:     NormalizePhone(in.Phone),
		Email:     strings.TrimSpace(in.Email),
		Notes:     strings.TrimSpace(in.Notes),
		CreatedBy: &actor.ID,
	}
	if c.Name == "" || c.Phone == "" {
		return nil, fmt.Errorf("%w: name and phone are required", entities.ErrInvalidInput)
	}
	if err := uc.customers.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (uc *RequestUsecase) GetCustomer(ctx context.Context, id int) (*entities.Customer, error) {
	return uc.customers.GetByID(ctx, id)
}

func (uc *RequestUsecase) ListCustomers(ctx context.Context, search string, limit, offset int) ([]entities.Customer, error) {
	return uc.customers.List(ctx, strings.TrimSpace(search), limit, offset)
}

type RequestInput struct {
	CustomerID       int     `json:"customer_id" binding:"required"`
	AreaID           int     `json:"area_id" binding:"required"`
	UnitTypeID       *int    `json:"unit_type_id"`
	BudgetMin        float64 `json:"budget_min"`
	BudgetMax        float64 `json:"budget_max"`
	Bedrooms         int     `json:"bedrooms"`
	Notes            string  `json:"notes"`
	AssignedBrokerID *int    `json:"assigned_broker_id"`
}

// Create opens a request. A broker's own request is assigned to that broker;
// otherwise an explicit broker is honoured or the least loaded broker of the
// area is picked. With no candidate the request stays unassigned.
func (uc *RequestUsecase) Create(ctx context.Context, actor Actor, in RequestInput, source string) (*entities.Request, error) {
	if err := uc.requireActive(ctx, actor); err != nil {
		return nil, err
	}
	if in.BudgetMin < 0 || in.BudgetMax < 0 || in.Bedrooms < 0 {
		return nil, fmt.Errorf("%w: budget and bedrooms must not be negative", entities.ErrInvalidInput)
	}
	if in.BudgetMax > 0 && in.BudgetMin > in.BudgetMax {
		return nil, fmt.Errorf("%w: budget_min exceeds budget_max", entities.ErrInvalidInput)
	}
	if _, err := uc.customers.GetByID(ctx, in.CustomerID); err != nil {
		return nil, asInvalid(err, "unknown customer %d", in.CustomerID)
	}
	area, err := uc.areas.GetByID(ctx, in.AreaID)
	if err != nil {
		return nil, asInvalid(err, "unknown area %d", in.AreaID)
	}
	if !area.IsActive {
		return nil, fmt.Errorf("%w: area %d is inactive", entities.ErrInvalidInput, in.AreaID)
	}
	if in.UnitTypeID != nil {
		if _, err := uc.unitTypes.GetByID(ctx, *in.UnitTypeID); err != nil {
			return nil, asInvalid(err, "unknown unit type %d", *in.UnitTypeID)
		}
	}
	if source == "" {
		source = entities.SourceManual
	}

	req := &entities.Request{
		CustomerID: in.CustomerID,
		AreaID:     in.AreaID,
		UnitTypeID: in.UnitTypeID,
		BudgetMin:  in.BudgetMin,
		BudgetMax:  in.BudgetMax,
		Bedrooms:   in.Bedrooms,
		Notes:      strings.TrimSpace(in.Notes),
		Status:     entities.RequestNew,
		Source:     source,
	}

	var broker *entities.User
	switch {
	case actor.ID != 0 && !actor.IsSupervisor():
		req.AssignedBrokerID = &actor.ID
	case in.AssignedBrokerID != nil:
		if broker, err = uc.activeBroker(ctx, *in.AssignedBrokerID); err != nil {
			return nil, err
		}
		req.AssignedBrokerID = &broker.ID
	default:
		broker, err = uc.users.LeastLoadedBroker(ctx, in.AreaID)
		if err != nil && !errors.Is(err, entities.ErrNotFound) {
			return nil, err
		}
		if broker != nil {
			req.AssignedBrokerID = &broker.ID
		}
	}

	var actorID *int
	if actor.ID != 0 {
		actorID = &actor.ID
	}
	if err := uc.requests.Create(ctx, req, actorID); err != nil {
		return nil, err
	}

	created, err := uc.requests.GetByID(ctx, req.ID)
	if err != nil {
		return nil, err
	}
	if broker != nil {
		uc.notifyAssigned(ctx, *broker, *created)
	} else if req.AssignedBrokerID == nil {
		log.Info().Int("request_id", req.ID).Int("area_id", req.AreaID).Msg("no broker available, request left unassigned")
	}
	return created, nil
}

// requireActive refuses writes from accounts that are not active. The chatbot
// acts with a zero actor and is always allowed.
func (uc *RequestUsecase) requireActive(ctx context.Context, actor Actor) error {
	if actor.ID == 0 {
		return nil
	}
	user, err := uc.users.GetByID(ctx, actor.ID)
	if errors.Is(err, entities.ErrNotFound) {
		return fmt.Errorf("%w: unknown account %d", entities.ErrForbidden, actor.ID)
	}
	if err != nil {
		return err
	}
	return user.AccessError()
}

func (uc *RequestUsecase) activeBroker(ctx context.Context, id int) (*entities.User, error) {
	broker, err := uc.users.GetByID(ctx, id)
	if err != nil {
		return nil, asInvalid(err, "unknown broker %d", id)
	}
	if broker.Role != entities.RoleBroker || broker.Status != entities.UserStatusActive {
		return nil, fmt.Errorf("%w: user %d is not an active broker", entities.ErrInvalidInput, id)
	}
	return broker, nil
}

func (uc *RequestUsecase) notifyAssigned(ctx context.Context, broker entities.User, req entities.Request) {
	if err := uc.notifier.NotifyLeadAssigned(ctx, broker, req); err != nil {
		log.Warn().Err(err).Int("request_id", req.ID).Int("broker_id", broker.ID).Msg("lead notification failed")
	}
}

// load fetches a request the actor may see; brokers only see their own
func (uc *RequestUsecase) load(ctx context.Context, actor Actor, id int) (*entities.Request, error) {
	req, err := uc.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsSupervisor() && (req.AssignedBrokerID == nil || *req.AssignedBrokerID != actor.ID) {
		return nil, entities.ErrForbidden
	}
	return req, nil
}

func (uc *RequestUsecase) Get(ctx context.Context, actor Actor, id int) (*entities.Request, error) {
	return uc.load(ctx, actor, id)
}

func (uc *RequestUsecase) List(ctx context.Context, actor Actor, f entities.RequestFilter) ([]entities.Request, error) {
	if f.Status != "" && !entities.ValidRequestStatus(f.Status) {
		return nil, fmt.Errorf("%w: unknown status %q", entities.ErrInvalidInput, f.Status)
	}
	if !actor.IsSupervisor() {
		f.BrokerID = actor.ID
		f.Unassigned = false
	}
	return uc.requests.List(ctx, f)
}

type RequestUpdate struct {
	Status *string `json:"status"`
	Note   string  `json:"note"`
}

// Update applies a status change and/or a note. Status changes follow the
// pipeline; closed requests never change again.
func (uc *RequestUsecase) Update(ctx context.Context, actor Actor, id int, in RequestUpdate) (*entities.Request, error) {
	if err := uc.requireActive(ctx, actor); err != nil {
		return nil, err
	}
	req, err := uc.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	note := strings.TrimSpace(in.Note)

	switch {
	case in.Status != nil:
		to := *in.Status
		if !entities.ValidRequestStatus(to) {
			return nil, fmt.Errorf("%w: unknown status %q", entities.ErrInvalidInput, to)
		}
		if !entities.CanTransition(req.Status, to) {
			return nil, fmt.Errorf("%w: %s -> %s", entities.ErrInvalidTransition, req.Status, to)
		}
		if err := uc.requests.UpdateStatus(ctx, id, req.Status, to, &actor.ID, note); err != nil {
			return nil, err
		}
	case note != "":
		if err := uc.requests.AddNote(ctx, id, &actor.ID, note); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: nothing to update", entities.ErrInvalidInput)
	}
	return uc.requests.GetByID(ctx, id)
}

func (uc *RequestUsecase) History(ctx context.Context, actor Actor, id int) ([]entities.RequestHistory, error) {
	if _, err := uc.load(ctx, actor, id); err != nil {
		return nil, err
	}
	return uc.requests.History(ctx, id)
}

// Reassign hands an open request to another active broker
func (uc *RequestUsecase) Reassign(ctx context.Context, actor Actor, id, brokerID int, note string) (*entities.Request, error) {
	if !actor.IsSupervisor() {
		return nil, entities.ErrForbidden
	}
	req, err := uc.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entities.IsTerminal(req.Status) {
		return nil, fmt.Errorf("%w: request %d is closed", entities.ErrInvalidTransition, id)
	}
	broker, err := uc.activeBroker(ctx, brokerID)
	if err != nil {
		return nil, err
	}
	if req.AssignedBrokerID != nil && *req.AssignedBrokerID == brokerID {
		return req, nil
	}

	action := entities.HistoryReassigned
	if req.AssignedBrokerID == nil {
		action = entities.HistoryAssigned
	}
	if err := uc.requests.Assign(ctx, id, brokerID, action, &actor.ID, strings.TrimSpace(note)); err != nil {
		return nil, err
	}
	updated, err := uc.requests.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	uc.notifyAssigned(ctx, *broker, *updated)
	return updated, nil
}

// NormalizePhone strips formatting characters, keeping a leading +
func NormalizePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	var b strings.Builder
	for i, r := range phone {
		if r >= '0' && r <= '9' || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
