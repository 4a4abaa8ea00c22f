package usecases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"estate_crm/internal/entities"
	"estate_crm/internal/repository"
)

// In-memory stores for usecase tests. Each embeds its port so methods a test
// never reaches need no body.

type fakeUsers struct {
	UserStore
	mu    sync.Mutex
	users map[int]*entities.User
	open  map[int]int // broker id -> open requests
	next  int
}

func newFakeUsers(users ...entities.User) *fakeUsers {
	f := &fakeUsers{users: map[int]*entities.User{}, open: map[int]int{}}
	for i := range users {
		u := users[i]
		f.users[u.ID] = &u
		if u.ID > f.next {
			f.next = u.ID
		}
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *entities.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if existing.Email == u.Email {
			return entities.ErrConflict
		}
	}
	f.next++
	u.ID = f.next
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f *fakeUsers) CreateBrokerWithApplication(ctx context.Context, u *entities.User, app *entities.BrokerApplication) error {
	if err := f.Create(ctx, u); err != nil {
		return err
	}
	app.ID = u.ID
	app.UserID = u.ID
	app.Status = entities.ApplicationPending
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, entities.ErrNotFound
}

func (f *fakeUsers) IsBlocked(_ context.Context, email, phone string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Status == entities.UserStatusBlocked && (u.Email == email || (phone != "" && u.Phone == phone)) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUsers) List(_ context.Context, role, status string) ([]entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.User
	for _, u := range f.users {
		if (role == "" || u.Role == role) && (status == "" || u.Status == status) {
			out = append(out, *u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeUsers) UpdateStatus(_ context.Context, id int, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return entities.ErrNotFound
	}
	u.Status = status
	return nil
}

func (f *fakeUsers) LeastLoadedBroker(_ context.Context, areaID int) (*entities.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var best *entities.User
	for _, u := range f.users {
		if u.Role != entities.RoleBroker || u.Status != entities.UserStatusActive || !containsInt(u.AreaIDs, areaID) {
			continue
		}
		if best == nil || f.open[u.ID] < f.open[best.ID] || (f.open[u.ID] == f.open[best.ID] && u.ID < best.ID) {
			best = u
		}
	}
	if best == nil {
		return nil, entities.ErrNotFound
	}
	cp := *best
	return &cp, nil
}

func (f *fakeUsers) Performance(_ context.Context, brokerID int) (*entities.BrokerPerformance, error) {
	p := &entities.BrokerPerformance{BrokerID: brokerID, Open: f.open[brokerID]}
	p.ComputeConversion()
	return p, nil
}

func (f *fakeUsers) AllPerformance(_ context.Context) ([]entities.BrokerPerformance, error) {
	return []entities.BrokerPerformance{}, nil
}

func containsInt(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type fakeAreas struct {
	AreaStore
	areas []entities.Area
}

func (f *fakeAreas) GetByID(_ context.Context, id int) (*entities.Area, error) {
	for _, a := range f.areas {
		if a.ID == id {
			cp := a
			return &cp, nil
		}
	}
	return nil, entities.ErrNotFound
}

func (f *fakeAreas) List(_ context.Context, activeOnly bool) ([]entities.Area, error) {
	var out []entities.Area
	for _, a := range f.areas {
		if !activeOnly || a.IsActive {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAreas) FindMentioned(_ context.Context, text string) (*entities.Area, error) {
	lower := strings.ToLower(text)
	for _, a := range f.areas {
		if a.IsActive && (strings.Contains(lower, strings.ToLower(a.Name)) || (a.NameAr != "" && strings.Contains(text, a.NameAr))) {
			cp := a
			return &cp, nil
		}
	}
	return nil, entities.ErrNotFound
}

type fakeUnitTypes struct {
	UnitTypeStore
	types []entities.UnitType
}

func (f *fakeUnitTypes) GetByID(_ context.Context, id int) (*entities.UnitType, error) {
	for _, t := range f.types {
		if t.ID == id {
			cp := t
			return &cp, nil
		}
	}
	return nil, entities.ErrNotFound
}

func (f *fakeUnitTypes) FindMentioned(_ context.Context, text string) (*entities.UnitType, error) {
	lower := strings.ToLower(text)
	for _, t := range f.types {
		if strings.Contains(lower, strings.ToLower(t.Name)) || (t.NameAr != "" && strings.Contains(text, t.NameAr)) {
			cp := t
			return &cp, nil
		}
	}
	return nil, entities.ErrNotFound
}

type fakeCustomers struct {
	CustomerStore
	mu        sync.Mutex
	customers map[int]*entities.Customer
}

func newFakeCustomers(cs ...entities.Customer) *fakeCustomers {
	f := &fakeCustomers{customers: map[int]*entities.Customer{}}
	for i := range cs {
		c := cs[i]
		f.customers[c.ID] = &c
	}
	return f
}

func (f *fakeCustomers) Create(_ context.Context, c *entities.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.customers {
		if existing.Phone == c.Phone {
			return entities.ErrConflict
		}
	}
	c.ID = len(f.customers) + 1
	cp := *c
	f.customers[c.ID] = &cp
	return nil
}

func (f *fakeCustomers) Upsert(_ context.Context, c *entities.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.customers {
		if existing.Phone == c.Phone {
			*c = *existing
			return nil
		}
	}
	c.ID = len(f.customers) + 1
	cp := *c
	f.customers[c.ID] = &cp
	return nil
}

func (f *fakeCustomers) GetByID(_ context.Context, id int) (*entities.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

type fakeRequests struct {
	RequestStore
	mu       sync.Mutex
	requests map[int]*entities.Request
	history  map[int][]entities.RequestHistory
}

func newFakeRequests() *fakeRequests {
	return &fakeRequests{requests: map[int]*entities.Request{}, history: map[int][]entities.RequestHistory{}}
}

func (f *fakeRequests) record(id int, action, from, to string, actorID *int, note string) {
	f.history[id] = append(f.history[id], entities.RequestHistory{
		RequestID: id, Action: action, FromValue: from, ToValue: to, ActorID: actorID, Note: note, CreatedAt: time.Now(),
	})
}

func (f *fakeRequests) Create(_ context.Context, q *entities.Request, actorID *int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q.ID = len(f.requests) + 1
	cp := *q
	f.requests[q.ID] = &cp
	f.record(q.ID, entities.HistoryCreated, "", q.Status, actorID, "")
	if q.AssignedBrokerID != nil {
		f.record(q.ID, entities.HistoryAssigned, "", "", actorID, "")
	}
	return nil
}

func (f *fakeRequests) GetByID(_ context.Context, id int) (*entities.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.requests[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (f *fakeRequests) List(_ context.Context, filter entities.RequestFilter) ([]entities.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []entities.Request
	for _, q := range f.requests {
		if filter.BrokerID != 0 && (q.AssignedBrokerID == nil || *q.AssignedBrokerID != filter.BrokerID) {
			continue
		}
		if filter.Status != "" && q.Status != filter.Status {
			continue
		}
		out = append(out, *q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRequests) UpdateStatus(_ context.Context, id int, from, to string, actorID *int, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.requests[id]
	if !ok {
		return entities.ErrNotFound
	}
	if q.Status != from {
		return entities.ErrInvalidTransition
	}
	q.Status = to
	f.record(id, entities.HistoryStatusChanged, from, to, actorID, note)
	return nil
}

func (f *fakeRequests) AddNote(_ context.Context, id int, actorID *int, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record(id, entities.HistoryNote, "", "", actorID, note)
	return nil
}

func (f *fakeRequests) Assign(_ context.Context, id, brokerID int, action string, actorID *int, note string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.requests[id]
	if !ok {
		return entities.ErrNotFound
	}
	q.AssignedBrokerID = &brokerID
	f.record(id, action, "", "", actorID, note)
	return nil
}

func (f *fakeRequests) History(_ context.Context, id int) ([]entities.RequestHistory, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]entities.RequestHistory(nil), f.history[id]...), nil
}

type fakeApplications struct {
	ApplicationStore
	users *fakeUsers
	apps  map[int]*entities.BrokerApplication
}

func (f *fakeApplications) GetByID(_ context.Context, id int) (*entities.BrokerApplication, error) {
	a, ok := f.apps[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeApplications) GetByUserID(_ context.Context, userID int) (*entities.BrokerApplication, error) {
	for _, a := range f.apps {
		if a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, entities.ErrNotFound
}

func (f *fakeApplications) MarkInterviewing(_ context.Context, id int) error {
	if a, ok := f.apps[id]; ok && a.Status == entities.ApplicationPending {
		a.Status = entities.ApplicationInterviewing
	}
	return nil
}

func (f *fakeApplications) Decide(ctx context.Context, d repository.Decision) (*entities.BrokerApplication, error) {
	a, ok := f.apps[d.ApplicationID]
	if !ok {
		return nil, entities.ErrNotFound
	}
	if a.IsDecided() {
		return nil, entities.ErrApplicationDecided
	}
	a.Status = d.Status
	a.FinalScore = d.FinalScore
	a.DecidedBy = d.DecidedBy
	a.DecisionNote = d.Note
	if err := f.users.UpdateStatus(ctx, a.UserID, d.UserStatus); err != nil {
		return nil, err
	}
	cp := *a
	return &cp, nil
}

// fakeInterviews completes sessions against apps; decideErr makes Complete
// fail before anything is saved
type fakeInterviews struct {
	InterviewStore
	sessions  map[string]*entities.InterviewSession
	apps      *fakeApplications
	decideErr error
}

func copySession(s *entities.InterviewSession) *entities.InterviewSession {
	cp := *s
	cp.Transcript = append([]entities.InterviewAnswer(nil), s.Transcript...)
	return &cp
}

func (f *fakeInterviews) Create(_ context.Context, s *entities.InterviewSession) error {
	f.sessions[s.ID] = copySession(s)
	return nil
}

func (f *fakeInterviews) GetByID(_ context.Context, id string) (*entities.InterviewSession, error) {
	s, ok := f.sessions[id]
	if !ok {
		return nil, entities.ErrNotFound
	}
	return copySession(s), nil
}

func (f *fakeInterviews) LatestForApplication(_ context.Context, applicationID int) (*entities.InterviewSession, error) {
	for _, s := range f.sessions {
		if s.ApplicationID == applicationID {
			return copySession(s), nil
		}
	}
	return nil, entities.ErrNotFound
}

func (f *fakeInterviews) checkPosition(s *entities.InterviewSession, from repository.Position) error {
	stored, ok := f.sessions[s.ID]
	if !ok {
		return entities.ErrNotFound
	}
	if stored.IsComplete {
		return entities.ErrInterviewComplete
	}
	if repository.PositionOf(stored) != from {
		return fmt.Errorf("%w: session %s was answered concurrently", entities.ErrConflict, s.ID)
	}
	return nil
}

func (f *fakeInterviews) Update(_ context.Context, s *entities.InterviewSession, from repository.Position) error {
	if err := f.checkPosition(s, from); err != nil {
		return err
	}
	f.sessions[s.ID] = copySession(s)
	return nil
}

func (f *fakeInterviews) Complete(ctx context.Context, s *entities.InterviewSession, from repository.Position, d repository.Decision) (*entities.BrokerApplication, error) {
	if err := f.checkPosition(s, from); err != nil {
		return nil, err
	}
	if f.decideErr != nil {
		return nil, f.decideErr
	}
	app, err := f.apps.Decide(ctx, d)
	if err != nil && !errors.Is(err, entities.ErrApplicationDecided) {
		return nil, err
	}
	f.sessions[s.ID] = copySession(s)
	return app, err
}

type fakeSessions struct {
	SessionStore
	mu       sync.Mutex
	sessions map[string]entities.CustomerSession
}

func (f *fakeSessions) GetByPhone(_ context.Context, phone string) (*entities.CustomerSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.sessions[phone]
	if !ok {
		return nil, entities.ErrNotFound
	}
	return &s, nil
}

func (f *fakeSessions) Save(_ context.Context, s *entities.CustomerSession) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[s.PhoneNumber] = *s
	return nil
}

type fakeConfigs struct {
	ConfigStore
	values map[string]string
}

func (f *fakeConfigs) GetConfig(_ context.Context, key string) (string, error) {
	return f.values[key], nil
}

func (f *fakeConfigs) SetConfig(_ context.Context, key, value string) error {
	f.values[key] = value
	return nil
}

func (f *fakeConfigs) DeleteConfig(_ context.Context, key string) error {
	delete(f.values, key)
	return nil
}

func (f *fakeConfigs) GetAllConfigs(_ context.Context) ([]repository.BotConfig, error) {
	var out []repository.BotConfig
	for k, v := range f.values {
		out = append(out, repository.BotConfig{Key: k, Value: v})
	}
	return out, nil
}

// recordingNotifier keeps what would have been sent
type recordingNotifier struct {
	mu      sync.Mutex
	leads   []int // request ids
	results []string
}

func (n *recordingNotifier) NotifyLeadAssigned(_ context.Context, _ entities.User, req entities.Request) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.leads = append(n.leads, req.ID)
	return nil
}

func (n *recordingNotifier) NotifyInterviewResult(_ context.Context, _ entities.User, app entities.BrokerApplication) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.results = append(n.results, app.Status)
	return nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, u *entities.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.users[u.ID]
	if !ok {
		return entities.ErrNotFound
	}
	areas := stored.AreaIDs
	if u.AreaIDs != nil {
		areas = u.AreaIDs
	}
	cp := *u
	cp.AreaIDs = areas
	f.users[u.ID] = &cp
	return nil
}
