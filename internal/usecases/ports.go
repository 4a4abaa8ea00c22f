package usecases

import (
	"context"
	"io"

	"estate_crm/internal/entities"
	"estate_crm/internal/repository"
)

// Storage ports, defined where they are consumed. The repository package
// provides the Postgres implementations.

type UserStore interface {
	Create(ctx context.Context, user *entities.User) error
	CreateBrokerWithApplication(ctx context.Context, user *entities.User, app *entities.BrokerApplication) error
	GetByID(ctx context.Context, id int) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	IsBlocked(ctx context.Context, email, phone string) (bool, error)
	List(ctx context.Context, role, status string) ([]entities.User, error)
	UpdateStatus(ctx context.Context, id int, status string) error
	UpdateProfile(ctx context.Context, user *entities.User) error
	LeastLoadedBroker(ctx context.Context, areaID int) (*entities.User, error)
	Performance(ctx context.Context, brokerID int) (*entities.BrokerPerformance, error)
	AllPerformance(ctx context.Context) ([]entities.BrokerPerformance, error)
}

type AreaStore interface {
	Create(ctx context.Context, a *entities.Area) error
	Update(ctx context.Context, a *entities.Area) error
	Delete(ctx context.Context, id int) error
	GetByID(ctx context.Context, id int) (*entities.Area, error)
	List(ctx context.Context, activeOnly bool) ([]entities.Area, error)
	FindMentioned(ctx context.Context, text string) (*entities.Area, error)
}

type UnitTypeStore interface {
	Create(ctx context.Context, t *entities.UnitType) error
	GetByID(ctx context.Context, id int) (*entities.UnitType, error)
	List(ctx context.Context) ([]entities.UnitType, error)
	FindMentioned(ctx context.Context, text string) (*entities.UnitType, error)
}

type UnitStore interface {
	Create(ctx context.Context, u *entities.Unit) error
	Update(ctx context.Context, u *entities.Unit) error
	GetByID(ctx context.Context, id int) (*entities.Unit, error)
	List(ctx context.Context, f entities.UnitFilter) ([]entities.Unit, error)
	ImportCSV(ctx context.Context, data io.Reader) (int, error)
}

type CustomerStore interface {
	Create(ctx context.Context, c *entities.Customer) error
	Upsert(ctx context.Context, c *entities.Customer) error
	GetByID(ctx context.Context, id int) (*entities.Customer, error)
	List(ctx context.Context, search string, limit, offset int) ([]entities.Customer, error)
}

type RequestStore interface {
	Create(ctx context.Context, q *entities.Request, actorID *int) error
	GetByID(ctx context.Context, id int) (*entities.Request, error)
	List(ctx context.Context, f entities.RequestFilter) ([]entities.Request, error)
	UpdateStatus(ctx context.Context, id int, from, to string, actorID *int, note string) error
	AddNote(ctx context.Context, id int, actorID *int, note string) error
	Assign(ctx context.Context, id, brokerID int, action string, actorID *int, note string) error
	History(ctx context.Context, id int) ([]entities.RequestHistory, error)
}

type ApplicationStore interface {
	GetByID(ctx context.Context, id int) (*entities.BrokerApplication, error)
	GetByUserID(ctx context.Context, userID int) (*entities.BrokerApplication, error)
	List(ctx context.Context, status string) ([]entities.BrokerApplication, error)
	MarkInterviewing(ctx context.Context, id int) error
	Decide(ctx context.Context, d repository.Decision) (*entities.BrokerApplication, error)
}

type InterviewStore interface {
	Create(ctx context.Context, s *entities.InterviewSession) error
	GetByID(ctx context.Context, id string) (*entities.InterviewSession, error)
	LatestForApplication(ctx context.Context, applicationID int) (*entities.InterviewSession, error)
	Update(ctx context.Context, s *entities.InterviewSession, from repository.Position) error
	Complete(ctx context.Context, s *entities.InterviewSession, from repository.Position, d repository.Decision) (*entities.BrokerApplication, error)
}

type SessionStore interface {
	GetByPhone(ctx context.Context, phone string) (*entities.CustomerSession, error)
	Save(ctx context.Context, s *entities.CustomerSession) error
}

type EmbeddingStore interface {
	UpsertArea(ctx context.Context, e *entities.AreaEmbedding) error
	UpsertUnitType(ctx context.Context, e *entities.UnitTypeEmbedding) error
	InsertConversation(ctx context.Context, e *entities.ConversationEmbedding) error
	NearestAreas(ctx context.Context, query []float32, column repository.EmbeddingColumn, limit int) ([]entities.Match, error)
	NearestUnitTypes(ctx context.Context, query []float32, column repository.EmbeddingColumn, limit int) ([]entities.Match, error)
	SimilarConversations(ctx context.Context, query []float32, phone string, limit int) ([]entities.ConversationMatch, error)
	MessageCounts(ctx context.Context, days int) ([]entities.DailyMessages, error)
}

type ConfigStore interface {
	GetConfig(ctx context.Context, key string) (string, error)
	SetConfig(ctx context.Context, key, value string) error
	DeleteConfig(ctx context.Context, key string) error
	GetAllConfigs(ctx context.Context) ([]repository.BotConfig, error)
}

type DashboardStore interface {
	Counts(ctx context.Context, d *entities.SupervisorDashboard) error
}

// Embedder turns text into a vector of entities.EmbeddingDimension floats
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}
