package http

import (
	"context"
	"net/http"
	"time"

	"estate_crm/internal/entities"
	"estate_crm/internal/usecases"

	"github.com/gin-gonic/gin"
)

// WhatsAppStatus is the view of the WhatsApp transport the API exposes
type WhatsAppStatus interface {
	QR() string
	IsConnected() bool
	PhoneNumber() string
	Name() string
	Logout(ctx context.Context) error
}

// Services bundles what the handlers call into
type Services struct {
	Auth      *usecases.AuthUsecase
	Catalog   *usecases.CatalogUsecase
	Requests  *usecases.RequestUsecase
	Dashboard *usecases.DashboardUsecase
	Interview *usecases.InterviewUsecase
	Messages  *usecases.MessageService
	Matching  *usecases.MatchingService
	WhatsApp  WhatsAppStatus // nil when the transport is disabled
}

type Handler struct {
	auth      *usecases.AuthUsecase
	catalog   *usecases.CatalogUsecase
	requests  *usecases.RequestUsecase
	dashboard *usecases.DashboardUsecase
	interview *usecases.InterviewUsecase
	messages  *usecases.MessageService
	matching  *usecases.MatchingService
	whatsapp  WhatsAppStatus
	started   time.Time
}

func NewHandler(s Services) *Handler {
	return &Handler{
		auth:      s.Auth,
		catalog:   s.Catalog,
		requests:  s.Requests,
		dashboard: s.Dashboard,
		interview: s.Interview,
		messages:  s.Messages,
		matching:  s.Matching,
		whatsapp:  s.WhatsApp,
		started:   time.Now(),
	}
}

// pendingRoutes stay open to brokers who have not passed the interview yet
var pendingRoutes = []string{
	"/auth/profile",
	"/chatbot/interview/start",
	"/chatbot/interview/respond",
	"/chatbot/interview/:id",
}

func SetupRoutes(r *gin.Engine, h *Handler, middleware *Middleware) {
	r.Use(Recovery())
	r.Use(RequestTracing())
	r.Use(SecurityHeaders())
	r.Use(RequestSizeLimiter(10 << 20)) // 10MB, room for unit CSV imports
	r.Use(middleware.CORSMiddleware())

	// Public Routes
	r.GET("/healthz", h.Health)
	r.POST("/auth/login", h.Login)
	r.POST("/auth/register", h.Register)
	r.POST("/chatbot/webhook", h.HandleWebMessage)

	// Authenticated Routes, brokers and supervisors
	api := r.Group("/")
	api.Use(middleware.AuthRequired())
	api.Use(middleware.RateLimitPerUser(10, 30))
	api.Use(middleware.ActiveAccount(pendingRoutes...))
	{
		api.GET("/auth/profile", h.GetProfile)
		api.PUT("/auth/profile", h.UpdateProfile)
		api.GET("/auth/areas", h.GetMyAreas)
		api.PUT("/auth/areas", h.SetMyAreas)

		api.GET("/areas", h.ListAreas)
		api.GET("/areas/:id", h.GetArea)
		api.GET("/unit-types", h.ListUnitTypes)
		api.GET("/units", h.ListUnits)

		api.GET("/customers", h.ListCustomers)
		api.POST("/customers", h.CreateCustomer)
		api.GET("/customers/:id", h.GetCustomer)

		api.GET("/requests", h.ListRequests)
		api.POST("/requests", h.CreateRequest)
		api.GET("/requests/:id", h.GetRequest)
		api.PATCH("/requests/:id", h.UpdateRequest)
		api.GET("/requests/:id/history", h.RequestHistory)

		api.GET("/users/brokers/:id/performance", h.BrokerPerformance)

		api.POST("/chatbot/interview/start", h.StartInterview)
		api.POST("/chatbot/interview/respond", h.RespondInterview)
		api.GET("/chatbot/interview/:id", h.GetInterview)

		api.GET("/search/areas", h.SearchAreas)
	}

	// Supervisor-only Routes
	supervisor := r.Group("/")
	supervisor.Use(middleware.AuthRequired())
	supervisor.Use(middleware.RateLimitPerUser(20, 60))
	supervisor.Use(middleware.ActiveAccount())
	supervisor.Use(middleware.RoleRequired(entities.RoleSupervisor))
	{
		supervisor.POST("/areas", h.CreateArea)
		supervisor.PUT("/areas/:id", h.UpdateArea)
		supervisor.DELETE("/areas/:id", h.DeleteArea)
		supervisor.POST("/unit-types", h.CreateUnitType)
		supervisor.POST("/units", h.CreateUnit)
		supervisor.PUT("/units/:id", h.UpdateUnit)
		supervisor.POST("/units/import", h.ImportUnits)

		supervisor.PUT("/requests/:id/reassign", h.ReassignRequest)

		supervisor.GET("/users", h.ListUsers)
		supervisor.GET("/users/brokers", h.ListBrokers)
		supervisor.PUT("/users/:id/status", h.UpdateUserStatus)

		supervisor.GET("/supervisor/dashboard", h.SupervisorDashboard)
		supervisor.GET("/applications", h.ListApplications)
		supervisor.PUT("/applications/:id/status", h.DecideApplication)

		supervisor.GET("/chatbot/config", h.GetAllConfigs)
		supervisor.PUT("/chatbot/config", h.SetConfig)
		supervisor.GET("/chatbot/whatsapp/qr", h.WhatsAppQR)
		supervisor.GET("/chatbot/whatsapp/status", h.WhatsAppStatus)
		supervisor.POST("/chatbot/whatsapp/logout", h.WhatsAppLogout)

		supervisor.GET("/search/conversations", h.SearchConversations)
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"uptime":   time.Since(h.started).Round(time.Second).String(),
		"vectors":  h.matching != nil && h.matching.VectorsEnabled(),
		"whatsapp": h.whatsapp != nil && h.whatsapp.IsConnected(),
	})
}
