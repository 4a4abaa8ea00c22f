package entities

import "time"

// Request statuses, in pipeline order
const (
	RequestNew         = "new"
	RequestContacted   = "contacted"
	RequestViewing     = "viewing"
	RequestNegotiating = "negotiating"
	RequestClosedWon   = "closed_won"
	RequestClosedLost  = "closed_lost"
)

// Request sources
const (
	SourceManual   = "manual"
	SourceWeb      = "web"
	SourceWhatsApp = "whatsapp"
)

// History actions
const (
	HistoryCreated       = "created"
	HistoryStatusChanged = "status_changed"
	HistoryAssigned      = "assigned"
	HistoryReassigned    = "reassigned"
	HistoryNote          = "note"
)

// Request is a customer's demand for a unit, worked by one broker
type Request struct {
	ID               int       `json:"id"`
	CustomerID       int       `json:"customer_id"`
	AreaID           int       `json:"area_id"`
	UnitTypeID       *int      `json:"unit_type_id,omitempty"`
	BudgetMin        float64   `json:"budget_min"`
	BudgetMax        float64   `json:"budget_max"`
	Bedrooms         int       `json:"bedrooms"`
	Notes            string    `json:"notes"`
	Status           string    `json:"status"`
	Source           string    `json:"source"`
	AssignedBrokerID *int      `json:"assigned_broker_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`

	CustomerName  string `json:"customer_name,omitempty"`
	CustomerPhone string `json:"customer_phone,omitempty"`
	AreaName      string `json:"area_name,omitempty"`
}

type RequestHistory struct {
	ID        int       `json:"id"`
	RequestID int       `json:"request_id"`
	Action    string    `json:"action"`
	FromValue string    `json:"from_value"`
	ToValue   string    `json:"to_value"`
	ActorID   *int      `json:"actor_id,omitempty"`
	Note      string    `json:"note"`
	CreatedAt time.Time `json:"created_at"`
}

// RequestFilter narrows request listings; zero values are ignored
type RequestFilter struct {
	BrokerID   int
	Status     string
	AreaID     int
	Unassigned bool
	Limit      int
	Offset     int
}

var requestTransitions = map[string][]string{
	RequestNew:         {RequestContacted, RequestClosedLost},
	RequestContacted:   {RequestNew, RequestViewing, RequestClosedLost},
	RequestViewing:     {RequestContacted, RequestNegotiating, RequestClosedLost},
	RequestNegotiating: {RequestViewing, RequestClosedWon, RequestClosedLost},
}

func ValidRequestStatus(s string) bool {
	switch s {
	case RequestNew, RequestContacted, RequestViewing, RequestNegotiating, RequestClosedWon, RequestClosedLost:
		return true
	}
	return false
}

// IsTerminal reports whether a request in status s can no longer change
func IsTerminal(s string) bool {
	return s == RequestClosedWon || s == RequestClosedLost
}

// CanTransition reports whether a request may move from one status to another
func CanTransition(from, to string) bool {
	for _, next := range requestTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
