package entities

import "time"

// Chatbot intents
const (
	IntentGreeting     = "greeting"
	IntentRequirements = "provide_requirements"
	IntentConfirmYes   = "confirm_yes"
	IntentConfirmNo    = "confirm_no"
	IntentReset        = "reset"
	IntentUnknown      = "unknown"
)

// Requirements are what the chatbot has extracted from a customer so far
type Requirements struct {
	CustomerName string  `json:"customer_name,omitempty"`
	AreaID       int     `json:"area_id,omitempty"`
	AreaName     string  `json:"area_name,omitempty"`
	UnitTypeID   int     `json:"unit_type_id,omitempty"`
	UnitTypeName string  `json:"unit_type_name,omitempty"`
	BudgetMin    float64 `json:"budget_min,omitempty"`
	BudgetMax    float64 `json:"budget_max,omitempty"`
	Bedrooms     int     `json:"bedrooms,omitempty"`
}

// Complete reports whether enough is known to open a request
func (r Requirements) Complete() bool {
	return r.AreaID > 0 && r.UnitTypeID > 0 && r.BudgetMax > 0
}

// Merge overlays the non-zero fields of other onto r
func (r Requirements) Merge(other Requirements) Requirements {
	if other.CustomerName != "" {
		r.CustomerName = other.CustomerName
	}
	if other.AreaID > 0 {
		r.AreaID, r.AreaName = other.AreaID, other.AreaName
	}
	if other.UnitTypeID > 0 {
		r.UnitTypeID, r.UnitTypeName = other.UnitTypeID, other.UnitTypeName
	}
	if other.BudgetMax > 0 {
		r.BudgetMin, r.BudgetMax = other.BudgetMin, other.BudgetMax
	}
	if other.Bedrooms > 0 {
		r.Bedrooms = other.Bedrooms
	}
	return r
}

// CustomerSession tracks one customer's chatbot conversation, keyed by phone
type CustomerSession struct {
	SessionID             string       `json:"session_id"`
	PhoneNumber           string       `json:"phone_number"`
	ExtractedRequirements Requirements `json:"extracted_requirements"`
	LastIntent            string       `json:"last_intent"`
	IsComplete            bool         `json:"is_complete"`
	Confirmed             bool         `json:"confirmed"`
	AwaitingConfirmation  bool         `json:"awaiting_confirmation"`
	ConfirmationAttempt   int          `json:"confirmation_attempt"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
}

// Restart clears the conversation state but keeps identity
func (s *CustomerSession) Restart() {
	s.ExtractedRequirements = Requirements{}
	s.LastIntent = ""
	s.IsComplete = false
	s.Confirmed = false
	s.AwaitingConfirmation = false
	s.ConfirmationAttempt = 0
}
