package entities

import "time"

// Broker application statuses
const (
	ApplicationPending      = "pending"
	ApplicationInterviewing = "interviewing"
	ApplicationApproved     = "approved"
	ApplicationRejected     = "rejected"
)

// BrokerApplication gates a broker account behind the interview
type BrokerApplication struct {
	ID           int        `json:"id"`
	UserID       int        `json:"user_id"`
	Status       string     `json:"status"`
	FinalScore   *float64   `json:"final_score,omitempty"`
	DecidedBy    *int       `json:"decided_by,omitempty"`
	DecisionNote string     `json:"decision_note"`
	CreatedAt    time.Time  `json:"created_at"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`

	FullName string `json:"full_name,omitempty"`
	Email    string `json:"email,omitempty"`
}

// IsDecided reports whether the application reached a final status
func (a *BrokerApplication) IsDecided() bool {
	return a.Status == ApplicationApproved || a.Status == ApplicationRejected
}
