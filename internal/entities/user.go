package entities

import "time"

// Roles
const (
	RoleBroker     = "broker"
	RoleSupervisor = "supervisor"
)

// Account statuses
const (
	UserStatusPending  = "pending"  // Registered broker, interview not passed yet
	UserStatusActive   = "active"   // Can work requests
	UserStatusInactive = "inactive" // Disabled by a supervisor
	UserStatusBlocked  = "blocked"  // Failed interview, permanent
)

type User struct {
	ID             int       `json:"id"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	FullName       string    `json:"full_name"`
	PasswordHash   string    `json:"-"`
	Role           string    `json:"role"`
	Status         string    `json:"status"`
	TelegramChatID int64     `json:"telegram_chat_id,omitempty"` // Broker's chat for notifications
	AreaIDs        []int     `json:"area_ids,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func (u *User) IsSupervisor() bool { return u.Role == RoleSupervisor }

// AccessError returns why the account may not work requests, or nil when it is active
func (u *User) AccessError() error {
	switch u.Status {
	case UserStatusActive:
		return nil
	case UserStatusPending:
		return ErrAccountPending
	case UserStatusBlocked:
		return ErrAccountBlocked
	case UserStatusInactive:
		return ErrAccountInactive
	}
	return ErrForbidden
}

// ValidUserStatus reports whether s is one of the known account statuses
func ValidUserStatus(s string) bool {
	switch s {
	case UserStatusPending, UserStatusActive, UserStatusInactive, UserStatusBlocked:
		return true
	}
	return false
}

// BrokerPerformance aggregates a broker's request outcomes
type BrokerPerformance struct {
	BrokerID       int     `json:"broker_id"`
	FullName       string  `json:"full_name"`
	TotalAssigned  int     `json:"total_assigned"`
	Open           int     `json:"open"`
	ClosedWon      int     `json:"closed_won"`
	ClosedLost     int     `json:"closed_lost"`
	ConversionRate float64 `json:"conversion_rate"`
}

// ComputeConversion fills ConversionRate as won / closed (0 when nothing closed)
func (p *BrokerPerformance) ComputeConversion() {
	closed := p.ClosedWon + p.ClosedLost
	if closed == 0 {
		p.ConversionRate = 0
		return
	}
	p.ConversionRate = float64(p.ClosedWon) / float64(closed)
}
