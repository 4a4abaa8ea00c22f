package interfaces

import (
	"context"

	"estate_crm/internal/entities"
)

// Messenger delivers a chatbot reply to a customer on one platform
type Messenger interface {
	SendMessage(ctx context.Context, to, content string) error
	Platform() string
}

// Notifier tells brokers about events that concern them
type Notifier interface {
	NotifyLeadAssigned(ctx context.Context, broker entities.User, req entities.Request) error
	NotifyInterviewResult(ctx context.Context, broker entities.User, app entities.BrokerApplication) error
}
