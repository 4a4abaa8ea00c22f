package infrastructure

import (
	"context"
	"fmt"
	"strings"

	"estate_crm/internal/entities"
	"estate_crm/internal/interfaces"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// WebMessenger is used for the HTTP webhook, where the reply travels back in the response body
type WebMessenger struct{}

func (WebMessenger) Platform() string {
	return entities.SourceWeb
}

func (WebMessenger) SendMessage(context.Context, string, string) error {
	return nil
}

// TelegramNotifier pushes broker notifications through a Telegram bot
type TelegramNotifier struct {
	Bot     *tgbotapi.BotAPI
	baseURL string
}

// NewTelegramNotifier returns a no-op notifier when the token is empty or rejected
func NewTelegramNotifier(token, publicBaseURL string) interfaces.Notifier {
	if token == "" {
		return NoopNotifier{}
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		log.Warn().Err(err).Msg("telegram bot token rejected, notifications disabled")
		return NoopNotifier{}
	}
	log.Info().Str("bot", bot.Self.UserName).Msg("telegram notifier connected")
	return &TelegramNotifier{Bot: bot, baseURL: strings.TrimRight(publicBaseURL, "/")}
}

func (t *TelegramNotifier) NotifyLeadAssigned(_ context.Context, broker entities.User, req entities.Request) error {
	if broker.TelegramChatID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(broker.TelegramChatID, LeadAssignedText(req))
	msg.ParseMode = "Markdown"
	if t.baseURL != "" {
		keyboard := RequestKeyboard(t.baseURL, req.ID)
		msg.ReplyMarkup = keyboard
	}
	_, err := t.Bot.Send(msg)
	return err
}

func (t *TelegramNotifier) NotifyInterviewResult(_ context.Context, broker entities.User, app entities.BrokerApplication) error {
	if broker.TelegramChatID == 0 {
		return nil
	}
	msg := tgbotapi.NewMessage(broker.TelegramChatID, InterviewResultText(app))
	msg.ParseMode = "Markdown"
	_, err := t.Bot.Send(msg)
	return err
}

// LeadAssignedText is the Telegram body for a newly assigned request
func LeadAssignedText(req entities.Request) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*New lead #%d*\n", req.ID)
	if req.CustomerName != "" {
		fmt.Fprintf(&b, "Customer: %s\n", req.CustomerName)
	}
	if req.CustomerPhone != "" {
		fmt.Fprintf(&b, "Phone: %s\n", req.CustomerPhone)
	}
	if req.AreaName != "" {
		fmt.Fprintf(&b, "Area: %s\n", req.AreaName)
	}
	if req.BudgetMax > 0 {
		fmt.Fprintf(&b, "Budget: %.0f - %.0f\n", req.BudgetMin, req.BudgetMax)
	}
	if req.Bedrooms > 0 {
		fmt.Fprintf(&b, "Bedrooms: %d\n", req.Bedrooms)
	}
	fmt.Fprintf(&b, "Source: %s", req.Source)
	return b.String()
}

// InterviewResultText is the Telegram body for a finished interview
func InterviewResultText(app entities.BrokerApplication) string {
	score := 0.0
	if app.FinalScore != nil {
		score = *app.FinalScore
	}
	if app.Status == entities.ApplicationApproved {
		return fmt.Sprintf("*Interview passed* with %.2f. Your broker account is now active.", score)
	}
	return fmt.Sprintf("*Interview not passed* (%.2f). Your application was rejected.", score)
}

// NoopNotifier drops every notification
type NoopNotifier struct{}

func (NoopNotifier) NotifyLeadAssigned(context.Context, entities.User, entities.Request) error {
	return nil
}

func (NoopNotifier) NotifyInterviewResult(context.Context, entities.User, entities.BrokerApplication) error {
	return nil
}
