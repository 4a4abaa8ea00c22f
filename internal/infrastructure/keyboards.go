package infrastructure

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// RequestKeyboard links a notification to the request page
func RequestKeyboard(baseURL string, requestID int) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonURL("📋 Open request", fmt.Sprintf("%s/requests/%d", baseURL, requestID)),
			tgbotapi.NewInlineKeyboardButtonURL("📊 My pipeline", baseURL+"/requests"),
		),
	)
}
