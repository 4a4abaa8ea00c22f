package infrastructure

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"estate_crm/internal/entities"

	"github.com/rs/zerolog/log"
	"go.mau.fi/whatsmeow"
	waProto "go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	waLog "go.mau.fi/whatsmeow/util/log"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// InboundHandler receives one customer text message
type InboundHandler func(ctx context.Context, phone, name, text string)

// WhatsAppClient is the intake line: a single linked WhatsApp device
type WhatsAppClient struct {
	Client *whatsmeow.Client

	qrCode string
	qrLock sync.RWMutex
}

func NewWhatsAppClient(ctx context.Context, dbPath string) (*WhatsAppClient, error) {
	container, err := sqlstore.New(ctx, "sqlite", "file:"+dbPath+"?_pragma=foreign_keys(1)", waLog.Zerolog(log.Logger.With().Str("module", "whatsapp-db").Logger()))
	if err != nil {
		return nil, fmt.Errorf("failed to open whatsapp device store: %w", err)
	}

	deviceStore, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	client := whatsmeow.NewClient(deviceStore, waLog.Zerolog(log.Logger.With().Str("module", "whatsapp").Logger()))
	return &WhatsAppClient{Client: client}, nil
}

func (w *WhatsAppClient) Platform() string {
	return entities.SourceWhatsApp
}

// Connect links the device; on a fresh store it starts publishing pairing codes
func (w *WhatsAppClient) Connect(ctx context.Context) error {
	if w.Client.Store.ID != nil {
		if err := w.Client.Connect(); err != nil {
			return err
		}
		log.Info().Str("phone", w.PhoneNumber()).Msg("whatsapp connected with existing session")
		return nil
	}
	return w.pair(ctx)
}

func (w *WhatsAppClient) pair(ctx context.Context) error {
	qrChan, err := w.Client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("whatsapp qr channel: %w", err)
	}
	if err := w.Client.Connect(); err != nil {
		return err
	}
	go func() {
		for evt := range qrChan {
			if evt.Event == "code" {
				w.qrLock.Lock()
				w.qrCode = evt.Code
				w.qrLock.Unlock()
				log.Info().Msg("whatsapp pairing code refreshed")
				continue
			}
			if evt.Event == "success" {
				w.qrLock.Lock()
				w.qrCode = ""
				w.qrLock.Unlock()
			}
			log.Info().Str("event", evt.Event).Msg("whatsapp login event")
		}
	}()
	return nil
}

// QR returns the current pairing code, empty once linked
func (w *WhatsAppClient) QR() string {
	w.qrLock.RLock()
	defer w.qrLock.RUnlock()
	return w.qrCode
}

// IsConnected returns true if client is connected and logged in
func (w *WhatsAppClient) IsConnected() bool {
	return w.Client.IsConnected() && w.Client.Store.ID != nil
}

func (w *WhatsAppClient) PhoneNumber() string {
	if w.Client.Store.ID == nil {
		return ""
	}
	return w.Client.Store.ID.User
}

func (w *WhatsAppClient) Name() string {
	if w.Client.Store.ID == nil {
		return ""
	}
	return w.Client.Store.PushName
}

func (w *WhatsAppClient) Logout(ctx context.Context) error {
	w.qrLock.Lock()
	w.qrCode = ""
	w.qrLock.Unlock()

	if err := w.Client.Logout(ctx); err != nil {
		return err
	}
	w.Client.Disconnect()
	return w.pair(ctx)
}

func (w *WhatsAppClient) Disconnect() {
	w.Client.Disconnect()
}

// OnMessage routes incoming private text messages to handle
func (w *WhatsAppClient) OnMessage(handle InboundHandler) {
	w.Client.AddEventHandler(func(evt interface{}) {
		msg, ok := evt.(*events.Message)
		if !ok || msg.Info.IsFromMe || msg.Info.IsGroup {
			return
		}
		phone, text := ParseMessage(msg)
		if text == "" {
			return
		}
		go handle(context.Background(), phone, msg.Info.PushName, text)
	})
}

func (w *WhatsAppClient) SendMessage(ctx context.Context, to string, content string) error {
	jid, err := types.ParseJID(strings.TrimPrefix(to, "+") + "@" + types.DefaultUserServer)
	if err != nil {
		return fmt.Errorf("invalid number format: %w", err)
	}
	_, err = w.Client.SendMessage(ctx, jid, &waProto.Message{
		Conversation: &content,
	})
	return err
}

// ParseMessage extracts the sender phone and text of a message event
func ParseMessage(evt *events.Message) (string, string) {
	sender := evt.Info.Sender.User
	var content string
	if evt.Message.GetConversation() != "" {
		content = evt.Message.GetConversation()
	} else if evt.Message.GetExtendedTextMessage() != nil {
		content = evt.Message.GetExtendedTextMessage().GetText()
	}
	return sender, strings.TrimSpace(content)
}
