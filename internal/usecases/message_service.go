package usecases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"estate_crm/internal/entities"
	"estate_crm/internal/infrastructure"
	"estate_crm/internal/interfaces"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// maxConfirmationAttempts is how many "no" answers clear the requirements
const maxConfirmationAttempts = 3

// MessageIndexer stores chatbot messages for similarity search
type MessageIndexer interface {
	QueueMessage(ctx context.Context, phone, direction, text string, metadata map[string]string) error
}

// MessageService runs the customer intake chatbot: it collects area, unit type
// and budget from a conversation and turns a confirmed conversation into a
// request.
type MessageService struct {
	sessions   SessionStore
	customers  CustomerStore
	requests   *RequestUsecase
	matching   *MatchingService
	configs    ConfigStore
	indexer    MessageIndexer
	limiter    *infrastructure.MessageRateLimiter
	guard      *infrastructure.SessionManager
	messengers map[string]interfaces.Messenger
	now        func() time.Time
}

func NewMessageService(sessions SessionStore, customers CustomerStore, requests *RequestUsecase, matching *MatchingService,
	configs ConfigStore, indexer MessageIndexer, limiter *infrastructure.MessageRateLimiter) *MessageService {
	return &MessageService{
		sessions:   sessions,
		customers:  customers,
		requests:   requests,
		matching:   matching,
		configs:    configs,
		indexer:    indexer,
		limiter:    limiter,
		guard:      infrastructure.NewSessionManager(),
		messengers: map[string]interfaces.Messenger{},
		now:        time.Now,
	}
}

// RegisterMessenger routes replies for m.Platform() through m
func (s *MessageService) RegisterMessenger(m interfaces.Messenger) {
	s.messengers[m.Platform()] = m
}

// ProcessMessage handles one inbound message and returns the reply sent back.
// Messages from the same phone are processed one at a time.
func (s *MessageService) ProcessMessage(ctx context.Context, msg entities.Message) (string, error) {
	phone := NormalizePhone(msg.From)
	content := strings.TrimSpace(msg.Content)
	if phone == "" || content == "" {
		return "", fmt.Errorf("%w: phone and message are required", entities.ErrInvalidInput)
	}
	if s.limiter != nil && !s.limiter.Allow(phone) {
		return "", fmt.Errorf("%w: retry in %s", entities.ErrRateLimited, s.limiter.WaitTime(phone).Round(time.Second))
	}

	release := s.guard.Acquire(phone)
	defer release()

	ctx, span := infrastructure.StartSpan(ctx, "intake.ProcessMessage",
		attribute.String("intake.platform", msg.Platform))
	defer span.End()

	logger := log.With().Str("phone", phone).Str("platform", msg.Platform).Logger()

	session, err := s.loadSession(ctx, phone)
	if err != nil {
		infrastructure.SpanError(ctx, err)
		return "", err
	}
	arabic := IsArabic(content)

	intent, extracted := s.classify(ctx, content, session)
	span.SetAttributes(attribute.String("intake.intent", intent))
	s.index(ctx, phone, entities.MessageInbound, content, msg.Platform, intent)
	logger.Debug().Str("intent", intent).Str("session_id", session.SessionID).Msg("message classified")

	var reply string
	switch intent {
	case entities.IntentReset:
		session.Restart()
		reply = s.template(ctx, "reset_message", arabic, nil)

	case entities.IntentConfirmYes:
		reply, err = s.confirm(ctx, session, msg, phone, arabic)
		if err != nil {
			infrastructure.SpanError(ctx, err)
			return "", err
		}

	case entities.IntentConfirmNo:
		session.ConfirmationAttempt++
		session.AwaitingConfirmation = false
		if session.ConfirmationAttempt >= maxConfirmationAttempts {
			session.Restart()
			reply = s.template(ctx, "start_over", arabic, nil)
		} else {
			reply = s.template(ctx, "ask_changes", arabic, nil)
		}

	case entities.IntentRequirements:
		session.ExtractedRequirements = session.ExtractedRequirements.Merge(extracted)
		reply = s.progressReply(ctx, session, arabic)

	case entities.IntentGreeting:
		reply = s.template(ctx, "welcome_message", arabic, nil)

	default:
		if session.AwaitingConfirmation {
			reply = s.template(ctx, "confirm_prompt", arabic, nil)
		} else {
			reply = s.template(ctx, "fallback_message", arabic, nil)
		}
	}

	session.LastIntent = intent
	session.UpdatedAt = s.now()
	if err := s.sessions.Save(ctx, session); err != nil {
		err = fmt.Errorf("save session: %w", err)
		infrastructure.SpanError(ctx, err)
		return "", err
	}

	if err := s.sendReply(ctx, msg.Platform, phone, reply); err != nil {
		logger.Error().Err(err).Msg("failed to send reply")
	}
	s.index(ctx, phone, entities.MessageOutbound, reply, msg.Platform, intent)
	return reply, nil
}

// loadSession fetches the phone's session, starting a new one when none exists
// and restarting one whose request was already created
func (s *MessageService) loadSession(ctx context.Context, phone string) (*entities.CustomerSession, error) {
	session, err := s.sessions.GetByPhone(ctx, phone)
	switch {
	case errors.Is(err, entities.ErrNotFound):
		now := s.now()
		return &entities.CustomerSession{
			SessionID:   uuid.NewString(),
			PhoneNumber: phone,
			CreatedAt:   now,
			UpdatedAt:   now,
		}, nil
	case err != nil:
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session.IsComplete {
		session.Restart()
	}
	return session, nil
}

// classify picks the intent of content. Extracted requirements win over a
// greeting, and yes/no only count while a summary awaits confirmation.
func (s *MessageService) classify(ctx context.Context, content string, session *entities.CustomerSession) (string, entities.Requirements) {
	intent := DetectIntent(content)
	switch intent {
	case entities.IntentReset:
		return intent, entities.Requirements{}
	case entities.IntentConfirmYes, entities.IntentConfirmNo:
		if session.AwaitingConfirmation {
			return intent, entities.Requirements{}
		}
	}

	extracted := s.extract(ctx, content)
	if extracted != (entities.Requirements{}) {
		return entities.IntentRequirements, extracted
	}
	if intent == entities.IntentGreeting {
		return intent, extracted
	}
	return entities.IntentUnknown, extracted
}

// extract reads requirements from content. Matching failures are logged and
// leave the field empty.
func (s *MessageService) extract(ctx context.Context, content string) entities.Requirements {
	req := ParseRequirements(content)
	if s.matching == nil {
		return req
	}
	if m, err := s.matching.MatchArea(ctx, content); err != nil {
		log.Warn().Err(err).Msg("area matching failed")
	} else if m != nil {
		req.AreaID, req.AreaName = m.ID, m.Name
	}
	if m, err := s.matching.MatchUnitType(ctx, content); err != nil {
		log.Warn().Err(err).Msg("unit type matching failed")
	} else if m != nil {
		req.UnitTypeID, req.UnitTypeName = m.ID, m.Name
	}
	return req
}

func (s *MessageService) progressReply(ctx context.Context, session *entities.CustomerSession, arabic bool) string {
	req := session.ExtractedRequirements
	if !req.Complete() {
		return s.template(ctx, "ask_missing", arabic, map[string]string{"missing": missingFields(req, arabic)})
	}
	session.AwaitingConfirmation = true
	return s.template(ctx, "confirm_summary", arabic, map[string]string{"summary": Summary(req, arabic)})
}

// confirm turns the session's requirements into a customer request
func (s *MessageService) confirm(ctx context.Context, session *entities.CustomerSession, msg entities.Message, phone string, arabic bool) (string, error) {
	req := session.ExtractedRequirements
	name := req.CustomerName
	if name == "" {
		name = strings.TrimSpace(msg.Name)
	}
	if name == "" {
		name = phone
	}

	customer := &entities.Customer{Name: name, Phone: phone}
	if err := s.customers.Upsert(ctx, customer); err != nil {
		return "", fmt.Errorf("upsert customer: %w", err)
	}

	unitTypeID := req.UnitTypeID
	created, err := s.requests.Create(ctx, Actor{}, RequestInput{
		CustomerID: customer.ID,
		AreaID:     req.AreaID,
		UnitTypeID: &unitTypeID,
		BudgetMin:  req.BudgetMin,
		BudgetMax:  req.BudgetMax,
		Bedrooms:   req.Bedrooms,
		Notes:      "Created by the chatbot",
	}, requestSource(msg.Platform))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	session.Confirmed = true
	session.IsComplete = true
	session.AwaitingConfirmation = false
	log.Info().Int("request_id", created.ID).Int("customer_id", customer.ID).Str("session_id", session.SessionID).Msg("chatbot request created")

	return s.template(ctx, "request_created", arabic, map[string]string{"request_id": strconv.Itoa(created.ID)}), nil
}

func requestSource(platform string) string {
	if platform == entities.SourceWhatsApp {
		return entities.SourceWhatsApp
	}
	return entities.SourceWeb
}

func (s *MessageService) sendReply(ctx context.Context, platform, to, content string) error {
	m, ok := s.messengers[platform]
	if !ok {
		return nil
	}
	return m.SendMessage(ctx, to, content)
}

func (s *MessageService) index(ctx context.Context, phone, direction, text, platform, intent string) {
	if s.indexer == nil {
		return
	}
	err := s.indexer.QueueMessage(ctx, phone, direction, text, map[string]string{"platform": platform, "intent": intent})
	if err != nil {
		log.Warn().Err(err).Str("phone", phone).Msg("failed to queue message embedding")
	}
}

// template returns a configured reply template with {placeholders} filled,
// falling back to the built-in text
func (s *MessageService) template(ctx context.Context, key string, arabic bool, vars map[string]string) string {
	if arabic {
		key += "_ar"
	}
	text := defaultTemplates[key]
	if s.configs != nil {
		if v, err := s.configs.GetConfig(ctx, key); err == nil && v != "" {
			text = v
		}
	}
	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

var (
	greetingWords = []string{"hi", "hello", "hey", "good morning", "good evening", "start", "/start",
		"السلام عليكم", "سلام", "مرحبا", "اهلا", "أهلا", "صباح الخير", "مساء الخير"}
	resetWords = []string{"reset", "/reset", "restart", "start over", "cancel",
		"الغاء", "إلغاء", "من جديد", "ابدأ من جديد"}
	yesWords = map[string]bool{"yes": true, "y": true, "yeah": true, "yep": true, "confirm": true, "ok": true, "okay": true,
		"sure": true, "correct": true, "نعم": true, "ايوه": true, "أيوه": true, "ايوا": true, "تمام": true, "موافق": true, "اكيد": true, "أكيد": true}
	noWords = map[string]bool{"no": true, "n": true, "nope": true, "change": true, "wrong": true,
		"لا": true, "لأ": true, "مش": true, "غلط": true, "تعديل": true}
)

// DetectIntent classifies a message by keywords, in English and Arabic. It does
// not look for requirements.
func DetectIntent(text string) string {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '/')
	})
	if len(words) == 0 {
		return entities.IntentUnknown
	}
	joined := strings.Join(words, " ")

	for _, w := range resetWords {
		if joined == w || strings.HasPrefix(joined, w+" ") {
			return entities.IntentReset
		}
	}
	if len(words) <= 3 {
		if yesWords[words[0]] {
			return entities.IntentConfirmYes
		}
		if noWords[words[0]] {
			return entities.IntentConfirmNo
		}
	}
	for _, w := range greetingWords {
		if joined == w || strings.HasPrefix(joined, w+" ") {
			return entities.IntentGreeting
		}
	}
	return entities.IntentUnknown
}

// Summary renders requirements for the confirmation message
func Summary(r entities.Requirements, arabic bool) string {
	labels := [...]string{"Area", "Unit type", "Budget", "Bedrooms", "Name"}
	if arabic {
		labels = [...]string{"المنطقة", "نوع الوحدة", "الميزانية", "عدد الغرف", "الاسم"}
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "• %s: %s\n", labels[0], r.AreaName)
	fmt.Fprintf(&sb, "• %s: %s\n", labels[1], r.UnitTypeName)
	fmt.Fprintf(&sb, "• %s: %s\n", labels[2], FormatBudget(r.BudgetMin, r.BudgetMax))
	if r.Bedrooms > 0 {
		fmt.Fprintf(&sb, "• %s: %d\n", labels[3], r.Bedrooms)
	}
	if r.CustomerName != "" {
		fmt.Fprintf(&sb, "• %s: %s\n", labels[4], r.CustomerName)
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

// FormatBudget prints 2500000 as "2.5M" and a range as "1.5M - 2M"
func FormatBudget(lo, hi float64) string {
	if lo > 0 && lo != hi {
		return shortAmount(lo) + " - " + shortAmount(hi)
	}
	return shortAmount(hi)
}

func shortAmount(v float64) string {
	switch {
	case v >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', -1, 64) + "M"
	case v >= 1e3:
		return strconv.FormatFloat(v/1e3, 'f', -1, 64) + "K"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func missingFields(r entities.Requirements, arabic bool) string {
	names := [...]string{"the area", "the unit type", "your budget"}
	sep := ", "
	if arabic {
		names = [...]string{"المنطقة", "نوع الوحدة", "الميزانية"}
		sep = "، "
	}
	var missing []string
	if r.AreaID == 0 {
		missing = append(missing, names[0])
	}
	if r.UnitTypeID == 0 {
		missing = append(missing, names[1])
	}
	if r.BudgetMax == 0 {
		missing = append(missing, names[2])
	}
	return strings.Join(missing, sep)
}

var defaultTemplates = map[string]string{
	"welcome_message":     "👋 Welcome! I can help you find your next home.\nTell me the area, the unit type and your budget, e.g. *3 bedroom apartment in Maadi, budget 2-3 million*.",
	"welcome_message_ar":  "👋 أهلاً بك! يمكنني مساعدتك في إيجاد وحدتك.\nأخبرني بالمنطقة ونوع الوحدة والميزانية، مثال: *شقة ٣ غرف في المعادي بميزانية ٢-٣ مليون*.",
	"ask_missing":         "Thanks! I still need {missing}.",
	"ask_missing_ar":      "شكراً! ما زلت أحتاج إلى: {missing}.",
	"confirm_summary":     "Please confirm your request:\n{summary}\n\nReply *yes* to confirm or *no* to change something.",
	"confirm_summary_ar":  "من فضلك أكد طلبك:\n{summary}\n\nرد بـ *نعم* للتأكيد أو *لا* للتعديل.",
	"confirm_prompt":      "Please reply *yes* to confirm or *no* to change something.",
	"confirm_prompt_ar":   "من فضلك رد بـ *نعم* للتأكيد أو *لا* للتعديل.",
	"request_created":     "✅ Your request #{request_id} is registered. A broker will contact you shortly.",
	"request_created_ar":  "✅ تم تسجيل طلبك رقم {request_id}. سيتواصل معك أحد الوسطاء قريباً.",
	"ask_changes":         "No problem. What would you like to change?",
	"ask_changes_ar":      "لا مشكلة. ما الذي تريد تعديله؟",
	"start_over":          "Let's start over. Tell me the area, the unit type and your budget.",
	"start_over_ar":       "لنبدأ من جديد. أخبرني بالمنطقة ونوع الوحدة والميزانية.",
	"reset_message":       "Your request details were cleared. Tell me what you are looking for.",
	"reset_message_ar":    "تم مسح تفاصيل طلبك. أخبرني بما تبحث عنه.",
	"fallback_message":    "Sorry, I did not get that. Tell me the area, the unit type and the budget you have in mind.",
	"fallback_message_ar": "عذراً، لم أفهم. أخبرني بالمنطقة ونوع الوحدة والميزانية التي تبحث عنها.",
}

// TemplateKeys lists the configurable reply templates in a stable order
func TemplateKeys() []string {
	keys := make([]string, 0, len(defaultTemplates))
	for k := range defaultTemplates {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
