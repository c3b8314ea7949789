package notification

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seniorcare/seniorcare/internal/platform/metrics"
)

// TokenStore resolves a user's registered device tokens.
type TokenStore interface {
	TokensForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
	RemoveToken(ctx context.Context, token string) error
}

const defaultLogSize = 1000

// Manager sends notifications and keeps the most recent ones in memory.
// Each send is attempted once; failures are recorded, never retried.
type Manager struct {
	sms       SMSSender
	push      PushSender
	tokens    TokenStore
	templates *TemplateEngine
	logger    zerolog.Logger
	provider  string

	mu            sync.RWMutex
	notifications map[string]*Notification
	order         []string
	maxLog        int
	now           func() time.Time
}

func NewManager(sms SMSSender, push PushSender, tokens TokenStore, tpl *TemplateEngine, logger zerolog.Logger) *Manager {
	if tpl == nil {
		tpl = NewTemplateEngine()
	}
	return &Manager{
		sms:           sms,
		push:          push,
		tokens:        tokens,
		templates:     tpl,
		logger:        logger,
		provider:      smsProviderName(sms),
		notifications: make(map[string]*Notification),
		maxLog:        defaultLogSize,
		now:           time.Now,
	}
}

func smsProviderName(s SMSSender) string {
	switch s.(type) {
	case *SemaphoreSender:
		return "semaphore"
	case *SNSSender:
		return "sns"
	case *LogSMSSender:
		return "log"
	default:
		return "other"
	}
}

func (m *Manager) Templates() *TemplateEngine {
	return m.templates
}

// SendSMS sends one text message and records it.
func (m *Manager) SendSMS(ctx context.Context, to, body string) (*Notification, error) {
	return m.sendSMS(ctx, to, body, "")
}

func (m *Manager) sendSMS(ctx context.Context, to, body, templateID string) (*Notification, error) {
	n := m.newNotification(TypeSMS, to, templateID)
	n.Body = body
	n.Priority = PriorityHigh
	n.Attempted = 1

	var err error
	if m.sms == nil {
		err = fmt.Errorf("no sms provider configured")
	} else {
		err = m.sms.SendSMS(ctx, to, body)
	}
	metrics.SMSSent.WithLabelValues(m.provider, metrics.Result(err)).Inc()

	if err != nil {
		m.finish(n, 0, err)
		return n, err
	}
	m.finish(n, 1, nil)
	return n, nil
}

// SendPush delivers msg to every device registered for userID. Tokens the
// provider reports as unregistered are removed. The notification is "sent"
// when every device received it, "partial" when some did and "failed" when
// none did or the user has no devices.
func (m *Manager) SendPush(ctx context.Context, userID uuid.UUID, msg PushMessage) (*Notification, error) {
	return m.sendPush(ctx, userID, msg, "")
}

func (m *Manager) sendPush(ctx context.Context, userID uuid.UUID, msg PushMessage, templateID string) (*Notification, error) {
	if msg.ChannelID == "" {
		msg.ChannelID = ChannelFor(msg.Type)
	}
	n := m.newNotification(TypePush, userID.String(), templateID)
	n.Title = msg.Title
	n.Body = msg.Body
	n.Data = msg.Data
	n.Priority = msg.Priority

	if m.push == nil || m.tokens == nil {
		err := fmt.Errorf("push delivery is not configured")
		m.finish(n, 0, err)
		return n, err
	}

	tokens, err := m.tokens.TokensForUser(ctx, userID)
	if err != nil {
		err = fmt.Errorf("load device tokens: %w", err)
		m.finish(n, 0, err)
		return n, err
	}
	if len(tokens) == 0 {
		err := fmt.Errorf("user %s has no registered devices", userID)
		m.finish(n, 0, err)
		return n, err
	}

	n.Attempted = len(tokens)
	delivered := 0
	var errs []error
	for _, token := range tokens {
		sendErr := m.push.SendPush(ctx, token, msg)
		metrics.PushSent.WithLabelValues(msg.ChannelID, metrics.Result(sendErr)).Inc()
		if sendErr == nil {
			delivered++
			continue
		}
		if errors.Is(sendErr, ErrTokenUnregistered) {
			if rmErr := m.tokens.RemoveToken(ctx, token); rmErr != nil {
				m.logger.Warn().Err(rmErr).Msg("failed to remove unregistered device token")
			}
		}
		errs = append(errs, sendErr)
	}

	joined := errors.Join(errs...)
	m.finish(n, delivered, joined)
	if delivered == 0 {
		return n, joined
	}
	if joined != nil {
		m.logger.Warn().Err(joined).
			Str("user_id", userID.String()).
			Int("delivered", delivered).
			Int("attempted", len(tokens)).
			Msg("push partially delivered")
	}
	return n, nil
}

// SendFromTemplate renders a template and sends it over the template's
// channel. recipient is a phone number for SMS templates and a user id for
// push templates.
func (m *Manager) SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*Notification, error) {
	tpl, ok := m.templates.Get(templateID)
	if !ok {
		return nil, fmt.Errorf("template %q not found", templateID)
	}
	title, body, err := m.templates.Render(templateID, data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	var n *Notification
	switch tpl.Type {
	case TypeSMS:
		n, err = m.sendSMS(ctx, recipient, body, templateID)
	case TypePush:
		userID, parseErr := uuid.Parse(recipient)
		if parseErr != nil {
			return nil, fmt.Errorf("push recipient must be a user id")
		}
		payload := map[string]string{"title": title, "body": body, "type": tpl.MessageType}
		for k, v := range data {
			if _, exists := payload[k]; !exists {
				payload[k] = v
			}
		}
		n, err = m.sendPush(ctx, userID, FromPayload(payload), templateID)
	default:
		return nil, fmt.Errorf("unsupported notification type: %s", tpl.Type)
	}
	return n, err
}

// newNotification builds the log entry. Entries are not modified once
// stored; readers get the shared pointer without holding the lock.
func (m *Manager) newNotification(t NotificationType, recipient, templateID string) *Notification {
	return &Notification{
		ID:         uuid.New().String(),
		Type:       t,
		Recipient:  recipient,
		TemplateID: templateID,
		Priority:  PriorityNormal,
		Status:    StatusPending,
		CreatedAt: m.now().UTC(),
	}
}

func (m *Manager) finish(n *Notification, delivered int, err error) {
	n.Delivered = delivered
	switch {
	case delivered > 0 && err == nil:
		n.Status = StatusSent
	case delivered > 0:
		n.Status = StatusPartial
	default:
		n.Status = StatusFailed
	}
	if delivered > 0 {
		sentAt := m.now().UTC()
		n.SentAt = &sentAt
	}
	if err != nil {
		n.Error = err.Error()
	}
	m.store(n)
}

// store appends to the log, evicting the oldest entry when full.
func (m *Manager) store(n *Notification) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications[n.ID] = n
	m.order = append(m.order, n.ID)
	for len(m.order) > m.maxLog {
		delete(m.notifications, m.order[0])
		m.order = m.order[1:]
	}
}

// Get retrieves a notification by ID.
func (m *Manager) Get(_ context.Context, id string) (*Notification, error) {
	m.mu.RLock()
	n, ok := m.notifications[id]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("notification %q not found", id)
	}
	return n, nil
}

// ListByRecipient returns the newest notifications for a recipient first,
// up to limit.
func (m *Manager) ListByRecipient(_ context.Context, recipient string, limit int) ([]*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []*Notification
	for i := len(m.order) - 1; i >= 0; i-- {
		n := m.notifications[m.order[i]]
		if n.Recipient != recipient {
			continue
		}
		result = append(result, n)
		if limit > 0 && len(result) >= limit {
			break
		}
	}
	return result, nil
}

// Stats returns counts of logged notifications grouped by "<type>.<status>"
// plus per-status totals.
func (m *Manager) Stats(_ context.Context) map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := make(map[string]int)
	for _, n := range m.notifications {
		stats[n.Status]++
		stats[string(n.Type)+"."+n.Status]++
	}
	stats["total"] = len(m.notifications)
	return stats
}
