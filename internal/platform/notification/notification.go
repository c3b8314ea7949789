// Package notification delivers SMS and push notifications through pluggable
// providers, renders message templates and keeps a bounded in-memory log of
// what was sent.
package notification

import (
	"context"
	"errors"
	"strings"
	"time"
)

// NotificationType represents the channel used to deliver a notification.
type NotificationType string

const (
	TypeSMS  NotificationType = "sms"
	TypePush NotificationType = "push"
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// Notification represents a single outbound notification. For SMS the
// recipient is a phone number, for push it is a user id.
type Notification struct {
	ID         string            `json:"id"`
	Type       NotificationType  `json:"type"`
	Recipient  string            `json:"recipient"`
	Title      string            `json:"title,omitempty"`
	Body       string            `json:"body"`
	TemplateID string            `json:"template_id,omitempty"`
	Data       map[string]string `json:"data,omitempty"`
	Priority   string            `json:"priority"`
	Status     string            `json:"status"`
	Delivered  int               `json:"delivered"`
	Attempted  int               `json:"attempted"`
	CreatedAt  time.Time         `json:"created_at"`
	SentAt     *time.Time        `json:"sent_at,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// SMSSender is the interface for sending SMS messages.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) error
}

// PushSender delivers a push message to one device token.
type PushSender interface {
	SendPush(ctx context.Context, token string, msg PushMessage) error
}

// ErrTokenUnregistered is returned by PushSender implementations when the
// device token is no longer valid and should be forgotten.
var ErrTokenUnregistered = errors.New("device token is no longer registered")

// Message types carried in the push payload "type" field.
const (
	MessageReminder    = "reminder"
	MessageEmergency   = "emergency"
	MessageAppointment = "appointment"
	MessageBenefit     = "benefit"
	MessageGeneral     = "general"
)

// Android notification channels, one per message type.
const (
	ChannelReminders       = "reminders"
	ChannelEmergencyAlerts = "emergency_alerts"
	ChannelAppointments    = "appointments"
	ChannelBenefits        = "benefits"
	ChannelGeneral         = "general"
)

const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// PushMessage is what ends up on the device: payload fields map directly
// onto notification fields.
type PushMessage struct {
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Type        string            `json:"type"`
	ChannelID   string            `json:"channel_id"`
	Priority    string            `json:"priority"`
	ClickAction string            `json:"click_action,omitempty"`
	Data        map[string]string `json:"data,omitempty"`
}

// reserved payload keys that become notification fields rather than data.
var reservedPayloadKeys = map[string]bool{
	"title": true, "body": true, "type": true, "priority": true, "click_action": true,
}

// FromPayload builds a PushMessage from a flat key/value payload. Unknown
// types become "general". Emergencies are always high priority.
func FromPayload(payload map[string]string) PushMessage {
	msg := PushMessage{
		Title:       payload["title"],
		Body:        payload["body"],
		Type:        normalizeType(payload["type"]),
		Priority:    strings.ToLower(payload["priority"]),
		ClickAction: payload["click_action"],
	}
	msg.ChannelID = ChannelFor(msg.Type)
	if msg.Priority != PriorityHigh {
		msg.Priority = PriorityNormal
	}
	if msg.Type == MessageEmergency {
		msg.Priority = PriorityHigh
	}

	for k, v := range payload {
		if reservedPayloadKeys[k] {
			continue
		}
		if msg.Data == nil {
			msg.Data = make(map[string]string)
		}
		msg.Data[k] = v
	}
	return msg
}

// Payload flattens the message back into the wire payload, type included,
// so the client can rebuild it.
func (m PushMessage) Payload() map[string]string {
	out := make(map[string]string, len(m.Data)+4)
	for k, v := range m.Data {
		out[k] = v
	}
	out["type"] = m.Type
	out["title"] = m.Title
	out["body"] = m.Body
	out["priority"] = m.Priority
	if m.ClickAction != "" {
		out["click_action"] = m.ClickAction
	}
	return out
}

func normalizeType(t string) string {
	switch t = strings.ToLower(strings.TrimSpace(t)); t {
	case MessageReminder, MessageEmergency, MessageAppointment, MessageBenefit:
		return t
	}
	return MessageGeneral
}

// ChannelFor returns the Android notification channel for a message type.
func ChannelFor(messageType string) string {
	switch messageType {
	case MessageReminder:
		return ChannelReminders
	case MessageEmergency:
		return ChannelEmergencyAlerts
	case MessageAppointment:
		return ChannelAppointments
	case MessageBenefit:
		return ChannelBenefits
	default:
		return ChannelGeneral
	}
}
