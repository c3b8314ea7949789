package notification

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"
)

// LogSMSSender writes SMS messages to the log instead of a gateway.
type LogSMSSender struct {
	logger zerolog.Logger
}

func NewLogSMSSender(logger zerolog.Logger) *LogSMSSender {
	return &LogSMSSender{logger: logger}
}

func (s *LogSMSSender) SendSMS(_ context.Context, to, body string) error {
	s.logger.Info().Str("to", to).Str("body", body).Msg("sms (log provider)")
	return nil
}

// LogPushSender writes push messages to the log instead of FCM.
type LogPushSender struct {
	logger zerolog.Logger
}

func NewLogPushSender(logger zerolog.Logger) *LogPushSender {
	return &LogPushSender{logger: logger}
}

func (s *LogPushSender) SendPush(_ context.Context, token string, msg PushMessage) error {
	s.logger.Info().
		Str("token", token).
		Str("title", msg.Title).
		Str("channel", msg.ChannelID).
		Str("priority", msg.Priority).
		Msg("push (log provider)")
	return nil
}

// SMSCall records a single call to SendSMS.
type SMSCall struct {
	To   string
	Body string
}

// MockSMSSender is a test double for SMSSender. FailFor makes sends to
// specific numbers fail.
type MockSMSSender struct {
	mu         sync.Mutex
	calls      []SMSCall
	ShouldFail bool
	FailFor    map[string]bool
	FailError  string
}

func (m *MockSMSSender) SendSMS(_ context.Context, to, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, SMSCall{To: to, Body: body})
	if m.ShouldFail || m.FailFor[to] {
		msg := m.FailError
		if msg == "" {
			msg = "sms failed"
		}
		return errors.New(msg)
	}
	return nil
}

// Calls returns a copy of recorded SMS calls.
func (m *MockSMSSender) Calls() []SMSCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SMSCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// PushCall records a single call to SendPush.
type PushCall struct {
	Token   string
	Message PushMessage
}

// MockPushSender is a test double for PushSender. Tokens listed in
// Unregistered fail with ErrTokenUnregistered.
type MockPushSender struct {
	mu           sync.Mutex
	calls        []PushCall
	ShouldFail   bool
	Unregistered map[string]bool
}

func (m *MockPushSender) SendPush(_ context.Context, token string, msg PushMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, PushCall{Token: token, Message: msg})
	if m.Unregistered[token] {
		return ErrTokenUnregistered
	}
	if m.ShouldFail {
		return errors.New("push failed")
	}
	return nil
}

// Calls returns a copy of recorded push calls.
func (m *MockPushSender) Calls() []PushCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PushCall, len(m.calls))
	copy(out, m.calls)
	return out
}
