package alert

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seniorcare/seniorcare/internal/domain/contact"
	"github.com/seniorcare/seniorcare/internal/domain/user"
	"github.com/seniorcare/seniorcare/internal/platform/db"
	"github.com/seniorcare/seniorcare/internal/platform/metrics"
	"github.com/seniorcare/seniorcare/internal/platform/notification"
	"github.com/seniorcare/seniorcare/internal/platform/websocket"
	"github.com/seniorcare/seniorcare/pkg/phone"
)

type UserLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type RecipientLookup interface {
	ListAlertRecipients(ctx context.Context, userID uuid.UUID) ([]*contact.EmergencyContact, error)
}

// SMSSender is satisfied by *notification.Manager.
type SMSSender interface {
	SendSMS(ctx context.Context, to, body string) (*notification.Notification, error)
}

type Service struct {
	repo       Repository
	users      UserLookup
	recipients RecipientLookup
	sms        SMSSender
	publisher  websocket.EventPublisher
	logger     zerolog.Logger
}

func NewService(repo Repository, users UserLookup, recipients RecipientLookup, sms SMSSender, logger zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		users:      users,
		recipients: recipients,
		sms:        sms,
		publisher:  websocket.NopPublisher{},
		logger:     logger,
	}
}

func (s *Service) SetPublisher(p websocket.EventPublisher) {
	s.publisher = p
}

func validCoordinates(lat, lng *float64) error {
	if (lat == nil) != (lng == nil) {
		return fmt.Errorf("latitude and longitude must be given together")
	}
	if lat != nil && (*lat < -90 || *lat > 90 || *lng < -180 || *lng > 180) {
		return fmt.Errorf("coordinates out of range")
	}
	return nil
}

// Trigger texts every alert recipient of the user, one after another. A
// failed send is logged and counted but does not stop the fan-out. The
// alert is stored whatever the outcome.
func (s *Service) Trigger(ctx context.Context, req TriggerRequest) (*EmergencyAlert, error) {
	if req.UserID == uuid.Nil {
		return nil, fmt.Errorf("user_id is required")
	}
	if err := validCoordinates(req.Latitude, req.Longitude); err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	contacts, err := s.recipients.ListAlertRecipients(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("load alert recipients: %w", err)
	}

	body := ComposeMessage(u.FullName(), req.Message, req.Latitude, req.Longitude, req.LocationText)
	sent := 0
	for _, c := range contacts {
		if _, err := s.sms.SendSMS(ctx, c.PhoneNumber, body); err != nil {
			s.logger.Warn().Err(err).
				Str("user_id", req.UserID.String()).
				Str("contact_id", c.ID.String()).
				Msg("emergency sms failed")
			continue
		}
		sent++
	}

	a := &EmergencyAlert{
		UserID:         req.UserID,
		Message:        body,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
		LocationText:   req.LocationText,
		Status:         statusFor(len(contacts), sent),
		RecipientCount: len(contacts),
		SentCount:      sent,
	}
	metrics.EmergencyAlerts.WithLabelValues(a.Status).Inc()
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("store alert: %w", err)
	}

	s.logger.Info().
		Str("alert_id", a.ID.String()).
		Str("user_id", a.UserID.String()).
		Str("status", a.Status).
		Int("recipients", a.RecipientCount).
		Int("sent", a.SentCount).
		Msg("emergency alert triggered")

	ev := websocket.NewEvent(db.CollectionEmergencyAlerts, websocket.EventCreated, a.ID.String(), a.UserID.String(), a)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("alert_id", a.ID.String()).Msg("failed to publish event")
	}
	return a, nil
}

// ErrRecipientNotAllowed is returned by Forward when the number is not one of
// the sender's active alert contacts.
var ErrRecipientNotAllowed = errors.New("number is not one of your emergency contacts")

var errContactLookup = errors.New("load alert contacts")

// Forward sends one message to one number without touching the alert log.
// The number must belong to one of from's active SMS contacts; uuid.Nil as
// from lifts that restriction and is reserved for admins.
func (s *Service) Forward(ctx context.Context, from uuid.UUID, number, message string) (*notification.Notification, error) {
	to, err := phone.Normalize(number)
	if err != nil {
		return nil, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, fmt.Errorf("message is required")
	}
	if from != uuid.Nil {
		ok, err := s.isAlertContact(ctx, from, to)
		if err != nil {
			return nil, err
		}
		if !ok {
			s.logger.Warn().Str("user_id", from.String()).Msg("sms forward to unknown number refused")
			return nil, ErrRecipientNotAllowed
		}
	}
	if r := []rune(message); len(r) > MaxMessageLength {
		message = string(r[:MaxMessageLength])
	}
	return s.sms.SendSMS(ctx, to, message)
}

func (s *Service) isAlertContact(ctx context.Context, userID uuid.UUID, to string) (bool, error) {
	contacts, err := s.recipients.ListAlertRecipients(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("%w: %w", errContactLookup, err)
	}
	for _, c := range contacts {
		if n, err := phone.Normalize(c.PhoneNumber); err == nil && n == to {
			return true, nil
		}
	}
	return false, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*EmergencyAlert, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*EmergencyAlert, int, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) ListRecent(ctx context.Context, limit, offset int) ([]*EmergencyAlert, int, error) {
	return s.repo.ListRecent(ctx, limit, offset)
}

func (s *Service) CountSince(ctx context.Context, since time.Time) (int, error) {
	return s.repo.CountSince(ctx, since)
}

func (s *Service) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return s.repo.DeleteByUser(ctx, userID)
}
