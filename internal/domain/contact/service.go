package contact

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/seniorcare/seniorcare/internal/platform/db"
	"github.com/seniorcare/seniorcare/internal/platform/websocket"
	"github.com/seniorcare/seniorcare/pkg/phone"
)

type Service struct {
	contacts  Repository
	publisher websocket.EventPublisher
	logger    zerolog.Logger
}

func NewService(contacts Repository, logger zerolog.Logger) *Service {
	return &Service{
		contacts:  contacts,
		publisher: websocket.NopPublisher{},
		logger:    logger,
	}
}

func (s *Service) SetPublisher(p websocket.EventPublisher) {
	s.publisher = p
}

func (s *Service) publish(ctx context.Context, eventType string, c *EmergencyContact) {
	ev := websocket.NewEvent(db.CollectionEmergencyContacts, eventType, c.ID.String(), c.UserID.String(), c)
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn().Err(err).Str("contact_id", c.ID.String()).Msg("failed to publish contact event")
	}
}

func validate(c *EmergencyContact) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(c.PhoneNumber) == "" {
		return fmt.Errorf("phone_number is required")
	}
	n, err := phone.Normalize(c.PhoneNumber)
	if err != nil {
		return fmt.Errorf("phone_number: %w", err)
	}
	c.PhoneNumber = n
	if c.Priority < 0 {
		return fmt.Errorf("priority cannot be negative")
	}
	return nil
}

// Create adds a contact. A user's first contact always becomes primary.
func (s *Service) Create(ctx context.Context, c *EmergencyContact) error {
	if c.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required")
	}
	if err := validate(c); err != nil {
		return err
	}
	existing, err := s.contacts.ListByUser(ctx, c.UserID)
	if err != nil {
		return fmt.Errorf("list contacts: %w", err)
	}
	if len(existing) == 0 {
		c.IsPrimary = true
	}
	if c.Priority == 0 {
		c.Priority = len(existing) + 1
	}
	if err := s.contacts.Create(ctx, c); err != nil {
		return err
	}
	if c.IsPrimary && len(existing) > 0 {
		if err := s.contacts.SetPrimary(ctx, c.UserID, c.ID); err != nil {
			return fmt.Errorf("set primary: %w", err)
		}
	}
	s.publish(ctx, websocket.EventCreated, c)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*EmergencyContact, error) {
	return s.contacts.GetByID(ctx, id)
}

// Update replaces the editable fields of a contact. Primary status is
// changed through SetPrimary only.
func (s *Service) Update(ctx context.Context, upd *EmergencyContact) (*EmergencyContact, error) {
	c, err := s.contacts.GetByID(ctx, upd.ID)
	if err != nil {
		return nil, err
	}
	c.Name = upd.Name
	c.Relationship = upd.Relationship
	c.PhoneNumber = upd.PhoneNumber
	c.Email = upd.Email
	c.NotifyBySMS = upd.NotifyBySMS
	if upd.Priority != 0 {
		c.Priority = upd.Priority
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	if err := s.contacts.Update(ctx, c); err != nil {
		return nil, err
	}
	s.publish(ctx, websocket.EventUpdated, c)
	return c, nil
}

func (s *Service) SetPrimary(ctx context.Context, id uuid.UUID) (*EmergencyContact, error) {
	c, err := s.contacts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.contacts.SetPrimary(ctx, c.UserID, c.ID); err != nil {
		return nil, err
	}
	c.IsPrimary = true
	s.publish(ctx, websocket.EventUpdated, c)
	return c, nil
}

// SoftDelete deactivates a contact. When the primary contact goes, the
// next contact by priority is promoted.
func (s *Service) SoftDelete(ctx context.Context, id uuid.UUID) error {
	c, err := s.contacts.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.contacts.SoftDelete(ctx, id); err != nil {
		return err
	}
	c.IsActive = false
	s.publish(ctx, websocket.EventDeleted, c)

	if !c.IsPrimary {
		return nil
	}
	rest, err := s.contacts.ListByUser(ctx, c.UserID)
	if err == nil && len(rest) > 0 {
		err = s.contacts.SetPrimary(ctx, c.UserID, rest[0].ID)
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("user_id", c.UserID.String()).Msg("failed to promote next primary contact")
	}
	return nil
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*EmergencyContact, error) {
	return s.contacts.ListByUser(ctx, userID)
}

// ListAlertRecipients returns the contacts that receive emergency SMS, in
// notification order.
func (s *Service) ListAlertRecipients(ctx context.Context, userID uuid.UUID) ([]*EmergencyContact, error) {
	all, err := s.contacts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []*EmergencyContact
	for _, c := range all {
		if c.ReceivesAlerts() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return s.contacts.DeleteByUser(ctx, userID)
}
