package device

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Service manages push registrations. It also serves as the notification
// manager's token store.
type Service struct {
	devices Repository
}

func NewService(devices Repository) *Service {
	return &Service{devices: devices}
}

func (s *Service) Register(ctx context.Context, d *DeviceToken) error {
	d.Token = strings.TrimSpace(d.Token)
	if d.Token == "" {
		return fmt.Errorf("token is required")
	}
	if d.UserID == uuid.Nil {
		return fmt.Errorf("user_id is required")
	}
	d.Platform = strings.ToLower(d.Platform)
	if d.Platform == "" {
		d.Platform = PlatformAndroid
	}
	if !ValidPlatform(d.Platform) {
		return fmt.Errorf("invalid platform: %s", d.Platform)
	}
	return s.devices.Upsert(ctx, d)
}

// Unregister forgets a token. Unknown tokens are not an error.
func (s *Service) Unregister(ctx context.Context, token string) error {
	err := s.devices.DeleteByToken(ctx, strings.TrimSpace(token))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	return err
}

func (s *Service) ListByUser(ctx context.Context, userID uuid.UUID) ([]*DeviceToken, error) {
	return s.devices.ListByUser(ctx, userID)
}

func (s *Service) DeleteByUser(ctx context.Context, userID uuid.UUID) error {
	return s.devices.DeleteByUser(ctx, userID)
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.devices.Count(ctx)
}

func (s *Service) TokensForUser(ctx context.Context, userID uuid.UUID) ([]string, error) {
	items, err := s.devices.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	tokens := make([]string, 0, len(items))
	for _, d := range items {
		tokens = append(tokens, d.Token)
	}
	return tokens, nil
}

func (s *Service) RemoveToken(ctx context.Context, token string) error {
	return s.Unregister(ctx, token)
}
