package notification

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// messagingClient is the subset of *messaging.Client used here.
type messagingClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// FCMSender delivers push notifications through Firebase Cloud Messaging.
type FCMSender struct {
	client messagingClient
}

// NewFCMSender initialises a Firebase app from a service-account file.
func NewFCMSender(ctx context.Context, credentialsFile string) (*FCMSender, error) {
	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}
	return &FCMSender{client: client}, nil
}

func (s *FCMSender) SendPush(ctx context.Context, token string, msg PushMessage) error {
	_, err := s.client.Send(ctx, buildFCMMessage(token, msg))
	if err != nil {
		if messaging.IsUnregistered(err) {
			return ErrTokenUnregistered
		}
		return fmt.Errorf("fcm send: %w", err)
	}
	return nil
}

func buildFCMMessage(token string, msg PushMessage) *messaging.Message {
	androidPriority := "normal"
	apnsPriority := "5"
	if msg.Priority == PriorityHigh {
		androidPriority = "high"
		apnsPriority = "10"
	}

	return &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Payload(),
		Android: &messaging.AndroidConfig{
			Priority: androidPriority,
			Notification: &messaging.AndroidNotification{
				ChannelID:   msg.ChannelID,
				ClickAction: msg.ClickAction,
				Sound:       "default",
			},
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{"apns-priority": apnsPriority},
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:    "default",
					Category: msg.ClickAction,
				},
			},
		},
	}
}
