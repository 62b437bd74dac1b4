package push

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// FCMSender delivers messages through Firebase Cloud Messaging. It serves
// the mobile and other device classes, whose tokens are FCM registration
// tokens.
type FCMSender struct {
	client *messaging.Client
}

// NewFCMSender initializes the Firebase app and its messaging client. With an
// empty credentials path the SDK falls back to application default
// credentials.
func NewFCMSender(ctx context.Context, credentialsFile string) (*FCMSender, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("initialize fcm messaging client: %w", err)
	}

	log.Println("FCM client initialized")
	return &FCMSender{client: client}, nil
}

// Send pushes one message to one registration token.
func (s *FCMSender) Send(ctx context.Context, msg *Message) error {
	out := &messaging.Message{
		Token: msg.Token,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: androidPriority(msg.Priority),
		},
		APNS: &messaging.APNSConfig{
			Headers: map[string]string{
				"apns-priority": apnsPriority(msg.Priority),
			},
		},
	}

	if _, err := s.client.Send(ctx, out); err != nil {
		return classifyFCMError(err)
	}
	return nil
}

func androidPriority(p Priority) string {
	if p == PriorityHigh {
		return "high"
	}
	return "normal"
}

func apnsPriority(p Priority) string {
	if p == PriorityHigh {
		return "10"
	}
	return "5"
}

// classifyFCMError folds the SDK's error taxonomy into ours. Unregistered
// tokens and tokens minted for a different sender will never deliver;
// everything else (quota, gateway unavailable, internal) may succeed on a
// later dispatch.
func classifyFCMError(err error) error {
	if messaging.IsUnregistered(err) || messaging.IsSenderIDMismatch(err) {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return fmt.Errorf("fcm send: %w", err)
}
