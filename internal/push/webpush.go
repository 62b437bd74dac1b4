package push

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
)

// webPayload is the JSON document the browser's service worker receives.
type webPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// WebPushSender delivers messages through the Web Push protocol. It serves
// the desktop-web device class, whose opaque token is the browser's
// PushSubscription serialized to JSON (endpoint plus keys).
type WebPushSender struct {
	options webpush.Options
}

// NewWebPushSender returns a sender signing requests with the given VAPID
// options.
func NewWebPushSender(options webpush.Options) *WebPushSender {
	return &WebPushSender{options: options}
}

// Send encrypts and posts one notification to the subscription's endpoint.
func (s *WebPushSender) Send(ctx context.Context, msg *Message) error {
	var sub webpush.Subscription
	if err := json.Unmarshal([]byte(msg.Token), &sub); err != nil {
		// A token that cannot even be parsed as a subscription will never
		// deliver, so it is classified the same as a gone endpoint.
		return fmt.Errorf("%w: malformed web push subscription: %v", ErrInvalidToken, err)
	}
	if sub.Endpoint == "" {
		return fmt.Errorf("%w: web push subscription has no endpoint", ErrInvalidToken)
	}

	payload, err := json.Marshal(webPayload{
		Title: msg.Title,
		Body:  msg.Body,
		Data:  msg.Data,
	})
	if err != nil {
		return fmt.Errorf("marshal web push payload: %w", err)
	}

	options := s.options
	options.Urgency = webpush.UrgencyNormal
	if msg.Priority == PriorityHigh {
		options.Urgency = webpush.UrgencyHigh
	}

	resp, err := webpush.SendNotificationWithContext(ctx, payload, &sub, &options)
	if err != nil {
		return fmt.Errorf("web push send: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		// The push service no longer knows this endpoint.
		return fmt.Errorf("%w: endpoint gone (status %d)", ErrInvalidToken, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("web push send: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}
