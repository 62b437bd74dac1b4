package push

import (
	"context"
	"errors"
	"fmt"

	"github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/model"
)

// Priority of a gateway send. High priority wakes devices immediately.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
)

// Message is one notification addressed to one device token.
type Message struct {
	Token       string
	DeviceClass model.DeviceClass
	Title       string
	Body        string
	Data        map[string]string
	Priority    Priority
}

// ErrInvalidToken marks a token the gateway reported as permanently
// unreachable (unregistered, expired, revoked). Callers deactivate the token
// when IsPermanent returns true; every other failure is transient.
var ErrInvalidToken = errors.New("push: token permanently invalid")

// IsPermanent reports whether a send failure means the token will never work
// again.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

// Sender delivers one message to the push gateway serving its device class.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
}

// ClassSender routes each message to the gateway registered for its device
// class: FCM for mobile and other, Web Push for desktop-web.
type ClassSender struct {
	routes map[model.DeviceClass]Sender
}

// NewClassSender returns a router with no gateways attached.
func NewClassSender() *ClassSender {
	return &ClassSender{routes: make(map[model.DeviceClass]Sender)}
}

// Route attaches a gateway for one device class, replacing any previous one.
func (s *ClassSender) Route(class model.DeviceClass, sender Sender) {
	s.routes[class] = sender
}

// Send forwards the message to the gateway serving its class. A class with
// no gateway is a deployment gap, not a dead token, so the error is
// transient.
func (s *ClassSender) Send(ctx context.Context, msg *Message) error {
	sender, ok := s.routes[msg.DeviceClass]
	if !ok {
		return fmt.Errorf("no push gateway for device class %q", msg.DeviceClass)
	}
	return sender.Send(ctx, msg)
}
