package store

import "github.com/nehalDIU/NestTask-V8.5-Depertment-sub001/internal/model"

// Recipient is one deliverable (user, token) pair produced by audience
// resolution. DeviceClass rides along so the dispatcher can route the send
// to the right push gateway.
type Recipient struct {
	UserID      string
	Token       string
	DeviceClass model.DeviceClass
}
