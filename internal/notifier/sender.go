package notifier

import (
	"context"

	"github.com/thejenniferfang/disaster-response/internal/types"
)

// Notification is the payload handed to senders: one matched (event, NGO)
// pair with the scoring rationale for explainability downstream.
type Notification struct {
	Event types.Event `json:"event"`
	NGO   types.NGO   `json:"ngo"`
	Match types.Match `json:"match"`
}

// Sender is the interface for external notification channels (webhook,
// Kafka, etc.). Each implementation handles its own async delivery, retry
// logic, and filtering.
type Sender interface {
	// Name returns the sender's identifier (e.g., "webhook", "kafka").
	Name() string

	// Send delivers a notification to the external channel.
	Send(ctx context.Context, n Notification) error

	// ShouldSend returns true if this sender handles events at the severity.
	ShouldSend(severity types.Severity) bool

	// Start begins any background workers. Non-blocking.
	Start(ctx context.Context)
}
