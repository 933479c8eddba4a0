// Package notify delivers ledger events to the notification layer.
//
// Delivery is best effort: callers log a failed Publish and carry on.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// EventType names a ledger event. It doubles as the AMQP routing key.
type EventType string

const (
	GroupCreated    EventType = "group.created"
	MemberAdded     EventType = "member.added"
	MemberJoined    EventType = "member.joined"
	InviteRotated   EventType = "invite.rotated"
	ExpenseRecorded EventType = "expense.recorded"
)

// Event is one ledger state change.
type Event struct {
	Type    EventType `json:"type"`
	GroupID string    `json:"group_id"`

	// ActorID is the user who caused the event.
	ActorID string `json:"actor_id"`

	// SubjectID is the user or expense the event is about, if any.
	SubjectID string `json:"subject_id,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

// NewEvent stamps an event with the current time.
func NewEvent(typ EventType, groupID, actorID, subjectID string) Event {
	return Event{
		Type:       typ,
		GroupID:    groupID,
		ActorID:    actorID,
		SubjectID:  subjectID,
		OccurredAt: time.Now().UTC(),
	}
}

// JSON encodes the event as a message body.
func (e Event) JSON() ([]byte, error) {
	return json.Marshal(e)
}

// Notifier publishes ledger events.
type Notifier interface {
	Publish(ctx context.Context, event Event) error
}

// Log is a Notifier that writes events to the default slog logger.
// It is used when no message broker is configured.
type Log struct{}

// Publish logs the event at info level.
func (Log) Publish(ctx context.Context, event Event) error {
	slog.InfoContext(ctx, "Ledger event",
		"type", event.Type,
		"group_id", event.GroupID,
		"actor_id", event.ActorID,
		"subject_id", event.SubjectID,
	)
	return nil
}

// Deliver publishes event and logs instead of returning a failure.
func Deliver(ctx context.Context, n Notifier, event Event) {
	if n == nil {
		return
	}
	if err := n.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "Failed to publish event",
			"type", event.Type,
			"group_id", event.GroupID,
			"error", err,
		)
	}
}
