// Package events defines the challenge event payloads and their publishers.
package events

import (
	"context"
	"time"
)

// EventTypeChallengeJoined identifies ChallengeJoined records on the wire.
const EventTypeChallengeJoined = "challenge.joined"

// ChallengeJoined is emitted after a join has been committed to the document.
type ChallengeJoined struct {
	EventID      string    `json:"event_id"`
	Name         string    `json:"name"`
	Participants int       `json:"participants"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Publisher delivers challenge events.
type Publisher interface {
	Publish(ctx context.Context, event ChallengeJoined) error
}

// NoopPublisher discards every event.
type NoopPublisher struct{}

// Publish performs no action.
func (NoopPublisher) Publish(context.Context, ChallengeJoined) error { return nil }
