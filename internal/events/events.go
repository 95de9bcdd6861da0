// Package events publishes profile domain events.
package events

import (
	"context"
	"time"
)

const (
	ProfileUpserted          = "profile.upserted"
	ProfileExperienceAdded   = "profile.experience.added"
	ProfileExperienceRemoved = "profile.experience.removed"
	ProfileEducationAdded    = "profile.education.added"
	ProfileEducationRemoved  = "profile.education.removed"
	UserDeleted              = "user.deleted"
)

// Event is the JSON payload written to the events topic.
type Event struct {
	Type    string    `json:"type"`
	UserID  string    `json:"userId"`
	EntryID string    `json:"entryId,omitempty"`
	At      time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop discards every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }
