// Package events announces profile state transitions to subscribers.
//
// Events are transient notifications, not a source of truth: the database
// commit always precedes the publish, nothing is rolled back when a publish
// fails, and delivery is best-effort at-least-once with no cross-subject
// ordering. Callers surface publish failures so clients can treat "mutation
// failed" as "state may have changed but notification did not".
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrPublisherNotConfigured indicates the emitter has no publisher.
var ErrPublisherNotConfigured = errors.New("event publisher is not configured")

// Publisher broadcasts one encoded event on a subject. Implementations do
// not wait for subscriber acknowledgment.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte) error
}

// UserDisplayNameChanged reports a display-name transition.
type UserDisplayNameChanged struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// UserDisplayColorChanged reports a display-color transition.
type UserDisplayColorChanged struct {
	UserID       string `json:"user_id"`
	DisplayColor string `json:"display_color"`
}

// UserFollowChanged reports a follow-relation transition. It is broadcast on
// both the acting user's and the target channel's subject because each side
// has independent subscribers.
type UserFollowChanged struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
	Following bool   `json:"following"`
}

// UserDisplayNameSubject derives the display-name subject for one user.
func UserDisplayNameSubject(userID string) string {
	return "user." + userID + ".display_name"
}

// UserDisplayColorSubject derives the display-color subject for one user.
func UserDisplayColorSubject(userID string) string {
	return "user." + userID + ".display_color"
}

// UserFollowsSubject derives the follow subject scoped to the acting user.
func UserFollowsSubject(userID string) string {
	return "user." + userID + ".follows"
}

// ChannelFollowsSubject derives the follow subject scoped to the channel.
func ChannelFollowsSubject(channelID string) string {
	return "channel." + channelID + ".follows"
}

// Emitter encodes profile events and broadcasts them through a publisher.
type Emitter struct {
	publisher Publisher
}

// NewEmitter creates an emitter backed by the given publisher.
func NewEmitter(publisher Publisher) *Emitter {
	return &Emitter{publisher: publisher}
}

// EmitDisplayNameChanged broadcasts one display-name event.
func (e *Emitter) EmitDisplayNameChanged(ctx context.Context, userID string, displayName string) error {
	return e.emit(ctx, UserDisplayNameSubject(userID), UserDisplayNameChanged{
		UserID:      userID,
		DisplayName: displayName,
	})
}

// EmitDisplayColorChanged broadcasts one display-color event.
func (e *Emitter) EmitDisplayColorChanged(ctx context.Context, userID string, displayColor string) error {
	return e.emit(ctx, UserDisplayColorSubject(userID), UserDisplayColorChanged{
		UserID:       userID,
		DisplayColor: displayColor,
	})
}

// EmitFollowChanged broadcasts one follow event on both the user and the
// channel subject. Both publishes are attempted even when the first fails;
// any failure is reported after both attempts.
func (e *Emitter) EmitFollowChanged(ctx context.Context, userID string, channelID string, following bool) error {
	if e == nil || e.publisher == nil {
		return ErrPublisherNotConfigured
	}
	payload, err := json.Marshal(UserFollowChanged{
		UserID:    userID,
		ChannelID: channelID,
		Following: following,
	})
	if err != nil {
		return fmt.Errorf("marshal follow event: %w", err)
	}

	userErr := e.publisher.Publish(ctx, UserFollowsSubject(userID), payload)
	channelErr := e.publisher.Publish(ctx, ChannelFollowsSubject(channelID), payload)
	return errors.Join(userErr, channelErr)
}

func (e *Emitter) emit(ctx context.Context, subject string, event any) error {
	if e == nil || e.publisher == nil {
		return ErrPublisherNotConfigured
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", subject, err)
	}
	return e.publisher.Publish(ctx, subject, payload)
}
