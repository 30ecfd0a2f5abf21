// Package entitlement gates every consumer-facing read behind the caller's
// authorization state. The gate is a pure predicate over externally
// supplied data: it owns no persistent state and never mutates the
// pipeline.
package entitlement

import (
	"context"
	"time"
)

// Requirement names a gated capability.
type Requirement string

const (
	// RequirementSubscription demands membership in the required channels.
	RequirementSubscription Requirement = "subscription"
	// RequirementVIP demands an active VIP flag.
	RequirementVIP Requirement = "vip"
)

// Reason is the typed denial reason handed to the presentation layer.
type Reason string

const (
	// ReasonNotSubscribed: the user is missing one or more required channels.
	ReasonNotSubscribed Reason = "not_subscribed"
	// ReasonNotVip: the user is not a VIP.
	ReasonNotVip Reason = "not_vip"
	// ReasonUnknownUser: no entitlement record exists for the caller.
	ReasonUnknownUser Reason = "unknown_user"
)

// User is the entitlement view over the external user store.
type User struct {
	ID       int64
	Username string

	IsAdmin bool
	IsVIP   bool

	// VIPUntil is carried from the store but not enforced here; the
	// account store owns expiry.
	VIPUntil *time.Time

	// JoinedChannels maps channel username to join time.
	JoinedChannels map[string]time.Time

	// HasJoinedRequiredChannels records that full compliance was already
	// persisted; it suppresses the write-once side effect on later calls.
	HasJoinedRequiredChannels bool
}

// Channel is a membership requirement supplied by an external collaborator.
type Channel struct {
	Username  string
	Title     string
	Active    bool
	CreatedAt time.Time
}

// Decision is the gate's verdict. Denials carry a typed reason, never an
// error, so the presentation layer can render the right call-to-action.
type Decision struct {
	Allowed         bool     `json:"allowed"`
	Reason          Reason   `json:"reason,omitempty"`
	MissingChannels []string `json:"missing_channels,omitempty"`
}

func allow() Decision { return Decision{Allowed: true} }

// ChannelSource supplies the current channel requirements.
type ChannelSource interface {
	RequiredChannels(ctx context.Context) ([]Channel, error)
}

// UserStore receives the gate's single write-back: the first time a user
// satisfies every channel requirement.
type UserStore interface {
	MarkChannelsJoined(ctx context.Context, userID int64) error
}
