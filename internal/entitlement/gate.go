package entitlement

import (
	"context"
	"log/slog"
	"sort"
)

// Gate evaluates entitlement checks per request.
type Gate struct {
	channels    ChannelSource
	users       UserStore
	maxRequired int
	logger      *slog.Logger
}

// NewGate creates a Gate. maxRequired caps how many channels can be
// required at once (newest first); <=0 means no cap. A nil logger uses
// slog.Default().
func NewGate(channels ChannelSource, users UserStore, maxRequired int, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		channels:    channels,
		users:       users,
		maxRequired: maxRequired,
		logger:      logger,
	}
}

// Authorize evaluates the requirement for the user. It never returns an
// error: an absent user record or a failing channel source results in a
// denial with a typed reason.
//
// Admins bypass every check. For subscription, an empty required-channel
// set authorizes everyone; otherwise every required username must appear
// in the user's joined channels. The first time a user satisfies all
// requirements, the compliance flag is persisted once.
func (g *Gate) Authorize(ctx context.Context, user *User, req Requirement) Decision {
	if user == nil {
		return Decision{Allowed: false, Reason: ReasonUnknownUser}
	}

	if user.IsAdmin {
		return allow()
	}

	switch req {
	case RequirementVIP:
		// VIPUntil is deliberately not compared against the clock; the
		// account store clears IsVIP on expiry.
		if user.IsVIP {
			return allow()
		}
		return Decision{Allowed: false, Reason: ReasonNotVip}

	case RequirementSubscription:
		return g.checkSubscription(ctx, user)

	default:
		g.logger.Warn("unknown entitlement requirement, denying", "requirement", req)
		return Decision{Allowed: false, Reason: ReasonNotSubscribed}
	}
}

func (g *Gate) checkSubscription(ctx context.Context, user *User) Decision {
	required, err := g.requiredChannels(ctx)
	if err != nil {
		g.logger.Error("channel source failed, denying subscription check", "error", err)
		return Decision{Allowed: false, Reason: ReasonNotSubscribed}
	}

	if len(required) == 0 {
		return allow()
	}

	var missing []string
	for _, ch := range required {
		if _, joined := user.JoinedChannels[ch.Username]; !joined {
			missing = append(missing, ch.Username)
		}
	}
	if len(missing) > 0 {
		return Decision{Allowed: false, Reason: ReasonNotSubscribed, MissingChannels: missing}
	}

	// Write-once: persist compliance the first time it is observed.
	if !user.HasJoinedRequiredChannels && g.users != nil {
		if err := g.users.MarkChannelsJoined(ctx, user.ID); err != nil {
			g.logger.Error("failed to persist channel compliance", "user_id", user.ID, "error", err)
		}
	}
	return allow()
}

// requiredChannels filters to active channels, newest first, capped to the
// configured count.
func (g *Gate) requiredChannels(ctx context.Context) ([]Channel, error) {
	if g.channels == nil {
		return nil, nil
	}

	channels, err := g.channels.RequiredChannels(ctx)
	if err != nil {
		return nil, err
	}

	active := channels[:0:0]
	for _, ch := range channels {
		if ch.Active {
			active = append(active, ch)
		}
	}
	sort.SliceStable(active, func(i, j int) bool {
		return active[i].CreatedAt.After(active[j].CreatedAt)
	})
	if g.maxRequired > 0 && len(active) > g.maxRequired {
		active = active[:g.maxRequired]
	}
	return active, nil
}
