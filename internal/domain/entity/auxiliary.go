package entity

import "time"

// FeedPollState tracks the last poll outcome for one configured feed. It is
// written only by the RSS poller worker (spec.md §5: "no cross-worker
// contention").
type FeedPollState struct {
	Source              string
	LastPolledAt        time.Time
	LastOutcome         string // "ok", "fetch_error", "parse_error"
	ConsecutiveFailures int
	QuarantinedUntil    time.Time
}

// Eligible reports whether the feed may be polled at instant now: it has
// cleared its cooldown window and any quarantine from repeated failure.
func (f *FeedPollState) Eligible(now time.Time, cooldown time.Duration) bool {
	if now.Before(f.QuarantinedUntil) {
		return false
	}
	return now.Sub(f.LastPolledAt) >= cooldown
}

// ChangeFeedLease is a resumable cursor over a container's change feed, so a
// restart replays from the last committed position instead of losing or
// re-reading the whole history (spec.md §4.1).
type ChangeFeedLease struct {
	Container    string
	PartitionKey string
	Cursor       time.Time
	LastID       string
	UpdatedAt    time.Time
}

// UserProfile is the minimal identity + preference record the read API's
// authenticated endpoints operate on. Identity issuance itself is an
// external collaborator (spec.md §1); this is only the shape the core
// stores against a verified subject.
type UserProfile struct {
	ID           string
	Categories   []Category
	LastFeedAt   time.Time
	DeviceTokens []string
}

// InteractionKind enumerates the user actions the read API records.
type InteractionKind string

const (
	InteractionLike InteractionKind = "like"
	InteractionSave InteractionKind = "save"
	InteractionView InteractionKind = "view"
)

// UserInteraction is a single like/save/view event against a cluster.
type UserInteraction struct {
	ID        string
	UserID    string
	ClusterID string
	Kind      InteractionKind
	CreatedAt time.Time
}
