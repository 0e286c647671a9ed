// Package relay implements the two routing directions of the support bridge:
// user messages into the staff chat's per-user topics, and staff replies from
// a topic back to the owning user.
package relay

import (
	"log/slog"
	"time"

	"github.com/relaydesk/support-bot/internal/activity"
	"github.com/relaydesk/support-bot/internal/provider"
	"github.com/relaydesk/support-bot/internal/repository"
	"github.com/relaydesk/support-bot/internal/topics"
)

// Config carries the routing parameters shared by both directions.
type Config struct {
	// SupportChatID is the staff supergroup all topics live in.
	SupportChatID int64
	// CallTimeout bounds every provider call made while routing one event.
	CallTimeout time.Duration
	// AckMessage is the courtesy reply sent to a user when the
	// acknowledgement gate opens.
	AckMessage string
}

// Relay routes events between users and the staff chat. It holds no mapping
// state of its own: the repository is re-read for every routed event.
type Relay struct {
	repo     repository.UserRepository
	provider provider.Provider
	resolver *topics.Resolver
	failures FailureClassifier
	gate     activity.Gate
	cfg      Config
	log      *slog.Logger
}

// New constructs a Relay with its collaborators injected.
func New(
	repo repository.UserRepository,
	p provider.Provider,
	resolver *topics.Resolver,
	failures FailureClassifier,
	gate activity.Gate,
	cfg Config,
	log *slog.Logger,
) *Relay {
	if log == nil {
		log = slog.Default()
	}
	if failures == nil {
		failures = TextMatcher{}
	}

	return &Relay{
		repo:     repo,
		provider: p,
		resolver: resolver,
		failures: failures,
		gate:     gate,
		cfg:      cfg,
		log:      log,
	}
}
