package relay

// Outcome is the closed result set of a routed event. Expected failure modes
// (bans, missing mappings, provider errors) are outcomes, not errors; the
// accompanying error only carries provider detail for logging and staff triage.
type Outcome int

const (
	// OutcomeDelivered means the payload reached its destination.
	OutcomeDelivered Outcome = iota
	// OutcomeIgnored means there was nothing to route (out-of-band traffic).
	OutcomeIgnored
	// OutcomeBlocked means the sender is banned; nothing was attempted.
	OutcomeBlocked
	// OutcomeThreadUnavailable means the user's topic could not be resolved.
	OutcomeThreadUnavailable
	// OutcomeUnknownThread means no user owns the topic a reply came from.
	OutcomeUnknownThread
	// OutcomeRecipientBlocked means the recipient revoked the conversation.
	OutcomeRecipientBlocked
	// OutcomeRecipientMissing means the recipient is gone on the provider side.
	OutcomeRecipientMissing
	// OutcomeDeliveryFailed is any other provider failure during dispatch.
	OutcomeDeliveryFailed
)

var outcomeNames = map[Outcome]string{
	OutcomeDelivered:         "delivered",
	OutcomeIgnored:           "ignored",
	OutcomeBlocked:           "blocked",
	OutcomeThreadUnavailable: "thread_unavailable",
	OutcomeUnknownThread:     "unknown_thread",
	OutcomeRecipientBlocked:  "recipient_blocked",
	OutcomeRecipientMissing:  "recipient_missing",
	OutcomeDeliveryFailed:    "delivery_failed",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}
