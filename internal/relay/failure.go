package relay

import "strings"

// Failure is the three-way classification of an outbound send failure.
type Failure int

const (
	// FailureGeneric is any unrecognized provider failure.
	FailureGeneric Failure = iota
	// FailureBlocked means the recipient blocked the bot.
	FailureBlocked
	// FailureMissing means the recipient chat no longer exists.
	FailureMissing
)

// FailureClassifier maps provider errors into the closed Failure taxonomy.
// It is an interface so a structured mapping can replace text matching if the
// provider ever exposes error codes.
type FailureClassifier interface {
	Classify(err error) Failure
}

// TextMatcher classifies by case-insensitive substring matching on the
// provider's error text. Best effort: the Bot API reports failures as free
// text only.
type TextMatcher struct{}

var _ FailureClassifier = TextMatcher{}

// Classify inspects the error text for the known failure markers.
func (TextMatcher) Classify(err error) Failure {
	if err == nil {
		return FailureGeneric
	}

	text := strings.ToLower(err.Error())
	switch {
	case strings.Contains(text, "blocked"):
		return FailureBlocked
	case strings.Contains(text, "not found"):
		return FailureMissing
	default:
		return FailureGeneric
	}
}
