package topics

import (
	"fmt"
	"strings"
)

// nameLimit is the transport's maximum topic label length in code units.
const nameLimit = 128

// Profile carries the display hints used to label a user's topic.
type Profile struct {
	FirstName string
	LastName  string
	Username  string
}

// TopicName builds the forum topic label for a user: the joined name parts
// (or a synthetic "User{id}" when none exist), an optional "(@handle)", and a
// mandatory "#{id}" suffix. Truncation to the transport limit is applied last,
// so the suffix may be cut off under pathological inputs; that is accepted.
func TopicName(profile Profile, userID int64) string {
	var parts []string
	if profile.FirstName != "" {
		parts = append(parts, profile.FirstName)
	}
	if profile.LastName != "" {
		parts = append(parts, profile.LastName)
	}

	name := strings.Join(parts, " ")
	if name == "" {
		name = fmt.Sprintf("User%d", userID)
	}

	if profile.Username != "" {
		name += fmt.Sprintf(" (@%s)", profile.Username)
	}

	name += fmt.Sprintf(" #%d", userID)

	if runes := []rune(name); len(runes) > nameLimit {
		name = string(runes[:nameLimit])
	}

	return name
}
