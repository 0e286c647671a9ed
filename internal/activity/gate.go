// Package activity rate-limits the courtesy acknowledgement sent to users:
// at most one "request received" notice per user per cooldown window.
package activity

import "context"

// Gate tracks per-user inbound activity. Mark records activity for the user
// and reports whether the acknowledgement should be sent: true when no
// activity was seen within the cooldown window. The check and the refresh are
// one logical step so concurrent traffic cannot double-send the notice.
type Gate interface {
	Mark(ctx context.Context, userID int64) (bool, error)
}
