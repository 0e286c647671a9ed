package domain

import "time"

// PlatformTelegram is the default transport tag for new users.
const PlatformTelegram = "telegram"

// User represents one external end-user known to the relay, identified by the
// chat id of their direct conversation with the bot. ThreadID is the forum
// topic assigned to the user inside the support chat; zero means no topic has
// been created yet. Once set, ThreadID is never cleared or reassigned.
type User struct {
	ID        int64
	UserID    int64
	ThreadID  int
	Platform  string
	Banned    bool
	BannedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasThread reports whether a forum topic has been assigned to the user.
func (u *User) HasThread() bool {
	return u != nil && u.ThreadID != 0
}
