package bot

// Fixed user- and staff-facing texts. Localization is out of scope; these are
// plain constants rather than a translation layer.
const (
	// AckMessage is the courtesy notice rate-limited by the activity gate.
	AckMessage = "Your request has been received. We are already working on it and will get back to you soon."

	welcomeMessage = "Hi! Describe your problem here and the support team will reply to you."

	bannedMessage = "You are banned."

	userNotFoundNotice   = "User not found."
	userBlockedNotice    = "The user has blocked the bot."
	userBannedNotice     = "User banned."
	userUnbannedNotice   = "User unbanned."
	topicOnlyNotice      = "This command only works inside a user's topic."
	banStateFailedNotice = "Could not update the ban state."
)
