package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gopkg.in/telebot.v3"

	"github.com/relaydesk/support-bot/internal/repository"
)

// handleStart greets a user in their private chat. In the staff chat the
// command is a no-op.
func (b *Bot) handleStart(c telebot.Context) error {
	msg := c.Message()
	if msg == nil || msg.Chat == nil || msg.Chat.Type != telebot.ChatPrivate {
		return nil
	}

	sender := c.Sender()
	name := ""
	if sender != nil {
		name = sender.FirstName
	}

	if name == "" {
		return c.Send(welcomeMessage)
	}

	return c.Send(fmt.Sprintf("%s, %s!", welcomeMessage, name))
}

func (b *Bot) handleBan(c telebot.Context) error {
	return b.setBanState(c, true, userBannedNotice)
}

func (b *Bot) handleUnban(c telebot.Context) error {
	return b.setBanState(c, false, userUnbannedNotice)
}

// setBanState flips the ban flag for the user owning the topic the command
// was issued in. The command is staff-only: it is ignored outside the
// support chat and rejected outside a topic.
func (b *Bot) setBanState(c telebot.Context, banned bool, notice string) error {
	msg := c.Message()
	if msg == nil || msg.Chat == nil || msg.Chat.ID != b.supportChatID {
		return nil
	}

	if msg.ThreadID == 0 {
		return c.Send(topicOnlyNotice)
	}

	ctx := context.Background()

	user, err := b.repo.FindByThreadID(ctx, msg.ThreadID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return b.replyInThread(c, msg, userNotFoundNotice)
		}

		b.log.Error("ban state lookup failed",
			slog.Int("thread_id", msg.ThreadID),
			slog.Bool("banned", banned),
			slog.Any("error", err),
		)

		return b.replyInThread(c, msg, banStateFailedNotice)
	}

	if err := b.repo.SetBanned(ctx, user.UserID, banned); err != nil {
		b.log.Error("ban state update failed",
			slog.Int64("user_id", user.UserID),
			slog.Bool("banned", banned),
			slog.Any("error", err),
		)

		return b.replyInThread(c, msg, banStateFailedNotice)
	}

	b.log.Info("ban state changed",
		slog.Int64("user_id", user.UserID),
		slog.Int("thread_id", msg.ThreadID),
		slog.Bool("banned", banned),
	)

	return b.replyInThread(c, msg, notice)
}
