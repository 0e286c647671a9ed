package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	telebot "gopkg.in/telebot.v3"
)

// Telegram implements Provider on top of telebot. Topics are created in the
// configured support chat; sends target arbitrary chats and threads.
type Telegram struct {
	bot           *telebot.Bot
	supportChatID int64
	log           *slog.Logger
}

var _ Provider = (*Telegram)(nil)

// NewTelegram constructs the telebot-backed provider adapter.
func NewTelegram(bot *telebot.Bot, supportChatID int64, log *slog.Logger) *Telegram {
	if log == nil {
		log = slog.Default()
	}

	return &Telegram{
		bot:           bot,
		supportChatID: supportChatID,
		log:           log,
	}
}

// CreateThread creates a forum topic with the given name in the support chat
// and returns its thread id.
func (t *Telegram) CreateThread(ctx context.Context, name string) (int, error) {
	params := map[string]string{
		"chat_id": strconv.FormatInt(t.supportChatID, 10),
		"name":    name,
	}

	var threadID int
	err := t.call(ctx, func() error {
		data, err := t.bot.Raw("createForumTopic", params)
		if err != nil {
			return err
		}

		var resp struct {
			Result struct {
				ThreadID int `json:"message_thread_id"`
			} `json:"result"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return fmt.Errorf("decode createForumTopic response: %w", err)
		}
		if resp.Result.ThreadID == 0 {
			return fmt.Errorf("createForumTopic returned no thread id")
		}

		threadID = resp.Result.ThreadID
		return nil
	})
	if err != nil {
		t.log.Error("failed to create forum topic", slog.String("name", name), slog.Any("error", err))
		return 0, err
	}

	t.log.Info("created forum topic", slog.Int("thread_id", threadID), slog.String("name", name))
	return threadID, nil
}

// SendText delivers a plain text message.
func (t *Telegram) SendText(ctx context.Context, dest Destination, text string) error {
	return t.send(ctx, dest, text)
}

// SendPhoto delivers a photo by file id with an optional caption.
func (t *Telegram) SendPhoto(ctx context.Context, dest Destination, fileID, caption string) error {
	return t.send(ctx, dest, &telebot.Photo{File: telebot.File{FileID: fileID}, Caption: caption})
}

// SendDocument delivers a document by file id with an optional caption.
func (t *Telegram) SendDocument(ctx context.Context, dest Destination, fileID, caption string) error {
	return t.send(ctx, dest, &telebot.Document{File: telebot.File{FileID: fileID}, Caption: caption})
}

// SendVoice delivers a voice note by file id.
func (t *Telegram) SendVoice(ctx context.Context, dest Destination, fileID string) error {
	return t.send(ctx, dest, &telebot.Voice{File: telebot.File{FileID: fileID}})
}

// SendVideo delivers a video by file id with an optional caption.
func (t *Telegram) SendVideo(ctx context.Context, dest Destination, fileID, caption string) error {
	return t.send(ctx, dest, &telebot.Video{File: telebot.File{FileID: fileID}, Caption: caption})
}

// SendVideoNote delivers a round video note by file id.
func (t *Telegram) SendVideoNote(ctx context.Context, dest Destination, fileID string) error {
	return t.send(ctx, dest, &telebot.VideoNote{File: telebot.File{FileID: fileID}})
}

// SendSticker delivers a sticker by file id.
func (t *Telegram) SendSticker(ctx context.Context, dest Destination, fileID string) error {
	return t.send(ctx, dest, &telebot.Sticker{File: telebot.File{FileID: fileID}})
}

// SendLocation delivers a geographic location.
func (t *Telegram) SendLocation(ctx context.Context, dest Destination, latitude, longitude float32) error {
	return t.send(ctx, dest, &telebot.Location{Lat: latitude, Lng: longitude})
}

// SendContact delivers a shared contact.
func (t *Telegram) SendContact(ctx context.Context, dest Destination, phone, firstName, lastName string) error {
	return t.send(ctx, dest, &telebot.Contact{
		PhoneNumber: phone,
		FirstName:   firstName,
		LastName:    lastName,
	})
}

// Forward relays the original message verbatim.
func (t *Telegram) Forward(ctx context.Context, dest Destination, original *telebot.Message) error {
	return t.call(ctx, func() error {
		_, err := t.bot.Forward(telebot.ChatID(dest.ChatID), original, sendOptions(dest))
		return err
	})
}

func (t *Telegram) send(ctx context.Context, dest Destination, what interface{}) error {
	return t.call(ctx, func() error {
		_, err := t.bot.Send(telebot.ChatID(dest.ChatID), what, sendOptions(dest))
		return err
	})
}

// call runs the blocking Bot API invocation and honors the context deadline.
// The provider error text is returned untouched so the failure classifier can
// match on it.
func (t *Telegram) call(ctx context.Context, fn func() error) error {
	if ctx == nil {
		return fn()
	}

	done := make(chan error, 1)
	go func() { done <- fn() }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func sendOptions(dest Destination) *telebot.SendOptions {
	return &telebot.SendOptions{ThreadID: dest.ThreadID}
}
