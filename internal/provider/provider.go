// Package provider abstracts the messaging transport consumed by the relay:
// creating forum topics and sending or forwarding message payloads.
package provider

import (
	"context"

	telebot "gopkg.in/telebot.v3"
)

// Destination addresses a send operation. ThreadID targets a forum topic
// inside the chat and is zero for direct conversations.
type Destination struct {
	ChatID   int64
	ThreadID int
}

// Provider is the transport capability consumed by the routers and the topic
// resolver. Implementations must honor the context deadline on every call; a
// timed-out call is reported as an error and never retried internally.
type Provider interface {
	CreateThread(ctx context.Context, name string) (int, error)

	SendText(ctx context.Context, dest Destination, text string) error
	SendPhoto(ctx context.Context, dest Destination, fileID, caption string) error
	SendDocument(ctx context.Context, dest Destination, fileID, caption string) error
	SendVoice(ctx context.Context, dest Destination, fileID string) error
	SendVideo(ctx context.Context, dest Destination, fileID, caption string) error
	SendVideoNote(ctx context.Context, dest Destination, fileID string) error
	SendSticker(ctx context.Context, dest Destination, fileID string) error
	SendLocation(ctx context.Context, dest Destination, latitude, longitude float32) error
	SendContact(ctx context.Context, dest Destination, phone, firstName, lastName string) error

	Forward(ctx context.Context, dest Destination, original *telebot.Message) error
}
